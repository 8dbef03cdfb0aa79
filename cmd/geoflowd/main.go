package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	kcs "github.com/geoflow/geoflow/pkg/configs/server"
	kdb "github.com/geoflow/geoflow/pkg/db"
	kpg "github.com/geoflow/geoflow/pkg/db/postgres"
	"github.com/geoflow/geoflow/pkg/utils/filewatch"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config-path", os.Getenv("GEOFLOW_CONFIG"), "server config path")
	loglevel := flag.String("loglevel", "info", "log level. debug|info|warn|error|off")
	pcert := flag.String("cert", "", "certification file for TLS")
	pkey := flag.String("certkey", "", "key of certification file for TLS")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
	defer cancel()

	conf, err := kcs.LoadServerConfig(*configPath)
	if err != nil {
		log.Fatalf("can not read configration: %s", err)
	}

	db, err := getDBAccessor(ctx, conf.Database())
	if err != nil {
		log.Fatalf("can not connect to database: %s", err)
	}
	defer db.Close()
	{
		ctx_, ccan := db.Schema().Context(ctx)
		defer ccan()
		ctx = ctx_
	}
	{
		ctx_, ccan, err := filewatch.UntilModifyContext(ctx, *configPath)
		if err != nil {
			log.Fatalf("can not watch configration: %s", err)
		}
		defer ccan()
		ctx = ctx_
	}

	server, err := BuildServer(db.Graph(), conf.Metrics(), *loglevel)
	if err != nil {
		log.Fatalf("can not build server: %s", err)
	}
	for _, r := range server.Routes() {
		server.Logger.Debugf("- mount handler: %s %s", r.Method, r.Path)
	}

	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		addr := ":" + conf.Port()
		var err error
		if cert, key := *pcert, *pkey; cert != "" && key != "" {
			err = server.StartTLS(addr, cert, key)
		} else {
			err = server.Start(addr)
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	eg.Go(func() error {
		<-gctx.Done()
		if cause := context.Cause(ctx); cause != nil {
			server.Logger.Infof("shutting down: %s", cause)
		}
		qctx, qcancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer qcancel()
		return server.Shutdown(qctx)
	})

	if err := eg.Wait(); err != nil {
		server.Logger.Errorf("server stops with error: %s", err)
		os.Exit(1)
	}
	// modified config or outdated schema. let the supervisor restart geoflowd.
	if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
		os.Exit(1)
	}
}

func getDBAccessor(ctx context.Context, conf *kcs.DatabaseConfig) (kdb.GeoflowDatabase, error) {
	if conf.Storage() == kcs.StorageMemory {
		return kdb.OnMemory(), nil
	}
	return kpg.New(
		ctx, conf.URI(),
		kpg.WithSchema(conf.Schema()),
		kpg.WithSchemaRepository(conf.SchemaRepository()),
		kpg.WithConnectTimeout(conf.ConnectTimeout()),
	)
}
