package main

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strconv"

	kpg "github.com/geoflow/geoflow/pkg/db/postgres"
	"github.com/geoflow/geoflow/pkg/utils/try"
	migrations "github.com/geoflow/geoflow/schema/postgres"
	"github.com/youta-t/flarc"
)

type Flag struct {
	Host     string `flag:"host" help:"database host"`
	Port     int    `flag:"port" help:"database port"`
	User     string `flag:"user" help:"database user"`
	Password string `flag:"pass" help:"password of the database user"`
	Database string `flag:"database" help:"database name"`

	Schema     string `flag:"schema" help:"postgres schema for geoflow tables"`
	Repository string `flag:"repository" help:"directory of migration scripts. bundled ones are used when empty"`
}

// URI is the connection string for the database.
func (f Flag) URI() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(f.User, f.Password),
		Host:   fmt.Sprintf("%s:%d", f.Host, f.Port),
		Path:   "/" + f.Database,
	}
	return u.String()
}

// migrations to be applied
func (f Flag) Migrations() fs.FS {
	if f.Repository == "" {
		return migrations.Versions()
	}
	return os.DirFS(f.Repository)
}

const ARG_SCHEMA_DEST = "ARG_SCHEMA_DEST"

func envOr(key string, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func defaults() Flag {
	port, err := strconv.Atoi(envOr("DB_PORT", "5432"))
	if err != nil {
		port = 5432
	}
	return Flag{
		Host:       os.Getenv("DB_HOST"),
		Port:       port,
		User:       os.Getenv("DB_USER"),
		Password:   os.Getenv("DB_PASSWORD"),
		Database:   os.Getenv("DB_NAME"),
		Schema:     envOr("GEOFLOW_DB_SCHEMA", "public"),
		Repository: os.Getenv("GEOFLOW_SCHEMA_REPOSITORY"),
	}
}

func upgrade(ctx context.Context, logger *log.Logger, flags Flag, dest []string) error {
	if len(dest) != 0 {
		logger.Printf("exporting migrations into %s", dest[0])
		if err := os.CopyFS(dest[0], flags.Migrations()); err != nil {
			return err
		}
	}

	db, err := kpg.New(
		ctx, flags.URI(),
		kpg.WithSchema(flags.Schema),
		kpg.WithSchemaRepository(flags.Repository),
	)
	if err != nil {
		return err
	}
	defer db.Close()

	sc := db.Schema()
	if err := sc.Upgrade(ctx); err != nil {
		return err
	}
	v, err := sc.Version(ctx)
	if err != nil {
		return err
	}
	logger.Printf("schema %q: version %d", flags.Schema, v)
	return nil
}

func main() {
	logger := log.Default()
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
	defer cancel()

	cmd := try.To(flarc.NewCommand(
		"upgrade database schema of geoflow to the latest",
		defaults(),
		flarc.Args{
			{
				Name: ARG_SCHEMA_DEST, Help: "export migration scripts into this directory before upgrading",
				Required: false, Repeatable: false,
			},
		},
		func(ctx context.Context, c flarc.Commandline[Flag], _ []any) error {
			return upgrade(ctx, logger, c.Flags(), c.Args()[ARG_SCHEMA_DEST])
		},
	)).OrFatal(logger)

	os.Exit(flarc.Run(ctx, cmd))
}
