package postgres

import (
	"context"
	"time"

	kpool "github.com/geoflow/geoflow/pkg/conn/db/postgres/pool"
	kdb "github.com/geoflow/geoflow/pkg/db"
	kpgschema "github.com/geoflow/geoflow/pkg/db/postgres/schema"
	graphdb "github.com/geoflow/geoflow/pkg/domain/graph/db"
	kpggraph "github.com/geoflow/geoflow/pkg/domain/graph/db/postgres"
	schemadb "github.com/geoflow/geoflow/pkg/domain/schema/db"
	xe "github.com/geoflow/geoflow/pkg/errors"
	migrations "github.com/geoflow/geoflow/schema/postgres"
)

type geoflowDBPostgres struct {
	pool   kpool.Pool
	graph  graphdb.Database
	schema schemadb.SchemaInterface
}

type Config struct {
	// directory of schema repository. When empty, bundled migrations are used.
	SchemaRepository string

	// postgres schema where tables live.
	Schema string

	ConnectTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Schema:         "public",
		ConnectTimeout: 30 * time.Second,
	}
}

type Option func(*Config) *Config

func WithSchemaRepository(repository string) Option {
	return func(c *Config) *Config {
		c.SchemaRepository = repository
		return c
	}
}

func WithSchema(name string) Option {
	return func(c *Config) *Config {
		c.Schema = name
		return c
	}
}

func WithConnectTimeout(timeout time.Duration) Option {
	return func(c *Config) *Config {
		c.ConnectTimeout = timeout
		return c
	}
}

func New(
	ctx context.Context,
	url string,
	options ...Option,
) (kdb.GeoflowDatabase, error) {
	c := DefaultConfig()
	for _, option := range options {
		c = *option(&c)
	}

	p, err := kpool.Connect(ctx, url, c.ConnectTimeout)
	if err != nil {
		return nil, xe.Wrap(err)
	}

	var schema schemadb.SchemaInterface
	if c.SchemaRepository != "" {
		schema = kpgschema.FromDir(p, c.SchemaRepository, kpgschema.WithSchemaName(c.Schema))
	} else {
		schema = kpgschema.New(p, migrations.Versions(), kpgschema.WithSchemaName(c.Schema))
	}

	return &geoflowDBPostgres{
		pool:   p,
		graph:  kpggraph.New(p, kpggraph.WithSchema(c.Schema)),
		schema: schema,
	}, nil
}

func (g *geoflowDBPostgres) Graph() graphdb.Database {
	return g.graph
}

func (g *geoflowDBPostgres) Schema() schemadb.SchemaInterface {
	return g.schema
}

func (g *geoflowDBPostgres) Close() error {
	g.pool.Close()
	return nil
}
