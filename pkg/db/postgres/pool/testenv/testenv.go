package testenv

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	kpool "github.com/geoflow/geoflow/pkg/conn/db/postgres/pool"
	"github.com/geoflow/geoflow/pkg/db/postgres/schema"
	"github.com/geoflow/geoflow/pkg/domain"
	"github.com/geoflow/geoflow/pkg/utils"
	migrations "github.com/geoflow/geoflow/schema/postgres"
	"github.com/jackc/pgx/v4"
)

// ENV_URI is the name of environment variable holding the connection string of the test database.
//
// Tests using postgres are skipped when it is not set.
const ENV_URI = "GEOFLOW_TEST_POSTGRES"

// SCHEMA is the postgres schema where tables for tests are created.
const SCHEMA = "geoflow_test"

type pg struct {
	pool   kpool.Pool
	schema string
}

func (p *pg) Schema() string {
	return p.schema
}

func (p *pg) GetPool(ctx context.Context, t *testing.T) kpool.Pool {
	t.Cleanup(func() {
		t.Helper()
		ClearTables(ctx, p.pool, p.schema, t)
	})

	ClearTables(ctx, p.pool, p.schema, t)
	return p.pool
}

type pgNoClean struct {
	pool   kpool.Pool
	schema string
}

func (p *pgNoClean) Schema() string {
	return p.schema
}

func (p *pgNoClean) GetPool(ctx context.Context, t *testing.T) kpool.Pool {
	return p.pool
}

// PoolBroaker is a interface to get a pool.
type PoolBroaker interface {
	// GetPool returns a pool.
	//
	// Tables are cleaned up before returning and after t.
	GetPool(ctx context.Context, t *testing.T) kpool.Pool

	// Schema returns the name of postgres schema where tables live.
	Schema() string
}

type pgConnOptions struct {
	Schema       string
	DoNotMigrate bool
	DoNotCleanup bool
}

type PgConnOption func(*pgConnOptions) *pgConnOptions

// WithSchema uses another postgres schema than SCHEMA.
func WithSchema(name string) PgConnOption {
	return func(o *pgConnOptions) *pgConnOptions {
		o.Schema = name
		return o
	}
}

// WithEmptySchema provides the schema without any tables.
//
// The schema is dropped after the test.
func WithEmptySchema() PgConnOption {
	return func(o *pgConnOptions) *pgConnOptions {
		o.DoNotMigrate = true
		o.DoNotCleanup = true
		return o
	}
}

// NewPoolBroaker returns a PoolBroaker.
//
// The database is given by the environment variable GEOFLOW_TEST_POSTGRES.
// If it is not set, the test is skipped.
//
// Unless WithEmptySchema is passed, tables are migrated to the latest version.
func NewPoolBroaker(ctx context.Context, t *testing.T, options ...PgConnOption) PoolBroaker {
	t.Helper()

	uri := os.Getenv(ENV_URI)
	if uri == "" {
		t.Skipf("%s is not set. skip tests with postgres.", ENV_URI)
	}

	opts := &pgConnOptions{Schema: SCHEMA}
	for _, o := range options {
		opts = o(opts)
	}

	pool, err := kpool.Connect(ctx, uri, 30*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(pool.Close)

	if opts.DoNotMigrate {
		dropSchema := func() {
			if _, err := execOn(ctx, pool, `DROP SCHEMA IF EXISTS `+pgx.Identifier{opts.Schema}.Sanitize()+` CASCADE`); err != nil {
				t.Errorf("failed to drop schema: %v", err)
			}
		}
		dropSchema()
		t.Cleanup(dropSchema)
	} else if err := schema.New(
		pool, migrations.Versions(), schema.WithSchemaName(opts.Schema),
	).Upgrade(ctx); err != nil {
		t.Fatal(err)
	}

	if opts.DoNotCleanup {
		return &pgNoClean{pool: pool, schema: opts.Schema}
	}
	return &pg{pool: pool, schema: opts.Schema}
}

func execOn(ctx context.Context, p kpool.Pool, sql string) (int64, error) {
	conn, err := p.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Release()
	tag, err := conn.Exec(ctx, sql)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ClearTables truncates tables of all kinds.
func ClearTables(ctx context.Context, p kpool.Pool, schemaName string, t *testing.T) {
	t.Helper()

	tables := utils.Map(domain.Kinds(), func(k domain.Kind) string {
		return pgx.Identifier{schemaName, string(k)}.Sanitize()
	})
	command := fmt.Sprintf(`truncate %s RESTART IDENTITY cascade`, strings.Join(tables, ", "))
	if _, err := execOn(ctx, p, command); err != nil {
		t.Errorf("fail to clean-up tables.: %v", err)
	}
}
