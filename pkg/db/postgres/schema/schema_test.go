package schema_test

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/geoflow/geoflow/pkg/db/postgres/pool/testenv"
	"github.com/geoflow/geoflow/pkg/db/postgres/schema"
	schemadb "github.com/geoflow/geoflow/pkg/domain/schema/db"
	"github.com/geoflow/geoflow/pkg/utils/try"
	migrations "github.com/geoflow/geoflow/schema/postgres"
)

const testSchema = "geoflow_schema_test"

func repository(versions ...string) fstest.MapFS {
	fsys := fstest.MapFS{}
	for _, v := range versions {
		switch v {
		case "1":
			fsys["1/001.sql"] = &fstest.MapFile{Data: []byte(`
				CREATE TABLE "schema_version" ("version" integer NOT NULL);
				CREATE TABLE "foo" ("id" serial PRIMARY KEY, "name" text NOT NULL);
				INSERT INTO "foo" ("name") VALUES ('foo-1');
			`)}
		case "2":
			fsys["2/001.sql"] = &fstest.MapFile{Data: []byte(`
				INSERT INTO "foo" ("name") VALUES ('foo-2');
			`)}
			fsys["2/002.sql"] = &fstest.MapFile{Data: []byte(`
				CREATE TABLE "bar" ("id" serial PRIMARY KEY, "name" text NOT NULL);
			`)}
		}
	}
	fsys["README.md"] = &fstest.MapFile{Data: []byte("not a version")}
	return fsys
}

func TestPgSchema_Upgrade(t *testing.T) {
	type When struct {
		Given    []string
		Versions []string
	}
	type Then struct {
		VersionBefore int
		VersionAfter  int
		Foo           []string
	}

	theory := func(when When, then Then) func(*testing.T) {
		return func(t *testing.T) {
			ctx := context.Background()
			broaker := testenv.NewPoolBroaker(
				ctx, t, testenv.WithSchema(testSchema), testenv.WithEmptySchema(),
			)
			pool := broaker.GetPool(ctx, t)

			if len(when.Given) != 0 {
				given := schema.New(pool, repository(when.Given...), schema.WithSchemaName(testSchema))
				if err := given.Upgrade(ctx); err != nil {
					t.Fatalf("failed to setup database: %v", err)
				}
			}

			testee := schema.New(pool, repository(when.Versions...), schema.WithSchemaName(testSchema))
			if got := try.To(testee.Version(ctx)).OrFatal(t); got != then.VersionBefore {
				t.Errorf("version before upgrade\n- got: %v\n- want: %v", got, then.VersionBefore)
			}

			if err := testee.Upgrade(ctx); err != nil {
				t.Fatalf("failed to upgrade schema: %v", err)
			}
			if got := try.To(testee.Version(ctx)).OrFatal(t); got != then.VersionAfter {
				t.Errorf("version after upgrade\n- got: %v\n- want: %v", got, then.VersionAfter)
			}

			conn := try.To(pool.Acquire(ctx)).OrFatal(t)
			defer conn.Release()
			rows := try.To(conn.Query(
				ctx, `SELECT "name" FROM "geoflow_schema_test"."foo" ORDER BY "id"`,
			)).OrFatal(t)
			defer rows.Close()
			foo := []string{}
			for rows.Next() {
				var name string
				if err := rows.Scan(&name); err != nil {
					t.Fatal(err)
				}
				foo = append(foo, name)
			}
			if len(foo) != len(then.Foo) {
				t.Fatalf("table foo\n- got: %v\n- want: %v", foo, then.Foo)
			}
			for i := range foo {
				if foo[i] != then.Foo[i] {
					t.Errorf("table foo\n- got: %v\n- want: %v", foo, then.Foo)
				}
			}
		}
	}

	t.Run("build schema from scratch", theory(
		When{Versions: []string{"1", "2"}},
		Then{VersionBefore: 0, VersionAfter: 2, Foo: []string{"foo-1", "foo-2"}},
	))

	t.Run("upgrade schema from version 1 to 2", theory(
		When{Given: []string{"1"}, Versions: []string{"1", "2"}},
		Then{VersionBefore: 1, VersionAfter: 2, Foo: []string{"foo-1", "foo-2"}},
	))

	t.Run("schema is latest", theory(
		When{Given: []string{"1", "2"}, Versions: []string{"1", "2"}},
		Then{VersionBefore: 2, VersionAfter: 2, Foo: []string{"foo-1", "foo-2"}},
	))
}

func TestPgSchema_Context(t *testing.T) {
	ctx := context.Background()
	broaker := testenv.NewPoolBroaker(
		ctx, t, testenv.WithSchema(testSchema), testenv.WithEmptySchema(),
	)
	pool := broaker.GetPool(ctx, t)

	if err := schema.New(pool, repository("1"), schema.WithSchemaName(testSchema)).Upgrade(ctx); err != nil {
		t.Fatal(err)
	}

	t.Run("schema is latest", func(t *testing.T) {
		sctx, cancel := schema.New(pool, repository("1"), schema.WithSchemaName(testSchema)).Context(ctx)
		defer cancel()
		if err := sctx.Err(); err != nil {
			t.Errorf("context is done: %v", context.Cause(sctx))
		}
	})

	t.Run("schema is outdated", func(t *testing.T) {
		sctx, cancel := schema.New(pool, repository("1", "2"), schema.WithSchemaName(testSchema)).Context(ctx)
		defer cancel()
		if sctx.Err() == nil {
			t.Fatal("context is not done")
		}
		outdated := new(schemadb.OutdatedError)
		if !errors.As(context.Cause(sctx), &outdated) || outdated.Current != 1 || outdated.Latest != 2 {
			t.Errorf("unexpected cause: %v", context.Cause(sctx))
		}
	})
}

func TestBundledMigrations(t *testing.T) {
	ctx := context.Background()
	broaker := testenv.NewPoolBroaker(ctx, t)
	pool := broaker.GetPool(ctx, t)

	testee := schema.New(pool, migrations.Versions(), schema.WithSchemaName(broaker.Schema()))
	if got := try.To(testee.Version(ctx)).OrFatal(t); got < 1 {
		t.Errorf("bundled migrations are not applied: version = %d", got)
	}
}
