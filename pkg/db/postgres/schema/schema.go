// Package schema applies versioned SQL migrations to PostgreSQL.
//
// A repository is a filesystem whose top level directories are named with version numbers.
// Files "*.sql" under a version directory are executed in lexical order of their paths.
// The applied version is recorded in the "schema_version" table, created by the first version.
package schema

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/fsnotify/fsnotify"
	kpool "github.com/geoflow/geoflow/pkg/conn/db/postgres/pool"
	pgerrors "github.com/geoflow/geoflow/pkg/db/postgres/errors"
	schemadb "github.com/geoflow/geoflow/pkg/domain/schema/db"
	xe "github.com/geoflow/geoflow/pkg/errors"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v4"
)

type pgSchema struct {
	pool       kpool.Pool
	repository fs.FS

	// directory of the repository to be watched. Empty when not watched.
	watch string

	// postgres schema where tables live.
	name string
}

var _ schemadb.SchemaInterface = &pgSchema{}

type Option func(*pgSchema) *pgSchema

// WithSchemaName sets the postgres schema where tables are created.
//
// Default: "public"
func WithSchemaName(name string) Option {
	return func(s *pgSchema) *pgSchema {
		s.name = name
		return s
	}
}

// New creates a Schema applying migrations in repository.
func New(pool kpool.Pool, repository fs.FS, options ...Option) *pgSchema {
	s := &pgSchema{pool: pool, repository: repository, name: "public"}
	for _, o := range options {
		s = o(s)
	}
	return s
}

// FromDir creates a Schema reading a directory.
//
// Context() of the Schema watches the directory, and detects versions added later.
func FromDir(pool kpool.Pool, dir string, options ...Option) *pgSchema {
	s := New(pool, os.DirFS(dir), options...)
	s.watch = filepath.Clean(dir)
	return s
}

func (s *pgSchema) table(name string) string {
	return pgx.Identifier{s.name, name}.Sanitize()
}

type version struct {
	number int
	dir    string
}

// listVersions returns versions in fsys, in ascending order.
//
// Entries not named with an integer are ignored.
func listVersions(fsys fs.FS) ([]version, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, err
	}

	vs := []version{}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		n, err := strconv.Atoi(e.Name())
		if err != nil || n <= 0 {
			continue
		}
		vs = append(vs, version{number: n, dir: e.Name()})
	}
	slices.SortFunc(vs, func(a, b version) int { return cmp.Compare(a.number, b.number) })
	return vs, nil
}

// scripts of the version, in lexical order.
func (v version) scripts(fsys fs.FS) ([]string, error) {
	paths := []string{}
	err := fs.WalkDir(fsys, v.dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(p, ".sql") {
			paths = append(paths, p)
		}
		return nil
	})
	slices.Sort(paths)
	return paths, err
}

func (v version) apply(ctx context.Context, fsys fs.FS, q kpool.Queryer) error {
	paths, err := v.scripts(fsys)
	if err != nil {
		return err
	}
	for _, p := range paths {
		sql, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		if _, err := q.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("version %d, %s: %w", v.number, p, err)
		}
	}
	return nil
}

func (s *pgSchema) Version(ctx context.Context) (int, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return -1, xe.Wrap(err)
	}
	defer conn.Release()
	return s.version(ctx, conn)
}

// version reads the applied version. Missing schema or table means nothing is applied.
func (s *pgSchema) version(ctx context.Context, q kpool.Queryer) (int, error) {
	var v int
	err := q.QueryRow(
		ctx, `SELECT coalesce(max("version"), 0) FROM `+s.table("schema_version"),
	).Scan(&v)
	if err == nil {
		return v, nil
	}
	if pgerrors.IsUndefinedTable(err) {
		return 0, nil
	}
	if pgerr := new(pgconn.PgError); errors.As(err, &pgerr) && pgerr.Code == pgerrcode.InvalidSchemaName {
		return 0, nil
	}
	return -1, xe.Wrap(err)
}

func (s *pgSchema) Upgrade(ctx context.Context) error {
	vs, err := listVersions(s.repository)
	if err != nil {
		return xe.Wrap(err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return xe.Wrap(err)
	}
	defer tx.Rollback(ctx)

	current, err := s.version(ctx, tx)
	if err != nil {
		return err
	}
	if current < 0 {
		return fmt.Errorf("unexpected schema version: %d", current)
	}

	schema := pgx.Identifier{s.name}.Sanitize()
	for _, stmt := range []string{
		`CREATE SCHEMA IF NOT EXISTS ` + schema,
		`SET LOCAL search_path TO ` + schema,
	} {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return xe.Wrap(err)
		}
	}

	applied := current
	for _, v := range vs {
		if v.number <= current {
			continue
		}
		if err := v.apply(ctx, s.repository, tx); err != nil {
			return err
		}
		applied = v.number
	}
	if applied == current {
		return nil
	}

	if _, err := tx.Exec(ctx, `DELETE FROM `+s.table("schema_version")); err != nil {
		return xe.Wrap(err)
	}
	if _, err := tx.Exec(
		ctx, `INSERT INTO `+s.table("schema_version")+` ("version") VALUES ($1)`, applied,
	); err != nil {
		return xe.Wrap(err)
	}
	return xe.Wrap(tx.Commit(ctx))
}

// outdated reports *schemadb.OutdatedError when the database is behind the repository.
func (s *pgSchema) outdated(ctx context.Context) error {
	vs, err := listVersions(s.repository)
	if err != nil {
		return fmt.Errorf("failed to read schema repository: %w", err)
	}
	if len(vs) == 0 {
		return nil
	}

	current, err := s.Version(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}
	if latest := vs[len(vs)-1].number; current < latest {
		return &schemadb.OutdatedError{Current: current, Latest: latest}
	}
	return nil
}

// Context returns a context canceled when the schema in database gets outdated.
//
// When the Schema is created by FromDir, versions added to the directory are detected.
// Otherwise, the version is checked only once.
func (s *pgSchema) Context(ctx context.Context) (context.Context, context.CancelFunc) {
	cctx, can := context.WithCancelCause(ctx)
	stop := func() { can(nil) }

	check := func() {
		if err := s.outdated(ctx); err != nil {
			can(err)
		}
	}

	if s.watch == "" {
		check()
		return cctx, stop
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		can(err)
		return cctx, stop
	}
	if err := w.Add(s.watch); err != nil {
		w.Close()
		can(err)
		return cctx, stop
	}

	go func() {
		defer w.Close()
		for {
			select {
			case <-cctx.Done():
				return
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				can(err)
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
					continue
				}
				if filepath.Dir(ev.Name) == s.watch {
					check()
				}
			}
		}
	}()

	check()
	return cctx, stop
}

// Null is a Schema of stores without versions, like memory stores.
//
// It never gets outdated, and can not be upgraded.
func Null() schemadb.SchemaInterface {
	return nullSchema{}
}

type nullSchema struct{}

func (nullSchema) Upgrade(ctx context.Context) error {
	return schemadb.ErrNoRepository
}

func (nullSchema) Version(ctx context.Context) (int, error) {
	return -1, nil
}

func (nullSchema) Context(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithCancel(ctx)
}
