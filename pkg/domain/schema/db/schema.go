package db

import (
	"context"
	"errors"
	"fmt"
)

// SchemaInterface is versioned DDL of the store.
type SchemaInterface interface {
	// Upgrade applies versions newer than the one in the database, in one transaction.
	Upgrade(ctx context.Context) error

	// Version in the database. 0 when nothing has been applied.
	Version(ctx context.Context) (int, error)

	// Context derives a context which is canceled with *OutdatedError
	// when the database falls behind the latest version known to the schema.
	//
	// Servers should stop on it, since rows they write may not fit the tables.
	Context(ctx context.Context) (context.Context, context.CancelFunc)
}

var (
	ErrOutdated = errors.New("schema is outdated")

	// the store has no versioned schema, like memory stores.
	ErrNoRepository = errors.New("no schema repository available")
)

type OutdatedError struct {
	// version in the database
	Current int

	// the latest version known
	Latest int
}

func (e *OutdatedError) Error() string {
	return fmt.Sprintf("schema is outdated: %d (in db) < %d (latest)", e.Current, e.Latest)
}

func (e *OutdatedError) Unwrap() error {
	return ErrOutdated
}
