package db

import (
	"context"

	"github.com/geoflow/geoflow/pkg/domain"
)

// Query selects rows of a kind.
//
// Empty Query selects all rows.
type Query struct {
	// Column is compared with Ids.
	//
	// It should be "id" or a foreign key column.
	// For an array column, rows having any of Ids are selected.
	Column string
	Ids    []int64

	// Name selects rows having the name. Only for named kinds.
	Name *string
}

// ById is a Query selecting rows by ids.
func ById(ids ...int64) Query {
	return Query{Column: "id", Ids: ids}
}

// ByRef is a Query selecting rows whose column refers any of ids.
func ByRef(column string, ids ...int64) Query {
	return Query{Column: column, Ids: ids}
}

type Reader interface {
	// Get a row.
	//
	// # Returns
	//
	// - domain.Entity: the row. Its concrete type is `kind.New()`.
	//
	// - error: *domain.NotFoundError when the row does not exist.
	Get(ctx context.Context, kind domain.Kind, id int64) (domain.Entity, error)

	// Find rows matching the query, sorted by id.
	Find(ctx context.Context, kind domain.Kind, q Query) ([]domain.Entity, error)
}

// Tx is a serializable transaction on the entity graph.
//
// Foreign keys, name uniqueness and 1:1 children are checked at commit.
// When they are violated or a row read/written in the transaction is changed by others,
// Commit returns *domain.ConflictError and nothing is written.
type Tx interface {
	Reader

	// Insert a row. The id of the entity is assigned.
	Insert(ctx context.Context, e domain.Entity) error

	// Update a row. It returns *domain.NotFoundError when the row does not exist.
	Update(ctx context.Context, e domain.Entity) error

	// Delete rows of the kind. Missing ids are ignored.
	//
	// # Returns
	//
	// - int: number of rows deleted.
	//
	// - error
	Delete(ctx context.Context, kind domain.Kind, ids []int64) (int, error)

	Commit(ctx context.Context) error

	// Rollback the transaction. It is safe to call after Commit.
	Rollback(ctx context.Context) error
}

type Database interface {
	Begin(ctx context.Context) (Tx, error)
	Close()
}

// InTx runs f in a transaction of d.
//
// When f returns nil, the transaction is committed. Otherwise rolled back.
func InTx[T any](ctx context.Context, d Database, f func(Tx) (T, error)) (T, error) {
	var zero T
	tx, err := d.Begin(ctx)
	if err != nil {
		return zero, err
	}
	defer tx.Rollback(ctx)

	t, err := f(tx)
	if err != nil {
		return zero, err
	}
	if err := tx.Commit(ctx); err != nil {
		return zero, err
	}
	return t, nil
}

// Read runs f in a transaction of d which is always rolled back.
func Read[T any](ctx context.Context, d Database, f func(Reader) (T, error)) (T, error) {
	tx, err := d.Begin(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	defer tx.Rollback(ctx)
	return f(tx)
}
