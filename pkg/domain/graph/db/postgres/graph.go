// Package postgres stores the entity graph in PostgreSQL.
//
// Each kind has its own table, whose columns are named after json fields of the entity.
// Rows are read with row_to_json and written with jsonb_populate_record,
// so the json encoding of entities is the only mapping between Go and SQL.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	kpool "github.com/geoflow/geoflow/pkg/conn/db/postgres/pool"
	pgerrors "github.com/geoflow/geoflow/pkg/db/postgres/errors"
	"github.com/geoflow/geoflow/pkg/domain"
	kdb "github.com/geoflow/geoflow/pkg/domain/graph/db"
	xe "github.com/geoflow/geoflow/pkg/errors"
	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"
)

type pgGraph struct {
	pool   kpool.Pool
	schema string
}

type Option func(*pgGraph) *pgGraph

// WithSchema sets the postgres schema where tables live.
//
// Default: "public"
func WithSchema(name string) Option {
	return func(g *pgGraph) *pgGraph {
		g.schema = name
		return g
	}
}

func New(pool kpool.Pool, options ...Option) kdb.Database {
	g := &pgGraph{pool: pool, schema: "public"}
	for _, o := range options {
		g = o(g)
	}
	return g
}

func (g *pgGraph) Begin(ctx context.Context) (kdb.Tx, error) {
	tx, err := g.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return nil, xe.Wrap(err)
	}
	return &pgTx{tx: tx, schema: g.schema}, nil
}

func (g *pgGraph) Close() {
	g.pool.Close()
}

type pgTx struct {
	tx     kpool.Tx
	schema string
}

func (t *pgTx) table(k domain.Kind) string {
	return pgx.Identifier{t.schema, string(k)}.Sanitize()
}

func quote(column string) string {
	return pgx.Identifier{column}.Sanitize()
}

// columns of the table except "id".
func columns(k domain.Kind) []string {
	cols := []string{}
	for _, c := range domain.Columns(k) {
		if c == "id" {
			continue
		}
		cols = append(cols, quote(c))
	}
	return cols
}

func (t *pgTx) Get(ctx context.Context, k domain.Kind, id int64) (domain.Entity, error) {
	found, err := t.query(ctx, k, `"id" = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, domain.NewNotFoundError(k, id)
	}
	return found[0], nil
}

func (t *pgTx) Find(ctx context.Context, k domain.Kind, q kdb.Query) ([]domain.Entity, error) {
	conds := []string{}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.Name != nil {
		if _, ok := k.New().(domain.Named); !ok {
			return nil, fmt.Errorf("%w: %s does not have name", domain.ErrInvalid, k)
		}
		conds = append(conds, `"name" = `+arg(*q.Name))
	}

	switch q.Column {
	case "":
	case "id":
		conds = append(conds, `"id" = ANY(`+arg(q.Ids)+`)`)
	default:
		edge, ok := domain.EdgeOf(k, q.Column)
		if !ok {
			return nil, fmt.Errorf("%w: %s.%s is not a foreign key", domain.ErrInvalid, k, q.Column)
		}
		if edge.Many {
			conds = append(conds, quote(q.Column)+` && `+arg(q.Ids)+`::bigint[]`)
		} else {
			conds = append(conds, quote(q.Column)+` = ANY(`+arg(q.Ids)+`)`)
		}
	}

	where := "true"
	if len(conds) != 0 {
		where = strings.Join(conds, " AND ")
	}
	return t.query(ctx, k, where, args...)
}

func (t *pgTx) query(ctx context.Context, k domain.Kind, where string, args ...any) ([]domain.Entity, error) {
	rows, err := t.tx.Query(
		ctx,
		fmt.Sprintf(
			`SELECT row_to_json("t")::jsonb FROM %s AS "t" WHERE %s ORDER BY "t"."id"`,
			t.table(k), where,
		),
		args...,
	)
	if err != nil {
		return nil, pgerrors.Classify(k, err)
	}
	defer rows.Close()

	found := []domain.Entity{}
	for rows.Next() {
		var j pgtype.JSONB
		if err := rows.Scan(&j); err != nil {
			return nil, xe.Wrap(err)
		}
		e := k.New()
		if err := json.Unmarshal(j.Bytes, e); err != nil {
			return nil, xe.WrapWithNote(string(k), err)
		}
		found = append(found, e)
	}
	if err := rows.Err(); err != nil {
		return nil, pgerrors.Classify(k, err)
	}
	return found, nil
}

func asJSONB(e domain.Entity) (pgtype.JSONB, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return pgtype.JSONB{}, xe.Wrap(err)
	}
	return pgtype.JSONB{Bytes: b, Status: pgtype.Present}, nil
}

func (t *pgTx) Insert(ctx context.Context, e domain.Entity) error {
	k := e.Kind()
	j, err := asJSONB(e)
	if err != nil {
		return err
	}
	cols := strings.Join(columns(k), ", ")

	var id int64
	if err := t.tx.QueryRow(
		ctx,
		fmt.Sprintf(
			`INSERT INTO %[1]s (%[2]s) SELECT %[2]s FROM jsonb_populate_record(null::%[1]s, $1) RETURNING "id"`,
			t.table(k), cols,
		),
		j,
	).Scan(&id); err != nil {
		return pgerrors.Classify(k, err)
	}
	e.SetIdentity(id)
	return nil
}

func (t *pgTx) Update(ctx context.Context, e domain.Entity) error {
	k := e.Kind()
	j, err := asJSONB(e)
	if err != nil {
		return err
	}
	cols := strings.Join(columns(k), ", ")

	tag, err := t.tx.Exec(
		ctx,
		fmt.Sprintf(
			`UPDATE %[1]s SET (%[2]s) = (SELECT %[2]s FROM jsonb_populate_record(null::%[1]s, $1)) WHERE "id" = $2`,
			t.table(k), cols,
		),
		j, e.Identity(),
	)
	if err != nil {
		return pgerrors.Classify(k, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError(k, e.Identity())
	}
	return nil
}

func (t *pgTx) Delete(ctx context.Context, k domain.Kind, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := t.tx.Exec(
		ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE "id" = ANY($1)`, t.table(k)),
		ids,
	)
	if err != nil {
		return 0, pgerrors.Classify(k, err)
	}
	return int(tag.RowsAffected()), nil
}

func (t *pgTx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return pgerrors.Classify(kindOf(err), err)
	}
	return nil
}

func (t *pgTx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if err == nil || err == pgx.ErrTxClosed {
		return nil
	}
	return xe.Wrap(err)
}

// kindOf guesses the kind which caused a commit error from its table name.
func kindOf(err error) domain.Kind {
	table, ok := pgerrors.TableOf(err)
	if !ok {
		return ""
	}
	k, err := domain.AsKind(table)
	if err != nil {
		return ""
	}
	return k
}
