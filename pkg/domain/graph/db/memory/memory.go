// Package memory is an in-process implementation of the entity graph store.
//
// Transactions read a snapshot taken at Begin and buffer their writes.
// Commit validates them optimistically against the latest state:
// rows written in the transaction should not be changed by others since the snapshot,
// and names, 1:1 children and foreign keys are checked on the merged state.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/geoflow/geoflow/pkg/domain"
	kdb "github.com/geoflow/geoflow/pkg/domain/graph/db"
	xe "github.com/geoflow/geoflow/pkg/errors"
)

type row struct {
	data []byte
	rev  uint64
}

type table map[int64]row

// Store is a Database on memory. The zero value is not usable; use New.
type Store struct {
	mu     sync.RWMutex
	tables map[domain.Kind]table
	rev    uint64

	seqMu sync.Mutex
	seq   map[domain.Kind]int64
}

var _ kdb.Database = &Store{}

func New() *Store {
	return &Store{
		tables: map[domain.Kind]table{},
		seq:    map[domain.Kind]int64{},
	}
}

func (s *Store) nextId(k domain.Kind) int64 {
	s.seqMu.Lock()
	defer s.seqMu.Unlock()
	s.seq[k] += 1
	return s.seq[k]
}

func (s *Store) Begin(ctx context.Context) (kdb.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make(map[domain.Kind]table, len(s.tables))
	for k, t := range s.tables {
		c := make(table, len(t))
		for id, r := range t {
			c[id] = r
		}
		snapshot[k] = c
	}
	return &tx{store: s, snapshot: snapshot, writes: map[domain.Ref]*write{}}, nil
}

func (s *Store) Close() {}

// Len returns the number of rows of the kind.
func (s *Store) Len(k domain.Kind) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tables[k])
}

type write struct {
	// nil for deletion.
	data []byte

	// revision in the snapshot. 0 for newly inserted rows.
	base uint64
}

type tx struct {
	store    *Store
	snapshot map[domain.Kind]table
	writes   map[domain.Ref]*write
	closed   bool
}

func encode(e domain.Entity) ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	return b, nil
}

func decode(k domain.Kind, b []byte) (domain.Entity, error) {
	e := k.New()
	if err := json.Unmarshal(b, e); err != nil {
		return nil, xe.Wrap(err)
	}
	return e, nil
}

var errClosed = fmt.Errorf("transaction has been closed")

// lookup reads a row in the view of the transaction.
func (t *tx) lookup(k domain.Kind, id int64) ([]byte, bool) {
	if w, ok := t.writes[domain.Ref{Kind: k, Id: id}]; ok {
		return w.data, w.data != nil
	}
	r, ok := t.snapshot[k][id]
	return r.data, ok
}

// ids lists ids of the kind in the view of the transaction, sorted.
func (t *tx) ids(k domain.Kind) []int64 {
	ids := []int64{}
	for id := range t.snapshot[k] {
		if _, ok := t.lookup(k, id); ok {
			ids = append(ids, id)
		}
	}
	for ref, w := range t.writes {
		if ref.Kind != k || w.data == nil {
			continue
		}
		if _, ok := t.snapshot[k][ref.Id]; !ok {
			ids = append(ids, ref.Id)
		}
	}
	slices.Sort(ids)
	return ids
}

func (t *tx) Get(ctx context.Context, k domain.Kind, id int64) (domain.Entity, error) {
	if t.closed {
		return nil, errClosed
	}
	b, ok := t.lookup(k, id)
	if !ok {
		return nil, domain.NewNotFoundError(k, id)
	}
	return decode(k, b)
}

func (t *tx) Find(ctx context.Context, k domain.Kind, q kdb.Query) ([]domain.Entity, error) {
	if t.closed {
		return nil, errClosed
	}
	found := []domain.Entity{}
	for _, id := range t.ids(k) {
		b, _ := t.lookup(k, id)
		e, err := decode(k, b)
		if err != nil {
			return nil, err
		}
		ok, err := match(e, q)
		if err != nil {
			return nil, err
		}
		if ok {
			found = append(found, e)
		}
	}
	return found, nil
}

func match(e domain.Entity, q kdb.Query) (bool, error) {
	if q.Name != nil {
		n, ok := e.(domain.Named)
		if !ok {
			return false, fmt.Errorf("%w: %s does not have name", domain.ErrInvalid, e.Kind())
		}
		if n.EntityName() != *q.Name {
			return false, nil
		}
	}

	switch q.Column {
	case "":
		return true, nil
	case "id":
		return slices.Contains(q.Ids, e.Identity()), nil
	}

	r, ok := domain.ReferenceOf(e, q.Column)
	if !ok {
		return false, fmt.Errorf("%w: %s.%s is not a foreign key", domain.ErrInvalid, e.Kind(), q.Column)
	}
	for _, id := range r.Ids {
		if slices.Contains(q.Ids, id) {
			return true, nil
		}
	}
	return false, nil
}

func (t *tx) Insert(ctx context.Context, e domain.Entity) error {
	if t.closed {
		return errClosed
	}
	id := t.store.nextId(e.Kind())
	e.SetIdentity(id)
	b, err := encode(e)
	if err != nil {
		return err
	}
	t.writes[domain.Ref{Kind: e.Kind(), Id: id}] = &write{data: b}
	return nil
}

func (t *tx) Update(ctx context.Context, e domain.Entity) error {
	if t.closed {
		return errClosed
	}
	ref := domain.Ref{Kind: e.Kind(), Id: e.Identity()}
	if _, ok := t.lookup(ref.Kind, ref.Id); !ok {
		return domain.NewNotFoundError(ref.Kind, ref.Id)
	}
	b, err := encode(e)
	if err != nil {
		return err
	}
	t.put(ref, b)
	return nil
}

func (t *tx) put(ref domain.Ref, b []byte) {
	if w, ok := t.writes[ref]; ok {
		w.data = b
		return
	}
	t.writes[ref] = &write{data: b, base: t.snapshot[ref.Kind][ref.Id].rev}
}

func (t *tx) Delete(ctx context.Context, k domain.Kind, ids []int64) (int, error) {
	if t.closed {
		return 0, errClosed
	}
	n := 0
	for _, id := range ids {
		if _, ok := t.lookup(k, id); !ok {
			continue
		}
		t.put(domain.Ref{Kind: k, Id: id}, nil)
		n += 1
	}
	return n, nil
}

func (t *tx) Rollback(ctx context.Context) error {
	t.closed = true
	return nil
}

func (t *tx) Commit(ctx context.Context) error {
	if t.closed {
		return errClosed
	}
	t.closed = true
	if err := ctx.Err(); err != nil {
		return err
	}

	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for ref, w := range t.writes {
		if w.base == 0 {
			continue // inserted
		}
		cur, ok := s.tables[ref.Kind][ref.Id]
		if !ok || cur.rev != w.base {
			return &domain.ConflictError{
				Kind:   ref.Kind,
				Reason: fmt.Sprintf("%s is changed by another transaction", ref),
			}
		}
	}

	m := merged{store: s, writes: t.writes}
	if err := m.check(); err != nil {
		return err
	}

	for ref, w := range t.writes {
		tbl, ok := s.tables[ref.Kind]
		if !ok {
			tbl = table{}
			s.tables[ref.Kind] = tbl
		}
		if w.data == nil {
			delete(tbl, ref.Id)
			continue
		}
		s.rev += 1
		tbl[ref.Id] = row{data: w.data, rev: s.rev}
	}
	return nil
}
