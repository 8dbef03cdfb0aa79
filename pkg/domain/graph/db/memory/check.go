package memory

import (
	"fmt"
	"slices"

	"github.com/geoflow/geoflow/pkg/domain"
)

// merged is the state after commit: committed rows overlaid by writes.
//
// It should be used while the store is locked.
type merged struct {
	store  *Store
	writes map[domain.Ref]*write
}

func (m merged) lookup(k domain.Kind, id int64) ([]byte, bool) {
	if w, ok := m.writes[domain.Ref{Kind: k, Id: id}]; ok {
		return w.data, w.data != nil
	}
	r, ok := m.store.tables[k][id]
	return r.data, ok
}

func (m merged) exists(k domain.Kind, id int64) bool {
	_, ok := m.lookup(k, id)
	return ok
}

func (m merged) each(k domain.Kind, f func(domain.Entity) error) error {
	seen := map[int64]struct{}{}
	visit := func(id int64) error {
		if _, ok := seen[id]; ok {
			return nil
		}
		seen[id] = struct{}{}
		b, ok := m.lookup(k, id)
		if !ok {
			return nil
		}
		e, err := decode(k, b)
		if err != nil {
			return err
		}
		return f(e)
	}
	for id := range m.store.tables[k] {
		if err := visit(id); err != nil {
			return err
		}
	}
	for ref := range m.writes {
		if ref.Kind != k {
			continue
		}
		if err := visit(ref.Id); err != nil {
			return err
		}
	}
	return nil
}

func (m merged) check() error {
	deleted := map[domain.Kind][]int64{}
	written := []domain.Entity{}

	refs := make([]domain.Ref, 0, len(m.writes))
	for ref := range m.writes {
		refs = append(refs, ref)
	}
	slices.SortFunc(refs, func(a, b domain.Ref) int {
		if a.Kind != b.Kind {
			if a.Kind < b.Kind {
				return -1
			}
			return 1
		}
		return int(a.Id - b.Id)
	})

	for _, ref := range refs {
		w := m.writes[ref]
		if w.data == nil {
			deleted[ref.Kind] = append(deleted[ref.Kind], ref.Id)
			continue
		}
		e, err := decode(ref.Kind, w.data)
		if err != nil {
			return err
		}
		written = append(written, e)
	}

	for _, e := range written {
		if err := m.checkReferences(e); err != nil {
			return err
		}
		if err := m.checkUnique(e); err != nil {
			return err
		}
		if err := m.checkSingular(e); err != nil {
			return err
		}
		if err := m.checkOwner(e); err != nil {
			return err
		}
	}

	for kind, ids := range deleted {
		if err := m.checkDangling(kind, ids); err != nil {
			return err
		}
	}
	return nil
}

func (m merged) checkReferences(e domain.Entity) error {
	for _, r := range domain.References(e) {
		for _, id := range r.Ids {
			if !m.exists(r.To, id) {
				return &domain.ConflictError{
					Kind: e.Kind(),
					Reason: fmt.Sprintf(
						"%s#%d.%s refers %s#%d, which does not exist",
						e.Kind(), e.Identity(), r.Column, r.To, id,
					),
				}
			}
		}
	}
	return nil
}

func (m merged) checkUnique(e domain.Entity) error {
	u, ok := domain.UniqueName(e.Kind())
	if !ok {
		return nil
	}
	named := e.(domain.Named)
	scope := scopeOf(e, u.Scope)

	return m.each(e.Kind(), func(o domain.Entity) error {
		if o.Identity() == e.Identity() {
			return nil
		}
		if o.(domain.Named).EntityName() != named.EntityName() || !slices.Equal(scopeOf(o, u.Scope), scope) {
			return nil
		}
		return &domain.ConflictError{
			Kind:   e.Kind(),
			Reason: fmt.Sprintf("name %q is already used", named.EntityName()),
		}
	})
}

func scopeOf(e domain.Entity, column string) []int64 {
	if column == "" {
		return nil
	}
	r, _ := domain.ReferenceOf(e, column)
	return r.Ids
}

func (m merged) checkSingular(e domain.Entity) error {
	column, ok := domain.SingularBy(e.Kind())
	if !ok {
		return nil
	}
	parent := scopeOf(e, column)
	return m.each(e.Kind(), func(o domain.Entity) error {
		if o.Identity() == e.Identity() || !slices.Equal(scopeOf(o, column), parent) {
			return nil
		}
		return &domain.ConflictError{
			Kind:   e.Kind(),
			Reason: fmt.Sprintf("%s %v already has %s", column, parent, e.Kind()),
		}
	})
}

func (m merged) checkOwner(e domain.Entity) error {
	for _, owned := range domain.EdgesFrom(e.Kind()) {
		if !owned.Owned {
			continue
		}
		ids := scopeOf(e, owned.Column)
		if len(ids) == 0 {
			continue
		}
		for _, owner := range domain.OwnersOf(owned.To) {
			err := m.each(owner.From, func(o domain.Entity) error {
				if o.Kind() == e.Kind() && o.Identity() == e.Identity() {
					return nil
				}
				if !slices.ContainsFunc(scopeOf(o, owner.Column), func(id int64) bool { return slices.Contains(ids, id) }) {
					return nil
				}
				return &domain.ConflictError{
					Kind: e.Kind(),
					Reason: fmt.Sprintf(
						"%s %v is owned by both of %s#%d and %s#%d",
						owned.To, ids, e.Kind(), e.Identity(), o.Kind(), o.Identity(),
					),
				}
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (m merged) checkDangling(kind domain.Kind, ids []int64) error {
	for _, edge := range domain.EdgesTo(kind) {
		err := m.each(edge.From, func(o domain.Entity) error {
			r, _ := domain.ReferenceOf(o, edge.Column)
			for _, id := range r.Ids {
				if slices.Contains(ids, id) {
					return &domain.ConflictError{
						Kind: kind,
						Reason: fmt.Sprintf(
							"%s#%d is deleted, but %s#%d.%s still refers it",
							kind, id, o.Kind(), o.Identity(), edge.Column,
						),
					}
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}
