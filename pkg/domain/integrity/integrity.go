// Package integrity plans and applies deletions along the edge table.
//
// Deleting a row deletes its CASCADE referrers and the rows it owns, transitively.
// RESTRICT referrers outside of the deleted set block the deletion,
// and SET NULL referrers outside of the set lose the reference
// unless it leaves an array column empty.
package integrity

import (
	"context"
	"slices"

	"github.com/geoflow/geoflow/pkg/domain"
	kdb "github.com/geoflow/geoflow/pkg/domain/graph/db"
	xe "github.com/geoflow/geoflow/pkg/errors"
	"k8s.io/apimachinery/pkg/util/sets"
)

// Nullify clears references from a row surviving the deletion.
type Nullify struct {
	Row    domain.Ref `json:"row"`
	Column string     `json:"column"`
	// referenced ids to be dropped.
	Ids []int64 `json:"ids"`
}

// Deletion is rows of a kind to be deleted.
type Deletion struct {
	Kind domain.Kind `json:"kind"`
	Ids  []int64     `json:"ids"`
}

// Plan is the result of planning a deletion.
type Plan struct {
	Roots []domain.Ref `json:"roots"`

	// Nullify steps, applied before Delete.
	Nullify []Nullify `json:"nullify"`

	// Delete steps, in the order of domain.DeletionOrder.
	Delete []Deletion `json:"delete"`
}

// Count returns number of rows to be deleted.
func (p Plan) Count() int {
	n := 0
	for _, d := range p.Delete {
		n += len(d.Ids)
	}
	return n
}

// Has reports whether the plan deletes the row.
func (p Plan) Has(ref domain.Ref) bool {
	for _, d := range p.Delete {
		if d.Kind == ref.Kind && slices.Contains(d.Ids, ref.Id) {
			return true
		}
	}
	return false
}

type closure map[domain.Kind]sets.Set[int64]

func (c closure) add(k domain.Kind, ids ...int64) []int64 {
	s, ok := c[k]
	if !ok {
		s = sets.New[int64]()
		c[k] = s
	}
	added := []int64{}
	for _, id := range ids {
		if s.Has(id) {
			continue
		}
		s.Insert(id)
		added = append(added, id)
	}
	return added
}

func (c closure) has(ref domain.Ref) bool {
	s, ok := c[ref.Kind]
	return ok && s.Has(ref.Id)
}

// PlanDelete computes what happens when roots are deleted.
//
// It does not write anything.
//
// # Returns
//
// - Plan
//
// - error: *domain.NotFoundError when a root does not exist.
// *domain.RestrictedDeleteError when a row outside of the deleted set refers a deleted row
// with a RESTRICT edge, or when all elements of its array column would be removed.
func PlanDelete(ctx context.Context, r kdb.Reader, roots ...domain.Ref) (Plan, error) {
	set := closure{}

	frontier := map[domain.Kind][]int64{}
	for _, root := range roots {
		if _, err := r.Get(ctx, root.Kind, root.Id); err != nil {
			return Plan{}, err
		}
		frontier[root.Kind] = append(frontier[root.Kind], set.add(root.Kind, root.Id)...)
	}

	for len(frontier) != 0 {
		next := map[domain.Kind][]int64{}
		push := func(k domain.Kind, ids ...int64) {
			next[k] = append(next[k], set.add(k, ids...)...)
		}

		for _, k := range sortedKinds(frontier) {
			ids := frontier[k]
			if len(ids) == 0 {
				continue
			}

			for _, e := range domain.EdgesTo(k) {
				if e.OnDelete != domain.Cascade {
					continue
				}
				referrers, err := r.Find(ctx, e.From, kdb.ByRef(e.Column, ids...))
				if err != nil {
					return Plan{}, xe.WrapWithNote(e.String(), err)
				}
				for _, ref := range referrers {
					push(e.From, ref.Identity())
				}
			}

			owned := slices.DeleteFunc(domain.EdgesFrom(k), func(e domain.Edge) bool { return !e.Owned })
			if len(owned) == 0 {
				continue
			}
			rows, err := r.Find(ctx, k, kdb.ById(ids...))
			if err != nil {
				return Plan{}, err
			}
			for _, row := range rows {
				for _, e := range owned {
					ref, ok := domain.ReferenceOf(row, e.Column)
					if !ok {
						continue
					}
					push(e.To, ref.Ids...)
				}
			}
		}

		frontier = map[domain.Kind][]int64{}
		for k, ids := range next {
			if len(ids) != 0 {
				frontier[k] = ids
			}
		}
	}

	plan := Plan{Roots: slices.Clone(roots)}

	for _, k := range sortedKinds(set) {
		ids := sets.List(set[k])
		for _, e := range domain.EdgesTo(k) {
			if e.OnDelete == domain.Cascade {
				continue
			}
			referrers, err := r.Find(ctx, e.From, kdb.ByRef(e.Column, ids...))
			if err != nil {
				return Plan{}, xe.WrapWithNote(e.String(), err)
			}
			for _, referrer := range referrers {
				from := domain.Ref{Kind: e.From, Id: referrer.Identity()}
				if set.has(from) {
					continue
				}
				ref, _ := domain.ReferenceOf(referrer, e.Column)
				targets := slices.DeleteFunc(slices.Clone(ref.Ids), func(id int64) bool { return !set[k].Has(id) })
				if len(targets) == 0 {
					continue
				}

				restrict := e.OnDelete == domain.Restrict
				if e.Many && !slices.ContainsFunc(ref.Ids, func(id int64) bool { return !set[k].Has(id) }) {
					// an emptied array is not a valid reference.
					restrict = true
				}

				switch {
				case restrict:
					return Plan{}, &domain.RestrictedDeleteError{
						Blocker: from,
						Column:  e.Column,
						Target:  domain.Ref{Kind: k, Id: targets[0]},
					}
				case e.OnDelete == domain.SetNull:
					plan.Nullify = append(plan.Nullify, Nullify{Row: from, Column: e.Column, Ids: targets})
				}
			}
		}
	}

	for _, k := range domain.DeletionOrder() {
		s, ok := set[k]
		if !ok || s.Len() == 0 {
			continue
		}
		plan.Delete = append(plan.Delete, Deletion{Kind: k, Ids: sets.List(s)})
	}

	return plan, nil
}

// Apply executes the plan in tx.
//
// Rows to be nullified are read again in tx, so the plan should be made in the same transaction.
func Apply(ctx context.Context, tx kdb.Tx, plan Plan) error {
	for _, n := range plan.Nullify {
		row, err := tx.Get(ctx, n.Row.Kind, n.Row.Id)
		if err != nil {
			return err
		}
		if !domain.Unreference(row, n.Column, n.Ids) {
			continue
		}
		if err := tx.Update(ctx, row); err != nil {
			return err
		}
	}

	for _, d := range plan.Delete {
		if _, err := tx.Delete(ctx, d.Kind, d.Ids); err != nil {
			return err
		}
	}
	return nil
}

// Delete plans and applies deletion of roots in tx.
func Delete(ctx context.Context, tx kdb.Tx, roots ...domain.Ref) (Plan, error) {
	plan, err := PlanDelete(ctx, tx, roots...)
	if err != nil {
		return Plan{}, err
	}
	if err := Apply(ctx, tx, plan); err != nil {
		return Plan{}, err
	}
	return plan, nil
}

func sortedKinds[V any](m map[domain.Kind]V) []domain.Kind {
	ks := make([]domain.Kind, 0, len(m))
	for k := range m {
		ks = append(ks, k)
	}
	slices.Sort(ks)
	return ks
}
