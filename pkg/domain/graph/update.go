package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"reflect"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/geoflow/geoflow/pkg/domain"
	kdb "github.com/geoflow/geoflow/pkg/domain/graph/db"
	"github.com/geoflow/geoflow/pkg/domain/integrity"
	xe "github.com/geoflow/geoflow/pkg/errors"
)

func (g *graph) Update(ctx context.Context, kind domain.Kind, id int64, patch []byte) (domain.Entity, error) {
	return mutate(ctx, g, kind, "update", func(tx kdb.Tx) (domain.Entity, error) {
		e, err := g.update(ctx, tx, kind, id, patch)
		if err != nil {
			return nil, err
		}
		g.logger.Infof("updated %s#%d", kind, id)
		return e, nil
	})
}

func (g *graph) update(ctx context.Context, tx kdb.Tx, kind domain.Kind, id int64, patch []byte) (domain.Entity, error) {
	cur, err := tx.Get(ctx, kind, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(patch, &fields); err != nil {
		return nil, domain.NewValidationError(kind, "", nil, "patch should be a json object")
	}

	orig, err := json.Marshal(cur)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	merged, err := jsonpatch.MergePatch(orig, patch)
	if err != nil {
		return nil, domain.NewValidationError(kind, "", nil, "malformed patch: "+err.Error())
	}

	next := kind.New()
	if err := decode(kind, merged, next); err != nil {
		return nil, err
	}
	if err := immutables(kind, orig, next); err != nil {
		return nil, err
	}

	obsolete := []domain.Ref{}
	if p, ok := next.(domain.Process); ok {
		if obsolete, err = g.replaceSchedules(ctx, tx, p, cur.(domain.Process).Link(), fields); err != nil {
			return nil, err
		}
	}

	if err := g.validator.Validate(ctx, tx, next); err != nil {
		return nil, err
	}
	if err := tx.Update(ctx, next); err != nil {
		return nil, err
	}
	if len(obsolete) != 0 {
		plan, err := integrity.Delete(ctx, tx, obsolete...)
		if err != nil {
			return nil, err
		}
		g.logPlan(plan)
	}
	return next, nil
}

// immutables checks that immutable columns of next are not changed from orig (json encoded).
func immutables(kind domain.Kind, orig []byte, next domain.Entity) error {
	after, err := json.Marshal(next)
	if err != nil {
		return xe.Wrap(err)
	}
	var o, a map[string]any
	if err := unmarshalNumber(orig, &o); err != nil {
		return err
	}
	if err := unmarshalNumber(after, &a); err != nil {
		return err
	}

	for _, col := range domain.ImmutableColumns(kind) {
		if !reflect.DeepEqual(o[col], a[col]) {
			return domain.NewValidationError(kind, col, a[col], "is immutable")
		}
	}
	return nil
}

func unmarshalNumber(b []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return xe.Wrap(err)
	}
	return nil
}

// replaceSchedules applies "schedule" and "automatic_schedule" in the patch to the process.
//
// A new row replaces the owned row, and null detaches it.
//
// # Returns
//
// - []domain.Ref: owned schedules which are no longer referred by the process.
// They should be deleted after the process is updated.
//
// - error
func (g *graph) replaceSchedules(ctx context.Context, tx kdb.Tx, p domain.Process, before *domain.ProcessLink, fields map[string]json.RawMessage) ([]domain.Ref, error) {
	link := p.Link()
	kind := p.Kind()

	var comp processComposite
	for _, key := range []string{"schedule", "automatic_schedule"} {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		if _, ok := fields[key+"_id"]; ok {
			return nil, domain.NewValidationError(kind, key, nil, "can not be given with "+key+"_id")
		}
		if string(bytes.TrimSpace(raw)) != "null" {
			continue
		}
		// detach
		switch key {
		case "schedule":
			link.ScheduleId = nil
		case "automatic_schedule":
			link.AutomaticScheduleId = nil
		}
	}

	if err := decode(kind, marshalFields(fields, "schedule", "automatic_schedule"), &comp); err != nil {
		return nil, err
	}
	if comp.Schedule != nil {
		link.ScheduleId = nil
	}
	if comp.AutomaticSchedule != nil {
		link.AutomaticScheduleId = nil
	}
	if err := g.attachSchedules(ctx, tx, p, comp); err != nil {
		return nil, err
	}

	obsolete := []domain.Ref{}
	if changed(before.ScheduleId, link.ScheduleId) {
		obsolete = append(obsolete, domain.Ref{Kind: domain.KindSchedule, Id: *before.ScheduleId})
	}
	if changed(before.AutomaticScheduleId, link.AutomaticScheduleId) {
		obsolete = append(obsolete, domain.Ref{Kind: domain.KindAutomaticSchedule, Id: *before.AutomaticScheduleId})
	}
	return obsolete, nil
}

// changed reports whether a non-null reference before is replaced.
func changed(before, after *int64) bool {
	return before != nil && (after == nil || *after != *before)
}

func marshalFields(fields map[string]json.RawMessage, keys ...string) []byte {
	sub := map[string]json.RawMessage{}
	for _, k := range keys {
		if v, ok := fields[k]; ok {
			sub[k] = v
		}
	}
	b, _ := json.Marshal(sub)
	return b
}
