// Package validation checks entities before they are written.
//
// Checks are done in phases, and the first failing phase is reported:
//
// 1. field constraints declared with `validate` struct tags, including catalog enums.
//
// 2. foreign keys: referenced rows should exist.
//
// 3. per kind rules: compatibility of referenced rows, schedule discriminator of processes, and so on.
//
// 4. name uniqueness, 1:1 children, and single owner of schedules.
//
// Validation never writes. Uniqueness and references are checked again by the store at commit.
package validation

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/geoflow/geoflow/pkg/domain"
	kdb "github.com/geoflow/geoflow/pkg/domain/graph/db"
	"github.com/go-playground/validator/v10"
)

// Validator validates entities.
type Validator struct {
	validate *validator.Validate
}

// New creates a Validator with catalog enums registered as tags.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	for tag, pred := range domain.Enums() {
		if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return pred(asString(fl.Field()))
		}); err != nil {
			panic(fmt.Sprintf("failed to register validation %s: %s", tag, err))
		}
	}
	return &Validator{validate: v}
}

func asString(v reflect.Value) string {
	switch v.Kind() {
	case reflect.String:
		return v.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10)
	}
	return fmt.Sprint(v.Interface())
}

var defaultValidator = sync.OnceValue(New)

// Validate validates e with the default Validator.
func Validate(ctx context.Context, r kdb.Reader, e domain.Entity) error {
	return defaultValidator().Validate(ctx, r, e)
}

// Validate validates e against the rows visible in r.
//
// e may be a new row (id is 0) or an updated row.
//
// # Returns
//
// - error: nil if e is valid. Otherwise one of
// *domain.ValidationError, *domain.RangeError, *domain.ConflictingScheduleError or *domain.ForeignKeyError.
// Errors from r are returned as they are.
func (v *Validator) Validate(ctx context.Context, r kdb.Reader, e domain.Entity) error {
	if err := v.Fields(e); err != nil {
		return err
	}
	if err := References(ctx, r, e); err != nil {
		return err
	}
	if err := rules(ctx, r, e); err != nil {
		return err
	}
	if err := Unique(ctx, r, e); err != nil {
		return err
	}
	return nil
}

// Fields checks constraints declared in struct tags. It does not read any rows.
func (v *Validator) Fields(e domain.Entity) error {
	err := v.validate.Struct(e)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	items := make([]domain.ValidationItem, 0, len(verrs))
	for _, fe := range verrs {
		items = append(items, domain.ValidationItem{
			Path:    pathOf(fe.Namespace()),
			Value:   fe.Value(),
			Message: messageOf(fe),
		})
	}
	return &domain.ValidationError{Kind: e.Kind(), Items: items}
}

// pathOf converts a namespace like "Collector.ProcessLink.schedule_type" into a json path "schedule_type".
//
// Segments of embedded structs, which are named in Go style, are dropped.
func pathOf(namespace string) string {
	segs := strings.Split(namespace, ".")
	path := []string{}
	for _, s := range segs[1:] {
		if s == "" || ('A' <= s[0] && s[0] <= 'Z') {
			continue
		}
		path = append(path, s)
	}
	return strings.Join(path, ".")
}

var enumTags = domain.Enums()

func messageOf(fe validator.FieldError) string {
	tag, param := fe.Tag(), fe.Param()
	switch tag {
	case "required":
		return "is required"
	case "min", "gte":
		return "should be at least " + param
	case "max", "lte":
		return "should be at most " + param
	case "gt":
		return "should be greater than " + param
	case "lt":
		return "should be less than " + param
	case "gtfield":
		return "should be greater than " + param
	}
	if _, ok := enumTags[tag]; ok {
		return "is not a valid " + tag
	}
	if param != "" {
		return fmt.Sprintf("should satisfy %s=%s", tag, param)
	}
	return "should be " + tag
}

// References checks that every non-null foreign key points an existing row.
func References(ctx context.Context, r kdb.Reader, e domain.Entity) error {
	for _, ref := range domain.References(e) {
		if len(ref.Ids) == 0 {
			continue
		}
		found, err := r.Find(ctx, ref.To, kdb.ById(ref.Ids...))
		if err != nil {
			return err
		}
		if len(found) == len(uniq(ref.Ids)) {
			continue
		}
		exists := map[int64]bool{}
		for _, f := range found {
			exists[f.Identity()] = true
		}
		for _, id := range ref.Ids {
			if exists[id] {
				continue
			}
			return &domain.ForeignKeyError{
				Kind:   e.Kind(),
				Column: ref.Column,
				Target: domain.Ref{Kind: ref.To, Id: id},
				Reason: "not found",
			}
		}
	}
	return nil
}

func uniq(ids []int64) map[int64]struct{} {
	m := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}

// Unique checks name uniqueness and 1:1 children.
//
// The row itself (same id) is not counted.
func Unique(ctx context.Context, r kdb.Reader, e domain.Entity) error {
	k := e.Kind()

	if u, ok := domain.UniqueName(k); ok {
		if named, ok := e.(domain.Named); ok {
			name := named.EntityName()
			q := kdb.Query{Name: &name}
			if u.Scope != "" {
				scope, _ := domain.ReferenceOf(e, u.Scope)
				q.Column, q.Ids = u.Scope, scope.Ids
			}
			found, err := r.Find(ctx, k, q)
			if err != nil {
				return err
			}
			if others(found, e) {
				msg := "already exists"
				if u.Scope != "" {
					msg = "already exists in the same " + strings.TrimSuffix(u.Scope, "_id")
				}
				return domain.NewValidationError(k, "name", name, msg)
			}
		}
	}

	if column, ok := domain.SingularBy(k); ok {
		parent, _ := domain.ReferenceOf(e, column)
		if len(parent.Ids) != 0 {
			found, err := r.Find(ctx, k, kdb.ByRef(column, parent.Ids...))
			if err != nil {
				return err
			}
			if others(found, e) {
				return domain.NewValidationError(
					k, column, parent.Ids[0],
					fmt.Sprintf("%s#%d already has %s", parent.To, parent.Ids[0], k),
				)
			}
		}
	}

	for _, owned := range domain.EdgesFrom(k) {
		if !owned.Owned {
			continue
		}
		ref, _ := domain.ReferenceOf(e, owned.Column)
		if len(ref.Ids) == 0 {
			continue
		}
		for _, owner := range domain.OwnersOf(owned.To) {
			found, err := r.Find(ctx, owner.From, kdb.ByRef(owner.Column, ref.Ids...))
			if err != nil {
				return err
			}
			for _, f := range found {
				if f.Kind() == k && e.Identity() != 0 && f.Identity() == e.Identity() {
					continue
				}
				return domain.NewValidationError(
					k, owned.Column, ref.Ids[0],
					fmt.Sprintf("%s#%d is already owned by %s#%d", owned.To, ref.Ids[0], f.Kind(), f.Identity()),
				)
			}
		}
	}
	return nil
}

func others(found []domain.Entity, self domain.Entity) bool {
	for _, f := range found {
		if self.Identity() == 0 || f.Identity() != self.Identity() {
			return true
		}
	}
	return false
}
