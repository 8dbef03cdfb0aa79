package domain

import (
	"reflect"
	"slices"
	"strings"
	"sync"
)

// Entity is a row of the graph.
//
// Foreign key fields are tagged with `ref:"<kind>"`.
// They should be one of int64 (required), *int64 (nullable) or []int64 (array column).
// The column name is taken from the json tag.
type Entity interface {
	Kind() Kind
	Identity() int64
	SetIdentity(int64)
}

// Identified is embedded in every entity.
type Identified struct {
	Id int64 `json:"id"`
}

func (i *Identified) Identity() int64 {
	return i.Id
}

func (i *Identified) SetIdentity(id int64) {
	i.Id = id
}

// Named entities have a name which is unique in its scope.
type Named interface {
	Entity
	EntityName() string
}

// Reference is a foreign key value of an entity.
type Reference struct {
	Column string
	To     Kind
	// Ids is empty when the reference is null.
	Ids []int64
}

type refField struct {
	index  []int
	column string
	to     Kind
	many   bool
	null   bool
}

var refFieldsCache sync.Map // reflect.Type -> []refField

func refFields(t reflect.Type) []refField {
	if v, ok := refFieldsCache.Load(t); ok {
		return v.([]refField)
	}

	var walk func(t reflect.Type, prefix []int) []refField
	walk = func(t reflect.Type, prefix []int) []refField {
		fields := []refField{}
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			index := append(slices.Clone(prefix), i)
			if f.Anonymous && f.Type.Kind() == reflect.Struct {
				fields = append(fields, walk(f.Type, index)...)
				continue
			}
			to, ok := f.Tag.Lookup("ref")
			if !ok {
				continue
			}
			column, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			rf := refField{index: index, column: column, to: Kind(to)}
			switch f.Type.Kind() {
			case reflect.Int64:
			case reflect.Pointer:
				rf.null = true
			case reflect.Slice:
				rf.many = true
			default:
				panic("ref tag on unsupported field: " + t.Name() + "." + f.Name)
			}
			fields = append(fields, rf)
		}
		return fields
	}

	fields := walk(t, nil)
	refFieldsCache.Store(t, fields)
	return fields
}

// References lists foreign key values of the entity, in field order.
func References(e Entity) []Reference {
	v := reflect.ValueOf(e).Elem()
	refs := []Reference{}
	for _, f := range refFields(v.Type()) {
		fv := v.FieldByIndex(f.index)
		r := Reference{Column: f.column, To: f.to}
		switch {
		case f.many:
			r.Ids = slices.Clone(fv.Interface().([]int64))
		case f.null:
			if !fv.IsNil() {
				r.Ids = []int64{fv.Elem().Int()}
			}
		default:
			if id := fv.Int(); id != 0 {
				r.Ids = []int64{id}
			}
		}
		refs = append(refs, r)
	}
	return refs
}

// ReferenceOf returns the foreign key value of the column.
//
// ok is false when the entity does not have such foreign key column.
func ReferenceOf(e Entity, column string) (ref Reference, ok bool) {
	for _, r := range References(e) {
		if r.Column == column {
			return r, true
		}
	}
	return Reference{}, false
}

// Unreference drops ids from the foreign key column of the entity.
//
// A nullable column becomes null when it points one of ids.
// An array column loses the elements in ids.
//
// # Returns
//
// - bool: true if the entity is changed.
//
// It panics when the column is a required (non-nullable) foreign key.
func Unreference(e Entity, column string, ids []int64) bool {
	v := reflect.ValueOf(e).Elem()
	for _, f := range refFields(v.Type()) {
		if f.column != column {
			continue
		}
		fv := v.FieldByIndex(f.index)
		switch {
		case f.many:
			cur := fv.Interface().([]int64)
			next := slices.DeleteFunc(slices.Clone(cur), func(id int64) bool { return slices.Contains(ids, id) })
			if len(next) == len(cur) {
				return false
			}
			fv.Set(reflect.ValueOf(next))
			return true
		case f.null:
			if fv.IsNil() || !slices.Contains(ids, fv.Elem().Int()) {
				return false
			}
			fv.Set(reflect.Zero(fv.Type()))
			return true
		default:
			panic("column " + column + " of " + string(e.Kind()) + " is not nullable")
		}
	}
	return false
}

// Columns returns the json names of the entity's stored fields.
func Columns(k Kind) []string {
	t := reflect.TypeOf(k.New()).Elem()
	var walk func(t reflect.Type) []string
	walk = func(t reflect.Type) []string {
		cols := []string{}
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if f.Anonymous && f.Type.Kind() == reflect.Struct {
				cols = append(cols, walk(f.Type)...)
				continue
			}
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "" || name == "-" {
				continue
			}
			cols = append(cols, name)
		}
		return cols
	}
	return walk(t)
}
