package cmp_test

import (
	"testing"

	"github.com/geoflow/geoflow/pkg/cmp"
	"github.com/geoflow/geoflow/pkg/domain"
	"github.com/geoflow/geoflow/pkg/utils/pointer"
)

func TestSliceEq(t *testing.T) {
	a := []domain.Ref{{Kind: domain.KindProject, Id: 1}, {Kind: domain.KindCollector, Id: 2}}

	for name, testcase := range map[string]struct {
		b    []domain.Ref
		then bool
	}{
		"same elements in same order": {
			b:    []domain.Ref{{Kind: domain.KindProject, Id: 1}, {Kind: domain.KindCollector, Id: 2}},
			then: true,
		},
		"same elements in other order": {
			b: []domain.Ref{{Kind: domain.KindCollector, Id: 2}, {Kind: domain.KindProject, Id: 1}},
		},
		"shorter": {
			b: []domain.Ref{{Kind: domain.KindProject, Id: 1}},
		},
		"nil": {},
	} {
		t.Run(name, func(t *testing.T) {
			if actual := cmp.SliceEq(a, testcase.b); actual != testcase.then {
				t.Errorf("SliceEq(%v, %v) = %v", a, testcase.b, actual)
			}
		})
	}

	t.Run("nil and empty are equal", func(t *testing.T) {
		if !cmp.SliceEq([]int64{}, nil) {
			t.Error("[] != nil")
		}
	})
}

func TestSliceContentEq(t *testing.T) {
	for name, testcase := range map[string]struct {
		a, b []int64
		then bool
	}{
		"ordering does not matter": {a: []int64{1, 2, 3}, b: []int64{3, 1, 2}, then: true},
		"duplicates are counted":   {a: []int64{1, 1, 2}, b: []int64{1, 2, 2}},
		"duplicates on both sides": {a: []int64{2, 1, 2}, b: []int64{2, 2, 1}, then: true},
		"missing element":          {a: []int64{1, 2}, b: []int64{1, 3}},
		"different length":         {a: []int64{1, 2}, b: []int64{1, 2, 2}},
		"empty":                    {then: true},
	} {
		t.Run(name, func(t *testing.T) {
			if actual := cmp.SliceContentEq(testcase.a, testcase.b); actual != testcase.then {
				t.Errorf("SliceContentEq(%v, %v) = %v", testcase.a, testcase.b, actual)
			}
		})
	}

	t.Run("with an equivalence across types", func(t *testing.T) {
		refs := []domain.Ref{{Kind: domain.KindView, Id: 4}, {Kind: domain.KindView, Id: 3}}
		ids := []int64{3, 4}
		if !cmp.SliceContentEqWith(refs, ids, func(r domain.Ref, id int64) bool { return r.Id == id }) {
			t.Errorf("%v and %v should be equivalent", refs, ids)
		}
	})
}

func TestMapEq(t *testing.T) {
	a := map[domain.Kind][]int64{domain.KindDataSeries: {1, 2}, domain.KindCollector: {3}}

	t.Run("with comparator", func(t *testing.T) {
		b := map[domain.Kind][]int64{domain.KindCollector: {3}, domain.KindDataSeries: {1, 2}}
		if !cmp.MapEqWith(a, b, cmp.SliceEq[int64]) {
			t.Errorf("%v != %v", a, b)
		}
		b[domain.KindCollector] = []int64{4}
		if cmp.MapEqWith(a, b, cmp.SliceEq[int64]) {
			t.Errorf("%v == %v", a, b)
		}
	})

	t.Run("missing key", func(t *testing.T) {
		x := map[string]int{"frequency": 5, "schedule": 0}
		y := map[string]int{"frequency": 5, "schedule_retry": 0}
		if cmp.MapEq(x, y) {
			t.Errorf("%v == %v", x, y)
		}
		if !cmp.MapEq(x, map[string]int{"schedule": 0, "frequency": 5}) {
			t.Errorf("%v != its copy", x)
		}
	})
}

func TestPEqEq(t *testing.T) {
	if !cmp.PEqEq[int64](nil, nil) {
		t.Error("nil != nil")
	}
	if cmp.PEqEq(pointer.Ref[int64](1), nil) {
		t.Error("1 == nil")
	}
	if !cmp.PEqEq(pointer.Ref(domain.KindAlert), pointer.Ref(domain.KindAlert)) {
		t.Error("pointee are not compared")
	}
}
