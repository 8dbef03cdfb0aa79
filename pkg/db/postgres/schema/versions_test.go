package schema

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/geoflow/geoflow/pkg/cmp"
	schemadb "github.com/geoflow/geoflow/pkg/domain/schema/db"
	migrations "github.com/geoflow/geoflow/schema/postgres"
)

func TestListVersions(t *testing.T) {
	fsys := fstest.MapFS{
		"10/001.sql":       &fstest.MapFile{Data: []byte("SELECT 10;")},
		"2/001.sql":        &fstest.MapFile{Data: []byte("SELECT 2;")},
		"1/002_tables.sql": &fstest.MapFile{Data: []byte("SELECT 1;")},
		"1/001.sql":        &fstest.MapFile{Data: []byte("SELECT 1;")},
		"1/README.md":      &fstest.MapFile{Data: []byte("not a script")},
		"draft/001.sql":    &fstest.MapFile{Data: []byte("SELECT 'draft';")},
		"0/001.sql":        &fstest.MapFile{Data: []byte("SELECT 0;")},
		"3":                &fstest.MapFile{Data: []byte("not a directory")},
	}

	vs, err := listVersions(fsys)
	if err != nil {
		t.Fatal(err)
	}
	actual := []int{}
	for _, v := range vs {
		actual = append(actual, v.number)
	}
	if expected := []int{1, 2, 10}; !cmp.SliceEq(actual, expected) {
		t.Errorf("versions: %v, expected: %v", actual, expected)
	}

	scripts, err := vs[0].scripts(fsys)
	if err != nil {
		t.Fatal(err)
	}
	if expected := []string{"1/001.sql", "1/002_tables.sql"}; !cmp.SliceEq(scripts, expected) {
		t.Errorf("scripts: %v, expected: %v", scripts, expected)
	}
}

func TestBundledVersions(t *testing.T) {
	vs, err := listVersions(migrations.Versions())
	if err != nil {
		t.Fatal(err)
	}
	if len(vs) == 0 || vs[0].number != 1 {
		t.Fatalf("unexpected versions: %+v", vs)
	}
	scripts, err := vs[0].scripts(migrations.Versions())
	if err != nil {
		t.Fatal(err)
	}
	if len(scripts) == 0 {
		t.Error("no scripts in version 1")
	}

	if len(vs) < 2 || vs[1].number != 2 {
		t.Fatalf("unexpected versions: %+v", vs)
	}
	scripts, err = vs[1].scripts(migrations.Versions())
	if err != nil {
		t.Fatal(err)
	}
	if expected := []string{"2/001_schedule_owner.sql"}; !cmp.SliceEq(scripts, expected) {
		t.Errorf("scripts: %v, expected: %v", scripts, expected)
	}
}

func TestNull(t *testing.T) {
	ctx := context.Background()
	testee := Null()

	if err := testee.Upgrade(ctx); !errors.Is(err, schemadb.ErrNoRepository) {
		t.Errorf("unexpected error: %v", err)
	}
	if v, err := testee.Version(ctx); v != -1 || err != nil {
		t.Errorf("Version() = (%d, %v)", v, err)
	}

	sctx, cancel := testee.Context(ctx)
	if sctx.Err() != nil {
		t.Error("context is done before cancel")
	}
	cancel()
	if sctx.Err() == nil {
		t.Error("context is not done after cancel")
	}
}
