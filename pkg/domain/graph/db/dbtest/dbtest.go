// Package dbtest is a behavioral test suite for implementations of graph database.
package dbtest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/geoflow/geoflow/pkg/cmp"
	"github.com/geoflow/geoflow/pkg/domain"
	kdb "github.com/geoflow/geoflow/pkg/domain/graph/db"
	"github.com/geoflow/geoflow/pkg/utils"
	"github.com/geoflow/geoflow/pkg/utils/pointer"
	"github.com/geoflow/geoflow/pkg/utils/try"
)

// Opener provides an empty database for each test.
type Opener func(t *testing.T) kdb.Database

// Run runs all behavioral tests.
func Run(t *testing.T, open Opener) {
	t.Run("CRUD", func(t *testing.T) { testCRUD(t, open(t)) })
	t.Run("Find", func(t *testing.T) { testFind(t, open(t)) })
	t.Run("Rollback", func(t *testing.T) { testRollback(t, open(t)) })
	t.Run("Conflicts", func(t *testing.T) { testConflicts(t, open) })
}

// Seed inserts entities in a transaction and commits.
func Seed(t *testing.T, d kdb.Database, entities ...domain.Entity) {
	t.Helper()
	ctx := context.Background()
	if _, err := kdb.InTx(ctx, d, func(tx kdb.Tx) (struct{}, error) {
		for _, e := range entities {
			if err := tx.Insert(ctx, e); err != nil {
				return struct{}{}, err
			}
		}
		return struct{}{}, nil
	}); err != nil {
		t.Fatal(err)
	}
}

// Count counts rows of the kind.
func Count(t *testing.T, d kdb.Database, k domain.Kind) int {
	t.Helper()
	ctx := context.Background()
	return try.To(kdb.InTx(ctx, d, func(tx kdb.Tx) (int, error) {
		found, err := tx.Find(ctx, k, kdb.Query{})
		return len(found), err
	})).OrFatal(t)
}

// Provider seeds a project and a data provider in it.
func Provider(t *testing.T, d kdb.Database, project string) (*domain.Project, *domain.DataProvider) {
	t.Helper()
	p := &domain.Project{Name: project}
	Seed(t, d, p)
	dp := &domain.DataProvider{
		ProjectId: p.Id, Name: project + "-dp", Uri: "file:///data",
		Type: domain.ProviderFile, Intent: domain.IntentCollect,
	}
	Seed(t, d, dp)
	return p, dp
}

func ids(es []domain.Entity) []int64 {
	return utils.Map(es, func(e domain.Entity) int64 { return e.Identity() })
}

func testCRUD(t *testing.T, d kdb.Database) {
	ctx := context.Background()
	p, dp := Provider(t, d, "P1")
	if p.Id == 0 || dp.Id == 0 {
		t.Fatal("id is not assigned")
	}

	sched := &domain.Schedule{
		Frequency:     pointer.Ref(5),
		FrequencyUnit: pointer.Ref("minutes"),
		RetryPolicy:   domain.RetryPolicy{ScheduleRetry: pointer.Ref(1), ScheduleRetryUnit: pointer.Ref("minutes")},
	}
	Seed(t, d, sched)

	tx := try.To(d.Begin(ctx)).OrFatal(t)
	defer tx.Rollback(ctx)

	got := try.To(tx.Get(ctx, domain.KindDataProvider, dp.Id)).OrFatal(t).(*domain.DataProvider)
	if got.Name != dp.Name || got.ProjectId != p.Id || got.Type != domain.ProviderFile {
		t.Errorf("unexpected row: %+v", got)
	}

	gotSched := try.To(tx.Get(ctx, domain.KindSchedule, sched.Id)).OrFatal(t).(*domain.Schedule)
	if !cmp.PEqEq(gotSched.Frequency, sched.Frequency) ||
		!cmp.PEqEq(gotSched.FrequencyUnit, sched.FrequencyUnit) ||
		!cmp.PEqEq(gotSched.ScheduleRetry, sched.ScheduleRetry) ||
		gotSched.Schedule != nil {
		t.Errorf("unexpected schedule: %+v", gotSched)
	}

	got.Uri = "ftp://example.com/data"
	got.Options = map[string]string{"passive": "true"}
	if err := tx.Update(ctx, got); err != nil {
		t.Fatal(err)
	}
	updated := try.To(tx.Get(ctx, domain.KindDataProvider, dp.Id)).OrFatal(t).(*domain.DataProvider)
	if updated.Uri != got.Uri || !cmp.MapEq(updated.Options, got.Options) {
		t.Errorf("update is not visible: %+v", updated)
	}

	if err := tx.Update(ctx, &domain.DataProvider{Identified: domain.Identified{Id: 9999}}); !errors.Is(err, domain.ErrMissing) {
		t.Errorf("update of missing row: unexpected error %v", err)
	}

	if n := try.To(tx.Delete(ctx, domain.KindDataProvider, []int64{dp.Id, 9999})).OrFatal(t); n != 1 {
		t.Errorf("deleted = %d", n)
	}
	if _, err := tx.Get(ctx, domain.KindDataProvider, dp.Id); !errors.Is(err, domain.ErrMissing) {
		t.Errorf("deleted row is visible: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatal(err)
	}

	if n := Count(t, d, domain.KindDataProvider); n != 0 {
		t.Errorf("rows left: %d", n)
	}
}

func testFind(t *testing.T, d kdb.Database) {
	ctx := context.Background()
	_, dp := Provider(t, d, "P1")

	ds1 := &domain.DataSeries{Name: "ds1", DataProviderId: dp.Id, Semantics: "DCP-inpe"}
	ds2 := &domain.DataSeries{Name: "ds2", DataProviderId: dp.Id, Semantics: "DCP-inpe"}
	ds3 := &domain.DataSeries{Name: "ds3", DataProviderId: dp.Id, Semantics: "DCP-inpe"}
	Seed(t, d, ds1, ds2, ds3)

	as := &domain.AutomaticSchedule{DataIds: []int64{ds1.Id, ds3.Id}}
	Seed(t, d, as)

	tx := try.To(d.Begin(ctx)).OrFatal(t)
	defer tx.Rollback(ctx)

	for name, testcase := range map[string]struct {
		kind domain.Kind
		when kdb.Query
		then []int64
	}{
		"all": {
			kind: domain.KindDataSeries, when: kdb.Query{},
			then: []int64{ds1.Id, ds2.Id, ds3.Id},
		},
		"by id": {
			kind: domain.KindDataSeries, when: kdb.ById(ds3.Id, ds1.Id),
			then: []int64{ds1.Id, ds3.Id},
		},
		"by name": {
			kind: domain.KindDataSeries, when: kdb.Query{Name: pointer.Ref("ds2")},
			then: []int64{ds2.Id},
		},
		"by reference and name": {
			kind: domain.KindDataSeries,
			when: kdb.Query{Column: "data_provider_id", Ids: []int64{dp.Id}, Name: pointer.Ref("ds3")},
			then: []int64{ds3.Id},
		},
		"array column contains": {
			kind: domain.KindAutomaticSchedule, when: kdb.ByRef("data_ids", ds3.Id),
			then: []int64{as.Id},
		},
		"array column does not contain": {
			kind: domain.KindAutomaticSchedule, when: kdb.ByRef("data_ids", ds2.Id),
			then: []int64{},
		},
	} {
		t.Run(name, func(t *testing.T) {
			found := try.To(tx.Find(ctx, testcase.kind, testcase.when)).OrFatal(t)
			if actual := ids(found); !cmp.SliceEq(actual, testcase.then) {
				t.Errorf("found: actual = %v, expected = %v", actual, testcase.then)
			}
		})
	}

	t.Run("array column is restored", func(t *testing.T) {
		got := try.To(tx.Get(ctx, domain.KindAutomaticSchedule, as.Id)).OrFatal(t).(*domain.AutomaticSchedule)
		if !cmp.SliceEq(got.DataIds, as.DataIds) {
			t.Errorf("data_ids: actual = %v, expected = %v", got.DataIds, as.DataIds)
		}
	})

	t.Run("non foreign key column", func(t *testing.T) {
		if _, err := tx.Find(ctx, domain.KindDataSeries, kdb.ByRef("name", 1)); !errors.Is(err, domain.ErrInvalid) {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func testRollback(t *testing.T, d kdb.Database) {
	ctx := context.Background()
	tx := try.To(d.Begin(ctx)).OrFatal(t)
	if err := tx.Insert(ctx, &domain.Project{Name: "P1"}); err != nil {
		t.Fatal(err)
	}
	if err := tx.Rollback(ctx); err != nil {
		t.Fatal(err)
	}
	if n := Count(t, d, domain.KindProject); n != 0 {
		t.Errorf("rolled back rows are stored: %d", n)
	}
}

// race runs transactions concurrently.
//
// Each worker reads first, waits for all others to read, and then writes and commits.
// It returns the first error of each worker.
func race(ctx context.Context, d kdb.Database, workers ...func(tx kdb.Tx, sync func()) error) []error {
	barrier := sync.WaitGroup{}
	barrier.Add(len(workers))
	arrive := func() {
		barrier.Done()
		barrier.Wait()
	}

	errs := make([]error, len(workers))
	done := sync.WaitGroup{}
	for i, w := range workers {
		done.Add(1)
		go func() {
			defer done.Done()
			tx, err := d.Begin(ctx)
			if err != nil {
				arrive()
				errs[i] = err
				return
			}
			defer tx.Rollback(ctx)
			if err := w(tx, arrive); err != nil {
				errs[i] = err
				return
			}
			errs[i] = tx.Commit(ctx)
		}()
	}
	done.Wait()
	return errs
}

func exactlyOneConflict(t *testing.T, errs []error) {
	t.Helper()
	ok, conflicts := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok += 1
		case errors.Is(err, domain.ErrConflict):
			conflicts += 1
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 || conflicts != 1 {
		t.Errorf("expected that one succeeds and another conflicts: %v", errs)
	}
}

func testConflicts(t *testing.T, open Opener) {
	ctx := context.Background()

	t.Run("inserts with the same name", func(t *testing.T) {
		d := open(t)
		insert := func(tx kdb.Tx, arrive func()) error {
			_, err := tx.Find(ctx, domain.KindProject, kdb.Query{Name: pointer.Ref("P1")})
			arrive()
			if err != nil {
				return err
			}
			return tx.Insert(ctx, &domain.Project{Name: "P1"})
		}
		exactlyOneConflict(t, race(ctx, d, insert, insert))
		if n := Count(t, d, domain.KindProject); n != 1 {
			t.Errorf("rows = %d", n)
		}
	})

	t.Run("same name in different scopes", func(t *testing.T) {
		d := open(t)
		p1, p2 := &domain.Project{Name: "P1"}, &domain.Project{Name: "P2"}
		Seed(t, d, p1, p2)
		Seed(
			t, d,
			&domain.DataProvider{ProjectId: p1.Id, Name: "DP", Uri: "file:///a"},
			&domain.DataProvider{ProjectId: p2.Id, Name: "DP", Uri: "file:///b"},
		)
		if n := Count(t, d, domain.KindDataProvider); n != 2 {
			t.Errorf("rows = %d", n)
		}
	})

	t.Run("updates on the same row", func(t *testing.T) {
		d := open(t)
		p := &domain.Project{Name: "P1"}
		Seed(t, d, p)

		update := func(tx kdb.Tx, arrive func()) error {
			e, err := tx.Get(ctx, domain.KindProject, p.Id)
			arrive()
			if err != nil {
				return err
			}
			e.(*domain.Project).Version += 1
			return tx.Update(ctx, e)
		}
		exactlyOneConflict(t, race(ctx, d, update, update))
	})

	t.Run("insert referring a row deleted concurrently", func(t *testing.T) {
		d := open(t)
		p := &domain.Project{Name: "P1"}
		Seed(t, d, p)

		errs := race(
			ctx, d,
			func(tx kdb.Tx, arrive func()) error {
				_, err := tx.Get(ctx, domain.KindProject, p.Id)
				arrive()
				if err != nil {
					return err
				}
				return tx.Insert(ctx, &domain.Legend{ProjectId: p.Id, Name: "L"})
			},
			func(tx kdb.Tx, arrive func()) error {
				_, err := tx.Get(ctx, domain.KindProject, p.Id)
				arrive()
				if err != nil {
					return err
				}
				_, err = tx.Delete(ctx, domain.KindProject, []int64{p.Id})
				return err
			},
		)
		exactlyOneConflict(t, errs)
	})

	t.Run("delete leaving a referrer", func(t *testing.T) {
		d := open(t)
		p := &domain.Project{Name: "P1"}
		Seed(t, d, p)
		Seed(t, d, &domain.Legend{ProjectId: p.Id, Name: "L"})

		_, err := kdb.InTx(ctx, d, func(tx kdb.Tx) (int, error) {
			return tx.Delete(ctx, domain.KindProject, []int64{p.Id})
		})
		if !errors.Is(err, domain.ErrConflict) {
			t.Errorf("unexpected error: %v", err)
		}
		if n := Count(t, d, domain.KindProject); n != 1 {
			t.Error("failed commit changes the database")
		}
	})

	t.Run("schedule owned by two processes", func(t *testing.T) {
		d := open(t)
		p, dp := Provider(t, d, "P1")
		in := &domain.DataSeries{Name: "in", DataProviderId: dp.Id, Semantics: "DCP-inpe"}
		out := &domain.DataSeries{Name: "out", DataProviderId: dp.Id, Semantics: "DCP-postgis"}
		sc := &domain.Schedule{Frequency: pointer.Ref(5), FrequencyUnit: pointer.Ref("minutes")}
		Seed(t, d, in, out, sc)
		Seed(t, d, &domain.Collector{
			CollectorType: domain.SeriesDCP, DataSeriesInput: in.Id, DataSeriesOutput: out.Id,
			ProcessLink: domain.ProcessLink{ScheduleType: domain.ScheduleTypeSchedule, ScheduleId: pointer.Ref(sc.Id)},
		})

		_, err := kdb.InTx(ctx, d, func(tx kdb.Tx) (struct{}, error) {
			return struct{}{}, tx.Insert(ctx, &domain.View{
				ProjectId: p.Id, Name: "V", DataSeriesId: out.Id,
				ProcessLink: domain.ProcessLink{ScheduleType: domain.ScheduleTypeSchedule, ScheduleId: pointer.Ref(sc.Id)},
			})
		})
		if !errors.Is(err, domain.ErrConflict) {
			t.Errorf("unexpected error: %v", err)
		}
		if n := Count(t, d, domain.KindView); n != 0 {
			t.Error("failed commit changes the database")
		}
	})

	t.Run("second filter of a collector", func(t *testing.T) {
		d := open(t)
		_, dp := Provider(t, d, "P1")
		in := &domain.DataSeries{Name: "in", DataProviderId: dp.Id, Semantics: "DCP-inpe"}
		out := &domain.DataSeries{Name: "out", DataProviderId: dp.Id, Semantics: "DCP-postgis"}
		Seed(t, d, in, out)
		c := &domain.Collector{
			CollectorType: domain.SeriesDCP, DataSeriesInput: in.Id, DataSeriesOutput: out.Id,
			ProcessLink: domain.ProcessLink{ScheduleType: domain.ScheduleTypeManual},
		}
		Seed(t, d, c)
		Seed(t, d, &domain.Filter{CollectorId: c.Id})

		_, err := kdb.InTx(ctx, d, func(tx kdb.Tx) (struct{}, error) {
			return struct{}{}, tx.Insert(ctx, &domain.Filter{CollectorId: c.Id})
		})
		if !errors.Is(err, domain.ErrConflict) {
			t.Errorf("unexpected error: %v", err)
		}
	})
}
