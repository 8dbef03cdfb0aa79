package errors_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	binderr "github.com/geoflow/geoflow/pkg/api-types-binding/errors"
	apierr "github.com/geoflow/geoflow/pkg/api/types/errors"
	"github.com/geoflow/geoflow/pkg/cmp"
	"github.com/geoflow/geoflow/pkg/domain"
)

func TestDomain(t *testing.T) {
	type then struct {
		code  int
		see   string
		items []string
	}

	theory := func(when error, then then) func(*testing.T) {
		return func(t *testing.T) {
			actual := binderr.Domain(when)
			if actual.Code != then.code {
				t.Errorf("status code: actual = %d, expected = %d", actual.Code, then.code)
			}

			msg, ok := actual.Message.(apierr.ErrorMessage)
			if !ok {
				t.Fatalf("message is not ErrorMessage: %T", actual.Message)
			}
			if msg.See != then.see {
				t.Errorf("see: actual = %s, expected = %s", msg.See, then.see)
			}
			paths := []string{}
			for _, it := range msg.Items {
				paths = append(paths, it.Path)
			}
			if !cmp.SliceEq(paths, then.items) {
				t.Errorf("items: actual = %v, expected = %v", paths, then.items)
			}
			if !errors.Is(actual.Internal, when) {
				t.Errorf("cause is lost: %v", actual.Internal)
			}
		}
	}

	t.Run("validation error", theory(
		&domain.ValidationError{
			Kind: domain.KindCollector,
			Items: []domain.ValidationItem{
				{Path: "filter.region", Message: "should be a WKT polygon"},
				{Path: "data_series_input", Message: "is required"},
			},
		},
		then{code: http.StatusBadRequest, items: []string{"filter.region", "data_series_input"}},
	))

	t.Run("range error", theory(
		&domain.RangeError{Field: "schedule", Value: 8, Expected: "1-7"},
		then{code: http.StatusBadRequest, items: []string{"schedule"}},
	))

	t.Run("conflicting schedule", theory(
		&domain.ConflictingScheduleError{Reason: "both of frequency and schedule"},
		then{code: http.StatusBadRequest, items: []string{}},
	))

	t.Run("foreign key error", theory(
		&domain.ForeignKeyError{
			Kind: domain.KindDataSeries, Column: "data_provider_id",
			Target: domain.Ref{Kind: domain.KindDataProvider, Id: 3}, Reason: "missing",
		},
		then{code: http.StatusBadRequest, items: []string{"data_provider_id"}},
	))

	t.Run("not found (wrapped)", theory(
		fmt.Errorf("reading: %w", domain.NewNotFoundError(domain.KindProject, 1)),
		then{code: http.StatusNotFound, see: "project", items: []string{}},
	))

	t.Run("restricted delete", theory(
		&domain.RestrictedDeleteError{
			Blocker: domain.Ref{Kind: domain.KindAlert, Id: 2},
			Column:  "legend_id",
			Target:  domain.Ref{Kind: domain.KindLegend, Id: 1},
		},
		then{code: http.StatusConflict, see: domain.Ref{Kind: domain.KindAlert, Id: 2}.String(), items: []string{}},
	))

	t.Run("concurrent conflict", theory(
		&domain.ConflictError{Kind: domain.KindProject, Reason: "unique_violation"},
		then{code: http.StatusConflict, items: []string{}},
	))

	for name, err := range map[string]error{
		"misconfigured schedule": &domain.MisconfiguredScheduleError{Reason: "no schedule"},
		"service type mismatch":  &domain.ServiceTypeMismatchError{Expected: domain.ServiceCollector, Actual: domain.ServiceView},
		"no service assigned":    &domain.NoServiceAssignedError{},
	} {
		t.Run(name, theory(err, then{code: http.StatusConflict, items: []string{}}))
	}

	t.Run("timeout", theory(
		fmt.Errorf("begin: %w", context.DeadlineExceeded),
		then{code: http.StatusServiceUnavailable, items: []string{}},
	))

	t.Run("unknown error", theory(
		errors.New("fake error"),
		then{code: http.StatusInternalServerError, items: []string{}},
	))
}
