package metrics_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/geoflow/geoflow/pkg/domain"
	"github.com/geoflow/geoflow/pkg/metrics"
)

func TestResultOf(t *testing.T) {
	for name, testcase := range map[string]struct {
		when error
		then string
	}{
		"nil":          {when: nil, then: "ok"},
		"not found":    {when: domain.NewNotFoundError(domain.KindProject, 1), then: "not_found"},
		"validation":   {when: domain.NewValidationError(domain.KindProject, "name", "", "is required"), then: "invalid"},
		"range":        {when: &domain.RangeError{Field: "schedule"}, then: "invalid"},
		"foreign key":  {when: &domain.ForeignKeyError{}, then: "invalid"},
		"restricted":   {when: &domain.RestrictedDeleteError{}, then: "restricted"},
		"conflict":     {when: fmt.Errorf("commit: %w", &domain.ConflictError{}), then: "conflict"},
		"no service":   {when: &domain.NoServiceAssignedError{}, then: "unresolvable"},
		"unclassified": {when: errors.New("connection refused"), then: "error"},
	} {
		t.Run(name, func(t *testing.T) {
			if actual := metrics.ResultOf(testcase.when); actual != testcase.then {
				t.Errorf("actual = %s, expected = %s", actual, testcase.then)
			}
		})
	}
}
