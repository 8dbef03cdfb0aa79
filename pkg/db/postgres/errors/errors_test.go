package errors_test

import (
	"errors"
	"testing"

	pgerrors "github.com/geoflow/geoflow/pkg/db/postgres/errors"
	"github.com/geoflow/geoflow/pkg/domain"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
)

func TestClassify(t *testing.T) {
	for name, testcase := range map[string]struct {
		when         error
		thenConflict bool
	}{
		"unique violation": {
			when:         &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "project_name_key"},
			thenConflict: true,
		},
		"serialization failure": {
			when:         &pgconn.PgError{Code: pgerrcode.SerializationFailure},
			thenConflict: true,
		},
		"foreign key violation": {
			when:         &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation},
			thenConflict: true,
		},
		"syntax error": {
			when:         &pgconn.PgError{Code: pgerrcode.SyntaxError},
			thenConflict: false,
		},
		"not a postgres error": {
			when:         errors.New("fake"),
			thenConflict: false,
		},
	} {
		t.Run(name, func(t *testing.T) {
			actual := pgerrors.Classify(domain.KindProject, testcase.when)
			if errors.Is(actual, domain.ErrConflict) != testcase.thenConflict {
				t.Errorf("conflict? %v: %v", !testcase.thenConflict, actual)
			}
			if !errors.Is(actual, testcase.when) {
				t.Errorf("cause is lost: %v", actual)
			}
		})
	}

	if pgerrors.Classify(domain.KindProject, nil) != nil {
		t.Error("nil should be nil")
	}
}
