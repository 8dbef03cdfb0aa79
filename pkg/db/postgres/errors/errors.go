package errors

import (
	"errors"
	"fmt"

	"github.com/geoflow/geoflow/pkg/domain"
	xe "github.com/geoflow/geoflow/pkg/errors"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
)

// codes which mean "another transaction has won".
var conflicts = map[string]string{
	pgerrcode.UniqueViolation:      "unique constraint is violated",
	pgerrcode.ForeignKeyViolation:  "foreign key constraint is violated",
	pgerrcode.SerializationFailure: "serialization failure",
	pgerrcode.DeadlockDetected:     "deadlock detected",
}

// Classify converts an error caused in a query on the table of kind.
//
// Errors in `conflicts` become *domain.ConflictError.
// Others are wrapped with the caller location.
func Classify(kind domain.Kind, err error) error {
	if err == nil {
		return nil
	}
	pgerr := new(pgconn.PgError)
	if !errors.As(err, &pgerr) {
		return xe.WrapAsOuter(err, 1)
	}
	reason, ok := conflicts[pgerr.Code]
	if !ok {
		return xe.WrapAsOuter(err, 1)
	}
	if pgerr.ConstraintName != "" {
		reason = fmt.Sprintf("%s (%s)", reason, pgerr.ConstraintName)
	}
	return &domain.ConflictError{Kind: kind, Reason: reason, Cause: err}
}

// IsUndefinedTable reports whether err says the table does not exist.
func IsUndefinedTable(err error) bool {
	pgerr := new(pgconn.PgError)
	return errors.As(err, &pgerr) && pgerr.Code == pgerrcode.UndefinedTable
}

// TableOf returns the table name reported by postgres.
func TableOf(err error) (string, bool) {
	pgerr := new(pgconn.PgError)
	if !errors.As(err, &pgerr) || pgerr.TableName == "" {
		return "", false
	}
	return pgerr.TableName, true
}
