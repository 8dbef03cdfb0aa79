package errors

import (
	"context"
	"errors"

	apierr "github.com/geoflow/geoflow/pkg/api/types/errors"
	"github.com/geoflow/geoflow/pkg/domain"
	"github.com/labstack/echo/v4"
)

// Domain converts errors of domain operations into http errors.
//
//   - invalid payloads (domain.ErrInvalid, domain.ErrForeignKey): 400
//   - missing rows (domain.ErrMissing): 404
//   - blocked deletions, concurrent conflicts and unresolvable processes: 409
//   - timeouts: 503
//   - others: 500
func Domain(err error) *echo.HTTPError {
	if verr := new(domain.ValidationError); errors.As(err, &verr) {
		items := make([]apierr.Item, 0, len(verr.Items))
		for _, it := range verr.Items {
			items = append(items, apierr.Item{Path: it.Path, Value: it.Value, Message: it.Message})
		}
		return BadRequest("fix the payload of "+verr.Kind.String(), err, WithItems(items...))
	}
	if rerr := new(domain.RangeError); errors.As(err, &rerr) {
		return BadRequest(
			"value is out of range", err,
			WithItems(apierr.Item{Path: rerr.Field, Value: rerr.Value, Message: "expected: " + rerr.Expected}),
		)
	}
	if ferr := new(domain.ForeignKeyError); errors.As(err, &ferr) {
		return BadRequest(
			"refer an existing row", err,
			WithItems(apierr.Item{Path: ferr.Column, Value: ferr.Target.Id, Message: ferr.Reason}),
		)
	}
	if errors.Is(err, domain.ErrInvalid) {
		return BadRequest(err.Error(), err)
	}

	if nerr := new(domain.NotFoundError); errors.As(err, &nerr) {
		return NotFound(WithError(err), WithSee(nerr.Kind.String()))
	}
	if errors.Is(err, domain.ErrMissing) {
		return NotFound(WithError(err))
	}

	if rerr := new(domain.RestrictedDeleteError); errors.As(err, &rerr) {
		return Conflict(
			"deletion is restricted",
			WithAdvice("delete or update the referrer first"),
			WithSee(rerr.Blocker.String()),
			WithError(err),
		)
	}
	if errors.Is(err, domain.ErrConflict) {
		return Conflict(
			"conflicting with a concurrent change",
			WithAdvice("retry later"),
			WithError(err),
		)
	}
	if errors.Is(err, domain.ErrMisconfiguredSchedule) ||
		errors.Is(err, domain.ErrServiceTypeMismatch) ||
		errors.Is(err, domain.ErrNoServiceAssigned) {
		return Conflict(
			"process can not be resolved",
			WithAdvice("fix schedule_type, schedule or service_instance_id of the process"),
			WithError(err),
		)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ServiceUnavailable("the store does not respond in time. retry later", err)
	}

	return InternalServerError(err)
}
