// Package errors builds *echo.HTTPError carrying apierr.ErrorMessage as their body.
//
// Handlers return them as is. echo renders the message as json with the status code.
package errors

import (
	"net/http"

	apierr "github.com/geoflow/geoflow/pkg/api/types/errors"
	"github.com/labstack/echo/v4"
)

type ErrorMessageOption func(in *apierr.ErrorMessage) *apierr.ErrorMessage

// options setting a field only when the value is not zero.
func nonzero[T comparable](v T, set func(*apierr.ErrorMessage, T)) ErrorMessageOption {
	return func(in *apierr.ErrorMessage) *apierr.ErrorMessage {
		if v != *new(T) {
			set(in, v)
		}
		return in
	}
}

func WithAdvice(advice string) ErrorMessageOption {
	return nonzero(advice, func(m *apierr.ErrorMessage, v string) { m.Advice = v })
}

func WithSee(see string) ErrorMessageOption {
	return nonzero(see, func(m *apierr.ErrorMessage, v string) { m.See = v })
}

func WithError(err error) ErrorMessageOption {
	return func(in *apierr.ErrorMessage) *apierr.ErrorMessage {
		if err != nil {
			in.Cause = err
		}
		return in
	}
}

func WithItems(items ...apierr.Item) ErrorMessageOption {
	return func(in *apierr.ErrorMessage) *apierr.ErrorMessage {
		in.Items = append(in.Items, items...)
		return in
	}
}

// NewErrorMessage builds an error response.
//
// The message is also set as the internal error, so that errors.Is/As reach its Cause.
func NewErrorMessage(code int, reason string, opts ...ErrorMessageOption) *echo.HTTPError {
	msg := &apierr.ErrorMessage{Reason: reason}
	for _, opt := range opts {
		msg = opt(msg)
	}
	return echo.NewHTTPError(code, *msg).SetInternal(*msg)
}

func ServiceUnavailable(advice string, err error) *echo.HTTPError {
	return NewErrorMessage(
		http.StatusServiceUnavailable, "service unavailable temporarily",
		WithAdvice(advice), WithError(err),
	)
}

func NotFound(opts ...ErrorMessageOption) *echo.HTTPError {
	return NewErrorMessage(http.StatusNotFound, "not found", opts...)
}

func BadRequest(advice string, err error, opts ...ErrorMessageOption) *echo.HTTPError {
	opts = append([]ErrorMessageOption{WithAdvice(advice), WithError(err)}, opts...)
	return NewErrorMessage(http.StatusBadRequest, "bad request", opts...)
}

// Conflict is for requests contradicting the current rows.
func Conflict(reason string, opts ...ErrorMessageOption) *echo.HTTPError {
	return NewErrorMessage(http.StatusConflict, reason, opts...)
}

func InternalServerError(err error) *echo.HTTPError {
	return NewErrorMessage(http.StatusInternalServerError, "unexpected error", WithError(err))
}
