package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// the entity is not found.
	ErrMissing = errors.New("missing")

	// the payload violates constraints of the entity.
	ErrInvalid = errors.New("validation error")

	// schedule forms are both given or both absent, where exactly one is required.
	ErrConflictingSchedule = fmt.Errorf("%w: conflicting schedule", ErrInvalid)

	// enum or unit is out of bounds.
	ErrRange = fmt.Errorf("%w: out of range", ErrInvalid)

	// dangling or type-mismatched reference.
	ErrForeignKey = errors.New("foreign key error")

	// deletion is blocked by a restrict edge.
	ErrRestrictedDelete = errors.New("delete is restricted")

	// uniqueness or references are violated at commit by a concurrent writer.
	ErrConflict = errors.New("conflict")

	// schedule_type disagrees with the attached schedule.
	ErrMisconfiguredSchedule = errors.New("misconfigured schedule")

	// the service instance can not execute the process kind.
	ErrServiceTypeMismatch = errors.New("service type mismatch")

	// the process has no service instance.
	ErrNoServiceAssigned = errors.New("no service assigned")
)

type NotFoundError struct {
	Kind Kind
	Id   int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s#%d is not found", e.Kind, e.Id)
}

func (e *NotFoundError) Unwrap() error {
	return ErrMissing
}

func NewNotFoundError(kind Kind, id int64) error {
	return &NotFoundError{Kind: kind, Id: id}
}

// ValidationItem is a single violation found in a payload.
type ValidationItem struct {
	// json path of the field, like "data_series_input".
	Path    string `json:"path"`
	Value   any    `json:"value,omitempty"`
	Message string `json:"message"`
}

type ValidationError struct {
	Kind  Kind
	Items []ValidationItem
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Items))
	for _, it := range e.Items {
		msgs = append(msgs, fmt.Sprintf("%s: %s", it.Path, it.Message))
	}
	return fmt.Sprintf("%s is invalid: %s", e.Kind, strings.Join(msgs, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalid
}

func NewValidationError(kind Kind, path string, value any, message string) error {
	return &ValidationError{
		Kind:  kind,
		Items: []ValidationItem{{Path: path, Value: value, Message: message}},
	}
}

type RangeError struct {
	Field string
	Value any
	// human readable domain, like "1-7" or "seconds|minutes|hours"
	Expected string
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s: %v is out of range (expected: %s)", e.Field, e.Value, e.Expected)
}

func (e *RangeError) Unwrap() error {
	return ErrRange
}

type ConflictingScheduleError struct {
	Reason string
}

func (e *ConflictingScheduleError) Error() string {
	return "conflicting schedule: " + e.Reason
}

func (e *ConflictingScheduleError) Unwrap() error {
	return ErrConflictingSchedule
}

type ForeignKeyError struct {
	Kind   Kind
	Column string
	Target Ref
	Reason string
}

func (e *ForeignKeyError) Error() string {
	return fmt.Sprintf("%s.%s -> %s: %s", e.Kind, e.Column, e.Target, e.Reason)
}

func (e *ForeignKeyError) Unwrap() error {
	return ErrForeignKey
}

type RestrictedDeleteError struct {
	// the row blocking deletion.
	Blocker Ref
	Column  string
	// the row which is requested to be deleted (directly or by cascade).
	Target Ref
}

func (e *RestrictedDeleteError) Error() string {
	return fmt.Sprintf(
		"%s can not be deleted: it is referred by %s (column %s)",
		e.Target, e.Blocker, e.Column,
	)
}

func (e *RestrictedDeleteError) Unwrap() error {
	return ErrRestrictedDelete
}

type ConflictError struct {
	Kind   Kind
	Reason string
	Cause  error
}

func (e *ConflictError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("conflict on %s: %s: %s", e.Kind, e.Reason, e.Cause)
	}
	return fmt.Sprintf("conflict on %s: %s", e.Kind, e.Reason)
}

func (e *ConflictError) Is(o error) bool {
	return o == ErrConflict
}

func (e *ConflictError) Unwrap() error {
	return e.Cause
}

type MisconfiguredScheduleError struct {
	Process      Ref
	ScheduleType ScheduleType
	Reason       string
}

func (e *MisconfiguredScheduleError) Error() string {
	return fmt.Sprintf("%s (schedule_type = %s): %s", e.Process, e.ScheduleType, e.Reason)
}

func (e *MisconfiguredScheduleError) Unwrap() error {
	return ErrMisconfiguredSchedule
}

type ServiceTypeMismatchError struct {
	Process         Ref
	ServiceInstance int64
	Expected        ServiceType
	Actual          ServiceType
}

func (e *ServiceTypeMismatchError) Error() string {
	return fmt.Sprintf(
		"%s requires %s service, but service_instance#%d is %s",
		e.Process, e.Expected, e.ServiceInstance, e.Actual,
	)
}

func (e *ServiceTypeMismatchError) Unwrap() error {
	return ErrServiceTypeMismatch
}

type NoServiceAssignedError struct {
	Process Ref
}

func (e *NoServiceAssignedError) Error() string {
	return fmt.Sprintf("%s has no service instance", e.Process)
}

func (e *NoServiceAssignedError) Unwrap() error {
	return ErrNoServiceAssigned
}
