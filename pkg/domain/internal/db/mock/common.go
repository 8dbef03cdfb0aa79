// Package mocks has building blocks of hand-written mocks.
//
// Mocks record arguments into CallLog fields of their `Calls`,
// and delegate to functions in their `Impl`. Calling a method without its Impl panics.
package mocks

import (
	"errors"
	"fmt"
)

// ErrUnexpectedCall is panicked by a mocked method which has no implementation.
var ErrUnexpectedCall = errors.New("it should not be called")

// Unexpected is the error for a call of method without its implementation.
func Unexpected(method string) error {
	return fmt.Errorf("%w: %s", ErrUnexpectedCall, method)
}

// CallLog is arguments of calls, in order of calls.
type CallLog[T any] []T

func (l CallLog[T]) Times() uint {
	return uint(len(l))
}

// Last returns arguments of the latest call. It is false when there are no calls.
func (l CallLog[T]) Last() (T, bool) {
	if len(l) == 0 {
		return *new(T), false
	}
	return l[len(l)-1], true
}
