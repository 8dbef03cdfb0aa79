// Package errors is the body of error responses of geoflowd, shared with its clients.
package errors

import (
	"encoding/json"
	"fmt"
	"strings"
)

type ErrorMessage struct {
	Reason string `json:"reason"`
	Advice string `json:"advice,omitempty"`

	// See is a resource related to the error, like "legend#3" blocking a deletion.
	See string `json:"see,omitempty"`

	// Items are fields violating constraints, for 400 responses.
	Items []Item `json:"items,omitempty"`

	Cause error `json:"-"`
}

// Item is a violation found at a json path of the request payload.
type Item struct {
	Path    string `json:"path"`
	Value   any    `json:"value,omitempty"`
	Message string `json:"message"`
}

// UnmarshalJSON requires "reason". Other fields are optional.
func (em *ErrorMessage) UnmarshalJSON(b []byte) error {
	var required struct {
		Reason *string `json:"reason"`
	}
	if err := json.Unmarshal(b, &required); err != nil {
		return err
	}
	if required.Reason == nil {
		return fmt.Errorf(`required field missing: "reason"`)
	}

	type message ErrorMessage // without methods
	m := message{}
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	*em = ErrorMessage(m)
	return nil
}

// String is a multi-line message for humans.
func (e ErrorMessage) String() string {
	b := new(strings.Builder)
	b.WriteString(e.Reason)
	if e.Advice != "" {
		b.WriteString("\n" + e.Advice)
	}
	for _, it := range e.Items {
		fmt.Fprintf(b, "\n  - %s: %s", it.Path, it.Message)
	}
	if e.See != "" {
		b.WriteString("\n see: " + e.See)
	}
	if e.Cause != nil {
		b.WriteString("\n caused by: " + e.Cause.Error())
	}
	return b.String()
}

func (e ErrorMessage) Error() string {
	return e.String()
}

func (e ErrorMessage) Unwrap() error {
	return e.Cause
}
