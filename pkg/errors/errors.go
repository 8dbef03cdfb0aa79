// Package errors annotates errors with the place where they are passed through.
//
// Usage:
//
//	if err != nil {
//		return xe.Wrap(err)
//	}
//
// Messages of wrapped errors read like
//
//	@ pkg.Func "file.go" l42 <- @ pkg.Inner "inner.go" l7 <- cause
//
// so, replacing "<-" with newlines gives the path the error went through.
package errors

import (
	"fmt"
	"runtime"
)

type ErrWithCaller struct {
	file     string
	line     int
	funcname string
	note     string
	err      error
}

func (e *ErrWithCaller) File() string {
	return e.file
}

func (e *ErrWithCaller) Line() int {
	return e.line
}

func (e *ErrWithCaller) Func() string {
	return e.funcname
}

// Note is the text given to WrapWithNote. Empty for others.
func (e *ErrWithCaller) Note() string {
	return e.note
}

func (e *ErrWithCaller) Error() string {
	if e.note == "" {
		return fmt.Sprintf(`@ %s "%s" l%d <- %s`, e.funcname, e.file, e.line, e.err)
	}
	return fmt.Sprintf(`@ %s "%s" l%d (%s) <- %s`, e.funcname, e.file, e.line, e.note, e.err)
}

func (e *ErrWithCaller) Unwrap() error {
	return e.err
}

// Wrap annotates err with the caller. nil is passed through.
func Wrap(err error) error {
	return wrap("", err, 1)
}

// WrapAsOuter annotates err with the caller of the caller, depth frames above.
//
// It is for helpers which classify errors on behalf of their callers.
func WrapAsOuter(err error, depth int) error {
	return wrap("", err, depth+1)
}

// WrapWithNote annotates err with the caller and a note, like a kind or an id being handled.
func WrapWithNote(note string, err error) error {
	return wrap(note, err, 1)
}

func wrap(note string, err error, depth int) error {
	if err == nil {
		return nil
	}
	pc, file, line, ok := runtime.Caller(depth + 1)
	if !ok {
		file, line = "?", -1
	}
	funcname := "(unknown func)"
	if fn := runtime.FuncForPC(pc); fn != nil {
		funcname = fn.Name()
	}

	return &ErrWithCaller{
		funcname: funcname,
		file:     file,
		line:     line,
		note:     note,
		err:      err,
	}
}
