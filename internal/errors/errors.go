// Package errors implements registered root errors with stable numeric
// codes. Every error returned by the engine wraps one of the registered
// roots so that callers can classify failures without string matching.
package errors

import (
	"fmt"
	"reflect"

	"github.com/pkg/errors"
)

var (
	// ErrNotFound is used when a requested record does not exist.
	ErrNotFound = Register(2, "not found")

	// ErrInvalidInput stands for general input problems.
	ErrInvalidInput = Register(3, "invalid input")

	// ErrDuplicate is returned when a record with the same key already exists.
	ErrDuplicate = Register(4, "duplicate")

	// ErrInvalidState is returned when persisted state cannot be used.
	ErrInvalidState = Register(5, "invalid state")

	// ErrInsufficientAmount is returned when an account cannot cover a debit.
	ErrInsufficientAmount = Register(7, "insufficient amount")

	// ErrPanic is only set when we recover from a panic.
	ErrPanic = Register(111222, "panic")
)

// Register returns an error instance that should be used as the base for
// creating error instances during runtime.
//
// This function ensures that no error code is used twice. Attempt to reuse
// an error code results in panic. Use it only during program startup.
func Register(code uint32, description string) *Error {
	if e, ok := usedCodes[code]; ok {
		panic(fmt.Sprintf("error with code %d is already registered: %q", code, e.desc))
	}
	err := &Error{
		code: code,
		desc: description,
	}
	usedCodes[err.code] = err
	return err
}

// usedCodes keeps track of used codes to ensure their uniqueness.
var usedCodes = map[uint32]*Error{
	1: nil, // code 1 is reserved for errors that do not wrap a registered root
}

// Error represents a root error.
type Error struct {
	code uint32
	desc string
}

func (e Error) Error() string {
	return e.desc
}

// Code returns the stable numeric code of the root error.
func (e Error) Code() uint32 {
	return e.code
}

// New returns a new error with the root cause set to this error.
//
//	e.New("my description")
//	Wrap(e, "my description")
//
// are equal.
func (e *Error) New(description string) error {
	return Wrap(e, description)
}

// Newf is New with formatting capabilities.
func (e *Error) Newf(description string, args ...interface{}) error {
	return e.New(fmt.Sprintf(description, args...))
}

// Is checks if given error instance is of a given kind. This involves
// unwrapping given error using the Cause or Unwrap method if available.
func (kind *Error) Is(err error) bool {
	// Reflect usage is necessary to correctly compare with
	// a nil implementation of an error.
	if kind == nil {
		if err == nil {
			return true
		}
		return reflect.ValueOf(err).IsNil()
	}

	for {
		if err == kind {
			return true
		}

		if err = parent(err); err == nil {
			return false
		}
	}
}

// Wrap extends given error with an additional information.
//
// If err is nil, this returns nil.
func Wrap(err error, description string) error {
	if err == nil {
		return nil
	}

	// Attach a stacktrace once, at the most inner wrap.
	if stackTrace(err) == nil {
		err = errors.WithStack(err)
	}

	return &wrappedError{
		parent: err,
		msg:    description,
	}
}

// Wrapf works like Wrap with formatting of the description.
func Wrapf(err error, format string, args ...interface{}) error {
	desc := fmt.Sprintf(format, args...)
	return Wrap(err, desc)
}

type wrappedError struct {
	msg    string
	parent error
}

func (e *wrappedError) Error() string {
	return fmt.Sprintf("%s: %s", e.msg, e.parent.Error())
}

func (e *wrappedError) Cause() error {
	return e.parent
}

func (e *wrappedError) Unwrap() error {
	return e.parent
}

// Recover captures a panic and stops its propagation. Call it using defer.
func Recover(err *error) {
	if r := recover(); r != nil {
		*err = Wrapf(ErrPanic, "%v", r)
	}
}

// Root returns the registered root error of err, or nil if err does not
// wrap one.
func Root(err error) *Error {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e
		}
		err = parent(err)
	}
	return nil
}

// CodeOf returns the code of the registered root error of err. Errors that
// do not wrap a registered root return 1.
func CodeOf(err error) uint32 {
	if err == nil {
		return 0
	}
	if root := Root(err); root != nil {
		return root.code
	}
	return 1
}

// causer is implemented by an error that supports wrapping.
type causer interface {
	Cause() error
}

// parent returns the error err wraps, preferring Cause over Unwrap so that
// fmt.Errorf("%w") chains resolve like Wrap chains.
func parent(err error) error {
	switch e := err.(type) {
	case causer:
		return e.Cause()
	case interface{ Unwrap() error }:
		return e.Unwrap()
	}
	return nil
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

func stackTrace(err error) errors.StackTrace {
	for {
		if st, ok := err.(stackTracer); ok {
			return st.StackTrace()
		}
		if c, ok := err.(causer); ok {
			err = c.Cause()
		} else {
			return nil
		}
	}
}
