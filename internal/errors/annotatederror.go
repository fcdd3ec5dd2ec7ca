package errors

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
)

// AnnotatedError includes more context than a plain error that is useful for troubleshooting.
type AnnotatedError struct {
	// msg is the error message.
	msg string
	// pc is the program counter for the location of the error provided by runtime.Callers.
	pc uintptr
	// attrs are slog attributes that are added to the log event to provide more context for the error.
	attrs []slog.Attr
}

// New creates a new AnnotatedError with the given message and attributes.
func New(msg string, attrs ...slog.Attr) AnnotatedError {
	// Skip runtime.Callers, newAnnotated, and this function.
	return newAnnotated(3, msg, attrs) //nolint:mnd // see above
}

func newAnnotated(skip int, msg string, attrs []slog.Attr) AnnotatedError {
	var pcs [1]uintptr
	runtime.Callers(skip, pcs[:])
	return AnnotatedError{
		msg:   msg,
		pc:    pcs[0],
		attrs: attrs,
	}
}

// NewSentinel creates a plain error without other context that can be used as sentinel error that can be detected
// with errors.Is.
func NewSentinel(msg string) error {
	return errors.New(msg)
}

// Wrap is a convenience function for wrapping errors, e.g., adding context to a sentinel error.
func (err AnnotatedError) Wrap(wrapped error) error {
	return fmt.Errorf("%w: %w", err, wrapped)
}

// Wrap annotates err with msg, the caller's source location, and optional slog attributes.
//
// The returned error matches err with [Is] and [As].
func Wrap(err error, msg string, attrs ...slog.Attr) error {
	// Skip runtime.Callers, newAnnotated, and this function.
	return newAnnotated(3, msg, attrs).Wrap(err) //nolint:mnd // see above
}

// Error implements error interface.
func (err AnnotatedError) Error() string {
	return err.msg
}

// LogValue formats the error for useful logging.
func (err AnnotatedError) LogValue() slog.Value {
	// Retrieve the source location of the error so that developers can locate it faster.
	frames := runtime.CallersFrames([]uintptr{err.pc})
	source, _ := frames.Next()
	sourceAttr := slog.String("source", fmt.Sprintf("%s:%d", source.File, source.Line))

	attrs := append(
		[]slog.Attr{sourceAttr},
		err.attrs...,
	)

	return slog.GroupValue(attrs...)
}

// SlogError returns a slog attribute holding the error message and the annotations found in the error chain.
func SlogError(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	attrs := []slog.Attr{slog.String("msg", err.Error())}
	for i, annotated := range annotations(err) {
		attrs = append(attrs, slog.Any(fmt.Sprintf("trace%d", i), annotated))
	}
	return slog.Attr{Key: "error", Value: slog.GroupValue(attrs...)}
}

// annotations collects the AnnotatedErrors from the error tree in depth-first order.
func annotations(err error) []AnnotatedError {
	var result []AnnotatedError
	var walk func(error)
	walk = func(e error) {
		if e == nil {
			return
		}
		if annotated, ok := e.(AnnotatedError); ok { //nolint:errorlint // we walk the tree manually
			result = append(result, annotated)
			return
		}
		switch unwrapper := e.(type) { //nolint:errorlint // we walk the tree manually
		case interface{ Unwrap() []error }:
			for _, child := range unwrapper.Unwrap() {
				walk(child)
			}
		case interface{ Unwrap() error }:
			walk(unwrapper.Unwrap())
		}
	}
	walk(err)
	return result
}

// As exposes stdlib errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Is exposes stdlib errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// Unwrap exposes stdlib errors.Unwrap.
func Unwrap(err error) error {
	return errors.Unwrap(err)
}

// Join exposes stdlib errors.Join.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
