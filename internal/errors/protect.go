// Package errors provides the safety net used around user supplied code:
// panics are recovered and turned into errors carrying the stack trace.
package errors

import (
	stderrors "errors"
	"fmt"
	"runtime"

	"go.uber.org/zap"
)

// stackSize bounds the captured stack trace
const stackSize = 4096

// PanicError is produced when protected code panics
type PanicError struct {
	// Value is the value passed to panic
	Value interface{}

	// Stack is the goroutine stack captured at recovery time
	Stack []byte
}

// NewPanicError wraps a recovered value and captures the current stack
func NewPanicError(value interface{}) *PanicError {
	var buf [stackSize]byte
	n := runtime.Stack(buf[:], false)
	return &PanicError{
		Value: value,
		Stack: append([]byte(nil), buf[:n]...),
	}
}

// Error implements the error interface
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap returns the panic value when it is itself an error
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// IsPanic reports whether err was produced by a recovered panic
func IsPanic(err error) bool {
	var pe *PanicError
	return stderrors.As(err, &pe)
}

// Protect runs fn and converts a panic into a *PanicError
func Protect(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewPanicError(r)
		}
	}()

	fn()
	return nil
}

// ProtectErr runs fn and returns its error, or a *PanicError if it panicked
func ProtectErr(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewPanicError(r)
		}
	}()

	return fn()
}

// Guard runs fn under Protect and logs a failure with label as context.
// It returns true when fn completed without panicking.
func Guard(logger *zap.SugaredLogger, label string, fn func()) bool {
	err := Protect(fn)
	if err == nil {
		return true
	}

	if logger != nil {
		fields := []interface{}{"label", label, "cause", err}
		var pe *PanicError
		if stderrors.As(err, &pe) {
			fields = append(fields, "stack", string(pe.Stack))
		}
		logger.Errorw("caught unexpected error while executing "+label, fields...)
	}
	return false
}
