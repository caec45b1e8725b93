// Package errors turns panics raised by callbacks into ordinary errors.
package errors

import (
	"fmt"
	"runtime/debug"
)

// PanicError represents an error recovered from a panic
type PanicError struct {
	Value      interface{} // The panic value
	Stacktrace string      // Full stack trace
}

// Error implements the error interface
func (p *PanicError) Error() string {
	return fmt.Sprintf("panic recovered: %v", p.Value)
}

// Safely runs fn and converts a panic inside it into a *PanicError.
// Returns nil if fn returned normally.
func Safely(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{
				Value:      r,
				Stacktrace: string(debug.Stack()),
			}
		}
	}()
	fn()
	return nil
}

// SafelyErr is Safely for callbacks that also return an error.
// A panic takes precedence over the returned error.
func SafelyErr(fn func() error) error {
	var inner error
	if err := Safely(func() { inner = fn() }); err != nil {
		return err
	}
	return inner
}

// FormatPanicForLog renders the panic value and stack for a plain-text log
func FormatPanicForLog(panicErr *PanicError) string {
	return fmt.Sprintf("PANIC: %v\n\nStack Trace:\n%s", panicErr.Value, panicErr.Stacktrace)
}
