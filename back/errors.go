package back

import (
	"errors"

	"github.com/gogpu/shadercross/ir"
)

// AtEntryPoint attaches the entry point index to err when it is an
// *ir.Error without one.
func AtEntryPoint(err error, entry int) error {
	var e *ir.Error
	if errors.As(err, &e) {
		e.WithEntryPoint(entry)
	}
	return err
}

// AtFunction attaches the function handle to err when it is an *ir.Error
// without one.
func AtFunction(err error, h ir.FunctionHandle) error {
	var e *ir.Error
	if errors.As(err, &e) {
		e.WithFunction(h)
	}
	return err
}
