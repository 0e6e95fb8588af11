package compiler

import (
	"errors"
	"fmt"

	"github.com/GriffinCanCode/langvar-compiler/pkg/frontend"
)

// ErrUnsupportedCall is matched by every UnsupportedCallError.
var ErrUnsupportedCall = errors.New("unsupported function call")

// UnsupportedCallError reports a call to a function that is not a builtin.
// It aborts compilation.
type UnsupportedCallError struct {
	Call *frontend.Call
}

func (e *UnsupportedCallError) Error() string {
	return fmt.Sprintf("%v: %s: %s", e.Call.Position(), ErrUnsupportedCall, frontend.Format(e.Call))
}

func (e *UnsupportedCallError) Unwrap() error {
	return ErrUnsupportedCall
}
