package driver

import (
	"fmt"

	"weld/internal/diag"
)

// FatalError stops the whole build. The diagnostic describing it has
// already been reported when a FatalError is returned.
type FatalError struct {
	Code   diag.Code
	Module string
	Err    error
}

func (e *FatalError) Error() string {
	if e.Module == "" {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Module, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }
