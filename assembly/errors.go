package assembly

import (
	"errors"
	"fmt"
)

// ErrIndexOutOfRange reports an element referencing a node that does not
// exist, or a scatter outside the sparsity pattern
var ErrIndexOutOfRange = errors.New("index out of range")

// ElementError ties a failure to the element that caused it
type ElementError struct {
	Element int
	Err     error
}

func (e *ElementError) Error() string {
	return fmt.Sprintf("element %d: %v", e.Element, e.Err)
}

func (e *ElementError) Unwrap() error { return e.Err }

// firstError returns the failure of the lowest numbered element, so the
// reported error does not depend on scheduling
func firstError(errs []error) (first error) {
	lowest := -1
	for _, err := range errs {
		if err == nil {
			continue
		}
		var ee *ElementError
		if errors.As(err, &ee) {
			if lowest < 0 || ee.Element < lowest {
				lowest, first = ee.Element, err
			}
		} else if first == nil {
			first = err
		}
	}
	return
}
