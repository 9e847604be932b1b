package diffusion

import (
	"errors"
	"fmt"

	"github.com/notargets/QuadHeat/assembly"
	"github.com/notargets/QuadHeat/bcs"
	"github.com/notargets/QuadHeat/element"
	"github.com/notargets/QuadHeat/solver"
)

// ErrInvalidInput tags configuration and input data problems
var ErrInvalidInput = errors.New("invalid input")

// Kind classifies the outcome of a run
type Kind uint8

const (
	Success Kind = iota
	InvalidInput
	DegenerateGeometry
	IndexOutOfRange
	Unconstrained
	SingularSystem
)

var kindNames = [...]string{
	Success:            "Success",
	InvalidInput:       "InvalidInput",
	DegenerateGeometry: "DegenerateGeometry",
	IndexOutOfRange:    "IndexOutOfRange",
	Unconstrained:      "Unconstrained",
	SingularSystem:     "SingularSystem",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// KindOf maps an error from any stage of a run to its Kind. Errors that
// carry no known sentinel count as invalid input.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return Success
	case errors.Is(err, element.ErrDegenerateGeometry):
		return DegenerateGeometry
	case errors.Is(err, assembly.ErrIndexOutOfRange):
		return IndexOutOfRange
	case errors.Is(err, bcs.ErrUnconstrained):
		return Unconstrained
	case errors.Is(err, solver.ErrSingularSystem):
		return SingularSystem
	}
	return InvalidInput
}
