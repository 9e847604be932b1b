package solver

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ErrSingularSystem reports a matrix that could not be factorized
var ErrSingularSystem = errors.New("singular system")

// Matrix is the sparse operator the solver reads. Entries not visited by
// DoNonZero are zero.
type Matrix interface {
	Dims() (r, c int)
	DoNonZero(fn func(i, j int, v float64))
}

type Method uint8

const (
	BandCholesky Method = iota // symmetric positive definite, banded storage
	DenseLU                    // general fallback
)

func (m Method) String() string {
	switch m {
	case BandCholesky:
		return "cholesky"
	case DenseLU:
		return "lu"
	}
	return fmt.Sprintf("Method(%d)", uint8(m))
}

// ParseMethod accepts the names returned by Method.String
func ParseMethod(name string) (Method, error) {
	for _, m := range []Method{BandCholesky, DenseLU} {
		if m.String() == name {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown solver method %q", name)
}

type Options struct {
	Method  Method
	Verbose bool
}

// Solve returns D with K·D = F. K must be square with len(F) rows. A
// factorization failure is reported as ErrSingularSystem and never retried.
func Solve(K Matrix, F []float64, opts Options) (D []float64, err error) {
	n, c := K.Dims()
	if n != c {
		return nil, fmt.Errorf("matrix is %d x %d, not square", n, c)
	}
	if len(F) != n {
		return nil, fmt.Errorf("right hand side has %d entries, matrix %d rows", len(F), n)
	}
	if n == 0 {
		return []float64{}, nil
	}
	switch opts.Method {
	case BandCholesky:
		D, err = solveBandCholesky(K, F, opts.Verbose)
	case DenseLU:
		D, err = solveLU(K, F, opts.Verbose)
	default:
		err = fmt.Errorf("unknown solver method %v", opts.Method)
	}
	return
}

// Bandwidth is max |i - j| over the stored entries
func Bandwidth(K Matrix) (bw int) {
	K.DoNonZero(func(i, j int, _ float64) {
		if d := abs(i - j); d > bw {
			bw = d
		}
	})
	return
}

func solveBandCholesky(K Matrix, F []float64, verbose bool) ([]float64, error) {
	n, _ := K.Dims()
	bw := Bandwidth(K)
	A := mat.NewSymBandDense(n, bw, nil)
	K.DoNonZero(func(i, j int, v float64) {
		if j >= i {
			A.SetSymBand(i, j, v)
		}
	})
	var ch mat.BandCholesky
	if ok := ch.Factorize(A); !ok {
		return nil, fmt.Errorf("%w: banded Cholesky factorization failed (n=%d, bandwidth %d)",
			ErrSingularSystem, n, bw)
	}
	if verbose {
		fmt.Printf("Banded Cholesky: n=%d, bandwidth %d, condition estimate %.3g\n",
			n, bw, ch.Cond())
	}
	D := mat.NewVecDense(n, nil)
	if err := ch.SolveVecTo(D, mat.NewVecDense(n, append([]float64(nil), F...))); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingularSystem, err)
	}
	return D.RawVector().Data, nil
}

func solveLU(K Matrix, F []float64, verbose bool) ([]float64, error) {
	n, _ := K.Dims()
	A := mat.NewDense(n, n, nil)
	K.DoNonZero(func(i, j int, v float64) {
		A.Set(i, j, v)
	})
	var lu mat.LU
	lu.Factorize(A)
	if cond := lu.Cond(); math.IsInf(cond, 1) || math.IsNaN(cond) {
		return nil, fmt.Errorf("%w: LU factorization is singular (n=%d)", ErrSingularSystem, n)
	}
	if verbose {
		fmt.Printf("Dense LU: n=%d, condition estimate %.3g\n", n, lu.Cond())
	}
	D := mat.NewVecDense(n, nil)
	if err := lu.SolveVecTo(D, false, mat.NewVecDense(n, append([]float64(nil), F...))); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingularSystem, err)
	}
	return D.RawVector().Data, nil
}

// Residual returns max |K·D - F|
func Residual(K Matrix, D, F []float64) float64 {
	r := make([]float64, len(F))
	K.DoNonZero(func(i, j int, v float64) {
		r[i] += v * D[j]
	})
	floats.Sub(r, F)
	return floats.Norm(r, math.Inf(1))
}

func abs(i int) int {
	if i < 0 {
		return -i
	}
	return i
}
