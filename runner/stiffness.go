package runner

import (
	"fmt"

	"github.com/notargets/QuadHeat/element"
	"github.com/notargets/QuadHeat/partitions"
	"github.com/notargets/QuadHeat/quadrature"
	"github.com/notargets/gocca"
	"gonum.org/v1/gonum/mat"
)

// LocalMatrixSize is the number of entries of one element matrix
const LocalMatrixSize = element.NumNodes * element.NumNodes

const stiffnessKernel = `
@kernel void localStiffness(const int_t *K,
	const int_t *offsets,
	const int_t *order,
	const real_t *X,
	const real_t *kappa,
	real_t *Ke) {
	for (int part = 0; part < NPART; ++part; @outer) {
		for (int i = 0; i < KpartMax; ++i; @inner) {
			if (i < K[part]) {
				const int_t k = order[offsets[part] + i];
				const real_t *x = X + 2*NNODE*k;
				const real_t k11 = kappa[3*k];
				const real_t k12 = kappa[3*k + 1];
				const real_t k22 = kappa[3*k + 2];
				real_t ke[NNODE*NNODE];
				for (int a = 0; a < NNODE*NNODE; ++a) {
					ke[a] = REAL_ZERO;
				}
				for (int q = 0; q < NQ; ++q) {
					const real_t r = QT[q][0];
					const real_t s = QT[q][1];
					real_t dr[NNODE], ds[NNODE];
					real_t j11 = REAL_ZERO, j12 = REAL_ZERO, j21 = REAL_ZERO, j22 = REAL_ZERO;
					for (int a = 0; a < NNODE; ++a) {
						dr[a] = 0.25*CS[a][0]*(REAL_ONE + CS[a][1]*s);
						ds[a] = 0.25*CS[a][1]*(REAL_ONE + CS[a][0]*r);
						j11 += x[2*a]*dr[a];
						j12 += x[2*a]*ds[a];
						j21 += x[2*a + 1]*dr[a];
						j22 += x[2*a + 1]*ds[a];
					}
					const real_t det = j11*j22 - j12*j21;
					const real_t i11 = j22/det, i12 = -j12/det;
					const real_t i21 = -j21/det, i22 = j11/det;
					const real_t wdet = QT[q][2]*det;
					real_t gx[NNODE], gy[NNODE];
					for (int a = 0; a < NNODE; ++a) {
						gx[a] = dr[a]*i11 + ds[a]*i21;
						gy[a] = dr[a]*i12 + ds[a]*i22;
					}
					for (int a = 0; a < NNODE; ++a) {
						for (int b = 0; b < NNODE; ++b) {
							ke[a*NNODE + b] += (gx[a]*(k11*gx[b] + k12*gy[b]) +
								gy[a]*(k12*gx[b] + k22*gy[b]))*wdet;
						}
					}
				}
				for (int a = 0; a < NNODE*NNODE; ++a) {
					Ke[NNODE*NNODE*k + a] = ke[a];
				}
			}
		}
	}
}
`

// LocalStiffness computes the stiffness matrix of every element on the
// device, one @inner iteration per element of a partition. Element k's
// matrix is returned row-major in out[16k : 16k+16]. Geometry is checked
// on the host first since the kernel cannot report degenerate elements.
func LocalStiffness(device *gocca.OCCADevice, nodes [][2]float64, elements [][element.NumNodes]int,
	kappa []element.Conductivity, rule quadrature.Rule, layout *partitions.PartitionLayout) (out []float64, err error) {
	nElem := len(elements)
	if len(kappa) != nElem {
		return nil, fmt.Errorf("%d conductivities for %d elements", len(kappa), nElem)
	}
	if layout == nil || layout.TotalElements != nElem {
		return nil, fmt.Errorf("partition layout does not cover %d elements", nElem)
	}
	for k := 0; k < nElem; k++ {
		if layout.GetPartition(k) < 0 {
			return nil, fmt.Errorf("element %d is not assigned to a partition", k)
		}
	}
	if _, err = element.ComputeGeometricTransform(nodes, elements, rule); err != nil {
		return nil, err
	}

	K := make([]int, layout.NumPartitions)
	offsets := make([]int64, layout.NumPartitions)
	order := make([]int64, 0, nElem)
	for p, part := range layout.Partitions {
		K[p] = part.NumElements
		offsets[p] = int64(len(order))
		for _, k := range part.Elements {
			order = append(order, int64(k))
		}
	}

	X := make([]float64, 0, 2*element.NumNodes*nElem)
	kap := make([]float64, 0, 3*nElem)
	for k, conn := range elements {
		for _, n := range conn {
			X = append(X, nodes[n][0], nodes[n][1])
		}
		kap = append(kap, kappa[k][0][0], kappa[k][0][1], kappa[k][1][1])
	}

	kr := NewRunner(device, K)
	defer kr.Free()

	pts := rule.Tensor()
	qt := mat.NewDense(len(pts), 3, nil)
	for q, p := range pts {
		qt.SetRow(q, []float64{p.Xi1, p.Xi2, p.W})
	}
	cs := mat.NewDense(element.NumNodes, 2, nil)
	for a, s := range element.CornerSigns {
		cs.SetRow(a, s[:])
	}
	kr.StaticMatrices["QT"] = qt
	kr.StaticMatrices["CS"] = cs
	kr.Defines["NQ"] = len(pts)
	kr.Defines["NNODE"] = element.NumNodes

	kr.AllocateInt64("offsets", offsets)
	kr.AllocateInt64("order", order)
	kr.AllocateFloat64("X", X)
	kr.AllocateFloat64("kappa", kap)
	out = make([]float64, LocalMatrixSize*nElem)
	kr.AllocateFloat64("Ke", out)

	if _, err = kr.BuildKernel(stiffnessKernel, "localStiffness"); err != nil {
		return nil, err
	}
	if err = kr.RunKernel("localStiffness", "K", "offsets", "order", "X", "kappa", "Ke"); err != nil {
		return nil, err
	}
	if err = kr.CopyBack("Ke", out); err != nil {
		return nil, err
	}
	return out, nil
}
