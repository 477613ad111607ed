// Package calibfit fits a batch of raw accelerometer samples, gathered across
// many device orientations, to an ellipsoid. The result is an additive bias
// and a symmetric scale/cross-axis correction matrix: for a raw sample v,
// m·(v-bias) lies on the unit sphere.
package calibfit

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// MinSamples is the smallest batch the 9-parameter fit accepts.
const MinSamples = 10

// Fit solves the ellipsoid least-squares problem for the sample batch.
// It returns an error when samples are too few or too degenerate to pin down
// an ellipsoid (all near one point or one plane).
func Fit(samples [][3]float64) (bias [3]float64, m [3][3]float64, err error) {
	n := len(samples)
	if n < MinSamples {
		return bias, m, fmt.Errorf("calibfit: need at least %d samples, got %d", MinSamples, n)
	}

	// Quadric model: x'Mx + n'x = 1 with M symmetric. Nine unknowns
	// [m11 m22 m33 m12 m13 m23 n1 n2 n3] solved least-squares against a
	// column of ones.
	d := mat.NewDense(n, 9, nil)
	ones := mat.NewVecDense(n, nil)
	for i, s := range samples {
		x, y, z := s[0], s[1], s[2]
		d.Set(i, 0, x*x)
		d.Set(i, 1, y*y)
		d.Set(i, 2, z*z)
		d.Set(i, 3, 2*x*y)
		d.Set(i, 4, 2*x*z)
		d.Set(i, 5, 2*y*z)
		d.Set(i, 6, x)
		d.Set(i, 7, y)
		d.Set(i, 8, z)
		ones.SetVec(i, 1)
	}

	var p mat.Dense
	if err := p.Solve(d, ones); err != nil {
		return bias, m, fmt.Errorf("calibfit: degenerate sample batch: %w", err)
	}

	q := mat.NewSymDense(3, []float64{
		p.At(0, 0), p.At(3, 0), p.At(4, 0),
		p.At(3, 0), p.At(1, 0), p.At(5, 0),
		p.At(4, 0), p.At(5, 0), p.At(2, 0),
	})
	nv := mat.NewVecDense(3, []float64{p.At(6, 0), p.At(7, 0), p.At(8, 0)})

	// Center: b = -1/2 * M^-1 * n.
	var qInv mat.Dense
	if err := qInv.Inverse(q); err != nil {
		return bias, m, fmt.Errorf("calibfit: singular quadric: %w", err)
	}
	var center mat.VecDense
	center.MulVec(&qInv, nv)
	center.ScaleVec(-0.5, &center)

	// Radius term: (v-b)'M(v-b) = 1 + b'Mb for every v on the quadric.
	r2 := 1 + mat.Inner(&center, q, &center)
	if r2 <= 0 || math.IsNaN(r2) {
		return bias, m, fmt.Errorf("calibfit: fit is not an ellipsoid (r2=%v)", r2)
	}

	// Correction is the matrix square root of M scaled so corrected samples
	// land on the unit sphere.
	var es mat.EigenSym
	if !es.Factorize(q, true) {
		return bias, m, fmt.Errorf("calibfit: eigendecomposition failed")
	}
	vals := es.Values(nil)
	for _, v := range vals {
		if v <= 0 || math.IsNaN(v) {
			return bias, m, fmt.Errorf("calibfit: fit is not an ellipsoid (eigenvalue %v)", v)
		}
	}
	var vecs mat.Dense
	es.VectorsTo(&vecs)

	sqrtVals := mat.NewDiagDense(3, []float64{
		math.Sqrt(vals[0]), math.Sqrt(vals[1]), math.Sqrt(vals[2]),
	})
	var tmp, root mat.Dense
	tmp.Mul(&vecs, sqrtVals)
	root.Mul(&tmp, vecs.T())
	root.Scale(1/math.Sqrt(r2), &root)

	for i := 0; i < 3; i++ {
		bias[i] = center.AtVec(i)
		for j := 0; j < 3; j++ {
			m[i][j] = root.At(i, j)
		}
	}
	return bias, m, nil
}

// Apply returns m·(v-bias) for a raw sample v.
func Apply(bias [3]float64, m [3][3]float64, v [3]float64) [3]float64 {
	var d [3]float64
	for i := 0; i < 3; i++ {
		d[i] = v[i] - bias[i]
	}
	var out [3]float64
	for i := 0; i < 3; i++ {
		out[i] = m[i][0]*d[0] + m[i][1]*d[1] + m[i][2]*d[2]
	}
	return out
}
