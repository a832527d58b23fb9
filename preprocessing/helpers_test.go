package preprocessing_test

import "gonum.org/v1/gonum/mat"

func rowOf(m mat.Matrix, i int) []float64 {
	_, c := m.Dims()
	out := make([]float64, c)
	for j := range out {
		out[j] = m.At(i, j)
	}
	return out
}
