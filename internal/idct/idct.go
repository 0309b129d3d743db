// Package idct performs the 8x8 inverse type-III discrete cosine
// transform used to turn a dequantized JPEG data unit's frequency
// coefficients back into spatial-domain samples.
package idct

import "math"

const size = 8

// cosTable[k][n] = C(k) * cos((2n+1)*k*pi/16), with C(0) = 1/sqrt(2) and
// C(k != 0) = 1. Precomputing it once lets the transform itself be a
// pair of matrix multiplications instead of 4096 cosine evaluations per
// block.
var cosTable [size][size]float64

func init() {
	for k := 0; k < size; k++ {
		c := 1.0
		if k == 0 {
			c = 1 / math.Sqrt2
		}
		for n := 0; n < size; n++ {
			cosTable[k][n] = c * math.Cos(float64(2*n+1) * float64(k) * math.Pi / 16)
		}
	}
}

// Transform computes f(x,y) = 1/4 * sum_u sum_v C(u)C(v) F(u,v) *
// cos((2x+1)u*pi/16) * cos((2y+1)v*pi/16) for an 8x8 block of
// dequantized coefficients F given in natural (row-major) order, u and v
// indexing rows and columns respectively. The result is row-major
// spatial-domain samples, still centered at zero (no level shift).
//
// The 2D sum separates into a column pass followed by a row pass, which
// is the same transform a two-dimensional REDFT01 would produce, just
// evaluated directly rather than via a fast-transform butterfly.
func Transform(coeffs [size * size]float64) [size * size]float64 {
	var tmp [size][size]float64
	for u := 0; u < size; u++ {
		for y := 0; y < size; y++ {
			var sum float64
			for v := 0; v < size; v++ {
				sum += coeffs[u*size+v] * cosTable[v][y]
			}
			tmp[u][y] = sum
		}
	}

	var out [size * size]float64
	for x := 0; x < size; x++ {
		for y := 0; y < size; y++ {
			var sum float64
			for u := 0; u < size; u++ {
				sum += tmp[u][y] * cosTable[u][x]
			}
			out[x*size+y] = 0.25 * sum
		}
	}
	return out
}
