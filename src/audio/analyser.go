package audio

import (
	"log"
	"math"
	"math/cmplx"
)

var analyser = NewFFT(fftSize)

// FFT is a radix-2 transform of a fixed length.
type FFT struct {
	bitReverseTable []int
	wTable          []complex128
}

// NewFFT prepares tables for transforms of length n, a power of two.
func NewFFT(n int) *FFT {
	fft := &FFT{
		bitReverseTable: make([]int, n),
		wTable:          make([]complex128, n),
	}
	w := -2.0 * math.Pi / float64(n)
	for i := 0; i < n; i++ {
		fft.bitReverseTable[i] = bitReverse(i, n)
		fft.wTable[i] = cmplx.Exp(complex(0, w*float64(i)))
	}
	return fft
}

func bitReverse(k, n int) int {
	m := 0
	for ; n > 1; n = n >> 1 {
		m = m<<1 + k&1
		k = k >> 1
	}
	return m
}

// Calc transforms x in place.
func (fft *FFT) Calc(x []complex128) {
	n := len(x)
	if n != len(fft.bitReverseTable) {
		log.Panicf("length should be %v", len(fft.bitReverseTable))
	}
	for i := 0; i < n; i++ {
		rev := fft.bitReverseTable[i]
		if i < rev {
			x[i], x[rev] = x[rev], x[i]
		}
	}
	for m := 1; m < n; m = m << 1 {
		step := m << 1
		for k := 0; k < m; k++ {
			w := fft.wTable[n/step*k]
			for i := k; i < n; i += step {
				j := i + m
				tmp := x[j] * w
				x[j] = x[i] - tmp
				x[i] = x[i] + tmp
			}
		}
	}
}

// CalcAbs replaces the real signal x with the magnitudes of its spectrum.
func (fft *FFT) CalcAbs(x []float64) {
	cx := make([]complex128, len(x))
	for i, v := range x {
		cx[i] = complex(v, 0)
	}
	fft.Calc(cx)
	for i := range x {
		x[i] = cmplx.Abs(cx[i])
	}
}

// Han applies a Hann window in place.
func Han(data []float64) {
	n := len(data)
	for i := 0; i < n; i++ {
		x := float64(i) / float64(n)
		data[i] *= 0.5 - 0.5*math.Cos(2.0*math.Pi*x)
	}
}
