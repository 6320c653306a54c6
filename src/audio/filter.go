package audio

import (
	"fmt"
	"math"
)

// ----- Filter Kind ----- //

const (
	filterLowpass = iota
	filterHighpass
	filterBandpass
	filterNotch
	filterAllpass
	filterPeaking
	filterLowshelf
	filterHighshelf
)

var filterKinds = map[string]int{
	"lowpass":   filterLowpass,
	"highpass":  filterHighpass,
	"bandpass":  filterBandpass,
	"notch":     filterNotch,
	"allpass":   filterAllpass,
	"peaking":   filterPeaking,
	"lowshelf":  filterLowshelf,
	"highshelf": filterHighshelf,
}

// biquadH returns normalized feedforward (a) and feedback (b) coefficients.
// Formulas from RBJ's audio EQ cookbook; fc is relative to the sample rate.
func biquadH(kind int, fc float64, q float64, dBgain float64) ([]float64, []float64) {
	w0 := 2 * math.Pi * fc
	cos := math.Cos(w0)
	sin := math.Sin(w0)
	alpha := sin / (2 * q)
	A := math.Pow(10, dBgain/40)
	sqrtA2alpha := 2 * math.Sqrt(A) * alpha

	var b0, b1, b2, a0, a1, a2 float64
	switch kind {
	case filterLowpass:
		b0, b1, b2 = (1-cos)/2, 1-cos, (1-cos)/2
		a0, a1, a2 = 1+alpha, -2*cos, 1-alpha
	case filterHighpass:
		b0, b1, b2 = (1+cos)/2, -(1 + cos), (1+cos)/2
		a0, a1, a2 = 1+alpha, -2*cos, 1-alpha
	case filterBandpass:
		b0, b1, b2 = alpha, 0, -alpha
		a0, a1, a2 = 1+alpha, -2*cos, 1-alpha
	case filterNotch:
		b0, b1, b2 = 1, -2*cos, 1
		a0, a1, a2 = 1+alpha, -2*cos, 1-alpha
	case filterAllpass:
		b0, b1, b2 = 1-alpha, -2*cos, 1+alpha
		a0, a1, a2 = 1+alpha, -2*cos, 1-alpha
	case filterPeaking:
		b0, b1, b2 = 1+alpha*A, -2*cos, 1-alpha*A
		a0, a1, a2 = 1+alpha/A, -2*cos, 1-alpha/A
	case filterLowshelf:
		b0 = A * ((A + 1) - (A-1)*cos + sqrtA2alpha)
		b1 = 2 * A * ((A - 1) - (A+1)*cos)
		b2 = A * ((A + 1) - (A-1)*cos - sqrtA2alpha)
		a0 = (A + 1) + (A-1)*cos + sqrtA2alpha
		a1 = -2 * ((A - 1) + (A+1)*cos)
		a2 = (A + 1) + (A-1)*cos - sqrtA2alpha
	case filterHighshelf:
		b0 = A * ((A + 1) + (A-1)*cos + sqrtA2alpha)
		b1 = -2 * A * ((A - 1) + (A+1)*cos)
		b2 = A * ((A + 1) + (A-1)*cos - sqrtA2alpha)
		a0 = (A + 1) - (A-1)*cos + sqrtA2alpha
		a1 = 2 * ((A - 1) - (A+1)*cos)
		a2 = (A + 1) - (A-1)*cos - sqrtA2alpha
	default:
		return []float64{1}, []float64{}
	}
	return []float64{b0 / a0, b1 / a0, b2 / a0}, []float64{a1 / a0, a2 / a0}
}

func processFilterEach(in float64, a []float64, b []float64, past []float64) float64 {
	// apply b
	for j := 0; j < len(b); j++ {
		in -= past[j] * b[j]
	}
	// apply a
	o := in * a[0]
	for j := 1; j < len(a); j++ {
		o += past[j-1] * a[j]
	}
	// unshift past
	for j := len(past) - 2; j >= 0; j-- {
		past[j+1] = past[j]
	}
	if len(past) > 0 {
		past[0] = in
	}
	return o
}

// ----- Biquad ----- //

type biquadNode struct {
	kind_ int
	freq  *param
	q     *param
	gain  *param // dB
	a     []float64
	b     []float64
	past  []float64
	// inputs of the cached coefficients
	hKind int
	hFreq float64
	hQ    float64
	hGain float64
}

func newBiquadNode() *biquadNode {
	return &biquadNode{
		kind_: filterLowpass,
		freq:  newParam(350),
		q:     newParam(1),
		gain:  newParam(0),
		past:  make([]float64, 2),
		hKind: -1,
	}
}

func (f *biquadNode) kind() Kind { return KindBiquadFilter }
func (f *biquadNode) param(name string) *param {
	switch name {
	case ParamFrequency:
		return f.freq
	case ParamQ:
		return f.q
	case ParamGain:
		return f.gain
	}
	return nil
}
func (f *biquadNode) setType(t string) error {
	kind, ok := filterKinds[t]
	if !ok {
		return fmt.Errorf("unknown filter type %q", t)
	}
	f.kind_ = kind
	return nil
}

// coefficients are refreshed once per block; the filter memory is kept so a
// parameter change does not click.
func (f *biquadNode) process(in []float64, out []float64, t0 float64, n int) {
	freq := f.freq.step(t0)
	q := f.q.step(t0)
	gain := f.gain.step(t0)
	if f.kind_ != f.hKind || freq != f.hFreq || q != f.hQ || gain != f.hGain {
		f.a, f.b = biquadH(f.kind_, freq/sampleRate, q, gain)
		f.hKind, f.hFreq, f.hQ, f.hGain = f.kind_, freq, q, gain
	}
	for i := 0; i < n; i++ {
		out[i] = processFilterEach(in[i], f.a, f.b, f.past)
	}
}
