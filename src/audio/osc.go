package audio

import (
	"fmt"
	"math"
)

// ----- Wave Kind ----- //

const (
	waveSine = iota
	waveTriangle
	waveSawtooth
	waveSquare
)

func waveKindFromString(s string) (int, bool) {
	switch s {
	case "sine":
		return waveSine, true
	case "triangle":
		return waveTriangle, true
	case "sawtooth":
		return waveSawtooth, true
	case "square":
		return waveSquare, true
	}
	return 0, false
}

// ----- OSC ----- //

type oscNode struct {
	kind_ int
	freq  *param
	phase float64
}

func newOscNode() *oscNode {
	return &oscNode{kind_: waveSine, freq: newParam(440)}
}

func (o *oscNode) kind() Kind { return KindOscillator }
func (o *oscNode) param(name string) *param {
	if name == ParamFrequency {
		return o.freq
	}
	return nil
}
func (o *oscNode) setType(t string) error {
	kind, ok := waveKindFromString(t)
	if !ok {
		return fmt.Errorf("unknown oscillator type %q", t)
	}
	o.kind_ = kind
	return nil
}

func (o *oscNode) process(in []float64, out []float64, t0 float64, n int) {
	for i := 0; i < n; i++ {
		freq := o.freq.step(t0 + float64(i)*secPerSample)
		out[i] = waveAt(o.kind_, o.phase)
		o.phase += 2.0 * math.Pi * freq / float64(sampleRate)
		if o.phase > 2.0*math.Pi {
			o.phase = positiveMod(o.phase, 2.0*math.Pi)
		}
	}
}

func waveAt(kind int, phase float64) float64 {
	value := 0.0
	switch kind {
	case waveSine:
		value = math.Sin(phase)
	case waveTriangle:
		p := positiveMod(phase/(2.0*math.Pi), 1)
		if p < 0.5 {
			value = p*4 - 1
		} else {
			value = p*(-4) + 3
		}
	case waveSquare:
		p := positiveMod(phase/(2.0*math.Pi), 1)
		if p < 0.5 {
			value = 1
		} else {
			value = -1
		}
	case waveSawtooth:
		p := positiveMod(phase/(2.0*math.Pi), 1)
		value = p*2 - 1
	}
	return value
}
