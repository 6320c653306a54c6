package audio

import (
	"io"
	"math"
	"sync"
)

const (
	sampleRate      = 48000
	channelNum      = 2
	bitDepthInBytes = 2
	samplesPerCycle = 1024
	fftSize         = 2048 // multiple of samplesPerCycle
)
const bytesPerSample = bitDepthInBytes * channelNum
const bufferSizeInBytes = samplesPerCycle * bytesPerSample // should be >= 4096
const secPerSample = 1.0 / sampleRate

// SampleRate is the rate of the engine's sample clock.
const SampleRate = sampleRate

// BlockDuration is the length of one render block in seconds. Timers
// scheduled less than a block ahead may land one block late.
const BlockDuration = float64(samplesPerCycle) / sampleRate

// Destination is the handle of the engine's output sink. It always exists.
const Destination Handle = 0

// ----- Utility ----- //

func positiveMod(a float64, b float64) float64 {
	if b < 0 {
		panic("b should not be negative")
	}
	for a < 0 {
		a += b
	}
	return math.Mod(a, b)
}

func timeOf(pos int64) float64 {
	return float64(pos) / sampleRate
}

// ----- Engine ----- //

// Engine renders a graph of audio nodes against its own sample clock.
//
// Graph mutations arrive as batches of Ops through Apply. Rendering happens in
// Read, which also runs timers scheduled with ScheduleAt.
type Engine struct {
	mu        sync.Mutex
	nodes     map[Handle]node
	inputs    map[Handle][]Handle
	expiries  map[Handle]float64
	timers    timerQueue
	timerSeq  int
	pos       int64
	suspended bool
	out       []float64 // length: fftSize
	fftResult []float64 // length: fftSize
	frame     *frame
}

var _ io.Reader = (*Engine)(nil)

// NewEngine creates a suspended engine holding only the destination node.
func NewEngine() *Engine {
	e := &Engine{
		nodes:     make(map[Handle]node),
		inputs:    make(map[Handle][]Handle),
		expiries:  make(map[Handle]float64),
		suspended: true,
		out:       make([]float64, fftSize),
		fftResult: make([]float64, fftSize),
		frame:     newFrame(),
	}
	e.nodes[Destination] = newNode(KindDestination)
	return e
}

// Resume lets the engine accept graph mutations and advance its clock.
func (e *Engine) Resume() {
	e.mu.Lock()
	e.suspended = false
	e.mu.Unlock()
}

// Suspend freezes the clock. Apply fails until Resume is called.
func (e *Engine) Suspend() {
	e.mu.Lock()
	e.suspended = true
	e.mu.Unlock()
}

// Suspended reports whether the engine is suspended.
func (e *Engine) Suspended() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.suspended
}

// CurrentTime returns the start time of the next block to render, in seconds.
func (e *Engine) CurrentTime() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return timeOf(e.pos)
}

// Has reports whether a live node exists for h.
func (e *Engine) Has(h Handle) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.nodes[h]
	return ok
}

// NodeCount returns the number of live nodes, the destination included.
func (e *Engine) NodeCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.nodes)
}

// Inputs returns the handles connected into h.
func (e *Engine) Inputs(h Handle) []Handle {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Handle(nil), e.inputs[h]...)
}

// ParamValue returns the current value of a node parameter.
func (e *Engine) ParamValue(h Handle, name string) (float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	n, ok := e.nodes[h]
	if !ok {
		return 0, false
	}
	p := n.param(name)
	if p == nil {
		return 0, false
	}
	return p.value, true
}

// Read renders interleaved 16-bit stereo PCM into buf.
// While suspended it writes silence and the clock does not move.
func (e *Engine) Read(buf []byte) (int, error) {
	samples := len(buf) / bytesPerSample
	if samples == 0 {
		return 0, nil
	}
	written := 0
	for written < samples {
		n := samples - written
		if n > samplesPerCycle {
			n = samplesPerCycle
		}
		chunk := buf[written*bytesPerSample : (written+n)*bytesPerSample]
		if e.Suspended() {
			for i := range chunk {
				chunk[i] = 0
			}
		} else {
			e.runTimers(n)
			e.renderBlock(chunk, n)
		}
		written += n
	}
	return samples * bytesPerSample, nil
}

func (e *Engine) renderBlock(buf []byte, n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t0 := timeOf(e.pos)
	out := e.frame.render(e, t0, n)
	offset := e.pos % fftSize
	for i := 0; i < n; i++ {
		if out[i] > 1 {
			out[i] = 1
		} else if out[i] < -1 {
			out[i] = -1
		}
		e.out[(offset+int64(i))%fftSize] = out[i]
	}
	writeBuffer(out[:n], buf, 0)
	writeBuffer(out[:n], buf, 1)
	e.pos += int64(n)
	e.expire(timeOf(e.pos))
}

func writeBuffer(out []float64, buf []byte, ch int) {
	for i, value := range out {
		switch bitDepthInBytes {
		case 1:
			const max = 127
			b := int(value * max)
			buf[bytesPerSample*i+ch] = byte(b + 128)
		case 2:
			const max = 32767
			b := int16(value * max)
			buf[bytesPerSample*i+2*ch] = byte(b)
			buf[bytesPerSample*i+2*ch+1] = byte(b >> 8)
		}
	}
}

// expire removes nodes whose DestroyAt time has been passed by the clock.
func (e *Engine) expire(now float64) {
	for h, at := range e.expiries {
		if at <= now {
			e.destroy(h)
		}
	}
}

func (e *Engine) destroy(h Handle) {
	delete(e.nodes, h)
	delete(e.inputs, h)
	delete(e.expiries, h)
	for k, ins := range e.inputs {
		e.inputs[k] = removeHandle(ins, h)
	}
}

func removeHandle(hs []Handle, h Handle) []Handle {
	removed := 0
	for i := 0; i < len(hs); i++ {
		if hs[i] == h {
			removed++
		} else {
			hs[i-removed] = hs[i]
		}
	}
	return hs[:len(hs)-removed]
}

// GetFFT returns the magnitude spectrum of the most recent output.
func (e *Engine) GetFFT() []float64 {
	e.mu.Lock()
	// out:       | 4 | 1 | 2 | 3 |
	// offset:        ^
	// fftResult: | 1 | 2 | 3 | 4 |
	offset := e.pos % fftSize
	copy(e.fftResult, e.out[offset:])
	copy(e.fftResult[fftSize-offset:], e.out[:offset])
	result := append([]float64(nil), e.fftResult...)
	e.mu.Unlock()
	Han(result)
	analyser.CalcAbs(result)
	for i, value := range result {
		result[i] = value * 2 / fftSize
	}
	return result[:fftSize/2]
}
