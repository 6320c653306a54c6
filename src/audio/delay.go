package audio

// ----- Delay ----- //

const maxDelayTime = 5.0 // sec

// delayNode reads its output from history before the block's input is
// written, so it is the only node allowed inside a feedback cycle. Delays
// shorter than one render block are clamped to one block.
type delayNode struct {
	delayTime *param
	cursor    int
	past      []float64
}

func newDelayNode() *delayNode {
	return &delayNode{
		delayTime: newParam(0),
		past:      make([]float64, int(sampleRate*maxDelayTime)+samplesPerCycle),
	}
}

func (d *delayNode) kind() Kind { return KindDelay }
func (d *delayNode) param(name string) *param {
	if name == ParamDelayTime {
		return d.delayTime
	}
	return nil
}
func (d *delayNode) setType(t string) error {
	return errNoType
}
func (d *delayNode) process(in []float64, out []float64, t0 float64, n int) {
	d.read(out, t0, n)
	d.write(in, n)
}

func (d *delayNode) read(out []float64, t0 float64, n int) {
	for i := 0; i < n; i++ {
		length := int(d.delayTime.step(t0+float64(i)*secPerSample) * sampleRate)
		if length < samplesPerCycle {
			length = samplesPerCycle
		}
		if length > len(d.past)-samplesPerCycle {
			length = len(d.past) - samplesPerCycle
		}
		index := d.cursor + i - length
		for index < 0 {
			index += len(d.past)
		}
		out[i] = d.past[index%len(d.past)]
	}
}

func (d *delayNode) write(in []float64, n int) {
	for i := 0; i < n; i++ {
		d.past[d.cursor] = in[i]
		d.cursor++
		if d.cursor >= len(d.past) {
			d.cursor = 0
		}
	}
}
