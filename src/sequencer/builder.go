package sequencer

import (
	"github.com/jinjor/desktop-sequencer/src/audio"
	"github.com/jinjor/desktop-sequencer/src/graph"
)

// VoiceGain is the peak amplitude of one voice. Eight voices at this level
// sum to less than full scale.
const VoiceGain = 0.2

// DelayFilterCutoff is the lowpass cutoff in the delay feedback loop, in Hz.
const DelayFilterCutoff = 400

// Keys of the nodes that live across ticks.
const (
	KeyDelay         = "delay"
	KeyDelayFeedback = "delay-feedback"
	KeyDelayFilter   = "delay-filter"
	KeyMaster        = "master"
)

// BuildGraph declares the graph for one step: a voice for every row active
// at step, plus the bus they feed. It is a pure function of its inputs.
func BuildGraph(t float64, step int, rows []Row, synth Synth) graph.Graph {
	var nodes []graph.Node
	for _, row := range rows {
		if step < 0 || step >= len(row.Steps) || !row.Steps[step] {
			continue
		}
		nodes = append(nodes, voice(t, row.Note, synth))
	}
	return graph.Graph{Time: t, Nodes: append(nodes, bus(synth)...)}
}

// BuildBus declares only the persistent part of the graph. Reconciling it
// updates the bus without triggering voices.
func BuildBus(t float64, synth Synth) graph.Graph {
	return graph.Graph{Time: t, Nodes: bus(synth)}
}

// Graph declares the graph for the model's current step.
func (m Model) Graph() graph.Graph {
	return BuildGraph(m.CurrentTime, m.Sequencer.Step, m.Sequencer.Rows, m.Synth)
}

func voice(t float64, freq float64, synth Synth) graph.Node {
	envelope := graph.Gain(graph.Ref(KeyDelay), graph.Ref(KeyMaster)).
		Static(audio.ParamGain, 0).
		LinearRampToValueAtTime(audio.ParamGain, VoiceGain, t+synth.Attack).
		LinearRampToValueAtTime(audio.ParamGain, 0, t+synth.Attack+synth.Decay)
	return graph.Oscillator(envelope).
		OfType(string(synth.Waveform)).
		Static(audio.ParamFrequency, freq)
}

func bus(synth Synth) []graph.Node {
	filter := graph.BiquadFilter(graph.Ref(KeyDelay), graph.Ref(KeyMaster)).
		Keyed(KeyDelayFilter).
		OfType("lowpass").
		Static(audio.ParamFrequency, DelayFilterCutoff)
	feedback := graph.Gain(filter).
		Keyed(KeyDelayFeedback).
		Static(audio.ParamGain, synth.DelayAmount)
	delay := graph.Delay(feedback).
		Keyed(KeyDelay).
		Static(audio.ParamDelayTime, synth.DelayTime)
	master := graph.Gain(graph.Destination()).
		Keyed(KeyMaster).
		Static(audio.ParamGain, synth.MasterGain)
	return []graph.Node{delay, master}
}
