package sequencer

import (
	"reflect"
	"testing"

	"github.com/jinjor/desktop-sequencer/src/audio"
	"github.com/jinjor/desktop-sequencer/src/graph"
)

func voices(g graph.Graph) []graph.Node {
	var result []graph.Node
	for _, n := range g.Nodes {
		if n.Kind == audio.KindOscillator {
			result = append(result, n)
		}
	}
	return result
}

func findKeyed(nodes []graph.Node, key string) (graph.Node, bool) {
	for _, n := range nodes {
		if n.Key == key {
			return n, true
		}
		if found, ok := findKeyed(n.Children, key); ok {
			return found, true
		}
	}
	return graph.Node{}, false
}

func TestBuildGraphIsDeterministic(t *testing.T) {
	m := newTestModel(t, 8)
	m = mustUpdate(t, ToggleStep{Note: "C5", Step: 2}, m)
	m = mustUpdate(t, ToggleStep{Note: "G4", Step: 2}, m)
	a := BuildGraph(4.5, 2, m.Sequencer.Rows, m.Synth)
	b := BuildGraph(4.5, 2, m.Sequencer.Rows, m.Synth)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("expected identical graphs, but got %+v and %+v", a, b)
	}
	expectEqual(t, len(voices(a)), 2)
	expectNoError(t, graph.Validate(a))
}

func TestInactiveStepsEmitNoVoice(t *testing.T) {
	m := newTestModel(t, 8)
	m = mustUpdate(t, ToggleStep{Note: "C5", Step: 2}, m)
	g := BuildGraph(1, 3, m.Sequencer.Rows, m.Synth)
	expectEqual(t, len(voices(g)), 0)
	if !reflect.DeepEqual(g, BuildBus(1, m.Synth)) {
		t.Errorf("expected only the bus, but got %+v", g)
	}
}

func TestVoiceEnvelope(t *testing.T) {
	m := newTestModel(t, 8)
	m = mustUpdate(t, ToggleStep{Note: "A4", Step: 0}, m)
	at := 3.0
	g := BuildGraph(at, 0, m.Sequencer.Rows, m.Synth)
	vs := voices(g)
	expectEqual(t, len(vs), 1)
	osc := vs[0]
	expectEqual(t, osc.Key, "")
	expectEqual(t, osc.Type, "sine")
	expectNearlyEqual(t, osc.Params[audio.ParamFrequency].Value, 440)
	expectEqual(t, len(osc.Children), 1)

	env := osc.Children[0]
	expectEqual(t, env.Kind, audio.KindGain)
	expectEqual(t, env.Key, "")
	gain := env.Params[audio.ParamGain]
	expectEqual(t, gain.Value, 0.0)
	expectEqual(t, len(gain.Events), 2)
	expectEqual(t, gain.Events[0], graph.Event{Value: VoiceGain, Time: at, Ramp: graph.RampLinear})
	expectEqual(t, gain.Events[1], graph.Event{Value: 0, Time: at + 0.2, Ramp: graph.RampLinear})
	expectEqual(t, len(env.Children), 2)
	expectEqual(t, env.Children[0].Ref, KeyDelay)
	expectEqual(t, env.Children[1].Ref, KeyMaster)
}

func TestVoiceEnvelopeWithAttack(t *testing.T) {
	synth := defaultSynth()
	synth.Attack = 0.05
	synth.Decay = 0.5
	synth.Waveform = Triangle
	rows := []Row{{Note: 100, Name: "x", Steps: []bool{true}}}
	at := 1.0
	g := BuildGraph(at, 0, rows, synth)
	osc := voices(g)[0]
	expectEqual(t, osc.Type, "triangle")
	events := osc.Children[0].Params[audio.ParamGain].Events
	expectEqual(t, events[0].Time, at+0.05)
	expectEqual(t, events[1].Time, at+0.05+0.5)
}

func TestBus(t *testing.T) {
	synth := defaultSynth()
	synth.MasterGain = 1
	g := BuildBus(0, synth)

	delay, ok := findKeyed(g.Nodes, KeyDelay)
	expectEqual(t, ok, true)
	expectEqual(t, delay.Kind, audio.KindDelay)
	expectEqual(t, delay.Params[audio.ParamDelayTime].Value, 1.0)

	feedback, ok := findKeyed(g.Nodes, KeyDelayFeedback)
	expectEqual(t, ok, true)
	expectEqual(t, feedback.Params[audio.ParamGain].Value, 0.2)

	filter, ok := findKeyed(g.Nodes, KeyDelayFilter)
	expectEqual(t, ok, true)
	expectEqual(t, filter.Type, "lowpass")
	expectEqual(t, filter.Params[audio.ParamFrequency].Value, float64(DelayFilterCutoff))
	expectEqual(t, filter.Children[0].Ref, KeyDelay)
	expectEqual(t, filter.Children[1].Ref, KeyMaster)

	master, ok := findKeyed(g.Nodes, KeyMaster)
	expectEqual(t, ok, true)
	expectEqual(t, master.Params[audio.ParamGain].Value, 1.0)
	expectEqual(t, master.Children[0].Kind, audio.KindDestination)
	expectNoError(t, graph.Validate(g))
}

// One row, steps [true false], 150 bpm.
func TestTwoStepEndToEnd(t *testing.T) {
	m, err := NewModel([]string{"C4"}, MinSteps, 150, defaultSynth())
	expectNoError(t, err)
	for m.Sequencer.StepCount > 2 {
		m.Sequencer.StepCount--
		m.Sequencer.Rows[0].Steps = m.Sequencer.Rows[0].Steps[:m.Sequencer.StepCount]
	}
	m = mustUpdate(t, ToggleStep{Note: "C4", Step: 0}, m)
	expectNearlyEqual(t, m.Sequencer.StepInterval, 0.2)

	timeline := &fakeTimeline{now: 10}
	var graphs []graph.Graph
	m = mustUpdate(t, Play{}, m)
	clock := NewClock(timeline, m.Sequencer.StepInterval, func(tick Tick) {
		m = mustUpdate(t, tick, m)
		graphs = append(graphs, m.Graph())
	})
	clock.Start(timeline.CurrentTime())
	timeline.advance(10.3)
	clock.Stop()

	expectEqual(t, len(graphs), 2)
	expectNearlyEqual(t, graphs[0].Time, 10.0)
	expectNearlyEqual(t, graphs[1].Time, 10.2)

	first := voices(graphs[0])
	expectEqual(t, len(first), 1)
	events := first[0].Children[0].Params[audio.ParamGain].Events
	expectNearlyEqual(t, events[0].Time, 10.0)
	expectEqual(t, events[0].Value, VoiceGain)

	expectEqual(t, len(voices(graphs[1])), 0)
	if !reflect.DeepEqual(graphs[1].Nodes, BuildBus(10.2, m.Synth).Nodes) {
		t.Errorf("expected only the bus, but got %+v", graphs[1].Nodes)
	}
}
