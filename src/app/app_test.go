package app

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/jinjor/desktop-sequencer/src/audio"
	"github.com/jinjor/desktop-sequencer/src/sequencer"
)

func expectEqual(t *testing.T, actual interface{}, expected interface{}) {
	t.Helper()
	if actual != expected {
		t.Errorf("expected %v, but got %v", expected, actual)
	}
}

func expectNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func render(t *testing.T, e *audio.Engine, seconds float64) {
	t.Helper()
	_, err := audio.Render(e, discard{}, seconds)
	expectNoError(t, err)
}

// peak renders seconds of audio and returns its largest sample.
func peak(t *testing.T, e *audio.Engine, seconds float64) int {
	t.Helper()
	var buf bytes.Buffer
	_, err := audio.Render(e, &buf, seconds)
	expectNoError(t, err)
	data := buf.Bytes()
	p := 0
	for i := 0; i+1 < len(data); i += 2 {
		v := int(int16(binary.LittleEndian.Uint16(data[i:])))
		if v < 0 {
			v = -v
		}
		if v > p {
			p = v
		}
	}
	return p
}

func newTestApp(t *testing.T) (*App, *audio.Engine) {
	t.Helper()
	m, err := sequencer.NewModel(
		[]string{"C5", "B4", "A4", "G4", "F4", "E4", "D4", "C4"}, 8, 150,
		sequencer.Synth{Decay: 0.2, Waveform: sequencer.Sine, DelayTime: 1, DelayAmount: 0.2},
	)
	expectNoError(t, err)
	engine := audio.NewEngine()
	engine.Resume()
	a := New(engine, m)
	expectNoError(t, a.Init())
	t.Cleanup(a.Close)
	return a, engine
}

func TestInitDeclaresBus(t *testing.T) {
	a, engine := newTestApp(t)
	for _, key := range []string{
		sequencer.KeyDelay, sequencer.KeyDelayFeedback, sequencer.KeyDelayFilter, sequencer.KeyMaster,
	} {
		h, ok := a.Handle(key)
		expectEqual(t, ok, true)
		expectEqual(t, engine.Has(h), true)
	}
	expectEqual(t, engine.NodeCount(), 5)
}

func TestBusPersistsWhilePlaying(t *testing.T) {
	a, engine := newTestApp(t)
	for step := 0; step < 8; step++ {
		expectNoError(t, a.Dispatch(sequencer.ToggleStep{Note: "C5", Step: step}))
	}
	delay, _ := a.Handle(sequencer.KeyDelay)
	master, _ := a.Handle(sequencer.KeyMaster)

	expectNoError(t, a.Dispatch(sequencer.Play{}))
	render(t, engine, 2)

	m := a.Model()
	expectEqual(t, m.Sequencer.Running, true)
	// the first tick is one block ahead of Play
	last := audio.BlockDuration + 1.8
	if math.Abs(m.CurrentTime-last) > 1e-9 {
		t.Errorf("expected the last tick at %v, but got %v", last, m.CurrentTime)
	}
	// 10 ticks starting from step 7
	expectEqual(t, m.Sequencer.Step, 1)

	now, _ := a.Handle(sequencer.KeyDelay)
	expectEqual(t, now, delay)
	now, _ = a.Handle(sequencer.KeyMaster)
	expectEqual(t, now, master)
	expectEqual(t, engine.Has(delay), true)
	expectEqual(t, engine.Has(master), true)
	// the bus plus the voice of the last tick
	expectEqual(t, engine.NodeCount(), 7)
}

func TestStopCancelsTicks(t *testing.T) {
	a, engine := newTestApp(t)
	expectNoError(t, a.Dispatch(sequencer.Play{}))
	render(t, engine, 0.5)
	expectNoError(t, a.Dispatch(sequencer.Stop{}))
	before := a.Model()
	render(t, engine, 1)
	after := a.Model()
	expectEqual(t, after.CurrentTime, before.CurrentTime)
	expectEqual(t, after.Sequencer.Step, before.Sequencer.Step)

	// restart lands on the current step again
	expectNoError(t, a.Dispatch(sequencer.Play{}))
	render(t, engine, 0.05)
	expectEqual(t, a.Model().Sequencer.Step, before.Sequencer.Step)
}

func TestStopSilencesSoundingVoices(t *testing.T) {
	a, engine := newTestApp(t)
	for step := 0; step < 8; step++ {
		expectNoError(t, a.Dispatch(sequencer.ToggleStep{Note: "C5", Step: step}))
	}
	expectNoError(t, a.Dispatch(sequencer.MuteToggle{}))
	expectNoError(t, a.Dispatch(sequencer.Play{}))
	// ticks at 0.021 and 0.221; the second voice decays until 0.421
	if p := peak(t, engine, 0.25); p < 1000 {
		t.Fatalf("expected the voices to be audible, but the peak was %d", p)
	}
	expectEqual(t, engine.NodeCount(), 7)

	expectNoError(t, a.Dispatch(sequencer.Stop{}))
	peak(t, engine, 0.01)
	expectEqual(t, engine.NodeCount(), 5)
	if p := peak(t, engine, 0.15); p != 0 {
		t.Errorf("expected silence after Stop, but the peak was %d", p)
	}
	delay, _ := a.Handle(sequencer.KeyDelay)
	expectEqual(t, engine.Has(delay), true)
}

func TestPlayRightAfterStopKeepsNewVoice(t *testing.T) {
	a, engine := newTestApp(t)
	expectNoError(t, a.Dispatch(sequencer.ToggleStep{Note: "C5", Step: 0}))
	expectNoError(t, a.Dispatch(sequencer.Play{}))
	render(t, engine, 0.1)
	expectNoError(t, a.Dispatch(sequencer.Stop{}))
	// the silence pass runs before the first tick of the new start
	expectNoError(t, a.Dispatch(sequencer.Play{}))
	render(t, engine, 0.05)
	expectEqual(t, a.Model().Sequencer.Step, 0)
	expectEqual(t, engine.NodeCount(), 7)
}

func TestSetTempoRetimesClock(t *testing.T) {
	a, engine := newTestApp(t)
	expectNoError(t, a.Dispatch(sequencer.SetTempo{BPM: 300}))
	expectNoError(t, a.Dispatch(sequencer.Play{}))
	render(t, engine, 0.45)
	// five ticks from 0.021 on, starting from step 7
	expectEqual(t, a.Model().Sequencer.Step, 4)

	err := a.Dispatch(sequencer.SetTempo{BPM: -1})
	if !errors.Is(err, sequencer.ErrInvalidTempo) {
		t.Fatalf("expected ErrInvalidTempo, but got %v", err)
	}
	expectEqual(t, a.Model().Sequencer.Tempo, 300.0)
}

func TestMuteUpdatesMasterWithoutVoices(t *testing.T) {
	a, engine := newTestApp(t)
	expectNoError(t, a.Dispatch(sequencer.ToggleStep{Note: "A4", Step: 0}))
	expectNoError(t, a.Dispatch(sequencer.MuteToggle{}))
	render(t, engine, 0.01)
	master, _ := a.Handle(sequencer.KeyMaster)
	gain, ok := engine.ParamValue(master, audio.ParamGain)
	expectEqual(t, ok, true)
	expectEqual(t, gain, 1.0)
	expectEqual(t, engine.NodeCount(), 5)

	expectNoError(t, a.Dispatch(sequencer.ChangeDelay{Length: "short"}))
	render(t, engine, 0.01)
	delay, _ := a.Handle(sequencer.KeyDelay)
	delayTime, _ := engine.ParamValue(delay, audio.ParamDelayTime)
	expectEqual(t, delayTime, sequencer.ShortDelay)
}

func TestRejectedActionKeepsModel(t *testing.T) {
	a, _ := newTestApp(t)
	for i := 0; i < 4; i++ {
		expectNoError(t, a.Dispatch(sequencer.RemoveStep{}))
	}
	before := a.Model()
	err := a.Dispatch(sequencer.RemoveStep{})
	if !errors.Is(err, sequencer.ErrStepFloor) {
		t.Fatalf("expected ErrStepFloor, but got %v", err)
	}
	expectEqual(t, a.Model().Sequencer.StepCount, before.Sequencer.StepCount)

	err = a.Dispatch(sequencer.Tick{Time: 1})
	expectEqual(t, err, ErrTickDispatch)
}

func TestSuspendedEngine(t *testing.T) {
	m, err := sequencer.NewModel([]string{"C4"}, 4, 120, sequencer.Synth{Waveform: sequencer.Square})
	expectNoError(t, err)
	engine := audio.NewEngine()
	a := New(engine, m)
	defer a.Close()
	err = a.Init()
	if !errors.Is(err, audio.ErrSuspended) {
		t.Fatalf("expected ErrSuspended, but got %v", err)
	}
	// the model still changes, the engine catches up on the next pass
	expectNoError(t, a.Dispatch(sequencer.MuteToggle{}))
	expectEqual(t, a.Model().Synth.MasterGain, 1.0)
	_, ok := a.Handle(sequencer.KeyMaster)
	expectEqual(t, ok, false)

	engine.Resume()
	expectNoError(t, a.Dispatch(sequencer.ChangeDelay{Length: "long"}))
	_, ok = a.Handle(sequencer.KeyMaster)
	expectEqual(t, ok, true)
}

func TestSubscribe(t *testing.T) {
	a, _ := newTestApp(t)
	ch := a.Subscribe()
	expectNoError(t, a.Dispatch(sequencer.AddStep{}))
	expectNoError(t, a.Dispatch(sequencer.AddStep{}))
	m := <-ch
	expectEqual(t, m.Sequencer.StepCount, 10)
	select {
	case m := <-ch:
		t.Errorf("expected only the latest model, but got another: %v", m)
	default:
	}
	a.Close()
	_, ok := <-ch
	expectEqual(t, ok, false)
}
