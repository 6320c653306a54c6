package sequencer

import (
	"sync"
	"testing"

	"github.com/jinjor/desktop-sequencer/src/audio"
)

type fakeTimer struct {
	id int
	at float64
	fn func(float64)
}

// fakeTimeline fires timers in (time, schedule order) order as it advances.
type fakeTimeline struct {
	now    float64
	seq    int
	timers []fakeTimer
}

func (f *fakeTimeline) CurrentTime() float64 { return f.now }

func (f *fakeTimeline) ScheduleAt(at float64, fn func(float64)) int {
	f.seq++
	f.timers = append(f.timers, fakeTimer{id: f.seq, at: at, fn: fn})
	return f.seq
}

func (f *fakeTimeline) Cancel(id int) {
	for i, t := range f.timers {
		if t.id == id {
			f.timers = append(f.timers[:i], f.timers[i+1:]...)
			return
		}
	}
}

func (f *fakeTimeline) advance(to float64) {
	for {
		next := -1
		for i, t := range f.timers {
			if t.at < to && (next < 0 || t.at < f.timers[next].at) {
				next = i
			}
		}
		if next < 0 {
			break
		}
		t := f.timers[next]
		f.timers = append(f.timers[:next], f.timers[next+1:]...)
		f.now = t.at
		t.fn(t.at)
	}
	f.now = to
}

func TestClockFiresWithoutDrift(t *testing.T) {
	timeline := &fakeTimeline{now: 1}
	var ticks []Tick
	clock := NewClock(timeline, 0.1, func(tick Tick) {
		ticks = append(ticks, tick)
	})
	clock.Start(1)
	timeline.advance(1 + 1000*0.1 + 0.05)
	expectEqual(t, len(ticks), 1001)
	for i, tick := range ticks {
		expectEqual(t, tick.N, i)
		// exactly start + n*interval, no accumulated rounding
		expectEqual(t, tick.Time, 1+float64(i)*0.1)
	}
}

func TestClockStop(t *testing.T) {
	timeline := &fakeTimeline{}
	fired := 0
	clock := NewClock(timeline, 0.2, func(tick Tick) { fired++ })
	clock.Start(0)
	timeline.advance(0.5)
	expectEqual(t, fired, 3)
	clock.Stop()
	expectEqual(t, clock.Running(), false)
	expectEqual(t, len(timeline.timers), 0)
	timeline.advance(10)
	expectEqual(t, fired, 3)
	clock.Stop()
}

func TestClockStopFromStaleTimer(t *testing.T) {
	timeline := &fakeTimeline{}
	fired := 0
	clock := NewClock(timeline, 0.2, func(tick Tick) { fired++ })
	clock.Start(0)
	stale := timeline.timers[0]
	clock.Stop()
	// a timer that was already dequeued when Stop ran must not fire
	stale.fn(stale.at)
	expectEqual(t, fired, 0)
}

func TestClockRestartIsFreshStart(t *testing.T) {
	timeline := &fakeTimeline{}
	var ticks []Tick
	clock := NewClock(timeline, 0.25, func(tick Tick) { ticks = append(ticks, tick) })
	clock.Start(0)
	timeline.advance(0.6)
	clock.Stop()
	timeline.advance(3)
	ticks = nil
	clock.Start(3)
	timeline.advance(3.3)
	expectEqual(t, len(ticks), 2)
	expectEqual(t, ticks[0], Tick{Time: 3, N: 0})
	expectEqual(t, ticks[1], Tick{Time: 3.25, N: 1})

	// starting a running clock re-anchors it
	clock.Start(5)
	expectEqual(t, len(timeline.timers), 1)
	expectEqual(t, timeline.timers[0].at, 5.0)
}

func TestClockSetInterval(t *testing.T) {
	timeline := &fakeTimeline{}
	var times []float64
	clock := NewClock(timeline, 0.5, func(tick Tick) { times = append(times, tick.Time) })
	clock.Start(0)
	timeline.advance(0.75)
	clock.SetInterval(0.25)
	expectEqual(t, clock.Interval(), 0.25)
	timeline.advance(1.6)
	expected := []float64{0, 0.5, 1, 1.25, 1.5}
	expectEqual(t, len(times), len(expected))
	for i := range expected {
		expectNearlyEqual(t, times[i], expected[i])
	}
}

func TestClockInvalidInterval(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("expected a panic")
		}
	}()
	NewClock(&fakeTimeline{}, 0, func(Tick) {})
}

func TestClockOnEngine(t *testing.T) {
	engine := audio.NewEngine()
	engine.Resume()
	var mu sync.Mutex
	var ticks []Tick
	clock := NewClock(engine, 0.2, func(tick Tick) {
		mu.Lock()
		defer mu.Unlock()
		expectEqual(t, tick.Time >= engine.CurrentTime(), true)
		ticks = append(ticks, tick)
	})
	clock.Start(engine.CurrentTime())
	_, err := audio.Render(engine, discard{}, 0.9)
	expectNoError(t, err)
	clock.Stop()

	mu.Lock()
	defer mu.Unlock()
	expectEqual(t, len(ticks), 5)
	for i, tick := range ticks {
		expectNearlyEqual(t, tick.Time, float64(i)*0.2)
	}
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
