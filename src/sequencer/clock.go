package sequencer

import (
	"fmt"
	"sync"
)

// Timeline is a sample clock that can run callbacks at given times.
// *audio.Engine implements it.
type Timeline interface {
	CurrentTime() float64
	ScheduleAt(at float64, fn func(at float64)) int
	Cancel(id int)
}

// Clock fires onFire at start, start+interval, start+2*interval and so on,
// measured on a Timeline. Firing times are computed from the start time so
// rounding does not accumulate.
//
// onFire runs with the clock locked: once Stop returns, no firing is in
// progress and none will follow. onFire must not call back into the Clock.
type Clock struct {
	mu       sync.Mutex
	timeline Timeline
	interval float64
	onFire   func(Tick)
	running  bool
	start    float64
	n        int
	fired    int
	timer    int
	gen      int
}

func NewClock(timeline Timeline, interval float64, onFire func(Tick)) *Clock {
	checkInterval(interval)
	return &Clock{timeline: timeline, interval: interval, onFire: onFire}
}

func checkInterval(interval float64) {
	if !(interval > 0) {
		panic(fmt.Sprintf("invalid clock interval: %v", interval))
	}
}

// Start (re)starts the clock. The first firing happens at t.
func (c *Clock) Start(t float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		c.timeline.Cancel(c.timer)
	}
	c.running = true
	c.gen++
	c.start = t
	c.n = 0
	c.fired = 0
	c.schedule()
}

// Stop cancels the pending firing.
func (c *Clock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	c.running = false
	c.gen++
	c.timeline.Cancel(c.timer)
}

// SetInterval changes the interval from the next firing on.
func (c *Clock) SetInterval(interval float64) {
	checkInterval(interval)
	c.mu.Lock()
	defer c.mu.Unlock()
	if interval == c.interval {
		return
	}
	// the pending firing keeps its time and becomes the new origin
	c.start += float64(c.n) * c.interval
	c.n = 0
	c.interval = interval
}

func (c *Clock) Interval() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interval
}

func (c *Clock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *Clock) schedule() {
	gen := c.gen
	at := c.start + float64(c.n)*c.interval
	c.timer = c.timeline.ScheduleAt(at, func(at float64) {
		c.fire(gen, at)
	})
}

func (c *Clock) fire(gen int, at float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running || gen != c.gen {
		return
	}
	n := c.fired
	c.fired++
	c.n++
	c.schedule()
	c.onFire(Tick{Time: at, N: n})
}
