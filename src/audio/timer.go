package audio

import "sort"

// ----- Timer ----- //

type timer struct {
	id int
	at float64 // sec
	fn func(at float64)
}

type timerQueue []*timer

// ScheduleAt arranges for fn to run before the block containing sample time
// at is rendered. fn runs on the rendering goroutine without the engine lock
// held, so it may call Apply. Timers fire in (time, schedule order) order.
func (e *Engine) ScheduleAt(at float64, fn func(at float64)) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.timerSeq++
	t := &timer{id: e.timerSeq, at: at, fn: fn}
	i := sort.Search(len(e.timers), func(i int) bool {
		return e.timers[i].at > at
	})
	e.timers = append(e.timers, nil)
	copy(e.timers[i+1:], e.timers[i:])
	e.timers[i] = t
	return t.id
}

// Cancel removes a pending timer. It is a no-op for unknown or fired timers.
func (e *Engine) Cancel(id int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, t := range e.timers {
		if t.id == id {
			e.timers = append(e.timers[:i], e.timers[i+1:]...)
			return
		}
	}
}

// runTimers fires, one at a time, every timer due before the end of the next
// n samples. Timers scheduled by a firing are considered too.
func (e *Engine) runTimers(n int) {
	for {
		e.mu.Lock()
		end := timeOf(e.pos + int64(n))
		if len(e.timers) == 0 || e.timers[0].at >= end {
			e.mu.Unlock()
			return
		}
		t := e.timers[0]
		e.timers = e.timers[1:]
		e.mu.Unlock()
		t.fn(t.at)
	}
}
