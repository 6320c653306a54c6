package audio

import "sort"

// ----- Ramp Kind ----- //

type rampKind int

const (
	rampNone rampKind = iota
	rampLinear
)

// ----- Automation Event ----- //

type automationEvent struct {
	kind  rampKind
	value float64
	time  float64 // sec
}

// ----- Param ----- //

// param is a value that follows scheduled automation events.
//
// The anchor is the (time, value) point a linear ramp starts from: the last
// event the clock has passed, or the insertion point when there was none.
type param struct {
	value       float64
	events      []automationEvent
	anchorTime  float64
	anchorValue float64
}

func newParam(value float64) *param {
	return &param{value: value, anchorValue: value}
}

// set jumps to value immediately and drops pending automation.
func (p *param) set(value float64, now float64) {
	p.value = value
	p.events = p.events[:0]
	p.anchorTime = now
	p.anchorValue = value
}

func (p *param) setValueAtTime(value float64, t float64, now float64) {
	p.insert(automationEvent{kind: rampNone, value: value, time: t}, now)
}

func (p *param) linearRampToValueAtTime(value float64, t float64, now float64) {
	p.insert(automationEvent{kind: rampLinear, value: value, time: t}, now)
}

func (p *param) insert(ev automationEvent, now float64) {
	if len(p.events) == 0 {
		p.anchorTime = now
		p.anchorValue = p.value
	}
	// events with equal times keep insertion order
	i := sort.Search(len(p.events), func(i int) bool {
		return p.events[i].time > ev.time
	})
	p.events = append(p.events, automationEvent{})
	copy(p.events[i+1:], p.events[i:])
	p.events[i] = ev
}

// cancelScheduledValues drops the events at or after t. The value reached so
// far is held and later ramps start from it.
func (p *param) cancelScheduledValues(t float64, now float64) {
	kept := p.events[:0]
	for _, ev := range p.events {
		if ev.time < t {
			kept = append(kept, ev)
		}
	}
	p.events = kept
	if len(p.events) == 0 {
		p.anchorTime = now
		p.anchorValue = p.value
	}
}

// step returns the value at time t. Times must not go backwards.
func (p *param) step(t float64) float64 {
	for len(p.events) > 0 && p.events[0].time <= t {
		ev := p.events[0]
		p.events = p.events[1:]
		p.anchorTime = ev.time
		p.anchorValue = ev.value
		p.value = ev.value
	}
	if len(p.events) > 0 && p.events[0].kind == rampLinear {
		next := p.events[0]
		span := next.time - p.anchorTime
		if span > 0 {
			ratio := (t - p.anchorTime) / span
			p.value = ratio*next.value + (1-ratio)*p.anchorValue
		}
	}
	return p.value
}
