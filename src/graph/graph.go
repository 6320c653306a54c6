// Package graph describes audio graphs as plain data and turns successive
// descriptions into engine operations.
package graph

import (
	"github.com/jinjor/desktop-sequencer/src/audio"
)

// ----- Automation ----- //

type RampKind int

const (
	RampSet RampKind = iota
	RampLinear
)

func (r RampKind) String() string {
	if r == RampLinear {
		return "linear"
	}
	return "set"
}

// Event is one scheduled automation point of a parameter.
type Event struct {
	Value float64
	Time  float64 // sec, absolute on the engine clock
	Ramp  RampKind
}

// Param is a static value optionally followed by automation events.
type Param struct {
	Value  float64
	Events []Event
}

func (p Param) lastEventTime() (float64, bool) {
	if len(p.Events) == 0 {
		return 0, false
	}
	last := p.Events[0].Time
	for _, ev := range p.Events[1:] {
		if ev.Time > last {
			last = ev.Time
		}
	}
	return last, true
}

// ----- Node ----- //

// Node is a declared audio node. Children are the nodes its output connects
// to. A child created with Ref points at a keyed node declared elsewhere in
// the same Graph, so feedback loops can be described without cyclic data.
type Node struct {
	Kind     audio.Kind
	Key      string // empty for anonymous nodes
	Ref      string // non-empty for references
	Type     string
	Params   map[string]Param
	Children []Node
}

func Oscillator(children ...Node) Node {
	return Node{Kind: audio.KindOscillator, Children: children}
}

func Gain(children ...Node) Node {
	return Node{Kind: audio.KindGain, Children: children}
}

func BiquadFilter(children ...Node) Node {
	return Node{Kind: audio.KindBiquadFilter, Children: children}
}

func Delay(children ...Node) Node {
	return Node{Kind: audio.KindDelay, Children: children}
}

// Destination is the output sink. It has no key and no children.
func Destination() Node {
	return Node{Kind: audio.KindDestination}
}

// Ref connects to the node declared with key.
func Ref(key string) Node {
	return Node{Ref: key}
}

// Keyed returns a copy of n whose identity survives across reconciliations.
func (n Node) Keyed(key string) Node {
	n.Key = key
	return n
}

func (n Node) OfType(t string) Node {
	n.Type = t
	return n
}

// Static returns a copy of n with the static value of a parameter replaced.
func (n Node) Static(name string, value float64) Node {
	params := n.cloneParams()
	p := params[name]
	p.Value = value
	params[name] = p
	n.Params = params
	return n
}

func (n Node) SetValueAtTime(name string, value float64, t float64) Node {
	return n.withEvent(name, Event{Value: value, Time: t, Ramp: RampSet})
}

func (n Node) LinearRampToValueAtTime(name string, value float64, t float64) Node {
	return n.withEvent(name, Event{Value: value, Time: t, Ramp: RampLinear})
}

func (n Node) withEvent(name string, ev Event) Node {
	params := n.cloneParams()
	p := params[name]
	p.Events = append(append([]Event(nil), p.Events...), ev)
	params[name] = p
	n.Params = params
	return n
}

func (n Node) cloneParams() map[string]Param {
	params := make(map[string]Param, len(n.Params)+1)
	for k, v := range n.Params {
		params[k] = v
	}
	return params
}

// ----- Graph ----- //

// Graph is a full description of the desired audio graph at Time.
type Graph struct {
	Time  float64
	Nodes []Node
}

// Validate checks the invariants a builder must guarantee.
func Validate(g Graph) error {
	keys := make(map[string]bool)
	var refs []string
	var visit func(n *Node) error
	visit = func(n *Node) error {
		if n.Ref != "" {
			refs = append(refs, n.Ref)
			return nil
		}
		if n.Kind == audio.KindDestination && (n.Key != "" || len(n.Children) > 0) {
			return &ContractError{Key: n.Key, Err: ErrSinkNode}
		}
		if n.Key != "" {
			if keys[n.Key] {
				return &ContractError{Key: n.Key, Err: ErrDuplicateKey}
			}
			keys[n.Key] = true
		}
		for i := range n.Children {
			if err := visit(&n.Children[i]); err != nil {
				return err
			}
		}
		return nil
	}
	for i := range g.Nodes {
		if err := visit(&g.Nodes[i]); err != nil {
			return err
		}
	}
	for _, ref := range refs {
		if !keys[ref] {
			return &ContractError{Key: ref, Err: ErrUnknownRef}
		}
	}
	return nil
}
