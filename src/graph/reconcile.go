package graph

import (
	"fmt"
	"sort"

	"github.com/jinjor/desktop-sequencer/src/audio"
)

// ----- Realized ----- //

type realizedNode struct {
	key    string
	kind   audio.Kind
	typ    string
	params map[string]Param
	edges  []audio.Handle // keyed targets and the destination only
}

// voice is an anonymous node that may still be sounding.
type voice struct {
	kind      audio.Kind
	end       float64 // DestroyAt time
	automated []string
}

// Realized is what the engine holds after a successful reconciliation: the
// live handle of every key plus what was last declared for it.
type Realized struct {
	keys      map[string]audio.Handle
	nodes     map[audio.Handle]*realizedNode
	anonymous []audio.Handle
	voices    map[audio.Handle]voice
	next      audio.Handle
}

func NewRealized() *Realized {
	return &Realized{
		keys:   make(map[string]audio.Handle),
		nodes:  make(map[audio.Handle]*realizedNode),
		voices: make(map[audio.Handle]voice),
		next:   audio.Destination + 1,
	}
}

func (r *Realized) Handle(key string) (audio.Handle, bool) {
	h, ok := r.keys[key]
	return h, ok
}

// Keys returns the live keys in sorted order.
func (r *Realized) Keys() []string {
	keys := make([]string, 0, len(r.keys))
	for k := range r.keys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Anonymous returns the anonymous handles created by the last pass.
func (r *Realized) Anonymous() []audio.Handle {
	return append([]audio.Handle(nil), r.anonymous...)
}

// Sounding returns, in handle order, the anonymous nodes whose lifetime ends
// after t.
func (r *Realized) Sounding(t float64) []audio.Handle {
	var hs []audio.Handle
	for h, v := range r.voices {
		if v.end > t {
			hs = append(hs, h)
		}
	}
	sort.Slice(hs, func(i, j int) bool { return hs[i] < hs[j] })
	return hs
}

// ----- Stats ----- //

// Stats counts the operations of one reconciliation pass.
type Stats struct {
	Created      int
	Destroyed    int
	Scheduled    int // anonymous nodes given a DestroyAt
	Updated      int
	Connected    int
	Disconnected int
}

func (s Stats) String() string {
	return fmt.Sprintf("created=%d destroyed=%d scheduled=%d updated=%d connected=%d disconnected=%d",
		s.Created, s.Destroyed, s.Scheduled, s.Updated, s.Connected, s.Disconnected)
}

// ----- Plan ----- //

type planner struct {
	prev  *Realized
	next  *Realized
	time  float64
	ops   []audio.Op
	stats Stats
}

// Plan computes the operations that turn prev into g. It does not touch the
// engine; the returned Realized is only valid once the ops have been applied.
func Plan(prev *Realized, g Graph) (*Realized, []audio.Op, Stats, error) {
	if err := Validate(g); err != nil {
		return nil, nil, Stats{}, err
	}
	if prev == nil {
		prev = NewRealized()
	}
	next := NewRealized()
	next.next = prev.next
	for h, v := range prev.voices {
		if v.end > g.Time {
			next.voices[h] = v
		}
	}
	p := &planner{prev: prev, next: next, time: g.Time}

	var keyed []*Node
	collectKeyed(g.Nodes, &keyed)
	for _, n := range keyed {
		p.declareKeyed(n)
	}
	for i := range g.Nodes {
		p.walk(&g.Nodes[i])
	}
	p.retire()
	return p.next, p.ops, p.stats, nil
}

func collectKeyed(nodes []Node, out *[]*Node) {
	for i := range nodes {
		n := &nodes[i]
		if n.Ref != "" {
			continue
		}
		if n.Key != "" {
			*out = append(*out, n)
		}
		collectKeyed(n.Children, out)
	}
}

func (p *planner) emit(op audio.Op) {
	p.ops = append(p.ops, op)
}

func (p *planner) allocate() audio.Handle {
	h := p.next.next
	p.next.next++
	return h
}

func (p *planner) declareKeyed(n *Node) {
	if h, ok := p.prev.keys[n.Key]; ok {
		old := p.prev.nodes[h]
		if old.kind == n.Kind {
			rn := &realizedNode{key: n.Key, kind: n.Kind, typ: old.typ, params: n.Params, edges: old.edges}
			if n.Type != "" && n.Type != old.typ {
				p.emit(audio.SetType(h, n.Type))
				p.stats.Updated++
				rn.typ = n.Type
			}
			p.updateParams(h, old.params, n.Params)
			p.next.keys[n.Key] = h
			p.next.nodes[h] = rn
			return
		}
	}
	h := p.allocate()
	p.create(h, n)
	p.next.keys[n.Key] = h
	p.next.nodes[h] = &realizedNode{key: n.Key, kind: n.Kind, typ: n.Type, params: n.Params}
}

func (p *planner) create(h audio.Handle, n *Node) {
	p.emit(audio.Create(h, n.Kind))
	p.stats.Created++
	if n.Type != "" {
		p.emit(audio.SetType(h, n.Type))
	}
	for _, name := range paramNames(n.Params) {
		param := n.Params[name]
		p.emit(audio.SetValue(h, name, param.Value))
		if len(param.Events) > 0 {
			// anchor ramps to the render time instead of the insertion time
			p.emit(audio.SetValueAtTime(h, name, param.Value, p.time))
			for _, ev := range param.Events {
				p.emit(eventOp(h, name, ev))
			}
		}
	}
}

func (p *planner) updateParams(h audio.Handle, old map[string]Param, declared map[string]Param) {
	for _, name := range paramNames(declared) {
		param := declared[name]
		prev, had := old[name]
		if !had || prev.Value != param.Value {
			p.emit(audio.SetValueAtTime(h, name, param.Value, p.time))
			p.stats.Updated++
		}
		for _, ev := range param.Events {
			if containsEvent(prev.Events, ev) {
				continue
			}
			p.emit(eventOp(h, name, ev))
			p.stats.Updated++
		}
	}
}

// walk creates anonymous nodes and connects everything below n. It returns
// the handle of n and, for anonymous nodes, the time its automation ends.
func (p *planner) walk(n *Node) (h audio.Handle, end float64, anonymous bool) {
	switch {
	case n.Ref != "":
		return p.next.keys[n.Ref], 0, false
	case n.Kind == audio.KindDestination:
		return audio.Destination, 0, false
	case n.Key != "":
		h = p.next.keys[n.Key]
	default:
		h = p.allocate()
		p.create(h, n)
		p.next.anonymous = append(p.next.anonymous, h)
		anonymous = true
	}

	var rn *realizedNode
	var oldEdges []audio.Handle
	reused := false
	if !anonymous {
		rn = p.next.nodes[h]
		if old, ok := p.prev.nodes[h]; ok {
			oldEdges = old.edges
			reused = true
		}
	}

	end, hasEnd := lastEventTime(n)
	var edges []audio.Handle
	for i := range n.Children {
		to, childEnd, childAnonymous := p.walk(&n.Children[i])
		if childAnonymous {
			if !hasEnd || childEnd > end {
				end, hasEnd = childEnd, true
			}
			p.connect(h, to)
			continue
		}
		if containsHandle(edges, to) {
			continue
		}
		edges = append(edges, to)
		if !reused || !containsHandle(oldEdges, to) {
			p.connect(h, to)
		}
	}
	if reused {
		for _, to := range oldEdges {
			if !containsHandle(edges, to) {
				p.emit(audio.Disconnect(h, to))
				p.stats.Disconnected++
			}
		}
	}
	if rn != nil {
		rn.edges = edges
	}

	if anonymous {
		if !hasEnd {
			end = p.time
		}
		p.emit(audio.DestroyAt(h, end))
		p.stats.Scheduled++
		p.next.voices[h] = voice{kind: n.Kind, end: end, automated: automatedParams(n)}
	}
	return h, end, anonymous
}

func (p *planner) connect(from, to audio.Handle) {
	p.emit(audio.Connect(from, to))
	p.stats.Connected++
}

// retire disconnects and destroys keyed nodes that were not declared again.
// Every disconnect comes before any destroy so that edges between two
// retired nodes stay valid within the batch.
func (p *planner) retire() {
	var retired []audio.Handle
	for _, key := range p.prev.Keys() {
		h := p.prev.keys[key]
		if nh, ok := p.next.keys[key]; ok && nh == h {
			continue
		}
		retired = append(retired, h)
	}
	for _, h := range retired {
		for _, to := range p.prev.nodes[h].edges {
			p.emit(audio.Disconnect(h, to))
			p.stats.Disconnected++
		}
	}
	for _, h := range retired {
		p.emit(audio.Destroy(h))
		p.stats.Destroyed++
	}
}

func eventOp(h audio.Handle, name string, ev Event) audio.Op {
	if ev.Ramp == RampLinear {
		return audio.LinearRampToValueAtTime(h, name, ev.Value, ev.Time)
	}
	return audio.SetValueAtTime(h, name, ev.Value, ev.Time)
}

func lastEventTime(n *Node) (float64, bool) {
	var last float64
	found := false
	for _, param := range n.Params {
		if t, ok := param.lastEventTime(); ok && (!found || t > last) {
			last, found = t, true
		}
	}
	return last, found
}

func automatedParams(n *Node) []string {
	var names []string
	for _, name := range paramNames(n.Params) {
		if len(n.Params[name].Events) > 0 {
			names = append(names, name)
		}
	}
	return names
}

func paramNames(params map[string]Param) []string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func containsEvent(events []Event, ev Event) bool {
	for _, e := range events {
		if e == ev {
			return true
		}
	}
	return false
}

func containsHandle(hs []audio.Handle, h audio.Handle) bool {
	for _, x := range hs {
		if x == h {
			return true
		}
	}
	return false
}

// ----- Reconciler ----- //

// Applier is the part of the engine a Reconciler drives.
type Applier interface {
	Apply(ops []audio.Op) error
}

// Reconciler is the single owner of the Realized state of one engine.
type Reconciler struct {
	engine   Applier
	realized *Realized
}

func NewReconciler(engine Applier) *Reconciler {
	return &Reconciler{engine: engine, realized: NewRealized()}
}

// Reconcile applies g to the engine in one batch. If the engine refuses the
// batch, the previous Realized state is kept and the error is returned.
func (r *Reconciler) Reconcile(g Graph) (Stats, error) {
	next, ops, stats, err := Plan(r.realized, g)
	if err != nil {
		return Stats{}, err
	}
	if len(ops) > 0 {
		if err := r.engine.Apply(ops); err != nil {
			return stats, err
		}
	}
	r.realized = next
	return stats, nil
}

// Silence cuts every anonymous node still sounding at now. Its scheduled
// automation is cancelled, a gain fades to zero over fade seconds and the
// node is destroyed when the fade ends. now must not be behind the engine
// clock, otherwise nodes the engine already expired would be addressed.
func (r *Reconciler) Silence(now, fade float64) (Stats, error) {
	var ops []audio.Op
	var stats Stats
	handles := r.realized.Sounding(now)
	for _, h := range handles {
		v := r.realized.voices[h]
		for _, name := range v.automated {
			ops = append(ops, audio.CancelScheduledValues(h, name, now))
			stats.Updated++
		}
		if v.kind == audio.KindGain {
			ops = append(ops, audio.LinearRampToValueAtTime(h, audio.ParamGain, 0, now+fade))
			stats.Updated++
		}
		ops = append(ops, audio.DestroyAt(h, now+fade))
		stats.Scheduled++
	}
	if len(ops) == 0 {
		return stats, nil
	}
	if err := r.engine.Apply(ops); err != nil {
		return stats, err
	}
	for _, h := range handles {
		delete(r.realized.voices, h)
	}
	return stats, nil
}

func (r *Reconciler) Handle(key string) (audio.Handle, bool) {
	return r.realized.Handle(key)
}

func (r *Reconciler) Realized() *Realized {
	return r.realized
}
