// Package app runs the sequencer: actions go through the reducer, the clock
// follows the model, and every change is reconciled into the audio engine.
package app

import (
	"errors"
	"log"
	"sync"

	"github.com/jinjor/desktop-sequencer/src/audio"
	"github.com/jinjor/desktop-sequencer/src/graph"
	"github.com/jinjor/desktop-sequencer/src/sequencer"
)

var ErrTickDispatch = errors.New("ticks come from the clock")

// StopFade is how long sounding voices take to fade out after Stop.
const StopFade = 0.005

// Engine is what the app needs from the audio engine.
type Engine interface {
	graph.Applier
	sequencer.Timeline
}

// App owns the model, the clock and the reconciler of one engine.
//
// Locks are always taken in the order syncMu, clock, mu. subMu is only taken
// with none of them held.
type App struct {
	engine     Engine
	clock      *sequencer.Clock
	reconciler *graph.Reconciler

	mu    sync.Mutex
	model sequencer.Model

	syncMu sync.Mutex

	subMu       sync.Mutex
	subscribers []chan sequencer.Model
	closed      bool

	// Debug logs reconcile stats for every pass.
	Debug bool
}

func New(engine Engine, model sequencer.Model) *App {
	a := &App{
		engine:     engine,
		reconciler: graph.NewReconciler(engine),
		model:      model,
	}
	a.clock = sequencer.NewClock(engine, model.Sequencer.StepInterval, a.onTick)
	return a
}

// Init declares the bus so that the delay and master nodes exist before the
// first step. The engine must have been resumed.
func (a *App) Init() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, err := a.reconciler.Reconcile(sequencer.BuildBus(a.engine.CurrentTime(), a.model.Synth))
	return err
}

// Model returns the current model.
func (a *App) Model() sequencer.Model {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.model
}

// Handle returns the engine handle of a keyed node.
func (a *App) Handle(key string) (audio.Handle, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.reconciler.Handle(key)
}

// Dispatch applies an action. Rejected actions leave the model unchanged and
// return the reducer's error.
func (a *App) Dispatch(action sequencer.Action) error {
	if _, ok := action.(sequencer.Tick); ok {
		return ErrTickDispatch
	}
	a.mu.Lock()
	next, err := sequencer.Update(action, a.model)
	if err != nil {
		a.mu.Unlock()
		return err
	}
	a.model = next
	// only the bus: voices are triggered by the clock
	a.reconcile(sequencer.BuildBus(a.engine.CurrentTime(), next.Synth))
	a.mu.Unlock()

	a.syncClock()
	a.publish()
	return nil
}

func (a *App) syncClock() {
	a.syncMu.Lock()
	defer a.syncMu.Unlock()
	m := a.Model()
	if !m.Sequencer.Running {
		if a.clock.Running() {
			a.clock.Stop()
			// on the render goroutine no voice can expire under the pass
			a.engine.ScheduleAt(a.engine.CurrentTime(), a.silence)
		}
		return
	}
	a.clock.SetInterval(m.Sequencer.StepInterval)
	if !a.clock.Running() {
		// the block being rendered may already be past its timers
		a.clock.Start(a.engine.CurrentTime() + audio.BlockDuration)
	}
}

// silence cancels the envelopes of every voice still sounding.
func (a *App) silence(float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	now := a.engine.CurrentTime()
	stats, err := a.reconciler.Silence(now, StopFade)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}
	if a.Debug {
		log.Printf("silenced at %.3f: %v", now, stats)
	}
}

func (a *App) onTick(tick sequencer.Tick) {
	a.mu.Lock()
	if !a.model.Sequencer.Running {
		a.mu.Unlock()
		return
	}
	next, err := sequencer.Update(tick, a.model)
	if err != nil {
		a.mu.Unlock()
		log.Printf("error: %v", err)
		return
	}
	a.model = next
	a.reconcile(next.Graph())
	a.mu.Unlock()
	a.publish()
}

// reconcile must be called with mu held.
func (a *App) reconcile(g graph.Graph) {
	stats, err := a.reconciler.Reconcile(g)
	if err != nil {
		if graph.IsContractViolation(err) {
			panic(err)
		}
		log.Printf("error: %v", err)
		return
	}
	if a.Debug {
		log.Printf("reconciled at %.3f: %v", g.Time, stats)
	}
}

// ----- Subscription ----- //

// Subscribe returns a channel that receives the latest model after every
// change. Slow readers only see the most recent one.
func (a *App) Subscribe() <-chan sequencer.Model {
	a.subMu.Lock()
	defer a.subMu.Unlock()
	ch := make(chan sequencer.Model, 1)
	if a.closed {
		close(ch)
		return ch
	}
	a.subscribers = append(a.subscribers, ch)
	return ch
}

func (a *App) publish() {
	a.subMu.Lock()
	defer a.subMu.Unlock()
	if a.closed {
		return
	}
	m := a.Model()
	for _, ch := range a.subscribers {
		select {
		case <-ch:
		default:
		}
		ch <- m
	}
}

// Close stops the clock and closes every subscription.
func (a *App) Close() {
	a.syncMu.Lock()
	a.clock.Stop()
	a.syncMu.Unlock()

	a.subMu.Lock()
	defer a.subMu.Unlock()
	if a.closed {
		return
	}
	a.closed = true
	for _, ch := range a.subscribers {
		close(ch)
	}
	a.subscribers = nil
}
