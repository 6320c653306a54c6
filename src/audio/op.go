package audio

import (
	"fmt"
	"math"
)

// OpCode names an engine primitive.
type OpCode int

const (
	OpCreate OpCode = iota
	OpConnect
	OpDisconnect
	OpSetType
	OpSetValue
	OpSetValueAtTime
	OpLinearRamp
	OpCancelScheduledValues
	OpDestroyAt
	OpDestroy
)

func (c OpCode) String() string {
	switch c {
	case OpCreate:
		return "create"
	case OpConnect:
		return "connect"
	case OpDisconnect:
		return "disconnect"
	case OpSetType:
		return "setType"
	case OpSetValue:
		return "setValue"
	case OpSetValueAtTime:
		return "setValueAtTime"
	case OpLinearRamp:
		return "linearRampToValueAtTime"
	case OpCancelScheduledValues:
		return "cancelScheduledValues"
	case OpDestroyAt:
		return "destroyAt"
	case OpDestroy:
		return "destroy"
	}
	return fmt.Sprintf("op(%d)", int(c))
}

// Op is one mutation of the live graph. Which fields matter depends on Code.
type Op struct {
	Code   OpCode
	Handle Handle
	Target Handle // connect, disconnect
	Kind   Kind   // create
	Param  string
	Type   string
	Value  float64
	Time   float64
}

func (op Op) String() string {
	switch op.Code {
	case OpCreate:
		return fmt.Sprintf("create #%d %v", op.Handle, op.Kind)
	case OpConnect, OpDisconnect:
		return fmt.Sprintf("%v #%d -> #%d", op.Code, op.Handle, op.Target)
	case OpSetType:
		return fmt.Sprintf("setType #%d %s", op.Handle, op.Type)
	case OpSetValue:
		return fmt.Sprintf("setValue #%d %s=%g", op.Handle, op.Param, op.Value)
	case OpSetValueAtTime, OpLinearRamp:
		return fmt.Sprintf("%v #%d %s=%g @%g", op.Code, op.Handle, op.Param, op.Value, op.Time)
	case OpCancelScheduledValues:
		return fmt.Sprintf("cancelScheduledValues #%d %s @%g", op.Handle, op.Param, op.Time)
	case OpDestroyAt:
		return fmt.Sprintf("destroyAt #%d @%g", op.Handle, op.Time)
	}
	return fmt.Sprintf("%v #%d", op.Code, op.Handle)
}

func Create(h Handle, k Kind) Op { return Op{Code: OpCreate, Handle: h, Kind: k} }
func Connect(from, to Handle) Op { return Op{Code: OpConnect, Handle: from, Target: to} }
func Disconnect(from, to Handle) Op {
	return Op{Code: OpDisconnect, Handle: from, Target: to}
}
func SetType(h Handle, t string) Op { return Op{Code: OpSetType, Handle: h, Type: t} }
func SetValue(h Handle, name string, v float64) Op {
	return Op{Code: OpSetValue, Handle: h, Param: name, Value: v}
}
func SetValueAtTime(h Handle, name string, v float64, t float64) Op {
	return Op{Code: OpSetValueAtTime, Handle: h, Param: name, Value: v, Time: t}
}
func LinearRampToValueAtTime(h Handle, name string, v float64, t float64) Op {
	return Op{Code: OpLinearRamp, Handle: h, Param: name, Value: v, Time: t}
}
func CancelScheduledValues(h Handle, name string, t float64) Op {
	return Op{Code: OpCancelScheduledValues, Handle: h, Param: name, Time: t}
}
func DestroyAt(h Handle, t float64) Op { return Op{Code: OpDestroyAt, Handle: h, Time: t} }
func Destroy(h Handle) Op             { return Op{Code: OpDestroy, Handle: h} }

// Apply validates the whole batch and then applies it. Either every op takes
// effect or none does.
func (e *Engine) Apply(ops []Op) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.suspended {
		return &EngineError{Index: -1, Err: ErrSuspended}
	}
	if err := e.validate(ops); err != nil {
		return err
	}
	now := timeOf(e.pos)
	for _, op := range ops {
		e.apply(op, now)
	}
	return nil
}

// validate dry-runs the batch against the kinds of the live nodes.
func (e *Engine) validate(ops []Op) error {
	kinds := make(map[Handle]Kind, len(e.nodes))
	for h, n := range e.nodes {
		kinds[h] = n.kind()
	}
	scratch := make(map[Kind]node)
	sample := func(k Kind) node {
		if n, ok := scratch[k]; ok {
			return n
		}
		var n node
		switch k {
		case KindOscillator:
			n = newOscNode()
		case KindBiquadFilter:
			n = newBiquadNode()
		case KindDelay:
			n = &delayNode{delayTime: newParam(0)}
		default:
			n = newNode(k)
		}
		scratch[k] = n
		return n
	}
	fail := func(i int, op Op, err error) error {
		return &EngineError{Index: i, Op: op, Err: err}
	}
	for i, op := range ops {
		k, exists := kinds[op.Handle]
		switch op.Code {
		case OpCreate:
			if op.Handle == Destination {
				return fail(i, op, ErrReserved)
			}
			if exists {
				return fail(i, op, ErrHandleInUse)
			}
			if !validKind(op.Kind) {
				return fail(i, op, ErrUnknownKind)
			}
			kinds[op.Handle] = op.Kind
			continue
		case OpDestroy, OpDestroyAt:
			if op.Handle == Destination {
				return fail(i, op, ErrReserved)
			}
		}
		if !exists {
			return fail(i, op, ErrUnknownHandle)
		}
		switch op.Code {
		case OpConnect, OpDisconnect:
			if _, ok := kinds[op.Target]; !ok {
				return fail(i, op, ErrUnknownHandle)
			}
		case OpSetType:
			if err := sample(k).setType(op.Type); err != nil {
				return fail(i, op, fmt.Errorf("%w: %v", ErrInvalidType, err))
			}
		case OpSetValue, OpSetValueAtTime, OpLinearRamp:
			if sample(k).param(op.Param) == nil {
				return fail(i, op, ErrUnknownParam)
			}
			if math.IsNaN(op.Value) || math.IsInf(op.Value, 0) || math.IsNaN(op.Time) {
				return fail(i, op, ErrInvalidValue)
			}
			if op.Param == ParamDelayTime && (op.Value < 0 || op.Value > maxDelayTime) {
				return fail(i, op, ErrInvalidValue)
			}
		case OpCancelScheduledValues:
			if sample(k).param(op.Param) == nil {
				return fail(i, op, ErrUnknownParam)
			}
			if math.IsNaN(op.Time) {
				return fail(i, op, ErrInvalidValue)
			}
		case OpDestroy:
			delete(kinds, op.Handle)
		}
	}
	return nil
}

func (e *Engine) apply(op Op, now float64) {
	switch op.Code {
	case OpCreate:
		e.nodes[op.Handle] = newNode(op.Kind)
	case OpConnect:
		ins := e.inputs[op.Target]
		for _, h := range ins {
			if h == op.Handle {
				return
			}
		}
		e.inputs[op.Target] = append(ins, op.Handle)
	case OpDisconnect:
		e.inputs[op.Target] = removeHandle(e.inputs[op.Target], op.Handle)
	case OpSetType:
		e.nodes[op.Handle].setType(op.Type)
	case OpSetValue:
		e.nodes[op.Handle].param(op.Param).set(op.Value, now)
	case OpSetValueAtTime:
		e.nodes[op.Handle].param(op.Param).setValueAtTime(op.Value, op.Time, now)
	case OpLinearRamp:
		e.nodes[op.Handle].param(op.Param).linearRampToValueAtTime(op.Value, op.Time, now)
	case OpCancelScheduledValues:
		e.nodes[op.Handle].param(op.Param).cancelScheduledValues(op.Time, now)
	case OpDestroyAt:
		e.expiries[op.Handle] = op.Time
	case OpDestroy:
		e.destroy(op.Handle)
	}
}
