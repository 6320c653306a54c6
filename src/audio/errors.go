package audio

import (
	"errors"
	"fmt"
)

var (
	// ErrSuspended is returned by Apply until the engine has been resumed.
	ErrSuspended     = errors.New("audio engine is suspended")
	ErrUnknownHandle = errors.New("unknown node handle")
	ErrHandleInUse   = errors.New("node handle already in use")
	ErrUnknownKind   = errors.New("unknown node kind")
	ErrUnknownParam  = errors.New("unknown node parameter")
	ErrInvalidType   = errors.New("invalid node type")
	ErrInvalidValue  = errors.New("invalid parameter value")
	ErrReserved      = errors.New("destination cannot be created or destroyed")

	errNoType = errors.New("node has no type")
)

// EngineError reports an Op the engine refused. When Apply returns an
// EngineError, none of the batch has been applied.
type EngineError struct {
	Index int // position of the op in its batch
	Op    Op
	Err   error
}

func (e *EngineError) Error() string {
	if e == nil {
		return ""
	}
	if e.Index < 0 {
		return fmt.Sprintf("audio engine: %v", e.Err)
	}
	return fmt.Sprintf("audio engine: op %d (%v): %v", e.Index, e.Op, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }
