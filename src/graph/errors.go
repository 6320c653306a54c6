package graph

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateKey = errors.New("key declared more than once")
	ErrUnknownRef   = errors.New("reference to undeclared key")
	ErrSinkNode     = errors.New("destination cannot have a key or children")
)

// ContractError reports a Graph that a builder should never have produced.
type ContractError struct {
	Key string
	Err error
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("invalid graph: %v: %q", e.Err, e.Key)
}

func (e *ContractError) Unwrap() error { return e.Err }

// IsContractViolation reports whether err comes from an invalid Graph.
func IsContractViolation(err error) bool {
	var ce *ContractError
	return errors.As(err, &ce)
}
