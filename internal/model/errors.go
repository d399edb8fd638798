package model

import "errors"

var (
	// ErrDefinition reports a duplicate variable or an incomplete definition.
	ErrDefinition = errors.New("definition error")
	// ErrUnknownVariable reports a reference to a variable that was never added.
	ErrUnknownVariable = errors.New("unknown variable")
	// ErrUnknownValue reports a label outside a variable's domain.
	ErrUnknownValue = errors.New("unknown value")
	// ErrInvalidCPT reports a table that is not a conditional distribution.
	ErrInvalidCPT = errors.New("invalid CPT")
	// ErrInvalidFactor reports a malformed factor table.
	ErrInvalidFactor = errors.New("invalid factor")
	// ErrPrecondition reports sampler arguments that cannot produce samples.
	ErrPrecondition = errors.New("precondition failed")
)
