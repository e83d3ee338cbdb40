package multiparty

import (
	"errors"
)

var (
	// ErrParameterMismatch is returned when the inputs of an operation are
	// not defined over compatible ring parameters.
	ErrParameterMismatch = errors.New("parameter mismatch between inputs")

	// ErrDimensionOverflow is returned when the number of requested
	// automorphism indices exceeds N-1, where N is the ring degree.
	ErrDimensionOverflow = errors.New("index count exceeds the ring degree minus one")

	// ErrMalformedPartial is returned when a set of partial decryptions
	// cannot be fused, e.g. because it lacks a lead share or contains more
	// than one.
	ErrMalformedPartial = errors.New("malformed partial decryption set")

	// ErrEmptyInput is returned when an operation receives zero shares or
	// zero partial decryptions.
	ErrEmptyInput = errors.New("empty input")
)
