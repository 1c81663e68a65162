package req

import "errors"

var (
	// ErrInvalidArgument is returned for out-of-range ranks, unsupported
	// standard deviation multipliers, bad split points and invalid k.
	ErrInvalidArgument = errors.New("req: invalid argument")

	// ErrEmptySketch is returned by extremum, rank and quantile queries on an
	// empty sketch whose item domain has no NaN sentinel.
	ErrEmptySketch = errors.New("req: operation is undefined for an empty sketch")

	// ErrIncompatibleSketch is returned when merging sketches whose k or
	// accuracy mode differ.
	ErrIncompatibleSketch = errors.New("req: incompatible sketch")

	// ErrCorruptState is returned when serialized bytes cannot be decoded into
	// a consistent sketch.
	ErrCorruptState = errors.New("req: corrupt serialized state")
)
