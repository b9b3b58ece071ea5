package engine

import "errors"

// Boundary rejection errors. Callers count these as data-quality
// rejects; engine state is untouched when one is returned.
var (
	// ErrOutOfOrderTrade marks a trade whose timestamp precedes the last
	// accepted one.
	ErrOutOfOrderTrade = errors.New("trade out of order")

	// ErrStaleTrade marks a trade whose interval precedes the open bar.
	ErrStaleTrade = errors.New("trade belongs to an already finalized interval")

	// ErrEmptySession is returned by daily level computation when the
	// regular-session bar input is empty.
	ErrEmptySession = errors.New("empty regular session bars")

	// ErrMalformedTrade marks a trade with a non-positive price or size
	// or an unknown side.
	ErrMalformedTrade = errors.New("malformed trade")
)
