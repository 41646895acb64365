package streamio

import (
	"math"

	"github.com/cairn-systems/streamio/status"
)

// Position is an unsigned byte offset into a stream. All arithmetic on it is
// either saturating or explicitly guarded against overflow; silent wraparound
// is never acceptable since Position indexes real stream content.
type Position uint64

// MaxPosition is the largest representable Position.
const MaxPosition Position = math.MaxUint64

// AddChecked adds n to p, returning a ResourceExhausted status instead of
// wrapping if the result would overflow.
func AddChecked(p Position, n uint64) (Position, *status.Status) {
	if n > uint64(MaxPosition)-uint64(p) {
		return 0, status.Newf(status.ResourceExhausted, "position overflow: %d + %d", uint64(p), n)
	}
	return p + Position(n), nil
}

// SaturatingAdd adds n to p, clamping to MaxPosition on overflow rather than
// failing. Used for position bookkeeping (e.g. Window.Pos) where an
// overflowing result is meaningless but not itself an error.
func (p Position) SaturatingAdd(n uint64) Position {
	if n > uint64(MaxPosition)-uint64(p) {
		return MaxPosition
	}
	return p + Position(n)
}

// Sub returns p-q, clamping to 0 if q > p.
func (p Position) Sub(q Position) Position {
	if q > p {
		return 0
	}
	return p - q
}

// MinPosition returns the smaller of a and b.
func MinPosition(a, b Position) Position {
	if a < b {
		return a
	}
	return b
}
