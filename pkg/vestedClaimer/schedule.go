package vestedClaimer

import (
	"github.com/holiman/uint256"
)

// Schedule is a half-unlocked, half-linear vesting curve.
//
// Half of an allocation (rounded down) is releasable at any time. The other
// half vests linearly from Start over Duration seconds, but none of it is
// releasable before Cliff. All arithmetic is integer, rounding down.
type Schedule struct {
	Start    uint64 `json:"start"`
	Duration uint64 `json:"duration"`
	Cliff    uint64 `json:"cliff"`
}

// End is the timestamp at which the allocation is fully vested.
func (s Schedule) End() uint64 {
	return s.Start + s.Duration
}

// TotalReleasable is the cumulative amount releasable at time t for an
// allocation of amount. It never decreases as t grows and never exceeds amount.
func (s Schedule) TotalReleasable(amount *uint256.Int, t uint64) *uint256.Int {
	half := new(uint256.Int).Rsh(amount, 1)
	total := half.Clone()

	if t >= s.Cliff && s.Duration > 0 {
		// Cliff >= Start, so t-Start cannot underflow here
		elapsed := uint256.NewInt(t - s.Start)
		vested, overflow := new(uint256.Int).MulDivOverflow(half, elapsed, uint256.NewInt(s.Duration))
		if overflow || vested.Gt(half) {
			vested = half
		}
		total.Add(total, vested)
	}

	if total.Gt(amount) {
		return amount.Clone()
	}
	return total
}

// Due is what can still be released at t given what was already released.
func (s Schedule) Due(amount, released *uint256.Int, t uint64) *uint256.Int {
	total := s.TotalReleasable(amount, t)
	if released == nil {
		return total
	}
	if total.Lt(released) {
		return new(uint256.Int)
	}
	return total.Sub(total, released)
}
