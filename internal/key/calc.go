package key

import (
	"errors"
	"fmt"
)

// DefaultStep is the spacing used for boundary inserts and rebalancing.
var DefaultStep = FromInt(1024)

// ErrPrecisionExhausted signals that two neighbors are too close to place a
// key strictly between them. The only recovery is a rebalance of the list.
var ErrPrecisionExhausted = errors.New("precision exhausted")

// DensityError describes a refused placement between Prev and Next.
type DensityError struct {
	Prev    Key
	Next    Key
	Epsilon Key
}

func (e *DensityError) Error() string {
	return fmt.Sprintf("%s: gap between %s and %s is below %s", ErrPrecisionExhausted, e.Prev, e.Next, e.Epsilon)
}

func (e *DensityError) Unwrap() error {
	return ErrPrecisionExhausted
}

// ComputeInsertKey returns the key for a new position.
//
// prev is the neighbor that ranks above the position (higher key) and next
// the neighbor below it; either may be nil at a list boundary:
//
//	nil, nil   -> 0
//	nil, next  -> next + step
//	prev, nil  -> prev - step
//	prev, next -> (prev + next) / 2
//
// Panics if step is not positive.
func ComputeInsertKey(prev, next *Key, step Key) Key {
	if step.Sign() <= 0 {
		panic(fmt.Sprintf("key: step must be positive, got %s", step))
	}

	switch {
	case prev == nil && next == nil:
		return Zero()
	case prev == nil:
		return next.Add(step)
	case next == nil:
		return prev.Sub(step)
	default:
		return mean(*prev, *next)
	}
}

// IsTooDense reports whether |prev - next| < epsilon.
// Panics if epsilon is not positive.
func IsTooDense(prev, next, epsilon Key) bool {
	if epsilon.Sign() <= 0 {
		panic(fmt.Sprintf("key: epsilon must be positive, got %s", epsilon))
	}
	return prev.Sub(next).Abs().Cmp(epsilon) < 0
}

// Between is the guarded form of ComputeInsertKey used by every write path.
// It returns a *DensityError when both neighbors exist and are too dense, or
// when the rounded midpoint would not land strictly between them.
func Between(prev, next *Key, step, epsilon Key) (Key, error) {
	if prev != nil && next != nil && IsTooDense(*prev, *next, epsilon) {
		return Key{}, &DensityError{Prev: *prev, Next: *next, Epsilon: epsilon}
	}

	k := ComputeInsertKey(prev, next, step)
	if prev != nil && next != nil && (k.Cmp(*prev) >= 0 || k.Cmp(*next) <= 0) {
		return Key{}, &DensityError{Prev: *prev, Next: *next, Epsilon: epsilon}
	}
	return k, nil
}
