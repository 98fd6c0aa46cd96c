package calculator

import (
	"math"
	"math/bits"

	"FeeRouter/internal/errors"
)

// Add returns a+b or ErrOverflow.
func Add(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, errors.Wrapf(errors.ErrOverflow, "%d+%d", a, b)
	}
	return sum, nil
}

// Sub returns a-b or ErrOverflow when b > a.
func Sub(a, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, errors.Wrapf(errors.ErrOverflow, "%d-%d", a, b)
	}
	return diff, nil
}

// AddUint16 returns a+b or ErrOverflow.
func AddUint16(a uint16, b int) (uint16, error) {
	if b < 0 || int(a)+b > math.MaxUint16 {
		return 0, errors.Wrapf(errors.ErrOverflow, "%d+%d", a, b)
	}
	return a + uint16(b), nil
}
