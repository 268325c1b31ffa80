// Package twap computes time-weighted average prices by walking a
// round-indexed history backward from its latest point.
package twap

import (
	"errors"
	"fmt"
	"math/bits"

	"perpstate/pkg/fixed"
)

var (
	ErrInvalidInterval  = errors.New("twap: interval must be positive")
	ErrIntervalTooLarge = errors.New("twap: interval reaches before time zero")
	ErrNoPriceData      = errors.New("twap: no price data")
)

// Point is one observation in a series. Round 0 means "no observation".
type Point struct {
	Round     uint64
	Price     fixed.Amount
	Timestamp uint64
}

// Series is a history indexed 0..Len()-1, oldest first.
type Series interface {
	Len() (uint64, error)
	At(i uint64) (Point, error)
}

// Slice adapts an in-memory slice to Series.
type Slice []Point

func (s Slice) Len() (uint64, error) { return uint64(len(s)), nil }

func (s Slice) At(i uint64) (Point, error) {
	if i >= uint64(len(s)) {
		return Point{}, fmt.Errorf("twap: index %d out of range %d", i, len(s))
	}
	return s[i], nil
}

// Compute returns the TWAP over [now-interval, now].
//
// When the walk reaches round 1 before crossing the window boundary the sum
// is normalised by the time actually covered, otherwise by the full interval.
// The two exits are deliberately asymmetric.
func Compute(s Series, interval, now uint64) (fixed.Amount, error) {
	if interval == 0 {
		return fixed.Amount{}, ErrInvalidInterval
	}
	if interval > now {
		return fixed.Amount{}, fmt.Errorf("%w: interval=%d now=%d", ErrIntervalTooLarge, interval, now)
	}
	base := now - interval

	n, err := s.Len()
	if err != nil {
		return fixed.Amount{}, err
	}
	if n == 0 {
		return fixed.Amount{}, ErrNoPriceData
	}
	idx := n - 1
	latest, err := s.At(idx)
	if err != nil {
		return fixed.Amount{}, err
	}
	if latest.Round == 0 {
		return fixed.Amount{}, ErrNoPriceData
	}
	if latest.Timestamp < base || latest.Round == 1 {
		return latest.Price, nil
	}

	cumulative, err := sub(now, latest.Timestamp)
	if err != nil {
		return fixed.Amount{}, err
	}
	weighted, err := latest.Price.MulUint64(cumulative)
	if err != nil {
		return fixed.Amount{}, err
	}
	cursor := latest

	for {
		if cursor.Round == 1 {
			return weighted.DivUint64(cumulative)
		}
		if idx == 0 {
			break
		}
		idx--
		prev, err := s.At(idx)
		if err != nil {
			return fixed.Amount{}, err
		}
		if prev.Timestamp <= base {
			span, err := sub(cursor.Timestamp, base)
			if err != nil {
				return fixed.Amount{}, err
			}
			if weighted, err = accumulate(weighted, prev.Price, span); err != nil {
				return fixed.Amount{}, err
			}
			break
		}
		delta, err := sub(cursor.Timestamp, prev.Timestamp)
		if err != nil {
			return fixed.Amount{}, err
		}
		if weighted, err = accumulate(weighted, prev.Price, delta); err != nil {
			return fixed.Amount{}, err
		}
		sum, carry := bits.Add64(cumulative, delta, 0)
		if carry != 0 {
			return fixed.Amount{}, fmt.Errorf("%w: cumulative time overflow", fixed.ErrArithmetic)
		}
		cumulative = sum
		cursor = prev
	}
	return weighted.DivUint64(interval)
}

func accumulate(weighted, price fixed.Amount, span uint64) (fixed.Amount, error) {
	part, err := price.MulUint64(span)
	if err != nil {
		return fixed.Amount{}, err
	}
	return weighted.Add(part)
}

func sub(a, b uint64) (uint64, error) {
	d, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, fmt.Errorf("%w: timestamp %d precedes %d", fixed.ErrArithmetic, a, b)
	}
	return d, nil
}
