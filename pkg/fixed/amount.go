// Package fixed implements the protocol-wide fixed-point amount: an unsigned
// integer scaled by 10^decimals and bounded to 128 bits. Every arithmetic
// operation is checked and fails with ErrArithmetic instead of wrapping.
package fixed

import (
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// Bits is the width of an Amount.
const Bits = 128

var (
	// ErrArithmetic is returned on overflow, underflow or division by zero.
	ErrArithmetic = errors.New("fixed: arithmetic error")
	// ErrInvalid is returned when an input cannot be represented as an Amount.
	ErrInvalid = errors.New("fixed: invalid amount")
)

var maxAmount = func() uint256.Int {
	var v uint256.Int
	v.Lsh(uint256.NewInt(1), Bits)
	v.SubUint64(&v, 1)
	return v
}()

// Amount is a non-negative fixed-point quantity. The zero value is 0.
type Amount struct {
	v uint256.Int
}

// Zero returns the zero amount.
func Zero() Amount { return Amount{} }

// Max returns the largest representable amount (2^128-1).
func Max() Amount { return Amount{v: maxAmount} }

// FromUint64 wraps a raw integer.
func FromUint64(n uint64) Amount {
	var a Amount
	a.v.SetUint64(n)
	return a
}

// FromBig converts a non-negative big integer.
func FromBig(b *big.Int) (Amount, error) {
	if b == nil || b.Sign() < 0 {
		return Amount{}, fmt.Errorf("%w: negative or nil value", ErrInvalid)
	}
	v, overflow := uint256.FromBig(b)
	if overflow {
		return Amount{}, overflowErr("convert")
	}
	return bounded(v, "convert")
}

// Parse reads a raw (already scaled) base-10 integer string.
func Parse(s string) (Amount, error) {
	v, err := uint256.FromDecimal(strings.TrimSpace(s))
	if err != nil {
		return Amount{}, fmt.Errorf("%w: %q: %v", ErrInvalid, s, err)
	}
	return bounded(v, "parse")
}

// FromDecimal scales a human decimal string ("12.5") by 10^decimals.
// Inputs carrying more fractional digits than decimals are rejected rather
// than rounded.
func FromDecimal(s string, decimals int32) (Amount, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Amount{}, fmt.Errorf("%w: %q: %v", ErrInvalid, s, err)
	}
	if d.Sign() < 0 {
		return Amount{}, fmt.Errorf("%w: %q is negative", ErrInvalid, s)
	}
	scaled := d.Shift(decimals)
	if !scaled.IsInteger() {
		return Amount{}, fmt.Errorf("%w: %q has more than %d decimals", ErrInvalid, s, decimals)
	}
	return FromBig(scaled.BigInt())
}

// Unit returns 10^decimals, the amount representing 1.0 at that scale.
func Unit(decimals int32) (Amount, error) {
	if decimals < 0 {
		return Amount{}, fmt.Errorf("%w: negative decimals %d", ErrInvalid, decimals)
	}
	return FromBig(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
}

func bounded(v *uint256.Int, op string) (Amount, error) {
	if v.BitLen() > Bits {
		return Amount{}, overflowErr(op)
	}
	return Amount{v: *v}, nil
}

func overflowErr(op string) error {
	return fmt.Errorf("%w: %s overflow", ErrArithmetic, op)
}

// Add returns a+b.
func (a Amount) Add(b Amount) (Amount, error) {
	var z uint256.Int
	if _, overflow := z.AddOverflow(&a.v, &b.v); overflow {
		return Amount{}, overflowErr("add")
	}
	return bounded(&z, "add")
}

// Sub returns a-b.
func (a Amount) Sub(b Amount) (Amount, error) {
	var z uint256.Int
	if _, underflow := z.SubOverflow(&a.v, &b.v); underflow {
		return Amount{}, fmt.Errorf("%w: sub underflow", ErrArithmetic)
	}
	return Amount{v: z}, nil
}

// Mul returns a*b.
func (a Amount) Mul(b Amount) (Amount, error) {
	var z uint256.Int
	if _, overflow := z.MulOverflow(&a.v, &b.v); overflow {
		return Amount{}, overflowErr("mul")
	}
	return bounded(&z, "mul")
}

// Div returns a/b truncated toward zero.
func (a Amount) Div(b Amount) (Amount, error) {
	if b.v.IsZero() {
		return Amount{}, fmt.Errorf("%w: division by zero", ErrArithmetic)
	}
	var z uint256.Int
	z.Div(&a.v, &b.v)
	return Amount{v: z}, nil
}

// MulUint64 returns a*n.
func (a Amount) MulUint64(n uint64) (Amount, error) { return a.Mul(FromUint64(n)) }

// DivUint64 returns a/n truncated toward zero.
func (a Amount) DivUint64(n uint64) (Amount, error) { return a.Div(FromUint64(n)) }

// Cmp compares a and b and returns -1, 0 or +1.
func (a Amount) Cmp(b Amount) int { return a.v.Cmp(&b.v) }

// IsZero reports whether a == 0.
func (a Amount) IsZero() bool { return a.v.IsZero() }

// Uint64 returns the raw value when it fits in 64 bits.
func (a Amount) Uint64() (uint64, bool) {
	if !a.v.IsUint64() {
		return 0, false
	}
	return a.v.Uint64(), true
}

// Big returns the raw value as a new big.Int.
func (a Amount) Big() *big.Int { return a.v.ToBig() }

// String returns the raw integer in base 10.
func (a Amount) String() string { return a.v.Dec() }

// Decimal returns the value divided by 10^decimals.
func (a Amount) Decimal(decimals int32) decimal.Decimal {
	return decimal.NewFromBigInt(a.v.ToBig(), -decimals)
}

// Format renders the value as a decimal string at the given scale.
func (a Amount) Format(decimals int32) string {
	return a.Decimal(decimals).String()
}

// MarshalText encodes the raw integer; JSON carries amounts as strings.
func (a Amount) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// UnmarshalText decodes a raw integer string.
func (a *Amount) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// EncodeRLP implements rlp.Encoder.
func (a Amount) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, &a.v)
}

// DecodeRLP implements rlp.Decoder.
func (a *Amount) DecodeRLP(s *rlp.Stream) error {
	var v uint256.Int
	if err := s.ReadUint256(&v); err != nil {
		return err
	}
	b, err := bounded(&v, "decode")
	if err != nil {
		return err
	}
	*a = b
	return nil
}
