// Package fixedpoint implements 18-decimal fixed-point arithmetic on 256-bit
// words with explicit rounding direction on every operation. The rounding
// behavior of each operation is part of the protocol definition: two
// implementations that disagree by even one ulp will diverge on pool state.
package fixedpoint

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// Scale is the number of decimal places carried by a FixedPoint value.
const Scale = 18

var (
	oneRaw    = uint256.NewInt(1e18)
	twoRaw    = uint256.NewInt(2e18)
	uint256One = uint256.NewInt(1)
)

// FixedPoint is an unsigned 18-decimal fixed-point number. The zero value is
// ready to use and equals 0.
type FixedPoint struct {
	inner uint256.Int
}

// Zero returns 0.
func Zero() FixedPoint { return FixedPoint{} }

// One returns 1e18, the fixed-point representation of 1.
func One() FixedPoint {
	var f FixedPoint
	f.inner.Set(oneRaw)
	return f
}

// Two returns 2e18.
func Two() FixedPoint {
	var f FixedPoint
	f.inner.Set(twoRaw)
	return f
}

// Raw wraps an already-scaled value (base units, not whole numbers).
func Raw(v uint64) FixedPoint {
	var f FixedPoint
	f.inner.SetUint64(v)
	return f
}

// FromUint256 wraps an already-scaled 256-bit value. The input is copied.
func FromUint256(v *uint256.Int) FixedPoint {
	var f FixedPoint
	f.inner.Set(v)
	return f
}

// FromUint64 converts a whole number into fixed point (v * 1e18).
func FromUint64(v uint64) FixedPoint {
	var f FixedPoint
	f.inner.SetUint64(v)
	f.inner.Mul(&f.inner, oneRaw)
	return f
}

// MustFromDec parses a decimal literal such as "1.5" or "0.000001" and panics
// on malformed input. Intended for constants and tests.
func MustFromDec(s string) FixedPoint {
	f, err := FromDec(s)
	if err != nil {
		panic(err)
	}
	return f
}

// FromDec parses a non-negative decimal string with up to 18 fractional digits.
func FromDec(s string) (FixedPoint, error) {
	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > Scale {
		return FixedPoint{}, fmt.Errorf("fixedpoint: %q has more than %d fractional digits", s, Scale)
	}
	frac += strings.Repeat("0", Scale-len(frac))

	w, err := uint256.FromDecimal(whole)
	if err != nil {
		return FixedPoint{}, fmt.Errorf("fixedpoint: parse %q: %w", s, err)
	}
	fr, err := uint256.FromDecimal(frac)
	if err != nil {
		return FixedPoint{}, fmt.Errorf("fixedpoint: parse %q: %w", s, err)
	}

	var f FixedPoint
	if _, overflow := f.inner.MulOverflow(w, oneRaw); overflow {
		return FixedPoint{}, fmt.Errorf("fixedpoint: %q overflows 256 bits", s)
	}
	if _, overflow := f.inner.AddOverflow(&f.inner, fr); overflow {
		return FixedPoint{}, fmt.Errorf("fixedpoint: %q overflows 256 bits", s)
	}
	return f, nil
}

// Raw256 returns a copy of the underlying scaled value.
func (f FixedPoint) Raw256() *uint256.Int {
	return new(uint256.Int).Set(&f.inner)
}

// Uint64 returns the scaled value as uint64, panicking on overflow.
func (f FixedPoint) Uint64() uint64 {
	if !f.inner.IsUint64() {
		raise(ErrOverflow, "uint64")
	}
	return f.inner.Uint64()
}

// Whole returns the integer part of the value, panicking if it does not fit
// in a uint64.
func (f FixedPoint) Whole() uint64 {
	q := new(uint256.Int).Div(&f.inner, oneRaw)
	if !q.IsUint64() {
		raise(ErrOverflow, "whole")
	}
	return q.Uint64()
}

// Bytes32 returns the big-endian 32-byte encoding, for state digests.
func (f FixedPoint) Bytes32() [32]byte {
	return f.inner.Bytes32()
}

// --- comparisons ---

func (f FixedPoint) IsZero() bool          { return f.inner.IsZero() }
func (f FixedPoint) Eq(o FixedPoint) bool  { return f.inner.Eq(&o.inner) }
func (f FixedPoint) Lt(o FixedPoint) bool  { return f.inner.Lt(&o.inner) }
func (f FixedPoint) Lte(o FixedPoint) bool { return !f.inner.Gt(&o.inner) }
func (f FixedPoint) Gt(o FixedPoint) bool  { return f.inner.Gt(&o.inner) }
func (f FixedPoint) Gte(o FixedPoint) bool { return !f.inner.Lt(&o.inner) }

func (f FixedPoint) Cmp(o FixedPoint) int { return f.inner.Cmp(&o.inner) }

// Min returns the smaller of f and o.
func (f FixedPoint) Min(o FixedPoint) FixedPoint {
	if f.Lt(o) {
		return f
	}
	return o
}

// Max returns the larger of f and o.
func (f FixedPoint) Max(o FixedPoint) FixedPoint {
	if f.Gt(o) {
		return f
	}
	return o
}

// --- arithmetic ---

// Add returns f + o, panicking on overflow.
func (f FixedPoint) Add(o FixedPoint) FixedPoint {
	var z FixedPoint
	if _, overflow := z.inner.AddOverflow(&f.inner, &o.inner); overflow {
		raise(ErrOverflow, "add")
	}
	return z
}

// Sub returns f − o, panicking on underflow.
func (f FixedPoint) Sub(o FixedPoint) FixedPoint {
	var z FixedPoint
	if _, underflow := z.inner.SubOverflow(&f.inner, &o.inner); underflow {
		raise(ErrUnderflow, "sub")
	}
	return z
}

// SatSub returns f − o, clamping to zero instead of panicking.
func (f FixedPoint) SatSub(o FixedPoint) FixedPoint {
	if f.Lt(o) {
		return Zero()
	}
	return f.Sub(o)
}

// MulDivDown returns f·o/d truncated toward zero.
func (f FixedPoint) MulDivDown(o, d FixedPoint) FixedPoint {
	var z FixedPoint
	z.inner.Set(mulDivDown(&f.inner, &o.inner, &d.inner))
	return z
}

// MulDivUp returns f·o/d rounded away from zero.
func (f FixedPoint) MulDivUp(o, d FixedPoint) FixedPoint {
	var z FixedPoint
	z.inner.Set(mulDivUp(&f.inner, &o.inner, &d.inner))
	return z
}

// MulDown returns f·o/1e18 truncated.
func (f FixedPoint) MulDown(o FixedPoint) FixedPoint {
	var z FixedPoint
	z.inner.Set(mulDivDown(&f.inner, &o.inner, oneRaw))
	return z
}

// MulUp returns f·o/1e18 rounded up.
func (f FixedPoint) MulUp(o FixedPoint) FixedPoint {
	var z FixedPoint
	z.inner.Set(mulDivUp(&f.inner, &o.inner, oneRaw))
	return z
}

// DivDown returns f·1e18/o truncated.
func (f FixedPoint) DivDown(o FixedPoint) FixedPoint {
	var z FixedPoint
	z.inner.Set(mulDivDown(&f.inner, oneRaw, &o.inner))
	return z
}

// DivUp returns f·1e18/o rounded up.
func (f FixedPoint) DivUp(o FixedPoint) FixedPoint {
	var z FixedPoint
	z.inner.Set(mulDivUp(&f.inner, oneRaw, &o.inner))
	return z
}

// Pow returns f^o where both operands are fixed point. Computed as
// exp(ln(f)·o / 1e18) with the canonical rational approximations of ln and
// exp, so results are bit-identical to the reference implementation.
func (f FixedPoint) Pow(o FixedPoint) FixedPoint {
	if o.IsZero() {
		return One()
	}
	if f.IsZero() {
		return Zero()
	}
	ln := lnI256(&f.inner)
	// Wrapping multiply then signed divide by 1e18, matching the reference.
	prod := new(uint256.Int).Mul(ln, &o.inner)
	exponent := new(uint256.Int).SDiv(prod, oneRaw)
	var z FixedPoint
	z.inner.Set(expI256(exponent))
	return z
}

// String renders the value as a decimal with trailing fractional zeros trimmed.
func (f FixedPoint) String() string {
	q := new(uint256.Int)
	r := new(uint256.Int)
	q.DivMod(&f.inner, oneRaw, r)
	if r.IsZero() {
		return q.Dec()
	}
	frac := fmt.Sprintf("%018s", r.Dec())
	frac = strings.TrimRight(frac, "0")
	return q.Dec() + "." + frac
}

// MarshalJSON encodes the value as a quoted raw decimal (scaled) string, the
// wire format used by event payloads and snapshots.
func (f FixedPoint) MarshalJSON() ([]byte, error) {
	return []byte(`"` + f.inner.Dec() + `"`), nil
}

// UnmarshalJSON decodes a quoted raw decimal (scaled) string.
func (f *FixedPoint) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return fmt.Errorf("fixedpoint: unmarshal %q: %w", s, err)
	}
	f.inner.Set(v)
	return nil
}

// --- low-level helpers ---

func mulDivDown(a, b, d *uint256.Int) *uint256.Int {
	if d.IsZero() {
		raise(ErrDivisionByZero, "mulDivDown")
	}
	z, overflow := new(uint256.Int).MulDivOverflow(a, b, d)
	if overflow {
		raise(ErrOverflow, "mulDivDown")
	}
	return z
}

func mulDivUp(a, b, d *uint256.Int) *uint256.Int {
	z := mulDivDown(a, b, d)
	rem := new(uint256.Int).MulMod(a, b, d)
	if !rem.IsZero() {
		if _, overflow := z.AddOverflow(z, uint256One); overflow {
			raise(ErrOverflow, "mulDivUp")
		}
	}
	return z
}
