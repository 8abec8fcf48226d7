package fixedpoint

import "github.com/holiman/uint256"

// ln and exp are ports of the canonical (6,7)- and (8,8)-term rational
// approximations used by the reference implementation. Inputs and outputs are
// two's-complement signed 256-bit values in 18-decimal fixed point. The
// constants are protocol-defining: do not "simplify" them.

func dec(s string) *uint256.Int { return uint256.MustFromDecimal(s) }

func negDec(s string) *uint256.Int {
	v := uint256.MustFromDecimal(s)
	return new(uint256.Int).Neg(v)
}

var (
	// exp domain bounds: below expMinInput the result underflows to 0,
	// at or above expMaxInput it overflows 256 bits.
	expMinInput = negDec("42139678854452767551")
	expMaxInput = dec("135305999368893231589")

	fiveToEighteen = dec("3814697265625") // 5^18

	// ln(2) in 2^96 fixed point.
	ln2Scaled96 = dec("54916777467707473351141471128")

	twoTo95 = new(uint256.Int).Lsh(uint256.NewInt(1), 95)

	expY0 = dec("1346386616545796478920950773328")
	expY1 = dec("57155421227552351082224309758442")
	expP0 = negDec("94201549194550492254356042504812")
	expP1 = dec("28719021644029726153956944680412240")
	expP2 = new(uint256.Int).Lsh(dec("4385272521454847904659076985693276"), 96)
	expQ0 = negDec("2855989394907223263936484059900")
	expQ1 = dec("50020603652535783019961831881945")
	expQ2 = negDec("533845033583426703283633433725380")
	expQ3 = dec("3604857256930695427073651918091429")
	expQ4 = negDec("14423608567350463180887372962807573")
	expQ5 = dec("26449188498355588339934803723976023")

	expFinalScale = dec("3822833074963236453042738258902158003155416615667")

	lnP0 = dec("3273285459638523848632254066296")
	lnP1 = dec("24828157081833163892658089445524")
	lnP2 = dec("43456485725739037958740375743393")
	lnP3 = negDec("11111509109440967052023855526967")
	lnP4 = negDec("45023709667254063763336534515857")
	lnP5 = negDec("14706773417378608786704636184526")
	lnP6 = new(uint256.Int).Lsh(dec("795164235651350426258249787498"), 96)
	lnQ0 = dec("5573035233440673466300451813936")
	lnQ1 = dec("71694874799317883764090561454958")
	lnQ2 = dec("283447036172924575727196451306956")
	lnQ3 = dec("401686690394027663651624208769553")
	lnQ4 = dec("204048457590392012362485061816622")
	lnQ5 = dec("31853899698501571402653359427138")
	lnQ6 = dec("909429971244387300277376558375")

	lnScale   = dec("1677202110996718588342820967067443963516166")
	lnKFactor = dec("16597577552685614221487285958193947469193820559219878177908093499208371")
	lnOffset  = dec("600920179829731861736702779321621459595472258049074101567377883020018308")
)

// expI256 computes e^x for a signed 18-decimal x. Result is non-negative.
func expI256(x *uint256.Int) *uint256.Int {
	// e^x underflows the 18-decimal representation below ~-42.139.
	if !x.Sgt(expMinInput) {
		return new(uint256.Int)
	}
	if !x.Slt(expMaxInput) {
		raise(ErrExpOverflow, "exp")
	}

	// Rescale from 1e18 to 2^96 fixed point: x * 2^78 / 5^18.
	x = new(uint256.Int).Lsh(x, 78)
	x.SDiv(x, fiveToEighteen)

	// Range reduction: x = x' + k·ln(2) with x' in (-ln(2)/2, ln(2)/2].
	k := new(uint256.Int).Lsh(x, 96)
	k.SDiv(k, ln2Scaled96)
	k.Add(k, twoTo95)
	k.SRsh(k, 96)

	kLn2 := new(uint256.Int).Mul(k, ln2Scaled96)
	x.Sub(x, kLn2)

	// (6,7)-term rational approximation on the reduced range. All
	// multiplies wrap; shifts are arithmetic.
	y := new(uint256.Int).Add(x, expY0)
	y.Mul(y, x)
	y.SRsh(y, 96)
	y.Add(y, expY1)

	p := new(uint256.Int).Add(y, x)
	p.Add(p, expP0)
	p.Mul(p, y)
	p.SRsh(p, 96)
	p.Add(p, expP1)
	p.Mul(p, x)
	p.Add(p, expP2)

	q := new(uint256.Int).Add(x, expQ0)
	q.Mul(q, x)
	q.SRsh(q, 96)
	q.Add(q, expQ1)
	q.Mul(q, x)
	q.SRsh(q, 96)
	q.Add(q, expQ2)
	q.Mul(q, x)
	q.SRsh(q, 96)
	q.Add(q, expQ3)
	q.Mul(q, x)
	q.SRsh(q, 96)
	q.Add(q, expQ4)
	q.Mul(q, x)
	q.SRsh(q, 96)
	q.Add(q, expQ5)

	r := new(uint256.Int).SDiv(p, q)

	// Undo the range reduction and convert back to 1e18 fixed point in one
	// multiply-and-shift. r is positive here, so the shift is logical.
	r.Mul(r, expFinalScale)
	shift := uint(195 - signedToInt64(k))
	r.Rsh(r, shift)
	return r
}

// lnI256 computes ln(x) for x > 0 in 18-decimal fixed point. The result is
// signed (negative for x < 1e18).
func lnI256(x *uint256.Int) *uint256.Int {
	if x.Sign() <= 0 {
		raise(ErrLnOfNonPositive, "ln")
	}

	// Range reduction: write x = m·2^k with m in [1, 2) at 2^96 scale.
	k := int64(x.BitLen()) - 1 - 96
	m := new(uint256.Int).Lsh(x, uint(159-k))
	m.Rsh(m, 159)

	// (8,8)-term rational approximation of ln(m).
	p := new(uint256.Int).Add(m, lnP0)
	p.Mul(p, m)
	p.SRsh(p, 96)
	p.Add(p, lnP1)
	p.Mul(p, m)
	p.SRsh(p, 96)
	p.Add(p, lnP2)
	p.Mul(p, m)
	p.SRsh(p, 96)
	p.Add(p, lnP3)
	p.Mul(p, m)
	p.SRsh(p, 96)
	p.Add(p, lnP4)
	p.Mul(p, m)
	p.SRsh(p, 96)
	p.Add(p, lnP5)
	p.Mul(p, m)
	p.Sub(p, lnP6)

	q := new(uint256.Int).Add(m, lnQ0)
	q.Mul(q, m)
	q.SRsh(q, 96)
	q.Add(q, lnQ1)
	q.Mul(q, m)
	q.SRsh(q, 96)
	q.Add(q, lnQ2)
	q.Mul(q, m)
	q.SRsh(q, 96)
	q.Add(q, lnQ3)
	q.Mul(q, m)
	q.SRsh(q, 96)
	q.Add(q, lnQ4)
	q.Mul(q, m)
	q.SRsh(q, 96)
	q.Add(q, lnQ5)
	q.Mul(q, m)
	q.SRsh(q, 96)
	q.Add(q, lnQ6)

	r := new(uint256.Int).SDiv(p, q)

	// r·scale + k·(2^174·ln(2) adj) + offset, then scale back down.
	r.Mul(r, lnScale)
	kTerm := new(uint256.Int).Mul(int64ToSigned(k), lnKFactor)
	r.Add(r, kTerm)
	r.Add(r, lnOffset)
	r.SRsh(r, 174)
	return r
}

// signedToInt64 narrows a small two's-complement value to int64. Only valid
// for the bounded intermediates of exp/ln range reduction.
func signedToInt64(v *uint256.Int) int64 {
	if v.Sign() < 0 {
		mag := new(uint256.Int).Neg(v)
		return -int64(mag.Uint64())
	}
	return int64(v.Uint64())
}

func int64ToSigned(v int64) *uint256.Int {
	if v < 0 {
		mag := uint256.NewInt(uint64(-v))
		return new(uint256.Int).Neg(mag)
	}
	return uint256.NewInt(uint64(v))
}
