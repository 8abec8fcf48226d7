// Package yieldspace implements the YieldSpace bonding curve:
//
//	k = (c / µ) · (µ · ze)^(1−t) + y^(1−t)
//
// Every operation exists in the rounding direction that biases against the
// trader, and the invariant itself in both an over- and under-estimating
// variant. The rounding choices are consensus-critical and mirror the
// reference implementation exactly.
package yieldspace

import (
	"errors"
	"fmt"

	fp "github.com/delvtech/hyperdrive-sub006/internal/fixedpoint"
)

// ErrInsufficientLiquidity is returned when a trade would drain the pool past
// the point the curve can support.
var ErrInsufficientLiquidity = errors.New("yieldspace: insufficient liquidity")

// Params captures the curve inputs: effective share reserves ze, bond
// reserves y, vault share price c, initial vault share price µ, and the time
// stretch t.
type Params struct {
	ShareReserves     fp.FixedPoint // ze
	BondReserves      fp.FixedPoint // y
	SharePrice        fp.FixedPoint // c
	InitialSharePrice fp.FixedPoint // µ
	TimeStretch       fp.FixedPoint // t
}

// EffectiveShareReserves computes ze = z − ζ. A positive share adjustment
// reduces the reserves the curve trades against; a negative one increases
// them.
func EffectiveShareReserves(z fp.FixedPoint, zeta fp.Signed) fp.FixedPoint {
	if zeta.IsNegative() {
		return z.Add(zeta.Abs())
	}
	return z.Sub(zeta.Abs())
}

// te returns the invariant exponent 1 − t.
func (p Params) te() fp.FixedPoint {
	return fp.One().Sub(p.TimeStretch)
}

// SpotPrice returns ((µ·ze)/y)^t.
func (p Params) SpotPrice() fp.FixedPoint {
	ratio := p.InitialSharePrice.MulDown(p.ShareReserves).DivDown(p.BondReserves)
	return ratio.Pow(p.TimeStretch)
}

// KUp computes the invariant, overestimating the result.
func (p Params) KUp() fp.FixedPoint {
	te := p.te()
	curve := p.SharePrice.MulDivUp(p.InitialSharePrice.MulUp(p.ShareReserves).Pow(te), p.InitialSharePrice)
	return curve.Add(p.BondReserves.Pow(te))
}

// KDown computes the invariant, underestimating the result.
func (p Params) KDown() fp.FixedPoint {
	te := p.te()
	curve := p.SharePrice.MulDivDown(p.InitialSharePrice.MulDown(p.ShareReserves).Pow(te), p.InitialSharePrice)
	return curve.Add(p.BondReserves.Pow(te))
}

// BondsOutGivenSharesIn returns the bonds paid out for dz shares in,
// underestimated to bias against the trader. Clamps to zero when rounding
// on a dust-sized trade would make the payout negative.
func (p Params) BondsOutGivenSharesIn(dz fp.FixedPoint) fp.FixedPoint {
	te := p.te()

	// Round k up to make the rhs of the equation larger.
	k := p.KUp()

	// (c / µ) · (µ · (ze + dz))^(1−t), rounded down.
	newZe := p.InitialSharePrice.MulDown(p.ShareReserves.Add(dz)).Pow(te)
	newZe = p.SharePrice.MulDivDown(newZe, p.InitialSharePrice)

	// New bond reserves: (k − ...)^(1/(1−t)), rounded up.
	newY := k.Sub(newZe)
	if newY.Gte(fp.One()) {
		newY = newY.Pow(fp.One().DivUp(te))
	} else {
		newY = newY.Pow(fp.One().DivDown(te))
	}

	return p.BondReserves.SatSub(newY)
}

// SharesInGivenBondsOutUp returns the shares the trader must pay for dy bonds
// out, overestimated. Fails when the pool cannot source dy bonds.
func (p Params) SharesInGivenBondsOutUp(dy fp.FixedPoint) (fp.FixedPoint, error) {
	te := p.te()

	// Round k up to make the lhs of the equation larger.
	k := p.KUp()

	if p.BondReserves.Lt(dy) {
		return fp.Zero(), fmt.Errorf("%w: bond reserves %s < requested %s",
			ErrInsufficientLiquidity, p.BondReserves, dy)
	}
	newY := p.BondReserves.Sub(dy).Pow(te)

	if k.Lt(newY) {
		return fp.Zero(), fmt.Errorf("%w: k %s < y term %s", ErrInsufficientLiquidity, k, newY)
	}
	newZe := k.Sub(newY).MulDivUp(p.InitialSharePrice, p.SharePrice)
	if newZe.Gte(fp.One()) {
		newZe = newZe.Pow(fp.One().DivUp(te))
	} else {
		newZe = newZe.Pow(fp.One().DivDown(te))
	}
	newZe = newZe.DivUp(p.InitialSharePrice)

	if newZe.Lt(p.ShareReserves) {
		return fp.Zero(), fmt.Errorf("%w: new share reserves %s < current %s",
			ErrInsufficientLiquidity, newZe, p.ShareReserves)
	}
	return newZe.Sub(p.ShareReserves), nil
}

// SharesInGivenBondsOutDown returns the shares the trader must pay for dy
// bonds out, underestimated. Used for fee-free baselines, never for pricing a
// real trade.
func (p Params) SharesInGivenBondsOutDown(dy fp.FixedPoint) fp.FixedPoint {
	te := p.te()

	// Round k down to make the lhs of the equation smaller.
	k := p.KDown()

	newY := p.BondReserves.Sub(dy).Pow(te)

	newZe := k.Sub(newY).MulDivDown(p.InitialSharePrice, p.SharePrice)
	if newZe.Gte(fp.One()) {
		newZe = newZe.Pow(fp.One().DivDown(te))
	} else {
		newZe = newZe.Pow(fp.One().DivUp(te))
	}
	newZe = newZe.DivDown(p.InitialSharePrice)

	return newZe.Sub(p.ShareReserves)
}

// SharesOutGivenBondsIn returns the shares paid out for dy bonds sold to the
// pool, underestimated. Fails when the sale would push the curve past its
// domain; clamps to zero when rounding would make the payout negative.
func (p Params) SharesOutGivenBondsIn(dy fp.FixedPoint) (fp.FixedPoint, error) {
	te := p.te()

	// Round k up to make the rhs of the equation larger.
	k := p.KUp()

	newY := p.BondReserves.Add(dy).Pow(te)
	if k.Lt(newY) {
		return fp.Zero(), fmt.Errorf("%w: k %s < y term %s", ErrInsufficientLiquidity, k, newY)
	}

	newZe := k.Sub(newY).MulDivUp(p.InitialSharePrice, p.SharePrice)
	if newZe.Gte(fp.One()) {
		newZe = newZe.Pow(fp.One().DivUp(te))
	} else {
		newZe = newZe.Pow(fp.One().DivDown(te))
	}
	newZe = newZe.DivUp(p.InitialSharePrice)

	if p.ShareReserves.Gt(newZe) {
		return p.ShareReserves.Sub(newZe), nil
	}
	return fp.Zero(), nil
}

// MaxBuySharesIn returns the share payment that moves the spot price to 1.
// At p = 1, µ·ze = y, which collapses the invariant to
// k = ((c/µ) + 1)·(µ·ze')^(1−t).
func (p Params) MaxBuySharesIn() (fp.FixedPoint, error) {
	te := p.te()

	k := p.KDown()
	optimalZe := k.DivDown(p.SharePrice.DivUp(p.InitialSharePrice).Add(fp.One()))
	optimalZe = optimalZe.Pow(fp.One().DivDown(te))
	optimalZe = optimalZe.DivDown(p.InitialSharePrice)

	if optimalZe.Gte(p.ShareReserves) {
		return optimalZe.Sub(p.ShareReserves), nil
	}
	return fp.Zero(), fmt.Errorf("%w: optimal share reserves %s < current %s",
		ErrInsufficientLiquidity, optimalZe, p.ShareReserves)
}

// MaxBuyBondsOut returns the largest bond purchase the pool supports,
// underestimated.
func (p Params) MaxBuyBondsOut() (fp.FixedPoint, error) {
	te := p.te()

	k := p.KUp()
	optimalY := k.DivUp(p.SharePrice.DivDown(p.InitialSharePrice).Add(fp.One()))
	if optimalY.Gte(fp.One()) {
		optimalY = optimalY.Pow(fp.One().DivUp(te))
	} else {
		optimalY = optimalY.Pow(fp.One().DivDown(te))
	}

	if p.BondReserves.Gte(optimalY) {
		return p.BondReserves.Sub(optimalY), nil
	}
	return fp.Zero(), fmt.Errorf("%w: bond reserves %s < optimal %s",
		ErrInsufficientLiquidity, p.BondReserves, optimalY)
}

// MaxSellBondsIn returns the largest bond sale the pool supports without
// dropping the share reserves below zMin, underestimated. A negative share
// adjustment raises the floor so that z itself never crosses zMin.
func (p Params) MaxSellBondsIn(zeta fp.Signed, zMin fp.FixedPoint) (fp.FixedPoint, error) {
	te := p.te()

	if zeta.IsNegative() {
		zMin = zMin.Add(zeta.Abs())
	}

	// Substituting z = zMin into the invariant gives the maximum bond
	// reserves y' = (k − (c/µ)·(µ·zMin)^(1−t))^(1/(1−t)).
	k := p.KDown()
	floor := p.SharePrice.MulDivUp(p.InitialSharePrice.MulUp(zMin).Pow(te), p.InitialSharePrice)
	optimalY := k.Sub(floor)
	if optimalY.Gte(fp.One()) {
		optimalY = optimalY.Pow(fp.One().DivDown(te))
	} else {
		optimalY = optimalY.Pow(fp.One().DivUp(te))
	}

	if optimalY.Gte(p.BondReserves) {
		return optimalY.Sub(p.BondReserves), nil
	}
	return fp.Zero(), fmt.Errorf("%w: optimal bond reserves %s < current %s",
		ErrInsufficientLiquidity, optimalY, p.BondReserves)
}
