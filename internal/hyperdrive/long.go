package hyperdrive

import (
	"fmt"

	fp "github.com/delvtech/hyperdrive-sub006/internal/fixedpoint"
)

// OpenLongQuote is the priced outcome of opening a long. The pool machine
// applies it to reserves; nothing here mutates state.
type OpenLongQuote struct {
	// ShareAmount is the trader's deposit converted to shares.
	ShareAmount fp.FixedPoint
	// BondProceeds is the bonds minted to the trader, net of the curve fee.
	BondProceeds fp.FixedPoint
	// CurveFee is the fee retained from the trade, in bonds.
	CurveFee fp.FixedPoint
	// GovernanceFee is the governance cut, in base.
	GovernanceFee fp.FixedPoint
	// SpotPriceAfter is the curve price once the trade lands.
	SpotPriceAfter fp.FixedPoint
}

// CalculateOpenLong prices a long opened with baseAmount of deposit. Fails
// when the amount is below the pool minimum, when the pool cannot source the
// bonds, or when the trade would push the spot price into the
// negative-interest domain.
func (s *State) CalculateOpenLong(baseAmount fp.FixedPoint) (q OpenLongQuote, err error) {
	defer fp.Guard(&err)

	if baseAmount.Lt(s.Config.MinimumTransactionAmount) {
		return q, fmt.Errorf("%w: %s < %s", ErrBelowMinimumTransaction,
			baseAmount, s.Config.MinimumTransactionAmount)
	}

	q.ShareAmount = baseAmount.DivDown(s.Info.SharePrice)
	longAmount := s.Curve().BondsOutGivenSharesIn(q.ShareAmount)

	// Longs may not push the price past the point where bonds would trade
	// above face value net of fees.
	after := *s
	after.Info.ShareReserves = s.Info.ShareReserves.Add(q.ShareAmount)
	after.Info.BondReserves = s.Info.BondReserves.Sub(longAmount)
	q.SpotPriceAfter = after.SpotPrice()
	if q.SpotPriceAfter.Gt(s.MaxSpotPrice()) {
		return q, fmt.Errorf("%w: spot price after long %s exceeds max %s",
			ErrNegativeInterest, q.SpotPriceAfter, s.MaxSpotPrice())
	}

	q.CurveFee = s.OpenLongCurveFee(baseAmount)
	q.GovernanceFee = s.OpenLongGovernanceFee(baseAmount)
	q.BondProceeds = longAmount.Sub(q.CurveFee)
	return q, nil
}

// CloseLongQuote is the priced outcome of closing a long.
type CloseLongQuote struct {
	// FlatShares is the matured portion, paid at face: y·(1−t)/c.
	FlatShares fp.FixedPoint
	// CurveShares is the unmatured portion sold back on the curve.
	CurveShares fp.FixedPoint
	// CurveBondsIn is the bond amount the curve absorbs (y·t).
	CurveBondsIn fp.FixedPoint
	// CurveFee and FlatFee are the close fees, in shares.
	CurveFee fp.FixedPoint
	FlatFee  fp.FixedPoint
	// GovernanceFee is the governance cut of both fees, in shares.
	GovernanceFee fp.FixedPoint
	// ShareProceeds is what the trader receives, net of fees.
	ShareProceeds fp.FixedPoint
	// TimeRemaining is the normalized time to maturity used for the split.
	TimeRemaining fp.FixedPoint
}

// CalculateCloseLong prices closing bondAmount of a long maturing at
// maturity, evaluated at the versioned time now. Matured positions settle
// entirely through the flat component and never touch the curve.
func (s *State) CalculateCloseLong(bondAmount fp.FixedPoint, maturity, now uint64) (q CloseLongQuote, err error) {
	defer fp.Guard(&err)

	q.TimeRemaining = s.NormalizedTimeRemaining(maturity, now)
	q.FlatShares = bondAmount.MulDivDown(fp.One().Sub(q.TimeRemaining), s.Info.SharePrice)

	if q.TimeRemaining.Gt(fp.Zero()) {
		q.CurveBondsIn = bondAmount.MulDown(q.TimeRemaining)
		q.CurveShares, err = s.Curve().SharesOutGivenBondsIn(q.CurveBondsIn)
		if err != nil {
			return q, err
		}
		// Mirror of the close-short cost pad: shave the payout so pow
		// approximation error cannot tip a round trip into trader profit.
		q.CurveShares = q.CurveShares.SatSub(powSlack(q.CurveShares))
	}

	q.CurveFee = s.CloseLongCurveFee(bondAmount, q.TimeRemaining)
	q.FlatFee = s.CloseLongFlatFee(bondAmount, q.TimeRemaining)
	q.GovernanceFee = q.CurveFee.Add(q.FlatFee).MulDown(s.Config.Fees.Governance)
	q.ShareProceeds = q.FlatShares.Add(q.CurveShares).Sub(q.CurveFee).Sub(q.FlatFee)
	return q, nil
}
