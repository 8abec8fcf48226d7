package hyperdrive

import (
	fp "github.com/delvtech/hyperdrive-sub006/internal/fixedpoint"
)

// Fee formulas. The unit of each fee matters: open-long curve fees are paid
// in bonds, open-short curve fees in base, and close fees on both sides in
// shares. Governance takes its cut in the unit of the fee it is carved from.

// OpenLongCurveFee returns φc · (1/p − 1) · x in bonds for a base payment x.
func (s *State) OpenLongCurveFee(baseAmount fp.FixedPoint) fp.FixedPoint {
	priceDiscount := fp.One().DivDown(s.SpotPrice()).Sub(fp.One())
	return s.Config.Fees.Curve.MulDown(priceDiscount).MulDown(baseAmount)
}

// OpenLongGovernanceFee returns φg · p · curveFee in base.
func (s *State) OpenLongGovernanceFee(baseAmount fp.FixedPoint) fp.FixedPoint {
	return s.Config.Fees.Governance.MulDown(s.SpotPrice()).MulDown(s.OpenLongCurveFee(baseAmount))
}

// CloseLongCurveFee returns φc · (1 − p) · y · t / c in shares.
func (s *State) CloseLongCurveFee(bondAmount, timeRemaining fp.FixedPoint) fp.FixedPoint {
	return s.Config.Fees.Curve.
		MulDown(fp.One().Sub(s.SpotPrice())).
		MulDown(bondAmount.MulDivDown(timeRemaining, s.Info.SharePrice))
}

// CloseLongFlatFee returns y · (1 − t) · φf / c in shares.
func (s *State) CloseLongFlatFee(bondAmount, timeRemaining fp.FixedPoint) fp.FixedPoint {
	return bondAmount.MulDivDown(fp.One().Sub(timeRemaining), s.Info.SharePrice).
		MulDown(s.Config.Fees.Flat)
}

// OpenShortCurveFee returns φc · (1 − p) · y in base.
func (s *State) OpenShortCurveFee(bondAmount, spotPrice fp.FixedPoint) fp.FixedPoint {
	return s.Config.Fees.Curve.MulDown(fp.One().Sub(spotPrice)).MulDown(bondAmount)
}

// OpenShortGovernanceFee returns φg · curveFee in base.
func (s *State) OpenShortGovernanceFee(bondAmount, spotPrice fp.FixedPoint) fp.FixedPoint {
	return s.Config.Fees.Governance.MulDown(s.OpenShortCurveFee(bondAmount, spotPrice))
}

// CloseShortCurveFee returns φc · (1 − p) · y · t / c in shares.
func (s *State) CloseShortCurveFee(bondAmount, timeRemaining fp.FixedPoint) fp.FixedPoint {
	return s.Config.Fees.Curve.
		MulDown(fp.One().Sub(s.SpotPrice())).
		MulDown(bondAmount.MulDivDown(timeRemaining, s.Info.SharePrice))
}

// CloseShortFlatFee returns y · (1 − t) · φf / c in shares.
func (s *State) CloseShortFlatFee(bondAmount, timeRemaining fp.FixedPoint) fp.FixedPoint {
	return bondAmount.MulDivDown(fp.One().Sub(timeRemaining), s.Info.SharePrice).
		MulDown(s.Config.Fees.Flat)
}
