package hyperdrive

import (
	"fmt"

	fp "github.com/delvtech/hyperdrive-sub006/internal/fixedpoint"
)

// ComputeTimeStretch derives the time stretch constant from a target fixed
// rate. The magic numbers come from the calibration of the reference curve
// and are part of the protocol definition.
func ComputeTimeStretch(rate fp.FixedPoint) fp.FixedPoint {
	scaled := rate.MulDown(fp.FromUint64(100))
	stretch := fp.MustFromDec("5.24592").DivDown(fp.MustFromDec("0.04665").MulDown(scaled))
	return fp.One().DivDown(stretch)
}

// CalculateInitialBondReserves solves the bond reserves that price a freshly
// initialized pool at the target fixed rate. Setting the spot price
// p = 1/(1 + r·t) equal to (µ·z/y)^ts and solving for y gives
//
//	y = µ·z·(1 + r·t)^(1/ts)
func CalculateInitialBondReserves(cfg PoolConfig, shareReserves, targetRate fp.FixedPoint) fp.FixedPoint {
	annualized := fp.FromUint64(cfg.PositionDuration).DivDown(fp.FromUint64(SecondsPerYear))
	growth := fp.One().Add(targetRate.MulDown(annualized))
	return cfg.InitialSharePrice.MulDown(shareReserves).
		MulDown(growth.Pow(fp.One().DivDown(cfg.TimeStretch)))
}

// NetCurveTrade returns the share value of unwinding the net tradeable
// position on the curve: outstanding longs net of shorts, weighted by their
// average time remaining. Positive means the unwind pays shares into the
// reserves; negative means it draws them out.
func (s *State) NetCurveTrade(longTimeRemaining, shortTimeRemaining fp.FixedPoint) (fp.Signed, error) {
	netPosition := fp.SignedFrom(s.Info.LongsOutstanding.MulDown(longTimeRemaining)).
		Sub(fp.SignedFrom(s.Info.ShortsOutstanding.MulDown(shortTimeRemaining)))

	switch netPosition.Sign() {
	case 1:
		// Net long: the unwind sells bonds into the pool, so the reserves pay
		// out shares.
		maxSell, err := s.Curve().MaxSellBondsIn(s.Info.ShareAdjustment, s.Config.MinimumShareReserves)
		if err != nil {
			return fp.Signed{}, err
		}
		if maxSell.Gte(netPosition.Abs()) {
			out, err := s.Curve().SharesOutGivenBondsIn(netPosition.Abs())
			if err != nil {
				return fp.Signed{}, err
			}
			return fp.NewSigned(out, true), nil
		}
		// The curve cannot absorb the whole position; the remainder marks to
		// zero, so the payout is everything above the reserve floor.
		return fp.NewSigned(
			s.EffectiveShareReserves().Sub(s.Config.MinimumShareReserves), true), nil
	case -1:
		// Net short: the unwind buys bonds back, paying shares in.
		maxBuy, err := s.Curve().MaxBuyBondsOut()
		if err != nil {
			return fp.Signed{}, err
		}
		if maxBuy.Gte(netPosition.Abs()) {
			in, err := s.Curve().SharesInGivenBondsOutUp(netPosition.Abs())
			if err != nil {
				return fp.Signed{}, err
			}
			return fp.SignedFrom(in), nil
		}
		// Past the max buy the price is pinned at one, so the remaining bonds
		// cost their face value in shares.
		maxPayment, err := s.Curve().MaxBuySharesIn()
		if err != nil {
			return fp.Signed{}, err
		}
		remainder := netPosition.Abs().Sub(maxBuy).DivDown(s.Info.SharePrice)
		return fp.SignedFrom(maxPayment.Add(remainder)), nil
	default:
		return fp.Signed{}, nil
	}
}

// NetFlatTrade returns the share value of settling the matured fraction of
// outstanding positions at face value.
func (s *State) NetFlatTrade(longTimeRemaining, shortTimeRemaining fp.FixedPoint) fp.Signed {
	shortsFlat := s.Info.ShortsOutstanding.
		MulDivDown(fp.One().Sub(shortTimeRemaining), s.Info.SharePrice)
	longsFlat := s.Info.LongsOutstanding.
		MulDivDown(fp.One().Sub(longTimeRemaining), s.Info.SharePrice)
	return fp.SignedFrom(shortsFlat).Sub(fp.SignedFrom(longsFlat))
}

// PresentValue returns the LP capital in the pool, in shares: the share
// reserves adjusted for the cost of unwinding every outstanding position,
// less the minimum reserves.
func (s *State) PresentValue(now uint64) (pv fp.FixedPoint, err error) {
	defer fp.Guard(&err)

	longT := s.timeRemainingScaled(s.Info.LongAverageMaturityTime, now)
	shortT := s.timeRemainingScaled(s.Info.ShortAverageMaturityTime, now)

	netCurve, err := s.NetCurveTrade(longT, shortT)
	if err != nil {
		return fp.Zero(), err
	}
	netFlat := s.NetFlatTrade(longT, shortT)

	value := fp.SignedFrom(s.Info.ShareReserves).
		Add(netCurve).
		Add(netFlat).
		Sub(fp.SignedFrom(s.Config.MinimumShareReserves))
	if value.Sign() < 0 {
		return fp.Zero(), fmt.Errorf("%w: %s", ErrNegativePresentValue, value)
	}
	return value.Abs(), nil
}

// LPSharePrice returns the base value of one LP share: PV·c / supply.
func (s *State) LPSharePrice(now uint64) (fp.FixedPoint, error) {
	if s.Info.LPTotalSupply.IsZero() {
		return fp.Zero(), nil
	}
	pv, err := s.PresentValue(now)
	if err != nil {
		return fp.Zero(), err
	}
	return pv.MulDivDown(s.Info.SharePrice, s.Info.LPTotalSupply), nil
}

// CalculateAddLiquidity returns the LP shares minted for a base
// contribution, holding present value per share constant across the add.
func (s *State) CalculateAddLiquidity(contribution fp.FixedPoint, now uint64) (lpOut fp.FixedPoint, err error) {
	defer fp.Guard(&err)

	if contribution.Lt(s.Config.MinimumTransactionAmount) {
		return fp.Zero(), fmt.Errorf("%w: %s < %s", ErrBelowMinimumTransaction,
			contribution, s.Config.MinimumTransactionAmount)
	}

	pvBefore, err := s.PresentValue(now)
	if err != nil {
		return fp.Zero(), err
	}
	if pvBefore.IsZero() {
		return fp.Zero(), fmt.Errorf("%w: zero present value", ErrNegativePresentValue)
	}

	dz := contribution.DivDown(s.Info.SharePrice)
	after := *s
	after.Info.ShareReserves = s.Info.ShareReserves.Add(dz)
	pvAfter, err := after.PresentValue(now)
	if err != nil {
		return fp.Zero(), err
	}

	return pvAfter.Sub(pvBefore).MulDivDown(s.Info.LPTotalSupply, pvBefore), nil
}

// RemoveLiquidityQuote is the outcome of burning LP shares.
type RemoveLiquidityQuote struct {
	// ShareProceeds is the idle capital released immediately, in shares.
	ShareProceeds fp.FixedPoint
	// WithdrawalShares is the claim minted for the capital still locked in
	// unmatured positions.
	WithdrawalShares fp.FixedPoint
}

// CalculateRemoveLiquidity prices burning lpShares. The withdrawing LP
// receives their pro-rata slice of the pool's idle capital now; whatever is
// still backing open positions converts one-for-one into withdrawal shares
// redeemable as that capital frees up.
func (s *State) CalculateRemoveLiquidity(lpShares fp.FixedPoint, now uint64) (q RemoveLiquidityQuote, err error) {
	defer fp.Guard(&err)

	if lpShares.IsZero() || s.Info.LPTotalSupply.IsZero() {
		return q, fmt.Errorf("%w: zero shares", ErrBelowMinimumTransaction)
	}
	if lpShares.Gt(s.Info.LPTotalSupply) {
		return q, fmt.Errorf("%w: burning %s of %s supply", ErrSlippageExceeded,
			lpShares, s.Info.LPTotalSupply)
	}

	pv, err := s.PresentValue(now)
	if err != nil {
		return q, err
	}
	lpValue := lpShares.MulDivDown(pv, s.Info.LPTotalSupply)

	idle, err := s.Solvency()
	if err != nil {
		return q, err
	}

	if lpValue.Lte(idle) {
		q.ShareProceeds = lpValue
		return q, nil
	}
	q.ShareProceeds = idle
	// LP shares whose value could not be paid out convert to withdrawal
	// shares. The redeemed fraction is proceeds/lpValue of the burn.
	redeemed := q.ShareProceeds.MulDivDown(lpShares, lpValue)
	q.WithdrawalShares = lpShares.Sub(redeemed)
	return q, nil
}

// CalculateRedeemWithdrawalShares pays out at most the ready-to-withdraw
// balance, pro rata against the earmarked proceeds.
func (s *State) CalculateRedeemWithdrawalShares(shares fp.FixedPoint) (proceeds, redeemed fp.FixedPoint) {
	if s.Info.WithdrawalSharesReady.IsZero() {
		return fp.Zero(), fp.Zero()
	}
	redeemed = shares.Min(s.Info.WithdrawalSharesReady)
	proceeds = redeemed.MulDivDown(s.Info.WithdrawalSharesProceeds, s.Info.WithdrawalSharesReady)
	return proceeds, redeemed
}
