// Package hyperdrive implements the pricing and accounting math of a
// fixed-rate yield AMM pool: opening and closing longs and shorts against the
// YieldSpace curve, the curve/flat/governance fee model, and the LP
// present-value accounting. Everything here is pure: functions quote trades
// against a State value without mutating it. The stateful pool machine that
// applies these quotes lives in internal/pool.
package hyperdrive

import (
	"fmt"

	fp "github.com/delvtech/hyperdrive-sub006/internal/fixedpoint"
	"github.com/delvtech/hyperdrive-sub006/internal/yieldspace"
)

// SecondsPerYear is the annualization basis for rate math.
const SecondsPerYear = 60 * 60 * 24 * 365

// Fees holds the pool's fee fractions, each in [0, 1).
type Fees struct {
	Curve      fp.FixedPoint `json:"curve"`
	Flat       fp.FixedPoint `json:"flat"`
	Governance fp.FixedPoint `json:"governance"`
}

// PoolConfig is immutable after pool initialization (fee rates may move
// within bounds through governance, the rest never changes).
type PoolConfig struct {
	InitialSharePrice        fp.FixedPoint `json:"initial_share_price"`
	MinimumShareReserves     fp.FixedPoint `json:"minimum_share_reserves"`
	MinimumTransactionAmount fp.FixedPoint `json:"minimum_transaction_amount"`
	PositionDuration         uint64        `json:"position_duration"`
	CheckpointDuration       uint64        `json:"checkpoint_duration"`
	TimeStretch              fp.FixedPoint `json:"time_stretch"`
	Fees                     Fees          `json:"fees"`
}

// Validate checks the structural constraints on a pool configuration.
func (c PoolConfig) Validate() error {
	if c.PositionDuration == 0 || c.CheckpointDuration == 0 {
		return fmt.Errorf("%w: durations must be non-zero", ErrInvalidConfig)
	}
	if c.PositionDuration%c.CheckpointDuration != 0 {
		return fmt.Errorf("%w: checkpoint duration %d does not divide position duration %d",
			ErrInvalidConfig, c.CheckpointDuration, c.PositionDuration)
	}
	if c.InitialSharePrice.IsZero() {
		return fmt.Errorf("%w: initial share price must be non-zero", ErrInvalidConfig)
	}
	if c.TimeStretch.IsZero() || c.TimeStretch.Gte(fp.One()) {
		return fmt.Errorf("%w: time stretch must be in (0, 1)", ErrInvalidConfig)
	}
	for _, f := range []fp.FixedPoint{c.Fees.Curve, c.Fees.Flat, c.Fees.Governance} {
		if f.Gt(fp.One()) {
			return fmt.Errorf("%w: fee fraction exceeds one", ErrInvalidConfig)
		}
	}
	return nil
}

// PoolInfo is the mutable pool state.
type PoolInfo struct {
	ShareReserves            fp.FixedPoint `json:"share_reserves"`
	ShareAdjustment          fp.Signed     `json:"share_adjustment"`
	BondReserves             fp.FixedPoint `json:"bond_reserves"`
	SharePrice               fp.FixedPoint `json:"share_price"`
	LongsOutstanding         fp.FixedPoint `json:"longs_outstanding"`
	LongAverageMaturityTime  fp.FixedPoint `json:"long_average_maturity_time"`
	ShortsOutstanding        fp.FixedPoint `json:"shorts_outstanding"`
	ShortAverageMaturityTime fp.FixedPoint `json:"short_average_maturity_time"`
	LongExposure             fp.FixedPoint `json:"long_exposure"`
	LPTotalSupply            fp.FixedPoint `json:"lp_total_supply"`
	WithdrawalSharesProceeds fp.FixedPoint `json:"withdrawal_shares_proceeds"`
	WithdrawalSharesReady    fp.FixedPoint `json:"withdrawal_shares_ready"`
	ZombieBaseProceeds       fp.FixedPoint `json:"zombie_base_proceeds"`
	ZombieShareReserves      fp.FixedPoint `json:"zombie_share_reserves"`
	GovernanceFeesAccrued    fp.FixedPoint `json:"governance_fees_accrued"`
}

// State is a pool snapshot the pricing functions quote against.
type State struct {
	Config PoolConfig `json:"config"`
	Info   PoolInfo   `json:"info"`
}

// EffectiveShareReserves returns ze = z − ζ.
func (s *State) EffectiveShareReserves() fp.FixedPoint {
	return yieldspace.EffectiveShareReserves(s.Info.ShareReserves, s.Info.ShareAdjustment)
}

// Curve packages the state into YieldSpace curve parameters.
func (s *State) Curve() yieldspace.Params {
	return yieldspace.Params{
		ShareReserves:     s.EffectiveShareReserves(),
		BondReserves:      s.Info.BondReserves,
		SharePrice:        s.Info.SharePrice,
		InitialSharePrice: s.Config.InitialSharePrice,
		TimeStretch:       s.Config.TimeStretch,
	}
}

// SpotPrice returns the pool's current spot price of a bond in base.
func (s *State) SpotPrice() fp.FixedPoint {
	return s.Curve().SpotPrice()
}

// SpotRate returns the fixed rate implied by the spot price:
// r = (1 − p) / (p · t) with t the annualized position duration.
func (s *State) SpotRate() fp.FixedPoint {
	p := s.SpotPrice()
	return fp.One().Sub(p).DivDown(p.MulDown(s.AnnualizedPositionDuration()))
}

// AnnualizedPositionDuration returns positionDuration expressed in years.
func (s *State) AnnualizedPositionDuration() fp.FixedPoint {
	return fp.FromUint64(s.Config.PositionDuration).DivDown(fp.FromUint64(SecondsPerYear))
}

// ToCheckpoint rounds a timestamp down to its checkpoint boundary.
func (s *State) ToCheckpoint(ts uint64) uint64 {
	return ts - ts%s.Config.CheckpointDuration
}

// MaturityTime returns the maturity of a position opened at the given time:
// its checkpoint boundary plus the position duration.
func (s *State) MaturityTime(openedAt uint64) uint64 {
	return s.ToCheckpoint(openedAt) + s.Config.PositionDuration
}

// NormalizedTimeRemaining returns (maturity − latestCheckpoint) /
// positionDuration, rounded down to underestimate the time remaining, and
// zero for matured positions.
func (s *State) NormalizedTimeRemaining(maturity, now uint64) fp.FixedPoint {
	latest := s.ToCheckpoint(now)
	if maturity <= latest {
		return fp.Zero()
	}
	return fp.FromUint64(maturity - latest).DivDown(fp.FromUint64(s.Config.PositionDuration))
}

// timeRemainingScaled converts an average maturity time (seconds scaled by
// 1e18, as stored in the aggregates) into a normalized time remaining.
func (s *State) timeRemainingScaled(avgMaturity fp.FixedPoint, now uint64) fp.FixedPoint {
	return s.NormalizedTimeRemaining(avgMaturity.Whole(), now)
}

// MaxSpotPrice returns the highest spot price longs may push the pool to.
// Buying past it would let bonds trade above face value net of fees, which
// is the negative-interest domain.
func (s *State) MaxSpotPrice() fp.FixedPoint {
	oneMinusFlat := fp.One().Sub(s.Config.Fees.Flat)
	priceAdj := s.Config.Fees.Curve.MulUp(fp.One().DivUp(s.SpotPrice()).Sub(fp.One()))
	return oneMinusFlat.DivDown(fp.One().Add(priceAdj).MulUp(oneMinusFlat))
}

// Solvency returns z − longExposure/c − zMin, the share reserves available
// beyond what is needed to back outstanding longs.
func (s *State) Solvency() (fp.FixedPoint, error) {
	need := s.Info.LongExposure.DivDown(s.Info.SharePrice).Add(s.Config.MinimumShareReserves)
	if s.Info.ShareReserves.Lt(need) {
		return fp.Zero(), fmt.Errorf("%w: reserves %s, required %s",
			ErrBaseBufferExceedsShareReserves, s.Info.ShareReserves, need)
	}
	return s.Info.ShareReserves.Sub(need), nil
}

// CheckSolvency verifies the post-trade solvency invariant.
func (s *State) CheckSolvency() error {
	_, err := s.Solvency()
	return err
}

// UpdateWeightedAverage folds a delta into a running weighted average. Adding
// weights the new entry in; removing subtracts its contribution, returning
// zero when the removal exhausts the total weight.
func UpdateWeightedAverage(average, totalWeight, delta, deltaWeight fp.FixedPoint, adding bool) fp.FixedPoint {
	if deltaWeight.IsZero() {
		return average
	}
	if adding {
		return average.MulDown(totalWeight).Add(delta.MulDown(deltaWeight)).
			DivDown(totalWeight.Add(deltaWeight))
	}
	if totalWeight.Lte(deltaWeight) {
		return fp.Zero()
	}
	numerator := average.MulDown(totalWeight).SatSub(delta.MulDown(deltaWeight))
	return numerator.DivDown(totalWeight.Sub(deltaWeight))
}
