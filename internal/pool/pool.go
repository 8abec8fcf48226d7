// Package pool implements the stateful side of a Hyperdrive pool: the
// checkpoint ledger, the position-token registry, governance, and the pool
// machine that applies priced trades from internal/hyperdrive to shared
// mutable state. Every operation is all-or-nothing: quotes and guards run
// against the current state, and mutations commit only after every check
// passes.
package pool

import (
	"errors"
	"fmt"

	fp "github.com/delvtech/hyperdrive-sub006/internal/fixedpoint"
	"github.com/delvtech/hyperdrive-sub006/internal/hyperdrive"
)

var (
	// ErrAlreadyInitialized rejects a second Initialize.
	ErrAlreadyInitialized = errors.New("pool: already initialized")

	// ErrNotInitialized rejects trades against an uninitialized pool.
	ErrNotInitialized = errors.New("pool: not initialized")
)

// BurnedLPHolder holds the permanently locked minimum-reserve LP allocation.
const BurnedLPHolder = "0x0"

// Pool is one pool instance: pricing state plus the bookkeeping that
// surrounds it.
type Pool struct {
	ID          string
	State       hyperdrive.State
	Checkpoints *CheckpointLedger
	Registry    *Registry
	Gov         *Governance
	Initialized bool

	// settled marks maturity buckets whose pool-side accounting has already
	// been unwound by a checkpoint; closes against them pay from the zombie
	// reserves instead of the live reserves.
	settled map[AssetID]bool

	// stray tracks non-pool token balances accidentally sent to the pool,
	// recoverable through Sweep.
	stray map[string]fp.FixedPoint
}

// New creates an uninitialized pool.
func New(id string, cfg hyperdrive.PoolConfig, gov *Governance) (*Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &Pool{
		ID:          id,
		Checkpoints: NewCheckpointLedger(cfg.CheckpointDuration),
		Registry:    NewRegistry(),
		Gov:         gov,
		settled:     make(map[AssetID]bool),
		stray:       make(map[string]fp.FixedPoint),
	}
	p.State.Config = cfg
	p.State.Info.SharePrice = cfg.InitialSharePrice
	return p, nil
}

// SetSharePrice records a new vault share price. Prices drive interest
// accrual and are versioned by the event stream, never by wall clock.
func (p *Pool) SetSharePrice(price fp.FixedPoint) {
	if !price.IsZero() {
		p.State.Info.SharePrice = price
	}
}

// ensureCheckpoint initializes the bucket covering now at the current share
// price, backfilling any missed buckets with the first price observed after
// them.
func (p *Pool) ensureCheckpoint(now uint64) *Checkpoint {
	current := p.State.ToCheckpoint(now)
	for _, t := range p.Checkpoints.MissingSince(p.oldestRelevantBucket(current), current) {
		p.ApplyCheckpoint(t, p.State.Info.SharePrice)
	}
	return p.Checkpoints.Get(current)
}

// oldestRelevantBucket bounds backfill to one position duration in the
// past: anything older cannot hold unsettled positions.
func (p *Pool) oldestRelevantBucket(current uint64) uint64 {
	if current < p.State.Config.PositionDuration {
		return 0
	}
	return current - p.State.Config.PositionDuration
}

// --- lifecycle ---

// InitializeResult reports the initial pool composition.
type InitializeResult struct {
	LPShares      fp.FixedPoint
	ShareReserves fp.FixedPoint
	BondReserves  fp.FixedPoint
}

// Initialize seeds the pool from a base contribution and derives the bond
// reserves that price it at the target fixed rate. Callable once.
func (p *Pool) Initialize(trader string, contribution, targetRate fp.FixedPoint, now uint64) (r InitializeResult, err error) {
	defer fp.Guard(&err)

	if p.Initialized {
		return r, ErrAlreadyInitialized
	}
	cfg := p.State.Config

	z := contribution.DivDown(p.State.Info.SharePrice)
	if z.Lte(cfg.MinimumShareReserves) {
		return r, fmt.Errorf("%w: contribution %s cannot cover minimum reserves %s",
			hyperdrive.ErrBelowMinimumTransaction, contribution, cfg.MinimumShareReserves)
	}
	y := hyperdrive.CalculateInitialBondReserves(cfg, z, targetRate)
	lpShares := z.Sub(cfg.MinimumShareReserves)

	p.State.Info.ShareReserves = z
	p.State.Info.BondReserves = y
	p.State.Info.LPTotalSupply = lpShares
	p.Initialized = true

	// The minimum-reserve allocation is minted to the burn holder so the
	// pool can never be fully drained.
	p.Registry.Mint(LPAssetID, BurnedLPHolder, cfg.MinimumShareReserves)
	p.Registry.Mint(LPAssetID, trader, lpShares)
	p.ensureCheckpoint(now)

	return InitializeResult{
		LPShares:      lpShares,
		ShareReserves: z,
		BondReserves:  y,
	}, nil
}

// --- longs ---

// OpenLongResult reports an applied long open.
type OpenLongResult struct {
	Trader        string
	BaseAmount    fp.FixedPoint
	ShareAmount   fp.FixedPoint
	BondProceeds  fp.FixedPoint
	GovernanceFee fp.FixedPoint // shares
	MaturityTime  uint64
}

// OpenLong deposits base and mints maturity-dated long tokens.
func (p *Pool) OpenLong(trader string, baseAmount, minOutput, minSharePrice fp.FixedPoint, now uint64) (r OpenLongResult, err error) {
	defer fp.Guard(&err)

	if !p.Initialized {
		return r, ErrNotInitialized
	}
	if p.Gov.Paused {
		return r, ErrPoolPaused
	}
	cp := p.ensureCheckpoint(now)
	if p.State.Info.SharePrice.Lt(minSharePrice) {
		return r, fmt.Errorf("%w: share price %s below minimum %s",
			hyperdrive.ErrSlippageExceeded, p.State.Info.SharePrice, minSharePrice)
	}

	q, err := p.State.CalculateOpenLong(baseAmount)
	if err != nil {
		return r, err
	}
	if q.BondProceeds.Lt(minOutput) {
		return r, fmt.Errorf("%w: proceeds %s below minimum output %s",
			hyperdrive.ErrSlippageExceeded, q.BondProceeds, minOutput)
	}

	maturity := p.State.MaturityTime(now)
	govShares := q.GovernanceFee.DivDown(p.State.Info.SharePrice)

	next := p.State
	next.Info.ShareReserves = next.Info.ShareReserves.Add(q.ShareAmount).Sub(govShares)
	next.Info.BondReserves = next.Info.BondReserves.Sub(q.BondProceeds)
	next.Info.GovernanceFeesAccrued = next.Info.GovernanceFeesAccrued.Add(govShares)
	next.Info.LongAverageMaturityTime = hyperdrive.UpdateWeightedAverage(
		next.Info.LongAverageMaturityTime, next.Info.LongsOutstanding,
		fp.FromUint64(maturity), q.BondProceeds, true)
	next.Info.LongsOutstanding = next.Info.LongsOutstanding.Add(q.BondProceeds)
	next.Info.LongExposure = next.Info.LongExposure.Add(q.BondProceeds)
	if err := next.CheckSolvency(); err != nil {
		return r, err
	}

	p.State = next
	cp.LongBaseVolume = cp.LongBaseVolume.Add(baseAmount)
	p.Registry.Mint(LongAssetID(maturity), trader, q.BondProceeds)

	return OpenLongResult{
		Trader:        trader,
		BaseAmount:    baseAmount,
		ShareAmount:   q.ShareAmount,
		BondProceeds:  q.BondProceeds,
		GovernanceFee: govShares,
		MaturityTime:  maturity,
	}, nil
}

// CloseLongResult reports an applied long close.
type CloseLongResult struct {
	Trader        string
	BondAmount    fp.FixedPoint
	ShareProceeds fp.FixedPoint
	BaseProceeds  fp.FixedPoint
	GovernanceFee fp.FixedPoint // shares
	Matured       bool
}

// CloseLong burns long tokens and pays the trader their proceeds. Closes are
// allowed while the pool is paused.
func (p *Pool) CloseLong(trader string, maturity uint64, bondAmount, minOutput fp.FixedPoint, now uint64) (r CloseLongResult, err error) {
	defer fp.Guard(&err)

	if !p.Initialized {
		return r, ErrNotInitialized
	}
	p.ensureCheckpoint(now)

	asset := LongAssetID(maturity)
	if bal := p.Registry.BalanceOf(asset, trader); bal.Lt(bondAmount) {
		return r, fmt.Errorf("%w: %s holds %s of %s, closing %s",
			ErrInsufficientBalance, trader, bal, asset, bondAmount)
	}

	if p.settled[asset] {
		return p.closeSettledLong(trader, asset, bondAmount, minOutput)
	}

	q, err := p.State.CalculateCloseLong(bondAmount, maturity, now)
	if err != nil {
		return r, err
	}
	baseProceeds := q.ShareProceeds.MulDown(p.State.Info.SharePrice)
	if baseProceeds.Lt(minOutput) {
		return r, fmt.Errorf("%w: proceeds %s below minimum output %s",
			hyperdrive.ErrSlippageExceeded, baseProceeds, minOutput)
	}

	supplyBefore := p.Registry.TotalSupply(asset)

	next := p.State
	next.Info.ShareReserves = next.Info.ShareReserves.Sub(q.ShareProceeds).Sub(q.GovernanceFee)
	next.Info.BondReserves = next.Info.BondReserves.Add(q.CurveBondsIn)
	next.Info.GovernanceFeesAccrued = next.Info.GovernanceFeesAccrued.Add(q.GovernanceFee)
	next.Info.LongAverageMaturityTime = hyperdrive.UpdateWeightedAverage(
		next.Info.LongAverageMaturityTime, next.Info.LongsOutstanding,
		fp.FromUint64(maturity), bondAmount, false)
	next.Info.LongsOutstanding = next.Info.LongsOutstanding.SatSub(bondAmount)
	next.Info.LongExposure = next.Info.LongExposure.SatSub(bondAmount)

	p.State = next
	p.drainCheckpointVolume(asset, bondAmount, supplyBefore)
	if err := p.Registry.Burn(asset, trader, bondAmount); err != nil {
		return r, err
	}
	p.distributeExcessIdle(now)

	return CloseLongResult{
		Trader:        trader,
		BondAmount:    bondAmount,
		ShareProceeds: q.ShareProceeds,
		BaseProceeds:  baseProceeds,
		GovernanceFee: q.GovernanceFee,
		Matured:       q.TimeRemaining.IsZero(),
	}, nil
}

// closeSettledLong redeems a matured, checkpoint-settled long from the
// zombie reserves at the settlement share price.
func (p *Pool) closeSettledLong(trader string, asset AssetID, bondAmount, minOutput fp.FixedPoint) (r CloseLongResult, err error) {
	price := p.Checkpoints.SharePriceAt(asset.Maturity, p.State.Info.SharePrice)
	flatFee := bondAmount.MulDivDown(p.State.Config.Fees.Flat, price)
	proceeds := bondAmount.DivDown(price).Sub(flatFee)
	proceeds = proceeds.Min(p.State.Info.ZombieShareReserves)

	baseProceeds := proceeds.MulDown(p.State.Info.SharePrice)
	if baseProceeds.Lt(minOutput) {
		return r, fmt.Errorf("%w: proceeds %s below minimum output %s",
			hyperdrive.ErrSlippageExceeded, baseProceeds, minOutput)
	}

	p.State.Info.ZombieShareReserves = p.State.Info.ZombieShareReserves.Sub(proceeds)
	p.State.Info.ZombieBaseProceeds = p.State.Info.ZombieBaseProceeds.SatSub(baseProceeds)
	if err := p.Registry.Burn(asset, trader, bondAmount); err != nil {
		return r, err
	}

	return CloseLongResult{
		Trader:        trader,
		BondAmount:    bondAmount,
		ShareProceeds: proceeds,
		BaseProceeds:  baseProceeds,
		Matured:       true,
	}, nil
}

// --- shorts ---

// OpenShortResult reports an applied short open.
type OpenShortResult struct {
	Trader        string
	BondAmount    fp.FixedPoint
	BaseDeposit   fp.FixedPoint
	Principal     fp.FixedPoint // shares
	CurveFee      fp.FixedPoint // base
	GovernanceFee fp.FixedPoint // shares
	MaturityTime  uint64
}

// OpenShort sells bonds into the pool and collects the trader's margin
// deposit.
func (p *Pool) OpenShort(trader string, bondAmount, maxDeposit, minSharePrice fp.FixedPoint, now uint64) (r OpenShortResult, err error) {
	defer fp.Guard(&err)

	if !p.Initialized {
		return r, ErrNotInitialized
	}
	if p.Gov.Paused {
		return r, ErrPoolPaused
	}
	cp := p.ensureCheckpoint(now)
	if p.State.Info.SharePrice.Lt(minSharePrice) {
		return r, fmt.Errorf("%w: share price %s below minimum %s",
			hyperdrive.ErrSlippageExceeded, p.State.Info.SharePrice, minSharePrice)
	}

	q, err := p.State.CalculateOpenShort(bondAmount, cp.SharePrice)
	if err != nil {
		return r, err
	}
	if q.Deposit.Gt(maxDeposit) {
		return r, fmt.Errorf("%w: deposit %s above maximum %s",
			hyperdrive.ErrSlippageExceeded, q.Deposit, maxDeposit)
	}

	maturity := p.State.MaturityTime(now)
	govShares := q.GovernanceFee.DivDown(p.State.Info.SharePrice)
	keptFeeShares := q.CurveFee.Sub(q.GovernanceFee).DivDown(p.State.Info.SharePrice)

	next := p.State
	next.Info.ShareReserves = next.Info.ShareReserves.Sub(q.Principal).Add(keptFeeShares)
	next.Info.BondReserves = next.Info.BondReserves.Add(bondAmount)
	next.Info.GovernanceFeesAccrued = next.Info.GovernanceFeesAccrued.Add(govShares)
	next.Info.ShortAverageMaturityTime = hyperdrive.UpdateWeightedAverage(
		next.Info.ShortAverageMaturityTime, next.Info.ShortsOutstanding,
		fp.FromUint64(maturity), bondAmount, true)
	next.Info.ShortsOutstanding = next.Info.ShortsOutstanding.Add(bondAmount)
	if err := next.CheckSolvency(); err != nil {
		return r, err
	}

	p.State = next
	cp.ShortBaseVolume = cp.ShortBaseVolume.Add(q.Principal.MulDown(p.State.Info.SharePrice))
	p.Registry.Mint(ShortAssetID(maturity), trader, bondAmount)

	return OpenShortResult{
		Trader:        trader,
		BondAmount:    bondAmount,
		BaseDeposit:   q.Deposit,
		Principal:     q.Principal,
		CurveFee:      q.CurveFee,
		GovernanceFee: govShares,
		MaturityTime:  maturity,
	}, nil
}

// CloseShortResult reports an applied short close.
type CloseShortResult struct {
	Trader        string
	BondAmount    fp.FixedPoint
	ShareCost     fp.FixedPoint // shares
	ShareProceeds fp.FixedPoint
	BaseProceeds  fp.FixedPoint
	GovernanceFee fp.FixedPoint // shares
	Matured       bool
}

// CloseShort buys the shorted bonds back and pays the trader their margin
// plus variable interest net of the buyback cost.
func (p *Pool) CloseShort(trader string, maturity uint64, bondAmount, minOutput fp.FixedPoint, now uint64) (r CloseShortResult, err error) {
	defer fp.Guard(&err)

	if !p.Initialized {
		return r, ErrNotInitialized
	}
	p.ensureCheckpoint(now)

	asset := ShortAssetID(maturity)
	if bal := p.Registry.BalanceOf(asset, trader); bal.Lt(bondAmount) {
		return r, fmt.Errorf("%w: %s holds %s of %s, closing %s",
			ErrInsufficientBalance, trader, bal, asset, bondAmount)
	}

	if p.settled[asset] {
		return p.closeSettledShort(trader, asset, bondAmount, minOutput)
	}

	openPrice := p.Checkpoints.SharePriceAt(
		maturity-p.State.Config.PositionDuration, p.State.Config.InitialSharePrice)
	closePrice := p.State.Info.SharePrice
	if maturity <= p.State.ToCheckpoint(now) {
		closePrice = p.Checkpoints.SharePriceAt(maturity, p.State.Info.SharePrice)
	}

	q, err := p.State.CalculateCloseShort(bondAmount, openPrice, closePrice, maturity, now)
	if err != nil {
		return r, err
	}
	baseProceeds := q.ShareProceeds.MulDown(p.State.Info.SharePrice)
	if baseProceeds.Lt(minOutput) {
		return r, fmt.Errorf("%w: proceeds %s below minimum output %s",
			hyperdrive.ErrSlippageExceeded, baseProceeds, minOutput)
	}

	supplyBefore := p.Registry.TotalSupply(asset)

	next := p.State
	next.Info.ShareReserves = next.Info.ShareReserves.Add(q.ShareCost).Sub(q.GovernanceFee)
	next.Info.BondReserves = next.Info.BondReserves.Sub(q.CurveBondsOut)
	next.Info.GovernanceFeesAccrued = next.Info.GovernanceFeesAccrued.Add(q.GovernanceFee)
	next.Info.ShortAverageMaturityTime = hyperdrive.UpdateWeightedAverage(
		next.Info.ShortAverageMaturityTime, next.Info.ShortsOutstanding,
		fp.FromUint64(maturity), bondAmount, false)
	next.Info.ShortsOutstanding = next.Info.ShortsOutstanding.SatSub(bondAmount)

	p.State = next
	p.drainCheckpointVolume(asset, bondAmount, supplyBefore)
	if err := p.Registry.Burn(asset, trader, bondAmount); err != nil {
		return r, err
	}
	p.distributeExcessIdle(now)

	return CloseShortResult{
		Trader:        trader,
		BondAmount:    bondAmount,
		ShareCost:     q.ShareCost,
		ShareProceeds: q.ShareProceeds,
		BaseProceeds:  baseProceeds,
		GovernanceFee: q.GovernanceFee,
		Matured:       q.TimeRemaining.IsZero(),
	}, nil
}

// closeSettledShort redeems a matured, checkpoint-settled short from the
// zombie reserves.
func (p *Pool) closeSettledShort(trader string, asset AssetID, bondAmount, minOutput fp.FixedPoint) (r CloseShortResult, err error) {
	openPrice := p.Checkpoints.SharePriceAt(
		asset.Maturity-p.State.Config.PositionDuration, p.State.Config.InitialSharePrice)
	closePrice := p.Checkpoints.SharePriceAt(asset.Maturity, p.State.Info.SharePrice)

	// The matured short's claim is pure variable interest: face value grown
	// by c1/c0 minus face value, expressed in shares.
	grown := bondAmount.MulDivDown(closePrice, openPrice.MulUp(p.State.Info.SharePrice))
	face := bondAmount.DivUp(p.State.Info.SharePrice)
	proceeds := grown.SatSub(face).Min(p.State.Info.ZombieShareReserves)

	baseProceeds := proceeds.MulDown(p.State.Info.SharePrice)
	if baseProceeds.Lt(minOutput) {
		return r, fmt.Errorf("%w: proceeds %s below minimum output %s",
			hyperdrive.ErrSlippageExceeded, baseProceeds, minOutput)
	}

	p.State.Info.ZombieShareReserves = p.State.Info.ZombieShareReserves.Sub(proceeds)
	p.State.Info.ZombieBaseProceeds = p.State.Info.ZombieBaseProceeds.SatSub(baseProceeds)
	if err := p.Registry.Burn(asset, trader, bondAmount); err != nil {
		return r, err
	}

	return CloseShortResult{
		Trader:        trader,
		BondAmount:    bondAmount,
		ShareProceeds: proceeds,
		BaseProceeds:  baseProceeds,
		Matured:       true,
	}, nil
}

// drainCheckpointVolume removes a closing position's pro-rata slice of its
// origin checkpoint's volume. Uses a defensive clamp: rounding on the way in
// and out can disagree by a wei.
func (p *Pool) drainCheckpointVolume(asset AssetID, bondAmount, supplyBefore fp.FixedPoint) {
	if supplyBefore.IsZero() {
		return
	}
	openTime := asset.Maturity - p.State.Config.PositionDuration
	cp := p.Checkpoints.Get(openTime)
	if cp == nil {
		return
	}
	switch asset.Kind {
	case AssetLong:
		drained := cp.LongBaseVolume.MulDivDown(bondAmount, supplyBefore)
		cp.LongBaseVolume = cp.LongBaseVolume.SatSub(drained)
	case AssetShort:
		drained := cp.ShortBaseVolume.MulDivDown(bondAmount, supplyBefore)
		cp.ShortBaseVolume = cp.ShortBaseVolume.SatSub(drained)
	}
}

// --- checkpoints ---

// CheckpointResult reports an applied checkpoint.
type CheckpointResult struct {
	Time          uint64
	SharePrice    fp.FixedPoint
	Created       bool
	MaturedLongs  fp.FixedPoint
	MaturedShorts fp.FixedPoint
}

// ApplyCheckpoint initializes the bucket at time t, recording the share
// price and settling any positions that matured exactly at t. Re-applying
// an initialized bucket is a no-op.
func (p *Pool) ApplyCheckpoint(t uint64, sharePrice fp.FixedPoint) CheckpointResult {
	t = p.State.ToCheckpoint(t)
	if sharePrice.IsZero() {
		sharePrice = p.State.Info.SharePrice
	}
	cp, created := p.Checkpoints.Apply(t, sharePrice)
	if !created {
		return CheckpointResult{Time: t, SharePrice: cp.SharePrice}
	}

	r := CheckpointResult{Time: t, SharePrice: cp.SharePrice, Created: true}
	r.MaturedLongs = p.settleMaturedLongs(t, cp.SharePrice)
	r.MaturedShorts = p.settleMaturedShorts(t, cp.SharePrice)
	if !r.MaturedLongs.IsZero() || !r.MaturedShorts.IsZero() {
		p.distributeExcessIdle(t)
	}
	return r
}

// settleMaturedLongs unwinds the pool-side accounting of longs maturing at
// t: face value minus the flat fee moves from the reserves to the zombie
// bucket where holders redeem it.
func (p *Pool) settleMaturedLongs(t uint64, price fp.FixedPoint) fp.FixedPoint {
	asset := LongAssetID(t)
	matured := p.Registry.TotalSupply(asset)
	if matured.IsZero() {
		return fp.Zero()
	}

	flatFee := matured.MulDivDown(p.State.Config.Fees.Flat, price)
	gov := flatFee.MulDown(p.State.Config.Fees.Governance)
	proceeds := matured.DivDown(price).Sub(flatFee)

	info := &p.State.Info
	info.ShareReserves = info.ShareReserves.SatSub(proceeds.Add(gov))
	info.GovernanceFeesAccrued = info.GovernanceFeesAccrued.Add(gov)
	info.ZombieShareReserves = info.ZombieShareReserves.Add(proceeds)
	info.ZombieBaseProceeds = info.ZombieBaseProceeds.Add(proceeds.MulDown(price))
	info.LongAverageMaturityTime = hyperdrive.UpdateWeightedAverage(
		info.LongAverageMaturityTime, info.LongsOutstanding,
		fp.FromUint64(t), matured, false)
	info.LongsOutstanding = info.LongsOutstanding.SatSub(matured)
	info.LongExposure = info.LongExposure.SatSub(matured)

	p.settled[asset] = true
	return matured
}

// settleMaturedShorts unwinds shorts maturing at t: the short buffer pays
// face value into the reserves, and the shorts' variable interest moves to
// the zombie bucket.
func (p *Pool) settleMaturedShorts(t uint64, price fp.FixedPoint) fp.FixedPoint {
	asset := ShortAssetID(t)
	matured := p.Registry.TotalSupply(asset)
	if matured.IsZero() {
		return fp.Zero()
	}

	openPrice := p.Checkpoints.SharePriceAt(
		t-p.State.Config.PositionDuration, p.State.Config.InitialSharePrice)

	flatFee := matured.MulDivDown(p.State.Config.Fees.Flat, price)
	gov := flatFee.MulDown(p.State.Config.Fees.Governance)
	face := matured.DivDown(price)
	interest := matured.MulDivDown(price, openPrice.MulUp(price)).SatSub(face)

	info := &p.State.Info
	info.ShareReserves = info.ShareReserves.Add(face).Add(flatFee.Sub(gov))
	info.GovernanceFeesAccrued = info.GovernanceFeesAccrued.Add(gov)
	info.ZombieShareReserves = info.ZombieShareReserves.Add(interest)
	info.ZombieBaseProceeds = info.ZombieBaseProceeds.Add(interest.MulDown(price))
	info.ShortAverageMaturityTime = hyperdrive.UpdateWeightedAverage(
		info.ShortAverageMaturityTime, info.ShortsOutstanding,
		fp.FromUint64(t), matured, false)
	info.ShortsOutstanding = info.ShortsOutstanding.SatSub(matured)

	p.settled[asset] = true
	return matured
}

// --- liquidity ---

// AddLiquidityResult reports an applied liquidity add.
type AddLiquidityResult struct {
	Trader       string
	Contribution fp.FixedPoint
	ShareAmount  fp.FixedPoint
	LPShares     fp.FixedPoint
}

// AddLiquidity mints LP shares against a base contribution, holding present
// value per share constant. maxAPR of zero disables the rate band.
func (p *Pool) AddLiquidity(trader string, contribution, minLPOut, minAPR, maxAPR fp.FixedPoint, now uint64) (r AddLiquidityResult, err error) {
	defer fp.Guard(&err)

	if !p.Initialized {
		return r, ErrNotInitialized
	}
	if p.Gov.Paused {
		return r, ErrPoolPaused
	}
	p.ensureCheckpoint(now)

	rate := p.State.SpotRate()
	if rate.Lt(minAPR) || (!maxAPR.IsZero() && rate.Gt(maxAPR)) {
		return r, fmt.Errorf("%w: spot rate %s outside [%s, %s]",
			hyperdrive.ErrSlippageExceeded, rate, minAPR, maxAPR)
	}

	lpOut, err := p.State.CalculateAddLiquidity(contribution, now)
	if err != nil {
		return r, err
	}
	if lpOut.Lt(minLPOut) {
		return r, fmt.Errorf("%w: lp out %s below minimum %s",
			hyperdrive.ErrSlippageExceeded, lpOut, minLPOut)
	}

	dz := contribution.DivDown(p.State.Info.SharePrice)
	p.State.Info.ShareReserves = p.State.Info.ShareReserves.Add(dz)
	p.State.Info.LPTotalSupply = p.State.Info.LPTotalSupply.Add(lpOut)
	p.Registry.Mint(LPAssetID, trader, lpOut)
	p.distributeExcessIdle(now)

	return AddLiquidityResult{
		Trader:       trader,
		Contribution: contribution,
		ShareAmount:  dz,
		LPShares:     lpOut,
	}, nil
}

// RemoveLiquidityResult reports an applied liquidity removal.
type RemoveLiquidityResult struct {
	Trader           string
	LPShares         fp.FixedPoint
	ShareProceeds    fp.FixedPoint
	BaseProceeds     fp.FixedPoint
	WithdrawalShares fp.FixedPoint
}

// RemoveLiquidity burns LP shares, pays the idle portion now, and mints
// withdrawal shares for capital still backing open positions. Allowed while
// paused.
func (p *Pool) RemoveLiquidity(trader string, lpShares, minOutput fp.FixedPoint, now uint64) (r RemoveLiquidityResult, err error) {
	defer fp.Guard(&err)

	if !p.Initialized {
		return r, ErrNotInitialized
	}
	p.ensureCheckpoint(now)

	if bal := p.Registry.BalanceOf(LPAssetID, trader); bal.Lt(lpShares) {
		return r, fmt.Errorf("%w: %s holds %s LP shares, burning %s",
			ErrInsufficientBalance, trader, bal, lpShares)
	}

	q, err := p.State.CalculateRemoveLiquidity(lpShares, now)
	if err != nil {
		return r, err
	}
	baseProceeds := q.ShareProceeds.MulDown(p.State.Info.SharePrice)
	if baseProceeds.Lt(minOutput) {
		return r, fmt.Errorf("%w: proceeds %s below minimum output %s",
			hyperdrive.ErrSlippageExceeded, baseProceeds, minOutput)
	}

	p.State.Info.ShareReserves = p.State.Info.ShareReserves.Sub(q.ShareProceeds)
	p.State.Info.LPTotalSupply = p.State.Info.LPTotalSupply.Sub(lpShares)
	if err := p.Registry.Burn(LPAssetID, trader, lpShares); err != nil {
		return r, err
	}
	p.Registry.Mint(WithdrawalAssetID, trader, q.WithdrawalShares)

	return RemoveLiquidityResult{
		Trader:           trader,
		LPShares:         lpShares,
		ShareProceeds:    q.ShareProceeds,
		BaseProceeds:     baseProceeds,
		WithdrawalShares: q.WithdrawalShares,
	}, nil
}

// RedeemWithdrawalSharesResult reports an applied redemption.
type RedeemWithdrawalSharesResult struct {
	Trader        string
	SharesBurned  fp.FixedPoint
	ShareProceeds fp.FixedPoint
	BaseProceeds  fp.FixedPoint
}

// RedeemWithdrawalShares pays out ready withdrawal shares pro rata against
// the earmarked proceeds. Allowed while paused.
func (p *Pool) RedeemWithdrawalShares(trader string, shares, minOutputPerShare fp.FixedPoint, now uint64) (r RedeemWithdrawalSharesResult, err error) {
	defer fp.Guard(&err)

	if !p.Initialized {
		return r, ErrNotInitialized
	}
	p.ensureCheckpoint(now)

	bal := p.Registry.BalanceOf(WithdrawalAssetID, trader)
	shares = shares.Min(bal)
	proceeds, redeemed := p.State.CalculateRedeemWithdrawalShares(shares)
	if redeemed.IsZero() {
		return RedeemWithdrawalSharesResult{Trader: trader}, nil
	}

	baseProceeds := proceeds.MulDown(p.State.Info.SharePrice)
	if !redeemed.IsZero() {
		perShare := baseProceeds.DivDown(redeemed)
		if perShare.Lt(minOutputPerShare) {
			return r, fmt.Errorf("%w: %s base per share below minimum %s",
				hyperdrive.ErrSlippageExceeded, perShare, minOutputPerShare)
		}
	}

	p.State.Info.WithdrawalSharesReady = p.State.Info.WithdrawalSharesReady.Sub(redeemed)
	p.State.Info.WithdrawalSharesProceeds = p.State.Info.WithdrawalSharesProceeds.Sub(proceeds)
	if err := p.Registry.Burn(WithdrawalAssetID, trader, redeemed); err != nil {
		return r, err
	}

	return RedeemWithdrawalSharesResult{
		Trader:        trader,
		SharesBurned:  redeemed,
		ShareProceeds: proceeds,
		BaseProceeds:  baseProceeds,
	}, nil
}

// distributeExcessIdle moves idle capital into the withdrawal pool while
// unredeemed withdrawal shares are outstanding. Withdrawal shares convert at
// the current present value per LP share.
func (p *Pool) distributeExcessIdle(now uint64) {
	outstanding := p.Registry.TotalSupply(WithdrawalAssetID).
		SatSub(p.State.Info.WithdrawalSharesReady)
	if outstanding.IsZero() {
		return
	}

	idle, err := p.State.Solvency()
	if err != nil || idle.IsZero() {
		return
	}
	pv, err := p.State.PresentValue(now)
	if err != nil || pv.IsZero() {
		return
	}
	supply := p.State.Info.LPTotalSupply.Add(outstanding)
	if supply.IsZero() {
		return
	}

	owed := outstanding.MulDivDown(pv, supply)
	payable := owed
	covered := outstanding
	if idle.Lt(owed) {
		payable = idle
		covered = idle.MulDivDown(supply, pv).Min(outstanding)
	}
	if payable.IsZero() {
		return
	}

	info := &p.State.Info
	info.ShareReserves = info.ShareReserves.Sub(payable)
	info.WithdrawalSharesProceeds = info.WithdrawalSharesProceeds.Add(payable)
	info.WithdrawalSharesReady = info.WithdrawalSharesReady.Add(covered)
}

// --- governance operations ---

// CollectGovernanceFee pays the accrued governance fees to the fee
// collector and zeroes the accrual. Returns the amount in base.
func (p *Pool) CollectGovernanceFee(actor string) (fp.FixedPoint, error) {
	if !p.Gov.CanCollectFees(actor) {
		return fp.Zero(), fmt.Errorf("%w: %s cannot collect fees", ErrUnauthorized, actor)
	}
	shares := p.State.Info.GovernanceFeesAccrued
	p.State.Info.GovernanceFeesAccrued = fp.Zero()
	return shares.MulDown(p.State.Info.SharePrice), nil
}

// RecordStray credits a non-pool token balance for later sweeping.
func (p *Pool) RecordStray(token string, amount fp.FixedPoint) {
	p.stray[token] = p.stray[token].Add(amount)
}

// Sweep recovers the full balance of a stray token. The pool's own base and
// vault-share assets can never be swept.
func (p *Pool) Sweep(actor, token string) (fp.FixedPoint, error) {
	if !p.Gov.CanSweep(actor) {
		return fp.Zero(), fmt.Errorf("%w: %s cannot sweep", ErrUnauthorized, actor)
	}
	if token == "base" || token == "vault_shares" {
		return fp.Zero(), fmt.Errorf("%w: %s", ErrUnsweepableAsset, token)
	}
	amount := p.stray[token]
	delete(p.stray, token)
	return amount, nil
}

// UpdateFees applies a bounded fee-parameter update. Admin only.
func (p *Pool) UpdateFees(actor string, fees hyperdrive.Fees) error {
	if actor != p.Gov.Admin {
		return fmt.Errorf("%w: %s is not the admin", ErrUnauthorized, actor)
	}
	if err := p.Gov.ValidateFees(fees); err != nil {
		return err
	}
	p.State.Config.Fees = fees
	return nil
}

// CanonicalBytes returns a deterministic serialization of the full pool
// state for hash chaining.
func (p *Pool) CanonicalBytes() []byte {
	buf := make([]byte, 0, 1024)
	buf = append(buf, byte(len(p.ID)))
	buf = append(buf, p.ID...)
	if p.Initialized {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}

	info := p.State.Info
	for _, v := range []fp.FixedPoint{
		info.ShareReserves, info.BondReserves, info.SharePrice,
		info.LongsOutstanding, info.LongAverageMaturityTime,
		info.ShortsOutstanding, info.ShortAverageMaturityTime,
		info.LongExposure, info.LPTotalSupply,
		info.WithdrawalSharesProceeds, info.WithdrawalSharesReady,
		info.ZombieBaseProceeds, info.ZombieShareReserves,
		info.GovernanceFeesAccrued,
	} {
		b := v.Bytes32()
		buf = append(buf, b[:]...)
	}
	adj := info.ShareAdjustment.Abs().Bytes32()
	if info.ShareAdjustment.IsNegative() {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	buf = append(buf, adj[:]...)

	buf = append(buf, p.Checkpoints.CanonicalBytes()...)
	buf = append(buf, p.Registry.CanonicalBytes()...)
	return buf
}
