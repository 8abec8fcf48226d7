package hyperdrive_test

import (
	"errors"
	"testing"

	fp "github.com/delvtech/hyperdrive-sub006/internal/fixedpoint"
	"github.com/delvtech/hyperdrive-sub006/internal/hyperdrive"
)

const (
	oneDay  = 24 * 60 * 60
	oneYear = 365 * oneDay
)

func testConfig() hyperdrive.PoolConfig {
	return hyperdrive.PoolConfig{
		InitialSharePrice:        fp.One(),
		MinimumShareReserves:     fp.One(),
		MinimumTransactionAmount: fp.MustFromDec("0.000001"),
		PositionDuration:         oneYear,
		CheckpointDuration:       oneDay,
		TimeStretch:              hyperdrive.ComputeTimeStretch(fp.MustFromDec("0.05")),
	}
}

// freshState builds the reference pool: 100 shares at price 1, bond reserves
// solved for a 5% fixed rate, one-year duration, zero fees.
func freshState() *hyperdrive.State {
	cfg := testConfig()
	z := fp.FromUint64(100)
	y := hyperdrive.CalculateInitialBondReserves(cfg, z, fp.MustFromDec("0.05"))
	return &hyperdrive.State{
		Config: cfg,
		Info: hyperdrive.PoolInfo{
			ShareReserves: z,
			BondReserves:  y,
			SharePrice:    fp.One(),
			LPTotalSupply: z.Sub(cfg.MinimumShareReserves),
		},
	}
}

func absDiff(a, b fp.FixedPoint) fp.FixedPoint {
	if a.Gte(b) {
		return a.Sub(b)
	}
	return b.Sub(a)
}

// ===== Test: configuration =====

func TestPoolConfigValidate(t *testing.T) {
	cfg := testConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	bad := cfg
	bad.CheckpointDuration = oneDay + 1
	if err := bad.Validate(); !errors.Is(err, hyperdrive.ErrInvalidConfig) {
		t.Errorf("non-dividing checkpoint duration: got %v, want ErrInvalidConfig", err)
	}

	bad = cfg
	bad.TimeStretch = fp.Zero()
	if err := bad.Validate(); !errors.Is(err, hyperdrive.ErrInvalidConfig) {
		t.Errorf("zero time stretch: got %v, want ErrInvalidConfig", err)
	}
}

func TestComputeTimeStretch(t *testing.T) {
	ts := hyperdrive.ComputeTimeStretch(fp.MustFromDec("0.05"))

	// 0.04665 * 5 / 5.24592 is just over 0.0444.
	if ts.Lt(fp.MustFromDec("0.0444")) || ts.Gt(fp.MustFromDec("0.0445")) {
		t.Errorf("time stretch for 5%% rate: got %s, want ~0.04446", ts)
	}

	// Higher target rates stretch time harder.
	higher := hyperdrive.ComputeTimeStretch(fp.MustFromDec("0.10"))
	if !higher.Gt(ts) {
		t.Errorf("time stretch should grow with rate: 5%% %s, 10%% %s", ts, higher)
	}
}

// ===== Test: initialization hits the target rate =====

func TestInitialReservesHitTargetRate(t *testing.T) {
	s := freshState()

	rate := s.SpotRate()
	if absDiff(rate, fp.MustFromDec("0.05")).Gt(fp.MustFromDec("0.0001")) {
		t.Errorf("spot rate after initialization: got %s, want 0.05", rate)
	}

	price := s.SpotPrice()
	// p = 1/(1 + 0.05) for a one-year duration.
	if absDiff(price, fp.MustFromDec("0.952380952380952380")).Gt(fp.MustFromDec("0.0001")) {
		t.Errorf("spot price after initialization: got %s, want ~0.9524", price)
	}
}

func TestSpotRateMatchesPrice(t *testing.T) {
	s := freshState()

	p := s.SpotPrice()
	want := fp.One().Sub(p).DivDown(p.MulDown(s.AnnualizedPositionDuration()))
	if !s.SpotRate().Eq(want) {
		t.Errorf("SpotRate: got %s, want %s", s.SpotRate(), want)
	}
}

// ===== Test: open long =====

func TestOpenLongScenario(t *testing.T) {
	s := freshState()

	q, err := s.CalculateOpenLong(fp.FromUint64(10))
	if err != nil {
		t.Fatalf("CalculateOpenLong: %v", err)
	}

	// In the positive-yield region bonds trade below par, so the trader gets
	// more than one bond per base. A 10 base trade against 100 share reserves
	// stays well under the 10% sanity bound.
	if !q.BondProceeds.Gt(fp.FromUint64(10)) {
		t.Errorf("bond proceeds %s should exceed the 10 base deposit", q.BondProceeds)
	}
	if !q.BondProceeds.Lt(fp.FromUint64(11)) {
		t.Errorf("bond proceeds %s should stay below 11 for a small trade", q.BondProceeds)
	}
	if !q.GovernanceFee.IsZero() {
		t.Errorf("zero-fee pool accrued governance fee %s", q.GovernanceFee)
	}
	if !q.SpotPriceAfter.Gt(s.SpotPrice()) {
		t.Errorf("opening a long must raise the spot price: before %s, after %s",
			s.SpotPrice(), q.SpotPriceAfter)
	}
}

func TestOpenLongThenImmediateClose(t *testing.T) {
	s := freshState()
	base := fp.FromUint64(10)

	open, err := s.CalculateOpenLong(base)
	if err != nil {
		t.Fatalf("CalculateOpenLong: %v", err)
	}

	after := *s
	after.Info.ShareReserves = s.Info.ShareReserves.Add(open.ShareAmount)
	after.Info.BondReserves = s.Info.BondReserves.Sub(open.BondProceeds)

	maturity := s.MaturityTime(0)
	closeQ, err := after.CalculateCloseLong(open.BondProceeds, maturity, 0)
	if err != nil {
		t.Fatalf("CalculateCloseLong: %v", err)
	}

	baseProceeds := closeQ.ShareProceeds.MulDown(after.Info.SharePrice)
	if baseProceeds.Gt(base) {
		t.Errorf("round trip profited the trader: in %s, out %s", base, baseProceeds)
	}
	// With zero fees the only loss is curve rounding: within 0.1%.
	if baseProceeds.Lt(fp.MustFromDec("9.99")) {
		t.Errorf("round trip lost more than 0.1%%: in %s, out %s", base, baseProceeds)
	}
}

func TestOpenLongRejectsBelowMinimum(t *testing.T) {
	s := freshState()

	_, err := s.CalculateOpenLong(fp.Raw(1))
	if !errors.Is(err, hyperdrive.ErrBelowMinimumTransaction) {
		t.Errorf("got %v, want ErrBelowMinimumTransaction", err)
	}
}

func TestOpenLongRejectsNegativeInterest(t *testing.T) {
	s := freshState()

	// A 150 base trade pushes the share reserves past the bond reserves,
	// which would move the spot price above one.
	_, err := s.CalculateOpenLong(fp.FromUint64(150))
	if !errors.Is(err, hyperdrive.ErrNegativeInterest) {
		t.Errorf("got %v, want ErrNegativeInterest", err)
	}
}

func TestMaxSpotPrice(t *testing.T) {
	s := freshState()
	if !s.MaxSpotPrice().Eq(fp.One()) {
		t.Errorf("zero-fee max spot price: got %s, want 1", s.MaxSpotPrice())
	}

	s.Config.Fees.Curve = fp.MustFromDec("0.1")
	s.Config.Fees.Flat = fp.MustFromDec("0.01")
	if !s.MaxSpotPrice().Lt(fp.One()) {
		t.Errorf("fee-bearing max spot price %s should sit below 1", s.MaxSpotPrice())
	}
}

// ===== Test: close long at maturity =====

func TestMaturedLongSettlesAtFace(t *testing.T) {
	s := freshState()
	bond := fp.FromUint64(10)
	maturity := s.MaturityTime(0)

	q, err := s.CalculateCloseLong(bond, maturity, maturity)
	if err != nil {
		t.Fatalf("CalculateCloseLong at maturity: %v", err)
	}

	if !q.TimeRemaining.IsZero() {
		t.Errorf("matured close: time remaining %s, want 0", q.TimeRemaining)
	}
	if !q.CurveShares.IsZero() || !q.CurveBondsIn.IsZero() {
		t.Error("matured close must not touch the curve")
	}
	// At share price 1 with zero fees, face value settles exactly.
	if !q.ShareProceeds.Eq(bond) {
		t.Errorf("matured proceeds: got %s, want %s", q.ShareProceeds, bond)
	}
}

// ===== Test: open short =====

func TestOpenShortDeposit(t *testing.T) {
	s := freshState()

	q, err := s.CalculateOpenShort(fp.FromUint64(10), fp.Zero())
	if err != nil {
		t.Fatalf("CalculateOpenShort: %v", err)
	}

	// With zero fees and no backdated interest, the deposit is the short's
	// max loss: the discount between face value and the curve principal.
	// Around a 5% fixed rate on 10 bonds that is roughly half a base.
	if q.Deposit.IsZero() || q.Deposit.Gt(fp.One()) {
		t.Errorf("short deposit out of range: got %s, want ~0.48", q.Deposit)
	}
	if !q.Principal.Lt(fp.FromUint64(10)) {
		t.Errorf("short principal %s must be below the 10 bond face value", q.Principal)
	}
}

func TestOpenShortRejectsBelowMinimum(t *testing.T) {
	s := freshState()

	_, err := s.CalculateOpenShort(fp.Raw(1), fp.Zero())
	if !errors.Is(err, hyperdrive.ErrBelowMinimumTransaction) {
		t.Errorf("got %v, want ErrBelowMinimumTransaction", err)
	}
}

func TestShortRoundTrip(t *testing.T) {
	s := freshState()
	bond := fp.FromUint64(10)

	open, err := s.CalculateOpenShort(bond, fp.Zero())
	if err != nil {
		t.Fatalf("CalculateOpenShort: %v", err)
	}

	after := *s
	after.Info.ShareReserves = s.Info.ShareReserves.Sub(open.Principal)
	after.Info.BondReserves = s.Info.BondReserves.Add(bond)

	maturity := s.MaturityTime(0)
	closeQ, err := after.CalculateCloseShort(bond, fp.One(), fp.One(), maturity, 0)
	if err != nil {
		t.Fatalf("CalculateCloseShort: %v", err)
	}

	// The no-profit check gates the loss bound below: if proceeds ever
	// exceed the deposit, the subtraction would underflow.
	if closeQ.ShareProceeds.Gt(open.Deposit) {
		t.Fatalf("short round trip profited: deposit %s, proceeds %s",
			open.Deposit, closeQ.ShareProceeds)
	}
	if open.Deposit.Sub(closeQ.ShareProceeds).Gt(fp.MustFromDec("0.00000001")) {
		t.Errorf("short round trip lost too much: deposit %s, proceeds %s",
			open.Deposit, closeQ.ShareProceeds)
	}
}

func TestMaturedShortEarnsVariableInterest(t *testing.T) {
	s := freshState()
	bond := fp.FromUint64(10)
	maturity := s.MaturityTime(0)

	// The vault earned 5% over the term: share price went 1.00 -> 1.05.
	s.Info.SharePrice = fp.MustFromDec("1.05")
	q, err := s.CalculateCloseShort(bond, fp.One(), fp.MustFromDec("1.05"), maturity, maturity)
	if err != nil {
		t.Fatalf("CalculateCloseShort at maturity: %v", err)
	}

	// proceeds = y·(c1/c0)/c − y/c = (10·1.05 − 10)/1.05 shares, which is the
	// 0.5 base of variable interest the short collected.
	baseProceeds := q.ShareProceeds.MulDown(s.Info.SharePrice)
	if absDiff(baseProceeds, fp.MustFromDec("0.5")).Gt(fp.Raw(100)) {
		t.Errorf("matured short base proceeds: got %s, want 0.5", baseProceeds)
	}
}

// ===== Test: checkpoint and time helpers =====

func TestCheckpointHelpers(t *testing.T) {
	s := freshState()

	if got := s.ToCheckpoint(oneDay + 7); got != oneDay {
		t.Errorf("ToCheckpoint: got %d, want %d", got, oneDay)
	}
	if got := s.MaturityTime(oneDay + 7); got != oneDay+oneYear {
		t.Errorf("MaturityTime: got %d, want %d", got, oneDay+oneYear)
	}

	half := s.NormalizedTimeRemaining(uint64(oneYear), uint64(oneYear/2))
	if absDiff(half, fp.MustFromDec("0.5")).Gt(fp.Raw(1e6)) {
		t.Errorf("half-term time remaining: got %s, want 0.5", half)
	}
	if !s.NormalizedTimeRemaining(uint64(oneDay), uint64(oneYear)).IsZero() {
		t.Error("matured position must have zero time remaining")
	}
}

func TestUpdateWeightedAverage(t *testing.T) {
	avg := fp.FromUint64(100)
	total := fp.FromUint64(10)

	added := hyperdrive.UpdateWeightedAverage(avg, total, fp.FromUint64(200), fp.FromUint64(10), true)
	if !added.Eq(fp.FromUint64(150)) {
		t.Errorf("add: got %s, want 150", added)
	}

	removed := hyperdrive.UpdateWeightedAverage(added, fp.FromUint64(20), fp.FromUint64(200), fp.FromUint64(10), false)
	if !removed.Eq(fp.FromUint64(100)) {
		t.Errorf("remove: got %s, want 100", removed)
	}

	drained := hyperdrive.UpdateWeightedAverage(avg, total, avg, total, false)
	if !drained.IsZero() {
		t.Errorf("removing the full weight: got %s, want 0", drained)
	}
}

// ===== Test: solvency =====

func TestSolvencyGuard(t *testing.T) {
	s := freshState()
	if err := s.CheckSolvency(); err != nil {
		t.Fatalf("fresh pool should be solvent: %v", err)
	}

	s.Info.LongExposure = fp.FromUint64(200)
	if err := s.CheckSolvency(); !errors.Is(err, hyperdrive.ErrBaseBufferExceedsShareReserves) {
		t.Errorf("got %v, want ErrBaseBufferExceedsShareReserves", err)
	}
}

// ===== Test: present value and LP accounting =====

func TestPresentValueNoPositions(t *testing.T) {
	s := freshState()

	pv, err := s.PresentValue(0)
	if err != nil {
		t.Fatalf("PresentValue: %v", err)
	}
	// No outstanding positions: PV = z - zMin.
	if !pv.Eq(fp.FromUint64(99)) {
		t.Errorf("present value: got %s, want 99", pv)
	}

	price, err := s.LPSharePrice(0)
	if err != nil {
		t.Fatalf("LPSharePrice: %v", err)
	}
	if !price.Eq(fp.One()) {
		t.Errorf("LP share price of an untraded pool: got %s, want 1", price)
	}
}

func TestNetFlatTradeSigns(t *testing.T) {
	s := freshState()
	s.Info.LongsOutstanding = fp.FromUint64(10)
	s.Info.ShortsOutstanding = fp.FromUint64(4)

	// Fully matured on both sides: shorts pay in, longs draw out.
	net := s.NetFlatTrade(fp.Zero(), fp.Zero())
	if net.Sign() != -1 || !net.Abs().Eq(fp.FromUint64(6)) {
		t.Errorf("net flat trade: got %s, want -6", net)
	}
}

func TestAddRemoveLiquidityRoundTrip(t *testing.T) {
	s := freshState()
	contribution := fp.FromUint64(10)

	lpOut, err := s.CalculateAddLiquidity(contribution, 0)
	if err != nil {
		t.Fatalf("CalculateAddLiquidity: %v", err)
	}
	// With no open positions PV tracks the reserves exactly, so LP shares
	// mint one-for-one against contributed shares.
	if absDiff(lpOut, contribution).Gt(fp.Raw(10)) {
		t.Errorf("lp shares minted: got %s, want ~%s", lpOut, contribution)
	}

	after := *s
	after.Info.ShareReserves = s.Info.ShareReserves.Add(contribution)
	after.Info.LPTotalSupply = s.Info.LPTotalSupply.Add(lpOut)

	q, err := after.CalculateRemoveLiquidity(lpOut, 0)
	if err != nil {
		t.Fatalf("CalculateRemoveLiquidity: %v", err)
	}
	if !q.WithdrawalShares.IsZero() {
		t.Errorf("idle pool should need no withdrawal shares, got %s", q.WithdrawalShares)
	}
	if absDiff(q.ShareProceeds, contribution).Gt(fp.Raw(10)) {
		t.Errorf("remove proceeds: got %s, want ~%s", q.ShareProceeds, contribution)
	}
}

func TestRemoveLiquidityLimitedByIdleCapital(t *testing.T) {
	s := freshState()
	// 90 of the 100 shares back open long exposure; only 9 are idle after
	// the minimum reserve.
	s.Info.LongExposure = fp.FromUint64(90)

	q, err := s.CalculateRemoveLiquidity(s.Info.LPTotalSupply, 0)
	if err != nil {
		t.Fatalf("CalculateRemoveLiquidity: %v", err)
	}

	if !q.ShareProceeds.Eq(fp.FromUint64(9)) {
		t.Errorf("immediate proceeds: got %s, want 9", q.ShareProceeds)
	}
	if q.WithdrawalShares.IsZero() {
		t.Error("locked capital must mint withdrawal shares")
	}
	if q.WithdrawalShares.Gte(s.Info.LPTotalSupply) {
		t.Errorf("withdrawal shares %s must stay below the burned supply %s",
			q.WithdrawalShares, s.Info.LPTotalSupply)
	}
}

func TestRemoveLiquidityRejectsOversizedBurn(t *testing.T) {
	s := freshState()

	_, err := s.CalculateRemoveLiquidity(s.Info.LPTotalSupply.Add(fp.One()), 0)
	if !errors.Is(err, hyperdrive.ErrSlippageExceeded) {
		t.Errorf("got %v, want ErrSlippageExceeded", err)
	}
}

func TestRedeemWithdrawalShares(t *testing.T) {
	s := freshState()
	s.Info.WithdrawalSharesReady = fp.FromUint64(50)
	s.Info.WithdrawalSharesProceeds = fp.FromUint64(25)

	proceeds, redeemed := s.CalculateRedeemWithdrawalShares(fp.FromUint64(20))
	if !redeemed.Eq(fp.FromUint64(20)) || !proceeds.Eq(fp.FromUint64(10)) {
		t.Errorf("partial redeem: got %s/%s, want 10/20", proceeds, redeemed)
	}

	proceeds, redeemed = s.CalculateRedeemWithdrawalShares(fp.FromUint64(80))
	if !redeemed.Eq(fp.FromUint64(50)) || !proceeds.Eq(fp.FromUint64(25)) {
		t.Errorf("capped redeem: got %s/%s, want 25/50", proceeds, redeemed)
	}

	s.Info.WithdrawalSharesReady = fp.Zero()
	proceeds, redeemed = s.CalculateRedeemWithdrawalShares(fp.FromUint64(5))
	if !proceeds.IsZero() || !redeemed.IsZero() {
		t.Error("redeeming against an empty pool must pay nothing")
	}
}

// ===== Test: fees reduce trader outcomes =====

func TestOpenLongFeesReduceProceeds(t *testing.T) {
	free := freshState()
	feeQ, err := free.CalculateOpenLong(fp.FromUint64(10))
	if err != nil {
		t.Fatalf("zero-fee open: %v", err)
	}

	charged := freshState()
	charged.Config.Fees.Curve = fp.MustFromDec("0.1")
	charged.Config.Fees.Governance = fp.MustFromDec("0.5")
	withFees, err := charged.CalculateOpenLong(fp.FromUint64(10))
	if err != nil {
		t.Fatalf("fee-bearing open: %v", err)
	}

	if !withFees.BondProceeds.Lt(feeQ.BondProceeds) {
		t.Errorf("curve fee must reduce proceeds: %s vs %s",
			withFees.BondProceeds, feeQ.BondProceeds)
	}
	if withFees.GovernanceFee.IsZero() {
		t.Error("governance fee must accrue when configured")
	}
	if !withFees.GovernanceFee.Lt(withFees.CurveFee) {
		t.Errorf("governance cut %s must stay below the curve fee %s",
			withFees.GovernanceFee, withFees.CurveFee)
	}
}
