package pool_test

import (
	"errors"
	"testing"

	fp "github.com/delvtech/hyperdrive-sub006/internal/fixedpoint"
	"github.com/delvtech/hyperdrive-sub006/internal/hyperdrive"
	"github.com/delvtech/hyperdrive-sub006/internal/pool"
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

func maxFees() hyperdrive.Fees {
	return hyperdrive.Fees{
		Curve:      fp.One(),
		Flat:       fp.One(),
		Governance: fp.One(),
	}
}

// newTestPool builds a zero-fee pool seeded with 100 base from alice at a 5%
// target rate.
func newTestPool(t *testing.T) *pool.Pool {
	t.Helper()
	p, err := pool.New("pool-1", testConfig(), pool.NewGovernance("admin", maxFees()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = p.Initialize("alice", fp.FromUint64(100), fp.MustFromDec("0.05"), 0)
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return p
}

func absDiff(a, b fp.FixedPoint) fp.FixedPoint {
	if a.Gte(b) {
		return a.Sub(b)
	}
	return b.Sub(a)
}

// ===== Test: position registry =====

func TestRegistryMintBurnTransfer(t *testing.T) {
	r := pool.NewRegistry()
	long := pool.LongAssetID(oneYear)

	r.Mint(long, "alice", fp.FromUint64(10))
	r.Mint(long, "bob", fp.FromUint64(5))
	if got := r.TotalSupply(long); !got.Eq(fp.FromUint64(15)) {
		t.Errorf("total supply: got %s, want 15", got)
	}

	if err := r.Transfer(long, "alice", "bob", fp.FromUint64(4)); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if got := r.BalanceOf(long, "bob"); !got.Eq(fp.FromUint64(9)) {
		t.Errorf("bob after transfer: got %s, want 9", got)
	}

	if err := r.Burn(long, "alice", fp.FromUint64(7)); !errors.Is(err, pool.ErrInsufficientBalance) {
		t.Errorf("overdrawn burn: got %v, want ErrInsufficientBalance", err)
	}
	if err := r.Burn(long, "alice", fp.FromUint64(6)); err != nil {
		t.Fatalf("Burn: %v", err)
	}
	if got := r.BalanceOf(long, "alice"); !got.IsZero() {
		t.Errorf("alice after full burn: got %s, want 0", got)
	}
}

func TestAssetIDEncoding(t *testing.T) {
	ids := []pool.AssetID{
		pool.LPAssetID,
		pool.WithdrawalAssetID,
		pool.LongAssetID(oneYear),
		pool.ShortAssetID(2 * oneYear),
	}
	for _, id := range ids {
		if got := pool.DecodeAssetID(id.Encoded()); got != id {
			t.Errorf("decode(encode(%s)): got %s", id, got)
		}
	}
}

// ===== Test: checkpoint ledger =====

func TestCheckpointLedgerIdempotentApply(t *testing.T) {
	l := pool.NewCheckpointLedger(oneDay)

	cp, created := l.Apply(oneDay, fp.One())
	if !created {
		t.Fatal("first Apply should create the bucket")
	}
	cp.LongBaseVolume = fp.FromUint64(7)

	again, created := l.Apply(oneDay, fp.FromUint64(2))
	if created {
		t.Error("second Apply should be a no-op")
	}
	if !again.SharePrice.Eq(fp.One()) {
		t.Errorf("share price overwritten: got %s, want 1", again.SharePrice)
	}
	if !again.LongBaseVolume.Eq(fp.FromUint64(7)) {
		t.Errorf("volume lost on re-apply: got %s, want 7", again.LongBaseVolume)
	}
}

func TestCheckpointLedgerBackfill(t *testing.T) {
	l := pool.NewCheckpointLedger(oneDay)
	l.Apply(0, fp.One())
	l.Apply(3*oneDay, fp.One())

	missing := l.MissingSince(0, 4*oneDay)
	want := []uint64{oneDay, 2 * oneDay, 4 * oneDay}
	if len(missing) != len(want) {
		t.Fatalf("missing buckets: got %v, want %v", missing, want)
	}
	for i := range want {
		if missing[i] != want[i] {
			t.Errorf("missing[%d]: got %d, want %d", i, missing[i], want[i])
		}
	}

	if got := l.SharePriceAt(3*oneDay+5, fp.Zero()); !got.Eq(fp.One()) {
		t.Errorf("price within initialized bucket: got %s, want 1", got)
	}
	if got := l.SharePriceAt(oneDay, fp.MustFromDec("1.5")); !got.Eq(fp.MustFromDec("1.5")) {
		t.Errorf("price for missing bucket: got %s, want fallback 1.5", got)
	}
}

// ===== Test: governance =====

func TestGovernanceAuthorization(t *testing.T) {
	g := pool.NewGovernance("admin", maxFees())

	if err := g.SetPaused("mallory", true); !errors.Is(err, pool.ErrUnauthorized) {
		t.Errorf("pause by stranger: got %v, want ErrUnauthorized", err)
	}
	if err := g.SetPauser("admin", "ops", true); err != nil {
		t.Fatalf("SetPauser: %v", err)
	}
	if err := g.SetPaused("ops", true); err != nil {
		t.Errorf("pause by registered pauser: %v", err)
	}
	if !g.Paused {
		t.Error("pool should be paused")
	}

	bad := hyperdrive.Fees{Curve: fp.Two()}
	if err := g.ValidateFees(bad); !errors.Is(err, pool.ErrFeeOutOfBounds) {
		t.Errorf("oversized fee: got %v, want ErrFeeOutOfBounds", err)
	}
}

// ===== Test: pool lifecycle =====

func TestInitializeOnce(t *testing.T) {
	p := newTestPool(t)

	if got := p.Registry.BalanceOf(pool.LPAssetID, "alice"); !got.Eq(fp.FromUint64(99)) {
		t.Errorf("alice LP shares: got %s, want 99", got)
	}
	if got := p.Registry.BalanceOf(pool.LPAssetID, pool.BurnedLPHolder); !got.Eq(fp.One()) {
		t.Errorf("burned LP shares: got %s, want 1", got)
	}

	_, err := p.Initialize("bob", fp.FromUint64(50), fp.MustFromDec("0.05"), 0)
	if !errors.Is(err, pool.ErrAlreadyInitialized) {
		t.Errorf("second Initialize: got %v, want ErrAlreadyInitialized", err)
	}
}

func TestTradeBeforeInitialize(t *testing.T) {
	p, err := pool.New("pool-1", testConfig(), pool.NewGovernance("admin", maxFees()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = p.OpenLong("bob", fp.FromUint64(10), fp.Zero(), fp.Zero(), 0)
	if !errors.Is(err, pool.ErrNotInitialized) {
		t.Errorf("trade before Initialize: got %v, want ErrNotInitialized", err)
	}
}

// ===== Test: long lifecycle through the pool =====

func TestOpenCloseLongRoundTrip(t *testing.T) {
	p := newTestPool(t)

	open, err := p.OpenLong("bob", fp.FromUint64(10), fp.Zero(), fp.Zero(), 0)
	if err != nil {
		t.Fatalf("OpenLong: %v", err)
	}
	if open.MaturityTime != oneYear {
		t.Errorf("maturity: got %d, want %d", open.MaturityTime, oneYear)
	}
	long := pool.LongAssetID(open.MaturityTime)
	if got := p.Registry.BalanceOf(long, "bob"); !got.Eq(open.BondProceeds) {
		t.Errorf("minted longs: got %s, want %s", got, open.BondProceeds)
	}
	if !p.State.Info.LongsOutstanding.Eq(open.BondProceeds) {
		t.Errorf("longs outstanding: got %s, want %s",
			p.State.Info.LongsOutstanding, open.BondProceeds)
	}

	closed, err := p.CloseLong("bob", open.MaturityTime, open.BondProceeds, fp.Zero(), 0)
	if err != nil {
		t.Fatalf("CloseLong: %v", err)
	}
	if closed.BaseProceeds.Gt(fp.FromUint64(10)) {
		t.Errorf("immediate close should not profit: got %s base for 10 in", closed.BaseProceeds)
	}
	if closed.BaseProceeds.Lt(fp.MustFromDec("9.99")) {
		t.Errorf("immediate close lost too much: got %s base for 10 in", closed.BaseProceeds)
	}
	if !p.State.Info.LongsOutstanding.IsZero() {
		t.Errorf("longs outstanding after close: got %s, want 0", p.State.Info.LongsOutstanding)
	}
	if got := p.Registry.TotalSupply(long); !got.IsZero() {
		t.Errorf("long supply after close: got %s, want 0", got)
	}
}

func TestOpenLongSlippageGuards(t *testing.T) {
	p := newTestPool(t)

	_, err := p.OpenLong("bob", fp.FromUint64(10), fp.FromUint64(12), fp.Zero(), 0)
	if !errors.Is(err, hyperdrive.ErrSlippageExceeded) {
		t.Errorf("minOutput above proceeds: got %v, want ErrSlippageExceeded", err)
	}

	_, err = p.OpenLong("bob", fp.FromUint64(10), fp.Zero(), fp.Two(), 0)
	if !errors.Is(err, hyperdrive.ErrSlippageExceeded) {
		t.Errorf("minSharePrice above current: got %v, want ErrSlippageExceeded", err)
	}
}

func TestCloseUnownedPosition(t *testing.T) {
	p := newTestPool(t)

	open, err := p.OpenLong("bob", fp.FromUint64(10), fp.Zero(), fp.Zero(), 0)
	if err != nil {
		t.Fatalf("OpenLong: %v", err)
	}
	_, err = p.CloseLong("mallory", open.MaturityTime, open.BondProceeds, fp.Zero(), 0)
	if !errors.Is(err, pool.ErrInsufficientBalance) {
		t.Errorf("closing unowned long: got %v, want ErrInsufficientBalance", err)
	}
}

// ===== Test: short lifecycle through the pool =====

func TestOpenCloseShortRoundTrip(t *testing.T) {
	p := newTestPool(t)

	open, err := p.OpenShort("carol", fp.One(), fp.FromUint64(10), fp.Zero(), 0)
	if err != nil {
		t.Fatalf("OpenShort: %v", err)
	}
	if open.BaseDeposit.IsZero() || open.BaseDeposit.Gte(fp.One()) {
		t.Errorf("deposit for 1 bond: got %s, want in (0, 1)", open.BaseDeposit)
	}

	closed, err := p.CloseShort("carol", open.MaturityTime, fp.One(), fp.Zero(), 0)
	if err != nil {
		t.Fatalf("CloseShort: %v", err)
	}
	// Flat price unchanged, zero fees: the margin comes back minus dust.
	if absDiff(open.BaseDeposit, closed.BaseProceeds).Gt(fp.MustFromDec("0.00000001")) {
		t.Errorf("immediate short round trip: deposit %s, proceeds %s",
			open.BaseDeposit, closed.BaseProceeds)
	}
	if !p.State.Info.ShortsOutstanding.IsZero() {
		t.Errorf("shorts outstanding after close: got %s, want 0", p.State.Info.ShortsOutstanding)
	}
}

func TestOpenShortMaxDepositGuard(t *testing.T) {
	p := newTestPool(t)

	_, err := p.OpenShort("carol", fp.One(), fp.MustFromDec("0.001"), fp.Zero(), 0)
	if !errors.Is(err, hyperdrive.ErrSlippageExceeded) {
		t.Errorf("maxDeposit below required: got %v, want ErrSlippageExceeded", err)
	}
}

// ===== Test: pause semantics =====

func TestPausedPoolRejectsOpensAllowsCloses(t *testing.T) {
	p := newTestPool(t)

	open, err := p.OpenLong("bob", fp.FromUint64(10), fp.Zero(), fp.Zero(), 0)
	if err != nil {
		t.Fatalf("OpenLong: %v", err)
	}

	if err := p.Gov.SetPaused("admin", true); err != nil {
		t.Fatalf("SetPaused: %v", err)
	}

	_, err = p.OpenLong("bob", fp.FromUint64(10), fp.Zero(), fp.Zero(), 0)
	if !errors.Is(err, pool.ErrPoolPaused) {
		t.Errorf("open while paused: got %v, want ErrPoolPaused", err)
	}
	_, err = p.AddLiquidity("alice", fp.FromUint64(10), fp.Zero(), fp.Zero(), fp.Zero(), 0)
	if !errors.Is(err, pool.ErrPoolPaused) {
		t.Errorf("add liquidity while paused: got %v, want ErrPoolPaused", err)
	}

	if _, err := p.CloseLong("bob", open.MaturityTime, open.BondProceeds, fp.Zero(), 0); err != nil {
		t.Errorf("close while paused: %v", err)
	}
	if _, err := p.RemoveLiquidity("alice", fp.FromUint64(10), fp.Zero(), 0); err != nil {
		t.Errorf("remove liquidity while paused: %v", err)
	}
}

// ===== Test: checkpoint settlement =====

func TestCheckpointSettlesMaturedLong(t *testing.T) {
	p := newTestPool(t)

	open, err := p.OpenLong("bob", fp.FromUint64(10), fp.Zero(), fp.Zero(), 0)
	if err != nil {
		t.Fatalf("OpenLong: %v", err)
	}

	r := p.ApplyCheckpoint(open.MaturityTime, fp.One())
	if !r.Created {
		t.Fatal("checkpoint should be created")
	}
	if !r.MaturedLongs.Eq(open.BondProceeds) {
		t.Errorf("matured longs: got %s, want %s", r.MaturedLongs, open.BondProceeds)
	}
	if !p.State.Info.LongsOutstanding.IsZero() {
		t.Errorf("longs outstanding after settlement: got %s, want 0",
			p.State.Info.LongsOutstanding)
	}
	// Zero fees, price 1: the full face value sits in the zombie bucket.
	if !p.State.Info.ZombieShareReserves.Eq(open.BondProceeds) {
		t.Errorf("zombie reserves: got %s, want %s",
			p.State.Info.ZombieShareReserves, open.BondProceeds)
	}

	// Re-applying the same bucket must not settle twice.
	zombie := p.State.Info.ZombieShareReserves
	again := p.ApplyCheckpoint(open.MaturityTime, fp.One())
	if again.Created {
		t.Error("re-applied checkpoint reported as created")
	}
	if !p.State.Info.ZombieShareReserves.Eq(zombie) {
		t.Errorf("zombie reserves after re-apply: got %s, want %s",
			p.State.Info.ZombieShareReserves, zombie)
	}

	// The settled long now redeems at face value from the zombie bucket.
	closed, err := p.CloseLong("bob", open.MaturityTime, open.BondProceeds, fp.Zero(), open.MaturityTime)
	if err != nil {
		t.Fatalf("CloseLong after settlement: %v", err)
	}
	if !closed.BaseProceeds.Eq(open.BondProceeds) {
		t.Errorf("settled long proceeds: got %s, want face %s",
			closed.BaseProceeds, open.BondProceeds)
	}
	if !p.State.Info.ZombieShareReserves.IsZero() {
		t.Errorf("zombie reserves after redemption: got %s, want 0",
			p.State.Info.ZombieShareReserves)
	}
}

func TestCheckpointSettlesMaturedShort(t *testing.T) {
	p := newTestPool(t)

	open, err := p.OpenShort("carol", fp.One(), fp.FromUint64(10), fp.Zero(), 0)
	if err != nil {
		t.Fatalf("OpenShort: %v", err)
	}

	// 5% variable interest over the term.
	p.SetSharePrice(fp.MustFromDec("1.05"))
	p.ApplyCheckpoint(open.MaturityTime, fp.MustFromDec("1.05"))

	closed, err := p.CloseShort("carol", open.MaturityTime, fp.One(), fp.Zero(), open.MaturityTime)
	if err != nil {
		t.Fatalf("CloseShort after settlement: %v", err)
	}
	// Interest on 1 base of face value: 0.05, minus rounding dust.
	if absDiff(closed.BaseProceeds, fp.MustFromDec("0.05")).Gt(fp.MustFromDec("0.0000000001")) {
		t.Errorf("matured short proceeds: got %s, want ~0.05", closed.BaseProceeds)
	}
}

// ===== Test: liquidity lifecycle =====

func TestAddLiquidityMintsAtPresentValue(t *testing.T) {
	p := newTestPool(t)

	r, err := p.AddLiquidity("dave", fp.FromUint64(50), fp.Zero(), fp.Zero(), fp.Zero(), 0)
	if err != nil {
		t.Fatalf("AddLiquidity: %v", err)
	}
	// No open positions: present value per share is 1, so 50 base mints 50.
	if absDiff(r.LPShares, fp.FromUint64(50)).Gt(fp.MustFromDec("0.0000000001")) {
		t.Errorf("LP shares for 50 base: got %s, want ~50", r.LPShares)
	}
	if got := p.Registry.BalanceOf(pool.LPAssetID, "dave"); !got.Eq(r.LPShares) {
		t.Errorf("registry LP balance: got %s, want %s", got, r.LPShares)
	}
}

func TestAddLiquidityRateBand(t *testing.T) {
	p := newTestPool(t)

	_, err := p.AddLiquidity("dave", fp.FromUint64(50), fp.Zero(),
		fp.MustFromDec("0.06"), fp.MustFromDec("0.07"), 0)
	if !errors.Is(err, hyperdrive.ErrSlippageExceeded) {
		t.Errorf("rate outside band: got %v, want ErrSlippageExceeded", err)
	}
}

func TestRemoveLiquidityWithOpenPositionsQueuesWithdrawal(t *testing.T) {
	p := newTestPool(t)

	open, err := p.OpenLong("bob", fp.FromUint64(10), fp.Zero(), fp.Zero(), 0)
	if err != nil {
		t.Fatalf("OpenLong: %v", err)
	}

	rm, err := p.RemoveLiquidity("alice", fp.FromUint64(99), fp.Zero(), 0)
	if err != nil {
		t.Fatalf("RemoveLiquidity: %v", err)
	}
	if rm.WithdrawalShares.IsZero() {
		t.Error("full removal against open longs should queue withdrawal shares")
	}
	if rm.BaseProceeds.IsZero() {
		t.Error("idle capital should pay out immediately")
	}

	// Closing the long frees the backing capital into the withdrawal pool.
	if _, err := p.CloseLong("bob", open.MaturityTime, open.BondProceeds, fp.Zero(), 0); err != nil {
		t.Fatalf("CloseLong: %v", err)
	}
	outstanding := p.Registry.TotalSupply(pool.WithdrawalAssetID)
	if p.State.Info.WithdrawalSharesReady.Lt(outstanding) {
		t.Errorf("withdrawal shares ready: got %s, want at least %s",
			p.State.Info.WithdrawalSharesReady, outstanding)
	}

	red, err := p.RedeemWithdrawalShares("alice", rm.WithdrawalShares, fp.Zero(), 0)
	if err != nil {
		t.Fatalf("RedeemWithdrawalShares: %v", err)
	}
	if red.SharesBurned.IsZero() || red.BaseProceeds.IsZero() {
		t.Errorf("redemption: burned %s for %s base, want both positive",
			red.SharesBurned, red.BaseProceeds)
	}
	if got := p.Registry.BalanceOf(pool.WithdrawalAssetID, "alice"); !got.IsZero() {
		t.Errorf("withdrawal shares left after redemption: got %s, want 0", got)
	}
}

// ===== Test: governance operations on the pool =====

func TestCollectGovernanceFee(t *testing.T) {
	cfg := testConfig()
	cfg.Fees = hyperdrive.Fees{
		Curve:      fp.MustFromDec("0.1"),
		Flat:       fp.MustFromDec("0.01"),
		Governance: fp.MustFromDec("0.15"),
	}
	p, err := pool.New("pool-1", cfg, pool.NewGovernance("admin", maxFees()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Initialize("alice", fp.FromUint64(100), fp.MustFromDec("0.05"), 0); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if _, err := p.OpenLong("bob", fp.FromUint64(10), fp.Zero(), fp.Zero(), 0); err != nil {
		t.Fatalf("OpenLong: %v", err)
	}
	if p.State.Info.GovernanceFeesAccrued.IsZero() {
		t.Fatal("governance fees should accrue on a fee-charging pool")
	}

	if _, err := p.CollectGovernanceFee("mallory"); !errors.Is(err, pool.ErrUnauthorized) {
		t.Errorf("collect by stranger: got %v, want ErrUnauthorized", err)
	}
	amount, err := p.CollectGovernanceFee("admin")
	if err != nil {
		t.Fatalf("CollectGovernanceFee: %v", err)
	}
	if amount.IsZero() {
		t.Error("collected amount should be positive")
	}
	if !p.State.Info.GovernanceFeesAccrued.IsZero() {
		t.Errorf("accrual after collection: got %s, want 0", p.State.Info.GovernanceFeesAccrued)
	}
}

func TestSweep(t *testing.T) {
	p := newTestPool(t)
	p.RecordStray("weth", fp.FromUint64(5))

	if _, err := p.Sweep("mallory", "weth"); !errors.Is(err, pool.ErrUnauthorized) {
		t.Errorf("sweep by stranger: got %v, want ErrUnauthorized", err)
	}
	if _, err := p.Sweep("admin", "base"); !errors.Is(err, pool.ErrUnsweepableAsset) {
		t.Errorf("sweeping base: got %v, want ErrUnsweepableAsset", err)
	}

	amount, err := p.Sweep("admin", "weth")
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if !amount.Eq(fp.FromUint64(5)) {
		t.Errorf("swept amount: got %s, want 5", amount)
	}
	again, err := p.Sweep("admin", "weth")
	if err != nil {
		t.Fatalf("second Sweep: %v", err)
	}
	if !again.IsZero() {
		t.Errorf("second sweep: got %s, want 0", again)
	}
}

func TestUpdateFeesBounded(t *testing.T) {
	p, err := pool.New("pool-1", testConfig(),
		pool.NewGovernance("admin", hyperdrive.Fees{
			Curve:      fp.MustFromDec("0.5"),
			Flat:       fp.MustFromDec("0.1"),
			Governance: fp.MustFromDec("0.5"),
		}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	over := hyperdrive.Fees{Curve: fp.MustFromDec("0.6")}
	if err := p.UpdateFees("admin", over); !errors.Is(err, pool.ErrFeeOutOfBounds) {
		t.Errorf("fee over ceiling: got %v, want ErrFeeOutOfBounds", err)
	}

	ok := hyperdrive.Fees{
		Curve:      fp.MustFromDec("0.1"),
		Flat:       fp.MustFromDec("0.01"),
		Governance: fp.MustFromDec("0.15"),
	}
	if err := p.UpdateFees("mallory", ok); !errors.Is(err, pool.ErrUnauthorized) {
		t.Errorf("fee update by stranger: got %v, want ErrUnauthorized", err)
	}
	if err := p.UpdateFees("admin", ok); err != nil {
		t.Fatalf("UpdateFees: %v", err)
	}
	if !p.State.Config.Fees.Curve.Eq(ok.Curve) {
		t.Errorf("curve fee after update: got %s, want %s", p.State.Config.Fees.Curve, ok.Curve)
	}
}

// ===== Test: canonical serialization =====

func TestCanonicalBytesDeterministic(t *testing.T) {
	build := func() *pool.Pool {
		p, err := pool.New("pool-1", testConfig(), pool.NewGovernance("admin", maxFees()))
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if _, err := p.Initialize("alice", fp.FromUint64(100), fp.MustFromDec("0.05"), 0); err != nil {
			t.Fatalf("Initialize: %v", err)
		}
		if _, err := p.OpenLong("bob", fp.FromUint64(10), fp.Zero(), fp.Zero(), 0); err != nil {
			t.Fatalf("OpenLong: %v", err)
		}
		return p
	}

	a, b := build(), build()
	ab, bb := a.CanonicalBytes(), b.CanonicalBytes()
	if string(ab) != string(bb) {
		t.Fatal("identical pools must serialize identically")
	}

	if _, err := b.OpenShort("carol", fp.One(), fp.FromUint64(10), fp.Zero(), 0); err != nil {
		t.Fatalf("OpenShort: %v", err)
	}
	if string(ab) == string(b.CanonicalBytes()) {
		t.Fatal("diverged pools must serialize differently")
	}
}
