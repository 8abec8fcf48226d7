package ledger_test

import (
	"testing"

	fp "github.com/delvtech/hyperdrive-sub006/internal/fixedpoint"
	"github.com/delvtech/hyperdrive-sub006/internal/hyperdrive"
	"github.com/delvtech/hyperdrive-sub006/internal/ledger"
	"github.com/delvtech/hyperdrive-sub006/internal/pool"
)

const poolID = "pool-1"

// ============================================================================
// Test: AccountKey
// ============================================================================

func TestAccountKey_PoolPath(t *testing.T) {
	key := ledger.NewPoolAccountKey(poolID, ledger.SubTypeReserves, ledger.AssetBase)

	path := key.AccountPath()
	if path == "" || path == "unknown" {
		t.Fatalf("pool account path: got %q", path)
	}

	// Same inputs must map to the same key.
	again := ledger.NewPoolAccountKey(poolID, ledger.SubTypeReserves, ledger.AssetBase)
	if key != again {
		t.Error("pool account keys for identical inputs should be equal")
	}
}

func TestAccountKey_DistinctEntities(t *testing.T) {
	a := ledger.NewTraderAccountKey("alice", ledger.SubTypeBase, ledger.AssetBase)
	b := ledger.NewTraderAccountKey("bob", ledger.SubTypeBase, ledger.AssetBase)
	if a == b {
		t.Error("different traders should map to different keys")
	}
}

func TestGetAssetID_Known(t *testing.T) {
	id, ok := ledger.GetAssetID("BASE")
	if !ok {
		t.Fatal("BASE should be a known asset")
	}
	if id != ledger.AssetBase {
		t.Errorf("BASE asset ID: got %d, want %d", id, ledger.AssetBase)
	}
}

func TestGetAssetID_Unknown(t *testing.T) {
	if _, ok := ledger.GetAssetID("DOGE"); ok {
		t.Error("DOGE should not be a known asset")
	}
}

// ============================================================================
// Test: BalanceTracker
// ============================================================================

func TestBalanceTracker_ZeroSum(t *testing.T) {
	bt := ledger.NewBalanceTracker()
	jg := ledger.NewJournalGenerator(1, bt)

	batch, err := jg.GenerateInitialize("evt-1", 0, poolID, "alice", fp.FromUint64(100))
	if err != nil {
		t.Fatalf("GenerateInitialize: %v", err)
	}
	if err := bt.ApplyBatch(batch); err != nil {
		t.Fatalf("ApplyBatch: %v", err)
	}

	if got := bt.GetPoolBalance(poolID, ledger.SubTypeReserves); got.Sign() != 1 {
		t.Errorf("reserves after initialize: got %s, want positive", got)
	}
	if got := bt.GetTraderBase("alice"); !got.IsNegative() {
		t.Errorf("alice base after paying in: got %s, want negative", got)
	}

	v := ledger.NewInvariantValidator(bt)
	if err := v.ValidateGlobalBalance(); err != nil {
		t.Errorf("global zero-sum: %v", err)
	}
	if err := v.ValidatePoolAccountsNonNegative(poolID); err != nil {
		t.Errorf("pool accounts non-negative: %v", err)
	}
}

func TestBalanceTracker_SnapshotRestore(t *testing.T) {
	bt := ledger.NewBalanceTracker()
	jg := ledger.NewJournalGenerator(1, bt)

	batch, _ := jg.GenerateInitialize("evt-1", 0, poolID, "alice", fp.FromUint64(100))
	if err := bt.ApplyBatch(batch); err != nil {
		t.Fatalf("ApplyBatch: %v", err)
	}
	canonical := bt.CanonicalBytes()

	restored := ledger.NewBalanceTracker()
	restored.Restore(bt.Snapshot())
	if string(restored.CanonicalBytes()) != string(canonical) {
		t.Error("restored tracker must serialize identically")
	}
}

// ============================================================================
// Test: Batch validation
// ============================================================================

func TestBatch_RejectsSelfTransfer(t *testing.T) {
	key := ledger.NewPoolAccountKey(poolID, ledger.SubTypeReserves, ledger.AssetBase)
	b := &ledger.Batch{Journals: []ledger.Journal{{
		DebitAccount:  key,
		CreditAccount: key,
		Amount:        fp.One(),
	}}}
	if err := b.Validate(); err == nil {
		t.Error("self-transfer should be rejected")
	}
}

func TestBatch_RejectsEmpty(t *testing.T) {
	b := &ledger.Batch{}
	if err := b.Validate(); err == nil {
		t.Error("empty batch should be rejected")
	}
}

// ============================================================================
// Test: JournalGenerator trade flows
// ============================================================================

func TestGenerator_OpenLongSplitsGovernanceFee(t *testing.T) {
	bt := ledger.NewBalanceTracker()
	jg := ledger.NewJournalGenerator(1, bt)

	r := pool.OpenLongResult{
		Trader:        "bob",
		BaseAmount:    fp.FromUint64(10),
		GovernanceFee: fp.MustFromDec("0.02"), // shares at price 1
	}
	batch, err := jg.GenerateOpenLong("evt-2", 0, poolID, r, fp.One())
	if err != nil {
		t.Fatalf("GenerateOpenLong: %v", err)
	}
	if len(batch.Journals) != 2 {
		t.Fatalf("journals: got %d, want 2 (reserves + accrual)", len(batch.Journals))
	}
	if err := bt.ApplyBatch(batch); err != nil {
		t.Fatalf("ApplyBatch: %v", err)
	}

	if got := bt.GetPoolBalance(poolID, ledger.SubTypeReserves); !got.Abs().Eq(fp.MustFromDec("9.98")) {
		t.Errorf("reserves: got %s, want 9.98", got)
	}
	if got := bt.GetPoolBalance(poolID, ledger.SubTypeGovernanceAccrual); !got.Abs().Eq(fp.MustFromDec("0.02")) {
		t.Errorf("accrual: got %s, want 0.02", got)
	}
	if got := bt.GetTraderBase("bob"); !got.Abs().Eq(fp.FromUint64(10)) || !got.IsNegative() {
		t.Errorf("bob base: got %s, want -10", got)
	}
}

func TestGenerator_ShortRoundTripDrainsBuffer(t *testing.T) {
	bt := ledger.NewBalanceTracker()
	jg := ledger.NewJournalGenerator(1, bt)

	open := pool.OpenShortResult{
		Trader:      "carol",
		BondAmount:  fp.One(),
		BaseDeposit: fp.MustFromDec("0.05"),
		Principal:   fp.MustFromDec("0.95"),
	}
	openBatch, err := jg.GenerateOpenShort("evt-3", 0, poolID, open, fp.One())
	if err != nil {
		t.Fatalf("GenerateOpenShort: %v", err)
	}
	if err := bt.ApplyBatch(openBatch); err != nil {
		t.Fatalf("ApplyBatch open: %v", err)
	}

	// Buffer holds margin plus locked principal, the full face value.
	if got := bt.GetPoolBalance(poolID, ledger.SubTypeShortBuffer); !got.Abs().Eq(fp.One()) {
		t.Errorf("buffer after open: got %s, want 1", got)
	}

	info := hyperdrive.PoolInfo{}
	closeR := pool.CloseShortResult{
		Trader:        "carol",
		BondAmount:    fp.One(),
		ShareCost:     fp.MustFromDec("0.95"),
		ShareProceeds: fp.MustFromDec("0.05"),
		BaseProceeds:  fp.MustFromDec("0.05"),
	}
	closeBatch, err := jg.GenerateCloseShort("evt-4", 0, poolID, closeR, fp.One(), info, info)
	if err != nil {
		t.Fatalf("GenerateCloseShort: %v", err)
	}
	if err := bt.ApplyBatch(closeBatch); err != nil {
		t.Fatalf("ApplyBatch close: %v", err)
	}

	if got := bt.GetPoolBalance(poolID, ledger.SubTypeShortBuffer); got.Sign() != 0 {
		t.Errorf("buffer after flat round trip: got %s, want 0", got)
	}
	if got := bt.GetTraderBase("carol"); got.Sign() != 0 {
		t.Errorf("carol base after flat round trip: got %s, want 0", got)
	}
	if err := ledger.NewInvariantValidator(bt).ValidateGlobalBalance(); err != nil {
		t.Errorf("global zero-sum: %v", err)
	}
}

func TestGenerator_CheckpointSettleMovesReservesToZombie(t *testing.T) {
	bt := ledger.NewBalanceTracker()
	jg := ledger.NewJournalGenerator(1, bt)

	// Seed the reserves so settlement has a source.
	seed, _ := jg.GenerateInitialize("evt-5", 0, poolID, "alice", fp.FromUint64(100))
	if err := bt.ApplyBatch(seed); err != nil {
		t.Fatalf("ApplyBatch seed: %v", err)
	}

	pre := hyperdrive.PoolInfo{ShareReserves: fp.FromUint64(100)}
	post := hyperdrive.PoolInfo{
		ShareReserves:       fp.FromUint64(90),
		ZombieShareReserves: fp.FromUint64(10),
	}
	batch, err := jg.GenerateCheckpointSettle("evt-6", 0, poolID, fp.One(), pre, post)
	if err != nil {
		t.Fatalf("GenerateCheckpointSettle: %v", err)
	}
	if err := bt.ApplyBatch(batch); err != nil {
		t.Fatalf("ApplyBatch: %v", err)
	}

	if got := bt.GetPoolBalance(poolID, ledger.SubTypeZombie); !got.Abs().Eq(fp.FromUint64(10)) {
		t.Errorf("zombie after settle: got %s, want 10", got)
	}
	if got := bt.GetPoolBalance(poolID, ledger.SubTypeReserves); !got.Abs().Eq(fp.FromUint64(90)) {
		t.Errorf("reserves after settle: got %s, want 90", got)
	}
	if err := ledger.NewInvariantValidator(bt).ValidateGlobalBalance(); err != nil {
		t.Errorf("global zero-sum: %v", err)
	}
}

func TestGenerator_GovernanceCollectDrainsAccrual(t *testing.T) {
	bt := ledger.NewBalanceTracker()
	jg := ledger.NewJournalGenerator(1, bt)

	r := pool.OpenLongResult{
		Trader:        "bob",
		BaseAmount:    fp.FromUint64(10),
		GovernanceFee: fp.MustFromDec("0.02"),
	}
	batch, _ := jg.GenerateOpenLong("evt-7", 0, poolID, r, fp.One())
	if err := bt.ApplyBatch(batch); err != nil {
		t.Fatalf("ApplyBatch: %v", err)
	}

	collect, err := jg.GenerateGovernanceCollect("evt-8", 0, poolID, "treasury")
	if err != nil {
		t.Fatalf("GenerateGovernanceCollect: %v", err)
	}
	if err := bt.ApplyBatch(collect); err != nil {
		t.Fatalf("ApplyBatch collect: %v", err)
	}

	if got := bt.GetPoolBalance(poolID, ledger.SubTypeGovernanceAccrual); got.Sign() != 0 {
		t.Errorf("accrual after collect: got %s, want 0", got)
	}
	if got := bt.GetTraderBase("treasury"); !got.Abs().Eq(fp.MustFromDec("0.02")) {
		t.Errorf("treasury after collect: got %s, want 0.02", got)
	}

	// Nothing left: a second collect generates no batch.
	again, err := jg.GenerateGovernanceCollect("evt-9", 0, poolID, "treasury")
	if err != nil {
		t.Fatalf("second collect: %v", err)
	}
	if again != nil {
		t.Error("collect with empty accrual should generate no batch")
	}
}

func TestGenerator_SweepRoutesThroughBoundary(t *testing.T) {
	bt := ledger.NewBalanceTracker()
	jg := ledger.NewJournalGenerator(1, bt)

	batch, err := jg.GenerateSweep("evt-10", 0, poolID, "treasury", fp.FromUint64(5))
	if err != nil {
		t.Fatalf("GenerateSweep: %v", err)
	}
	if len(batch.Journals) != 2 {
		t.Fatalf("sweep journals: got %d, want 2", len(batch.Journals))
	}
	if err := bt.ApplyBatch(batch); err != nil {
		t.Fatalf("ApplyBatch: %v", err)
	}

	if got := bt.GetPoolBalance(poolID, ledger.SubTypeStray); got.Sign() != 0 {
		t.Errorf("stray after sweep: got %s, want 0", got)
	}
	if got := bt.GetTraderBase("treasury"); !got.Abs().Eq(fp.FromUint64(5)) {
		t.Errorf("treasury after sweep: got %s, want 5", got)
	}
}

// ============================================================================
// Test: replay determinism
// ============================================================================

func TestGenerator_DeterministicIDs(t *testing.T) {
	r := pool.OpenLongResult{
		Trader:     "bob",
		BaseAmount: fp.FromUint64(10),
	}

	a, err := ledger.NewJournalGenerator(1, ledger.NewBalanceTracker()).
		GenerateOpenLong("evt-11", 0, poolID, r, fp.One())
	if err != nil {
		t.Fatalf("first generation: %v", err)
	}
	b, err := ledger.NewJournalGenerator(1, ledger.NewBalanceTracker()).
		GenerateOpenLong("evt-11", 0, poolID, r, fp.One())
	if err != nil {
		t.Fatalf("second generation: %v", err)
	}

	if a.BatchID != b.BatchID {
		t.Error("replayed batch must keep its batch ID")
	}
	for i := range a.Journals {
		if a.Journals[i].JournalID != b.Journals[i].JournalID {
			t.Errorf("journal %d: IDs differ across replay", i)
		}
	}
}
