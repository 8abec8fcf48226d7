package ledger

import (
	"fmt"

	"github.com/google/uuid"

	fp "github.com/delvtech/hyperdrive-sub006/internal/fixedpoint"
	"github.com/delvtech/hyperdrive-sub006/internal/hyperdrive"
	"github.com/delvtech/hyperdrive-sub006/internal/pool"
)

// JournalGenerator creates balanced journal batches from applied pool
// operations. Batch and journal IDs are derived from the event reference so
// replay regenerates byte-identical batches.
type JournalGenerator struct {
	sequence int64
	tracker  *BalanceTracker
}

func NewJournalGenerator(startSequence int64, tracker *BalanceTracker) *JournalGenerator {
	return &JournalGenerator{
		sequence: startSequence,
		tracker:  tracker,
	}
}

// Sequence returns the next sequence the generator will stamp.
func (jg *JournalGenerator) Sequence() int64 {
	return jg.sequence
}

// SetSequence repositions the generator, used on snapshot restore.
func (jg *JournalGenerator) SetSequence(seq int64) {
	jg.sequence = seq
}

func derivedID(eventRef string, leg int) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%s:%d", eventRef, leg)))
}

func (jg *JournalGenerator) newBatch(eventRef string, timestamp uint64) *Batch {
	return &Batch{
		BatchID:   derivedID(eventRef, -1),
		EventRef:  eventRef,
		Sequence:  jg.sequence,
		Timestamp: timestamp,
		Journals:  make([]Journal, 0, 4),
	}
}

// addTransfer appends one balanced leg, skipping zero amounts.
func (jg *JournalGenerator) addTransfer(b *Batch, debit, credit AccountKey, amount fp.FixedPoint, jt JournalType) {
	if amount.IsZero() {
		return
	}
	b.Journals = append(b.Journals, Journal{
		JournalID:     derivedID(b.EventRef, len(b.Journals)),
		BatchID:       b.BatchID,
		EventRef:      b.EventRef,
		Sequence:      b.Sequence,
		DebitAccount:  debit,
		CreditAccount: credit,
		AssetID:       AssetBase,
		Amount:        amount,
		JournalType:   jt,
		Timestamp:     b.Timestamp,
	})
}

func (jg *JournalGenerator) finish(b *Batch) (*Batch, error) {
	if len(b.Journals) == 0 {
		return nil, nil
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	jg.sequence++
	return b, nil
}

// withdrawalPoolDelta returns the base moved into the withdrawal pool by an
// operation's excess-idle distribution.
func withdrawalPoolDelta(pre, post hyperdrive.PoolInfo, sharePrice fp.FixedPoint) fp.FixedPoint {
	return post.WithdrawalSharesProceeds.SatSub(pre.WithdrawalSharesProceeds).MulDown(sharePrice)
}

// zombiePaid returns the base redeemed from the zombie bucket by a close
// against a settled checkpoint.
func zombiePaid(pre, post hyperdrive.PoolInfo, sharePrice fp.FixedPoint) fp.FixedPoint {
	return pre.ZombieShareReserves.SatSub(post.ZombieShareReserves).MulDown(sharePrice)
}

// GenerateInitialize moves the seed contribution into the pool reserves.
// Flow: trader:base → pool:reserves
func (jg *JournalGenerator) GenerateInitialize(
	eventRef string,
	timestamp uint64,
	poolID string,
	trader string,
	contribution fp.FixedPoint,
) (*Batch, error) {
	b := jg.newBatch(eventRef, timestamp)
	jg.addTransfer(b,
		NewPoolAccountKey(poolID, SubTypeReserves, AssetBase),
		NewTraderAccountKey(trader, SubTypeBase, AssetBase),
		contribution, JournalTypeInitialize)
	return jg.finish(b)
}

// GenerateOpenLong books a long open.
// Flows: trader:base → pool:reserves (net of fee cut),
// trader:base → pool:governance_accrual
func (jg *JournalGenerator) GenerateOpenLong(
	eventRef string,
	timestamp uint64,
	poolID string,
	r pool.OpenLongResult,
	sharePrice fp.FixedPoint,
) (*Batch, error) {
	b := jg.newBatch(eventRef, timestamp)
	trader := NewTraderAccountKey(r.Trader, SubTypeBase, AssetBase)
	govBase := r.GovernanceFee.MulDown(sharePrice)

	jg.addTransfer(b,
		NewPoolAccountKey(poolID, SubTypeReserves, AssetBase),
		trader, r.BaseAmount.SatSub(govBase), JournalTypeOpenLong)
	jg.addTransfer(b,
		NewPoolAccountKey(poolID, SubTypeGovernanceAccrual, AssetBase),
		trader, govBase, JournalTypeGovernanceAccrual)
	return jg.finish(b)
}

// GenerateCloseLong books a long close. Settled maturities pay out of the
// zombie bucket; live positions pay out of the reserves with the fee cut
// routed to the accrual account, and any excess-idle distribution moves
// reserves into the withdrawal pool.
func (jg *JournalGenerator) GenerateCloseLong(
	eventRef string,
	timestamp uint64,
	poolID string,
	r pool.CloseLongResult,
	sharePrice fp.FixedPoint,
	pre, post hyperdrive.PoolInfo,
) (*Batch, error) {
	b := jg.newBatch(eventRef, timestamp)
	trader := NewTraderAccountKey(r.Trader, SubTypeBase, AssetBase)
	reserves := NewPoolAccountKey(poolID, SubTypeReserves, AssetBase)

	if paid := zombiePaid(pre, post, sharePrice); !paid.IsZero() {
		jg.addTransfer(b,
			trader,
			NewPoolAccountKey(poolID, SubTypeZombie, AssetBase),
			paid, JournalTypeZombieRedeem)
		return jg.finish(b)
	}

	jg.addTransfer(b, trader, reserves, r.BaseProceeds, JournalTypeCloseLong)
	jg.addTransfer(b,
		NewPoolAccountKey(poolID, SubTypeGovernanceAccrual, AssetBase),
		reserves, r.GovernanceFee.MulDown(sharePrice), JournalTypeGovernanceAccrual)
	jg.addTransfer(b,
		NewPoolAccountKey(poolID, SubTypeWithdrawalPool, AssetBase),
		reserves, withdrawalPoolDelta(pre, post, sharePrice), JournalTypeWithdrawalReserve)
	return jg.finish(b)
}

// GenerateOpenShort books a short open. The trader's deposit and the pool's
// locked principal both land in the short buffer, which holds the position's
// full face value until close or maturity.
func (jg *JournalGenerator) GenerateOpenShort(
	eventRef string,
	timestamp uint64,
	poolID string,
	r pool.OpenShortResult,
	sharePrice fp.FixedPoint,
) (*Batch, error) {
	b := jg.newBatch(eventRef, timestamp)
	trader := NewTraderAccountKey(r.Trader, SubTypeBase, AssetBase)
	reserves := NewPoolAccountKey(poolID, SubTypeReserves, AssetBase)
	buffer := NewPoolAccountKey(poolID, SubTypeShortBuffer, AssetBase)

	govBase := r.GovernanceFee.MulDown(sharePrice)
	keptFee := r.CurveFee.SatSub(govBase)
	margin := r.BaseDeposit.SatSub(r.CurveFee)

	jg.addTransfer(b, buffer, trader, margin, JournalTypeOpenShort)
	jg.addTransfer(b, reserves, trader, keptFee, JournalTypeOpenShort)
	jg.addTransfer(b,
		NewPoolAccountKey(poolID, SubTypeGovernanceAccrual, AssetBase),
		trader, govBase, JournalTypeGovernanceAccrual)
	jg.addTransfer(b, buffer, reserves, r.Principal.MulDown(sharePrice), JournalTypeOpenShort)
	return jg.finish(b)
}

// GenerateCloseShort books a short close: the buffer repays the buyback cost
// to the reserves, cuts the accrual account in, and returns the remainder to
// the trader.
func (jg *JournalGenerator) GenerateCloseShort(
	eventRef string,
	timestamp uint64,
	poolID string,
	r pool.CloseShortResult,
	sharePrice fp.FixedPoint,
	pre, post hyperdrive.PoolInfo,
) (*Batch, error) {
	b := jg.newBatch(eventRef, timestamp)
	trader := NewTraderAccountKey(r.Trader, SubTypeBase, AssetBase)
	reserves := NewPoolAccountKey(poolID, SubTypeReserves, AssetBase)
	buffer := NewPoolAccountKey(poolID, SubTypeShortBuffer, AssetBase)

	if paid := zombiePaid(pre, post, sharePrice); !paid.IsZero() {
		jg.addTransfer(b,
			trader,
			NewPoolAccountKey(poolID, SubTypeZombie, AssetBase),
			paid, JournalTypeZombieRedeem)
		return jg.finish(b)
	}

	govBase := r.GovernanceFee.MulDown(sharePrice)
	jg.addTransfer(b, reserves, buffer,
		r.ShareCost.MulDown(sharePrice).SatSub(govBase), JournalTypeCloseShort)
	jg.addTransfer(b,
		NewPoolAccountKey(poolID, SubTypeGovernanceAccrual, AssetBase),
		buffer, govBase, JournalTypeGovernanceAccrual)
	jg.addTransfer(b, trader, buffer, r.BaseProceeds, JournalTypeCloseShort)
	jg.addTransfer(b,
		NewPoolAccountKey(poolID, SubTypeWithdrawalPool, AssetBase),
		reserves, withdrawalPoolDelta(pre, post, sharePrice), JournalTypeWithdrawalReserve)
	return jg.finish(b)
}

// GenerateAddLiquidity books an LP contribution.
func (jg *JournalGenerator) GenerateAddLiquidity(
	eventRef string,
	timestamp uint64,
	poolID string,
	r pool.AddLiquidityResult,
	sharePrice fp.FixedPoint,
	pre, post hyperdrive.PoolInfo,
) (*Batch, error) {
	b := jg.newBatch(eventRef, timestamp)
	reserves := NewPoolAccountKey(poolID, SubTypeReserves, AssetBase)

	jg.addTransfer(b, reserves,
		NewTraderAccountKey(r.Trader, SubTypeBase, AssetBase),
		r.Contribution, JournalTypeAddLiquidity)
	jg.addTransfer(b,
		NewPoolAccountKey(poolID, SubTypeWithdrawalPool, AssetBase),
		reserves, withdrawalPoolDelta(pre, post, sharePrice), JournalTypeWithdrawalReserve)
	return jg.finish(b)
}

// GenerateRemoveLiquidity books the immediate payout of an LP removal. The
// deferred claim is represented by withdrawal shares, not by a cash leg.
func (jg *JournalGenerator) GenerateRemoveLiquidity(
	eventRef string,
	timestamp uint64,
	poolID string,
	r pool.RemoveLiquidityResult,
) (*Batch, error) {
	b := jg.newBatch(eventRef, timestamp)
	jg.addTransfer(b,
		NewTraderAccountKey(r.Trader, SubTypeBase, AssetBase),
		NewPoolAccountKey(poolID, SubTypeReserves, AssetBase),
		r.BaseProceeds, JournalTypeRemoveLiquidity)
	return jg.finish(b)
}

// GenerateRedeemWithdrawalShares books a withdrawal-pool payout.
func (jg *JournalGenerator) GenerateRedeemWithdrawalShares(
	eventRef string,
	timestamp uint64,
	poolID string,
	r pool.RedeemWithdrawalSharesResult,
) (*Batch, error) {
	b := jg.newBatch(eventRef, timestamp)
	jg.addTransfer(b,
		NewTraderAccountKey(r.Trader, SubTypeBase, AssetBase),
		NewPoolAccountKey(poolID, SubTypeWithdrawalPool, AssetBase),
		r.BaseProceeds, JournalTypeWithdrawalRedeem)
	return jg.finish(b)
}

// GenerateCheckpointSettle books the settlement flows of a checkpoint by
// netting the pool account deltas: matured longs move reserves into the
// zombie bucket, matured shorts repay face value from the short buffer, and
// the excess-idle pass can top up the withdrawal pool. The short buffer
// absorbs whatever the visible accounts do not explain.
func (jg *JournalGenerator) GenerateCheckpointSettle(
	eventRef string,
	timestamp uint64,
	poolID string,
	sharePrice fp.FixedPoint,
	pre, post hyperdrive.PoolInfo,
) (*Batch, error) {
	type accountDelta struct {
		key   AccountKey
		delta fp.Signed
	}

	signedDelta := func(before, after fp.FixedPoint) fp.Signed {
		if after.Gte(before) {
			return fp.SignedFrom(after.Sub(before).MulDown(sharePrice))
		}
		return fp.NewSigned(before.Sub(after).MulDown(sharePrice), true)
	}

	deltas := []accountDelta{
		{NewPoolAccountKey(poolID, SubTypeReserves, AssetBase),
			signedDelta(pre.ShareReserves, post.ShareReserves)},
		{NewPoolAccountKey(poolID, SubTypeGovernanceAccrual, AssetBase),
			signedDelta(pre.GovernanceFeesAccrued, post.GovernanceFeesAccrued)},
		{NewPoolAccountKey(poolID, SubTypeZombie, AssetBase),
			signedDelta(pre.ZombieShareReserves, post.ZombieShareReserves)},
		{NewPoolAccountKey(poolID, SubTypeWithdrawalPool, AssetBase),
			signedDelta(pre.WithdrawalSharesProceeds, post.WithdrawalSharesProceeds)},
	}

	// The short buffer's movement is implied: the books must stay zero-sum.
	var net fp.Signed
	for _, d := range deltas {
		net = net.Add(d.delta)
	}
	deltas = append(deltas, accountDelta{
		NewPoolAccountKey(poolID, SubTypeShortBuffer, AssetBase), net.Neg(),
	})

	b := jg.newBatch(eventRef, timestamp)

	// Net sources into sinks in fixed account order.
	var sources, sinks []accountDelta
	for _, d := range deltas {
		switch d.delta.Sign() {
		case -1:
			sources = append(sources, accountDelta{d.key, d.delta})
		case 1:
			sinks = append(sinks, accountDelta{d.key, d.delta})
		}
	}
	si := 0
	for _, sink := range sinks {
		need := sink.delta.Abs()
		for !need.IsZero() && si < len(sources) {
			avail := sources[si].delta.Abs()
			amount := need.Min(avail)
			jg.addTransfer(b, sink.key, sources[si].key, amount, JournalTypeCheckpointSettle)
			need = need.Sub(amount)
			if avail.Eq(amount) {
				si++
			} else {
				sources[si].delta = fp.NewSigned(avail.Sub(amount), true)
			}
		}
	}

	return jg.finish(b)
}

// GenerateGovernanceCollect pays the accrual account's balance out to the
// collector.
func (jg *JournalGenerator) GenerateGovernanceCollect(
	eventRef string,
	timestamp uint64,
	poolID string,
	collector string,
) (*Batch, error) {
	accrual := NewPoolAccountKey(poolID, SubTypeGovernanceAccrual, AssetBase)
	balance := jg.tracker.GetBalance(accrual)
	if balance.Sign() <= 0 {
		return nil, nil
	}

	b := jg.newBatch(eventRef, timestamp)
	jg.addTransfer(b,
		NewTraderAccountKey(collector, SubTypeBase, AssetBase),
		accrual, balance.Abs(), JournalTypeGovernanceCollect)
	return jg.finish(b)
}

// GenerateSweep books a stray-token recovery: the stray balance enters
// through the deposit boundary and leaves to the collector in one batch.
func (jg *JournalGenerator) GenerateSweep(
	eventRef string,
	timestamp uint64,
	poolID string,
	collector string,
	amount fp.FixedPoint,
) (*Batch, error) {
	if amount.IsZero() {
		return nil, nil
	}
	stray := NewPoolAccountKey(poolID, SubTypeStray, AssetBase)

	b := jg.newBatch(eventRef, timestamp)
	jg.addTransfer(b, stray,
		NewExternalAccountKey(SubTypeExternalDeposits, AssetBase),
		amount, JournalTypeSweep)
	jg.addTransfer(b,
		NewTraderAccountKey(collector, SubTypeBase, AssetBase),
		stray, amount, JournalTypeSweep)
	return jg.finish(b)
}
