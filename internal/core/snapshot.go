package core

import (
	"fmt"

	fp "github.com/delvtech/hyperdrive-sub006/internal/fixedpoint"
	"github.com/delvtech/hyperdrive-sub006/internal/ledger"
	"github.com/delvtech/hyperdrive-sub006/internal/pool"
	"github.com/delvtech/hyperdrive-sub006/internal/vault"
)

// VaultState is the serializable state of one pool's yield source.
type VaultState struct {
	SharePrice fp.FixedPoint `json:"share_price"`
	APR        fp.FixedPoint `json:"apr"`
	Clock      uint64        `json:"clock"`
}

// SnapshotState captures everything the core needs to resume from a point in
// the event log: balances, pool state, vault clocks, per-partition sequence
// expectations, and the recently seen idempotency keys. Replaying events
// after Sequence must land on the same hash chain as the original run.
type SnapshotState struct {
	// Last applied global sequence
	Sequence int64

	// Journal generator sequence (advances per batch, not per event)
	JournalSequence int64

	// Chain tip after applying Sequence
	StateHash [32]byte

	// Account balances (flattened by the persistence layer for storage)
	Balances map[ledger.AccountKey]fp.Signed

	// Per-pool state in ascending pool-ID order
	Pools []*pool.PoolSnapshot

	// Yield source state keyed by pool ID
	Vaults map[string]VaultState

	// Next expected source sequence per partition
	Partitions map[string]int64

	// LRU contents, most recent first
	IdempotencyKeys []string
}

// CreateSnapshotState captures the core's current state. Call only between
// events — the core is single-threaded, so any point outside ProcessEvent is
// consistent.
func (c *DeterministicCore) CreateSnapshotState() *SnapshotState {
	snap := &SnapshotState{
		Sequence:        c.sequence - 1,
		JournalSequence: c.journalGen.Sequence(),
		StateHash:       c.hasher.GetPrevHash(),
		Balances:        c.balanceTracker.Snapshot(),
		Vaults:          make(map[string]VaultState, len(c.vaults)),
		Partitions:      c.sequenceValidator.GetAllPartitions(),
		IdempotencyKeys: c.idempotency.lru.GetAllKeys(),
	}

	for _, id := range c.PoolIDs() {
		snap.Pools = append(snap.Pools, c.pools[id].Snapshot())
		v := c.vaults[id]
		snap.Vaults[id] = VaultState{
			SharePrice: v.PricePerShare(),
			APR:        v.APR(),
			Clock:      v.Clock(),
		}
	}

	return snap
}

// RestoreFromSnapshot rebuilds the core from a snapshot. The caller then
// replays events with sequence > snap.Sequence from the event log; the
// resulting hash chain must match the persisted one.
func (c *DeterministicCore) RestoreFromSnapshot(snap *SnapshotState) error {
	c.balanceTracker.Restore(snap.Balances)

	c.pools = make(map[string]*pool.Pool, len(snap.Pools))
	c.vaults = make(map[string]*vault.MockYieldSource, len(snap.Pools))
	for _, ps := range snap.Pools {
		p, err := pool.RestorePool(ps)
		if err != nil {
			return fmt.Errorf("restore pool %s: %w", ps.ID, err)
		}
		c.pools[ps.ID] = p

		vs, ok := snap.Vaults[ps.ID]
		if !ok {
			return fmt.Errorf("restore pool %s: missing vault state", ps.ID)
		}
		v := vault.NewMockYieldSource(vs.SharePrice, vs.APR)
		v.Restore(vs.SharePrice, vs.Clock)
		c.vaults[ps.ID] = v
	}

	c.sequence = snap.Sequence + 1
	c.journalGen.SetSequence(snap.JournalSequence)
	c.hasher.SetPrevHash(snap.StateHash)

	for partition, seq := range snap.Partitions {
		c.sequenceValidator.RestorePartition(partition, seq)
	}
	c.idempotency.lru.WarmFromKeys(snap.IdempotencyKeys)

	for id, v := range c.vaults {
		c.publishReadModel(id, v.Clock())
	}

	return nil
}
