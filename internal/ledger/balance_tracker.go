package ledger

import (
	"fmt"
	"sort"

	fp "github.com/delvtech/hyperdrive-sub006/internal/fixedpoint"
)

// BalanceTracker maintains in-memory account balances. Trader base accounts
// run signed: they net against the external boundary and go negative as the
// trader commits capital into the system.
type BalanceTracker struct {
	balances map[AccountKey]fp.Signed
}

func NewBalanceTracker() *BalanceTracker {
	return &BalanceTracker{
		balances: make(map[AccountKey]fp.Signed),
	}
}

// ApplyJournal applies a single journal entry to balances
func (bt *BalanceTracker) ApplyJournal(j Journal) {
	delta := fp.NewSigned(j.Amount, false)
	bt.balances[j.DebitAccount] = bt.balances[j.DebitAccount].Add(delta)
	bt.balances[j.CreditAccount] = bt.balances[j.CreditAccount].Sub(delta)
}

// ApplyBatch applies all journals in a batch
func (bt *BalanceTracker) ApplyBatch(batch *Batch) error {
	if err := batch.Validate(); err != nil {
		return fmt.Errorf("invalid batch: %w", err)
	}

	for _, j := range batch.Journals {
		bt.ApplyJournal(j)
	}

	return nil
}

// GetBalance returns the current balance for an account
func (bt *BalanceTracker) GetBalance(key AccountKey) fp.Signed {
	return bt.balances[key]
}

// GetTraderBase returns a trader's net base balance. Negative means the
// trader has paid more into the system than they have taken out.
func (bt *BalanceTracker) GetTraderBase(trader string) fp.Signed {
	return bt.GetBalance(NewTraderAccountKey(trader, SubTypeBase, AssetBase))
}

// GetPoolBalance returns a pool system account balance.
func (bt *BalanceTracker) GetPoolBalance(poolID string, subType AccountSubType) fp.Signed {
	return bt.GetBalance(NewPoolAccountKey(poolID, subType, AssetBase))
}

// ComputeGlobalBalance sums all account balances (zero for a zero-sum ledger)
func (bt *BalanceTracker) ComputeGlobalBalance() map[AssetID]fp.Signed {
	totals := make(map[AssetID]fp.Signed)

	for key, balance := range bt.balances {
		totals[key.AssetID] = totals[key.AssetID].Add(balance)
	}

	return totals
}

// ValidateNonNegative checks that a specific account balance is >= 0
func (bt *BalanceTracker) ValidateNonNegative(key AccountKey) error {
	balance := bt.GetBalance(key)
	if balance.IsNegative() {
		return fmt.Errorf("account %s has negative balance: %s", key.AccountPath(), balance)
	}
	return nil
}

// Snapshot returns a copy of all balances (for state hashing and persistence)
func (bt *BalanceTracker) Snapshot() map[AccountKey]fp.Signed {
	snapshot := make(map[AccountKey]fp.Signed, len(bt.balances))
	for k, v := range bt.balances {
		snapshot[k] = v
	}
	return snapshot
}

// Restore replaces the tracker's contents from a snapshot.
func (bt *BalanceTracker) Restore(snapshot map[AccountKey]fp.Signed) {
	bt.balances = make(map[AccountKey]fp.Signed, len(snapshot))
	for k, v := range snapshot {
		bt.balances[k] = v
	}
}

// CanonicalBytes returns a deterministic serialization of all balances,
// accounts ordered by path.
func (bt *BalanceTracker) CanonicalBytes() []byte {
	type entry struct {
		path string
		key  AccountKey
	}
	entries := make([]entry, 0, len(bt.balances))
	for k := range bt.balances {
		entries = append(entries, entry{path: k.AccountPath(), key: k})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].path < entries[j].path })

	buf := make([]byte, 0, len(entries)*64)
	for _, e := range entries {
		buf = append(buf, byte(len(e.path)))
		buf = append(buf, e.path...)
		bal := bt.balances[e.key]
		if bal.IsNegative() {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
		mag := bal.Abs().Bytes32()
		buf = append(buf, mag[:]...)
	}
	return buf
}
