package ledger

import (
	"fmt"

	"github.com/google/uuid"

	fp "github.com/delvtech/hyperdrive-sub006/internal/fixedpoint"
)

// JournalType represents the purpose of a journal entry
type JournalType int32

const (
	JournalTypeInitialize JournalType = iota
	JournalTypeAddLiquidity
	JournalTypeRemoveLiquidity
	JournalTypeWithdrawalReserve
	JournalTypeWithdrawalRedeem
	JournalTypeOpenLong
	JournalTypeCloseLong
	JournalTypeOpenShort
	JournalTypeCloseShort
	JournalTypeGovernanceAccrual
	JournalTypeGovernanceCollect
	JournalTypeCheckpointSettle
	JournalTypeZombieRedeem
	JournalTypeSweep
	JournalTypeAdjustment
)

func (jt JournalType) String() string {
	switch jt {
	case JournalTypeInitialize:
		return "initialize"
	case JournalTypeAddLiquidity:
		return "add_liquidity"
	case JournalTypeRemoveLiquidity:
		return "remove_liquidity"
	case JournalTypeWithdrawalReserve:
		return "withdrawal_reserve"
	case JournalTypeWithdrawalRedeem:
		return "withdrawal_redeem"
	case JournalTypeOpenLong:
		return "open_long"
	case JournalTypeCloseLong:
		return "close_long"
	case JournalTypeOpenShort:
		return "open_short"
	case JournalTypeCloseShort:
		return "close_short"
	case JournalTypeGovernanceAccrual:
		return "governance_accrual"
	case JournalTypeGovernanceCollect:
		return "governance_collect"
	case JournalTypeCheckpointSettle:
		return "checkpoint_settle"
	case JournalTypeZombieRedeem:
		return "zombie_redeem"
	case JournalTypeSweep:
		return "sweep"
	case JournalTypeAdjustment:
		return "adjustment"
	default:
		return "unknown"
	}
}

// Journal represents a single double-entry journal entry
type Journal struct {
	JournalID     uuid.UUID     // Unique identifier, derived from event ref
	BatchID       uuid.UUID     // Groups balanced entries
	EventRef      string        // Idempotency key of source event
	Sequence      int64         // Global event sequence
	DebitAccount  AccountKey    // Account receiving debit (balance increases)
	CreditAccount AccountKey    // Account receiving credit (balance decreases)
	AssetID       AssetID       // Asset being transferred
	Amount        fp.FixedPoint // 18-decimal amount (ALWAYS positive)
	JournalType   JournalType   // Entry type
	Timestamp     uint64        // Versioned input timestamp (seconds)
}

// Batch represents a balanced set of journal entries
type Batch struct {
	BatchID   uuid.UUID
	EventRef  string
	Sequence  int64
	Timestamp uint64
	Journals  []Journal
}

// Validate ensures the batch is well-formed.
// Note on balance invariant: each journal entry is a balanced transfer by construction
// (a single positive amount moves from credit account to debit account). Therefore
// Σ debits == Σ credits is guaranteed per-entry. Multi-leg batches (e.g., a trade with
// a governance fee cut) use multiple entries under one batch_id — each individually
// balanced.
func (b *Batch) Validate() error {
	if len(b.Journals) == 0 {
		return fmt.Errorf("batch %s is empty", b.BatchID)
	}

	for _, j := range b.Journals {
		if j.Amount.IsZero() {
			return fmt.Errorf("journal %s has zero amount", j.JournalID)
		}

		if j.BatchID != b.BatchID {
			return fmt.Errorf("journal %s has mismatched batch_id", j.JournalID)
		}

		if j.DebitAccount == j.CreditAccount {
			return fmt.Errorf("journal %s has same debit and credit account", j.JournalID)
		}
	}

	return nil
}
