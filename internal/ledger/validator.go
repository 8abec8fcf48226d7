package ledger

import (
	"fmt"
)

// InvariantValidator checks ledger invariants
type InvariantValidator struct {
	tracker *BalanceTracker
}

func NewInvariantValidator(tracker *BalanceTracker) *InvariantValidator {
	return &InvariantValidator{
		tracker: tracker,
	}
}

// ValidateBatchBalance verifies the batch is balanced
func (v *InvariantValidator) ValidateBatchBalance(batch *Batch) error {
	return batch.Validate()
}

// ValidateGlobalBalance verifies the system is zero-sum per asset
func (v *InvariantValidator) ValidateGlobalBalance() error {
	totals := v.tracker.ComputeGlobalBalance()

	for assetID, total := range totals {
		if total.Sign() != 0 {
			assetName, _ := GetAssetName(assetID)
			return fmt.Errorf("global balance for %s is non-zero: %s", assetName, total)
		}
	}

	return nil
}

// ValidatePoolAccountsNonNegative verifies a pool's custodial accounts never
// go negative. The short buffer is excluded: rounding between open and close
// legs leaves it within a few wei of zero in either direction.
func (v *InvariantValidator) ValidatePoolAccountsNonNegative(poolID string) error {
	for _, subType := range []AccountSubType{
		SubTypeReserves,
		SubTypeGovernanceAccrual,
		SubTypeWithdrawalPool,
		SubTypeZombie,
		SubTypeStray,
	} {
		key := NewPoolAccountKey(poolID, subType, AssetBase)
		if err := v.tracker.ValidateNonNegative(key); err != nil {
			return err
		}
	}
	return nil
}
