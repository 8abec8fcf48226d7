package ledger

import (
	"crypto/sha256"
	"fmt"
)

// AccountScope represents the top-level account namespace
type AccountScope uint8

const (
	AccountScopeTrader AccountScope = iota
	AccountScopePool
	AccountScopeExternal
)

// AccountSubType represents the account purpose
type AccountSubType uint8

const (
	// Trader sub-types
	SubTypeBase AccountSubType = iota

	// Pool sub-types
	SubTypeReserves
	SubTypeShortBuffer
	SubTypeGovernanceAccrual
	SubTypeWithdrawalPool
	SubTypeZombie
	SubTypeStray

	// External sub-types
	SubTypeExternalDeposits
	SubTypeExternalWithdrawals
)

// AssetID maps asset strings to numeric IDs for performance
type AssetID uint16

// AssetBase is the pool's base token. All journal amounts are 18-decimal
// base units.
const AssetBase AssetID = 1

var (
	assetToID = map[string]AssetID{
		"BASE": AssetBase,
	}
	idToAsset = map[AssetID]string{
		AssetBase: "BASE",
	}
)

func GetAssetID(asset string) (AssetID, bool) {
	id, ok := assetToID[asset]
	return id, ok
}

func GetAssetName(id AssetID) (string, bool) {
	name, ok := idToAsset[id]
	return name, ok
}

// AccountKey is the in-memory key for balance tracking (21 bytes, cache-friendly)
type AccountKey struct {
	Scope    AccountScope
	EntityID [16]byte // hashed trader address or pool ID
	SubType  AccountSubType
	AssetID  AssetID
}

// entityID folds an identifier of any length into the fixed key slot.
func entityID(name string) [16]byte {
	sum := sha256.Sum256([]byte(name))
	var id [16]byte
	copy(id[:], sum[:16])
	return id
}

// NewTraderAccountKey creates a key for trader accounts
func NewTraderAccountKey(trader string, subType AccountSubType, assetID AssetID) AccountKey {
	return AccountKey{
		Scope:    AccountScopeTrader,
		EntityID: entityID(trader),
		SubType:  subType,
		AssetID:  assetID,
	}
}

// NewPoolAccountKey creates a key for pool-scoped system accounts
func NewPoolAccountKey(poolID string, subType AccountSubType, assetID AssetID) AccountKey {
	return AccountKey{
		Scope:    AccountScopePool,
		EntityID: entityID(poolID),
		SubType:  subType,
		AssetID:  assetID,
	}
}

// NewExternalAccountKey creates a key for external boundary accounts
func NewExternalAccountKey(subType AccountSubType, assetID AssetID) AccountKey {
	return AccountKey{
		Scope:   AccountScopeExternal,
		SubType: subType,
		AssetID: assetID,
	}
}

// AccountPath returns the string representation for storage/logging
func (k AccountKey) AccountPath() string {
	assetName, _ := GetAssetName(k.AssetID)

	switch k.Scope {
	case AccountScopeTrader:
		return fmt.Sprintf("trader:%x:%s:%s", k.EntityID, k.subTypeName(), assetName)
	case AccountScopePool:
		return fmt.Sprintf("pool:%x:%s:%s", k.EntityID, k.subTypeName(), assetName)
	case AccountScopeExternal:
		return fmt.Sprintf("external:%s:%s", k.subTypeName(), assetName)
	}
	return "unknown"
}

func (k AccountKey) subTypeName() string {
	switch k.SubType {
	case SubTypeBase:
		return "base"
	case SubTypeReserves:
		return "reserves"
	case SubTypeShortBuffer:
		return "short_buffer"
	case SubTypeGovernanceAccrual:
		return "governance_accrual"
	case SubTypeWithdrawalPool:
		return "withdrawal_pool"
	case SubTypeZombie:
		return "zombie"
	case SubTypeStray:
		return "stray"
	case SubTypeExternalDeposits:
		return "deposits"
	case SubTypeExternalWithdrawals:
		return "withdrawals"
	default:
		return "unknown"
	}
}
