package query

import (
	fp "github.com/delvtech/hyperdrive-sub006/internal/fixedpoint"
	"github.com/delvtech/hyperdrive-sub006/internal/hyperdrive"
	"github.com/delvtech/hyperdrive-sub006/internal/pool"
)

// PoolInfoResponse carries a pool's configuration and live state.
type PoolInfoResponse struct {
	PoolID       string                `json:"pool_id"`
	Config       hyperdrive.PoolConfig `json:"config"`
	Info         hyperdrive.PoolInfo   `json:"info"`
	Initialized  bool                  `json:"initialized"`
	Paused       bool                  `json:"paused"`
	AsOfSequence int64                 `json:"as_of_sequence"`
}

// RatesResponse carries the pool's derived pricing. All values are zero for
// an uninitialized pool.
type RatesResponse struct {
	PoolID       string        `json:"pool_id"`
	SpotPrice    fp.FixedPoint `json:"spot_price"`
	SpotRate     fp.FixedPoint `json:"spot_rate"`
	LPSharePrice fp.FixedPoint `json:"lp_share_price"`
	PresentValue fp.FixedPoint `json:"present_value"`
	AsOfSequence int64         `json:"as_of_sequence"`
}

// PositionBalanceResponse is one holder's balance of one position asset
// (long, short, LP, or withdrawal share, keyed by encoded asset ID).
type PositionBalanceResponse struct {
	PoolID       string        `json:"pool_id"`
	AssetID      uint64        `json:"asset_id"`
	Holder       string        `json:"holder"`
	Amount       fp.FixedPoint `json:"amount"`
	AsOfSequence int64         `json:"as_of_sequence"`
}

// CheckpointResponse is one checkpoint bucket's recorded state.
type CheckpointResponse struct {
	PoolID       string          `json:"pool_id"`
	Checkpoint   pool.Checkpoint `json:"checkpoint"`
	AsOfSequence int64           `json:"as_of_sequence"`
}

// JournalHistoryEntry represents a journal entry for API queries. Amount is
// an 18-decimal string.
type JournalHistoryEntry struct {
	JournalID     string `json:"journal_id"`
	BatchID       string `json:"batch_id"`
	EventRef      string `json:"event_ref"`
	Sequence      int64  `json:"sequence"`
	DebitAccount  string `json:"debit_account"`
	CreditAccount string `json:"credit_account"`
	AssetID       uint16 `json:"asset_id"`
	Amount        string `json:"amount"`
	JournalType   int32  `json:"journal_type"`
	Timestamp     int64  `json:"timestamp"`
}

// RateHistoryRow is one fixed-rate observation from the rate projection.
type RateHistoryRow struct {
	PoolID     string `json:"pool_id"`
	Sequence   int64  `json:"sequence"`
	Timestamp  int64  `json:"timestamp"`
	SpotRate   string `json:"spot_rate"`
	SharePrice string `json:"share_price"`
}

// IntegrityReport is the result of an integrity verification check.
type IntegrityReport struct {
	IsHealthy        bool              `json:"is_healthy"`
	HashChainBreaks  []int64           `json:"hash_chain_breaks,omitempty"`
	UnbalancedAssets []UnbalancedAsset `json:"unbalanced_assets,omitempty"`
}

// UnbalancedAsset represents an asset with non-zero global balance sum.
type UnbalancedAsset struct {
	AssetID   uint16 `json:"asset_id"`
	Imbalance string `json:"imbalance"`
}
