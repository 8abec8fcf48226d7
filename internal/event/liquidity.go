package event

import (
	"github.com/google/uuid"

	fp "github.com/delvtech/hyperdrive-sub006/internal/fixedpoint"
)

// Initialize seeds a pool with its first liquidity at a target fixed rate.
// Idempotency key: op_id.
type Initialize struct {
	OpID         uuid.UUID     `json:"op_id"`
	Trader       string        `json:"trader"`
	Pool         string        `json:"pool_id"`
	Contribution fp.FixedPoint `json:"contribution"`
	TargetRate   fp.FixedPoint `json:"target_rate"`
	OpSequence   int64         `json:"op_sequence"`
	Timestamp    uint64        `json:"timestamp"`
}

func (e *Initialize) IdempotencyKey() string { return e.OpID.String() }
func (e *Initialize) EventType() EventType   { return EventTypeInitialize }
func (e *Initialize) PoolID() *string        { p := e.Pool; return &p }
func (e *Initialize) SourceSequence() int64  { return e.OpSequence }
func (e *Initialize) EventTimestamp() uint64 { return e.Timestamp }

// AddLiquidity mints LP shares against a base contribution.
type AddLiquidity struct {
	OpID         uuid.UUID     `json:"op_id"`
	Trader       string        `json:"trader"`
	Pool         string        `json:"pool_id"`
	Contribution fp.FixedPoint `json:"contribution"`
	MinLPOut     fp.FixedPoint `json:"min_lp_out"`
	MinAPR       fp.FixedPoint `json:"min_apr"`
	MaxAPR       fp.FixedPoint `json:"max_apr"`
	OpSequence   int64         `json:"op_sequence"`
	Timestamp    uint64        `json:"timestamp"`
}

func (e *AddLiquidity) IdempotencyKey() string { return e.OpID.String() }
func (e *AddLiquidity) EventType() EventType   { return EventTypeAddLiquidity }
func (e *AddLiquidity) PoolID() *string        { p := e.Pool; return &p }
func (e *AddLiquidity) SourceSequence() int64  { return e.OpSequence }
func (e *AddLiquidity) EventTimestamp() uint64 { return e.Timestamp }

// RemoveLiquidity burns LP shares for idle capital plus withdrawal shares.
type RemoveLiquidity struct {
	OpID       uuid.UUID     `json:"op_id"`
	Trader     string        `json:"trader"`
	Pool       string        `json:"pool_id"`
	LPShares   fp.FixedPoint `json:"lp_shares"`
	MinOutput  fp.FixedPoint `json:"min_output"`
	OpSequence int64         `json:"op_sequence"`
	Timestamp  uint64        `json:"timestamp"`
}

func (e *RemoveLiquidity) IdempotencyKey() string { return e.OpID.String() }
func (e *RemoveLiquidity) EventType() EventType   { return EventTypeRemoveLiquidity }
func (e *RemoveLiquidity) PoolID() *string        { p := e.Pool; return &p }
func (e *RemoveLiquidity) SourceSequence() int64  { return e.OpSequence }
func (e *RemoveLiquidity) EventTimestamp() uint64 { return e.Timestamp }

// RedeemWithdrawalShares pays out ready withdrawal shares.
type RedeemWithdrawalShares struct {
	OpID              uuid.UUID     `json:"op_id"`
	Trader            string        `json:"trader"`
	Pool              string        `json:"pool_id"`
	Shares            fp.FixedPoint `json:"shares"`
	MinOutputPerShare fp.FixedPoint `json:"min_output_per_share"`
	OpSequence        int64         `json:"op_sequence"`
	Timestamp         uint64        `json:"timestamp"`
}

func (e *RedeemWithdrawalShares) IdempotencyKey() string { return e.OpID.String() }
func (e *RedeemWithdrawalShares) EventType() EventType   { return EventTypeRedeemWithdrawalShares }
func (e *RedeemWithdrawalShares) PoolID() *string        { p := e.Pool; return &p }
func (e *RedeemWithdrawalShares) SourceSequence() int64  { return e.OpSequence }
func (e *RedeemWithdrawalShares) EventTimestamp() uint64 { return e.Timestamp }
