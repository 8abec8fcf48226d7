package event

import (
	"github.com/google/uuid"

	fp "github.com/delvtech/hyperdrive-sub006/internal/fixedpoint"
)

// PauseToggle flips the pool's pause flag.
type PauseToggle struct {
	OpID       uuid.UUID `json:"op_id"`
	Actor      string    `json:"actor"`
	Pool       string    `json:"pool_id"`
	Paused     bool      `json:"paused"`
	OpSequence int64     `json:"op_sequence"`
	Timestamp  uint64    `json:"timestamp"`
}

func (e *PauseToggle) IdempotencyKey() string { return e.OpID.String() }
func (e *PauseToggle) EventType() EventType   { return EventTypePauseToggle }
func (e *PauseToggle) PoolID() *string        { p := e.Pool; return &p }
func (e *PauseToggle) SourceSequence() int64  { return e.OpSequence }
func (e *PauseToggle) EventTimestamp() uint64 { return e.Timestamp }

// FeeParamUpdate applies a bounded fee-parameter change.
type FeeParamUpdate struct {
	OpID          uuid.UUID     `json:"op_id"`
	Actor         string        `json:"actor"`
	Pool          string        `json:"pool_id"`
	CurveFee      fp.FixedPoint `json:"curve_fee"`
	FlatFee       fp.FixedPoint `json:"flat_fee"`
	GovernanceFee fp.FixedPoint `json:"governance_fee"`
	OpSequence    int64         `json:"op_sequence"`
	Timestamp     uint64        `json:"timestamp"`
}

func (e *FeeParamUpdate) IdempotencyKey() string { return e.OpID.String() }
func (e *FeeParamUpdate) EventType() EventType   { return EventTypeFeeParamUpdate }
func (e *FeeParamUpdate) PoolID() *string        { p := e.Pool; return &p }
func (e *FeeParamUpdate) SourceSequence() int64  { return e.OpSequence }
func (e *FeeParamUpdate) EventTimestamp() uint64 { return e.Timestamp }

// CollectGovernanceFee pays accrued governance fees to the collector.
type CollectGovernanceFee struct {
	OpID       uuid.UUID `json:"op_id"`
	Actor      string    `json:"actor"`
	Pool       string    `json:"pool_id"`
	OpSequence int64     `json:"op_sequence"`
	Timestamp  uint64    `json:"timestamp"`
}

func (e *CollectGovernanceFee) IdempotencyKey() string { return e.OpID.String() }
func (e *CollectGovernanceFee) EventType() EventType   { return EventTypeCollectGovernanceFee }
func (e *CollectGovernanceFee) PoolID() *string        { p := e.Pool; return &p }
func (e *CollectGovernanceFee) SourceSequence() int64  { return e.OpSequence }
func (e *CollectGovernanceFee) EventTimestamp() uint64 { return e.Timestamp }

// Sweep recovers a stray token balance to the sweep collector.
type Sweep struct {
	OpID       uuid.UUID `json:"op_id"`
	Actor      string    `json:"actor"`
	Pool       string    `json:"pool_id"`
	Token      string    `json:"token"`
	OpSequence int64     `json:"op_sequence"`
	Timestamp  uint64    `json:"timestamp"`
}

func (e *Sweep) IdempotencyKey() string { return e.OpID.String() }
func (e *Sweep) EventType() EventType   { return EventTypeSweep }
func (e *Sweep) PoolID() *string        { p := e.Pool; return &p }
func (e *Sweep) SourceSequence() int64  { return e.OpSequence }
func (e *Sweep) EventTimestamp() uint64 { return e.Timestamp }
