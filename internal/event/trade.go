package event

import (
	"github.com/google/uuid"

	fp "github.com/delvtech/hyperdrive-sub006/internal/fixedpoint"
)

// OpenLong represents a trader buying bonds with base.
// Idempotency key: op_id (UUID from the gateway).
type OpenLong struct {
	OpID          uuid.UUID     `json:"op_id"` // Idempotency key
	Trader        string        `json:"trader"`
	Pool          string        `json:"pool_id"`
	BaseAmount    fp.FixedPoint `json:"base_amount"`
	MinOutput     fp.FixedPoint `json:"min_output"`
	MinSharePrice fp.FixedPoint `json:"min_share_price"`
	OpSequence    int64         `json:"op_sequence"` // Source sequence from gateway
	Timestamp     uint64        `json:"timestamp"`   // Versioned input timestamp (NOT wall-clock)
}

func (e *OpenLong) IdempotencyKey() string { return e.OpID.String() }
func (e *OpenLong) EventType() EventType   { return EventTypeOpenLong }
func (e *OpenLong) PoolID() *string        { p := e.Pool; return &p }
func (e *OpenLong) SourceSequence() int64  { return e.OpSequence }
func (e *OpenLong) EventTimestamp() uint64 { return e.Timestamp }

// CloseLong represents a trader selling maturity-dated bonds back.
type CloseLong struct {
	OpID         uuid.UUID     `json:"op_id"`
	Trader       string        `json:"trader"`
	Pool         string        `json:"pool_id"`
	MaturityTime uint64        `json:"maturity_time"`
	BondAmount   fp.FixedPoint `json:"bond_amount"`
	MinOutput    fp.FixedPoint `json:"min_output"`
	OpSequence   int64         `json:"op_sequence"`
	Timestamp    uint64        `json:"timestamp"`
}

func (e *CloseLong) IdempotencyKey() string { return e.OpID.String() }
func (e *CloseLong) EventType() EventType   { return EventTypeCloseLong }
func (e *CloseLong) PoolID() *string        { p := e.Pool; return &p }
func (e *CloseLong) SourceSequence() int64  { return e.OpSequence }
func (e *CloseLong) EventTimestamp() uint64 { return e.Timestamp }

// OpenShort represents a trader shorting bonds against a margin deposit.
type OpenShort struct {
	OpID          uuid.UUID     `json:"op_id"`
	Trader        string        `json:"trader"`
	Pool          string        `json:"pool_id"`
	BondAmount    fp.FixedPoint `json:"bond_amount"`
	MaxDeposit    fp.FixedPoint `json:"max_deposit"`
	MinSharePrice fp.FixedPoint `json:"min_share_price"`
	OpSequence    int64         `json:"op_sequence"`
	Timestamp     uint64        `json:"timestamp"`
}

func (e *OpenShort) IdempotencyKey() string { return e.OpID.String() }
func (e *OpenShort) EventType() EventType   { return EventTypeOpenShort }
func (e *OpenShort) PoolID() *string        { p := e.Pool; return &p }
func (e *OpenShort) SourceSequence() int64  { return e.OpSequence }
func (e *OpenShort) EventTimestamp() uint64 { return e.Timestamp }

// CloseShort represents a trader buying back shorted bonds.
type CloseShort struct {
	OpID         uuid.UUID     `json:"op_id"`
	Trader       string        `json:"trader"`
	Pool         string        `json:"pool_id"`
	MaturityTime uint64        `json:"maturity_time"`
	BondAmount   fp.FixedPoint `json:"bond_amount"`
	MinOutput    fp.FixedPoint `json:"min_output"`
	OpSequence   int64         `json:"op_sequence"`
	Timestamp    uint64        `json:"timestamp"`
}

func (e *CloseShort) IdempotencyKey() string { return e.OpID.String() }
func (e *CloseShort) EventType() EventType   { return EventTypeCloseShort }
func (e *CloseShort) PoolID() *string        { p := e.Pool; return &p }
func (e *CloseShort) SourceSequence() int64  { return e.OpSequence }
func (e *CloseShort) EventTimestamp() uint64 { return e.Timestamp }
