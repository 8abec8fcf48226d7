package event

import (
	"fmt"

	fp "github.com/delvtech/hyperdrive-sub006/internal/fixedpoint"
)

// CheckpointMint initializes the checkpoint bucket at CheckpointTime and
// settles positions maturing there. Deterministic key: one per pool and
// bucket.
type CheckpointMint struct {
	Pool           string        `json:"pool_id"`
	CheckpointTime uint64        `json:"checkpoint_time"`
	SharePrice     fp.FixedPoint `json:"share_price"` // zero means use current
	OpSequence     int64         `json:"op_sequence"`
	Timestamp      uint64        `json:"timestamp"`
}

func (e *CheckpointMint) IdempotencyKey() string {
	return fmt.Sprintf("%s:checkpoint:%d", e.Pool, e.CheckpointTime)
}
func (e *CheckpointMint) EventType() EventType   { return EventTypeCheckpointMint }
func (e *CheckpointMint) PoolID() *string        { p := e.Pool; return &p }
func (e *CheckpointMint) SourceSequence() int64  { return e.OpSequence }
func (e *CheckpointMint) EventTimestamp() uint64 { return e.Timestamp }

// SharePriceUpdate carries a new vault share price observation. Price feeds
// may drop observations; sequence gaps are tolerated downstream.
type SharePriceUpdate struct {
	Pool          string        `json:"pool_id"`
	SharePrice    fp.FixedPoint `json:"share_price"`
	PriceSequence int64         `json:"price_sequence"` // Monotonic per pool
	Timestamp     uint64        `json:"timestamp"`
}

func (e *SharePriceUpdate) IdempotencyKey() string {
	return fmt.Sprintf("%s:price:%d", e.Pool, e.PriceSequence)
}
func (e *SharePriceUpdate) EventType() EventType   { return EventTypeSharePriceUpdate }
func (e *SharePriceUpdate) PoolID() *string        { p := e.Pool; return &p }
func (e *SharePriceUpdate) SourceSequence() int64  { return e.PriceSequence }
func (e *SharePriceUpdate) EventTimestamp() uint64 { return e.Timestamp }
