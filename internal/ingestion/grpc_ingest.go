package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/delvtech/hyperdrive-sub006/internal/event"
	fp "github.com/delvtech/hyperdrive-sub006/internal/fixedpoint"
)

// GRPCIngestService provides admin/manual event injection via gRPC.
// gRPC ingest is for admin operations and manual event injection, not for
// high-throughput ingestion (use NATS for that).
//
// Injected events carry wall-clock seconds as their versioned timestamp and
// source sequence; on a live system the gateway owns these, so manual
// injection is an operator escape hatch, not a second ingestion path.
type GRPCIngestService struct {
	eventChan chan<- event.Event
}

func NewGRPCIngestService(eventChan chan<- event.Event) *GRPCIngestService {
	return &GRPCIngestService{eventChan: eventChan}
}

func (s *GRPCIngestService) send(ctx context.Context, evt event.Event) error {
	select {
	case s.eventChan <- evt:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// InjectSharePrice manually injects a SharePriceUpdate event.
func (s *GRPCIngestService) InjectSharePrice(
	ctx context.Context,
	poolID string,
	sharePrice fp.FixedPoint,
	priceSequence int64,
) error {
	if sharePrice.IsZero() {
		return fmt.Errorf("share price must be positive")
	}

	return s.send(ctx, &event.SharePriceUpdate{
		Pool:          poolID,
		SharePrice:    sharePrice,
		PriceSequence: priceSequence,
		Timestamp:     uint64(time.Now().Unix()),
	})
}

// InjectCheckpoint manually injects a CheckpointMint event, forcing the
// bucket at checkpointTime to settle at the current share price.
func (s *GRPCIngestService) InjectCheckpoint(
	ctx context.Context,
	poolID string,
	checkpointTime uint64,
	opSequence int64,
) error {
	if checkpointTime == 0 {
		return fmt.Errorf("checkpoint time must be set")
	}

	return s.send(ctx, &event.CheckpointMint{
		Pool:           poolID,
		CheckpointTime: checkpointTime,
		SharePrice:     fp.Zero(), // zero means settle at current price
		OpSequence:     opSequence,
		Timestamp:      uint64(time.Now().Unix()),
	})
}

// InjectPauseToggle manually injects a PauseToggle event.
func (s *GRPCIngestService) InjectPauseToggle(
	ctx context.Context,
	actor, poolID string,
	paused bool,
	opSequence int64,
) error {
	return s.send(ctx, &event.PauseToggle{
		OpID:       uuid.New(),
		Actor:      actor,
		Pool:       poolID,
		Paused:     paused,
		OpSequence: opSequence,
		Timestamp:  uint64(time.Now().Unix()),
	})
}

// InjectFeeUpdate manually injects a FeeParamUpdate event.
func (s *GRPCIngestService) InjectFeeUpdate(
	ctx context.Context,
	actor, poolID string,
	curveFee, flatFee, governanceFee fp.FixedPoint,
	opSequence int64,
) error {
	return s.send(ctx, &event.FeeParamUpdate{
		OpID:          uuid.New(),
		Actor:         actor,
		Pool:          poolID,
		CurveFee:      curveFee,
		FlatFee:       flatFee,
		GovernanceFee: governanceFee,
		OpSequence:    opSequence,
		Timestamp:     uint64(time.Now().Unix()),
	})
}

// InjectCollectGovernanceFee manually injects a CollectGovernanceFee event.
func (s *GRPCIngestService) InjectCollectGovernanceFee(
	ctx context.Context,
	actor, poolID string,
	opSequence int64,
) error {
	return s.send(ctx, &event.CollectGovernanceFee{
		OpID:       uuid.New(),
		Actor:      actor,
		Pool:       poolID,
		OpSequence: opSequence,
		Timestamp:  uint64(time.Now().Unix()),
	})
}

// InjectSweep manually injects a Sweep event for a stray token balance.
func (s *GRPCIngestService) InjectSweep(
	ctx context.Context,
	actor, poolID, token string,
	opSequence int64,
) error {
	if token == "" {
		return fmt.Errorf("token must be set")
	}

	return s.send(ctx, &event.Sweep{
		OpID:       uuid.New(),
		Actor:      actor,
		Pool:       poolID,
		Token:      token,
		OpSequence: opSequence,
		Timestamp:  uint64(time.Now().Unix()),
	})
}
