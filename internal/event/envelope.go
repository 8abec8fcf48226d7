package event

// EventType discriminator for event payloads
type EventType int32

const (
	EventTypeUnknown EventType = iota
	EventTypeInitialize
	EventTypeAddLiquidity
	EventTypeRemoveLiquidity
	EventTypeRedeemWithdrawalShares
	EventTypeOpenLong
	EventTypeCloseLong
	EventTypeOpenShort
	EventTypeCloseShort
	EventTypeCheckpointMint
	EventTypeSharePriceUpdate
	EventTypePauseToggle
	EventTypeFeeParamUpdate
	EventTypeCollectGovernanceFee
	EventTypeSweep
)

// EventEnvelope wraps every event in the log
type EventEnvelope struct {
	// Global monotonic sequence assigned by core
	Sequence int64

	// Stable idempotency key from upstream
	IdempotencyKey string

	// Event type discriminator
	EventType EventType

	// Pool context (nullable for global events)
	PoolID *string

	// Versioned input timestamp in seconds (NOT wall-clock)
	Timestamp uint64

	// Upstream sequence for ordering validation
	SourceSequence int64

	// JSON-encoded event-specific data
	Payload []byte

	// SHA-256 of state AFTER applying this event
	StateHash [32]byte

	// Previous event's state hash (chain integrity)
	PrevHash [32]byte
}

// Event is the interface all event payloads must implement
type Event interface {
	// IdempotencyKey returns the stable dedup key
	IdempotencyKey() string

	// EventType returns the discriminator
	EventType() EventType

	// PoolID returns the pool context (nil for global events)
	PoolID() *string

	// SourceSequence returns upstream ordering key
	SourceSequence() int64

	// EventTimestamp returns the versioned input time in seconds
	EventTimestamp() uint64
}

func (et EventType) String() string {
	switch et {
	case EventTypeInitialize:
		return "Initialize"
	case EventTypeAddLiquidity:
		return "AddLiquidity"
	case EventTypeRemoveLiquidity:
		return "RemoveLiquidity"
	case EventTypeRedeemWithdrawalShares:
		return "RedeemWithdrawalShares"
	case EventTypeOpenLong:
		return "OpenLong"
	case EventTypeCloseLong:
		return "CloseLong"
	case EventTypeOpenShort:
		return "OpenShort"
	case EventTypeCloseShort:
		return "CloseShort"
	case EventTypeCheckpointMint:
		return "CheckpointMint"
	case EventTypeSharePriceUpdate:
		return "SharePriceUpdate"
	case EventTypePauseToggle:
		return "PauseToggle"
	case EventTypeFeeParamUpdate:
		return "FeeParamUpdate"
	case EventTypeCollectGovernanceFee:
		return "CollectGovernanceFee"
	case EventTypeSweep:
		return "Sweep"
	default:
		return "Unknown"
	}
}
