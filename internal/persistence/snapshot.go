package persistence

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	fp "github.com/delvtech/hyperdrive-sub006/internal/fixedpoint"
	"github.com/delvtech/hyperdrive-sub006/internal/ledger"
	"github.com/delvtech/hyperdrive-sub006/internal/pool"
)

// SnapshotManager handles creating and loading state snapshots for recovery.
// Snapshots contain balances, pool state, vault clocks, the
// idempotency LRU, sequence counters, and the last state hash.
type SnapshotManager struct {
	db *sql.DB
}

// SnapshotData contains the full in-memory state at a point in time.
type SnapshotData struct {
	Sequence        int64                `json:"sequence"`
	JournalSequence int64                `json:"journal_sequence"`
	StateHash       []byte               `json:"state_hash"`
	Balances        []BalanceEntry       `json:"balances"`
	Pools           []*pool.PoolSnapshot `json:"pools"`
	Vaults          map[string]VaultSnap `json:"vaults"`           // poolID -> yield source state
	SequenceState   map[string]int64     `json:"sequence_state"`   // partition -> next expected seq
	IdempotencyKeys []string             `json:"idempotency_keys"` // Recent keys for LRU warming
	CreatedAt       time.Time            `json:"created_at"`
}

// BalanceEntry is one account balance, flattened for storage. The key fields
// reconstruct the in-memory AccountKey exactly; AccountPath is carried for
// operators reading snapshots by hand.
type BalanceEntry struct {
	Scope       uint8     `json:"scope"`
	EntityID    string    `json:"entity_id"` // hex
	SubType     uint8     `json:"sub_type"`
	AssetID     uint16    `json:"asset_id"`
	AccountPath string    `json:"account_path"`
	Balance     fp.Signed `json:"balance"`
}

// VaultSnap is a serializable yield source state.
type VaultSnap struct {
	SharePrice fp.FixedPoint `json:"share_price"`
	APR        fp.FixedPoint `json:"apr"`
	Clock      uint64        `json:"clock"`
}

// FlattenBalances converts the balance tracker's map into sortable entries.
// Order does not matter for restore; entries carry the full key.
func FlattenBalances(balances map[ledger.AccountKey]fp.Signed) []BalanceEntry {
	entries := make([]BalanceEntry, 0, len(balances))
	for key, bal := range balances {
		entries = append(entries, BalanceEntry{
			Scope:       uint8(key.Scope),
			EntityID:    hex.EncodeToString(key.EntityID[:]),
			SubType:     uint8(key.SubType),
			AssetID:     uint16(key.AssetID),
			AccountPath: key.AccountPath(),
			Balance:     bal,
		})
	}
	return entries
}

// UnflattenBalances rebuilds the balance map from stored entries.
func UnflattenBalances(entries []BalanceEntry) (map[ledger.AccountKey]fp.Signed, error) {
	balances := make(map[ledger.AccountKey]fp.Signed, len(entries))
	for _, e := range entries {
		raw, err := hex.DecodeString(e.EntityID)
		if err != nil || len(raw) != 16 {
			return nil, fmt.Errorf("balance entry %s: bad entity id %q", e.AccountPath, e.EntityID)
		}
		key := ledger.AccountKey{
			Scope:   ledger.AccountScope(e.Scope),
			SubType: ledger.AccountSubType(e.SubType),
			AssetID: ledger.AssetID(e.AssetID),
		}
		copy(key.EntityID[:], raw)
		balances[key] = e.Balance
	}
	return balances, nil
}

func NewSnapshotManager(db *sql.DB) *SnapshotManager {
	return &SnapshotManager{db: db}
}

// SaveSnapshot persists a snapshot to Postgres.
// Snapshots are taken periodically (e.g., every 100k events)
// and verified by replaying events from the snapshot sequence forward.
func (sm *SnapshotManager) SaveSnapshot(ctx context.Context, snap *SnapshotData) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	snapshotID := uuid.New()
	sizeBytes := len(data)
	formatVersion := int32(1) // v1: JSON-encoded SnapshotData

	_, err = sm.db.ExecContext(ctx, `
		INSERT INTO event_log.snapshots
			(snapshot_id, sequence, data, state_hash, format_version, size_bytes, verified, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7)
		ON CONFLICT (sequence) DO UPDATE SET data = $3, state_hash = $4, size_bytes = $6
	`, snapshotID, snap.Sequence, data, snap.StateHash, formatVersion, sizeBytes, snap.CreatedAt)

	return err
}

// LoadLatestSnapshot loads the most recent verified snapshot.
// On warm restart, load latest snapshot then replay events from snapshot.sequence+1.
func (sm *SnapshotManager) LoadLatestSnapshot(ctx context.Context) (*SnapshotData, error) {
	row := sm.db.QueryRowContext(ctx, `
		SELECT data FROM event_log.snapshots
		WHERE verified = TRUE
		ORDER BY sequence DESC
		LIMIT 1
	`)

	var data []byte
	if err := row.Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // No snapshot — cold start
		}
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	var snap SnapshotData
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}

	return &snap, nil
}

// MarkVerified marks a snapshot as verified after integrity check.
func (sm *SnapshotManager) MarkVerified(ctx context.Context, sequence int64) error {
	_, err := sm.db.ExecContext(ctx, `
		UPDATE event_log.snapshots SET verified = TRUE WHERE sequence = $1
	`, sequence)
	return err
}

// LoadEventsFrom loads events from a given sequence for replay.
// Used for warm restart (replay from snapshot) and cold restart (replay all).
func (sm *SnapshotManager) LoadEventsFrom(ctx context.Context, fromSequence int64, limit int) ([]EventRow, error) {
	rows, err := sm.db.QueryContext(ctx, `
		SELECT sequence, event_type, idempotency_key, pool_id, payload,
		       state_hash, prev_hash, timestamp, source_sequence
		FROM event_log.events
		WHERE sequence >= $1
		ORDER BY sequence ASC
		LIMIT $2
	`, fromSequence, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []EventRow
	for rows.Next() {
		var e EventRow
		if err := rows.Scan(
			&e.Sequence, &e.EventType, &e.IdempotencyKey, &e.PoolID,
			&e.Payload, &e.StateHash, &e.PrevHash, &e.Timestamp, &e.SourceSequence,
		); err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	return events, rows.Err()
}

// GetLatestSequence returns the highest sequence in the event log.
func (sm *SnapshotManager) GetLatestSequence(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	err := sm.db.QueryRowContext(ctx, `
		SELECT MAX(sequence) FROM event_log.events
	`).Scan(&seq)
	if err != nil {
		return 0, err
	}
	if !seq.Valid {
		return 0, nil // Empty event log
	}
	return seq.Int64, nil
}
