package query

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/delvtech/hyperdrive-sub006/internal/core"
	"github.com/delvtech/hyperdrive-sub006/internal/pool"
)

var (
	ErrPoolNotFound       = errors.New("query: pool not found")
	ErrCheckpointNotFound = errors.New("query: checkpoint not found")
)

// StateReader exposes the core's published read model. The core swaps in an
// immutable snapshot after every event, so reads are lock-free.
type StateReader interface {
	ReadModel() *core.ReadModel
}

// QueryService serves reads from two sources: pool state and derived pricing
// come from the core's read model; balances, journals, and rate history come
// from the Postgres projections. All responses include as_of_sequence for
// freshness semantics.
type QueryService struct {
	db     *sql.DB
	reader StateReader
}

func NewQueryService(db *sql.DB, reader StateReader) *QueryService {
	return &QueryService{db: db, reader: reader}
}

// GetPoolInfo returns a pool's configuration and live state.
func (qs *QueryService) GetPoolInfo(ctx context.Context, poolID string) (*PoolInfoResponse, error) {
	rm := qs.reader.ReadModel()
	view, ok := rm.Pools[poolID]
	if !ok {
		return nil, ErrPoolNotFound
	}

	return &PoolInfoResponse{
		PoolID:       poolID,
		Config:       view.Snapshot.Config,
		Info:         view.Snapshot.Info,
		Initialized:  view.Snapshot.Initialized,
		Paused:       view.Paused,
		AsOfSequence: rm.Sequence,
	}, nil
}

// GetRates returns the pool's spot price, fixed rate, LP share price, and
// present value.
func (qs *QueryService) GetRates(ctx context.Context, poolID string) (*RatesResponse, error) {
	rm := qs.reader.ReadModel()
	view, ok := rm.Pools[poolID]
	if !ok {
		return nil, ErrPoolNotFound
	}

	return &RatesResponse{
		PoolID:       poolID,
		SpotPrice:    view.SpotPrice,
		SpotRate:     view.SpotRate,
		LPSharePrice: view.LPSharePrice,
		PresentValue: view.PresentValue,
		AsOfSequence: rm.Sequence,
	}, nil
}

// GetPositionBalances returns position balances for a pool, optionally
// filtered to one holder. Pass an empty holder for all.
func (qs *QueryService) GetPositionBalances(ctx context.Context, poolID, holder string) ([]PositionBalanceResponse, error) {
	rm := qs.reader.ReadModel()
	view, ok := rm.Pools[poolID]
	if !ok {
		return nil, ErrPoolNotFound
	}

	var balances []PositionBalanceResponse
	for _, pb := range view.Snapshot.Positions {
		if holder != "" && pb.Holder != holder {
			continue
		}
		balances = append(balances, PositionBalanceResponse{
			PoolID:       poolID,
			AssetID:      pb.AssetID,
			Holder:       pb.Holder,
			Amount:       pb.Amount,
			AsOfSequence: rm.Sequence,
		})
	}

	return balances, nil
}

// GetCheckpoint returns the checkpoint bucket at the given time.
func (qs *QueryService) GetCheckpoint(ctx context.Context, poolID string, checkpointTime uint64) (*CheckpointResponse, error) {
	rm := qs.reader.ReadModel()
	view, ok := rm.Pools[poolID]
	if !ok {
		return nil, ErrPoolNotFound
	}

	var found *pool.Checkpoint
	for i := range view.Snapshot.Checkpoints {
		if view.Snapshot.Checkpoints[i].Time == checkpointTime {
			found = &view.Snapshot.Checkpoints[i]
			break
		}
	}
	if found == nil {
		return nil, ErrCheckpointNotFound
	}

	return &CheckpointResponse{
		PoolID:       poolID,
		Checkpoint:   *found,
		AsOfSequence: rm.Sequence,
	}, nil
}

// GetJournalHistory returns journal entries touching a trader's accounts,
// newest first, with cursor-based pagination.
func (qs *QueryService) GetJournalHistory(
	ctx context.Context,
	trader string,
	limit int,
	afterSequence *int64,
) ([]JournalHistoryEntry, error) {
	accountPrefix := traderAccountPrefix(trader)

	query := `
		SELECT journal_id, batch_id, event_ref, sequence,
		       debit_account, credit_account, asset_id, amount::text, journal_type, timestamp
		FROM event_log.journal
		WHERE debit_account LIKE $1 OR credit_account LIKE $1
	`
	args := []interface{}{accountPrefix}
	argIdx := 2

	if afterSequence != nil {
		query += fmt.Sprintf(" AND sequence < $%d", argIdx)
		args = append(args, *afterSequence)
		argIdx++
	}

	query += " ORDER BY sequence DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, limit)

	rows, err := qs.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []JournalHistoryEntry
	for rows.Next() {
		var e JournalHistoryEntry
		if err := rows.Scan(
			&e.JournalID, &e.BatchID, &e.EventRef, &e.Sequence,
			&e.DebitAccount, &e.CreditAccount, &e.AssetID, &e.Amount,
			&e.JournalType, &e.Timestamp,
		); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// GetRateHistory returns the pool's fixed-rate series, newest first.
func (qs *QueryService) GetRateHistory(ctx context.Context, poolID string, limit int) ([]RateHistoryRow, error) {
	rows, err := qs.db.QueryContext(ctx, `
		SELECT pool_id, sequence, timestamp, spot_rate::text, share_price::text
		FROM projections.rate_history
		WHERE pool_id = $1
		ORDER BY sequence DESC
		LIMIT $2
	`, poolID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []RateHistoryRow
	for rows.Next() {
		var r RateHistoryRow
		if err := rows.Scan(&r.PoolID, &r.Sequence, &r.Timestamp, &r.SpotRate, &r.SharePrice); err != nil {
			return nil, err
		}
		history = append(history, r)
	}

	return history, rows.Err()
}

// --- Admin APIs ---

// VerifyIntegrity checks hash chain continuity and the zero-sum invariant
// across the projected balances.
func (qs *QueryService) VerifyIntegrity(ctx context.Context) (*IntegrityReport, error) {
	report := &IntegrityReport{}

	// Check hash chain continuity
	rows, err := qs.db.QueryContext(ctx, `
		SELECT e1.sequence
		FROM event_log.events e1
		JOIN event_log.events e2 ON e2.sequence = e1.sequence - 1
		WHERE e1.prev_hash != e2.state_hash
		ORDER BY e1.sequence
		LIMIT 10
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var seq int64
		if err := rows.Scan(&seq); err != nil {
			return nil, err
		}
		report.HashChainBreaks = append(report.HashChainBreaks, seq)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Check global balance (should sum to zero across all accounts per asset)
	balanceRows, err := qs.db.QueryContext(ctx, `
		SELECT asset_id, SUM(balance)::text AS total
		FROM projections.balances
		GROUP BY asset_id
		HAVING SUM(balance) != 0
	`)
	if err != nil {
		return nil, err
	}
	defer balanceRows.Close()

	for balanceRows.Next() {
		var assetID uint16
		var total string
		if err := balanceRows.Scan(&assetID, &total); err != nil {
			return nil, err
		}
		report.UnbalancedAssets = append(report.UnbalancedAssets, UnbalancedAsset{
			AssetID:   assetID,
			Imbalance: total,
		})
	}
	if err := balanceRows.Err(); err != nil {
		return nil, err
	}

	report.IsHealthy = len(report.HashChainBreaks) == 0 && len(report.UnbalancedAssets) == 0
	return report, nil
}

// --- helpers ---

func (qs *QueryService) getWatermark(ctx context.Context) (int64, error) {
	var seq int64
	err := qs.db.QueryRowContext(ctx, `
		SELECT COALESCE(last_sequence, 0) FROM projections.watermark WHERE worker_id = 'main'
	`).Scan(&seq)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return seq, err
}
