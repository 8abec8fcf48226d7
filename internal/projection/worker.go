package projection

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/delvtech/hyperdrive-sub006/internal/observability"
)

// ProjectionOutput mirrors the data needed by projection workers.
// The orchestrator bridges between core.CoreOutput and this.
type ProjectionOutput struct {
	Sequence       int64
	EventType      string
	PoolID         *string
	Timestamp      int64
	JournalEntries []JournalEntry
	PoolState      *PoolStateEntry
}

// JournalEntry is a simplified journal for projection consumption.
// Amount is an 18-decimal string, written straight into NUMERIC columns.
type JournalEntry struct {
	DebitAccount  string
	CreditAccount string
	AssetID       uint16
	Amount        string
	JournalType   int32
}

// PoolStateEntry carries a pool's observables after one event. Spot fields
// are empty until the pool is initialized.
type PoolStateEntry struct {
	PoolID                string
	ShareReserves         string
	BondReserves          string
	SharePrice            string
	SpotPrice             string
	SpotRate              string
	LongsOutstanding      string
	ShortsOutstanding     string
	LPTotalSupply         string
	WithdrawalSharesReady string
	GovernanceFeesAccrued string
}

// ProjectionWorker updates projection tables from processed events.
// The projection channel is non-blocking with drop: if projections fall
// behind, they can be rebuilt from the event log.
type ProjectionWorker struct {
	db        *sql.DB
	inputChan <-chan ProjectionOutput
	metrics   *observability.Metrics
	lastSeq   int64
}

func NewProjectionWorker(db *sql.DB, inputChan <-chan ProjectionOutput, metrics *observability.Metrics) *ProjectionWorker {
	return &ProjectionWorker{
		db:        db,
		inputChan: inputChan,
		metrics:   metrics,
	}
}

// Run starts the projection worker loop.
func (pw *ProjectionWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case output, ok := <-pw.inputChan:
			if !ok {
				return nil
			}

			start := time.Now()
			if err := pw.processOutput(ctx, output); err != nil {
				log.Printf("WARN: projection update failed at seq=%d: %v", output.Sequence, err)
				// Continue — projections are eventually consistent
				// and can be rebuilt from the event log
			}
			if pw.metrics != nil {
				pw.metrics.ProjectionUpdateDur.WithLabelValues("all").Observe(time.Since(start).Seconds())
			}

			pw.lastSeq = output.Sequence
		}
	}
}

func (pw *ProjectionWorker) processOutput(ctx context.Context, output ProjectionOutput) error {
	tx, err := pw.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Update balance projections from journal entries
	for _, j := range output.JournalEntries {
		if err := pw.updateBalanceProjection(ctx, tx, j, output.Sequence); err != nil {
			return fmt.Errorf("balance projection: %w", err)
		}
	}

	// Pool-state and rate history
	if ps := output.PoolState; ps != nil {
		if err := pw.insertPoolState(ctx, tx, output.Sequence, output.Timestamp, ps); err != nil {
			return fmt.Errorf("pool state projection: %w", err)
		}
	}

	// Update projection watermark
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO projections.watermark (worker_id, last_sequence, updated_at)
		VALUES ('main', $1, NOW())
		ON CONFLICT (worker_id) DO UPDATE SET last_sequence = $1, updated_at = NOW()
	`, output.Sequence); err != nil {
		return fmt.Errorf("watermark update: %w", err)
	}

	return tx.Commit()
}

// updateBalanceProjection applies one journal entry. Debits increase an
// account's balance, credits decrease it, matching the in-memory tracker.
func (pw *ProjectionWorker) updateBalanceProjection(ctx context.Context, tx *sql.Tx, j JournalEntry, seq int64) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO projections.balances (account_path, asset_id, balance, last_sequence)
		VALUES ($1, $2, $3::numeric, $4)
		ON CONFLICT (account_path, asset_id)
		DO UPDATE SET balance = projections.balances.balance + $3::numeric, last_sequence = $4
	`, j.DebitAccount, j.AssetID, j.Amount, seq); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO projections.balances (account_path, asset_id, balance, last_sequence)
		VALUES ($1, $2, -($3::numeric), $4)
		ON CONFLICT (account_path, asset_id)
		DO UPDATE SET balance = projections.balances.balance - $3::numeric, last_sequence = $4
	`, j.CreditAccount, j.AssetID, j.Amount, seq); err != nil {
		return err
	}

	return nil
}

func (pw *ProjectionWorker) insertPoolState(ctx context.Context, tx *sql.Tx, seq, ts int64, ps *PoolStateEntry) error {
	spotPrice := nullableNumeric(ps.SpotPrice)
	spotRate := nullableNumeric(ps.SpotRate)

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO projections.pool_state_history
			(pool_id, sequence, timestamp, share_reserves, bond_reserves, share_price,
			 spot_price, spot_rate, longs_outstanding, shorts_outstanding,
			 lp_total_supply, withdrawal_shares_ready, governance_fees_accrued)
		VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6::numeric, $7, $8,
		        $9::numeric, $10::numeric, $11::numeric, $12::numeric, $13::numeric)
		ON CONFLICT (pool_id, sequence) DO NOTHING
	`, ps.PoolID, seq, ts, ps.ShareReserves, ps.BondReserves, ps.SharePrice,
		spotPrice, spotRate, ps.LongsOutstanding, ps.ShortsOutstanding,
		ps.LPTotalSupply, ps.WithdrawalSharesReady, ps.GovernanceFeesAccrued); err != nil {
		return err
	}

	if ps.SpotRate != "" {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO projections.rate_history (pool_id, sequence, timestamp, spot_rate, share_price)
			VALUES ($1, $2, $3, $4::numeric, $5::numeric)
			ON CONFLICT (pool_id, sequence) DO NOTHING
		`, ps.PoolID, seq, ts, ps.SpotRate, ps.SharePrice); err != nil {
			return err
		}
	}

	return nil
}

func nullableNumeric(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// RebuildProjections rebuilds the balance projection from the event log.
// Pool-state and rate history repopulate as the event log is replayed
// through the core.
func RebuildProjections(ctx context.Context, db *sql.DB) error {
	truncateStatements := []string{
		`TRUNCATE projections.balances`,
		`TRUNCATE projections.pool_state_history`,
		`TRUNCATE projections.rate_history`,
		`DELETE FROM projections.watermark WHERE worker_id = 'main'`,
	}

	for _, stmt := range truncateStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("truncate failed: %w", err)
		}
	}

	// Debits increase balances
	_, err := db.ExecContext(ctx, `
		INSERT INTO projections.balances (account_path, asset_id, balance, last_sequence)
		SELECT
			debit_account AS account_path,
			asset_id,
			SUM(amount) AS balance,
			MAX(sequence) AS last_sequence
		FROM event_log.journal
		GROUP BY debit_account, asset_id
		ON CONFLICT (account_path, asset_id) DO UPDATE
			SET balance = EXCLUDED.balance, last_sequence = EXCLUDED.last_sequence
	`)
	if err != nil {
		return fmt.Errorf("rebuild debit balances: %w", err)
	}

	// Credits decrease balances
	_, err = db.ExecContext(ctx, `
		INSERT INTO projections.balances (account_path, asset_id, balance, last_sequence)
		SELECT
			credit_account AS account_path,
			asset_id,
			-SUM(amount) AS balance,
			MAX(sequence) AS last_sequence
		FROM event_log.journal
		GROUP BY credit_account, asset_id
		ON CONFLICT (account_path, asset_id) DO UPDATE
			SET balance = projections.balances.balance + EXCLUDED.balance,
			    last_sequence = GREATEST(projections.balances.last_sequence, EXCLUDED.last_sequence)
	`)
	if err != nil {
		return fmt.Errorf("rebuild credit balances: %w", err)
	}

	log.Println("INFO: projection rebuild complete")
	return nil
}
