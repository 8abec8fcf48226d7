package query

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/delvtech/hyperdrive-sub006/internal/ledger"
)

// BalanceResponse represents one account's projected balance. Balance is a
// signed 18-decimal string.
type BalanceResponse struct {
	AccountPath  string `json:"account_path"`
	Asset        string `json:"asset"`
	Balance      string `json:"balance"`
	AsOfSequence int64  `json:"as_of_sequence"`
}

// GetTraderBalance returns a trader's base balance from the balance
// projection. A negative balance means net outflow through the external
// boundary (deposits are upstream's concern, so fresh traders go negative
// when they fund a position).
func (qs *QueryService) GetTraderBalance(ctx context.Context, trader string) (*BalanceResponse, error) {
	asOfSeq, err := qs.getWatermark(ctx)
	if err != nil {
		return nil, fmt.Errorf("watermark: %w", err)
	}

	key := ledger.NewTraderAccountKey(trader, ledger.SubTypeBase, ledger.AssetBase)
	balance, err := qs.getProjectedBalance(ctx, key.AccountPath())
	if err != nil {
		return nil, err
	}

	return &BalanceResponse{
		AccountPath:  key.AccountPath(),
		Asset:        "BASE",
		Balance:      balance,
		AsOfSequence: asOfSeq,
	}, nil
}

// GetPoolBalances returns the pool's system account balances (reserves,
// short buffer, governance accrual, withdrawal pool, zombie).
func (qs *QueryService) GetPoolBalances(ctx context.Context, poolID string) ([]BalanceResponse, error) {
	asOfSeq, err := qs.getWatermark(ctx)
	if err != nil {
		return nil, fmt.Errorf("watermark: %w", err)
	}

	subTypes := []ledger.AccountSubType{
		ledger.SubTypeReserves,
		ledger.SubTypeShortBuffer,
		ledger.SubTypeGovernanceAccrual,
		ledger.SubTypeWithdrawalPool,
		ledger.SubTypeZombie,
	}

	responses := make([]BalanceResponse, 0, len(subTypes))
	for _, st := range subTypes {
		key := ledger.NewPoolAccountKey(poolID, st, ledger.AssetBase)
		balance, err := qs.getProjectedBalance(ctx, key.AccountPath())
		if err != nil {
			return nil, err
		}
		responses = append(responses, BalanceResponse{
			AccountPath:  key.AccountPath(),
			Asset:        "BASE",
			Balance:      balance,
			AsOfSequence: asOfSeq,
		})
	}

	return responses, nil
}

// traderAccountPrefix is the LIKE pattern matching every stored account path
// belonging to one trader.
func traderAccountPrefix(trader string) string {
	key := ledger.NewTraderAccountKey(trader, ledger.SubTypeBase, ledger.AssetBase)
	return fmt.Sprintf("trader:%x:%%", key.EntityID)
}

func (qs *QueryService) getProjectedBalance(ctx context.Context, accountPath string) (string, error) {
	var balance string
	err := qs.db.QueryRowContext(ctx, `
		SELECT balance::text FROM projections.balances
		WHERE account_path = $1 AND asset_id = $2
	`, accountPath, uint16(ledger.AssetBase)).Scan(&balance)
	if err == sql.ErrNoRows {
		return "0", nil
	}
	if err != nil {
		return "", err
	}
	return balance, nil
}
