package ingestion

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/delvtech/hyperdrive-sub006/internal/event"
)

// ParseRawEvent converts a RawEvent (JSON bytes + event type string) into a
// typed event.Event. The ingestion shell validates and converts raw events
// before sending to the deterministic core; business rules (slippage bounds,
// pause state, sequencing) are the core's job.
//
// Wire format: snake_case fields; fixed-point amounts are quoted raw decimal
// strings scaled by 1e18.
func ParseRawEvent(raw RawEvent, eventType string) (event.Event, error) {
	switch eventType {
	case "Initialize":
		return parseInitialize(raw.Data)
	case "OpenLong":
		return parseOpenLong(raw.Data)
	case "CloseLong":
		return parseCloseLong(raw.Data)
	case "OpenShort":
		return parseOpenShort(raw.Data)
	case "CloseShort":
		return parseCloseShort(raw.Data)
	case "AddLiquidity":
		return parseAddLiquidity(raw.Data)
	case "RemoveLiquidity":
		return parseRemoveLiquidity(raw.Data)
	case "RedeemWithdrawalShares":
		return parseRedeemWithdrawalShares(raw.Data)
	case "CheckpointMint":
		return parseCheckpointMint(raw.Data)
	case "SharePriceUpdate":
		return parseSharePriceUpdate(raw.Data)
	case "PauseToggle":
		return parsePauseToggle(raw.Data)
	case "FeeParamUpdate":
		return parseFeeParamUpdate(raw.Data)
	case "CollectGovernanceFee":
		return parseCollectGovernanceFee(raw.Data)
	case "Sweep":
		return parseSweep(raw.Data)
	default:
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}
}

func requireOp(kind string, opID uuid.UUID, pool string) error {
	if opID == uuid.Nil {
		return fmt.Errorf("parse %s: missing op_id", kind)
	}
	if pool == "" {
		return fmt.Errorf("parse %s: missing pool_id", kind)
	}
	return nil
}

func requireTrader(kind, trader string) error {
	if trader == "" {
		return fmt.Errorf("parse %s: missing trader", kind)
	}
	return nil
}

func parseInitialize(data []byte) (*event.Initialize, error) {
	var e event.Initialize
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("parse Initialize: %w", err)
	}
	if err := requireOp("Initialize", e.OpID, e.Pool); err != nil {
		return nil, err
	}
	if err := requireTrader("Initialize", e.Trader); err != nil {
		return nil, err
	}
	if e.Contribution.IsZero() {
		return nil, fmt.Errorf("parse Initialize: zero contribution")
	}
	return &e, nil
}

func parseOpenLong(data []byte) (*event.OpenLong, error) {
	var e event.OpenLong
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("parse OpenLong: %w", err)
	}
	if err := requireOp("OpenLong", e.OpID, e.Pool); err != nil {
		return nil, err
	}
	if err := requireTrader("OpenLong", e.Trader); err != nil {
		return nil, err
	}
	if e.BaseAmount.IsZero() {
		return nil, fmt.Errorf("parse OpenLong: zero base_amount")
	}
	return &e, nil
}

func parseCloseLong(data []byte) (*event.CloseLong, error) {
	var e event.CloseLong
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("parse CloseLong: %w", err)
	}
	if err := requireOp("CloseLong", e.OpID, e.Pool); err != nil {
		return nil, err
	}
	if err := requireTrader("CloseLong", e.Trader); err != nil {
		return nil, err
	}
	if e.MaturityTime == 0 {
		return nil, fmt.Errorf("parse CloseLong: missing maturity_time")
	}
	if e.BondAmount.IsZero() {
		return nil, fmt.Errorf("parse CloseLong: zero bond_amount")
	}
	return &e, nil
}

func parseOpenShort(data []byte) (*event.OpenShort, error) {
	var e event.OpenShort
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("parse OpenShort: %w", err)
	}
	if err := requireOp("OpenShort", e.OpID, e.Pool); err != nil {
		return nil, err
	}
	if err := requireTrader("OpenShort", e.Trader); err != nil {
		return nil, err
	}
	if e.BondAmount.IsZero() {
		return nil, fmt.Errorf("parse OpenShort: zero bond_amount")
	}
	return &e, nil
}

func parseCloseShort(data []byte) (*event.CloseShort, error) {
	var e event.CloseShort
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("parse CloseShort: %w", err)
	}
	if err := requireOp("CloseShort", e.OpID, e.Pool); err != nil {
		return nil, err
	}
	if err := requireTrader("CloseShort", e.Trader); err != nil {
		return nil, err
	}
	if e.MaturityTime == 0 {
		return nil, fmt.Errorf("parse CloseShort: missing maturity_time")
	}
	if e.BondAmount.IsZero() {
		return nil, fmt.Errorf("parse CloseShort: zero bond_amount")
	}
	return &e, nil
}

func parseAddLiquidity(data []byte) (*event.AddLiquidity, error) {
	var e event.AddLiquidity
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("parse AddLiquidity: %w", err)
	}
	if err := requireOp("AddLiquidity", e.OpID, e.Pool); err != nil {
		return nil, err
	}
	if err := requireTrader("AddLiquidity", e.Trader); err != nil {
		return nil, err
	}
	if e.Contribution.IsZero() {
		return nil, fmt.Errorf("parse AddLiquidity: zero contribution")
	}
	return &e, nil
}

func parseRemoveLiquidity(data []byte) (*event.RemoveLiquidity, error) {
	var e event.RemoveLiquidity
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("parse RemoveLiquidity: %w", err)
	}
	if err := requireOp("RemoveLiquidity", e.OpID, e.Pool); err != nil {
		return nil, err
	}
	if err := requireTrader("RemoveLiquidity", e.Trader); err != nil {
		return nil, err
	}
	if e.LPShares.IsZero() {
		return nil, fmt.Errorf("parse RemoveLiquidity: zero lp_shares")
	}
	return &e, nil
}

func parseRedeemWithdrawalShares(data []byte) (*event.RedeemWithdrawalShares, error) {
	var e event.RedeemWithdrawalShares
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("parse RedeemWithdrawalShares: %w", err)
	}
	if err := requireOp("RedeemWithdrawalShares", e.OpID, e.Pool); err != nil {
		return nil, err
	}
	if err := requireTrader("RedeemWithdrawalShares", e.Trader); err != nil {
		return nil, err
	}
	if e.Shares.IsZero() {
		return nil, fmt.Errorf("parse RedeemWithdrawalShares: zero shares")
	}
	return &e, nil
}

func parseCheckpointMint(data []byte) (*event.CheckpointMint, error) {
	var e event.CheckpointMint
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("parse CheckpointMint: %w", err)
	}
	if e.Pool == "" {
		return nil, fmt.Errorf("parse CheckpointMint: missing pool_id")
	}
	if e.CheckpointTime == 0 {
		return nil, fmt.Errorf("parse CheckpointMint: missing checkpoint_time")
	}
	return &e, nil
}

func parseSharePriceUpdate(data []byte) (*event.SharePriceUpdate, error) {
	var e event.SharePriceUpdate
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("parse SharePriceUpdate: %w", err)
	}
	if e.Pool == "" {
		return nil, fmt.Errorf("parse SharePriceUpdate: missing pool_id")
	}
	if e.SharePrice.IsZero() {
		return nil, fmt.Errorf("parse SharePriceUpdate: zero share_price")
	}
	return &e, nil
}

func parsePauseToggle(data []byte) (*event.PauseToggle, error) {
	var e event.PauseToggle
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("parse PauseToggle: %w", err)
	}
	if err := requireOp("PauseToggle", e.OpID, e.Pool); err != nil {
		return nil, err
	}
	if e.Actor == "" {
		return nil, fmt.Errorf("parse PauseToggle: missing actor")
	}
	return &e, nil
}

func parseFeeParamUpdate(data []byte) (*event.FeeParamUpdate, error) {
	var e event.FeeParamUpdate
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("parse FeeParamUpdate: %w", err)
	}
	if err := requireOp("FeeParamUpdate", e.OpID, e.Pool); err != nil {
		return nil, err
	}
	if e.Actor == "" {
		return nil, fmt.Errorf("parse FeeParamUpdate: missing actor")
	}
	return &e, nil
}

func parseCollectGovernanceFee(data []byte) (*event.CollectGovernanceFee, error) {
	var e event.CollectGovernanceFee
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("parse CollectGovernanceFee: %w", err)
	}
	if err := requireOp("CollectGovernanceFee", e.OpID, e.Pool); err != nil {
		return nil, err
	}
	if e.Actor == "" {
		return nil, fmt.Errorf("parse CollectGovernanceFee: missing actor")
	}
	return &e, nil
}

func parseSweep(data []byte) (*event.Sweep, error) {
	var e event.Sweep
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("parse Sweep: %w", err)
	}
	if err := requireOp("Sweep", e.OpID, e.Pool); err != nil {
		return nil, err
	}
	if e.Token == "" {
		return nil, fmt.Errorf("parse Sweep: missing token")
	}
	return &e, nil
}
