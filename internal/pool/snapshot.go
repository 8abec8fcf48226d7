package pool

import (
	fp "github.com/delvtech/hyperdrive-sub006/internal/fixedpoint"
	"github.com/delvtech/hyperdrive-sub006/internal/hyperdrive"
)

// PositionBalance is one holder's balance of one asset class, flattened for
// serialization.
type PositionBalance struct {
	AssetID uint64        `json:"asset_id"` // encoded
	Holder  string        `json:"holder"`
	Amount  fp.FixedPoint `json:"amount"`
}

// PoolSnapshot is the full serializable state of one pool.
type PoolSnapshot struct {
	ID          string                `json:"id"`
	Config      hyperdrive.PoolConfig `json:"config"`
	Info        hyperdrive.PoolInfo   `json:"info"`
	Initialized bool                  `json:"initialized"`
	Governance  *Governance           `json:"governance"`
	Checkpoints []Checkpoint          `json:"checkpoints"`
	Positions   []PositionBalance     `json:"positions"`
	Settled     []uint64              `json:"settled"` // encoded asset IDs
	Stray       map[string]fp.FixedPoint `json:"stray,omitempty"`
}

// Snapshot captures the pool's state in deterministic order.
func (p *Pool) Snapshot() *PoolSnapshot {
	snap := &PoolSnapshot{
		ID:          p.ID,
		Config:      p.State.Config,
		Info:        p.State.Info,
		Initialized: p.Initialized,
		Governance:  p.Gov,
	}

	for _, t := range p.Checkpoints.Times() {
		snap.Checkpoints = append(snap.Checkpoints, *p.Checkpoints.Get(t))
	}
	for _, id := range p.Registry.Assets() {
		for _, holder := range p.Registry.Holders(id) {
			snap.Positions = append(snap.Positions, PositionBalance{
				AssetID: id.Encoded(),
				Holder:  holder,
				Amount:  p.Registry.BalanceOf(id, holder),
			})
		}
	}
	for _, id := range p.settledAssets() {
		snap.Settled = append(snap.Settled, id.Encoded())
	}
	if len(p.stray) > 0 {
		snap.Stray = make(map[string]fp.FixedPoint, len(p.stray))
		for token, amount := range p.stray {
			snap.Stray[token] = amount
		}
	}
	return snap
}

func (p *Pool) settledAssets() []AssetID {
	ids := make([]AssetID, 0, len(p.settled))
	for id := range p.settled {
		ids = append(ids, id)
	}
	sortAssetIDs(ids)
	return ids
}

func sortAssetIDs(ids []AssetID) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j].Encoded() < ids[j-1].Encoded(); j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}
}

// RestorePool rebuilds a pool from a snapshot.
func RestorePool(snap *PoolSnapshot) (*Pool, error) {
	p, err := New(snap.ID, snap.Config, snap.Governance)
	if err != nil {
		return nil, err
	}
	p.State.Info = snap.Info
	p.Initialized = snap.Initialized

	for _, cp := range snap.Checkpoints {
		restored, _ := p.Checkpoints.Apply(cp.Time, cp.SharePrice)
		restored.LongBaseVolume = cp.LongBaseVolume
		restored.ShortBaseVolume = cp.ShortBaseVolume
	}
	for _, pb := range snap.Positions {
		p.Registry.Mint(DecodeAssetID(pb.AssetID), pb.Holder, pb.Amount)
	}
	for _, encoded := range snap.Settled {
		p.settled[DecodeAssetID(encoded)] = true
	}
	for token, amount := range snap.Stray {
		p.stray[token] = amount
	}
	return p, nil
}
