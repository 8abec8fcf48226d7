package core

import (
	fp "github.com/delvtech/hyperdrive-sub006/internal/fixedpoint"
	"github.com/delvtech/hyperdrive-sub006/internal/pool"
)

// PoolReadView is an immutable per-pool view for the query surface. Spot and
// LP pricing are zero until the pool is initialized.
type PoolReadView struct {
	Snapshot     *pool.PoolSnapshot
	Paused       bool
	SpotPrice    fp.FixedPoint
	SpotRate     fp.FixedPoint
	LPSharePrice fp.FixedPoint
	PresentValue fp.FixedPoint
	Timestamp    uint64
}

// ReadModel is the query-facing state published by the core after every
// applied event. The core swaps in a fresh pointer and never mutates a
// published model, so readers on other goroutines need no locks.
type ReadModel struct {
	// Last applied global sequence
	Sequence int64

	Pools map[string]*PoolReadView
}

// ReadModel returns the latest published view. Never nil.
func (c *DeterministicCore) ReadModel() *ReadModel {
	if rm := c.readModel.Load(); rm != nil {
		return rm
	}
	return &ReadModel{Sequence: -1, Pools: map[string]*PoolReadView{}}
}

// publishReadModel swaps in a new read model with the given pool's view
// rebuilt. Pass an empty poolID to bump the sequence only.
func (c *DeterministicCore) publishReadModel(poolID string, ts uint64) {
	prev := c.readModel.Load()
	pools := make(map[string]*PoolReadView, len(c.pools))
	if prev != nil {
		for id, v := range prev.Pools {
			pools[id] = v
		}
	}
	if p, ok := c.pools[poolID]; ok {
		pools[poolID] = newPoolReadView(p, ts)
	}
	c.readModel.Store(&ReadModel{Sequence: c.sequence - 1, Pools: pools})
}

func newPoolReadView(p *pool.Pool, ts uint64) *PoolReadView {
	view := &PoolReadView{
		Snapshot:  p.Snapshot(),
		Paused:    p.Gov.Paused,
		Timestamp: ts,
	}
	if p.Initialized {
		view.SpotPrice = p.State.SpotPrice()
		view.SpotRate = p.State.SpotRate()
		if lp, err := p.State.LPSharePrice(ts); err == nil {
			view.LPSharePrice = lp
		}
		if pv, err := p.State.PresentValue(ts); err == nil {
			view.PresentValue = pv
		}
	}
	return view
}
