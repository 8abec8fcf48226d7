package pool

import (
	"errors"
	"fmt"

	fp "github.com/delvtech/hyperdrive-sub006/internal/fixedpoint"
	"github.com/delvtech/hyperdrive-sub006/internal/hyperdrive"
)

var (
	// ErrUnauthorized rejects admin operations from non-privileged actors.
	ErrUnauthorized = errors.New("pool: unauthorized")

	// ErrPoolPaused rejects capital-committing operations while paused.
	ErrPoolPaused = errors.New("pool: paused")

	// ErrFeeOutOfBounds rejects fee updates past the configured maxima.
	ErrFeeOutOfBounds = errors.New("pool: fee exceeds maximum")

	// ErrUnsweepableAsset protects the pool's own assets from Sweep.
	ErrUnsweepableAsset = errors.New("pool: asset cannot be swept")
)

// Governance holds the admin surface of a pool: the authorized actors, the
// pause flag, and the fee ceilings that bound parameter updates.
type Governance struct {
	Admin          string        `json:"admin"`
	FeeCollector   string        `json:"fee_collector"`
	SweepCollector string        `json:"sweep_collector"`
	Pausers        map[string]bool `json:"pausers"`
	Paused         bool          `json:"paused"`
	MaxFees        hyperdrive.Fees `json:"max_fees"`
}

// NewGovernance returns a governance surface with the admin as the initial
// fee and sweep collector and sole pauser.
func NewGovernance(admin string, maxFees hyperdrive.Fees) *Governance {
	return &Governance{
		Admin:          admin,
		FeeCollector:   admin,
		SweepCollector: admin,
		Pausers:        map[string]bool{admin: true},
		MaxFees:        maxFees,
	}
}

// SetPaused toggles the pause flag. Only the admin and registered pausers
// may call it.
func (g *Governance) SetPaused(actor string, paused bool) error {
	if actor != g.Admin && !g.Pausers[actor] {
		return fmt.Errorf("%w: %s is not a pauser", ErrUnauthorized, actor)
	}
	g.Paused = paused
	return nil
}

// SetPauser grants or revokes pause authority. Admin only.
func (g *Governance) SetPauser(actor, pauser string, allowed bool) error {
	if actor != g.Admin {
		return fmt.Errorf("%w: %s is not the admin", ErrUnauthorized, actor)
	}
	if allowed {
		g.Pausers[pauser] = true
	} else {
		delete(g.Pausers, pauser)
	}
	return nil
}

// SetFeeCollector updates the governance fee destination. Admin only.
func (g *Governance) SetFeeCollector(actor, collector string) error {
	if actor != g.Admin {
		return fmt.Errorf("%w: %s is not the admin", ErrUnauthorized, actor)
	}
	g.FeeCollector = collector
	return nil
}

// SetSweepCollector updates the sweep destination. Admin only.
func (g *Governance) SetSweepCollector(actor, collector string) error {
	if actor != g.Admin {
		return fmt.Errorf("%w: %s is not the admin", ErrUnauthorized, actor)
	}
	g.SweepCollector = collector
	return nil
}

// ValidateFees checks a proposed fee update against the ceilings.
func (g *Governance) ValidateFees(fees hyperdrive.Fees) error {
	checks := []struct {
		name     string
		proposed fp.FixedPoint
		max      fp.FixedPoint
	}{
		{"curve", fees.Curve, g.MaxFees.Curve},
		{"flat", fees.Flat, g.MaxFees.Flat},
		{"governance", fees.Governance, g.MaxFees.Governance},
	}
	for _, c := range checks {
		if c.proposed.Gt(c.max) {
			return fmt.Errorf("%w: %s fee %s > max %s", ErrFeeOutOfBounds,
				c.name, c.proposed, c.max)
		}
	}
	return nil
}

// CanCollectFees reports whether the actor may collect governance fees.
func (g *Governance) CanCollectFees(actor string) bool {
	return actor == g.Admin || actor == g.FeeCollector
}

// CanSweep reports whether the actor may sweep stray assets.
func (g *Governance) CanSweep(actor string) bool {
	return actor == g.Admin || actor == g.SweepCollector
}
