// Package vault abstracts the yield source a pool deposits its base into.
// Share prices move only with the versioned event clock, never with wall
// time, so every implementation is deterministic given the same inputs.
package vault

import (
	"errors"

	fp "github.com/delvtech/hyperdrive-sub006/internal/fixedpoint"
	"github.com/delvtech/hyperdrive-sub006/internal/hyperdrive"
)

// ErrInsufficientShares rejects withdrawals past the vault's share balance.
var ErrInsufficientShares = errors.New("vault: insufficient shares")

// YieldSource converts between base and yield-bearing shares at its current
// share price.
type YieldSource interface {
	// Deposit converts base into shares at the current price.
	Deposit(base fp.FixedPoint) (fp.FixedPoint, error)

	// Withdraw converts shares back into base at the current price.
	Withdraw(shares fp.FixedPoint) (fp.FixedPoint, error)

	// PricePerShare returns the current base value of one share.
	PricePerShare() fp.FixedPoint
}

// MockYieldSource is a programmable yield source for simulation and tests.
// It accrues linearly at a fixed APR between clock advances and accepts
// stepwise price overrides.
type MockYieldSource struct {
	price  fp.FixedPoint
	apr    fp.FixedPoint
	clock  uint64
	shares fp.FixedPoint
}

// NewMockYieldSource returns a mock vault at the given starting price and
// fixed APR. A zero APR freezes the price between SetPrice calls.
func NewMockYieldSource(price, apr fp.FixedPoint) *MockYieldSource {
	if price.IsZero() {
		price = fp.One()
	}
	return &MockYieldSource{price: price, apr: apr}
}

// Advance moves the event clock forward, accruing interest at the fixed
// APR over the elapsed versioned time. Moving backwards is a no-op.
func (m *MockYieldSource) Advance(now uint64) {
	if now <= m.clock {
		return
	}
	elapsed := now - m.clock
	m.clock = now
	if m.apr.IsZero() {
		return
	}
	growth := m.apr.MulDivDown(fp.FromUint64(elapsed), fp.FromUint64(hyperdrive.SecondsPerYear))
	m.price = m.price.Add(m.price.MulDown(growth))
}

// SetPrice overrides the share price, for stepwise schedules.
func (m *MockYieldSource) SetPrice(price fp.FixedPoint) {
	if !price.IsZero() {
		m.price = price
	}
}

// Deposit converts base into shares at the current price.
func (m *MockYieldSource) Deposit(base fp.FixedPoint) (fp.FixedPoint, error) {
	shares := base.DivDown(m.price)
	m.shares = m.shares.Add(shares)
	return shares, nil
}

// Withdraw converts shares back into base at the current price.
func (m *MockYieldSource) Withdraw(shares fp.FixedPoint) (fp.FixedPoint, error) {
	if m.shares.Lt(shares) {
		return fp.Zero(), ErrInsufficientShares
	}
	m.shares = m.shares.Sub(shares)
	return shares.MulDown(m.price), nil
}

// PricePerShare returns the current base value of one share.
func (m *MockYieldSource) PricePerShare() fp.FixedPoint {
	return m.price
}

// TotalShares returns the shares currently held in the vault.
func (m *MockYieldSource) TotalShares() fp.FixedPoint {
	return m.shares
}

// APR returns the fixed accrual rate.
func (m *MockYieldSource) APR() fp.FixedPoint {
	return m.apr
}

// Clock returns the vault's versioned event clock.
func (m *MockYieldSource) Clock() uint64 {
	return m.clock
}

// Restore repositions the vault's price and clock, used on snapshot restore.
func (m *MockYieldSource) Restore(price fp.FixedPoint, clock uint64) {
	if !price.IsZero() {
		m.price = price
	}
	m.clock = clock
}
