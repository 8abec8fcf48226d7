package vault_test

import (
	"errors"
	"testing"

	fp "github.com/delvtech/hyperdrive-sub006/internal/fixedpoint"
	"github.com/delvtech/hyperdrive-sub006/internal/vault"
)

const oneYear = 365 * 24 * 60 * 60

// ===== Test: fixed-APR accrual =====

func TestMockYieldSourceAccrual(t *testing.T) {
	v := vault.NewMockYieldSource(fp.One(), fp.MustFromDec("0.05"))

	v.Advance(oneYear)
	if got := v.PricePerShare(); !got.Eq(fp.MustFromDec("1.05")) {
		t.Errorf("price after one year at 5%%: got %s, want 1.05", got)
	}

	// The clock never runs backwards.
	v.Advance(oneYear / 2)
	if got := v.PricePerShare(); !got.Eq(fp.MustFromDec("1.05")) {
		t.Errorf("price after backwards advance: got %s, want 1.05", got)
	}
}

func TestMockYieldSourceDeterministic(t *testing.T) {
	build := func() fp.FixedPoint {
		v := vault.NewMockYieldSource(fp.One(), fp.MustFromDec("0.03"))
		v.Advance(oneYear / 4)
		v.Advance(oneYear / 2)
		v.Advance(oneYear)
		return v.PricePerShare()
	}
	if a, b := build(), build(); !a.Eq(b) {
		t.Errorf("same clock inputs must give the same price: %s vs %s", a, b)
	}
}

// ===== Test: deposit and withdraw =====

func TestMockYieldSourceRoundTrip(t *testing.T) {
	v := vault.NewMockYieldSource(fp.One(), fp.MustFromDec("0.10"))

	shares, err := v.Deposit(fp.FromUint64(100))
	if err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	if !shares.Eq(fp.FromUint64(100)) {
		t.Errorf("shares at price 1: got %s, want 100", shares)
	}

	v.Advance(oneYear)
	base, err := v.Withdraw(shares)
	if err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if !base.Eq(fp.FromUint64(110)) {
		t.Errorf("base after 10%% year: got %s, want 110", base)
	}

	if _, err := v.Withdraw(fp.One()); !errors.Is(err, vault.ErrInsufficientShares) {
		t.Errorf("overdrawn withdraw: got %v, want ErrInsufficientShares", err)
	}
}

func TestMockYieldSourceStepwisePrice(t *testing.T) {
	v := vault.NewMockYieldSource(fp.One(), fp.Zero())

	v.Advance(oneYear)
	if got := v.PricePerShare(); !got.Eq(fp.One()) {
		t.Errorf("zero-APR price: got %s, want 1", got)
	}

	v.SetPrice(fp.MustFromDec("1.2"))
	if got := v.PricePerShare(); !got.Eq(fp.MustFromDec("1.2")) {
		t.Errorf("stepwise price: got %s, want 1.2", got)
	}
}
