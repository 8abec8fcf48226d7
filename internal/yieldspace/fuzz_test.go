package yieldspace_test

import (
	"testing"

	fp "github.com/delvtech/hyperdrive-sub006/internal/fixedpoint"
	"github.com/delvtech/hyperdrive-sub006/internal/yieldspace"
)

// fuzzTolerance absorbs the pow approximation error compounded across the
// buy and sell legs.
var fuzzTolerance = fp.Raw(1e10)

// FuzzBuySellRoundTrip drives random reserve levels, including near-zero
// share reserves, through a buy-then-sell round trip and checks the pool
// never pays out more shares than it took in.
func FuzzBuySellRoundTrip(f *testing.F) {
	// wei-scaled raw inputs: shares, extra bonds above shares, trade fraction
	f.Add(uint64(10e18), uint64(2.5e18), uint64(5e17))
	f.Add(uint64(1e12), uint64(1e12), uint64(1e17))   // near-zero reserves
	f.Add(uint64(1e18), uint64(0), uint64(999e15))    // bonds == shares
	f.Add(uint64(1e19), uint64(1e19), uint64(1))      // deep pool, dust trade
	f.Add(uint64(1e12), uint64(1e19), uint64(9e17))   // bond-heavy, tiny shares

	f.Fuzz(func(t *testing.T, zRaw, extraYRaw, fracRaw uint64) {
		if zRaw == 0 {
			return
		}
		// Keep the trade fraction in (0, 1) of the max buy.
		frac := fp.Raw(fracRaw % 1e18)
		if frac.IsZero() {
			return
		}

		p := yieldspace.Params{
			ShareReserves:     fp.Raw(zRaw),
			BondReserves:      fp.Raw(zRaw).Add(fp.Raw(extraYRaw)),
			SharePrice:        fp.One(),
			InitialSharePrice: fp.One(),
			TimeStretch:       fp.MustFromDec("0.05"),
		}

		maxIn, err := p.MaxBuySharesIn()
		if err != nil || maxIn.IsZero() {
			return
		}
		dz := maxIn.MulDown(frac)
		if dz.IsZero() {
			return
		}

		dy := p.BondsOutGivenSharesIn(dz)
		if dy.IsZero() || dy.Gte(p.BondReserves) {
			return
		}

		after := p
		after.ShareReserves = p.ShareReserves.Add(dz)
		after.BondReserves = p.BondReserves.Sub(dy)

		dzOut, err := after.SharesOutGivenBondsIn(dy)
		if err != nil {
			return
		}

		if dzOut.Gt(dz.Add(fuzzTolerance)) {
			t.Errorf("round trip profits trader: in %s, out %s (z=%s, y=%s)",
				dz, dzOut, p.ShareReserves, p.BondReserves)
		}
	})
}

// FuzzSharesInBracketsExact checks the up-rounded quote always dominates the
// down-rounded quote for the same bonds out.
func FuzzSharesInBracketsExact(f *testing.F) {
	f.Add(uint64(10e18), uint64(2.5e18), uint64(1e18))
	f.Add(uint64(1e12), uint64(1e12), uint64(1e10))

	f.Fuzz(func(t *testing.T, zRaw, extraYRaw, dyRaw uint64) {
		if zRaw == 0 || dyRaw == 0 {
			return
		}

		p := yieldspace.Params{
			ShareReserves:     fp.Raw(zRaw),
			BondReserves:      fp.Raw(zRaw).Add(fp.Raw(extraYRaw)),
			SharePrice:        fp.One(),
			InitialSharePrice: fp.One(),
			TimeStretch:       fp.MustFromDec("0.05"),
		}

		maxOut, err := p.MaxBuyBondsOut()
		if err != nil || maxOut.IsZero() {
			return
		}
		dy := fp.Raw(dyRaw).Min(maxOut)
		if dy.IsZero() {
			return
		}

		up, err := p.SharesInGivenBondsOutUp(dy)
		if err != nil {
			return
		}
		down := p.SharesInGivenBondsOutDown(dy)

		if up.Lt(down) {
			t.Errorf("up quote %s < down quote %s for dy=%s", up, down, dy)
		}
	})
}
