package fixedpoint_test

import (
	"encoding/json"
	"testing"

	"github.com/delvtech/hyperdrive-sub006/internal/fixedpoint"
)

// absDiff returns |a - b|.
func absDiff(a, b fixedpoint.FixedPoint) fixedpoint.FixedPoint {
	if a.Gte(b) {
		return a.Sub(b)
	}
	return b.Sub(a)
}

// assertClose fails if |got - want| > tolerance (in raw base units).
func assertClose(t *testing.T, name string, got, want fixedpoint.FixedPoint, tolerance uint64) {
	t.Helper()
	if absDiff(got, want).Gt(fixedpoint.Raw(tolerance)) {
		t.Errorf("%s: got %s, want %s (±%d wei)", name, got, want, tolerance)
	}
}

// ===== Test: parsing and formatting =====

func TestFromDec(t *testing.T) {
	cases := []struct {
		in   string
		want fixedpoint.FixedPoint
	}{
		{"0", fixedpoint.Zero()},
		{"1", fixedpoint.One()},
		{"2", fixedpoint.Two()},
		{"0.5", fixedpoint.Raw(5e17)},
		{"1.5", fixedpoint.Raw(15e17)},
		{"0.000000000000000001", fixedpoint.Raw(1)},
		{"100", fixedpoint.FromUint64(100)},
	}

	for _, tc := range cases {
		got, err := fixedpoint.FromDec(tc.in)
		if err != nil {
			t.Errorf("FromDec(%q): unexpected error: %v", tc.in, err)
			continue
		}
		if !got.Eq(tc.want) {
			t.Errorf("FromDec(%q): got %s, want %s", tc.in, got, tc.want)
		}
	}

	if _, err := fixedpoint.FromDec("1.0000000000000000001"); err == nil {
		t.Error("FromDec with 19 fractional digits: expected error, got nil")
	}
	if _, err := fixedpoint.FromDec("abc"); err == nil {
		t.Error("FromDec(abc): expected error, got nil")
	}
}

func TestString(t *testing.T) {
	cases := []struct {
		in   fixedpoint.FixedPoint
		want string
	}{
		{fixedpoint.Zero(), "0"},
		{fixedpoint.One(), "1"},
		{fixedpoint.Raw(15e17), "1.5"},
		{fixedpoint.Raw(1), "0.000000000000000001"},
	}
	for _, tc := range cases {
		if got := tc.in.String(); got != tc.want {
			t.Errorf("String: got %q, want %q", got, tc.want)
		}
	}
}

func TestJSONRoundTrip(t *testing.T) {
	orig := fixedpoint.MustFromDec("123.456789")
	data, err := json.Marshal(orig)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back fixedpoint.FixedPoint
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Eq(orig) {
		t.Errorf("round trip: got %s, want %s", back, orig)
	}
}

// ===== Test: rounding direction =====

func TestMulRounding(t *testing.T) {
	// 1/3 * 3 truncates down to just under 1 but rounds up to exactly 1...
	// more precisely: down <= exact <= up and up - down <= 1 wei.
	a := fixedpoint.One().DivDown(fixedpoint.FromUint64(3))
	b := fixedpoint.FromUint64(3)

	down := a.MulDown(b)
	up := a.MulUp(b)

	if down.Gt(up) {
		t.Errorf("MulDown %s > MulUp %s", down, up)
	}
	if up.Sub(down).Gt(fixedpoint.Raw(1)) {
		t.Errorf("MulUp - MulDown = %s, want <= 1 wei", up.Sub(down))
	}
	if !up.Eq(fixedpoint.Raw(999999999999999999)) {
		t.Errorf("MulUp: got %s", up)
	}
}

func TestDivRounding(t *testing.T) {
	a := fixedpoint.FromUint64(10)
	b := fixedpoint.FromUint64(3)

	down := a.DivDown(b)
	up := a.DivUp(b)

	if !up.Sub(down).Eq(fixedpoint.Raw(1)) {
		t.Errorf("DivUp - DivDown = %s, want exactly 1 wei for inexact division", up.Sub(down))
	}

	// Exact division rounds identically in both directions.
	exactDown := a.DivDown(fixedpoint.FromUint64(2))
	exactUp := a.DivUp(fixedpoint.FromUint64(2))
	if !exactDown.Eq(exactUp) {
		t.Errorf("exact division: down %s != up %s", exactDown, exactUp)
	}
	if !exactDown.Eq(fixedpoint.FromUint64(5)) {
		t.Errorf("10/2: got %s, want 5", exactDown)
	}
}

func TestMulDivRounding(t *testing.T) {
	a := fixedpoint.MustFromDec("2.5")
	b := fixedpoint.MustFromDec("0.3")
	d := fixedpoint.MustFromDec("0.9")

	down := a.MulDivDown(b, d)
	up := a.MulDivUp(b, d)
	if down.Gt(up) {
		t.Errorf("MulDivDown %s > MulDivUp %s", down, up)
	}
	if up.Sub(down).Gt(fixedpoint.Raw(1)) {
		t.Errorf("MulDiv rounding spread %s > 1 wei", up.Sub(down))
	}
}

// ===== Test: overflow and underflow =====

func TestSubUnderflowGuard(t *testing.T) {
	err := func() (err error) {
		defer fixedpoint.Guard(&err)
		_ = fixedpoint.One().Sub(fixedpoint.Two())
		return nil
	}()

	if err == nil {
		t.Fatal("expected underflow error, got nil")
	}
}

func TestDivByZeroGuard(t *testing.T) {
	err := func() (err error) {
		defer fixedpoint.Guard(&err)
		_ = fixedpoint.One().DivDown(fixedpoint.Zero())
		return nil
	}()

	if err == nil {
		t.Fatal("expected division-by-zero error, got nil")
	}
}

func TestSatSub(t *testing.T) {
	if got := fixedpoint.One().SatSub(fixedpoint.Two()); !got.IsZero() {
		t.Errorf("SatSub clamp: got %s, want 0", got)
	}
	if got := fixedpoint.Two().SatSub(fixedpoint.One()); !got.Eq(fixedpoint.One()) {
		t.Errorf("SatSub: got %s, want 1", got)
	}
}

// ===== Test: pow =====

func TestPowIdentities(t *testing.T) {
	x := fixedpoint.MustFromDec("3.14159")

	if got := x.Pow(fixedpoint.Zero()); !got.Eq(fixedpoint.One()) {
		t.Errorf("x^0: got %s, want 1", got)
	}
	if got := fixedpoint.Zero().Pow(x); !got.IsZero() {
		t.Errorf("0^x: got %s, want 0", got)
	}

	// x^1 is computed through exp(ln(x)) so it carries approximation error,
	// but it must land within a few wei of x.
	assertClose(t, "x^1", x.Pow(fixedpoint.One()), x, 1e6)
}

func TestPowKnownValues(t *testing.T) {
	cases := []struct {
		base, exp, want string
	}{
		{"4", "0.5", "2"},
		{"2", "2", "4"},
		{"9", "0.5", "3"},
		{"1", "123.456", "1"},
		{"2.718281828459045235", "1", "2.718281828459045235"},
		{"0.5", "2", "0.25"},
	}

	for _, tc := range cases {
		base := fixedpoint.MustFromDec(tc.base)
		exp := fixedpoint.MustFromDec(tc.exp)
		want := fixedpoint.MustFromDec(tc.want)
		assertClose(t, tc.base+"^"+tc.exp, base.Pow(exp), want, 1e9)
	}
}

func TestPowFractionalOfOne(t *testing.T) {
	// (mu*ze/y)^t with values typical of a freshly initialized pool: the
	// result must stay strictly inside (0, 1] for ratio <= 1.
	ratio := fixedpoint.MustFromDec("0.95")
	ts := fixedpoint.MustFromDec("0.045071688063194093")

	p := ratio.Pow(ts)
	if !p.Lt(fixedpoint.One()) {
		t.Errorf("0.95^ts: got %s, want < 1", p)
	}
	if !p.Gt(fixedpoint.MustFromDec("0.99")) {
		t.Errorf("0.95^ts: got %s, want > 0.99 for small ts", p)
	}
}

// ===== Test: Signed =====

func TestSignedArithmetic(t *testing.T) {
	pos := fixedpoint.SignedFrom(fixedpoint.FromUint64(5))
	neg := fixedpoint.NewSigned(fixedpoint.FromUint64(3), true)

	sum := pos.Add(neg)
	if sum.Sign() != 1 || !sum.Abs().Eq(fixedpoint.FromUint64(2)) {
		t.Errorf("5 + (-3): got %s, want 2", sum)
	}

	diff := neg.Sub(pos)
	if diff.Sign() != -1 || !diff.Abs().Eq(fixedpoint.FromUint64(8)) {
		t.Errorf("-3 - 5: got %s, want -8", diff)
	}

	zero := pos.Sub(pos)
	if zero.Sign() != 0 {
		t.Errorf("5 - 5: sign %d, want 0", zero.Sign())
	}
	if zero.IsNegative() {
		t.Error("zero must not be negative")
	}
}

func TestSignedJSON(t *testing.T) {
	orig := fixedpoint.NewSigned(fixedpoint.MustFromDec("7.25"), true)
	data, err := json.Marshal(orig)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back fixedpoint.Signed
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Sign() != orig.Sign() || !back.Abs().Eq(orig.Abs()) {
		t.Errorf("signed round trip: got %s, want %s", back, orig)
	}
}
