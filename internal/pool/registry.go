package pool

import (
	"errors"
	"fmt"
	"sort"

	fp "github.com/delvtech/hyperdrive-sub006/internal/fixedpoint"
)

// AssetKind discriminates the fungible claims a pool issues.
type AssetKind uint8

const (
	AssetLP AssetKind = iota
	AssetLong
	AssetShort
	AssetWithdrawalShare
)

func (k AssetKind) String() string {
	switch k {
	case AssetLP:
		return "LP"
	case AssetLong:
		return "LONG"
	case AssetShort:
		return "SHORT"
	case AssetWithdrawalShare:
		return "WITHDRAWAL_SHARE"
	default:
		return "UNKNOWN"
	}
}

// AssetID identifies a fungible position class. LP and withdrawal shares
// carry no maturity; longs and shorts are bucketed by their maturity time.
type AssetID struct {
	Kind     AssetKind
	Maturity uint64
}

// LPAssetID and WithdrawalAssetID are the two maturity-less asset classes.
var (
	LPAssetID         = AssetID{Kind: AssetLP}
	WithdrawalAssetID = AssetID{Kind: AssetWithdrawalShare}
)

// LongAssetID returns the asset class of longs maturing at the given time.
func LongAssetID(maturity uint64) AssetID {
	return AssetID{Kind: AssetLong, Maturity: maturity}
}

// ShortAssetID returns the asset class of shorts maturing at the given time.
func ShortAssetID(maturity uint64) AssetID {
	return AssetID{Kind: AssetShort, Maturity: maturity}
}

// Encoded packs the asset ID into a single uint64: kind in the top byte,
// maturity in the low 56 bits. Stable across runs, used as the external ID.
func (id AssetID) Encoded() uint64 {
	return uint64(id.Kind)<<56 | id.Maturity&(1<<56-1)
}

// DecodeAssetID reverses Encoded.
func DecodeAssetID(v uint64) AssetID {
	return AssetID{Kind: AssetKind(v >> 56), Maturity: v & (1<<56 - 1)}
}

func (id AssetID) String() string {
	if id.Maturity == 0 {
		return id.Kind.String()
	}
	return fmt.Sprintf("%s:%d", id.Kind, id.Maturity)
}

// ErrInsufficientBalance is returned when a burn or transfer exceeds the
// holder's balance.
var ErrInsufficientBalance = errors.New("pool: insufficient position balance")

// Registry ledgers the fungible position balances a pool has issued. Mint
// and burn happen only through pool operations, so total supply per asset
// always equals the sum of holder balances.
type Registry struct {
	balances map[AssetID]map[string]fp.FixedPoint
	supply   map[AssetID]fp.FixedPoint
}

// NewRegistry returns an empty position registry.
func NewRegistry() *Registry {
	return &Registry{
		balances: make(map[AssetID]map[string]fp.FixedPoint),
		supply:   make(map[AssetID]fp.FixedPoint),
	}
}

// Mint credits amount of the asset to the holder.
func (r *Registry) Mint(id AssetID, holder string, amount fp.FixedPoint) {
	if amount.IsZero() {
		return
	}
	held, ok := r.balances[id]
	if !ok {
		held = make(map[string]fp.FixedPoint)
		r.balances[id] = held
	}
	held[holder] = held[holder].Add(amount)
	r.supply[id] = r.supply[id].Add(amount)
}

// Burn debits amount of the asset from the holder.
func (r *Registry) Burn(id AssetID, holder string, amount fp.FixedPoint) error {
	held := r.balances[id]
	bal := held[holder]
	if bal.Lt(amount) {
		return fmt.Errorf("%w: %s holds %s of %s, burning %s",
			ErrInsufficientBalance, holder, bal, id, amount)
	}
	if bal.Eq(amount) {
		delete(held, holder)
		if len(held) == 0 {
			delete(r.balances, id)
		}
	} else {
		held[holder] = bal.Sub(amount)
	}
	r.supply[id] = r.supply[id].Sub(amount)
	if r.supply[id].IsZero() {
		delete(r.supply, id)
	}
	return nil
}

// Transfer moves amount of the asset between holders.
func (r *Registry) Transfer(id AssetID, from, to string, amount fp.FixedPoint) error {
	if err := r.Burn(id, from, amount); err != nil {
		return err
	}
	r.Mint(id, to, amount)
	return nil
}

// BalanceOf returns the holder's balance of the asset.
func (r *Registry) BalanceOf(id AssetID, holder string) fp.FixedPoint {
	return r.balances[id][holder]
}

// TotalSupply returns the outstanding amount of the asset.
func (r *Registry) TotalSupply(id AssetID) fp.FixedPoint {
	return r.supply[id]
}

// Assets returns every asset class with outstanding supply, sorted by
// encoded ID for deterministic iteration.
func (r *Registry) Assets() []AssetID {
	ids := make([]AssetID, 0, len(r.supply))
	for id := range r.supply {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Encoded() < ids[j].Encoded() })
	return ids
}

// Holders returns the holders of an asset, sorted for deterministic
// iteration.
func (r *Registry) Holders(id AssetID) []string {
	held := r.balances[id]
	out := make([]string, 0, len(held))
	for h := range held {
		out = append(out, h)
	}
	sort.Strings(out)
	return out
}

// CanonicalBytes returns a deterministic serialization of the registry for
// state hashing: assets in encoded-ID order, holders in lexical order.
func (r *Registry) CanonicalBytes() []byte {
	buf := make([]byte, 0, 256)
	for _, id := range r.Assets() {
		buf = appendUint64LE(buf, id.Encoded())
		supply := r.supply[id].Bytes32()
		buf = append(buf, supply[:]...)
		for _, holder := range r.Holders(id) {
			buf = append(buf, byte(len(holder)))
			buf = append(buf, holder...)
			bal := r.balances[id][holder].Bytes32()
			buf = append(buf, bal[:]...)
		}
	}
	return buf
}

func appendUint64LE(buf []byte, v uint64) []byte {
	return append(buf,
		byte(v),
		byte(v>>8),
		byte(v>>16),
		byte(v>>24),
		byte(v>>32),
		byte(v>>40),
		byte(v>>48),
		byte(v>>56),
	)
}
