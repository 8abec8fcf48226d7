package pool

import (
	"sort"

	fp "github.com/delvtech/hyperdrive-sub006/internal/fixedpoint"
)

// Checkpoint is one time bucket of the checkpoint ledger. The share price is
// frozen when the bucket opens; the volumes accumulate while trades land in
// it and drain as positions close.
type Checkpoint struct {
	Time            uint64        `json:"time"`
	SharePrice      fp.FixedPoint `json:"share_price"`
	LongBaseVolume  fp.FixedPoint `json:"long_base_volume"`
	ShortBaseVolume fp.FixedPoint `json:"short_base_volume"`
}

// CheckpointLedger stores the initialized checkpoints of one pool, keyed by
// bucket time.
type CheckpointLedger struct {
	duration    uint64
	checkpoints map[uint64]*Checkpoint
}

// NewCheckpointLedger returns an empty ledger with the given bucket size.
func NewCheckpointLedger(duration uint64) *CheckpointLedger {
	return &CheckpointLedger{
		duration:    duration,
		checkpoints: make(map[uint64]*Checkpoint),
	}
}

// Get returns the checkpoint at the given bucket time, or nil.
func (l *CheckpointLedger) Get(t uint64) *Checkpoint {
	return l.checkpoints[t]
}

// Apply initializes the bucket at time t with the given share price and
// returns it. Re-applying an initialized bucket is a no-op that returns the
// stored checkpoint, so callers can use it as ensure-exists.
func (l *CheckpointLedger) Apply(t uint64, sharePrice fp.FixedPoint) (*Checkpoint, bool) {
	if cp, ok := l.checkpoints[t]; ok {
		return cp, false
	}
	cp := &Checkpoint{Time: t, SharePrice: sharePrice}
	l.checkpoints[t] = cp
	return cp, true
}

// MissingSince returns the uninitialized bucket times in (from, to], oldest
// first, so a catch-up pass can backfill them in order.
func (l *CheckpointLedger) MissingSince(from, to uint64) []uint64 {
	from -= from % l.duration
	to -= to % l.duration
	var missing []uint64
	for t := from; t <= to; t += l.duration {
		if _, ok := l.checkpoints[t]; !ok {
			missing = append(missing, t)
		}
	}
	return missing
}

// SharePriceAt returns the stored share price for the bucket covering t, or
// the provided fallback when the bucket was never initialized.
func (l *CheckpointLedger) SharePriceAt(t uint64, fallback fp.FixedPoint) fp.FixedPoint {
	if cp, ok := l.checkpoints[t-t%l.duration]; ok {
		return cp.SharePrice
	}
	return fallback
}

// Times returns the initialized bucket times in ascending order.
func (l *CheckpointLedger) Times() []uint64 {
	out := make([]uint64, 0, len(l.checkpoints))
	for t := range l.checkpoints {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Prune drops buckets whose volumes have fully unwound and whose time sits
// before the horizon. Returns the number of buckets removed.
func (l *CheckpointLedger) Prune(horizon uint64) int {
	removed := 0
	for t, cp := range l.checkpoints {
		if t < horizon && cp.LongBaseVolume.IsZero() && cp.ShortBaseVolume.IsZero() {
			delete(l.checkpoints, t)
			removed++
		}
	}
	return removed
}

// CanonicalBytes returns a deterministic serialization for state hashing.
func (l *CheckpointLedger) CanonicalBytes() []byte {
	buf := make([]byte, 0, 128)
	for _, t := range l.Times() {
		cp := l.checkpoints[t]
		buf = appendUint64LE(buf, t)
		price := cp.SharePrice.Bytes32()
		buf = append(buf, price[:]...)
		long := cp.LongBaseVolume.Bytes32()
		buf = append(buf, long[:]...)
		short := cp.ShortBaseVolume.Bytes32()
		buf = append(buf, short[:]...)
	}
	return buf
}
