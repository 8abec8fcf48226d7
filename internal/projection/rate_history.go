package projection

// RateHistoryEntry is one observation of a pool's fixed rate.
type RateHistoryEntry struct {
	PoolID     string
	Sequence   int64
	Timestamp  int64
	SpotRate   string
	SharePrice string
}

// RateHistoryProjection maintains an in-memory fixed-rate series for quick
// charting queries without a DB round trip. The durable copy lives in
// projections.rate_history.
type RateHistoryProjection struct {
	entries []RateHistoryEntry
}

func NewRateHistoryProjection() *RateHistoryProjection {
	return &RateHistoryProjection{
		entries: make([]RateHistoryEntry, 0),
	}
}

// AddEntry records a rate observation.
func (p *RateHistoryProjection) AddEntry(entry RateHistoryEntry) {
	p.entries = append(p.entries, entry)
}

// QueryByPool returns the most recent observations for a pool, newest first.
func (p *RateHistoryProjection) QueryByPool(poolID string, limit int) []RateHistoryEntry {
	result := make([]RateHistoryEntry, 0)

	for i := len(p.entries) - 1; i >= 0 && len(result) < limit; i-- {
		if p.entries[i].PoolID == poolID {
			result = append(result, p.entries[i])
		}
	}

	return result
}
