// Package dedup suppresses duplicate spots within a time window. Ingestion
// feeds every parsed batch through here before archival and aggregation.
package dedup

import (
	"time"

	"rbnmap/spot"
)

// DefaultWindow matches the minute-granularity of the dedup hash: two reports
// of the same station on the same whole kHz inside the window are one spot.
const DefaultWindow = 5 * time.Minute

type cachedEntry struct {
	when time.Time
	idx  int
	snr  float64
	has  bool
}

// Deduplicator collapses duplicates keyed on the spot hash. A zero or
// negative window disables suppression while keeping the pipeline topology
// intact.
type Deduplicator struct {
	window         time.Duration
	preferStronger bool
}

// New returns a deduplicator. When preferStronger is set, a duplicate with a
// higher SNR replaces the kept representative in place.
func New(window time.Duration, preferStronger bool) *Deduplicator {
	return &Deduplicator{window: window, preferStronger: preferStronger}
}

// Deduplicate returns the kept records in input order plus the number of
// suppressed duplicates. The input slice is not modified.
func (d *Deduplicator) Deduplicate(records []*spot.Record) (kept []*spot.Record, suppressed int) {
	if d == nil || d.window <= 0 {
		return records, 0
	}
	kept = make([]*spot.Record, 0, len(records))
	seen := make(map[uint32]cachedEntry, len(records))
	for _, rec := range records {
		hash := rec.Hash32()
		entry, dup := seen[hash]
		if dup && absDuration(rec.Time.Sub(entry.when)) <= d.window {
			suppressed++
			if d.preferStronger && rec.HasSNR && (!entry.has || rec.SNR > entry.snr) {
				kept[entry.idx] = rec
				entry.snr = rec.SNR
				entry.has = true
				seen[hash] = entry
			}
			continue
		}
		seen[hash] = cachedEntry{when: rec.Time, idx: len(kept), snr: rec.SNR, has: rec.HasSNR}
		kept = append(kept, rec)
	}
	return kept, suppressed
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
