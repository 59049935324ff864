package stats

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Tracker counts ingested, skipped, and suppressed lines per source plus
// per-band record counts. Counters live in sync.Map + atomic.Uint64 so
// concurrent sources never fight over a mutex.
type Tracker struct {
	sourceParsed  sync.Map // string -> *atomic.Uint64
	sourceSkipped sync.Map // string -> *atomic.Uint64
	bandCounts    sync.Map // string -> *atomic.Uint64
	suppressed    atomic.Uint64
	start         atomic.Int64
}

// NewTracker creates a tracker anchored at now.
func NewTracker() *Tracker {
	t := &Tracker{}
	t.start.Store(time.Now().UnixNano())
	return t
}

// AddParsed records successfully parsed rows for a source.
func (t *Tracker) AddParsed(source string, n int) {
	addCounter(&t.sourceParsed, normalizeKey(source), n)
}

// AddSkipped records skipped rows for a source.
func (t *Tracker) AddSkipped(source string, n int) {
	addCounter(&t.sourceSkipped, normalizeKey(source), n)
}

// AddSuppressed records dedup-suppressed spots.
func (t *Tracker) AddSuppressed(n int) {
	if n > 0 {
		t.suppressed.Add(uint64(n))
	}
}

// IncrementBand increases the count for a classified band.
func (t *Tracker) IncrementBand(band string) {
	addCounter(&t.bandCounts, normalizeKey(band), 1)
}

// ParsedCounts returns a copy of per-source parsed counts.
func (t *Tracker) ParsedCounts() map[string]uint64 { return snapshot(&t.sourceParsed) }

// SkippedCounts returns a copy of per-source skipped counts.
func (t *Tracker) SkippedCounts() map[string]uint64 { return snapshot(&t.sourceSkipped) }

// BandCounts returns a copy of per-band counts.
func (t *Tracker) BandCounts() map[string]uint64 { return snapshot(&t.bandCounts) }

// Suppressed returns the dedup suppression total.
func (t *Tracker) Suppressed() uint64 { return t.suppressed.Load() }

// Summary renders a single-line digest for periodic console output.
func (t *Tracker) Summary() string {
	parsed := t.ParsedCounts()
	skipped := t.SkippedCounts()
	sources := make([]string, 0, len(parsed))
	for source := range parsed {
		sources = append(sources, source)
	}
	sort.Strings(sources)

	var b strings.Builder
	elapsed := time.Since(time.Unix(0, t.start.Load())).Round(time.Second)
	fmt.Fprintf(&b, "uptime %s", elapsed)
	for _, source := range sources {
		fmt.Fprintf(&b, " | %s: %d parsed, %d skipped", source, parsed[source], skipped[source])
	}
	if n := t.Suppressed(); n > 0 {
		fmt.Fprintf(&b, " | %d duplicates suppressed", n)
	}
	return b.String()
}

func normalizeKey(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}

func addCounter(m *sync.Map, key string, n int) {
	if key == "" || n <= 0 {
		return
	}
	value, _ := m.LoadOrStore(key, &atomic.Uint64{})
	value.(*atomic.Uint64).Add(uint64(n))
}

func snapshot(m *sync.Map) map[string]uint64 {
	counts := make(map[string]uint64)
	m.Range(func(key, value any) bool {
		counts[key.(string)] = value.(*atomic.Uint64).Load()
		return true
	})
	return counts
}
