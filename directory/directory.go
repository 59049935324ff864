// Package directory builds and queries the canonical spotter directory: the
// mapping from spotter callsign to resolved coordinate used to place every
// spot's receiving station. A directory is an immutable snapshot; merging in
// fresh roster data produces a new snapshot instead of mutating the old one,
// so concurrent readers never observe a partially updated mapping.
package directory

import (
	"log"
	"sort"
	"strings"

	lev "github.com/agnivade/levenshtein"

	"rbnmap/ingest"
	"rbnmap/locator"
)

// Entry is one resolved directory row.
type Entry struct {
	Callsign string
	Coord    locator.Coordinate
}

// Directory is a read-only callsign to coordinate snapshot.
type Directory struct {
	entries map[string]locator.Coordinate
}

// Build converts roster pairs into a directory. Locator conversion failures
// skip the single entry, never the batch. Duplicate callsigns resolve
// last-write-wins: the entry appearing later in the input sequence models the
// freshest observation.
func Build(pairs []ingest.Pair) *Directory {
	entries := make(map[string]locator.Coordinate, len(pairs))
	skipped := 0
	for _, pair := range pairs {
		call := strings.ToUpper(strings.TrimSpace(pair.Callsign))
		if call == "" {
			skipped++
			continue
		}
		coord, err := locator.Decode(pair.Locator)
		if err != nil {
			skipped++
			continue
		}
		entries[call] = coord
	}
	if skipped > 0 {
		log.Printf("directory: skipped %d of %d roster entries", skipped, len(pairs))
	}
	return &Directory{entries: entries}
}

// FromEntries builds a directory from already-resolved rows, last-write-wins
// on duplicate callsigns.
func FromEntries(entries []Entry) *Directory {
	m := make(map[string]locator.Coordinate, len(entries))
	for _, e := range entries {
		call := strings.ToUpper(strings.TrimSpace(e.Callsign))
		if call == "" {
			continue
		}
		m[call] = e.Coord
	}
	return &Directory{entries: m}
}

// Merge builds a fresh snapshot from old and new: old entries first, new
// entries appended, so new data always overrides stale data for the same
// callsign. Either argument may be nil.
func Merge(old, fresh *Directory) *Directory {
	merged := make(map[string]locator.Coordinate, old.Len()+fresh.Len())
	for _, d := range []*Directory{old, fresh} {
		if d == nil {
			continue
		}
		for call, coord := range d.entries {
			merged[call] = coord
		}
	}
	return &Directory{entries: merged}
}

// Lookup resolves a spotter callsign to its coordinate.
func (d *Directory) Lookup(call string) (locator.Coordinate, bool) {
	if d == nil {
		return locator.Coordinate{}, false
	}
	coord, ok := d.entries[strings.ToUpper(strings.TrimSpace(call))]
	return coord, ok
}

// Len returns the number of unique callsigns.
func (d *Directory) Len() int {
	if d == nil {
		return 0
	}
	return len(d.entries)
}

// Calls returns the callsigns sorted, for stable output.
func (d *Directory) Calls() []string {
	if d == nil {
		return nil
	}
	calls := make([]string, 0, len(d.entries))
	for call := range d.entries {
		calls = append(calls, call)
	}
	sort.Strings(calls)
	return calls
}

// Entries returns the rows sorted by callsign.
func (d *Directory) Entries() []Entry {
	calls := d.Calls()
	entries := make([]Entry, 0, len(calls))
	for _, call := range calls {
		entries = append(entries, Entry{Callsign: call, Coord: d.entries[call]})
	}
	return entries
}

// Nearest suggests the closest known callsign within maxDist edit distance,
// for diagnosing spotters that fail to resolve because of roster typos. Ties
// break toward the lexicographically smaller callsign.
func (d *Directory) Nearest(call string, maxDist int) (string, bool) {
	if d == nil || maxDist <= 0 {
		return "", false
	}
	target := strings.ToUpper(strings.TrimSpace(call))
	if target == "" {
		return "", false
	}
	best := ""
	bestDist := maxDist + 1
	for _, candidate := range d.Calls() {
		dist := lev.ComputeDistance(target, candidate)
		if dist < bestDist {
			best = candidate
			bestDist = dist
		}
	}
	if bestDist > maxDist {
		return "", false
	}
	return best, true
}
