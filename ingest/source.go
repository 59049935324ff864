// Package ingest turns raw pasted text, CSV archive exports, and scraped HTML
// into normalized spot records and spotter roster pairs. Every source follows
// the same recovery policy: a malformed line or row is skipped and counted,
// never fatal to the batch. Only a whole-batch structural failure (no rows
// from any extraction stage) surfaces as an error.
package ingest

import (
	"errors"
	"fmt"

	"rbnmap/spot"
)

// ErrNoEntries is returned when an extraction produced zero rows after every
// fallback stage. Callers interpret it as an empty-result condition, usually
// an upstream format change.
var ErrNoEntries = errors.New("ingest: no entries extracted")

// Pair is one roster row: a spotter callsign and its raw grid locator. The
// locator is converted to a coordinate by the directory builder, not here.
type Pair struct {
	Callsign string
	Locator  string
}

// Result carries the successfully parsed values together with the per-line
// skip count. Spot sources fill Records; roster sources fill Pairs.
type Result struct {
	Records     []*spot.Record
	Pairs       []Pair
	Skipped     int
	SkipReasons []string
}

func (r *Result) skip(line int, reason string) {
	r.Skipped++
	r.SkipReasons = append(r.SkipReasons, fmt.Sprintf("line %d: %s", line, reason))
}

// Source is the single adapter capability all input shapes implement. The
// caller selects the concrete variant based on the known input shape.
type Source interface {
	Parse(raw []byte) (Result, error)
}
