// Package stats computes summary statistics over a filtered set of spot
// records and tracks per-source ingestion counters.
package stats

import (
	"math"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"rbnmap/directory"
	"rbnmap/locator"
	"rbnmap/spot"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const earthRadiusKm = 6371.0

// Statistics summarizes an aggregation run. MeanSNR and MaxSNR are NaN when
// no record carried an SNR; callers must check rather than assume zero.
type Statistics struct {
	Count         int            `json:"count"`
	MeanSNR       float64        `json:"mean_snr"`
	MaxSNR        float64        `json:"max_snr"`
	BandCounts    map[string]int `json:"band_counts"`
	MaxDistanceKm float64        `json:"max_distance_km"`
	Resolved      int            `json:"resolved_spotters"`
}

// Aggregate computes statistics over already-filtered records. Records carry
// their band from ingestion and are never re-classified here. The maximum
// great-circle distance covers only records whose spotter resolves in the
// directory; unresolved spotters do not participate in the distance
// computation at all.
func Aggregate(records []*spot.Record, ref locator.Coordinate, dir *directory.Directory) Statistics {
	stats := Statistics{
		MeanSNR:    math.NaN(),
		MaxSNR:     math.NaN(),
		BandCounts: make(map[string]int),
	}

	snrSum := 0.0
	snrCount := 0
	for _, rec := range records {
		stats.Count++
		if rec.HasSNR {
			snrSum += rec.SNR
			snrCount++
			if math.IsNaN(stats.MaxSNR) || rec.SNR > stats.MaxSNR {
				stats.MaxSNR = rec.SNR
			}
		}
		if rec.Band != spot.BandUnknown && rec.Band != "" {
			stats.BandCounts[rec.Band]++
		}
		if coord, ok := dir.Lookup(rec.Spotter); ok {
			stats.Resolved++
			if dist := HaversineKm(ref, coord); dist > stats.MaxDistanceKm {
				stats.MaxDistanceKm = dist
			}
		}
	}
	if snrCount > 0 {
		stats.MeanSNR = snrSum / float64(snrCount)
	}
	return stats
}

// JSON renders the statistics for machine consumption. NaN SNR values are
// emitted as null.
func (s Statistics) JSON() ([]byte, error) {
	type alias Statistics
	out := struct {
		alias
		MeanSNR *float64 `json:"mean_snr"`
		MaxSNR  *float64 `json:"max_snr"`
	}{alias: alias(s)}
	if !math.IsNaN(s.MeanSNR) {
		out.MeanSNR = &s.MeanSNR
	}
	if !math.IsNaN(s.MaxSNR) {
		out.MaxSNR = &s.MaxSNR
	}
	return json.Marshal(out)
}

// HaversineKm returns the great-circle distance between two coordinates.
func HaversineKm(a, b locator.Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}

// Filter selects records by DX call, band, and minimum timestamp. Zero-value
// fields match everything.
type Filter struct {
	DXCall string
	Band   string
	Since  time.Time
}

// Apply returns the records matching every set criterion, preserving order.
func (f Filter) Apply(records []*spot.Record) []*spot.Record {
	dxCall := spot.NormalizeCallsign(f.DXCall)
	band := spot.NormalizeBand(f.Band)
	out := make([]*spot.Record, 0, len(records))
	for _, rec := range records {
		if dxCall != "" && rec.DXCall != dxCall {
			continue
		}
		if band != "" && !strings.EqualFold(spot.NormalizeBand(rec.Band), band) {
			continue
		}
		if !f.Since.IsZero() && rec.Time.Before(f.Since) {
			continue
		}
		out = append(out, rec)
	}
	return out
}
