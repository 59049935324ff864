package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"rbnmap/spot"
)

// csvTimeLayouts covers the archive export variants: full date+time and
// date-only rows.
var csvTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// CSVSource parses RBN history archive exports. Column names are remapped to
// the canonical schema via the header row: "callsign" is the receiving
// station (our spotter), "db" is the SNR, "freq" the frequency in kHz.
// Numeric coercion failures mark the field missing rather than dropping the
// row; an unparseable frequency falls back to the source band column when it
// names a known band, otherwise the row classifies as unknown.
type CSVSource struct{}

// Parse reads the whole document. A missing or unrecognizable header is a
// whole-batch failure; individual bad rows are skipped and counted.
func (CSVSource) Parse(raw []byte) (Result, error) {
	var result Result

	reader := csv.NewReader(bytes.NewReader(raw))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return result, ErrNoEntries
		}
		return result, err
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := cols["callsign"]; !ok {
		return result, ErrNoEntries
	}

	lineNo := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		lineNo++
		if err != nil {
			result.skip(lineNo, "malformed csv row")
			continue
		}
		rec, reason := parseCSVRow(row, cols)
		if rec == nil {
			result.skip(lineNo, reason)
			continue
		}
		result.Records = append(result.Records, rec)
	}
	return result, nil
}

func parseCSVRow(row []string, cols map[string]int) (*spot.Record, string) {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	spotter := field("callsign")
	dxCall := field("dx")
	if spotter == "" || dxCall == "" {
		return nil, "missing callsign"
	}
	if !spot.IsValidCallsign(spotter) || !spot.IsValidCallsign(dxCall) {
		return nil, "invalid callsign"
	}

	freq, freqErr := strconv.ParseFloat(field("freq"), 64)
	if freqErr != nil {
		freq = 0
	}

	rec := spot.NewRecord(spotter, dxCall, freq, field("mode"))
	if freqErr != nil {
		rec.Band = spot.BandUnknown
		if sourceBand := field("band"); spot.IsValidBand(sourceBand) {
			rec.Band = canonicalBandName(sourceBand)
		}
	}

	if v, err := strconv.ParseFloat(field("db"), 64); err == nil {
		rec.SNR, rec.HasSNR = v, true
	}
	if v, err := strconv.ParseFloat(field("speed"), 64); err == nil && v > 0 {
		rec.SpeedWPM, rec.HasSpeed = v, true
	}
	if when, ok := parseCSVTime(field("date")); ok {
		rec.Time = when
	}
	return rec, ""
}

func parseCSVTime(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range csvTimeLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// canonicalBandName maps a source band label to the canonical table name.
func canonicalBandName(label string) string {
	normalized := spot.NormalizeBand(label)
	for _, name := range spot.SupportedBandNames() {
		if spot.NormalizeBand(name) == normalized {
			return name
		}
	}
	return spot.BandUnknown
}
