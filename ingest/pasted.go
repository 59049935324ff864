package ingest

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"
	"time"

	"rbnmap/spot"
)

// pastedMinTokens is one token per logical column (spotter, dx, distance,
// freq, mode, type, snr, speed, time, seen). Unit suffixes and date tails add
// tokens on top of this floor; lines below it cannot be a spot row.
const pastedMinTokens = 10

var monthsByName = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// PastedSource parses whitespace-delimited spot rows copied from the RBN spot
// search page. Several human-facing columns embed spaces (distance "1717 km",
// SNR "15 dB", speed "21 wpm", time "0917z 29 Aug"), so specific adjacent
// token groups are recombined by position instead of treating every token as
// its own field.
type PastedSource struct {
	// Now anchors relative timestamps; the zero value means time.Now.
	Now time.Time
}

// Parse processes each non-empty, non-header line independently. Lines with
// too few tokens or an unparseable structure are skipped and counted.
func (p *PastedSource) Parse(raw []byte) (Result, error) {
	var result Result
	now := p.clock()

	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || isPastedHeader(line) {
			continue
		}
		rec, reason := parsePastedLine(line, now)
		if rec == nil {
			result.skip(lineNo, reason)
			continue
		}
		result.Records = append(result.Records, rec)
	}
	if err := scanner.Err(); err != nil {
		return result, err
	}
	return result, nil
}

func (p *PastedSource) clock() time.Time {
	if p != nil && !p.Now.IsZero() {
		return p.Now.UTC()
	}
	return time.Now().UTC()
}

func isPastedHeader(line string) bool {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return false
	}
	switch fields[0] {
	case "de", "spotter", "callsign":
		return true
	}
	return false
}

func parsePastedLine(line string, now time.Time) (*spot.Record, string) {
	tokens := strings.Fields(line)
	if len(tokens) < pastedMinTokens {
		return nil, "too few tokens"
	}

	spotter := tokens[0]
	dxCall := tokens[1]
	if !spot.IsValidCallsign(spotter) || !spot.IsValidCallsign(dxCall) {
		return nil, "invalid callsign"
	}

	i := 2
	distance, hasDistance, i := takeUnitNumber(tokens, i, "km")
	if i+2 >= len(tokens) {
		return nil, "too few tokens after distance"
	}

	freq, err := strconv.ParseFloat(tokens[i], 64)
	freqOK := err == nil
	if !freqOK {
		freq = 0
	}
	i++

	mode := tokens[i]
	i++
	// Spot type column ("CQ", "BEACON", "DX"); not carried in the record.
	i++

	snr, hasSNR, i := takeUnitNumber(tokens, i, "db")
	speed, hasSpeed, i := takeUnitNumber(tokens, i, "wpm")

	when, i, ok := takePastedTime(tokens, i, now)
	if !ok {
		return nil, "unparseable time column"
	}

	seen := ""
	if i < len(tokens) {
		seen = strings.Join(tokens[i:], " ")
	}

	rec := spot.NewRecord(spotter, dxCall, freq, mode)
	if !freqOK {
		rec.Band = spot.BandUnknown
	}
	rec.SNR, rec.HasSNR = snr, hasSNR
	rec.SpeedWPM, rec.HasSpeed = speed, hasSpeed
	rec.DistanceKm, rec.HasDistance = distance, hasDistance
	rec.Time = when
	rec.Seen = seen
	return rec, ""
}

// takeUnitNumber reads one numeric column that sources store with or without
// a unit suffix: "1717 km" (two tokens), "1717km" (fused), or "1717" (bare).
// Coercion failure marks the field missing; the column's tokens are consumed
// either way.
func takeUnitNumber(tokens []string, i int, unit string) (value float64, ok bool, next int) {
	if i >= len(tokens) {
		return 0, false, i
	}
	tok := tokens[i]
	if fused, found := strings.CutSuffix(strings.ToLower(tok), unit); found && fused != "" {
		tok = strings.TrimSpace(fused)
	}
	v, err := strconv.ParseFloat(tok, 64)
	next = i + 1
	// A trailing unit token belongs to this column even when the value
	// failed to coerce ("- dB"), otherwise it derails the columns after it.
	if next < len(tokens) && strings.EqualFold(tokens[next], unit) {
		next++
	}
	if err != nil {
		return 0, false, next
	}
	return v, true, next
}

// takePastedTime reads the time group: "0917z" optionally followed by a
// "29 Aug" date tail. Date-less rows anchor to the reference day with the
// usual midnight-boundary adjustment; dated rows anchor to the reference
// year, rolling back a year when that would land in the future.
func takePastedTime(tokens []string, i int, now time.Time) (time.Time, int, bool) {
	if i >= len(tokens) {
		return time.Time{}, i, false
	}
	tok := strings.ToUpper(tokens[i])
	if len(tok) != 5 || !strings.HasSuffix(tok, "Z") {
		return time.Time{}, i, false
	}
	hour, err1 := strconv.Atoi(tok[0:2])
	minute, err2 := strconv.Atoi(tok[2:4])
	if err1 != nil || err2 != nil || hour > 23 || minute > 59 {
		return time.Time{}, i, false
	}
	next := i + 1

	if next+1 < len(tokens) {
		if day, err := strconv.Atoi(tokens[next]); err == nil && day >= 1 && day <= 31 {
			if month, ok := monthsByName[strings.ToLower(tokens[next+1])]; ok {
				when := time.Date(now.Year(), month, day, hour, minute, 0, 0, time.UTC)
				if when.Sub(now) > 24*time.Hour {
					when = when.AddDate(-1, 0, 0)
				}
				return when, next + 2, true
			}
		}
	}

	year, month, day := now.Date()
	when := time.Date(year, month, day, hour, minute, 0, 0, time.UTC)
	if when.Sub(now) > 12*time.Hour {
		when = when.AddDate(0, 0, -1)
	} else if now.Sub(when) > 12*time.Hour {
		when = when.AddDate(0, 0, 1)
	}
	return when, next, true
}
