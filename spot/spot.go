// Package spot defines the normalized spot record produced by ingestion and
// consumed by filtering, archival, and aggregation, plus the frequency-to-band
// classification table and callsign helpers shared across the pipeline.
package spot

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/zeebo/xxh3"
)

// Record is one normalized spot: a report that Spotter heard DXCall. Records
// are immutable after creation; Band is derived from FrequencyKHz once, at
// creation, and never recomputed downstream. A Record never carries a raw
// grid locator. The spotter is resolved to coordinates later through the
// spotter directory.
type Record struct {
	Spotter      string    // receiving station callsign (DE)
	DXCall       string    // reported station callsign (DX)
	FrequencyKHz float64   // 0 when the source value did not parse
	Band         string    // classified band name, or BandUnknown
	Mode         string    // e.g. "CW", "FT8"
	SNR          float64   // dB, meaningful only when HasSNR
	HasSNR       bool
	SpeedWPM     float64 // transmission speed, meaningful only when HasSpeed
	HasSpeed     bool
	DistanceKm   float64 // source-reported distance, meaningful only when HasDistance
	HasDistance  bool
	Time         time.Time // UTC; date-only for archive rows without a time part
	Seen         string    // raw "seen" annotation from the source, verbatim
}

// NewRecord builds a record with normalized callsigns and the band classified
// from the frequency. A non-positive or unclassifiable frequency yields
// BandUnknown rather than an error.
func NewRecord(spotter, dxCall string, freqKHz float64, mode string) *Record {
	return &Record{
		Spotter:      NormalizeCallsign(spotter),
		DXCall:       NormalizeCallsign(dxCall),
		FrequencyKHz: freqKHz,
		Band:         FreqToBand(freqKHz),
		Mode:         NormalizeMode(mode),
	}
}

// Hash32 returns a 32-bit dedup hash over a fixed-layout buffer covering the
// minute-truncated time, whole-kHz frequency, and both callsigns fixed-width.
// Little-endian keeps the value deterministic across platforms.
func (r *Record) Hash32() uint32 {
	var buf [36]byte
	t := r.Time.Truncate(time.Minute).Unix()
	binary.LittleEndian.PutUint64(buf[0:8], uint64(t))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(r.FrequencyKHz))
	writeFixedCall(buf[12:24], r.Spotter)
	writeFixedCall(buf[24:36], r.DXCall)
	return uint32(xxh3.Hash(buf[:]))
}

// writeFixedCall assumes the call is already normalized ASCII.
func writeFixedCall(dst []byte, call string) {
	const maxLen = 12
	n := 0
	for i := 0; i < len(call) && n < maxLen; i++ {
		dst[n] = call[i]
		n++
	}
	for n < maxLen {
		dst[n] = 0
		n++
	}
}

// String returns a human-readable one-line representation.
func (r *Record) String() string {
	snr := "no SNR"
	if r.HasSNR {
		snr = fmt.Sprintf("%.0f dB", r.SNR)
	}
	return fmt.Sprintf("[%s] %s heard %s on %.1f kHz (%s %s, %s)",
		r.Time.Format("2006-01-02 15:04"),
		r.Spotter,
		r.DXCall,
		r.FrequencyKHz,
		r.Band,
		r.Mode,
		snr)
}
