package dedup

import (
	"testing"
	"time"

	"rbnmap/spot"
)

func makeRecord(spotter, dx string, freq float64, at time.Time, snr float64) *spot.Record {
	r := spot.NewRecord(spotter, dx, freq, "CW")
	r.Time = at
	r.SNR = snr
	r.HasSNR = true
	return r
}

func TestDeduplicateSuppressesWithinWindow(t *testing.T) {
	base := time.Date(2026, 8, 29, 9, 17, 0, 0, time.UTC)
	records := []*spot.Record{
		makeRecord("W3OA", "K5XYZ", 14012.2, base, 12),
		makeRecord("W3OA", "K5XYZ", 14012.4, base.Add(10*time.Second), 9),
		makeRecord("VE3EID", "K5XYZ", 14012.2, base, 7),
	}

	kept, suppressed := New(DefaultWindow, false).Deduplicate(records)
	if len(kept) != 2 || suppressed != 1 {
		t.Fatalf("kept=%d suppressed=%d, want 2/1", len(kept), suppressed)
	}
	if kept[0].SNR != 12 {
		t.Fatal("without preferStronger the first representative is kept")
	}
}

func TestDeduplicatePrefersStrongerSNR(t *testing.T) {
	base := time.Date(2026, 8, 29, 9, 17, 0, 0, time.UTC)
	records := []*spot.Record{
		makeRecord("W3OA", "K5XYZ", 14012.2, base, 5),
		makeRecord("W3OA", "K5XYZ", 14012.2, base.Add(30*time.Second), 18),
	}

	kept, suppressed := New(DefaultWindow, true).Deduplicate(records)
	if len(kept) != 1 || suppressed != 1 {
		t.Fatalf("kept=%d suppressed=%d, want 1/1", len(kept), suppressed)
	}
	if kept[0].SNR != 18 {
		t.Fatalf("snr=%v, want the stronger 18 dB representative", kept[0].SNR)
	}
}

func TestDeduplicateOutsideWindowKeepsBoth(t *testing.T) {
	base := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	records := []*spot.Record{
		makeRecord("W3OA", "K5XYZ", 14012.2, base, 5),
		makeRecord("W3OA", "K5XYZ", 14012.2, base.Add(30*time.Minute), 5),
	}

	kept, suppressed := New(DefaultWindow, false).Deduplicate(records)
	if len(kept) != 2 || suppressed != 0 {
		t.Fatalf("kept=%d suppressed=%d, want 2/0", len(kept), suppressed)
	}
}

func TestDeduplicateZeroWindowDisabled(t *testing.T) {
	base := time.Date(2026, 8, 29, 9, 17, 0, 0, time.UTC)
	records := []*spot.Record{
		makeRecord("W3OA", "K5XYZ", 14012.2, base, 5),
		makeRecord("W3OA", "K5XYZ", 14012.2, base, 5),
	}
	kept, suppressed := New(0, false).Deduplicate(records)
	if len(kept) != 2 || suppressed != 0 {
		t.Fatalf("kept=%d suppressed=%d, want passthrough", len(kept), suppressed)
	}
}
