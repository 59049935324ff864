package ingest

import (
	"testing"
	"time"

	"rbnmap/spot"
)

var pastedNow = time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

func TestPastedSourceParsesFullRow(t *testing.T) {
	raw := []byte("de\tdx\tdistance\tfreq\tmode\ttype\tsnr\tspeed\ttime\tseen\n" +
		"W3OA\tK5XYZ\t1717 km\t14012.2\tCW\tCQ\t15 dB\t21 wpm\t0917z 29 Aug\tfirst\n")

	result, err := (&PastedSource{Now: pastedNow}).Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Records) != 1 || result.Skipped != 0 {
		t.Fatalf("records=%d skipped=%d, want 1/0", len(result.Records), result.Skipped)
	}
	r := result.Records[0]
	if r.Spotter != "W3OA" || r.DXCall != "K5XYZ" {
		t.Fatalf("calls = %q/%q", r.Spotter, r.DXCall)
	}
	if r.FrequencyKHz != 14012.2 || r.Band != "20m" {
		t.Fatalf("freq=%v band=%q", r.FrequencyKHz, r.Band)
	}
	if !r.HasSNR || r.SNR != 15 {
		t.Fatalf("snr=%v has=%v, want 15 dB present", r.SNR, r.HasSNR)
	}
	if !r.HasSpeed || r.SpeedWPM != 21 {
		t.Fatalf("speed=%v has=%v, want 21 wpm present", r.SpeedWPM, r.HasSpeed)
	}
	if !r.HasDistance || r.DistanceKm != 1717 {
		t.Fatalf("distance=%v has=%v, want 1717 km present", r.DistanceKm, r.HasDistance)
	}
	want := time.Date(2026, 8, 29, 9, 17, 0, 0, time.UTC)
	if !r.Time.Equal(want) {
		t.Fatalf("time=%v, want %v", r.Time, want)
	}
	if r.Seen != "first" {
		t.Fatalf("seen=%q", r.Seen)
	}
}

func TestPastedSourceSkipsShortLine(t *testing.T) {
	raw := []byte("W3OA\tK5XYZ\t1717 km\t14012.2\tCW\tCQ\t15 dB\t21 wpm\t0917z 29 Aug\tonline\n" +
		"K1TTT\tK5XYZ\t900 km\n")

	result, err := (&PastedSource{Now: pastedNow}).Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Records) != 1 {
		t.Fatalf("records=%d, want 1", len(result.Records))
	}
	if result.Skipped != 1 || len(result.SkipReasons) != 1 {
		t.Fatalf("skipped=%d reasons=%v, want exactly one skip", result.Skipped, result.SkipReasons)
	}
}

func TestPastedSourceUnitlessTokens(t *testing.T) {
	// Some observed inputs store distance/snr/speed without unit suffixes and
	// the time without a date tail.
	raw := []byte("VE3EID\tK5XYZ\t512\t7021.0\tCW\tCQ\t9\t18\t0432z\tonline\n")

	result, err := (&PastedSource{Now: pastedNow}).Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Records) != 1 {
		t.Fatalf("records=%d skipped=%v, want 1", len(result.Records), result.SkipReasons)
	}
	r := result.Records[0]
	if !r.HasSNR || r.SNR != 9 || !r.HasSpeed || r.SpeedWPM != 18 || !r.HasDistance || r.DistanceKm != 512 {
		t.Fatalf("numeric groups misparsed: %+v", r)
	}
	want := time.Date(2026, 8, 29, 4, 32, 0, 0, time.UTC)
	if !r.Time.Equal(want) {
		t.Fatalf("time=%v, want %v", r.Time, want)
	}
	if r.Band != "40m" {
		t.Fatalf("band=%q, want 40m", r.Band)
	}
}

func TestPastedSourceBadFrequencyKeepsRowUnknownBand(t *testing.T) {
	raw := []byte("W3OA\tK5XYZ\t1717 km\tbogus\tCW\tCQ\t15 dB\t21 wpm\t0917z 29 Aug\tonline\n")

	result, err := (&PastedSource{Now: pastedNow}).Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Records) != 1 {
		t.Fatalf("records=%d, want 1 (bad frequency must not drop the row)", len(result.Records))
	}
	if result.Records[0].Band != spot.BandUnknown {
		t.Fatalf("band=%q, want %q", result.Records[0].Band, spot.BandUnknown)
	}
}

func TestPastedSourceMissingValueWithUnitKeepsRow(t *testing.T) {
	// A missing SNR is sometimes written as "- dB": the placeholder fails
	// numeric coercion but its unit token still belongs to that column and
	// must not shift the time column.
	raw := []byte("W3OA\tK5XYZ\t1717 km\t14012.2\tCW\tCQ\t- dB\t21 wpm\t0917z 29 Aug\tonline\n")

	result, err := (&PastedSource{Now: pastedNow}).Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Records) != 1 || result.Skipped != 0 {
		t.Fatalf("records=%d skipped=%v, want 1/none", len(result.Records), result.SkipReasons)
	}
	r := result.Records[0]
	if r.HasSNR {
		t.Fatalf("snr=%v, want missing", r.SNR)
	}
	if !r.HasSpeed || r.SpeedWPM != 21 {
		t.Fatalf("speed=%v has=%v, want 21 wpm present", r.SpeedWPM, r.HasSpeed)
	}
	want := time.Date(2026, 8, 29, 9, 17, 0, 0, time.UTC)
	if !r.Time.Equal(want) {
		t.Fatalf("time=%v, want %v", r.Time, want)
	}
}

func TestPastedSourceDatedRowInFutureRollsBackYear(t *testing.T) {
	// Reference time in January; a "30 Dec" row is from the previous year.
	now := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	raw := []byte("W3OA\tK5XYZ\t100 km\t14012.2\tCW\tCQ\t5 dB\t20 wpm\t2310z 30 Dec\tonline\n")

	result, err := (&PastedSource{Now: now}).Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Records) != 1 {
		t.Fatalf("records=%d, want 1", len(result.Records))
	}
	want := time.Date(2025, 12, 30, 23, 10, 0, 0, time.UTC)
	if !result.Records[0].Time.Equal(want) {
		t.Fatalf("time=%v, want %v", result.Records[0].Time, want)
	}
}
