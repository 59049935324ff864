package archive

import (
	"path/filepath"
	"testing"
	"time"

	"rbnmap/spot"
)

func openTestWriter(t *testing.T) *Writer {
	t.Helper()
	w, err := Open(filepath.Join(t.TempDir(), "spots.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { w.Close() })
	return w
}

func testRecord(dx string, freq float64, at time.Time) *spot.Record {
	r := spot.NewRecord("W3OA", dx, freq, "CW")
	r.Time = at
	r.SNR = 12
	r.HasSNR = true
	r.SpeedWPM = 21
	r.HasSpeed = true
	return r
}

func TestWriteBatchAndRecent(t *testing.T) {
	w := openTestWriter(t)
	base := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	records := []*spot.Record{
		testRecord("K5XYZ", 14012.2, base),
		testRecord("K5XYZ", 7021.0, base.Add(time.Minute)),
		testRecord("N0CALL", 14012.2, base.Add(2*time.Minute)),
	}
	if err := w.WriteBatch(records); err != nil {
		t.Fatal(err)
	}

	n, err := w.Count()
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("count=%d, want 3", n)
	}

	got, err := w.Recent(Query{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("recent=%d, want 3", len(got))
	}
	if got[0].DXCall != "N0CALL" {
		t.Fatalf("expected newest-first ordering, got %q first", got[0].DXCall)
	}
	if !got[0].HasSNR || got[0].SNR != 12 {
		t.Fatalf("SNR fields not round-tripped: %+v", got[0])
	}
	if got[0].HasDistance {
		t.Fatal("missing distance must stay missing after round trip")
	}
}

func TestRecentFilters(t *testing.T) {
	w := openTestWriter(t)
	base := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	records := []*spot.Record{
		testRecord("K5XYZ", 14012.2, base),
		testRecord("K5XYZ", 7021.0, base.Add(time.Minute)),
		testRecord("N0CALL", 14012.2, base.Add(2*time.Minute)),
	}
	if err := w.WriteBatch(records); err != nil {
		t.Fatal(err)
	}

	got, err := w.Recent(Query{Band: "20m", DXCall: "k5xyz"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Band != "20m" || got[0].DXCall != "K5XYZ" {
		t.Fatalf("filtered = %v", got)
	}

	got, err = w.Recent(Query{Since: base.Add(90 * time.Second)})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].DXCall != "N0CALL" {
		t.Fatalf("since filter = %v", got)
	}

	got, err = w.Recent(Query{Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("limit=2 returned %d", len(got))
	}
}

func TestWriteBatchEmpty(t *testing.T) {
	w := openTestWriter(t)
	if err := w.WriteBatch(nil); err != nil {
		t.Fatal(err)
	}
}
