package stats

import (
	"strings"
	"testing"
)

func TestTrackerCounts(t *testing.T) {
	tr := NewTracker()
	tr.AddParsed("pasted", 10)
	tr.AddParsed("pasted", 5)
	tr.AddSkipped("pasted", 2)
	tr.AddParsed("csv", 100)
	tr.AddSuppressed(3)
	tr.IncrementBand("20m")
	tr.IncrementBand("20m")
	tr.IncrementBand("40m")

	parsed := tr.ParsedCounts()
	if parsed["PASTED"] != 15 || parsed["CSV"] != 100 {
		t.Fatalf("parsed = %v", parsed)
	}
	if tr.SkippedCounts()["PASTED"] != 2 {
		t.Fatalf("skipped = %v", tr.SkippedCounts())
	}
	if tr.Suppressed() != 3 {
		t.Fatalf("suppressed = %d", tr.Suppressed())
	}
	bands := tr.BandCounts()
	if bands["20M"] != 2 || bands["40M"] != 1 {
		t.Fatalf("bands = %v", bands)
	}
}

func TestTrackerSummary(t *testing.T) {
	tr := NewTracker()
	tr.AddParsed("csv", 7)
	tr.AddSkipped("csv", 1)
	tr.AddSuppressed(2)

	summary := tr.Summary()
	if !strings.Contains(summary, "CSV: 7 parsed, 1 skipped") {
		t.Fatalf("summary = %q", summary)
	}
	if !strings.Contains(summary, "2 duplicates suppressed") {
		t.Fatalf("summary = %q", summary)
	}
}

func TestTrackerIgnoresEmptyAndNonPositive(t *testing.T) {
	tr := NewTracker()
	tr.AddParsed("", 5)
	tr.AddParsed("csv", 0)
	tr.AddSuppressed(-1)
	if len(tr.ParsedCounts()) != 0 || tr.Suppressed() != 0 {
		t.Fatal("empty keys and non-positive increments must be ignored")
	}
}
