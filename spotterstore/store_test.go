package spotterstore

import (
	"path/filepath"
	"testing"
	"time"

	"rbnmap/locator"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "spotters"), Options{})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertGetRoundTrip(t *testing.T) {
	s := openTestStore(t)
	coord := locator.Coordinate{Lat: 41.729, Lon: -72.708}
	when := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)

	err := s.UpsertBatch([]Entry{{Callsign: "w1aw", Coord: coord, UpdatedAt: when}})
	if err != nil {
		t.Fatal(err)
	}

	entry, ok, err := s.Get("W1AW")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("W1AW should be stored")
	}
	if entry.Coord != coord {
		t.Fatalf("coord = %v, want %v", entry.Coord, coord)
	}
	if !entry.UpdatedAt.Equal(when) {
		t.Fatalf("updatedAt = %v, want %v", entry.UpdatedAt, when)
	}
}

func TestUpsertLastWriteWins(t *testing.T) {
	s := openTestStore(t)
	old := locator.Coordinate{Lat: 41.729, Lon: -72.708}
	fresh := locator.Coordinate{Lat: 40.5, Lon: -75.0}

	err := s.UpsertBatch([]Entry{
		{Callsign: "W1AW", Coord: old},
		{Callsign: "W1AW", Coord: fresh},
	})
	if err != nil {
		t.Fatal(err)
	}

	entry, ok, err := s.Get("W1AW")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if entry.Coord != fresh {
		t.Fatalf("coord = %v, want freshest %v", entry.Coord, fresh)
	}
	n, err := s.Count()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("count=%d, want 1", n)
	}
}

func TestSnapshot(t *testing.T) {
	s := openTestStore(t)
	err := s.UpsertBatch([]Entry{
		{Callsign: "W3OA", Coord: locator.Coordinate{Lat: 35.3, Lon: -80.6}},
		{Callsign: "ZL3X", Coord: locator.Coordinate{Lat: -43.6, Lon: 172.7}},
	})
	if err != nil {
		t.Fatal(err)
	}

	dir, err := s.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	if dir.Len() != 2 {
		t.Fatalf("snapshot len=%d, want 2", dir.Len())
	}
	if _, ok := dir.Lookup("ZL3X"); !ok {
		t.Fatal("ZL3X missing from snapshot")
	}
}

func TestPurgeOlderThan(t *testing.T) {
	s := openTestStore(t)
	cutoff := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	err := s.UpsertBatch([]Entry{
		{Callsign: "OLD1X", Coord: locator.Coordinate{}, UpdatedAt: cutoff.AddDate(0, -1, 0)},
		{Callsign: "NEW1X", Coord: locator.Coordinate{}, UpdatedAt: cutoff.AddDate(0, 1, 0)},
	})
	if err != nil {
		t.Fatal(err)
	}

	removed, err := s.PurgeOlderThan(cutoff)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Fatalf("removed=%d, want 1", removed)
	}
	if _, ok, _ := s.Get("OLD1X"); ok {
		t.Fatal("OLD1X should be purged")
	}
	if _, ok, _ := s.Get("NEW1X"); !ok {
		t.Fatal("NEW1X should remain")
	}
}

func TestGetMissing(t *testing.T) {
	s := openTestStore(t)
	_, ok, err := s.Get("NOBODY1")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("missing call should not resolve")
	}
}

func TestClosedStore(t *testing.T) {
	s := openTestStore(t)
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertBatch([]Entry{{Callsign: "W1AW"}}); err == nil {
		t.Fatal("upsert after close should fail")
	}
}
