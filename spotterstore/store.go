// Package spotterstore persists resolved spotter coordinates in a Pebble
// key/value store so directory snapshots survive between ingestion runs.
// Upserts are last-write-wins, matching the directory merge semantics: the
// freshest roster observation for a callsign always replaces the stale one.
package spotterstore

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/bloom"

	"rbnmap/directory"
	"rbnmap/locator"
)

const (
	recordVersion    = 1
	recordSize       = 25 // version + lat + lon + updatedAt
	callPrefix       = "c|"
	metaCountKey     = "meta|count"
	defaultCacheSize = int64(8 << 20)
	defaultBloomBits = 10
)

var (
	errStoreClosed   = errors.New("spotterstore: store is closed")
	errInvalidRecord = errors.New("spotterstore: invalid record encoding")
)

// Entry is one persisted spotter row.
type Entry struct {
	Callsign  string
	Coord     locator.Coordinate
	UpdatedAt time.Time
}

// Options controls Pebble tuning. Zero fields get safe defaults.
type Options struct {
	CacheSizeBytes        int64
	BloomFilterBitsPerKey int
}

func sanitizeOptions(opts Options) Options {
	if opts.CacheSizeBytes <= 0 {
		opts.CacheSizeBytes = defaultCacheSize
	}
	if opts.BloomFilterBitsPerKey <= 0 {
		opts.BloomFilterBitsPerKey = defaultBloomBits
	}
	return opts
}

// Store manages the Pebble database holding spotter coordinates.
type Store struct {
	db    *pebble.DB
	cache *pebble.Cache

	mu     sync.Mutex
	closed bool
}

// Open opens or creates the store at path.
func Open(path string, opts Options) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("spotterstore: database path is empty")
	}
	opts = sanitizeOptions(opts)

	if info, err := os.Stat(path); err == nil {
		if !info.IsDir() {
			return nil, fmt.Errorf("spotterstore: %s exists and is not a directory", path)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("spotterstore: stat path: %w", err)
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("spotterstore: ensure directory: %w", err)
	}

	pebbleOpts := &pebble.Options{
		Cache: pebble.NewCache(opts.CacheSizeBytes),
	}
	filter := bloom.FilterPolicy(opts.BloomFilterBitsPerKey)
	level := pebble.LevelOptions{FilterPolicy: filter, FilterType: pebble.TableFilter}
	pebbleOpts.Levels = make([]pebble.LevelOptions, 7)
	for i := range pebbleOpts.Levels {
		pebbleOpts.Levels[i] = level
	}

	db, err := pebble.Open(path, pebbleOpts)
	if err != nil {
		pebbleOpts.Cache.Unref()
		return nil, fmt.Errorf("spotterstore: open: %w", err)
	}
	return &Store{db: db, cache: pebbleOpts.Cache}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	err := s.db.Close()
	if s.cache != nil {
		s.cache.Unref()
		s.cache = nil
	}
	return err
}

func (s *Store) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// UpsertBatch writes all entries atomically, later entries overriding earlier
// ones for the same callsign.
func (s *Store) UpsertBatch(entries []Entry) error {
	if s == nil || s.db == nil {
		return errors.New("spotterstore: store is not initialized")
	}
	if s.isClosed() {
		return errStoreClosed
	}
	if len(entries) == 0 {
		return nil
	}
	batch := s.db.NewBatch()
	defer batch.Close()
	for _, entry := range entries {
		call := strings.ToUpper(strings.TrimSpace(entry.Callsign))
		if call == "" {
			continue
		}
		when := entry.UpdatedAt
		if when.IsZero() {
			when = time.Now().UTC()
		}
		if err := batch.Set(callKey(call), encodeRecord(entry.Coord, when), nil); err != nil {
			return fmt.Errorf("spotterstore: batch set: %w", err)
		}
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("spotterstore: commit: %w", err)
	}
	return s.refreshCount()
}

// Get returns the stored entry for a callsign.
func (s *Store) Get(call string) (Entry, bool, error) {
	if s == nil || s.db == nil {
		return Entry{}, false, errors.New("spotterstore: store is not initialized")
	}
	if s.isClosed() {
		return Entry{}, false, errStoreClosed
	}
	normalized := strings.ToUpper(strings.TrimSpace(call))
	value, closer, err := s.db.Get(callKey(normalized))
	if errors.Is(err, pebble.ErrNotFound) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("spotterstore: get: %w", err)
	}
	defer closer.Close()
	coord, updatedAt, err := decodeRecord(value)
	if err != nil {
		return Entry{}, false, err
	}
	return Entry{Callsign: normalized, Coord: coord, UpdatedAt: updatedAt}, true, nil
}

// Entries returns all stored rows.
func (s *Store) Entries() ([]Entry, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("spotterstore: store is not initialized")
	}
	if s.isClosed() {
		return nil, errStoreClosed
	}
	iter, err := s.db.NewIter(iterOptionsForPrefix(callPrefix))
	if err != nil {
		return nil, fmt.Errorf("spotterstore: entries iterator: %w", err)
	}
	defer iter.Close()

	var entries []Entry
	for iter.First(); iter.Valid(); iter.Next() {
		call, ok := parseCallKey(iter.Key())
		if !ok {
			continue
		}
		coord, updatedAt, err := decodeRecord(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("spotterstore: decode entry %q: %w", call, err)
		}
		entries = append(entries, Entry{Callsign: call, Coord: coord, UpdatedAt: updatedAt})
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("spotterstore: iterate entries: %w", err)
	}
	return entries, nil
}

// Snapshot materializes the stored rows as an immutable directory.
func (s *Store) Snapshot() (*directory.Directory, error) {
	entries, err := s.Entries()
	if err != nil {
		return nil, err
	}
	rows := make([]directory.Entry, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, directory.Entry{Callsign: entry.Callsign, Coord: entry.Coord})
	}
	return directory.FromEntries(rows), nil
}

// Count returns the number of stored callsigns from the metadata key.
func (s *Store) Count() (int64, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("spotterstore: store is not initialized")
	}
	value, closer, err := s.db.Get([]byte(metaCountKey))
	if errors.Is(err, pebble.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("spotterstore: count: %w", err)
	}
	defer closer.Close()
	if len(value) != 8 {
		return 0, errInvalidRecord
	}
	return int64(binary.LittleEndian.Uint64(value)), nil
}

// PurgeOlderThan removes entries last updated before the cutoff and returns
// how many were removed.
func (s *Store) PurgeOlderThan(cutoff time.Time) (int64, error) {
	entries, err := s.Entries()
	if err != nil {
		return 0, err
	}
	batch := s.db.NewBatch()
	defer batch.Close()
	var removed int64
	for _, entry := range entries {
		if entry.UpdatedAt.Before(cutoff) {
			if err := batch.Delete(callKey(entry.Callsign), nil); err != nil {
				return 0, fmt.Errorf("spotterstore: batch delete: %w", err)
			}
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return 0, fmt.Errorf("spotterstore: purge commit: %w", err)
	}
	return removed, s.refreshCount()
}

func (s *Store) refreshCount() error {
	iter, err := s.db.NewIter(iterOptionsForPrefix(callPrefix))
	if err != nil {
		return fmt.Errorf("spotterstore: count iterator: %w", err)
	}
	var n int64
	for iter.First(); iter.Valid(); iter.Next() {
		n++
	}
	if err := iter.Error(); err != nil {
		iter.Close()
		return fmt.Errorf("spotterstore: count iterate: %w", err)
	}
	if err := iter.Close(); err != nil {
		return fmt.Errorf("spotterstore: count iterator close: %w", err)
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(n))
	if err := s.db.Set([]byte(metaCountKey), buf[:], pebble.Sync); err != nil {
		return fmt.Errorf("spotterstore: store count: %w", err)
	}
	return nil
}

func callKey(call string) []byte {
	return []byte(callPrefix + call)
}

func parseCallKey(key []byte) (string, bool) {
	if len(key) <= len(callPrefix) || string(key[:len(callPrefix)]) != callPrefix {
		return "", false
	}
	return string(key[len(callPrefix):]), true
}

func iterOptionsForPrefix(prefix string) *pebble.IterOptions {
	upper := append([]byte(prefix[:len(prefix)-1]), prefix[len(prefix)-1]+1)
	return &pebble.IterOptions{
		LowerBound: []byte(prefix),
		UpperBound: upper,
	}
}

func encodeRecord(coord locator.Coordinate, updatedAt time.Time) []byte {
	buf := make([]byte, recordSize)
	buf[0] = recordVersion
	binary.LittleEndian.PutUint64(buf[1:9], math.Float64bits(coord.Lat))
	binary.LittleEndian.PutUint64(buf[9:17], math.Float64bits(coord.Lon))
	binary.LittleEndian.PutUint64(buf[17:25], uint64(updatedAt.UTC().Unix()))
	return buf
}

func decodeRecord(value []byte) (locator.Coordinate, time.Time, error) {
	if len(value) != recordSize || value[0] != recordVersion {
		return locator.Coordinate{}, time.Time{}, errInvalidRecord
	}
	coord := locator.Coordinate{
		Lat: math.Float64frombits(binary.LittleEndian.Uint64(value[1:9])),
		Lon: math.Float64frombits(binary.LittleEndian.Uint64(value[9:17])),
	}
	updatedAt := time.Unix(int64(binary.LittleEndian.Uint64(value[17:25])), 0).UTC()
	return coord, updatedAt, nil
}
