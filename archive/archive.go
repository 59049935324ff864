// Package archive persists normalized spot records to SQLite so past
// ingestion runs can be re-filtered and re-aggregated without refetching the
// source documents.
package archive

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"rbnmap/spot"
)

const defaultBusyTimeoutMS = 5000

// Writer owns the archive database handle. Batches are written inside a
// single transaction; a failed batch is reported, never partially applied.
type Writer struct {
	db *sql.DB
}

// Open initializes the SQLite database, creating the schema when missing.
func Open(path string) (*Writer, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("archive: empty database path")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("archive: mkdir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("archive: open db: %w", err)
	}
	pragmas := fmt.Sprintf("pragma journal_mode=WAL; pragma synchronous=NORMAL; pragma busy_timeout=%d", defaultBusyTimeoutMS)
	if _, err := db.Exec(pragmas); err != nil {
		db.Close()
		return nil, fmt.Errorf("archive: pragmas: %w", err)
	}
	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Writer{db: db}, nil
}

// Close releases the database handle.
func (w *Writer) Close() error {
	if w == nil || w.db == nil {
		return nil
	}
	return w.db.Close()
}

func ensureSchema(db *sql.DB) error {
	schema := `
	create table if not exists spots (
		id integer primary key autoincrement,
		ts integer,
		de text,
		dx text,
		freq real,
		band text,
		mode text,
		snr real,
		has_snr integer,
		speed real,
		has_speed integer,
		distance_km real,
		has_distance integer,
		seen text
	);
	create index if not exists idx_spots_ts on spots(ts);
	create index if not exists idx_spots_dx_ts on spots(dx, ts);
	create index if not exists idx_spots_band_ts on spots(band, ts);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("archive: schema: %w", err)
	}
	return nil
}

// WriteBatch inserts all records in one transaction.
func (w *Writer) WriteBatch(records []*spot.Record) error {
	if w == nil || w.db == nil {
		return fmt.Errorf("archive: writer is nil")
	}
	if len(records) == 0 {
		return nil
	}
	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("archive: begin tx: %w", err)
	}
	stmt, err := tx.Prepare(`insert into spots(ts, de, dx, freq, band, mode, snr, has_snr, speed, has_speed, distance_km, has_distance, seen) values(?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("archive: prepare: %w", err)
	}
	for _, rec := range records {
		_, err := stmt.Exec(
			rec.Time.UTC().Unix(),
			rec.Spotter,
			rec.DXCall,
			rec.FrequencyKHz,
			rec.Band,
			rec.Mode,
			rec.SNR,
			boolToInt(rec.HasSNR),
			rec.SpeedWPM,
			boolToInt(rec.HasSpeed),
			rec.DistanceKm,
			boolToInt(rec.HasDistance),
			rec.Seen,
		)
		if err != nil {
			stmt.Close()
			tx.Rollback()
			return fmt.Errorf("archive: insert: %w", err)
		}
	}
	stmt.Close()
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("archive: commit: %w", err)
	}
	return nil
}

// Query bounds a read-back of archived records. Zero-value fields match
// everything; Limit <= 0 means no limit.
type Query struct {
	Band   string
	DXCall string
	Since  time.Time
	Limit  int
}

// Recent returns the newest records matching the query, newest-first.
func (w *Writer) Recent(q Query) ([]*spot.Record, error) {
	if w == nil || w.db == nil {
		return nil, fmt.Errorf("archive: writer is nil")
	}
	where := []string{"1=1"}
	args := []any{}
	if band := spot.NormalizeBand(q.Band); band != "" {
		where = append(where, "band = ?")
		args = append(args, band)
	}
	if dxCall := spot.NormalizeCallsign(q.DXCall); dxCall != "" {
		where = append(where, "dx = ?")
		args = append(args, dxCall)
	}
	if !q.Since.IsZero() {
		where = append(where, "ts >= ?")
		args = append(args, q.Since.UTC().Unix())
	}
	query := `select ts, de, dx, freq, band, mode, snr, has_snr, speed, has_speed, distance_km, has_distance, seen from spots where ` +
		strings.Join(where, " and ") + ` order by ts desc`
	if q.Limit > 0 {
		query += fmt.Sprintf(" limit %d", q.Limit)
	}

	rows, err := w.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("archive: query recent: %w", err)
	}
	defer rows.Close()

	var results []*spot.Record
	for rows.Next() {
		var (
			ts          int64
			rec         spot.Record
			hasSNR      int
			hasSpeed    int
			hasDistance int
		)
		if err := rows.Scan(&ts, &rec.Spotter, &rec.DXCall, &rec.FrequencyKHz, &rec.Band, &rec.Mode,
			&rec.SNR, &hasSNR, &rec.SpeedWPM, &hasSpeed, &rec.DistanceKm, &hasDistance, &rec.Seen); err != nil {
			return nil, fmt.Errorf("archive: scan recent: %w", err)
		}
		rec.Time = time.Unix(ts, 0).UTC()
		rec.HasSNR = hasSNR > 0
		rec.HasSpeed = hasSpeed > 0
		rec.HasDistance = hasDistance > 0
		results = append(results, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("archive: iterate recent: %w", err)
	}
	return results, nil
}

// Count returns the number of archived records.
func (w *Writer) Count() (int64, error) {
	if w == nil || w.db == nil {
		return 0, fmt.Errorf("archive: writer is nil")
	}
	var n int64
	if err := w.db.QueryRow(`select count(*) from spots`).Scan(&n); err != nil {
		return 0, fmt.Errorf("archive: count: %w", err)
	}
	return n, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
