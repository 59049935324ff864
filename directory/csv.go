package directory

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"rbnmap/locator"
)

// csvHeader is the persisted directory interchange format: one row per unique
// callsign. The storage collaborator owns reading and writing the file; this
// package only defines how rows are derived and merged.
var csvHeader = []string{"callsign", "latitude", "longitude"}

// MarshalCSV renders the directory as the persisted table, sorted by
// callsign for deterministic output.
func (d *Directory) MarshalCSV() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("directory: write header: %w", err)
	}
	for _, entry := range d.Entries() {
		row := []string{
			entry.Callsign,
			strconv.FormatFloat(entry.Coord.Lat, 'f', 3, 64),
			strconv.FormatFloat(entry.Coord.Lon, 'f', 3, 64),
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("directory: write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("directory: flush: %w", err)
	}
	return buf.Bytes(), nil
}

// ParseCSV rebuilds a directory from the persisted table. Malformed rows are
// skipped; duplicate callsigns keep the later row.
func ParseCSV(raw []byte) (*Directory, error) {
	reader := csv.NewReader(bytes.NewReader(raw))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return FromEntries(nil), nil
		}
		return nil, fmt.Errorf("directory: read header: %w", err)
	}
	if len(header) < 3 || !strings.EqualFold(strings.TrimSpace(header[0]), "callsign") {
		return nil, fmt.Errorf("directory: unrecognized header %v", header)
	}

	var entries []Entry
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil || len(row) < 3 {
			continue
		}
		lat, latErr := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
		lon, lonErr := strconv.ParseFloat(strings.TrimSpace(row[2]), 64)
		if latErr != nil || lonErr != nil || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
			continue
		}
		entries = append(entries, Entry{
			Callsign: row[0],
			Coord:    locator.Coordinate{Lat: lat, Lon: lon},
		})
	}
	return FromEntries(entries), nil
}
