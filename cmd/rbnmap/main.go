// Command rbnmap ingests reverse-beacon spot reports from pasted text, CSV
// archive exports, or a downloaded RBN history archive, deduplicates them,
// optionally archives them, and prints summary statistics relative to a
// reference station grid.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/term"

	"rbnmap/archive"
	"rbnmap/config"
	"rbnmap/dedup"
	"rbnmap/directory"
	"rbnmap/fetch"
	"rbnmap/ingest"
	"rbnmap/locator"
	"rbnmap/logging"
	"rbnmap/spot"
	"rbnmap/spotterstore"
	"rbnmap/stats"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	inputPath := flag.String("input", "-", "input file, or - for stdin")
	format := flag.String("format", "auto", "input format: pasted, csv, or auto")
	fetchDate := flag.String("fetch", "", "download the RBN history archive for YYYYMMDD instead of reading a file")
	gridFlag := flag.String("grid", "", "reference grid locator, overrides station.grid from the config")
	dxFilter := flag.String("dx", "", "only count spots of this DX callsign")
	bandFilter := flag.String("band", "", "only count spots on this band, e.g. 20m")
	sinceFlag := flag.String("since", "", "only count spots at or after this RFC3339 time")
	jsonOut := flag.Bool("json", false, "print statistics as JSON")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("rbnmap: %v", err)
	}
	logs, err := logging.Setup(cfg.Logging.File)
	if err != nil {
		log.Printf("rbnmap: %v", err)
	}
	defer logs.Close()
	if *gridFlag != "" {
		cfg.Station.Grid = *gridFlag
	}

	raw, sourceName, err := readInput(cfg, *inputPath, *fetchDate)
	if err != nil {
		log.Fatalf("rbnmap: %v", err)
	}

	source := selectSource(*format, *inputPath, raw)
	result, err := source.Parse(raw)
	if err != nil {
		log.Fatalf("rbnmap: parse %s: %v", sourceName, err)
	}

	tracker := stats.NewTracker()
	tracker.AddParsed(sourceName, len(result.Records))
	tracker.AddSkipped(sourceName, result.Skipped)
	for _, rec := range result.Records {
		tracker.IncrementBand(rec.Band)
	}

	records := result.Records
	if window := cfg.DedupWindow(); window > 0 {
		kept, suppressed := dedup.New(window, cfg.Dedup.PreferStronger).Deduplicate(records)
		records = kept
		tracker.AddSuppressed(suppressed)
	}

	if cfg.Archive.Enabled {
		if err := archiveRecords(cfg.Archive.Path, records); err != nil {
			log.Fatalf("rbnmap: %v", err)
		}
	}

	dir := loadDirectory(cfg)

	filter := stats.Filter{DXCall: *dxFilter, Band: *bandFilter}
	if *sinceFlag != "" {
		since, err := time.Parse(time.RFC3339, *sinceFlag)
		if err != nil {
			log.Fatalf("rbnmap: invalid -since value %q: %v", *sinceFlag, err)
		}
		filter.Since = since
	}
	filtered := filter.Apply(records)

	ref, err := referenceCoordinate(cfg)
	if err != nil {
		log.Fatalf("rbnmap: %v", err)
	}
	aggregated := stats.Aggregate(filtered, ref, dir)

	if *jsonOut {
		out, err := aggregated.JSON()
		if err != nil {
			log.Fatalf("rbnmap: encode statistics: %v", err)
		}
		fmt.Println(string(out))
		return
	}
	printSummary(aggregated, tracker, sourceName)
	for _, line := range diagnoseUnresolved(filtered, dir) {
		log.Printf("rbnmap: %s", line)
	}
}

// maxUnresolvedSuggestions bounds the typo diagnostics so a run against an
// empty or stale store does not flood the log.
const maxUnresolvedSuggestions = 5

// diagnoseUnresolved suggests a near-miss directory entry for each distinct
// spotter that failed coordinate lookup, surfacing roster typos that would
// otherwise silently shrink the distance computation.
func diagnoseUnresolved(records []*spot.Record, dir *directory.Directory) []string {
	seen := make(map[string]bool)
	var lines []string
	for _, rec := range records {
		if seen[rec.Spotter] {
			continue
		}
		seen[rec.Spotter] = true
		if _, ok := dir.Lookup(rec.Spotter); ok {
			continue
		}
		suggestion, ok := dir.Nearest(rec.Spotter, 1)
		if !ok {
			continue
		}
		lines = append(lines, fmt.Sprintf("spotter %s has no coordinates; closest known spotter is %s", rec.Spotter, suggestion))
		if len(lines) >= maxUnresolvedSuggestions {
			break
		}
	}
	return lines
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// readInput resolves the spot bytes either from the RBN history archive for
// a given date or from a local file / stdin.
func readInput(cfg *config.Config, inputPath, fetchDate string) ([]byte, string, error) {
	if fetchDate != "" {
		return fetchHistory(cfg, fetchDate)
	}
	if inputPath == "-" {
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, "", fmt.Errorf("read stdin: %w", err)
		}
		return raw, "stdin", nil
	}
	raw, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, "", fmt.Errorf("read input: %w", err)
	}
	return raw, filepath.Base(inputPath), nil
}

func fetchHistory(cfg *config.Config, date string) ([]byte, string, error) {
	url := fetch.HistoryURL(cfg.Sources.HistoryBaseURL, date)
	dest := filepath.Join(cfg.Sources.DownloadDir, date+".zip")
	result, err := fetch.Download(context.Background(), fetch.Request{
		URL:         url,
		Destination: dest,
		Timeout:     cfg.DownloadTimeout(),
	})
	if err != nil {
		return nil, "", fmt.Errorf("download history: %w", err)
	}
	log.Printf("history %s: %s", date, result.Status)
	raw, err := os.ReadFile(dest)
	if err != nil {
		return nil, "", fmt.Errorf("read download: %w", err)
	}
	csvData, err := fetch.ExtractCSV(raw)
	if err != nil {
		return nil, "", err
	}
	return csvData, "rbn_history", nil
}

// selectSource picks the parser. Auto mode treats input with a comma in the
// first line as a CSV export and everything else as pasted cluster output.
func selectSource(format, inputPath string, raw []byte) ingest.Source {
	switch strings.ToLower(format) {
	case "pasted":
		return &ingest.PastedSource{}
	case "csv":
		return ingest.CSVSource{}
	}
	if strings.HasSuffix(strings.ToLower(inputPath), ".csv") {
		return ingest.CSVSource{}
	}
	firstLine, _, _ := strings.Cut(string(raw), "\n")
	if strings.Contains(firstLine, ",") {
		return ingest.CSVSource{}
	}
	return &ingest.PastedSource{}
}

func archiveRecords(path string, records []*spot.Record) error {
	writer, err := archive.Open(path)
	if err != nil {
		return err
	}
	defer writer.Close()
	return writer.WriteBatch(records)
}

// loadDirectory reads the spotter directory from the persistent store. A
// missing store is not an error; distances are simply unresolved.
func loadDirectory(cfg *config.Config) *directory.Directory {
	if _, err := os.Stat(cfg.Store.Path); err != nil {
		return directory.FromEntries(nil)
	}
	store, err := spotterstore.Open(cfg.Store.Path, spotterstore.Options{
		CacheSizeBytes:        int64(cfg.Store.CacheSizeMB) << 20,
		BloomFilterBitsPerKey: cfg.Store.BloomBitsPerKey,
	})
	if err != nil {
		log.Printf("spotter store %s unavailable: %v", cfg.Store.Path, err)
		return directory.FromEntries(nil)
	}
	defer store.Close()
	dir, err := store.Snapshot()
	if err != nil {
		log.Printf("spotter store snapshot: %v", err)
		return directory.FromEntries(nil)
	}
	return dir
}

func referenceCoordinate(cfg *config.Config) (locator.Coordinate, error) {
	grid := strings.TrimSpace(cfg.Station.Grid)
	if grid == "" {
		return locator.Coordinate{}, nil
	}
	coord, err := locator.Decode(grid)
	if err != nil {
		return locator.Coordinate{}, fmt.Errorf("reference grid: %w", err)
	}
	return coord, nil
}

func printSummary(s stats.Statistics, tracker *stats.Tracker, sourceName string) {
	fmt.Printf("source %s: %s spots", sourceName, humanize.Comma(int64(s.Count)))
	if suppressed := tracker.Suppressed(); suppressed > 0 {
		fmt.Printf(" (%s duplicates suppressed)", humanize.Comma(int64(suppressed)))
	}
	fmt.Println()
	bands := make([]string, 0, len(s.BandCounts))
	for band := range s.BandCounts {
		bands = append(bands, band)
	}
	sort.Strings(bands)
	for _, band := range bands {
		fmt.Printf("  %-8s %s\n", band, humanize.Comma(int64(s.BandCounts[band])))
	}
	if !math.IsNaN(s.MeanSNR) {
		fmt.Printf("SNR mean %.1f dB, max %.0f dB\n", s.MeanSNR, s.MaxSNR)
	}
	if s.Resolved > 0 {
		fmt.Printf("max distance %.0f km across %s resolved spotters\n",
			s.MaxDistanceKm, humanize.Comma(int64(s.Resolved)))
	}
	if isInteractive() {
		fmt.Println(tracker.Summary())
	}
}

// isInteractive reports whether stdout is a terminal; the per-source counter
// summary is noise when output is piped into another tool.
func isInteractive() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
