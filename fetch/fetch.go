// Package fetch downloads RBN history archives and the nodes roster page with
// conditional requests and a JSON metadata sidecar, so unchanged remote
// content is never re-downloaded. Transport policy (timeouts, retries) lives
// here; the parsing core only ever sees resolved byte buffers.
package fetch

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// MetadataSuffix names the sidecar next to each downloaded file.
const MetadataSuffix = ".status.json"

// Status indicates whether the remote content changed.
type Status string

const (
	StatusUpdated     Status = "updated"
	StatusNotModified Status = "not_modified"
	StatusSameContent Status = "same_content"
)

// Metadata tracks the last successful download or check for a destination.
type Metadata struct {
	URL          string    `json:"url,omitempty"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	DownloadedAt time.Time `json:"downloaded_at,omitempty"`
	CheckedAt    time.Time `json:"checked_at,omitempty"`
	SizeBytes    int64     `json:"size_bytes,omitempty"`
	SHA256       string    `json:"sha256,omitempty"`
}

// Request configures a download.
type Request struct {
	URL         string
	Destination string
	Timeout     time.Duration
	Force       bool
	UserAgent   string
}

// Result summarizes the download outcome.
type Result struct {
	Status Status
	Meta   Metadata
	Bytes  int64
}

// MetadataPath returns the sidecar path for a destination.
func MetadataPath(dest string) string {
	if strings.TrimSpace(dest) == "" {
		return ""
	}
	return dest + MetadataSuffix
}

// Download fetches the URL into Destination with ETag/Last-Modified
// conditional headers, hashing the body to detect unchanged content served
// without cache headers. The file is written atomically via a temp file.
func Download(ctx context.Context, req Request) (Result, error) {
	var result Result
	url := strings.TrimSpace(req.URL)
	dest := strings.TrimSpace(req.Destination)
	if url == "" {
		return result, errors.New("fetch: URL is empty")
	}
	if dest == "" {
		return result, errors.New("fetch: destination is empty")
	}
	metaPath := MetadataPath(dest)

	_, err := os.Stat(dest)
	destExists := err == nil
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return result, fmt.Errorf("fetch: stat destination: %w", err)
	}
	prevMeta := readMetadata(metaPath)
	force := req.Force || !destExists

	client := &http.Client{}
	if req.Timeout > 0 {
		client.Timeout = req.Timeout
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return result, fmt.Errorf("fetch: build request: %w", err)
	}
	if !force && prevMeta != nil {
		if prevMeta.ETag != "" {
			httpReq.Header.Set("If-None-Match", prevMeta.ETag)
		}
		if prevMeta.LastModified != "" {
			httpReq.Header.Set("If-Modified-Since", prevMeta.LastModified)
		}
	}
	if req.UserAgent != "" {
		httpReq.Header.Set("User-Agent", req.UserAgent)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return result, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	now := time.Now().UTC()
	if resp.StatusCode == http.StatusNotModified {
		result.Status = StatusNotModified
		meta := mergeMetadata(prevMeta, url, resp, "")
		meta.CheckedAt = now
		writeMetadata(metaPath, meta)
		result.Meta = meta
		return result, nil
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return result, fmt.Errorf("fetch: %s: status %s", url, resp.Status)
	}

	if err := ensureParentDir(dest); err != nil {
		return result, err
	}
	tmpFile, err := os.CreateTemp(filepath.Dir(dest), "fetch-*.tmp")
	if err != nil {
		return result, fmt.Errorf("fetch: create temp file: %w", err)
	}
	tmpName := tmpFile.Name()
	defer os.Remove(tmpName)

	hasher := sha256.New()
	written, err := io.Copy(io.MultiWriter(tmpFile, hasher), resp.Body)
	if err != nil {
		tmpFile.Close()
		return result, fmt.Errorf("fetch: copy body: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return result, fmt.Errorf("fetch: finalize temp file: %w", err)
	}
	if written <= 0 {
		return result, errors.New("fetch: empty response body")
	}

	hashHex := hex.EncodeToString(hasher.Sum(nil))
	result.Bytes = written

	if !force && destExists && prevMeta != nil && prevMeta.SHA256 == hashHex {
		result.Status = StatusSameContent
		meta := mergeMetadata(prevMeta, url, resp, hashHex)
		meta.CheckedAt = now
		writeMetadata(metaPath, meta)
		result.Meta = meta
		return result, nil
	}

	if err := os.Remove(dest); err != nil && !errors.Is(err, os.ErrNotExist) {
		return result, fmt.Errorf("fetch: remove old file: %w", err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return result, fmt.Errorf("fetch: replace file: %w", err)
	}

	result.Status = StatusUpdated
	meta := mergeMetadata(prevMeta, url, resp, hashHex)
	meta.CheckedAt = now
	meta.DownloadedAt = now
	meta.SizeBytes = written
	writeMetadata(metaPath, meta)
	result.Meta = meta
	return result, nil
}

// HistoryURL returns the RBN history archive URL for a YYYYMMDD date.
func HistoryURL(base, date string) string {
	return strings.TrimSuffix(base, "/") + "/" + date + ".zip"
}

// ExtractCSV returns the contents of the first .csv member of a ZIP archive.
// The RBN history archives hold exactly one CSV per day.
func ExtractCSV(raw []byte) ([]byte, error) {
	reader, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("fetch: open zip: %w", err)
	}
	for _, file := range reader.File {
		if !strings.HasSuffix(strings.ToLower(file.Name), ".csv") {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("fetch: open zip member %s: %w", file.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("fetch: read zip member %s: %w", file.Name, err)
		}
		return data, nil
	}
	return nil, errors.New("fetch: no CSV file found in the ZIP archive")
}

func readMetadata(path string) *Metadata {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil
	}
	return &meta
}

func writeMetadata(path string, meta Metadata) {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		log.Printf("fetch: marshal metadata %s: %v", path, err)
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Printf("fetch: write metadata %s: %v", path, err)
	}
}

func mergeMetadata(prev *Metadata, url string, resp *http.Response, hash string) Metadata {
	meta := Metadata{}
	if prev != nil {
		meta = *prev
	}
	meta.URL = url
	if resp != nil {
		if etag := strings.TrimSpace(resp.Header.Get("ETag")); etag != "" {
			meta.ETag = etag
		}
		if last := strings.TrimSpace(resp.Header.Get("Last-Modified")); last != "" {
			meta.LastModified = last
		}
	}
	if hash != "" {
		meta.SHA256 = hash
	}
	return meta
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("fetch: create directory: %w", err)
	}
	return nil
}
