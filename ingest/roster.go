package ingest

import (
	"bufio"
	"bytes"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"rbnmap/locator"
)

// rosterLineRE is the stage-3 fallback: CALLSIGN <tab> anything <tab> LOCATOR
// <tab> anywhere in the raw document. The upstream page format is not
// contractually stable, so this runs only when structured extraction failed.
var rosterLineRE = regexp.MustCompile(
	`(?m)^([A-Z0-9/\-]+)\t[^\n\t]*\t([A-Ra-r]{2}[0-9]{2}(?:[A-Xa-x]{2})?(?:[0-9]{2})?)\t`)

var innerWhitespaceRE = regexp.MustCompile(`\s+`)

// RosterSource parses tab-separated spotter roster lines copied from the RBN
// nodes page: callsign in the first column, grid locator in the third.
type RosterSource struct{}

// Parse skips blank and header lines; rows with fewer than three columns or
// a grid that does not look like a locator are skipped and counted.
func (RosterSource) Parse(raw []byte) (Result, error) {
	var result Result
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(strings.ToLower(line), "callsign") {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) < 3 {
			result.skip(lineNo, "fewer than 3 columns")
			continue
		}
		// Multi-word callsign cells collapse to a single hyphenated token.
		callsign := innerWhitespaceRE.ReplaceAllString(strings.TrimSpace(parts[0]), "-")
		grid := strings.ToUpper(strings.TrimSpace(parts[2]))
		if callsign == "" || !locator.Pattern.MatchString(grid) {
			result.skip(lineNo, "missing callsign or malformed locator")
			continue
		}
		result.Pairs = append(result.Pairs, Pair{Callsign: callsign, Locator: grid})
	}
	if err := scanner.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// HTMLRosterSource extracts spotter roster pairs from the RBN nodes page.
// Extraction runs an ordered fallback chain; each stage runs only when the
// previous one produced zero rows:
//
//  1. structured <tr>/<td> rows with at least 3 cells where the third cell
//     looks like a grid locator
//  2. all text content flattened and re-fed to the tab-separated parser
//  3. the line-oriented regexp over the raw document
//
// Zero rows after all three stages returns ErrNoEntries.
type HTMLRosterSource struct{}

func (HTMLRosterSource) Parse(raw []byte) (Result, error) {
	doc, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return Result{}, err
	}

	result := parseRosterTables(doc)
	if len(result.Pairs) > 0 {
		return result, nil
	}

	flattened := flattenText(doc)
	result, err = RosterSource{}.Parse([]byte(flattened))
	if err != nil {
		return result, err
	}
	if len(result.Pairs) > 0 {
		return result, nil
	}

	result = Result{}
	for _, m := range rosterLineRE.FindAllSubmatch(raw, -1) {
		result.Pairs = append(result.Pairs, Pair{
			Callsign: string(m[1]),
			Locator:  strings.ToUpper(string(m[2])),
		})
	}
	if len(result.Pairs) == 0 {
		return result, ErrNoEntries
	}
	return result, nil
}

func parseRosterTables(doc *html.Node) Result {
	var result Result
	for node := range doc.Descendants() {
		if node.Type != html.ElementNode || node.Data != "tr" {
			continue
		}
		cells := rowCells(node)
		if len(cells) < 3 {
			continue
		}
		callsign := strings.TrimSpace(cells[0])
		grid := strings.ToUpper(strings.TrimSpace(cells[2]))
		if callsign == "" || !locator.Pattern.MatchString(grid) {
			continue
		}
		result.Pairs = append(result.Pairs, Pair{Callsign: callsign, Locator: grid})
	}
	return result
}

func rowCells(tr *html.Node) []string {
	var cells []string
	for node := range tr.Descendants() {
		if node.Type == html.ElementNode && node.Data == "td" {
			cells = append(cells, nodeText(node))
		}
	}
	return cells
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	for node := range n.Descendants() {
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
		}
	}
	return strings.TrimSpace(b.String())
}

// flattenText joins every text node with newlines so embedded tab-separated
// blobs (script payloads, preformatted blocks) become parseable lines again.
func flattenText(doc *html.Node) string {
	var b strings.Builder
	for node := range doc.Descendants() {
		if node.Type != html.TextNode {
			continue
		}
		text := strings.TrimRight(node.Data, "\r\n")
		if strings.TrimSpace(text) == "" {
			continue
		}
		b.WriteString(text)
		b.WriteByte('\n')
	}
	return b.String()
}
