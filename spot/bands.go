package spot

import "strings"

// BandUnknown is the terminal classification for frequencies outside every
// tracked range. It is a valid result, not an error.
const BandUnknown = "unknown"

// BandInfo describes an amateur radio band by name and frequency range in kHz.
// Both bounds are inclusive.
type BandInfo struct {
	Name string
	Min  float64
	Max  float64
}

// bandTable is static configuration, ordered ascending and disjoint. It is
// never mutated at runtime.
var bandTable = []BandInfo{
	{Name: "160m", Min: 1800, Max: 2000},
	{Name: "80m", Min: 3500, Max: 4000},
	{Name: "40m", Min: 7000, Max: 7300},
	{Name: "30m", Min: 10100, Max: 10150},
	{Name: "20m", Min: 14000, Max: 14350},
	{Name: "17m", Min: 18068, Max: 18168},
	{Name: "15m", Min: 21000, Max: 21450},
	{Name: "12m", Min: 24890, Max: 24990},
	{Name: "10m", Min: 28000, Max: 29700},
	{Name: "6m", Min: 50000, Max: 54000},
}

var bandLookup = func() map[string]BandInfo {
	m := make(map[string]BandInfo, len(bandTable))
	for _, entry := range bandTable {
		normalized := NormalizeBand(entry.Name)
		if normalized == "" {
			continue
		}
		m[normalized] = entry
	}
	return m
}()

// FreqToBand classifies a frequency in kHz. Ranges are checked in ascending
// order with inclusive bounds; anything outside yields BandUnknown.
func FreqToBand(freqKHz float64) string {
	for _, band := range bandTable {
		if freqKHz >= band.Min && freqKHz <= band.Max {
			return band.Name
		}
	}
	return BandUnknown
}

// NormalizeBand returns the canonical lowercase band identifier for a label.
// It strips whitespace, converts meter words to "m", and appends "m" when the
// value looks like a bare number (archive exports write "20" for 20m).
func NormalizeBand(label string) string {
	cleaned := strings.ToLower(strings.TrimSpace(label))
	if cleaned == "" {
		return ""
	}
	for _, word := range []string{"meters", "meter", "metres", "metre"} {
		cleaned = strings.ReplaceAll(cleaned, word, "m")
	}
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	if cleaned == "" {
		return ""
	}
	last := cleaned[len(cleaned)-1]
	if last >= '0' && last <= '9' {
		cleaned += "m"
	}
	return cleaned
}

// IsValidBand reports whether the label corresponds to a tracked band.
func IsValidBand(label string) bool {
	normalized := NormalizeBand(label)
	if normalized == "" {
		return false
	}
	_, ok := bandLookup[normalized]
	return ok
}

// SupportedBandNames returns the canonical names of all tracked bands in
// ascending frequency order.
func SupportedBandNames() []string {
	names := make([]string, len(bandTable))
	for i, entry := range bandTable {
		names[i] = entry.Name
	}
	return names
}
