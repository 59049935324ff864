// Package locator converts Maidenhead grid locators to geographic
// coordinates and back. A locator names a rectangular cell; Decode resolves
// it to the cell center, rounded to three decimal places (~100 m at the
// equator) so repeated conversions of the same locator always compare equal.
package locator

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

const (
	fieldLonSize  = 20.0
	fieldLatSize  = 10.0
	squareLonSize = 2.0
	squareLatSize = 1.0
)

// Pattern matches a well-formed 4/6/8 character locator after uppercasing.
var Pattern = regexp.MustCompile(`^[A-R]{2}[0-9]{2}(?:[A-X]{2})?(?:[0-9]{2})?$`)

// Coordinate is a resolved latitude/longitude pair in decimal degrees.
type Coordinate struct {
	Lat float64
	Lon float64
}

// InvalidLocatorError reports a malformed locator string. It is fatal to the
// single conversion; batch callers decide whether to skip or abort.
type InvalidLocatorError struct {
	Locator string
	Reason  string
}

func (e *InvalidLocatorError) Error() string {
	return fmt.Sprintf("locator: invalid locator %q: %s", e.Locator, e.Reason)
}

// Decode converts a 4, 6, or 8 character Maidenhead locator to the center of
// the cell it names. Input is case-insensitive; surrounding whitespace is
// trimmed. Incomplete pairs (lengths 5 and 7) and out-of-alphabet segments
// are rejected rather than truncated or zero-filled.
func Decode(loc string) (Coordinate, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(loc))
	if trimmed == "" {
		return Coordinate{}, &InvalidLocatorError{Locator: loc, Reason: "empty"}
	}
	switch len(trimmed) {
	case 4, 6, 8:
	default:
		return Coordinate{}, &InvalidLocatorError{
			Locator: loc,
			Reason:  fmt.Sprintf("length %d not in {4, 6, 8}", len(trimmed)),
		}
	}

	a, b := trimmed[0], trimmed[1]
	if a < 'A' || a > 'R' || b < 'A' || b > 'R' {
		return Coordinate{}, &InvalidLocatorError{Locator: loc, Reason: "field letters must be A-R"}
	}
	lon := -180.0 + float64(a-'A')*fieldLonSize
	lat := -90.0 + float64(b-'A')*fieldLatSize

	d0, d1 := trimmed[2], trimmed[3]
	if d0 < '0' || d0 > '9' || d1 < '0' || d1 > '9' {
		return Coordinate{}, &InvalidLocatorError{Locator: loc, Reason: "square must be digits"}
	}
	lon += float64(d0-'0') * squareLonSize
	lat += float64(d1-'0') * squareLatSize

	cellLon := squareLonSize
	cellLat := squareLatSize

	if len(trimmed) >= 6 {
		s0, s1 := trimmed[4], trimmed[5]
		if s0 < 'A' || s0 > 'X' || s1 < 'A' || s1 > 'X' {
			return Coordinate{}, &InvalidLocatorError{Locator: loc, Reason: "subsquare letters must be A-X"}
		}
		cellLon /= 24
		cellLat /= 24
		lon += float64(s0-'A') * cellLon
		lat += float64(s1-'A') * cellLat
	}

	if len(trimmed) == 8 {
		e0, e1 := trimmed[6], trimmed[7]
		if e0 < '0' || e0 > '9' || e1 < '0' || e1 > '9' {
			return Coordinate{}, &InvalidLocatorError{Locator: loc, Reason: "extended square must be digits"}
		}
		cellLon /= 10
		cellLat /= 10
		lon += float64(e0-'0') * cellLon
		lat += float64(e1-'0') * cellLat
	}

	// The locator identifies a cell; the canonical resolved point is its center.
	return Coordinate{
		Lat: round3(lat + cellLat/2),
		Lon: round3(lon + cellLon/2),
	}, nil
}

// Valid reports whether the string decodes as a locator.
func Valid(loc string) bool {
	_, err := Decode(loc)
	return err == nil
}

// Encode4 returns the 4-character grid containing a lat/lon pair. It returns
// false when coordinates are out of range or non-finite.
func Encode4(lat, lon float64) (string, bool) {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return "", false
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return "", false
	}
	if lat == 90 {
		lat = 89.999999
	}
	if lon == 180 {
		lon = 179.999999
	}
	adjLon := lon + 180
	adjLat := lat + 90
	fieldLon := int(adjLon / fieldLonSize)
	fieldLat := int(adjLat / fieldLatSize)
	if fieldLon < 0 || fieldLon >= 18 || fieldLat < 0 || fieldLat >= 18 {
		return "", false
	}
	squareLon := int((adjLon - float64(fieldLon)*fieldLonSize) / squareLonSize)
	squareLat := int((adjLat - float64(fieldLat)*fieldLatSize) / squareLatSize)
	if squareLon < 0 || squareLon >= 10 || squareLat < 0 || squareLat >= 10 {
		return "", false
	}
	return string([]byte{
		byte('A' + fieldLon),
		byte('A' + fieldLat),
		byte('0' + squareLon),
		byte('0' + squareLat),
	}), true
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
