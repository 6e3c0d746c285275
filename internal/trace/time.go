package trace

import (
	"math"
	"strconv"
	"time"
)

// Time is a position on a session timeline, expressed as float64
// milliseconds since the Unix epoch. Sub-millisecond fractions are
// preserved so that very short traces keep distinct event positions.
//
// NaN marks a timestamp that could not be parsed from its source.
// NaN times are never silently dropped: ingest moves the affected
// events to the end of the ordered sequence and reports an anomaly.
type Time float64

// Invalid is the unparsable-timestamp marker. Compare with Valid, not
// ==, since NaN never equals itself.
var Invalid = Time(math.NaN())

// Valid reports whether t holds a usable (finite) timestamp.
func (t Time) Valid() bool {
	f := float64(t)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Add returns t shifted by d milliseconds.
func (t Time) Add(d float64) Time { return Time(float64(t) + d) }

// Sub returns the distance t-o in milliseconds.
func (t Time) Sub(o Time) float64 { return float64(t) - float64(o) }

// Wall converts t to a wall-clock time in UTC. The result is
// meaningless when t is not valid.
func (t Time) Wall() time.Time {
	ms := float64(t)
	sec := int64(ms / 1000)
	nsec := int64(math.Round((ms - float64(sec)*1000) * 1e6))
	return time.Unix(sec, nsec).UTC()
}

// FromWall converts a wall-clock time to a timeline position.
func FromWall(t time.Time) Time {
	return Time(float64(t.UnixNano()) / 1e6)
}

// Parse converts a textual timestamp to a timeline position. RFC 3339
// is the canonical form; zone-less ISO 8601 strings (emitted by some
// SDK adapters) are accepted and read as UTC. Unparsable input yields
// the Invalid marker.
func Parse(s string) Time {
	layouts := []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05.999999999",
	}
	for _, layout := range layouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return FromWall(ts)
		}
	}
	return Invalid
}

// UnmarshalJSON accepts either a timestamp string or a numeric epoch
// value in milliseconds. Unparsable input decodes to the Invalid
// marker rather than failing the whole document; the anomaly surfaces
// later, at ingest.
func (t *Time) UnmarshalJSON(data []byte) error {
	*t = decodeJSONTime(data)
	return nil
}

// MarshalJSON renders valid times as RFC 3339 strings in UTC and
// invalid times as null.
func (t Time) MarshalJSON() ([]byte, error) {
	if !t.Valid() {
		return []byte("null"), nil
	}
	return []byte(strconv.Quote(t.Wall().Format(time.RFC3339Nano))), nil
}

func decodeJSONTime(data []byte) Time {
	s := string(data)
	if s == "null" {
		return Invalid
	}
	if len(s) >= 2 && s[0] == '"' {
		unquoted, err := strconv.Unquote(s)
		if err != nil {
			return Invalid
		}
		return Parse(unquoted)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Invalid
	}
	return Time(f)
}
