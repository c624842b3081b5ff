// Package signature computes and verifies the HMAC-SHA256 tag attached to
// health-data payloads by the mobile app.
//
// # Canonical signing input
//
// Signer and verifier must hash byte-identical input, so the raw payload is
// rendered with fixed rules:
//
//   - JSON-shaped text with no insignificant whitespace.
//   - Object keys sorted in ascending byte order at every level.
//   - Timestamps converted to UTC and rendered as 2006-01-02T15:04:05.000Z
//     (always three fractional digits, literal Z). Sub-millisecond detail is
//     not signed; see health.RawHealthData.Truncated.
//   - Numbers rendered as the shortest decimal that round-trips, never in
//     exponent form and without trailing zeros. Negative zero renders as 0.
//   - Strings JSON-escaped, without HTML escaping.
//   - The signature and version fields are not part of the input.
package signature

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/fantasylifeleague/healthapi/internal/health"
)

// TimestampLayout is the canonical rendering of timestamps.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// object is an unordered set of members; keys are sorted when written.
type object map[string]any

// Canonicalize returns the canonical signing input for a raw payload.
func Canonicalize(raw health.RawHealthData) []byte {
	var buf bytes.Buffer
	writeValue(&buf, rawObject(raw))
	return buf.Bytes()
}

func rawObject(raw health.RawHealthData) object {
	workouts := make([]any, 0, len(raw.Workouts))
	for _, w := range raw.Workouts {
		workouts = append(workouts, object{
			"type":      w.Type,
			"duration":  w.Duration,
			"calories":  w.Calories,
			"distance":  w.Distance,
			"startDate": w.StartDate,
			"endDate":   w.EndDate,
			"source":    w.Source,
		})
	}

	readings := make([]any, 0, len(raw.HeartRateReadings))
	for _, r := range raw.HeartRateReadings {
		readings = append(readings, object{
			"bpm":       r.BPM,
			"timestamp": r.Timestamp,
		})
	}

	return object{
		"date":              raw.Date,
		"steps":             raw.Steps,
		"calories":          raw.Calories,
		"distance":          raw.Distance,
		"workouts":          workouts,
		"heartRateReadings": readings,
		"deviceInfo": object{
			"model":               raw.DeviceInfo.Model,
			"systemVersion":       raw.DeviceInfo.SystemVersion,
			"identifierForVendor": raw.DeviceInfo.IdentifierForVendor,
		},
		"timestamp": raw.Timestamp,
	}
}

func writeValue(buf *bytes.Buffer, v any) {
	switch val := v.(type) {
	case object:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeString(buf, k)
			buf.WriteByte(':')
			writeValue(buf, val[k])
		}
		buf.WriteByte('}')
	case []any:
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeValue(buf, item)
		}
		buf.WriteByte(']')
	case string:
		writeString(buf, val)
	case int:
		buf.WriteString(strconv.Itoa(val))
	case float64:
		buf.WriteString(FormatNumber(val))
	case time.Time:
		writeString(buf, FormatTimestamp(val))
	default:
		// Verify recovers, so a field added without a rule fails closed.
		panic(fmt.Sprintf("signature: no canonical form for %T", v))
	}
}

func writeString(buf *bytes.Buffer, s string) {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	// Encoding a string cannot fail.
	_ = enc.Encode(s)
	// Encode terminates every value with a newline.
	buf.Truncate(buf.Len() - 1)
}

// FormatNumber renders a number in canonical decimal form.
func FormatNumber(v float64) string {
	if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatTimestamp renders a timestamp in canonical form.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
