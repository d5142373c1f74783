package etl

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"

	"shopfunnel/internal/sessionize"
)

// ErrBadTimestamp is returned in strict mode when a record's timestamp does
// not parse. In lenient mode (the default) such records are dropped and
// counted instead.
var ErrBadTimestamp = errors.New("etl: unparseable timestamp")

// timestampLayouts are tried in order. The first matches the source's
// format (ISO-8601-like, optional fractional seconds, no zone); the rest
// accept near-matches since the source parser is non-strict.
var timestampLayouts = []string{
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999",
}

// ExtractStats reports what the decoder saw in the source batch.
type ExtractStats struct {
	Lines         int
	Decoded       int
	BadLines      int
	BadTimestamps int
}

// Extract fetches the source URL and decodes its JSON-lines body into raw
// events. It returns the whole bounded batch; the source is consulted once
// per pipeline run.
func Extract(url string, strict bool) ([]sessionize.RawEvent, ExtractStats, error) {
	status, body, err := fasthttp.Get(nil, url)
	if err != nil {
		return nil, ExtractStats{}, fmt.Errorf("fetch %s: %w", url, err)
	}
	if status != fasthttp.StatusOK {
		return nil, ExtractStats{}, fmt.Errorf("fetch %s: unexpected status %d", url, status)
	}
	return decodeBatch(body, strict)
}

// decodeBatch parses a JSON-lines body where each line nests the payload
// under an "event" object with "customer-id", "timestamp" and "type" keys.
// Unknown keys are carried through as attributes. A missing customer id is
// passed along as nil for the partitioner to drop.
func decodeBatch(body []byte, strict bool) ([]sessionize.RawEvent, ExtractStats, error) {
	var stats ExtractStats
	var out []sessionize.RawEvent

	for _, line := range bytes.Split(body, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		stats.Lines++

		var wrapper struct {
			Event map[string]json.RawMessage `json:"event"`
		}
		if err := json.Unmarshal(line, &wrapper); err != nil || wrapper.Event == nil {
			if strict {
				return nil, stats, fmt.Errorf("decode line %d: invalid event payload", stats.Lines)
			}
			stats.BadLines++
			continue
		}

		raw, err := decodeEvent(wrapper.Event)
		if err != nil {
			if strict {
				return nil, stats, fmt.Errorf("decode line %d: %w", stats.Lines, err)
			}
			stats.BadTimestamps++
			continue
		}

		out = append(out, raw)
		stats.Decoded++
	}

	return out, stats, nil
}

func decodeEvent(fields map[string]json.RawMessage) (sessionize.RawEvent, error) {
	var raw sessionize.RawEvent

	for key, value := range fields {
		switch key {
		case "customer-id":
			// null stays nil and is filtered by the partitioner.
			if err := json.Unmarshal(value, &raw.CustomerID); err != nil {
				raw.CustomerID = nil
			}
		case "timestamp":
			var s string
			if err := json.Unmarshal(value, &s); err != nil {
				return raw, ErrBadTimestamp
			}
			ts, err := parseTimestamp(s)
			if err != nil {
				return raw, err
			}
			raw.Timestamp = ts
		case "type":
			_ = json.Unmarshal(value, &raw.Type)
		default:
			var v any
			if err := json.Unmarshal(value, &v); err == nil {
				if raw.Attributes == nil {
					raw.Attributes = make(map[string]any)
				}
				raw.Attributes[key] = v
			}
		}
	}

	if raw.Timestamp.IsZero() {
		return raw, ErrBadTimestamp
	}
	return raw, nil
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrBadTimestamp, s)
}
