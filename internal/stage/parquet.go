package stage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/parquet-go/parquet-go"

	"shopfunnel/internal/sessionize"
)

// StagedEvent is the columnar row schema of the staged sessionized table.
// Timestamps are stored as microseconds since epoch, matching the
// resolution the segmenter computes gaps at. Extra payload fields travel as
// a JSON-encoded string column.
type StagedEvent struct {
	CustomerID    int64   `parquet:"customer_id"`
	Timestamp     int64   `parquet:"timestamp,timestamp(microsecond)"`
	TimeDiff      float64 `parquet:"time_diff"`
	NewSession    int32   `parquet:"new_session"`
	SessionNumber int32   `parquet:"session_number"`
	Type          string  `parquet:"type,dict"`
	Attributes    string  `parquet:"attributes,optional"`
}

// MarshalParquet encodes a segmented event table as a parquet file.
func MarshalParquet(events []sessionize.Event) ([]byte, error) {
	rows := make([]StagedEvent, len(events))
	for i, e := range events {
		attrs := ""
		if len(e.Attributes) > 0 {
			b, err := json.Marshal(e.Attributes)
			if err != nil {
				return nil, fmt.Errorf("encode attributes: %w", err)
			}
			attrs = string(b)
		}
		rows[i] = StagedEvent{
			CustomerID:    e.CustomerID,
			Timestamp:     e.Timestamp.UnixMicro(),
			TimeDiff:      e.TimeDiff,
			NewSession:    int32(e.NewSession),
			SessionNumber: int32(e.SessionNumber),
			Type:          e.Type,
			Attributes:    attrs,
		}
	}

	var buf bytes.Buffer
	w := parquet.NewGenericWriter[StagedEvent](&buf)
	if _, err := w.Write(rows); err != nil {
		return nil, fmt.Errorf("write parquet rows: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalParquet decodes a staged parquet file back into the segmented
// event table.
func UnmarshalParquet(data []byte) ([]sessionize.Event, error) {
	rows, err := parquet.Read[StagedEvent](bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("read parquet rows: %w", err)
	}

	events := make([]sessionize.Event, len(rows))
	for i, r := range rows {
		var attrs map[string]any
		if r.Attributes != "" {
			if err := json.Unmarshal([]byte(r.Attributes), &attrs); err != nil {
				return nil, fmt.Errorf("decode attributes: %w", err)
			}
		}
		events[i] = sessionize.Event{
			CustomerID:    r.CustomerID,
			Timestamp:     time.UnixMicro(r.Timestamp).UTC(),
			TimeDiff:      r.TimeDiff,
			NewSession:    int(r.NewSession),
			SessionNumber: int(r.SessionNumber),
			Type:          r.Type,
			Attributes:    attrs,
		}
	}
	return events, nil
}
