package db

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"shopfunnel/internal/config"
	"shopfunnel/internal/sessionize"
	"shopfunnel/internal/stage"
)

// ErrStageNotReady indicates the staged object never became visible within
// the configured number of poll attempts.
var ErrStageNotReady = errors.New("db: staged data not visible within poll budget")

const insertBatchSize = 500

// LoadStage polls the staging bucket with a fixed delay until the
// sessionized parquet object is visible, then bulk-copies its rows into the
// events relation. Returns the number of rows loaded.
//
// The load path is append-oriented and runs once at startup; if the events
// relation already holds rows the copy is skipped so a restart does not
// duplicate history.
func LoadStage(ctx context.Context, gdb *gorm.DB, st *stage.Client, cfg *config.Config) (int, error) {
	var count int64
	if err := gdb.WithContext(ctx).Model(&Event{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	if count > 0 {
		log.Printf("events relation already holds %d rows, skipping stage copy", count)
		return 0, nil
	}

	delay := time.Duration(cfg.StagePollSeconds) * time.Second
	for attempt := 1; ; attempt++ {
		ok, err := st.Exists(ctx, cfg.StageKey)
		if err != nil {
			return 0, err
		}
		if ok {
			break
		}
		if cfg.StagePollAttempts > 0 && attempt >= cfg.StagePollAttempts {
			return 0, ErrStageNotReady
		}
		log.Printf("stage object %s not visible yet (attempt %d), sleeping %s", cfg.StageKey, attempt, delay)
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(delay):
		}
	}

	data, err := st.Get(ctx, cfg.StageKey)
	if err != nil {
		return 0, err
	}
	events, err := stage.UnmarshalParquet(data)
	if err != nil {
		return 0, err
	}

	rows := toRows(events)
	if len(rows) == 0 {
		return 0, nil
	}
	if err := gdb.WithContext(ctx).CreateInBatches(&rows, insertBatchSize).Error; err != nil {
		return 0, fmt.Errorf("copy stage into events: %w", err)
	}
	return len(rows), nil
}

// FetchEvents returns the full events relation as segmented events, ordered
// by customer then timestamp.
func FetchEvents(ctx context.Context, gdb *gorm.DB) ([]sessionize.Event, error) {
	var rows []Event
	if err := gdb.WithContext(ctx).
		Order("customer_id asc, timestamp asc, id asc").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("fetch events: %w", err)
	}

	events := make([]sessionize.Event, len(rows))
	for i, r := range rows {
		events[i] = sessionize.Event{
			CustomerID:    r.CustomerID,
			Timestamp:     r.Timestamp,
			TimeDiff:      r.TimeDiff,
			NewSession:    r.NewSession,
			SessionNumber: r.SessionNumber,
			Type:          r.Type,
			Attributes:    map[string]any(r.Attributes),
		}
	}
	return events, nil
}

// FetchRaw returns only the raw columns of the events relation, ready to be
// re-sessionized with a different threshold.
func FetchRaw(ctx context.Context, gdb *gorm.DB) ([]sessionize.RawEvent, error) {
	events, err := FetchEvents(ctx, gdb)
	if err != nil {
		return nil, err
	}

	raw := make([]sessionize.RawEvent, len(events))
	for i := range events {
		id := events[i].CustomerID
		raw[i] = sessionize.RawEvent{
			CustomerID: &id,
			Timestamp:  events[i].Timestamp,
			Type:       events[i].Type,
			Attributes: events[i].Attributes,
		}
	}
	return raw, nil
}

// ReplaceEvents swaps the events relation contents for a freshly segmented
// table in a single transaction, so readers never observe a partially
// re-sessionized state.
func ReplaceEvents(ctx context.Context, gdb *gorm.DB, events []sessionize.Event) error {
	rows := toRows(events)
	return gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&Event{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(&rows, insertBatchSize).Error
	})
}

func toRows(events []sessionize.Event) []Event {
	rows := make([]Event, len(events))
	for i, e := range events {
		rows[i] = Event{
			CustomerID:    e.CustomerID,
			Timestamp:     e.Timestamp,
			TimeDiff:      e.TimeDiff,
			NewSession:    e.NewSession,
			SessionNumber: e.SessionNumber,
			Type:          e.Type,
			Attributes:    datatypes.JSONMap(e.Attributes),
		}
	}
	return rows
}
