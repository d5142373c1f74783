// Package etl runs the one-shot batch pipeline: extract raw events from the
// source URL, sessionize them, and stage the segmented table to the bucket
// as a parquet file for the API server to bulk-copy into Postgres.
package etl

import (
	"context"
	"log"
	"runtime"
	"time"

	"shopfunnel/internal/config"
	"shopfunnel/internal/sessionize"
	"shopfunnel/internal/stage"
)

// Pipeline wires the extract, transform and load steps together.
type Pipeline struct {
	cfg   *config.Config
	stage *stage.Client
}

// NewPipeline creates a pipeline over the given staging client.
func NewPipeline(cfg *config.Config, st *stage.Client) *Pipeline {
	return &Pipeline{cfg: cfg, stage: st}
}

// Run executes one full batch. Any failure aborts the run; there is no
// partially staged output.
func (p *Pipeline) Run(ctx context.Context) error {
	log.Printf("retrieving raw events from %s", p.cfg.SourceURL)
	raw, extractStats, err := Extract(p.cfg.SourceURL, p.cfg.StrictTimestamps)
	if err != nil {
		return err
	}
	log.Printf("decoded %d of %d lines (%d bad lines, %d bad timestamps dropped)",
		extractStats.Decoded, extractStats.Lines, extractStats.BadLines, extractStats.BadTimestamps)

	log.Printf("sessionizing with a session length of %d minutes", p.cfg.SessionLength)
	start := time.Now()
	events, dropStats, err := sessionize.Sessionize(raw, sessionize.Options{
		SessionLength: p.cfg.SessionLength,
		Workers:       runtime.NumCPU(),
	})
	if err != nil {
		return err
	}
	log.Printf("sessionized %d events in %s (%d records without customer id dropped)",
		len(events), time.Since(start), dropStats.NullCustomerID)

	data, err := stage.MarshalParquet(events)
	if err != nil {
		return err
	}

	log.Printf("staging %d bytes to %s", len(data), p.cfg.StageKey)
	return p.stage.Put(ctx, p.cfg.StageKey, data)
}
