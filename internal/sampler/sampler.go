// Package sampler drives the fixed-cadence sample loop.
package sampler

import (
	"context"
	"time"

	"hwpulse/internal/collector"
	"hwpulse/internal/logger"
)

// Engine is the capture-and-delta core driven once per tick.
type Engine interface {
	Columns() []string
	Capture() collector.Snapshot
	Compute(prev, curr collector.Snapshot, seq uint64) collector.Record
}

// Sink receives the per-tick records. Begin is called exactly once, before
// the first tick, with the schema in discovery order.
type Sink interface {
	Begin(columns []string) error
	Write(rec collector.Record) error
}

// Sampler runs the loop at a fixed period anchored to absolute wake times:
// each iteration does the tick's work, advances the anchor by exactly one
// interval, and blocks until the anchor. Relative sleeps would accumulate
// the work's own cost as drift; the anchor does not.
type Sampler struct {
	log      logger.Logger
	eng      Engine
	sinks    []Sink
	interval time.Duration
	count    uint64 // 0 means unbounded
}

func New(log logger.Logger, eng Engine, interval time.Duration, count uint64, sinks ...Sink) *Sampler {
	return &Sampler{
		log:      log,
		eng:      eng,
		sinks:    sinks,
		interval: interval,
		count:    count,
	}
}

// Run samples until the configured count is reached or ctx is cancelled.
// Cancellation is honored at loop-top and inside the wait; an in-flight
// tick is discarded whole, so sinks never see a partial record.
func (s *Sampler) Run(ctx context.Context) error {
	for _, sink := range s.sinks {
		if err := sink.Begin(s.eng.Columns()); err != nil {
			return err
		}
	}

	s.log.Info("sampler started", "interval", s.interval, "samples", s.count)

	// The anchor predates the priming capture so the first wait absorbs
	// its cost instead of shifting every subsequent tick.
	anchor := time.Now()
	prev := s.eng.Capture()

	for seq := uint64(1); s.count == 0 || seq <= s.count; seq++ {
		anchor = anchor.Add(s.interval)
		if err := waitUntil(ctx, anchor); err != nil {
			s.log.Info("sampler cancelled mid-wait")
			return err
		}

		curr := s.eng.Capture()
		rec := s.eng.Compute(prev, curr, seq)

		// Cancellation between capture and hand-off discards the tick.
		if err := ctx.Err(); err != nil {
			s.log.Info("sampler cancelled, discarding in-flight tick", "seq", seq)
			return err
		}

		for _, sink := range s.sinks {
			if err := sink.Write(rec); err != nil {
				s.log.Warn("sink write failed", "seq", seq, "error", err)
			}
		}

		prev = curr
	}

	s.log.Info("sample count reached", "samples", s.count)
	return nil
}

// waitUntil blocks until the absolute anchor time or cancellation. A tick
// that overran its interval proceeds immediately without re-anchoring.
func waitUntil(ctx context.Context, anchor time.Time) error {
	d := time.Until(anchor)
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
