// Package jobs runs the periodic batch-processing and maintenance work
// spec.md §4.7 describes: the hot-path batch drain plus the slower price
// refresh, outcome computation, snapshot persistence, and retirement
// sweeps.
package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/chainpulse/signal-engine/internal/cluster"
	"github.com/chainpulse/signal-engine/internal/reputation"
	"github.com/chainpulse/signal-engine/pkg/models"
	"github.com/chainpulse/signal-engine/pkg/utils/logger"
)

// BatchSource drains whatever raw messages have queued up since the last
// call, returning immediately with however many are available.
type BatchSource interface {
	Drain(ctx context.Context) []models.RawMessage
}

// Pipeline runs extraction and deduplication (spec.md §4.1/§4.2) over a
// raw batch, returning the processed, non-duplicate messages.
type Pipeline interface {
	Process(ctx context.Context, raw []models.RawMessage) []models.ProcessedMessage
}

// PriceOracle looks up live market data for a token address.
type PriceOracle interface {
	Lookup(ctx context.Context, address, chain string) (*models.MarketData, error)
}

// PersistenceSink receives durable snapshots of retired clusters and
// source stats.
type PersistenceSink interface {
	StoreCluster(ctx context.Context, c *models.Cluster) error
	StoreSourceSnapshot(ctx context.Context, s *models.SourceStats) error
}

// Config holds the configurable cadences, all with the spec.md §4.7
// defaults.
type Config struct {
	BatchInterval     time.Duration
	PriceInterval     time.Duration
	OutcomeCron       string
	PersistCron       string
	RetireCron        string
	OutcomeMinAge     time.Duration
	OutcomeMaxAge     time.Duration
}

// DefaultConfig returns the spec.md §4.7 default cadences.
func DefaultConfig() Config {
	return Config{
		BatchInterval: 2 * time.Second,
		PriceInterval: 60 * time.Second,
		OutcomeCron:   "*/5 * * * *",
		PersistCron:   "*/15 * * * *",
		RetireCron:    "0 * * * *",
		OutcomeMinAge: 60 * time.Minute,
		OutcomeMaxAge: 66 * time.Minute,
	}
}

// Scheduler owns the single-writer periodic loop. It holds no business
// logic of its own beyond the call-only filter for Source Tracker
// feeding (spec.md §4.7's "for call classifications only").
type Scheduler struct {
	cfg Config
	log *logger.Logger

	source  BatchSource
	pipe    Pipeline
	cluster *cluster.Engine
	sources *reputation.Tracker
	prices  PriceOracle
	sink    PersistenceSink

	cron *cron.Cron

	wg   sync.WaitGroup
	stop chan struct{}
}

// New wires a Scheduler. prices and sink may be nil: a nil PriceOracle
// skips the refresh job, a nil PersistenceSink skips the source-stats
// snapshots. Retirement runs either way; where retired clusters are stored
// is decided by the cluster engine's own Sink, not by this one.
func New(cfg Config, log *logger.Logger, source BatchSource, pipe Pipeline, eng *cluster.Engine, sources *reputation.Tracker, prices PriceOracle, sink PersistenceSink) *Scheduler {
	return &Scheduler{
		cfg:     cfg,
		log:     log,
		source:  source,
		pipe:    pipe,
		cluster: eng,
		sources: sources,
		prices:  prices,
		sink:    sink,
		cron:    cron.New(),
		stop:    make(chan struct{}),
	}
}

// Start launches the batch-drain and price-refresh tickers plus the
// cron-scheduled maintenance jobs. It returns immediately; call Stop to
// shut everything down.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.cfg.OutcomeCron, func() { s.runOutcomes(ctx) }); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(s.cfg.PersistCron, func() { s.runPersist(ctx) }); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(s.cfg.RetireCron, func() { s.runRetire(ctx) }); err != nil {
		return err
	}
	s.cron.Start()

	s.wg.Add(1)
	go s.runTicker(ctx, s.cfg.BatchInterval, s.runBatch)

	if s.prices != nil {
		s.wg.Add(1)
		go s.runTicker(ctx, s.cfg.PriceInterval, s.runPriceRefresh)
	}

	return nil
}

// Stop halts the cron scheduler and every ticker goroutine, waiting for
// in-flight work to finish draining.
func (s *Scheduler) Stop() {
	close(s.stop)
	cronCtx := s.cron.Stop()
	<-cronCtx.Done()
	s.wg.Wait()
}

func (s *Scheduler) runTicker(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	defer s.wg.Done()
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		case <-t.C:
			fn(ctx)
		}
	}
}

func (s *Scheduler) runBatch(ctx context.Context) {
	raw := s.source.Drain(ctx)
	if len(raw) == 0 {
		return
	}

	processed := s.pipe.Process(ctx, raw)
	now := time.Now()

	for _, pm := range processed {
		s.cluster.Add(pm, now)

		if pm.Classification != models.ClassificationCall {
			continue
		}
		s.sources.RecordCall(pm.SourceID, pm.SourceName, "channel", now)
	}
}

func (s *Scheduler) runPriceRefresh(ctx context.Context) {
	targets := s.cluster.PriceTargets()
	now := time.Now()
	for _, t := range targets {
		data, err := s.prices.Lookup(ctx, t.Address, t.Chain)
		if err != nil || data == nil {
			continue
		}
		s.cluster.UpdatePrice(t.Key, data.PriceUSD, now)
	}
}

func (s *Scheduler) runOutcomes(ctx context.Context) {
	now := time.Now()
	aged := s.cluster.AgedForOutcome(now, s.cfg.OutcomeMinAge, s.cfg.OutcomeMaxAge)

	for _, c := range aged {
		if c.Prices.AtFirstMention <= 0 || c.Prices.Current <= 0 {
			s.cluster.MarkOutcomeComputed(c.Key())
			continue
		}

		returnFraction := (c.Prices.Current - c.Prices.AtFirstMention) / c.Prices.AtFirstMention
		timeToMove := now.Sub(c.Timestamps.FirstSeen)
		for sourceID := range c.SourceIDs {
			s.sources.RecordOutcome(sourceID, returnFraction, timeToMove)
		}
		s.cluster.MarkOutcomeComputed(c.Key())
	}
}

func (s *Scheduler) runPersist(ctx context.Context) {
	if s.sink == nil {
		return
	}
	for _, snap := range s.sources.Leaderboard(0, 0, true) {
		snapCopy := snap
		if err := s.sink.StoreSourceSnapshot(ctx, &snapCopy); err != nil && s.log != nil {
			s.log.Warning("source_snapshot_persist_failed", map[string]interface{}{"source_id": snap.TelegramID, "error": err.Error()})
		}
	}
}

func (s *Scheduler) runRetire(_ context.Context) {
	now := time.Now()
	retired := s.cluster.RetireExpired(now)
	if s.log != nil && retired > 0 {
		s.log.Info("clusters_retired", map[string]interface{}{"count": retired})
	}
}
