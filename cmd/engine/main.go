// Command engine is the composition root: it wires the Entity Extractor,
// Deduplicator, Clustering Engine, Source Reputation Tracker, external
// gateways, persistence, and HTTP/websocket surface into one running
// process.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chainpulse/signal-engine/internal/api"
	"github.com/chainpulse/signal-engine/internal/cluster"
	"github.com/chainpulse/signal-engine/internal/dedup"
	"github.com/chainpulse/signal-engine/internal/extract"
	"github.com/chainpulse/signal-engine/internal/gateway/embedding"
	"github.com/chainpulse/signal-engine/internal/gateway/market"
	"github.com/chainpulse/signal-engine/internal/gateway/summarizer"
	"github.com/chainpulse/signal-engine/internal/jobs"
	"github.com/chainpulse/signal-engine/internal/metrics"
	"github.com/chainpulse/signal-engine/internal/pipeline"
	"github.com/chainpulse/signal-engine/internal/reputation"
	"github.com/chainpulse/signal-engine/internal/scanner"
	"github.com/chainpulse/signal-engine/internal/storage/cache"
	"github.com/chainpulse/signal-engine/internal/storage/db"
	"github.com/chainpulse/signal-engine/pkg/utils/config"
	"github.com/chainpulse/signal-engine/pkg/utils/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.NewLogger(cfg.LogLevel)
	defer log.Sync()

	redisConn, err := cache.NewRedisConnection(cfg.Redis, log)
	if err != nil {
		log.Fatal("failed to connect to redis", err)
	}
	defer redisConn.Close()

	dbConn, err := db.NewConnection(cfg.Database, log)
	if err != nil {
		log.Fatal("failed to connect to database", err)
	}
	defer dbConn.Close()
	sink := db.NewBufferedSink(dbConn, log, 2000)

	embeddingClient := embedding.New(embedding.Config{
		APIKey:  cfg.Oracle.OpenAIAPIKey,
		Timeout: time.Duration(cfg.Oracle.EmbeddingTimeout) * time.Second,
		Cache:   redisConn,
	})
	summarizerClient := summarizer.New(summarizer.Config{
		APIKey:  cfg.Oracle.OpenAIAPIKey,
		Model:   cfg.Oracle.SummarizerModel,
		Timeout: time.Duration(cfg.Oracle.SummarizerTimeout) * time.Second,
	})
	marketClient := market.New()

	extractor := extract.New("solana")
	deduplicator := dedup.New(
		time.Duration(cfg.Signal.DedupWindowSeconds)*time.Second,
		cfg.Signal.SimilarityThreshold,
		dedup.WithEmbeddingOracle(embeddingClient),
	)
	procPipeline := newExtractDedupPipeline(extractor, deduplicator)

	sourceTracker := reputation.New()
	clusterEngine := cluster.New(
		time.Duration(cfg.Signal.ClusterWindowSeconds)*time.Second,
		sourceTracker,
		sink,
	)

	ingest := pipeline.NewIngest(redisConn, log, "signal-engine", "worker-1")

	jobsCfg := jobs.DefaultConfig()
	jobsCfg.BatchInterval = time.Duration(cfg.Signal.BatchIntervalSeconds) * time.Second
	jobsCfg.PriceInterval = time.Duration(cfg.Signal.PriceRefreshSeconds) * time.Second

	scheduler := jobs.New(jobsCfg, log, ingest, procPipeline, clusterEngine, sourceTracker, marketClient, dbConn)

	contextScanner := scanner.New(marketClient, summarizerClient)

	hub := api.NewHub(log)
	metricsRegistry := metrics.NewRegistry()

	server := api.NewServer(cfg.API, clusterEngine, sourceTracker, newScannerAdapter(contextScanner), hub, log)
	server.Router().Handle("/metrics", metricsRegistry.Handler())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := scheduler.Start(ctx); err != nil {
		log.Fatal("failed to start scheduler", err)
	}

	go pushFeedPeriodically(ctx, clusterEngine, hub, metricsRegistry, time.Duration(cfg.Signal.BatchIntervalSeconds)*time.Second)

	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal("api server failed", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	scheduler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)
}

// pushFeedPeriodically republishes every active cluster to websocket
// subscribers on the same cadence as the batch job, so the feed reflects
// the latest scores without the scheduler needing to know about the hub.
func pushFeedPeriodically(ctx context.Context, eng *cluster.Engine, hub *api.Hub, m *metrics.Registry, interval time.Duration) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			clusters := eng.Snapshot()
			m.ClustersActive.Set(float64(len(clusters)))
			m.PushSubscribers.Set(float64(hub.Subscribers()))
			for _, c := range clusters {
				hub.Publish(c)
			}
		}
	}
}
