package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/chainpulse/signal-engine/pkg/models"
	"github.com/chainpulse/signal-engine/pkg/utils/config"
	"github.com/chainpulse/signal-engine/pkg/utils/logger"
)

// Connection représente une connexion à la base de données
type Connection struct {
	pool   *pgxpool.Pool
	logger *logger.Logger
	config *config.DatabaseConfig
}

// NewConnection crée une nouvelle connexion à la base de données et
// s'assure que les tables de persistance append-only existent.
func NewConnection(cfg *config.DatabaseConfig, log *logger.Logger) (*Connection, error) {
	connStr := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name, cfg.SSLMode)

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("erreur lors de l'analyse de la configuration de la pool: %w", err)
	}

	// Configurer la pool de connexions
	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = time.Duration(cfg.MaxConnLifetime) * time.Second
	poolConfig.MaxConnIdleTime = time.Duration(cfg.MaxConnIdleTime) * time.Second
	poolConfig.HealthCheckPeriod = time.Duration(cfg.HealthCheckPeriod) * time.Second

	// Créer la pool de connexions
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("erreur lors de la création de la pool de connexions: %w", err)
	}

	// Tester la connexion
	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("erreur lors du ping de la base de données: %w", err)
	}

	conn := &Connection{pool: pool, logger: log, config: cfg}
	if err := conn.ensureSchema(context.Background()); err != nil {
		pool.Close()
		return nil, err
	}

	log.Info("Connexion à la base de données établie avec succès")

	return conn, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS retired_clusters (
	id                 TEXT PRIMARY KEY,
	token_address      TEXT,
	token_symbol       TEXT,
	chain              TEXT,
	first_seen         TIMESTAMPTZ NOT NULL,
	last_seen          TIMESTAMPTZ NOT NULL,
	peak_activity_time TIMESTAMPTZ,
	total_mentions     INT NOT NULL,
	unique_sources     INT NOT NULL,
	unique_wallets     INT NOT NULL,
	priority_score     DOUBLE PRECISION NOT NULL,
	confidence_score   DOUBLE PRECISION NOT NULL,
	price_at_mention   DOUBLE PRECISION,
	price_at_peak      DOUBLE PRECISION,
	price_current      DOUBLE PRECISION,
	source_ids         JSONB NOT NULL,
	retired_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS source_stats_snapshots (
	id              BIGSERIAL PRIMARY KEY,
	source_id       TEXT NOT NULL,
	source_name     TEXT NOT NULL,
	source_type     TEXT NOT NULL,
	trust_score     DOUBLE PRECISION NOT NULL,
	hit_rate        DOUBLE PRECISION NOT NULL,
	total_calls     INT NOT NULL,
	failed_calls    INT NOT NULL,
	avg_return      DOUBLE PRECISION NOT NULL,
	is_flagged      BOOLEAN NOT NULL,
	flag_reason     TEXT,
	snapshot_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_source_stats_snapshots_source_id
	ON source_stats_snapshots (source_id, snapshot_at DESC);
`

func (c *Connection) ensureSchema(ctx context.Context) error {
	if _, err := c.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("erreur lors de la création du schéma: %w", err)
	}
	return nil
}

// Close ferme la connexion à la base de données
func (c *Connection) Close() {
	c.logger.Info("Fermeture de la connexion à la base de données")
	c.pool.Close()
}

// GetPool retourne la pool de connexions
func (c *Connection) GetPool() *pgxpool.Pool {
	return c.pool
}

// Begin démarre une nouvelle transaction
func (c *Connection) Begin(ctx context.Context) (pgx.Tx, error) {
	return c.pool.Begin(ctx)
}

// Exec exécute une requête SQL sans retour de résultats
func (c *Connection) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	return c.pool.Exec(ctx, sql, args...)
}

// Query exécute une requête SQL et retourne les résultats
func (c *Connection) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	return c.pool.Query(ctx, sql, args...)
}

// QueryRow exécute une requête SQL et retourne une seule ligne de résultats
func (c *Connection) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	return c.pool.QueryRow(ctx, sql, args...)
}

// OptimizeIndexes optimise les index de la base de données
func (c *Connection) OptimizeIndexes() error {
	ctx := context.Background()
	c.logger.Info("Optimisation des index de la base de données")

	_, err := c.pool.Exec(ctx, "ANALYZE")
	if err != nil {
		return fmt.Errorf("erreur lors de l'optimisation des index: %w", err)
	}

	return nil
}

// StoreCluster persists a retired cluster's final state. Satisfies
// jobs.PersistenceSink.
func (c *Connection) StoreCluster(ctx context.Context, cl *models.Cluster) error {
	sourceIDs := make([]string, 0, len(cl.SourceIDs))
	for id := range cl.SourceIDs {
		sourceIDs = append(sourceIDs, id)
	}
	idsJSON, err := json.Marshal(sourceIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal source ids: %w", err)
	}

	_, err = c.pool.Exec(ctx, `
		INSERT INTO retired_clusters (
			id, token_address, token_symbol, chain, first_seen, last_seen,
			peak_activity_time, total_mentions, unique_sources, unique_wallets,
			priority_score, confidence_score, price_at_mention, price_at_peak,
			price_current, source_ids
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		ON CONFLICT (id) DO UPDATE SET
			last_seen = $6, total_mentions = $8, unique_sources = $9,
			unique_wallets = $10, priority_score = $11, confidence_score = $12,
			price_current = $15
	`,
		cl.ID, cl.TokenAddress, cl.TokenSymbol, cl.Chain,
		cl.Timestamps.FirstSeen, cl.Timestamps.LastSeen, cl.Timestamps.PeakActivityTime,
		cl.Counters.TotalMentions, len(cl.SourceIDs), len(cl.WalletAddrs),
		cl.Scores.Priority, cl.Scores.Confidence,
		cl.Prices.AtFirstMention, cl.Prices.AtPeak, cl.Prices.Current,
		idsJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to store retired cluster: %w", err)
	}
	return nil
}

// StoreSourceSnapshot persists a point-in-time snapshot of a source's
// reputation. Satisfies jobs.PersistenceSink.
func (c *Connection) StoreSourceSnapshot(ctx context.Context, s *models.SourceStats) error {
	_, err := c.pool.Exec(ctx, `
		INSERT INTO source_stats_snapshots (
			source_id, source_name, source_type, trust_score, hit_rate,
			total_calls, failed_calls, avg_return, is_flagged, flag_reason
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`,
		s.TelegramID, s.Name, s.SourceType, s.TrustScore, s.HitRate,
		s.TotalCalls, s.FailedCalls, s.AvgReturn, s.IsFlagged, s.FlagReason,
	)
	if err != nil {
		return fmt.Errorf("failed to store source snapshot: %w", err)
	}
	return nil
}

// Retire satisfies cluster.Sink by persisting the cluster on retirement.
// Failures are logged, not returned: losing one retirement record must
// never block the engine from freeing the cluster's memory.
func (c *Connection) Retire(cl *models.Cluster) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.StoreCluster(ctx, cl); err != nil {
		c.logger.Warning("failed to persist retired cluster", map[string]interface{}{
			"cluster_id": cl.ID,
			"error":      err.Error(),
		})
	}
}
