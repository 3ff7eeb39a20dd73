package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config est la structure principale de configuration de l'application
type Config struct {
	LogLevel string          `mapstructure:"log_level"`
	API      *APIConfig      `mapstructure:"api"`
	Database *DatabaseConfig `mapstructure:"database"`
	Redis    *RedisConfig    `mapstructure:"redis"`
	Oracle   *OracleConfig   `mapstructure:"oracle"`
	Signal   *SignalConfig   `mapstructure:"signal"`
}

// APIConfig contient la configuration du serveur API
type APIConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	ReadTimeout    int    `mapstructure:"read_timeout"`
	WriteTimeout   int    `mapstructure:"write_timeout"`
	MaxHeaderBytes int    `mapstructure:"max_header_bytes"`
}

// DatabaseConfig contient la configuration de la base de données
type DatabaseConfig struct {
	Host              string `mapstructure:"host"`
	Port              int    `mapstructure:"port"`
	User              string `mapstructure:"user"`
	Password          string `mapstructure:"password"`
	Database          string `mapstructure:"database"`
	Name              string `mapstructure:"name"`
	SSLMode           string `mapstructure:"ssl_mode"`
	MaxConnections    int    `mapstructure:"max_connections"`
	MinConnections    int    `mapstructure:"min_connections"`
	MaxConnLifetime   int    `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   int    `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod int    `mapstructure:"health_check_period"`
}

// RedisConfig contient la configuration de Redis
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// OracleConfig contient la configuration des passerelles externes
// (embeddings, résumé conversationnel, données de marché).
type OracleConfig struct {
	OpenAIAPIKey      string `mapstructure:"openai_api_key"`
	EmbeddingModel    string `mapstructure:"embedding_model"`
	SummarizerModel   string `mapstructure:"summarizer_model"`
	EmbeddingTimeout  int    `mapstructure:"embedding_timeout_seconds"`
	SummarizerTimeout int    `mapstructure:"summarizer_timeout_seconds"`
	MarketTimeout     int    `mapstructure:"market_timeout_seconds"`
}

// SignalConfig contient les seuils et fenêtres propres au moteur de
// renseignement (déduplication, clustering, scoring).
type SignalConfig struct {
	DedupWindowSeconds     int     `mapstructure:"dedup_window_seconds"`
	SimilarityThreshold    float64 `mapstructure:"similarity_threshold"`
	ClusterWindowSeconds   int     `mapstructure:"cluster_window_seconds"`
	ClusterMaxAgeMinutes   int     `mapstructure:"cluster_max_age_minutes"`
	SourceDiversityWeight  float64 `mapstructure:"source_diversity_weight"`
	RecencyWeight          float64 `mapstructure:"recency_weight"`
	VelocityWeight         float64 `mapstructure:"velocity_weight"`
	WalletActivityWeight   float64 `mapstructure:"wallet_activity_weight"`
	SourceQualityWeight    float64 `mapstructure:"source_quality_weight"`
	SpamPenaltyWeight      float64 `mapstructure:"spam_penalty_weight"`
	BatchIntervalSeconds   int     `mapstructure:"batch_interval_seconds"`
	PriceRefreshSeconds    int     `mapstructure:"price_refresh_seconds"`
}

// Load charge la configuration à partir d'un fichier
func Load() (*Config, error) {
	// Régler les valeurs par défaut
	setDefaults()

	// Déterminer l'environnement
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	// Configurer Viper
	viper.SetConfigName("config")              // nom du fichier de configuration
	viper.SetConfigType("yaml")                // format du fichier de configuration
	viper.AddConfigPath(".")                   // chercher dans le répertoire courant
	viper.AddConfigPath("./config")             // chercher dans ./config
	viper.AddConfigPath("../config")            // chercher dans ../config
	viper.AddConfigPath("/etc/signal-engine")   // chercher dans /etc/signal-engine

	// Permettre la surcharge par les variables d'environnement
	viper.AutomaticEnv()

	// Lire la configuration
	if err := viper.ReadInConfig(); err != nil {
		// Si le fichier de configuration n'existe pas, c'est OK, on utilise les valeurs par défaut
		// et les variables d'environnement
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("erreur lors de la lecture du fichier de configuration: %w", err)
		}
	}

	// Charger la configuration spécifique à l'environnement
	envConfigFile := fmt.Sprintf("config.%s", env)
	viper.SetConfigName(envConfigFile)
	if err := viper.MergeInConfig(); err != nil {
		// Ignorer si le fichier spécifique à l'environnement n'existe pas
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("erreur lors de la lecture du fichier de configuration d'environnement: %w", err)
		}
	}

	// Charger la configuration dans la structure
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("impossible de décoder la configuration: %w", err)
	}

	return &config, nil
}

// setDefaults définit les valeurs par défaut pour la configuration
func setDefaults() {
	// Valeurs par défaut générales
	viper.SetDefault("log_level", "info")

	// Valeurs par défaut pour l'API
	viper.SetDefault("api.host", "0.0.0.0")
	viper.SetDefault("api.port", 8080)
	viper.SetDefault("api.read_timeout", 30)
	viper.SetDefault("api.write_timeout", 30)
	viper.SetDefault("api.max_header_bytes", 1048576) // 1MB

	// Valeurs par défaut pour la base de données
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.database", "signal_engine")
	viper.SetDefault("database.name", "signal_engine")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.max_connections", 20)
	viper.SetDefault("database.min_connections", 5)
	viper.SetDefault("database.max_conn_lifetime", 3600)
	viper.SetDefault("database.max_conn_idle_time", 1800)
	viper.SetDefault("database.health_check_period", 60)

	// Valeurs par défaut pour Redis
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.pool_size", 10)

	// Valeurs par défaut pour les passerelles externes
	viper.SetDefault("oracle.openai_api_key", "")
	viper.SetDefault("oracle.embedding_model", "text-embedding-ada-002")
	viper.SetDefault("oracle.summarizer_model", "gpt-3.5-turbo")
	viper.SetDefault("oracle.embedding_timeout_seconds", 10)
	viper.SetDefault("oracle.summarizer_timeout_seconds", 20)
	viper.SetDefault("oracle.market_timeout_seconds", 30)

	// Valeurs par défaut pour le moteur de signal
	viper.SetDefault("signal.dedup_window_seconds", 300)
	viper.SetDefault("signal.similarity_threshold", 0.85)
	viper.SetDefault("signal.cluster_window_seconds", 1800)
	viper.SetDefault("signal.cluster_max_age_minutes", 60)
	viper.SetDefault("signal.source_diversity_weight", 25)
	viper.SetDefault("signal.recency_weight", 20)
	viper.SetDefault("signal.velocity_weight", 20)
	viper.SetDefault("signal.wallet_activity_weight", 15)
	viper.SetDefault("signal.source_quality_weight", 20)
	viper.SetDefault("signal.spam_penalty_weight", -30)
	viper.SetDefault("signal.batch_interval_seconds", 2)
	viper.SetDefault("signal.price_refresh_seconds", 60)
}
