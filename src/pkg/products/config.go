package products

import "receipt-impact/src/pkg/config"

// Config is the "matcher" section: where the catalogue lives and how lookups are cached.
type Config struct {
	QdrantAddress   string  `json:"qdrant_address,omitempty"` // host:port of the gRPC endpoint
	ScoreThreshold  float64 `json:"score_threshold,omitempty"`
	Limit           int     `json:"limit,omitempty"`
	CacheEnabled    bool    `json:"cache_enabled,omitempty"`
	RedisURL        string  `json:"redis_url,omitempty"`
	CacheTTLSeconds int     `json:"cache_ttl_seconds,omitempty"`
}

func DefaultValueConfig() Config {
	return Config{
		QdrantAddress:   "localhost:6334",
		ScoreThreshold:  0.75,
		Limit:           3,
		RedisURL:        "redis://localhost:6379/0",
		CacheTTLSeconds: 7 * 24 * 3600,
	}
}

var Cfg Config = DefaultValueConfig()

func InitializeConfig(localConfig *Config) {
	config.Apply(config.GetPackageName(), &Cfg, localConfig, DefaultValueConfig())
}
