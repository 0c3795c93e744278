package config

import "time"

// DBConfig contains PostgreSQL database configuration.
type DBConfig struct {
	Host     string `env:"HOST"                    envDefault:"localhost"`
	Port     int    `env:"PORT"                    envDefault:"5432"`
	User     string `env:"USER"                    envDefault:"harvester"`
	Password string `env:"PASSWORD"                envDefault:"harvester"`
	Name     string `env:"NAME"                    envDefault:"harvester"`
	SSLMode  string `env:"SSL_MODE"                envDefault:"disable"` // Use 'disable' for local dev, 'require' for production
	// RunMigrationsOnStart controls whether the application automatically applies migrations during startup.
	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`
}

// RedisConfig contains Redis configuration.
type RedisConfig struct {
	// Enabled turns on the seen-hash cache. The pipeline works without Redis.
	Enabled bool `env:"ENABLED" envDefault:"false"`
	// URI is host:port or a redis:// / rediss:// URL carrying credentials, DB and TLS.
	URI      string `env:"URI"      envDefault:"localhost:6379"`
	Password string `env:"PASSWORD" envDefault:""`
	// ClusterNodes seeds the cluster client when UseCluster is set; URI is the fallback seed.
	ClusterNodes []string `env:"CLUSTER_NODES" envDefault:""`
	UseCluster   bool     `env:"USE_CLUSTER"   envDefault:"false"`
}

// CacheConfig contains cache configuration (Redis-based).
type CacheConfig struct {
	// SeenHashTTL is how long an ingested identity hash is remembered in Redis.
	SeenHashTTL time.Duration `env:"CACHE_SEEN_HASH_TTL" envDefault:"72h"`
}

// Sanitize applies guardrails to cache configuration values.
func (c *CacheConfig) Sanitize() {
	if c.SeenHashTTL < time.Minute {
		c.SeenHashTTL = time.Minute
	}
}
