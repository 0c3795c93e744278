package bootstrap

import (
	"context"
	"crypto/tls"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the pgx database/sql driver
	"github.com/redis/go-redis/v9"
	"github.com/target/harvester/config"
	"github.com/target/harvester/internal/migrate"
)

const connectTimeout = 5 * time.Second

// DatabaseConfig contains configuration for database connections.
type DatabaseConfig struct {
	DBConfig    config.DBConfig
	RedisConfig config.RedisConfig
	Logger      *slog.Logger
}

// ConnectDB opens the pgx-backed pool and verifies it with a ping.
func ConnectDB(cfg DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("pgx", postgresDSN(cfg.DBConfig))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if pingErr := db.PingContext(ctx); pingErr != nil {
		if closeErr := db.Close(); closeErr != nil {
			pingErr = errors.Join(pingErr, fmt.Errorf("close database connection: %w", closeErr))
		}
		return nil, fmt.Errorf("ping database: %w", pingErr)
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("database connected",
			"host", cfg.DBConfig.Host,
			"port", cfg.DBConfig.Port,
			"database", cfg.DBConfig.Name,
		)
	}

	return db, nil
}

// postgresDSN builds the URL form so special characters in credentials survive.
func postgresDSN(cfg config.DBConfig) string {
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:   "/" + cfg.Name,
	}
	q := u.Query()
	q.Set("sslmode", cfg.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// ConnectRedis connects the seen-hash cache backend. It returns a nil client
// when Redis is disabled.
//
//nolint:ireturn // the cache accepts either a single-node or a cluster client.
func ConnectRedis(cfg DatabaseConfig) (redis.UniversalClient, error) {
	if !cfg.RedisConfig.Enabled {
		return nil, nil
	}

	target, err := parseRedisTarget(cfg.RedisConfig)
	if err != nil {
		return nil, err
	}
	client := target.newClient()

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if pingErr := client.Ping(ctx).Err(); pingErr != nil {
		if closeErr := client.Close(); closeErr != nil {
			pingErr = errors.Join(pingErr, fmt.Errorf("close redis client: %w", closeErr))
		}
		return nil, fmt.Errorf("ping redis %s: %w", target, pingErr)
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("redis connected", "target", target.String())
	}
	return client, nil
}

// redisTarget is where the seen-hash cache lives. Credentials come from the
// redis:// URI when present, else from REDIS_PASSWORD.
type redisTarget struct {
	cluster  bool
	addrs    []string
	username string
	password string
	db       int
	tls      *tls.Config
}

func parseRedisTarget(cfg config.RedisConfig) (redisTarget, error) {
	t := redisTarget{cluster: cfg.UseCluster, password: cfg.Password}
	if t.cluster {
		for _, n := range cfg.ClusterNodes {
			if n = strings.TrimSpace(n); n != "" {
				t.addrs = append(t.addrs, n)
			}
		}
	}

	uri := strings.TrimSpace(cfg.URI)
	if strings.HasPrefix(uri, "redis://") || strings.HasPrefix(uri, "rediss://") {
		opt, err := redis.ParseURL(uri)
		if err != nil {
			return redisTarget{}, fmt.Errorf("parse redis url: %w", err)
		}
		t.username = opt.Username
		if opt.Password != "" {
			t.password = opt.Password
		}
		t.db = opt.DB
		t.tls = opt.TLSConfig
		uri = opt.Addr
	}
	if len(t.addrs) == 0 && uri != "" {
		t.addrs = []string{uri}
	}

	if len(t.addrs) == 0 {
		return redisTarget{}, errors.New("redis needs REDIS_URI or, in cluster mode, REDIS_CLUSTER_NODES")
	}
	if t.cluster && t.db != 0 {
		return redisTarget{}, errors.New("redis cluster does not support selecting a database")
	}
	return t, nil
}

//nolint:ireturn // see ConnectRedis.
func (t redisTarget) newClient() redis.UniversalClient {
	if t.cluster {
		return redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:     t.addrs,
			Username:  t.username,
			Password:  t.password,
			TLSConfig: t.tls,
		})
	}
	return redis.NewClient(&redis.Options{
		Addr:      t.addrs[0],
		Username:  t.username,
		Password:  t.password,
		DB:        t.db,
		TLSConfig: t.tls,
	})
}

// String describes the target without credentials.
func (t redisTarget) String() string {
	if t.cluster {
		return "cluster:" + strings.Join(t.addrs, ",")
	}
	return t.addrs[0]
}

// RunMigrations applies pending goose migrations.
func RunMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if err := migrate.RunWithLogger(ctx, db, logger); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	version, err := migrate.Version(ctx, db)
	if err != nil {
		return err
	}
	logger.InfoContext(ctx, "database migrations completed", "version", version)
	return nil
}
