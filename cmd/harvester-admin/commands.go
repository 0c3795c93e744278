package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/target/harvester/internal/bootstrap"
	"github.com/target/harvester/internal/data"
	"github.com/target/harvester/internal/devseed"
	"github.com/target/harvester/internal/domain/model"
	"github.com/target/harvester/internal/migrate"
	"github.com/target/harvester/internal/service"
)

type migrateOptions struct {
	Timeout time.Duration
}

func parseMigrateFlags(args []string) (migrateOptions, error) {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := migrateOptions{}
	fs.DurationVar(&opts.Timeout, "timeout", defaultMigrationTimeout, "Maximum duration to wait for migrations to complete")
	if err := fs.Parse(args); err != nil {
		return migrateOptions{}, err
	}
	if opts.Timeout <= 0 {
		return migrateOptions{}, errors.New("--timeout must be greater than zero")
	}
	return opts, nil
}

func connectDB(cmdCtx *commandContext) (*sql.DB, func(), error) {
	db, err := bootstrap.ConnectDB(bootstrap.DatabaseConfig{
		DBConfig: cmdCtx.Config.Postgres,
		Logger:   cmdCtx.Logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect db: %w", err)
	}
	return db, func() {
		if closeErr := db.Close(); closeErr != nil {
			cmdCtx.Logger.Warn("db close failed", "error", closeErr)
		}
	}, nil
}

func runMigrations(cmdCtx *commandContext, args []string) error {
	opts, err := parseMigrateFlags(args)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, opts.Timeout)
	defer cancel()

	db, closeDB, err := connectDB(cmdCtx)
	if err != nil {
		return err
	}
	defer closeDB()

	cmdCtx.Logger.Info("running database migrations")
	if migrateErr := bootstrap.RunMigrations(ctx, db, cmdCtx.Logger); migrateErr != nil {
		return fmt.Errorf("run migrations: %w", migrateErr)
	}
	cmdCtx.Logger.Info("migrations completed successfully")
	return nil
}

func runDBSeed(cmdCtx *commandContext, args []string) error {
	opts, err := parseMigrateFlags(args)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, opts.Timeout)
	defer cancel()

	db, closeDB, err := connectDB(cmdCtx)
	if err != nil {
		return err
	}
	defer closeDB()

	if migrateErr := bootstrap.RunMigrations(ctx, db, cmdCtx.Logger); migrateErr != nil {
		return fmt.Errorf("run migrations: %w", migrateErr)
	}
	if _, seedErr := devseed.Run(ctx, devseed.NewServices(db), cmdCtx.Logger); seedErr != nil {
		return fmt.Errorf("seed sources: %w", seedErr)
	}
	cmdCtx.Logger.Info("development data seeded")
	return nil
}

func runMigrateVersion(cmdCtx *commandContext, _ []string) error {
	db, closeDB, err := connectDB(cmdCtx)
	if err != nil {
		return err
	}
	defer closeDB()

	version, err := migrate.Version(cmdCtx.Ctx, db)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	return writeTo(cmdCtx.Out, "%d\n", version)
}

type listSourcesOptions struct {
	Limit  int
	Offset int
	JSON   bool
}

func parseListSourcesFlags(args []string) (listSourcesOptions, error) {
	fs := flag.NewFlagSet("list-sources", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := listSourcesOptions{}
	fs.IntVar(&opts.Limit, "limit", 100, "Maximum number of sources to list")
	fs.IntVar(&opts.Offset, "offset", 0, "Number of sources to skip")
	fs.BoolVar(&opts.JSON, "json", false, "Print JSON instead of a table")
	if err := fs.Parse(args); err != nil {
		return listSourcesOptions{}, err
	}
	if opts.Limit <= 0 || opts.Offset < 0 {
		return listSourcesOptions{}, errors.New("--limit must be positive and --offset non-negative")
	}
	return opts, nil
}

func runListSources(cmdCtx *commandContext, args []string) error {
	opts, err := parseListSourcesFlags(args)
	if err != nil {
		return err
	}
	db, closeDB, err := connectDB(cmdCtx)
	if err != nil {
		return err
	}
	defer closeDB()

	sources, err := data.NewSourceRepo(db).List(cmdCtx.Ctx, opts.Limit, opts.Offset)
	if err != nil {
		return fmt.Errorf("list sources: %w", err)
	}
	if opts.JSON {
		enc := json.NewEncoder(cmdCtx.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(sources)
	}
	return printSources(cmdCtx.Out, sources)
}

func printSources(w io.Writer, sources []*model.Source) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if err := writeTo(tw, "ID\tNAME\tKIND\tACTIVE\tINTERVAL\tLAST RUN\tNEXT POLL\n"); err != nil {
		return err
	}
	for _, s := range sources {
		if err := writeTo(tw, "%s\t%s\t%s\t%t\t%s\t%s\t%s\n",
			s.ID, s.Name, s.Kind, s.Active, s.PollInterval,
			formatTime(s.LastRunAt), formatTime(s.NextPollAt)); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

type runSourceOptions struct {
	ID      string
	Name    string
	Timeout time.Duration
}

func parseRunSourceFlags(args []string) (runSourceOptions, error) {
	fs := flag.NewFlagSet("run-source", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := runSourceOptions{}
	fs.StringVar(&opts.ID, "id", "", "Source ID")
	fs.StringVar(&opts.Name, "name", "", "Source name (alternative to --id)")
	fs.DurationVar(&opts.Timeout, "timeout", 10*time.Minute, "Upper bound for the run")
	if err := fs.Parse(args); err != nil {
		return runSourceOptions{}, err
	}
	opts.ID = strings.TrimSpace(opts.ID)
	opts.Name = strings.TrimSpace(opts.Name)
	if (opts.ID == "") == (opts.Name == "") {
		return runSourceOptions{}, errors.New("exactly one of --id or --name is required")
	}
	if opts.Timeout <= 0 {
		return runSourceOptions{}, errors.New("--timeout must be greater than zero")
	}
	return opts, nil
}

func runSource(cmdCtx *commandContext, args []string) error {
	opts, err := parseRunSourceFlags(args)
	if err != nil {
		return err
	}
	db, closeDB, err := connectDB(cmdCtx)
	if err != nil {
		return err
	}
	defer closeDB()

	rdb, err := bootstrap.ConnectRedis(bootstrap.DatabaseConfig{RedisConfig: cmdCtx.Config.Redis, Logger: cmdCtx.Logger})
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if rdb != nil {
		defer closeRedis(cmdCtx, rdb)
	}

	services, err := bootstrap.NewServices(&bootstrap.ServiceDeps{
		Config:      &cmdCtx.Config,
		DB:          db,
		RedisClient: rdb,
		Logger:      cmdCtx.Logger,
	})
	if err != nil {
		return fmt.Errorf("init services: %w", err)
	}
	defer services.Close()

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, opts.Timeout)
	defer cancel()

	sourceID := opts.ID
	if sourceID == "" {
		src, lookupErr := services.Sources.GetByName(ctx, opts.Name)
		if lookupErr != nil {
			return fmt.Errorf("resolve source %q: %w", opts.Name, lookupErr)
		}
		sourceID = src.ID
	}

	result, err := services.Ingest.Run(ctx, service.RunRequest{SourceID: sourceID})
	if err != nil {
		return fmt.Errorf("run source: %w", err)
	}
	return printRunResult(cmdCtx.Out, result)
}

func printRunResult(w io.Writer, r *model.RunResult) error {
	if err := writeTo(w, "Source: %s\nStatus: %s\n", r.SourceID, r.Status); err != nil {
		return err
	}
	c := r.Counts
	if err := writeTo(w, "Found: %d  Ingested: %d  Deduplicated: %d  Skipped: %d\n",
		c.Found, c.Ingested, c.Deduplicated, c.Skipped); err != nil {
		return err
	}
	if r.RunLog != nil && r.RunLog.ErrorMessage != nil {
		return writeTo(w, "Error: %s\n", *r.RunLog.ErrorMessage)
	}
	return nil
}

type clearSeenOptions struct {
	DryRun bool
	Yes    bool
}

func parseClearSeenFlags(args []string) (clearSeenOptions, error) {
	fs := flag.NewFlagSet("clear-seen-hashes", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := clearSeenOptions{}
	fs.BoolVar(&opts.DryRun, "dry-run", false, "Count matching keys without deleting")
	fs.BoolVar(&opts.Yes, "yes", false, "Confirm deletion")
	if err := fs.Parse(args); err != nil {
		return clearSeenOptions{}, err
	}
	if !opts.DryRun && !opts.Yes {
		return clearSeenOptions{}, errConfirmationRequired
	}
	return opts, nil
}

func runClearSeenHashes(cmdCtx *commandContext, args []string) error {
	opts, err := parseClearSeenFlags(args)
	if err != nil {
		return err
	}
	if !cmdCtx.Config.Redis.Enabled {
		return errors.New("redis is disabled (REDIS_ENABLED=false)")
	}
	rdb, err := bootstrap.ConnectRedis(bootstrap.DatabaseConfig{RedisConfig: cmdCtx.Config.Redis, Logger: cmdCtx.Logger})
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer closeRedis(cmdCtx, rdb)

	n, err := data.NewSeenHashCache(rdb, cmdCtx.Config.Cache.SeenHashTTL).Clear(cmdCtx.Ctx, opts.DryRun)
	if err != nil {
		return err
	}
	verb := "deleted"
	if opts.DryRun {
		verb = "matched"
	}
	return writeTo(cmdCtx.Out, "%d seen-hash keys %s\n", n, verb)
}

func closeRedis(cmdCtx *commandContext, rdb redis.UniversalClient) {
	if err := rdb.Close(); err != nil {
		cmdCtx.Logger.Warn("redis close failed", "error", err)
	}
}
