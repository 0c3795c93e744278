package data

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/target/harvester/internal/core"
	"github.com/target/harvester/internal/data/pgxutil"
	"github.com/target/harvester/internal/domain/model"
)

// IngestStore runs one pipeline run's writes inside a single pgx transaction.
type IngestStore struct {
	DB *sql.DB
}

// NewIngestStore creates a new IngestStore.
func NewIngestStore(db *sql.DB) *IngestStore {
	return &IngestStore{DB: db}
}

// RunInTx executes fn in a read-committed transaction and commits when fn returns nil.
func (s *IngestStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx core.IngestTx) error) error {
	return pgxutil.WithPgxTx(ctx, s.DB, pgxutil.TxConfig{
		Opts: &sql.TxOptions{Isolation: sql.LevelReadCommitted},
		Fn: func(tx pgx.Tx) error {
			return fn(ctx, &ingestTx{tx: tx})
		},
	})
}

type ingestTx struct {
	tx pgx.Tx
}

func (t *ingestTx) ExistsByHash(ctx context.Context, identityHash string) (bool, error) {
	var exists bool
	if err := t.tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM postings WHERE identity_hash = $1)`, identityHash,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("check posting hash: %w", err)
	}
	return exists, nil
}

// InsertPosting inserts a posting, absorbing collisions on identity_hash or url.
func (t *ingestTx) InsertPosting(ctx context.Context, p model.NewPosting) (bool, error) {
	var url *string
	if u := strings.TrimSpace(p.URL); u != "" {
		url = &u
	}
	raw := []byte(p.Raw)
	if len(raw) == 0 {
		raw = []byte(`{}`)
	}
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	var sourceID *string
	if p.SourceID != "" {
		sourceID = &p.SourceID
	}

	tag, err := t.tx.Exec(ctx, `
		INSERT INTO postings (
			identity_hash, title, company, location, url, description,
			salary_min, salary_max, currency, tags, is_remote, board,
			source_id, source_name, raw_payload
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT DO NOTHING
	`,
		p.IdentityHash, p.Title, p.Company, p.Location, url, p.Description,
		p.SalaryMin, p.SalaryMax, p.Currency, tags, p.IsRemote, p.Board,
		sourceID, p.SourceName, raw,
	)
	if err != nil {
		return false, fmt.Errorf("insert posting: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (t *ingestTx) TouchLastRun(ctx context.Context, sourceID string, at time.Time) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE sources SET last_run_at = $2, updated_at = $2 WHERE id = $1`, sourceID, at.UTC())
	if err != nil {
		return fmt.Errorf("update source last_run_at: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSourceNotFound
	}
	return nil
}
