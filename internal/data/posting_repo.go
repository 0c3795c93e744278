package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/target/harvester/internal/data/pgxutil"
	"github.com/target/harvester/internal/domain/model"
)

// PostingRepo provides read access to the posting catalog. Writes happen through IngestStore.
type PostingRepo struct {
	DB *sql.DB
}

// NewPostingRepo creates a new PostingRepo.
func NewPostingRepo(db *sql.DB) *PostingRepo {
	return &PostingRepo{DB: db}
}

const postingColumns = `
  id,
  identity_hash,
  title,
  company,
  location,
  url,
  description,
  salary_min,
  salary_max,
  currency,
  tags,
  is_remote,
  board,
  source_id,
  source_name,
  raw_payload,
  created_at,
  updated_at
`

type postingFilterQueryBuilder struct {
	where  []string
	args   []any
	argIdx int
}

func (b *postingFilterQueryBuilder) add(format string, value any) {
	b.where = append(b.where, fmt.Sprintf(format, b.argIdx))
	b.args = append(b.args, value)
	b.argIdx++
}

func buildPostingListQuery(opts model.PostingListOptions) (string, []any) {
	b := &postingFilterQueryBuilder{argIdx: 1}

	if opts.SourceID != nil && *opts.SourceID != "" {
		b.add("source_id = $%d", *opts.SourceID)
	}
	if opts.Remote != nil {
		b.add("is_remote = $%d", *opts.Remote)
	}
	if tag := strings.ToLower(strings.TrimSpace(opts.Tag)); tag != "" {
		b.add("$%d = ANY(tags)", tag)
	}
	if q := strings.TrimSpace(opts.Query); q != "" {
		pattern := "%" + escapeLike(q) + "%"
		b.where = append(b.where, fmt.Sprintf("(title ILIKE $%d OR company ILIKE $%d)", b.argIdx, b.argIdx))
		b.args = append(b.args, pattern)
		b.argIdx++
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(postingColumns)
	sb.WriteString(" FROM postings")
	if len(b.where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(b.where, " AND "))
	}
	fmt.Fprintf(&sb, " ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", b.argIdx, b.argIdx+1)

	limit := clampLimit(opts.Limit, 50, 500)
	args := append(b.args, limit, max(opts.Offset, 0))
	return sb.String(), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// List returns postings matching opts, newest first.
func (r *PostingRepo) List(ctx context.Context, opts model.PostingListOptions) ([]*model.Posting, error) {
	query, args := buildPostingListQuery(opts)

	var out []*model.Posting
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("query postings: %w", err)
		}
		out, err = pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[model.Posting])
		if err != nil {
			return fmt.Errorf("collect postings: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetByID retrieves a posting by its ID.
func (r *PostingRepo) GetByID(ctx context.Context, id string) (*model.Posting, error) {
	var p *model.Posting
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `SELECT `+postingColumns+` FROM postings WHERE id = $1`, id)
		if err != nil {
			return err
		}
		p, err = pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[model.Posting])
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPostingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get posting: %w", err)
	}
	return p, nil
}

// CountBySource returns how many postings reference the source.
func (r *PostingRepo) CountBySource(ctx context.Context, sourceID string) (int, error) {
	var n int
	if err := r.DB.QueryRowContext(ctx, `SELECT count(*) FROM postings WHERE source_id = $1`, sourceID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count postings: %w", err)
	}
	return n, nil
}
