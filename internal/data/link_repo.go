package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"clickpipe/internal/biz"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

var _ biz.LinkRepo = (*linkRepo)(nil)

type linkRepo struct {
	data *Data
	log  *log.Helper
}

// NewLinkRepo .
func NewLinkRepo(data *Data, logger log.Logger) biz.LinkRepo {
	return &linkRepo{
		data: data,
		log:  log.NewHelper(log.With(logger, "module", "data/link")),
	}
}

func (r *linkRepo) Insert(ctx context.Context, link *biz.ShortLink) error {
	var expiresAt sql.NullTime
	if link.ExpiresAt != nil {
		expiresAt = sql.NullTime{Time: link.ExpiresAt.UTC(), Valid: true}
	}
	owner := sql.NullString{String: link.Owner, Valid: link.Owner != ""}

	_, err := r.data.conn(ctx).ExecContext(ctx,
		`INSERT INTO short_links (code, destination, created_at, expires_at, owner) VALUES ($1, $2, $3, $4, $5)`,
		link.Code, link.Destination, link.CreatedAt.UTC(), expiresAt, owner,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return biz.ErrCodeTaken
		}
		return fmt.Errorf("insert short link %s: %w", link.Code, err)
	}
	return nil
}

func (r *linkRepo) FindByCode(ctx context.Context, code string) (*biz.ShortLink, error) {
	var (
		link      biz.ShortLink
		expiresAt sql.NullTime
		owner     sql.NullString
	)
	err := r.data.conn(ctx).QueryRowContext(ctx,
		`SELECT code, destination, created_at, expires_at, owner FROM short_links WHERE code = $1`,
		code,
	).Scan(&link.Code, &link.Destination, &link.CreatedAt, &expiresAt, &owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, biz.ErrLinkNotFound
		}
		return nil, fmt.Errorf("find short link %s: %w", code, err)
	}

	link.CreatedAt = link.CreatedAt.UTC()
	if expiresAt.Valid {
		t := expiresAt.Time.UTC()
		link.ExpiresAt = &t
	}
	link.Owner = owner.String
	return &link, nil
}

// isUniqueViolation recognises duplicate-key errors from both drivers.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func utcOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}
