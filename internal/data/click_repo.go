package data

import (
	"context"
	"fmt"

	"clickpipe/internal/biz"

	"github.com/go-kratos/kratos/v2/log"
)

var _ biz.ClickRepo = (*clickRepo)(nil)

type clickRepo struct {
	data *Data
	log  *log.Helper
}

// NewClickRepo .
func NewClickRepo(data *Data, logger log.Logger) biz.ClickRepo {
	return &clickRepo{
		data: data,
		log:  log.NewHelper(log.With(logger, "module", "data/click")),
	}
}

// Insert writes the record once per event ID. A redelivered event is a no-op.
func (r *clickRepo) Insert(ctx context.Context, c *biz.ClickRecord) (bool, error) {
	res, err := r.data.conn(ctx).ExecContext(ctx,
		`INSERT INTO click_events
			(event_id, short_code, clicked_at, ip_address, user_agent, referrer, device_type, traffic_source, country_code, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (event_id) DO NOTHING`,
		c.ID, c.Code, c.OccurredAt.UTC(), c.ClientAddress, c.UserAgent, c.Referrer,
		c.DeviceType, c.TrafficSource, c.CountryCode, utcOrNow(c.RecordedAt),
	)
	if err != nil {
		return false, fmt.Errorf("insert click event %s: %w", c.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert click event %s: %w", c.ID, err)
	}
	if n == 0 {
		r.log.WithContext(ctx).Infow("msg", "click event already recorded", "event_id", c.ID, "code", c.Code)
	}
	return n > 0, nil
}

func (r *clickRepo) CountByCode(ctx context.Context, code string) (int64, error) {
	var n int64
	err := r.data.conn(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM click_events WHERE short_code = $1`,
		code,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count click events for %s: %w", code, err)
	}
	return n, nil
}
