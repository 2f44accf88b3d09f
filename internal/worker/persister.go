// Package worker consumes click events from the analytics queue and stores them.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"clickpipe/internal/analytics/enrichment"
	"clickpipe/internal/biz"
	"clickpipe/internal/conf"
	"clickpipe/internal/infra/eventbus"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
)

// ProviderSet is worker providers.
var ProviderSet = wire.NewSet(
	NewClickPersister,
	wire.Bind(new(Enricher), new(*enrichment.Enricher)),
)

// HandlerName identifies the persister on the router.
const HandlerName = "click_persister"

// ErrPersistence wraps every store failure of the persister.
var ErrPersistence = errors.New("click persistence failed")

// Enricher derives stored attributes from request metadata.
type Enricher interface {
	Enrich(clientAddress, userAgent, referrer string) enrichment.Attributes
}

// ClickPersister stores one click per message inside a transaction. A nil
// return acks the message; any error nacks it for redelivery.
type ClickPersister struct {
	uow       biz.UnitOfWork
	clicks    biz.ClickRepo
	enricher  Enricher
	txTimeout time.Duration
	now       func() time.Time
	log       *log.Helper
}

// NewClickPersister .
func NewClickPersister(c *conf.Worker, uow biz.UnitOfWork, clicks biz.ClickRepo, enricher Enricher, logger log.Logger) *ClickPersister {
	return &ClickPersister{
		uow:       uow,
		clicks:    clicks,
		enricher:  enricher,
		txTimeout: c.TxTimeout.Duration,
		now:       time.Now,
		log:       log.NewHelper(log.With(logger, "module", "worker/persister")),
	}
}

// Handle is the watermill handler for click messages.
func (p *ClickPersister) Handle(msg *message.Message) error {
	ctx := msg.Context()

	event, err := eventbus.DecodeClickMessage(msg)
	if err != nil {
		p.log.WithContext(ctx).Errorw("msg", "rejecting click message", "message_uuid", msg.UUID, "error", err)
		return err
	}

	inserted, err := p.Persist(ctx, event)
	if err != nil {
		p.log.WithContext(ctx).Errorw("msg", "click not stored, leaving for redelivery", "event_id", event.ID, "code", event.Code, "error", err)
		return err
	}
	if inserted {
		p.log.WithContext(ctx).Debugw("msg", "click stored", "event_id", event.ID, "code", event.Code)
	}
	return nil
}

// Persist enriches and stores event. It reports false when the event was
// already stored by an earlier delivery.
func (p *ClickPersister) Persist(ctx context.Context, event *biz.ClickEvent) (bool, error) {
	if p.txTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.txTimeout)
		defer cancel()
	}

	attrs := p.enricher.Enrich(event.ClientAddress, event.UserAgent, event.Referrer)
	record := &biz.ClickRecord{
		ClickEvent:    *event,
		DeviceType:    attrs.DeviceType,
		TrafficSource: attrs.TrafficSource,
		CountryCode:   attrs.CountryCode,
		RecordedAt:    p.now().UTC(),
	}

	var inserted bool
	err := p.uow.Do(ctx, func(ctx context.Context) error {
		var err error
		inserted, err = p.clicks.Insert(ctx, record)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return inserted, nil
}
