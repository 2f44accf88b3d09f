package eventbus

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-kratos/kratos/v2/log"
)

// ErrChannelUnavailable is returned when a click cannot be handed to the channel.
var ErrChannelUnavailable = errors.New("analytics channel unavailable")

var _ message.Publisher = (*ReconnectingPublisher)(nil)

// ReconnectingPublisher dials its underlying publisher on first use and
// retries at most once per interval while the broker is down. Once
// connected, reconnects are left to the underlying publisher.
type ReconnectingPublisher struct {
	connect  func() (message.Publisher, error)
	interval time.Duration
	now      func() time.Time
	log      *log.Helper

	mu          sync.Mutex
	pub         message.Publisher
	lastAttempt time.Time
	lastErr     error
	closed      bool
}

// NewReconnectingPublisher .
func NewReconnectingPublisher(connect func() (message.Publisher, error), interval time.Duration, logger log.Logger) *ReconnectingPublisher {
	return &ReconnectingPublisher{
		connect:  connect,
		interval: interval,
		now:      time.Now,
		log:      log.NewHelper(log.With(logger, "module", "eventbus/publisher")),
	}
}

// Connect dials immediately, ignoring the retry interval.
func (p *ReconnectingPublisher) Connect() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := p.dialLocked(true)
	return err
}

func (p *ReconnectingPublisher) Publish(topic string, messages ...*message.Message) error {
	p.mu.Lock()
	pub, err := p.dialLocked(false)
	p.mu.Unlock()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrChannelUnavailable, err)
	}

	if err := pub.Publish(topic, messages...); err != nil {
		return fmt.Errorf("%w: %v", ErrChannelUnavailable, err)
	}
	return nil
}

func (p *ReconnectingPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	if p.pub == nil {
		return nil
	}
	return p.pub.Close()
}

func (p *ReconnectingPublisher) dialLocked(force bool) (message.Publisher, error) {
	if p.closed {
		return nil, errors.New("publisher closed")
	}
	if p.pub != nil {
		return p.pub, nil
	}
	now := p.now()
	if !force && !p.lastAttempt.IsZero() && now.Sub(p.lastAttempt) < p.interval {
		return nil, p.lastErr
	}

	p.lastAttempt = now
	pub, err := p.connect()
	if err != nil {
		p.lastErr = err
		return nil, err
	}
	if p.lastErr != nil {
		p.log.Info("analytics channel connected")
	}
	p.pub, p.lastErr = pub, nil
	return pub, nil
}
