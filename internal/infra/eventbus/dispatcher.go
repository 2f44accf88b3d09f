package eventbus

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"clickpipe/internal/biz"
	"clickpipe/internal/conf"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport"
)

var (
	_ biz.ClickRecorder = (*Dispatcher)(nil)
	_ transport.Server  = (*Dispatcher)(nil)
)

// Dispatcher moves click events off the request goroutine. Record enqueues
// without blocking; a fixed set of workers publishes in the background.
type Dispatcher struct {
	publisher message.Publisher
	topic     string
	timeout   time.Duration
	workers   int
	queue     chan *biz.ClickEvent
	log       *log.Helper

	mu      sync.RWMutex
	started bool
	stopped bool
	wg      sync.WaitGroup

	published   atomic.Int64
	dropped     atomic.Int64
	unconfirmed atomic.Int64
}

// NewDispatcher .
func NewDispatcher(c *conf.Channel, publisher message.Publisher, logger log.Logger) *Dispatcher {
	workers := c.DispatchWorkers
	if workers <= 0 {
		workers = 1
	}
	buffer := c.DispatchBuffer
	if buffer < 0 {
		buffer = 0
	}
	return &Dispatcher{
		publisher: publisher,
		topic:     c.Queue,
		timeout:   c.PublishTimeout.Duration,
		workers:   workers,
		queue:     make(chan *biz.ClickEvent, buffer),
		log:       log.NewHelper(log.With(logger, "module", "eventbus/dispatcher")),
	}
}

// Record queues event for publication. A full queue drops the event.
func (d *Dispatcher) Record(ctx context.Context, event *biz.ClickEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		d.drop(ctx, event, "dispatcher stopped")
		return
	}
	select {
	case d.queue <- event:
	default:
		d.drop(ctx, event, "dispatch queue full")
	}
}

func (d *Dispatcher) drop(ctx context.Context, event *biz.ClickEvent, reason string) {
	d.dropped.Add(1)
	d.log.WithContext(ctx).Warnw(
		"msg", "click dropped",
		"reason", reason,
		"error", ErrChannelUnavailable,
		"event_id", event.ID,
		"code", event.Code,
	)
}

// Start launches the publishing workers. It does not block.
func (d *Dispatcher) Start(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.stopped {
		return nil
	}
	d.started = true
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.run()
	}
	d.log.Infof("click dispatcher started with %d workers", d.workers)
	return nil
}

// Stop stops accepting events and waits for queued ones to be published
// until ctx is done.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	close(d.queue)
	started := d.started
	d.mu.Unlock()

	if !started {
		return nil
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		d.log.Infow("msg", "click dispatcher drained", "published", d.published.Load(), "dropped", d.dropped.Load())
		return nil
	case <-ctx.Done():
		d.log.Warnw("msg", "click dispatcher stopped before draining", "pending", len(d.queue))
		return ctx.Err()
	}
}

// Stats returns how many events were published and dropped so far.
func (d *Dispatcher) Stats() (published, dropped int64) {
	return d.published.Load(), d.dropped.Load()
}

// Unconfirmed returns how many publishes outlived the publish timeout. Those
// events may still reach the channel, so they are counted apart from drops.
func (d *Dispatcher) Unconfirmed() int64 {
	return d.unconfirmed.Load()
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for event := range d.queue {
		err := d.publish(event)
		switch {
		case err == nil:
			d.published.Add(1)
		case errors.Is(err, errPublishTimeout):
			d.unconfirmed.Add(1)
			d.log.Warnw("msg", "click publish timed out, delivery unknown", "event_id", event.ID, "code", event.Code, "timeout", d.timeout)
		default:
			d.dropped.Add(1)
			d.log.Errorw("msg", "failed to publish click", "event_id", event.ID, "code", event.Code, "error", err)
		}
	}
}

var errPublishTimeout = errors.New("publish timed out")

func (d *Dispatcher) publish(event *biz.ClickEvent) error {
	msg, err := NewClickMessage(event)
	if err != nil {
		return err
	}
	if d.timeout <= 0 {
		return d.publisher.Publish(d.topic, msg)
	}

	done := make(chan error, 1)
	go func() {
		done <- d.publisher.Publish(d.topic, msg)
	}()

	timer := time.NewTimer(d.timeout)
	defer timer.Stop()
	select {
	case err := <-done:
		return err
	case <-timer.C:
		// The publish keeps running in the background and may still succeed.
		return errPublishTimeout
	}
}
