package eventbus

import (
	"context"
	"fmt"

	"clickpipe/internal/conf"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/go-kratos/kratos/v2/transport"
)

var _ transport.Server = (*Router)(nil)

// Router runs consumers of the analytics queue. Every handler is wrapped so
// that a panic becomes an error and, with dead-lettering enabled, a message
// that keeps failing is parked on the dead-letter topic after a bounded
// number of attempts. Without dead-lettering a failing message is nacked
// and redelivered indefinitely.
type Router struct {
	router     *message.Router
	subscriber message.Subscriber
	logger     watermill.LoggerAdapter
}

// NewRouter creates a router consuming from sub. pub receives dead letters.
func NewRouter(c *conf.Channel, w *conf.Worker, sub message.Subscriber, pub message.Publisher, logger watermill.LoggerAdapter) (*Router, error) {
	router, err := message.NewRouter(message.RouterConfig{
		CloseTimeout: w.CloseTimeout.Duration,
	}, logger)
	if err != nil {
		return nil, err
	}

	if dl := w.DeadLetter; dl != nil && dl.Enabled {
		poison, err := middleware.PoisonQueue(pub, c.DeadLetterTopic())
		if err != nil {
			return nil, fmt.Errorf("dead letter middleware: %w", err)
		}
		maxRetries := dl.MaxAttempts - 1
		if maxRetries < 0 {
			maxRetries = 0
		}
		router.AddMiddleware(
			poison,
			middleware.Retry{
				MaxRetries:      maxRetries,
				InitialInterval: dl.InitialInterval.Duration,
				MaxInterval:     dl.MaxInterval.Duration,
				Multiplier:      2,
				Logger:          logger,
			}.Middleware,
		)
	}
	router.AddMiddleware(middleware.Recoverer)

	return &Router{
		router:     router,
		subscriber: sub,
		logger:     logger,
	}, nil
}

// AddConsumer registers handler for every message on topic.
func (r *Router) AddConsumer(name, topic string, handler message.NoPublishHandlerFunc) {
	r.router.AddNoPublisherHandler(name, topic, r.subscriber, handler)
}

// Run starts the router and blocks until it is closed.
func (r *Router) Run(ctx context.Context) error {
	return r.router.Run(ctx)
}

// Running returns a channel that is closed when the router is running.
func (r *Router) Running() chan struct{} {
	return r.router.Running()
}

// Close stops the router, waiting up to the close timeout for in-flight messages.
func (r *Router) Close() error {
	return r.router.Close()
}

// Start implements transport.Server.
func (r *Router) Start(ctx context.Context) error {
	return r.Run(ctx)
}

// Stop implements transport.Server.
func (r *Router) Stop(ctx context.Context) error {
	done := make(chan error, 1)
	go func() {
		done <- r.Close()
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
