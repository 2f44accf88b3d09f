package eventbus

import (
	"fmt"

	"clickpipe/internal/biz"
	"clickpipe/internal/conf"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/v3/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
)

// PublisherSet is the producer side used by the API.
var PublisherSet = wire.NewSet(
	NewKratosLoggerAdapter,
	NewPublisher,
	NewDispatcher,
	wire.Bind(new(biz.ClickRecorder), new(*Dispatcher)),
)

// ConsumerSet is the consumer side used by the worker. The publisher carries dead letters.
var ConsumerSet = wire.NewSet(
	NewKratosLoggerAdapter,
	NewPublisher,
	NewSubscriber,
	NewRouter,
)

// AMQPConfig returns the watermill-amqp settings for the analytics queue:
// durable queue on the default exchange, persistent delivery, prefetch
// limited consumption and a pooled set of publish channels.
func AMQPConfig(c *conf.Channel) amqp.Config {
	cfg := amqp.NewDurableQueueConfig(c.URL)
	if c.Prefetch > 0 {
		cfg.Consume.Qos.PrefetchCount = c.Prefetch
	}
	if c.PublishChannels > 0 {
		cfg.Publish.ChannelPoolSize = c.PublishChannels
	}
	cfg.Publish.ConfirmDelivery = c.ConfirmDelivery
	return cfg
}

// DeclareQueues declares the durable queues behind topics. Publishing to the
// default exchange only routes to queues that already exist; anything else
// is confirmed by the broker and discarded.
func DeclareQueues(cfg amqp.Config, wlogger watermill.LoggerAdapter, topics ...string) error {
	sub, err := amqp.NewSubscriber(cfg, wlogger)
	if err != nil {
		return fmt.Errorf("connect to declare queues: %w", err)
	}
	defer sub.Close()

	for _, topic := range topics {
		if err := sub.SubscribeInitialize(topic); err != nil {
			return fmt.Errorf("declare queue %s: %w", topic, err)
		}
	}
	return nil
}

// NewPublisher returns a publisher for the analytics queue. The broker is
// dialled lazily so the API can start, and keep redirecting, without it.
// Every dial declares the analytics and dead-letter queues first, so clicks
// published before any worker has connected are kept.
func NewPublisher(c *conf.Channel, wlogger watermill.LoggerAdapter, logger log.Logger) (message.Publisher, func(), error) {
	cfg := AMQPConfig(c)
	pub := NewReconnectingPublisher(func() (message.Publisher, error) {
		if err := DeclareQueues(cfg, wlogger, c.Queue, c.DeadLetterTopic()); err != nil {
			return nil, err
		}
		return amqp.NewPublisher(cfg, wlogger)
	}, c.ReconnectInterval.Duration, logger)

	if err := pub.Connect(); err != nil {
		log.NewHelper(logger).Warnf("analytics channel unavailable at startup, clicks will be dropped until it recovers: %v", err)
	}

	cleanup := func() {
		if err := pub.Close(); err != nil {
			log.NewHelper(logger).Errorf("failed to close publisher: %v", err)
		}
	}
	return pub, cleanup, nil
}

// NewSubscriber connects a consumer to the analytics queue. The dead-letter
// queue is declared up front so parked messages have somewhere to land.
func NewSubscriber(c *conf.Channel, wlogger watermill.LoggerAdapter) (message.Subscriber, func(), error) {
	sub, err := amqp.NewSubscriber(AMQPConfig(c), wlogger)
	if err != nil {
		return nil, nil, fmt.Errorf("connect analytics subscriber: %w", err)
	}
	for _, topic := range []string{c.Queue, c.DeadLetterTopic()} {
		if err := sub.SubscribeInitialize(topic); err != nil {
			_ = sub.Close()
			return nil, nil, fmt.Errorf("declare queue %s: %w", topic, err)
		}
	}
	cleanup := func() {
		_ = sub.Close()
	}
	return sub, cleanup, nil
}

// NewMemoryPubSub returns an in-process channel. Persistent mode keeps
// messages published before a subscriber attaches, and a nacked message is
// redelivered to the same subscriber.
func NewMemoryPubSub(buffer int64, wlogger watermill.LoggerAdapter) *gochannel.GoChannel {
	return gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer: buffer,
			Persistent:          true,
		},
		wlogger,
	)
}
