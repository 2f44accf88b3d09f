package server

import (
	"clickpipe/internal/conf"
	"clickpipe/internal/infra/eventbus"
	"clickpipe/internal/worker"

	"github.com/go-kratos/kratos/v2/transport"
)

var _ transport.Server = (*ConsumerServer)(nil)

// ConsumerServer runs the click persister on the analytics queue.
type ConsumerServer struct {
	*eventbus.Router
}

// NewConsumerServer .
func NewConsumerServer(c *conf.Channel, router *eventbus.Router, persister *worker.ClickPersister) *ConsumerServer {
	router.AddConsumer(worker.HandlerName, c.Queue, persister.Handle)
	return &ConsumerServer{Router: router}
}
