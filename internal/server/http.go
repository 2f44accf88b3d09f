package server

import (
	"clickpipe/internal/conf"
	"clickpipe/internal/service"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/logging"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"
)

// NewHTTPServer new an HTTP server.
func NewHTTPServer(c *conf.Server, links *service.LinkService, health *service.HealthService, logger log.Logger) *http.Server {
	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
			logging.Server(logger),
		),
		http.ErrorEncoder(service.EncodeError),
	}
	if hc := c.HTTP; hc != nil {
		if hc.Network != "" {
			opts = append(opts, http.Network(hc.Network))
		}
		if hc.Addr != "" {
			opts = append(opts, http.Address(hc.Addr))
		}
		if hc.Timeout.Duration > 0 {
			opts = append(opts, http.Timeout(hc.Timeout.Duration))
		}
	}
	srv := http.NewServer(opts...)
	service.RegisterHealthHTTPServer(srv, health)
	service.RegisterLinkHTTPServer(srv, links)
	return srv
}
