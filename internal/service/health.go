package service

import (
	"context"
	nethttp "net/http"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"
)

const readinessTimeout = 2 * time.Second

// ReadinessChecker reports whether a dependency can serve traffic.
type ReadinessChecker interface {
	Ping(ctx context.Context) error
}

type HealthReply struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

type HealthService struct {
	store ReadinessChecker
	log   *log.Helper
}

func NewHealthService(store ReadinessChecker, logger log.Logger) *HealthService {
	return &HealthService{
		store: store,
		log:   log.NewHelper(log.With(logger, "module", "service/health")),
	}
}

// Live always succeeds while the process serves HTTP.
func (s *HealthService) Live(context.Context) *HealthReply {
	return &HealthReply{Status: "ok"}
}

// Ready pings the primary store.
func (s *HealthService) Ready(ctx context.Context) (*HealthReply, bool) {
	ctx, cancel := context.WithTimeout(ctx, readinessTimeout)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		s.log.WithContext(ctx).Warnw("msg", "readiness check failed", "error", err)
		return &HealthReply{Status: "unavailable", Reason: "database unavailable"}, false
	}
	return &HealthReply{Status: "ok"}, true
}

// RegisterHealthHTTPServer mounts /healthz and /readyz.
func RegisterHealthHTTPServer(s *http.Server, srv *HealthService) {
	r := s.Route("/")
	r.GET("/healthz", func(ctx http.Context) error {
		return ctx.Result(nethttp.StatusOK, srv.Live(ctx))
	})
	r.GET("/readyz", func(ctx http.Context) error {
		reply, ok := srv.Ready(ctx)
		if !ok {
			return ctx.Result(nethttp.StatusServiceUnavailable, reply)
		}
		return ctx.Result(nethttp.StatusOK, reply)
	})
}
