package service

import (
	"context"
	"net"
	nethttp "net/http"
	"strings"

	"clickpipe/internal/biz"

	"github.com/go-kratos/kratos/v2/transport/http"
)

const (
	OperationLinkCreateLink = "/clickpipe.v1.Link/CreateLink"
	OperationLinkRedirect   = "/clickpipe.v1.Link/Redirect"
	OperationLinkGetLink    = "/clickpipe.v1.Link/GetLink"
)

// RegisterLinkHTTPServer mounts the link routes. The bare /{code} route is
// the catch-all and must be registered after every fixed path.
func RegisterLinkHTTPServer(s *http.Server, srv *LinkService) {
	r := s.Route("/")
	r.POST("/api/shorten", _Link_CreateLink0_HTTP_Handler(srv))
	r.GET("/api/links/{code}", _Link_GetLink0_HTTP_Handler(srv))
	r.GET("/api/{code}", _Link_Redirect0_HTTP_Handler(srv))
	r.GET("/{code}", _Link_Redirect0_HTTP_Handler(srv))
}

func _Link_CreateLink0_HTTP_Handler(srv *LinkService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in CreateLinkRequest
		if err := ctx.Bind(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationLinkCreateLink)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.CreateLink(ctx, req.(*CreateLinkRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusCreated, out.(*LinkReply))
	}
}

func _Link_Redirect0_HTTP_Handler(srv *LinkService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		r := ctx.Request()
		in := RedirectRequest{
			Code: ctx.Vars().Get("code"),
			Visit: biz.Visit{
				ClientAddress: clientAddress(r),
				UserAgent:     r.UserAgent(),
				Referrer:      r.Referer(),
			},
		}
		http.SetOperation(ctx, OperationLinkRedirect)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.Redirect(ctx, req.(*RedirectRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		reply := out.(*RedirectReply)
		return ctx.Result(nethttp.StatusFound, http.NewRedirect(reply.Location, nethttp.StatusFound))
	}
}

func _Link_GetLink0_HTTP_Handler(srv *LinkService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		in := GetLinkRequest{Code: ctx.Vars().Get("code")}
		http.SetOperation(ctx, OperationLinkGetLink)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.GetLink(ctx, req.(*GetLinkRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, out.(*LinkDetailReply))
	}
}

// clientAddress prefers the first X-Forwarded-For hop, then X-Real-IP, then the peer address.
func clientAddress(r *nethttp.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
