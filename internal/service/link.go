package service

import (
	"context"
	"strings"
	"time"

	"clickpipe/internal/biz"
	"clickpipe/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
)

type CreateLinkRequest struct {
	LongURL   string     `json:"long_url"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Owner     string     `json:"owner,omitempty"`
}

type LinkReply struct {
	ShortCode string     `json:"short_code"`
	LongURL   string     `json:"long_url"`
	ShortURL  string     `json:"short_url"`
	CreatedAt time.Time  `json:"created_at"`
	ExpireAt  *time.Time `json:"expire_at"`
}

type GetLinkRequest struct {
	Code string `json:"code"`
}

type LinkDetailReply struct {
	LinkReply
	Expired     bool  `json:"expired"`
	TotalClicks int64 `json:"total_clicks"`
}

type RedirectRequest struct {
	Code  string
	Visit biz.Visit
}

type RedirectReply struct {
	Location string
}

type LinkService struct {
	uc      *biz.LinkUsecase
	baseURL string
	log     *log.Helper
}

func NewLinkService(c *conf.Server, uc *biz.LinkUsecase, logger log.Logger) *LinkService {
	var baseURL string
	if c.HTTP != nil {
		baseURL = strings.TrimRight(c.HTTP.BaseURL, "/")
	}
	return &LinkService{
		uc:      uc,
		baseURL: baseURL,
		log:     log.NewHelper(log.With(logger, "module", "service/link")),
	}
}

func (s *LinkService) CreateLink(ctx context.Context, req *CreateLinkRequest) (*LinkReply, error) {
	link, err := s.uc.Create(ctx, biz.CreateLinkParams{
		Destination: strings.TrimSpace(req.LongURL),
		ExpiresAt:   req.ExpiresAt,
		Owner:       req.Owner,
	})
	if err != nil {
		return nil, err
	}
	return s.toLinkReply(link), nil
}

func (s *LinkService) Redirect(ctx context.Context, req *RedirectRequest) (*RedirectReply, error) {
	destination, err := s.uc.Redirect(ctx, req.Code, req.Visit)
	if err != nil {
		return nil, err
	}
	return &RedirectReply{Location: destination}, nil
}

func (s *LinkService) GetLink(ctx context.Context, req *GetLinkRequest) (*LinkDetailReply, error) {
	detail, err := s.uc.Describe(ctx, req.Code)
	if err != nil {
		return nil, err
	}
	return &LinkDetailReply{
		LinkReply:   *s.toLinkReply(detail.ShortLink),
		Expired:     detail.Expired,
		TotalClicks: detail.TotalClicks,
	}, nil
}

func (s *LinkService) toLinkReply(l *biz.ShortLink) *LinkReply {
	return &LinkReply{
		ShortCode: l.Code,
		LongURL:   l.Destination,
		ShortURL:  s.baseURL + "/" + l.Code,
		CreatedAt: l.CreatedAt,
		ExpireAt:  l.ExpiresAt,
	}
}
