package biz

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"clickpipe/internal/conf"
	"clickpipe/pkg/shortcode"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

const maxDestinationLength = 2048

// ShortLink maps a code to its destination. Codes are never reused.
type ShortLink struct {
	Code        string
	Destination string
	CreatedAt   time.Time
	ExpiresAt   *time.Time
	Owner       string
}

// IsExpired reports whether the link's expiry lies strictly before now.
func (l *ShortLink) IsExpired(now time.Time) bool {
	return l.ExpiresAt != nil && now.After(*l.ExpiresAt)
}

// Remaining is the lifetime left at now. ok is false for links that never expire.
func (l *ShortLink) Remaining(now time.Time) (d time.Duration, ok bool) {
	if l.ExpiresAt == nil {
		return 0, false
	}
	return l.ExpiresAt.Sub(now), true
}

// LinkDetail is a link with its recorded click total.
type LinkDetail struct {
	*ShortLink
	Expired     bool
	TotalClicks int64
}

// LinkRepo is the primary store for short links.
type LinkRepo interface {
	// Insert returns ErrCodeTaken when the code already exists.
	Insert(ctx context.Context, link *ShortLink) error
	// FindByCode returns ErrLinkNotFound when no record exists.
	FindByCode(ctx context.Context, code string) (*ShortLink, error)
}

// LinkCache maps codes to destinations. A miss is ("", nil).
type LinkCache interface {
	Get(ctx context.Context, code string) (string, error)
	// Set stores destination for at most ttl. A zero ttl means the link never expires.
	Set(ctx context.Context, code, destination string, ttl time.Duration) error
	Invalidate(ctx context.Context, code string) error
}

// CreateLinkParams is the input of LinkUsecase.Create.
type CreateLinkParams struct {
	Destination string
	ExpiresAt   *time.Time
	Owner       string
}

// LinkUsecase owns the create and resolve flows.
type LinkUsecase struct {
	repo       LinkRepo
	cache      LinkCache
	clicks     ClickRepo
	recorder   ClickRecorder
	gen        CodeGenerator
	maxRetries int
	defaultTTL time.Duration
	now        func() time.Time
	newEventID func() string
	log        *log.Helper
}

// NewLinkUsecase .
func NewLinkUsecase(c *conf.Link, repo LinkRepo, cache LinkCache, clicks ClickRepo, recorder ClickRecorder, gen CodeGenerator, logger log.Logger) *LinkUsecase {
	maxRetries := c.MaxCollisionRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &LinkUsecase{
		repo:       repo,
		cache:      cache,
		clicks:     clicks,
		recorder:   recorder,
		gen:        gen,
		maxRetries: maxRetries,
		defaultTTL: c.DefaultTTL.Duration,
		now:        time.Now,
		newEventID: newEventID,
		log:        log.NewHelper(log.With(logger, "module", "biz/link")),
	}
}

func newEventID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Create validates p, stores a link under a fresh code and seeds the cache.
// A taken code is regenerated at most maxRetries times.
func (uc *LinkUsecase) Create(ctx context.Context, p CreateLinkParams) (*ShortLink, error) {
	if err := validateDestination(p.Destination); err != nil {
		return nil, errors.BadRequest(ReasonInvalidDestination, err.Error())
	}

	now := uc.now().UTC()
	link := &ShortLink{
		Destination: p.Destination,
		CreatedAt:   now,
		Owner:       strings.TrimSpace(p.Owner),
	}
	switch {
	case p.ExpiresAt != nil:
		if !p.ExpiresAt.After(now) {
			return nil, ErrInvalidExpiry
		}
		expiresAt := p.ExpiresAt.UTC()
		link.ExpiresAt = &expiresAt
	case uc.defaultTTL > 0:
		expiresAt := now.Add(uc.defaultTTL)
		link.ExpiresAt = &expiresAt
	}

	for attempt := 0; attempt <= uc.maxRetries; attempt++ {
		link.Code = uc.gen.Generate(p.Destination)

		err := uc.repo.Insert(ctx, link)
		if err == nil {
			uc.populate(ctx, link, now)
			uc.log.WithContext(ctx).Infow("msg", "short link created", "code", link.Code, "attempt", attempt+1)
			return link, nil
		}
		if !errors.Is(err, ErrCodeTaken) {
			return nil, fmt.Errorf("insert short link: %w", err)
		}
		uc.log.WithContext(ctx).Warnw("msg", "short code collision", "code", link.Code, "attempt", attempt+1)
	}

	return nil, ErrCollisionExhausted
}

// Resolve returns the destination for code. The primary store decides
// existence and expiry on every call; the cache only supplies the destination.
func (uc *LinkUsecase) Resolve(ctx context.Context, code string) (string, error) {
	if !shortcode.Valid(code) {
		return "", ErrLinkNotFound
	}
	cached, err := uc.cache.Get(ctx, code)
	if err != nil {
		uc.log.WithContext(ctx).Warnw("msg", "cache read failed, treating as miss", "code", code, "error", err)
		cached = ""
	}

	link, err := uc.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrLinkNotFound) {
			if cached != "" {
				uc.invalidate(ctx, code)
			}
			return "", ErrLinkNotFound
		}
		return "", fmt.Errorf("find short link: %w", err)
	}

	now := uc.now()
	if link.IsExpired(now) {
		if cached != "" {
			uc.invalidate(ctx, code)
		}
		return "", ErrLinkExpired
	}

	if cached != "" {
		return cached, nil
	}
	uc.populate(ctx, link, now)
	return link.Destination, nil
}

// Redirect resolves code and records exactly one click for a successful resolve.
func (uc *LinkUsecase) Redirect(ctx context.Context, code string, v Visit) (string, error) {
	destination, err := uc.Resolve(ctx, code)
	if err != nil {
		return "", err
	}

	uc.recorder.Record(ctx, &ClickEvent{
		ID:            uc.newEventID(),
		Code:          code,
		OccurredAt:    uc.now().UTC(),
		ClientAddress: v.ClientAddress,
		UserAgent:     v.UserAgent,
		Referrer:      v.Referrer,
	})
	return destination, nil
}

// Describe returns the stored link and its click total without recording a click.
func (uc *LinkUsecase) Describe(ctx context.Context, code string) (*LinkDetail, error) {
	if !shortcode.Valid(code) {
		return nil, ErrLinkNotFound
	}
	link, err := uc.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrLinkNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("find short link: %w", err)
	}

	total, err := uc.clicks.CountByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("count clicks: %w", err)
	}

	return &LinkDetail{
		ShortLink:   link,
		Expired:     link.IsExpired(uc.now()),
		TotalClicks: total,
	}, nil
}

func (uc *LinkUsecase) populate(ctx context.Context, link *ShortLink, now time.Time) {
	ttl, expires := link.Remaining(now)
	if expires && ttl <= 0 {
		return
	}
	if err := uc.cache.Set(ctx, link.Code, link.Destination, ttl); err != nil {
		uc.log.WithContext(ctx).Warnw("msg", "cache write failed", "code", link.Code, "error", err)
	}
}

func (uc *LinkUsecase) invalidate(ctx context.Context, code string) {
	if err := uc.cache.Invalidate(ctx, code); err != nil {
		uc.log.WithContext(ctx).Warnw("msg", "cache invalidation failed", "code", code, "error", err)
	}
}

func validateDestination(raw string) error {
	if raw == "" {
		return fmt.Errorf("long_url is required")
	}
	if len(raw) > maxDestinationLength {
		return fmt.Errorf("url exceeds maximum length of %d characters", maxDestinationLength)
	}

	parsed, err := url.ParseRequestURI(raw)
	if err != nil {
		return fmt.Errorf("invalid url format: %w", err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got: %s", parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("url must have a host")
	}
	return nil
}
