package biz

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"clickpipe/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/suite"
)

type fakeLinkRepo struct {
	mu        sync.Mutex
	links     map[string]*ShortLink
	inserts   int
	finds     int
	insertErr error
	findErr   error
}

func newFakeLinkRepo() *fakeLinkRepo {
	return &fakeLinkRepo{links: make(map[string]*ShortLink)}
}

func (r *fakeLinkRepo) Insert(_ context.Context, link *ShortLink) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inserts++
	if r.insertErr != nil {
		return r.insertErr
	}
	if _, ok := r.links[link.Code]; ok {
		return ErrCodeTaken
	}
	stored := *link
	r.links[link.Code] = &stored
	return nil
}

func (r *fakeLinkRepo) FindByCode(_ context.Context, code string) (*ShortLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finds++
	if r.findErr != nil {
		return nil, r.findErr
	}
	link, ok := r.links[code]
	if !ok {
		return nil, ErrLinkNotFound
	}
	stored := *link
	return &stored, nil
}

type cacheEntry struct {
	destination string
	ttl         time.Duration
}

type fakeLinkCache struct {
	mu          sync.Mutex
	entries     map[string]cacheEntry
	getErr      error
	setErr      error
	invalidated []string
}

func newFakeLinkCache() *fakeLinkCache {
	return &fakeLinkCache{entries: make(map[string]cacheEntry)}
}

func (c *fakeLinkCache) Get(_ context.Context, code string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return "", c.getErr
	}
	return c.entries[code].destination, nil
}

func (c *fakeLinkCache) Set(_ context.Context, code, destination string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	c.entries[code] = cacheEntry{destination: destination, ttl: ttl}
	return nil
}

func (c *fakeLinkCache) Invalidate(_ context.Context, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, code)
	c.invalidated = append(c.invalidated, code)
	return nil
}

func (c *fakeLinkCache) entry(code string) (cacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[code]
	return e, ok
}

type fakeClickRepo struct {
	counts map[string]int64
}

func (r *fakeClickRepo) Insert(context.Context, *ClickRecord) (bool, error) {
	return true, nil
}

func (r *fakeClickRepo) CountByCode(_ context.Context, code string) (int64, error) {
	return r.counts[code], nil
}

type recordingRecorder struct {
	mu     sync.Mutex
	events []*ClickEvent
}

func (r *recordingRecorder) Record(_ context.Context, event *ClickEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingRecorder) recorded() []*ClickEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*ClickEvent(nil), r.events...)
}

// sequenceGenerator hands out codes in order and repeats the last one.
type sequenceGenerator struct {
	codes []string
	calls int
}

func (g *sequenceGenerator) Generate(string) string {
	i := g.calls
	if i >= len(g.codes) {
		i = len(g.codes) - 1
	}
	g.calls++
	return g.codes[i]
}

type LinkUsecaseTestSuite struct {
	suite.Suite
	repo     *fakeLinkRepo
	cache    *fakeLinkCache
	clicks   *fakeClickRepo
	recorder *recordingRecorder
	gen      *sequenceGenerator
	now      time.Time
	sut      *LinkUsecase
}

func TestLinkUsecaseTestSuite(t *testing.T) {
	suite.Run(t, new(LinkUsecaseTestSuite))
}

func (s *LinkUsecaseTestSuite) SetupTest() {
	s.repo = newFakeLinkRepo()
	s.cache = newFakeLinkCache()
	s.clicks = &fakeClickRepo{counts: make(map[string]int64)}
	s.recorder = &recordingRecorder{}
	s.gen = &sequenceGenerator{codes: []string{"abc123", "def456", "ghi789", "jkl012", "mno345"}}
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	c := conf.Default().Link
	s.sut = NewLinkUsecase(c, s.repo, s.cache, s.clicks, s.recorder, s.gen, log.DefaultLogger)
	s.sut.now = func() time.Time { return s.now }
	ids := 0
	s.sut.newEventID = func() string {
		ids++
		return fmt.Sprintf("evt-%d", ids)
	}
}

func (s *LinkUsecaseTestSuite) seed(code, destination string, expiresAt *time.Time) {
	s.repo.links[code] = &ShortLink{Code: code, Destination: destination, CreatedAt: s.now.Add(-time.Hour), ExpiresAt: expiresAt}
}

func (s *LinkUsecaseTestSuite) TestCreate_DefaultExpiryAndCacheSeeded() {
	// Act
	link, err := s.sut.Create(context.Background(), CreateLinkParams{Destination: "https://example.com/a"})

	// Assert
	s.Require().NoError(err)
	s.Equal("abc123", link.Code)
	s.Require().NotNil(link.ExpiresAt)
	s.Equal(s.now.Add(8*24*time.Hour), *link.ExpiresAt)
	entry, ok := s.cache.entry("abc123")
	s.True(ok)
	s.Equal("https://example.com/a", entry.destination)
	s.Equal(8*24*time.Hour, entry.ttl)
}

func (s *LinkUsecaseTestSuite) TestCreate_ExplicitExpiry() {
	// Arrange
	expiresAt := s.now.Add(2 * time.Hour)

	// Act
	link, err := s.sut.Create(context.Background(), CreateLinkParams{Destination: "https://example.com", ExpiresAt: &expiresAt, Owner: " team-a "})

	// Assert
	s.Require().NoError(err)
	s.Equal(expiresAt, *link.ExpiresAt)
	s.Equal("team-a", link.Owner)
	entry, _ := s.cache.entry(link.Code)
	s.Equal(2*time.Hour, entry.ttl)
}

func (s *LinkUsecaseTestSuite) TestCreate_NoDefaultTTLNeverExpires() {
	// Arrange
	s.sut.defaultTTL = 0

	// Act
	link, err := s.sut.Create(context.Background(), CreateLinkParams{Destination: "https://example.com"})

	// Assert
	s.Require().NoError(err)
	s.Nil(link.ExpiresAt)
	entry, _ := s.cache.entry(link.Code)
	s.Zero(entry.ttl)
}

func (s *LinkUsecaseTestSuite) TestCreate_RejectsInvalidDestination() {
	tests := []struct {
		name        string
		destination string
	}{
		{name: "empty", destination: ""},
		{name: "no scheme", destination: "example.com"},
		{name: "ftp scheme", destination: "ftp://example.com/file"},
		{name: "javascript", destination: "javascript:alert(1)"},
		{name: "no host", destination: "http://"},
		{name: "too long", destination: "https://example.com/" + string(make([]byte, 2100))},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.sut.Create(context.Background(), CreateLinkParams{Destination: tt.destination})

			s.True(errors.Is(err, ErrInvalidDestination), "got %v", err)
		})
	}
	s.Zero(s.repo.inserts)
}

func (s *LinkUsecaseTestSuite) TestCreate_RejectsPastExpiry() {
	// Arrange
	past := s.now.Add(-time.Minute)

	// Act
	_, err := s.sut.Create(context.Background(), CreateLinkParams{Destination: "https://example.com", ExpiresAt: &past})

	// Assert
	s.ErrorIs(err, ErrInvalidExpiry)
	s.Zero(s.repo.inserts)
}

func (s *LinkUsecaseTestSuite) TestCreate_RetriesCollisions() {
	// Arrange
	s.seed("abc123", "https://taken.example.com", nil)
	s.seed("def456", "https://taken.example.com", nil)

	// Act
	link, err := s.sut.Create(context.Background(), CreateLinkParams{Destination: "https://example.com"})

	// Assert
	s.Require().NoError(err)
	s.Equal("ghi789", link.Code)
	s.Equal(3, s.repo.inserts)
}

func (s *LinkUsecaseTestSuite) TestCreate_CollisionExhaustedAfterThreeRegenerations() {
	// Arrange
	s.gen.codes = []string{"same00"}
	s.seed("same00", "https://taken.example.com", nil)

	// Act
	_, err := s.sut.Create(context.Background(), CreateLinkParams{Destination: "https://example.com"})

	// Assert
	s.ErrorIs(err, ErrCollisionExhausted)
	s.Equal(4, s.gen.calls)
	s.Equal(4, s.repo.inserts)
	s.Equal("https://taken.example.com", s.repo.links["same00"].Destination)
}

func (s *LinkUsecaseTestSuite) TestCreate_StoreFailureIsNotRetried() {
	// Arrange
	s.repo.insertErr = errors.New("connection refused")

	// Act
	_, err := s.sut.Create(context.Background(), CreateLinkParams{Destination: "https://example.com"})

	// Assert
	s.Error(err)
	s.False(errors.Is(err, ErrCollisionExhausted))
	s.Equal(1, s.repo.inserts)
}

func (s *LinkUsecaseTestSuite) TestCreate_CacheFailureDoesNotFailCreate() {
	// Arrange
	s.cache.setErr = errors.New("redis down")

	// Act
	link, err := s.sut.Create(context.Background(), CreateLinkParams{Destination: "https://example.com"})

	// Assert
	s.Require().NoError(err)
	s.Contains(s.repo.links, link.Code)
}

func (s *LinkUsecaseTestSuite) TestResolve_RoundTripBeforeExpiry() {
	// Arrange
	link, err := s.sut.Create(context.Background(), CreateLinkParams{Destination: "https://example.com/a"})
	s.Require().NoError(err)
	s.now = s.now.Add(7 * 24 * time.Hour)

	// Act
	destination, err := s.sut.Resolve(context.Background(), link.Code)

	// Assert
	s.Require().NoError(err)
	s.Equal("https://example.com/a", destination)
}

func (s *LinkUsecaseTestSuite) TestResolve_MissPopulatesCacheWithRemainingTTL() {
	// Arrange
	expiresAt := s.now.Add(90 * time.Minute)
	s.seed("abc123", "https://example.com", &expiresAt)

	// Act
	destination, err := s.sut.Resolve(context.Background(), "abc123")

	// Assert
	s.Require().NoError(err)
	s.Equal("https://example.com", destination)
	entry, ok := s.cache.entry("abc123")
	s.True(ok)
	s.Equal(90*time.Minute, entry.ttl)
}

func (s *LinkUsecaseTestSuite) TestResolve_HitStillChecksExpiry() {
	// Arrange
	expiresAt := s.now.Add(-time.Second)
	s.seed("abc123", "https://example.com", &expiresAt)
	s.cache.entries["abc123"] = cacheEntry{destination: "https://example.com"}

	// Act
	_, err := s.sut.Resolve(context.Background(), "abc123")

	// Assert
	s.ErrorIs(err, ErrLinkExpired)
	_, ok := s.cache.entry("abc123")
	s.False(ok, "stale entry must be dropped")
	s.Equal([]string{"abc123"}, s.cache.invalidated)
}

func (s *LinkUsecaseTestSuite) TestResolve_ExpiresExactlyNowIsStillValid() {
	// Arrange
	expiresAt := s.now
	s.seed("abc123", "https://example.com", &expiresAt)

	// Act
	destination, err := s.sut.Resolve(context.Background(), "abc123")

	// Assert
	s.Require().NoError(err)
	s.Equal("https://example.com", destination)
	_, cached := s.cache.entry("abc123")
	s.False(cached, "no lifetime left to cache")
}

func (s *LinkUsecaseTestSuite) TestResolve_UnknownCode() {
	tests := []struct {
		name   string
		cached bool
	}{
		{name: "cache empty", cached: false},
		{name: "stale cache entry", cached: true},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			if tt.cached {
				s.cache.entries["nope00"] = cacheEntry{destination: "https://gone.example.com"}
			}

			_, err := s.sut.Resolve(context.Background(), "nope00")

			s.ErrorIs(err, ErrLinkNotFound)
			_, ok := s.cache.entry("nope00")
			s.False(ok)
		})
	}
}

func (s *LinkUsecaseTestSuite) TestResolve_MalformedCodeSkipsStore() {
	for _, code := range []string{"", "abc 12", "abc/12", "ab%2e", "aaaaaaaaaaaaaaaaaaaaaaaaa"} {
		s.Run(code, func() {
			_, err := s.sut.Resolve(context.Background(), code)

			s.ErrorIs(err, ErrLinkNotFound)
			s.Zero(s.repo.finds)
			s.Empty(s.recorder.recorded())
		})
	}
}

func (s *LinkUsecaseTestSuite) TestResolve_CacheReadFailureFallsBackToStore() {
	// Arrange
	s.seed("abc123", "https://example.com", nil)
	s.cache.getErr = errors.New("i/o timeout")

	// Act
	destination, err := s.sut.Resolve(context.Background(), "abc123")

	// Assert
	s.Require().NoError(err)
	s.Equal("https://example.com", destination)
}

func (s *LinkUsecaseTestSuite) TestResolve_StoreFailureSurfaces() {
	// Arrange
	s.repo.findErr = errors.New("connection reset")

	// Act
	_, err := s.sut.Resolve(context.Background(), "abc123")

	// Assert
	s.Error(err)
	s.False(errors.Is(err, ErrLinkNotFound))
}

func (s *LinkUsecaseTestSuite) TestRedirect_RecordsExactlyOneClick() {
	// Arrange
	s.seed("abc123", "https://example.com", nil)
	visit := Visit{ClientAddress: "203.0.113.7", UserAgent: "curl/8.0", Referrer: "https://news.ycombinator.com/"}

	// Act
	destination, err := s.sut.Redirect(context.Background(), "abc123", visit)

	// Assert
	s.Require().NoError(err)
	s.Equal("https://example.com", destination)
	events := s.recorder.recorded()
	s.Require().Len(events, 1)
	s.Equal("evt-1", events[0].ID)
	s.Equal("abc123", events[0].Code)
	s.Equal(s.now, events[0].OccurredAt)
	s.Equal("203.0.113.7", events[0].ClientAddress)
	s.Equal("curl/8.0", events[0].UserAgent)
	s.Equal("https://news.ycombinator.com/", events[0].Referrer)
}

func (s *LinkUsecaseTestSuite) TestRedirect_DistinctRedirectsGetDistinctIDs() {
	// Arrange
	s.seed("abc123", "https://example.com", nil)

	// Act
	_, err1 := s.sut.Redirect(context.Background(), "abc123", Visit{})
	_, err2 := s.sut.Redirect(context.Background(), "abc123", Visit{})

	// Assert
	s.Require().NoError(err1)
	s.Require().NoError(err2)
	events := s.recorder.recorded()
	s.Require().Len(events, 2)
	s.NotEqual(events[0].ID, events[1].ID)
}

func (s *LinkUsecaseTestSuite) TestRedirect_FailedResolveRecordsNothing() {
	// Arrange
	expiresAt := s.now.Add(-time.Hour)
	s.seed("old000", "https://example.com", &expiresAt)

	// Act
	_, errExpired := s.sut.Redirect(context.Background(), "old000", Visit{})
	_, errMissing := s.sut.Redirect(context.Background(), "nope00", Visit{})

	// Assert
	s.ErrorIs(errExpired, ErrLinkExpired)
	s.ErrorIs(errMissing, ErrLinkNotFound)
	s.Empty(s.recorder.recorded())
}

func (s *LinkUsecaseTestSuite) TestDescribe_IncludesExpiredLinksAndTotals() {
	// Arrange
	expiresAt := s.now.Add(-time.Hour)
	s.seed("old000", "https://example.com", &expiresAt)
	s.clicks.counts["old000"] = 7

	// Act
	detail, err := s.sut.Describe(context.Background(), "old000")

	// Assert
	s.Require().NoError(err)
	s.True(detail.Expired)
	s.Equal(int64(7), detail.TotalClicks)
	s.Empty(s.recorder.recorded())
}

func (s *LinkUsecaseTestSuite) TestDescribe_UnknownCode() {
	// Act
	_, err := s.sut.Describe(context.Background(), "nope00")

	// Assert
	s.ErrorIs(err, ErrLinkNotFound)
}

func TestNewEventID_IsUUIDv7(t *testing.T) {
	id := newEventID()

	if len(id) != 36 || id[14] != '7' {
		t.Fatalf("expected a version 7 UUID, got %q", id)
	}
}
