// Package shortcode derives short, URL-safe codes from destinations.
package shortcode

import (
	"crypto/md5"
	"encoding/base64"
	"strconv"
	"sync/atomic"
	"time"
)

const (
	// DefaultLength is the code length handed out unless configured otherwise.
	DefaultLength = 6
	// MaxLength is the length of an unpadded base64url MD5 digest.
	MaxLength = 22
)

// Generator produces codes from MD5(destination || salt), where the salt is the
// current time in nanoseconds plus a process-wide sequence number.
// It is safe for concurrent use. Uniqueness is not guaranteed; callers
// resolve collisions against the store.
type Generator struct {
	length int
	now    func() time.Time
	seq    atomic.Uint64
}

// Option configures a Generator.
type Option func(*Generator)

// WithClock overrides the salt clock.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		g.now = now
	}
}

// New returns a Generator emitting codes of the given length, clamped to 1..MaxLength.
// A non-positive length selects DefaultLength.
func New(length int, opts ...Option) *Generator {
	switch {
	case length <= 0:
		length = DefaultLength
	case length > MaxLength:
		length = MaxLength
	}
	g := &Generator{length: length, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Length returns the code length.
func (g *Generator) Length() int {
	return g.length
}

// Generate returns a candidate code for destination.
func (g *Generator) Generate(destination string) string {
	salt := strconv.FormatInt(g.now().UnixNano(), 10) + "." + strconv.FormatUint(g.seq.Add(1), 10)
	sum := md5.Sum([]byte(destination + salt))
	return base64.RawURLEncoding.EncodeToString(sum[:])[:g.length]
}

// Valid reports whether code could have been produced by a generator of any length.
func Valid(code string) bool {
	if code == "" || len(code) > MaxLength {
		return false
	}
	for _, r := range code {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
