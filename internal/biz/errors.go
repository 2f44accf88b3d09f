package biz

import (
	"net/http"

	"github.com/go-kratos/kratos/v2/errors"
)

// Error reasons exposed to clients.
const (
	ReasonInvalidDestination = "INVALID_DESTINATION"
	ReasonInvalidExpiry      = "INVALID_EXPIRY"
	ReasonCollisionExhausted = "COLLISION_EXHAUSTED"
	ReasonLinkNotFound       = "LINK_NOT_FOUND"
	ReasonLinkExpired        = "LINK_EXPIRED"
	ReasonCodeTaken          = "SHORT_CODE_TAKEN"
)

var (
	// ErrInvalidDestination is the validation failure for a create request.
	// Use errors.Is to match; the message carries the concrete cause.
	ErrInvalidDestination = errors.BadRequest(ReasonInvalidDestination, "destination must be an absolute http or https URL")
	ErrInvalidExpiry      = errors.BadRequest(ReasonInvalidExpiry, "expires_at must be in the future")
	ErrCollisionExhausted = errors.Conflict(ReasonCollisionExhausted, "too many collisions")
	ErrLinkNotFound       = errors.NotFound(ReasonLinkNotFound, "short code not found")
	ErrLinkExpired        = errors.New(http.StatusGone, ReasonLinkExpired, "short link has expired")

	// ErrCodeTaken is returned by LinkRepo.Insert on a uniqueness violation.
	ErrCodeTaken = errors.Conflict(ReasonCodeTaken, "short code already exists")
)
