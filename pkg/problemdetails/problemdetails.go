// Package problemdetails renders RFC 7807 problem documents.
package problemdetails

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// ContentType is the media type of a problem document.
const ContentType = "application/problem+json"

const (
	TypeInvalidRequest = "invalid-request"
	TypeNotFound       = "not-found"
	TypeInternalError  = "internal-error"
)

// BaseURI prefixes every problem type.
var BaseURI = "https://clickpipe.dev/problems/"

// FieldError points a validation failure at one request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ProblemDetail struct {
	Type     string       `json:"type"`
	Title    string       `json:"title"`
	Status   int          `json:"status"`
	Detail   string       `json:"detail,omitempty"`
	Instance string       `json:"instance,omitempty"`
	Errors   []FieldError `json:"errors,omitempty"`
}

func New(status int, problemType, title, detail string) *ProblemDetail {
	return &ProblemDetail{
		Type:   BaseURI + problemType,
		Title:  title,
		Status: status,
		Detail: detail,
	}
}

// TypeFromReason turns an error reason such as LINK_NOT_FOUND into link-not-found.
func TypeFromReason(reason string) string {
	if reason == "" {
		return TypeInternalError
	}
	return strings.ReplaceAll(strings.ToLower(reason), "_", "-")
}

// Title returns the standard status text, falling back to the numeric code.
func Title(status int) string {
	if text := http.StatusText(status); text != "" {
		return text
	}
	return fmt.Sprintf("HTTP %d", status)
}

// Write sends p with the problem media type.
func Write(w http.ResponseWriter, p *ProblemDetail) error {
	w.Header().Set("Content-Type", ContentType)
	w.WriteHeader(p.Status)
	return json.NewEncoder(w).Encode(p)
}
