package eventbus

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"clickpipe/internal/biz"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

const (
	// ClickEventName is set as the event_name metadata of every click message.
	ClickEventName = "link.clicked"

	metadataEventName = "event_name"
	metadataShortCode = "short_code"
)

// ErrMalformedClick marks a message whose payload cannot become a ClickEvent.
var ErrMalformedClick = errors.New("malformed click message")

var clickNamespace = uuid.MustParse("6f1c3c1e-5a8e-4d43-9a55-0c8b7e0b2a41")

// ClickMessage is the JSON body of a click on the wire. Fields are only ever
// added; decoders ignore what they do not know.
type ClickMessage struct {
	EventID   string    `json:"event_id,omitempty"`
	ShortCode string    `json:"short_code"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
	Referrer  string    `json:"referrer"`
	ClickedAt Timestamp `json:"clicked_at"`
}

// Timestamp is an ISO-8601 instant. It encodes as RFC 3339 UTC and also
// accepts timestamps without an offset, which are read as UTC.
type Timestamp struct {
	time.Time
}

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
		t.Time = parsed.UTC()
		return nil
	}
	for _, layout := range naiveLayouts {
		if parsed, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("invalid timestamp %q", s)
}

// NewClickMessage encodes event as a watermill message whose UUID is the event ID.
func NewClickMessage(event *biz.ClickEvent) (*message.Message, error) {
	payload, err := json.Marshal(ClickMessage{
		EventID:   event.ID,
		ShortCode: event.Code,
		IPAddress: event.ClientAddress,
		UserAgent: event.UserAgent,
		Referrer:  event.Referrer,
		ClickedAt: Timestamp{event.OccurredAt},
	})
	if err != nil {
		return nil, err
	}

	msg := message.NewMessage(event.ID, payload)
	msg.Metadata.Set(metadataEventName, ClickEventName)
	msg.Metadata.Set(metadataShortCode, event.Code)
	return msg, nil
}

// DecodeClickMessage parses msg. Failures wrap ErrMalformedClick.
// A missing event_id falls back to the message UUID, then to a name-based
// UUID of the payload.
func DecodeClickMessage(msg *message.Message) (*biz.ClickEvent, error) {
	var m ClickMessage
	if err := json.Unmarshal(msg.Payload, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedClick, err)
	}
	if m.ShortCode == "" {
		return nil, fmt.Errorf("%w: short_code is required", ErrMalformedClick)
	}
	if m.ClickedAt.IsZero() {
		return nil, fmt.Errorf("%w: clicked_at is required", ErrMalformedClick)
	}

	id := m.EventID
	if id == "" {
		id = msg.UUID
	}
	if id == "" {
		// Producers that predate event IDs: derive one from the body so a
		// redelivered copy still maps to the same row.
		id = uuid.NewSHA1(clickNamespace, msg.Payload).String()
	}

	return &biz.ClickEvent{
		ID:            id,
		Code:          m.ShortCode,
		OccurredAt:    m.ClickedAt.Time,
		ClientAddress: m.IPAddress,
		UserAgent:     m.UserAgent,
		Referrer:      m.Referrer,
	}, nil
}
