package biz

import (
	"context"
	"time"
)

// ClickEvent is one successful resolution. ID is assigned once at resolve
// time and stays the same across redeliveries.
type ClickEvent struct {
	ID            string
	Code          string
	OccurredAt    time.Time
	ClientAddress string
	UserAgent     string
	Referrer      string
}

// Visit is the request metadata captured before the redirect is written.
type Visit struct {
	ClientAddress string
	UserAgent     string
	Referrer      string
}

// ClickRecord is a ClickEvent as stored, with derived attributes.
type ClickRecord struct {
	ClickEvent
	DeviceType    string
	TrafficSource string
	CountryCode   string
	RecordedAt    time.Time
}

// ClickRecorder hands a click off for durable recording. Record must not block
// on the network and must not fail the caller.
type ClickRecorder interface {
	Record(ctx context.Context, event *ClickEvent)
}

// ClickRepo persists click records.
type ClickRepo interface {
	// Insert stores the record unless one with the same event ID already
	// exists. It reports whether a row was written.
	Insert(ctx context.Context, record *ClickRecord) (bool, error)
	CountByCode(ctx context.Context, code string) (int64, error)
}
