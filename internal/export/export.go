// Package export writes the local attendance log out as JSONL.  The export
// is the out-of-band copy the remote mirror can be rebuilt from.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/BrandonDHaskell/rollcall/internal/attendance/store"
	"github.com/BrandonDHaskell/rollcall/internal/attendance/types"
)

const formatVersion = "1"

// header is the first JSONL line written by ExportJSONL.
type header struct {
	Version     string    `json:"version"`
	Type        string    `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	RecordCount int       `json:"record_count"`
}

// Row is one attendance record line.
type Row struct {
	Type         string `json:"type"`
	IdentityID   string `json:"identity_id"`
	Name         string `json:"name"`
	Token        string `json:"token"`
	SessionID    string `json:"session_id"`
	Date         string `json:"date"`
	TapTime      string `json:"tap_time"`
	VerifiedTime string `json:"verified_time,omitempty"`
	Status       string `json:"status"`
}

type options struct {
	at time.Time
}

type Option func(*options)

// WithTimestamp fixes the header timestamp.
func WithTimestamp(t time.Time) Option {
	return func(o *options) { o.at = t }
}

func RowFor(rec types.AttendanceRecord) Row {
	r := Row{
		Type:       "attendance",
		IdentityID: rec.IdentityID,
		Name:       rec.Name,
		Token:      rec.Token,
		SessionID:  rec.SessionID,
		Date:       rec.Date,
		TapTime:    rec.TapTime.UTC().Format(time.RFC3339),
		Status:     string(rec.Status),
	}
	if rec.VerifiedTime != nil {
		r.VerifiedTime = rec.VerifiedTime.UTC().Format(time.RFC3339)
	}
	return r
}

// ExportJSONL writes a header line and then every attendance record in log
// order.  It returns the number of records written.
func ExportJSONL(ctx context.Context, log store.AttendanceLog, w io.Writer, opts ...Option) (int, error) {
	o := options{at: time.Now().UTC()}
	for _, fn := range opts {
		fn(&o)
	}

	recs, err := log.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("list attendance: %w", err)
	}

	enc := json.NewEncoder(w)
	if err := enc.Encode(header{
		Version:     formatVersion,
		Type:        "header",
		Timestamp:   o.at.UTC(),
		RecordCount: len(recs),
	}); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}

	for i, rec := range recs {
		if err := enc.Encode(RowFor(rec)); err != nil {
			return i, fmt.Errorf("write record %d: %w", i, err)
		}
	}
	return len(recs), nil
}

// Destination is where an export is uploaded.
type Destination interface {
	Write(ctx context.Context, data []byte) error
}
