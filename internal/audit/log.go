// Package audit records security-relevant actions (session issuance,
// resource mutations) as JSON lines on the shared logger. Entries carry
// the acting user and request id when the context has them.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"guildstock.gg/internal/obs"
	"guildstock.gg/internal/session"
)

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

// WithRequestID attaches the request identifier used to correlate audit
// entries with HTTP request logs.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// record is the wire shape of one audit line.
type record struct {
	TS        string         `json:"ts"`
	Type      string         `json:"type"`
	Event     string         `json:"event"`
	RequestID string         `json:"request_id,omitempty"`
	UserID    string         `json:"user_id,omitempty"`
	Fields    map[string]any `json:"fields"`
}

// LogEvent writes one audit entry. The event name is required; fields
// are copied so callers may reuse their map.
func LogEvent(ctx context.Context, event string, fields map[string]any) error {
	event = strings.TrimSpace(event)
	if event == "" {
		return errors.New("event name is required")
	}

	rec := record{
		TS:     time.Now().UTC().Format(time.RFC3339Nano),
		Type:   "audit",
		Event:  event,
		Fields: make(map[string]any, len(fields)),
	}
	for k, v := range fields {
		rec.Fields[k] = v
	}
	if ctx != nil {
		if rid, ok := ctx.Value(requestIDKey).(string); ok {
			rec.RequestID = rid
		}
		if userID, ok := session.UserIDFromContext(ctx); ok {
			rec.UserID = userID
		}
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	obs.Logger().Println(string(data))
	return nil
}
