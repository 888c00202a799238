// Package eventbus publishes test-run notifications to NATS using a uniform
// event envelope.
package eventbus

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// CanonicalEvent is the envelope every published event uses.
type CanonicalEvent struct {
	EventID   string        `json:"event_id"`
	Source    string        `json:"source"`
	Type      string        `json:"type"`
	Timestamp time.Time     `json:"timestamp"`
	Context   EventContext  `json:"context"`
	Payload   EventPayload  `json:"payload"`
	Security  EventSecurity `json:"security"`
}

// EventContext ties an event to a run. SessionID carries the run id.
type EventContext struct {
	Channel   string `json:"channel,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

type EventPayload struct {
	Text     string                 `json:"text,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

type EventSecurity struct {
	Sensitivity string `json:"sensitivity,omitempty"` // low|medium|high
}

// NewEventID returns prefix + UTC date + "_" + 16 random hex chars.
func NewEventID(prefix string, t time.Time) string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return prefix + t.UTC().Format("20060102") + "_" + hex.EncodeToString(b)
}

// MinimalValidate checks required fields.
func (e *CanonicalEvent) MinimalValidate() bool {
	return e.EventID != "" && e.Source != "" && e.Type != "" && !e.Timestamp.IsZero()
}
