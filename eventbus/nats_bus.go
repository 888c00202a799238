package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// DefaultSubject carries test-run events when no subject is configured.
const DefaultSubject = "agi.testrunner.events"

// NATSBus publishes events on a single NATS core subject.
type NATSBus struct {
	nc      *nats.Conn
	subject string
}

type NATSConfig struct {
	URL     string
	Subject string
	Name    string
}

func NewNATSBus(cfg NATSConfig) (*NATSBus, error) {
	url := cfg.URL
	if url == "" {
		url = nats.DefaultURL
	}
	name := cfg.Name
	if name == "" {
		name = "agi-test-runner"
	}
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", url, err)
	}
	subject := cfg.Subject
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSBus{nc: nc, subject: subject}, nil
}

// Subject returns the subject events are published on.
func (b *NATSBus) Subject() string {
	return b.subject
}

func (b *NATSBus) Publish(ctx context.Context, evt CanonicalEvent) error {
	data, err := Encode(evt)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.nc.Publish(b.subject, data)
}

// Subscribe delivers every decodable event on the subject to handler until
// ctx is done. Malformed messages are skipped.
func (b *NATSBus) Subscribe(ctx context.Context, handler func(CanonicalEvent)) (*nats.Subscription, error) {
	sub, err := b.nc.Subscribe(b.subject, func(msg *nats.Msg) {
		evt, err := Decode(msg.Data)
		if err == nil {
			handler(evt)
		}
	})
	if err != nil {
		return nil, err
	}
	go func() {
		<-ctx.Done()
		_ = sub.Drain()
	}()
	return sub, nil
}

// Close flushes pending events and closes the connection.
func (b *NATSBus) Close() {
	if b.nc == nil {
		return
	}
	_ = b.nc.FlushTimeout(2 * time.Second)
	b.nc.Close()
}

// Encode validates evt and serializes it for the wire.
func Encode(evt CanonicalEvent) ([]byte, error) {
	if !evt.MinimalValidate() {
		return nil, fmt.Errorf("invalid event: missing required fields")
	}
	return json.Marshal(evt)
}

// Decode parses a wire event and rejects envelopes missing required fields.
func Decode(data []byte) (CanonicalEvent, error) {
	var evt CanonicalEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return evt, err
	}
	if !evt.MinimalValidate() {
		return evt, fmt.Errorf("invalid event: missing required fields")
	}
	return evt, nil
}
