// Package events publishes verification outcomes to NATS so that other
// systems (dashboards, alerting) can react to portal health without polling
// the service API. Entirely optional at runtime.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// ResultEvent is one finished verification run.
type ResultEvent struct {
	RunID      string    `json:"run_id"`
	Outcome    string    `json:"outcome"`
	Reason     string    `json:"reason,omitempty"`
	Rotated    bool      `json:"rotated,omitempty"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Artifacts  []string  `json:"artifacts,omitempty"`
}

func (e ResultEvent) valid() bool {
	return e.RunID != "" && e.Outcome != ""
}

// Bus is a thin publisher over a NATS core subject.
type Bus struct {
	nc      *nats.Conn
	subject string
}

func NewBus(url, subject string) (*Bus, error) {
	if url == "" {
		url = nats.DefaultURL
	}
	nc, err := nats.Connect(url,
		nats.Name("portalverify-events"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, err
	}
	if subject == "" {
		subject = "portal.verify.results"
	}
	return &Bus{nc: nc, subject: subject}, nil
}

func (b *Bus) Publish(ctx context.Context, evt ResultEvent) error {
	if !evt.valid() {
		return fmt.Errorf("invalid event: missing required fields")
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return b.nc.Publish(b.subject, data)
}

func (b *Bus) Close() {
	b.nc.Drain()
}
