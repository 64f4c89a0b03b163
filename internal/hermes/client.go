// Package hermes is the NATS event bus client. Parley only ever publishes
// aggregate counters on it — conversation content never crosses this boundary.
package hermes

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// SubjectAnalysisCompleted carries one content-free usage event per analysis.
const SubjectAnalysisCompleted = "swarm.parley.analysis.completed"

// AnalysisCompleted is the published payload: counts and timings only.
type AnalysisCompleted struct {
	Source        string   `json:"source"`
	Messages      int      `json:"messages"`
	Participants  int      `json:"participants"`
	Questions     int      `json:"questions"`
	Tensions      int      `json:"tensions"`
	Misalignments int      `json:"misalignments"`
	DraftAnalyzed bool     `json:"draft_analyzed"`
	Degraded      []string `json:"degraded,omitempty"`
	DurationMS    int64    `json:"duration_ms"`
}

type Client struct {
	conn   *nats.Conn
	logger *slog.Logger
}

func NewClient(url, token string, logger *slog.Logger) (*Client, error) {
	opts := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Client{conn: nc, logger: logger}, nil
}

func (c *Client) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return c.conn.Publish(subject, payload)
}

func (c *Client) Close() {
	c.conn.Close()
}
