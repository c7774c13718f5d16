// Package metrics publishes FSM-transition and disruption events to
// Elasticsearch (SPEC_FULL.md §4.14), wired as a runner.Observer so it sees
// exactly what the daemon just published without any extra polling.
package metrics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	elastic "github.com/elastic/go-elasticsearch/v8"
	"github.com/sirupsen/logrus"

	"github.com/aws/clock-bound/internal/config"
	"github.com/aws/clock-bound/internal/runner"
	"github.com/aws/clock-bound/internal/shm"
)

// Client publishes clock-status events to an Elasticsearch index.
type Client struct {
	es     *elastic.Client
	index  string
	logger *logrus.Logger

	mu              sync.Mutex
	lastClockStatus string
}

// Event is one document indexed per publish.
type Event struct {
	Timestamp       time.Time `json:"@timestamp"`
	ClockStatus     string    `json:"clock_status"`
	ChronyStatus    string    `json:"chrony_status"`
	DisruptionState string    `json:"disruption_state"`
	BoundNsec       int64     `json:"bound_nsec"`
	MaxDriftPPB     uint32    `json:"max_drift_rate_ppb"`
	Transitioned    bool      `json:"transitioned"`
}

// NewClient builds a Client from an ElasticsearchConfig. Returns an error
// (not a fatal one — the caller decides whether to run without metrics) if
// no hosts are configured.
func NewClient(cfg config.ElasticsearchConfig, logger *logrus.Logger) (*Client, error) {
	if len(cfg.Hosts) == 0 {
		return nil, fmt.Errorf("no elasticsearch hosts configured")
	}

	index := cfg.Index
	if index == "" {
		index = "clockbound-events"
	}

	es, err := elastic.NewClient(elastic.Config{
		Addresses: cfg.Hosts,
		APIKey:    cfg.APIKey,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build elasticsearch client: %w", err)
	}

	return &Client{es: es, index: index, logger: logger}, nil
}

// OnPublish implements runner.Observer: it indexes an event on every clock
// status transition, and throttles to one-per-minute otherwise so a
// steady-state Synchronized daemon does not spam the index.
func (c *Client) OnPublish(record shm.ClockErrorBound, chronyStatus, disruptionState string) {
	status := record.ClockStatus.String()

	c.mu.Lock()
	transitioned := status != c.lastClockStatus
	c.lastClockStatus = status
	c.mu.Unlock()

	if !transitioned && record.AsOf.Sec%60 != 0 {
		return
	}

	evt := Event{
		Timestamp:       time.Now(),
		ClockStatus:     status,
		ChronyStatus:    chronyStatus,
		DisruptionState: disruptionState,
		BoundNsec:       record.BoundNsec,
		MaxDriftPPB:     record.MaxDriftPPB,
		Transitioned:    transitioned,
	}
	c.PublishAsync(context.Background(), evt)
}

var _ runner.Observer = (*Client)(nil)

// Publish indexes a single event synchronously.
func (c *Client) Publish(ctx context.Context, evt Event) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	res, err := c.es.Index(c.index, bytes.NewReader(body), c.es.Index.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch index error: %s", res.String())
	}
	return nil
}

// PublishAsync indexes evt on a background goroutine, logging (not
// returning) any failure.
func (c *Client) PublishAsync(ctx context.Context, evt Event) {
	go func() {
		if err := c.Publish(ctx, evt); err != nil {
			c.logger.WithError(err).Warn("metrics publish failed")
		}
	}()
}
