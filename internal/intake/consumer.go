// Package intake feeds the resolution service from the software inventory
// topic. Host agents report sightings as JSON records; each poll batch is
// resolved in one call, resolutions whose status changed since the last
// publish go to the results topic for downstream patch tooling, and offsets
// are committed only after the batch lands. Redelivery after a crash is
// cheap: the cache serves the repeated resolutions.
package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"sunset/internal/domain"
	"sunset/internal/eol"
	"sunset/internal/intake/metrics"
	"sunset/internal/platform/config"
)

const defaultMaxPollRecords = 100

// Service is the slice of the resolution service the consumer uses.
type Service interface {
	ResolveBatch(ctx context.Context, queries []eol.Request) ([]*domain.ResolvedEOL, error)
}

// inventoryRecord is the wire shape on the inventory topic: one software
// sighting reported by a host agent.
type inventoryRecord struct {
	Name    string    `json:"name"`
	Version string    `json:"version"`
	HostID  string    `json:"host_id"`
	SeenAt  time.Time `json:"seen_at"`
}

// Consumer drives the intake loop.
type Consumer struct {
	client  *kgo.Client
	service Service
	logger  *slog.Logger
	metrics *metrics.Metrics

	inventoryTopic string
	resultsTopic   string
	groupID        string
	maxPollRecords int

	// lastStatus tracks the most recently published status per query key.
	// Only the Run goroutine touches it.
	lastStatus map[string]domain.Status
}

// Option configures a Consumer.
type Option func(*Consumer)

// WithLogger sets the consumer logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Consumer) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics sets the intake metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Consumer) {
		c.metrics = m
	}
}

// WithMaxPollRecords caps the records fetched per poll, and with them the
// size of one resolve batch.
func WithMaxPollRecords(n int) Option {
	return func(c *Consumer) {
		if n > 0 {
			c.maxPollRecords = n
		}
	}
}

// New builds the consumer and its Kafka client. The client connects lazily;
// Run performs the first round trip.
func New(cfg config.Kafka, service Service, opts ...Option) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("intake: at least one broker is required")
	}
	if service == nil {
		return nil, fmt.Errorf("intake: service is required")
	}

	c := &Consumer{
		service:        service,
		logger:         slog.Default(),
		inventoryTopic: cfg.InventoryTopic,
		resultsTopic:   cfg.ResultsTopic,
		groupID:        cfg.GroupID,
		maxPollRecords: defaultMaxPollRecords,
		lastStatus:     make(map[string]domain.Status),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.GroupID),
		kgo.ConsumeTopics(cfg.InventoryTopic),
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		return nil, fmt.Errorf("intake: build kafka client: %w", err)
	}
	c.client = client
	return c, nil
}

// Run ensures the topics exist and consumes until the context is canceled
// or the client is closed.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.ensureTopics(ctx); err != nil {
		return err
	}
	c.logger.InfoContext(ctx, "intake consumer started",
		"group", c.groupID,
		"inventory_topic", c.inventoryTopic,
		"results_topic", c.resultsTopic,
	)

	for {
		fetches := c.client.PollRecords(ctx, c.maxPollRecords)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			return nil
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.ErrorContext(ctx, "inventory fetch error",
				"topic", topic,
				"partition", partition,
				"error", err,
			)
		})

		records := fetches.Records()
		if len(records) == 0 {
			continue
		}

		if err := c.processBatch(ctx, records); err != nil {
			// Offsets stay uncommitted; the batch is redelivered after a
			// restart or rebalance.
			c.logger.ErrorContext(ctx, "intake batch failed, offsets not committed",
				"records", len(records),
				"error", err,
			)
			continue
		}
		if err := c.client.CommitRecords(ctx, records...); err != nil {
			c.logger.ErrorContext(ctx, "offset commit failed", "error", err)
		}
	}
}

// Close tears down the Kafka client, which also unblocks a running poll.
func (c *Consumer) Close() {
	c.client.Close()
}

// ensureTopics creates the inventory and results topics if the broker does
// not have them yet.
func (c *Consumer) ensureTopics(ctx context.Context) error {
	adm := kadm.NewClient(c.client)
	resp, err := adm.CreateTopics(ctx, 1, 1, nil, c.inventoryTopic, c.resultsTopic)
	if err != nil {
		return fmt.Errorf("intake: create topics: %w", err)
	}
	for _, res := range resp.Sorted() {
		if res.Err != nil && !errors.Is(res.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("intake: create topic %s: %w", res.Topic, res.Err)
		}
	}
	return nil
}

// processBatch resolves one poll batch and publishes the status changes.
func (c *Consumer) processBatch(ctx context.Context, records []*kgo.Record) error {
	queries := c.decodeBatch(ctx, records)
	c.metrics.ObserveBatchRecords(len(records))
	if len(queries) == 0 {
		return nil
	}

	resolved, err := c.service.ResolveBatch(ctx, queries)
	if err != nil {
		return fmt.Errorf("resolve batch: %w", err)
	}
	return c.publishChanges(ctx, resolved)
}

// decodeBatch converts raw records into deduplicated resolve queries.
// Malformed or nameless records are logged and dropped; they must not
// poison the batch.
func (c *Consumer) decodeBatch(ctx context.Context, records []*kgo.Record) []eol.Request {
	seen := make(map[eol.Request]struct{}, len(records))
	queries := make([]eol.Request, 0, len(records))
	for _, rec := range records {
		var inv inventoryRecord
		if err := json.Unmarshal(rec.Value, &inv); err != nil {
			c.metrics.IncrementRecord(metrics.RecordSkipped)
			c.logger.WarnContext(ctx, "dropping undecodable inventory record",
				"topic", rec.Topic,
				"partition", rec.Partition,
				"offset", rec.Offset,
				"error", err,
			)
			continue
		}
		if inv.Name == "" {
			c.metrics.IncrementRecord(metrics.RecordSkipped)
			c.logger.WarnContext(ctx, "dropping inventory record without a name",
				"host_id", inv.HostID,
				"offset", rec.Offset,
			)
			continue
		}
		c.metrics.IncrementRecord(metrics.RecordAccepted)

		q := eol.Request{Name: inv.Name, Version: inv.Version}
		if _, dup := seen[q]; dup {
			continue
		}
		seen[q] = struct{}{}
		queries = append(queries, q)
	}
	return queries
}

// publishChanges produces one event per resolution whose status differs
// from the last published status for its query key, then remembers the
// statuses that were acknowledged.
func (c *Consumer) publishChanges(ctx context.Context, resolved []*domain.ResolvedEOL) error {
	out, statusByKey := planPublishes(c.resultsTopic, resolved, c.lastStatus)
	if len(out) == 0 {
		return nil
	}

	results := c.client.ProduceSync(ctx, out...)
	var failed error
	for _, pr := range results {
		key := string(pr.Record.Key)
		if pr.Err != nil {
			failed = pr.Err
			continue
		}
		c.lastStatus[key] = statusByKey[key]
		c.metrics.IncrementPublished()
	}
	if failed != nil {
		return fmt.Errorf("publish resolved events: %w", failed)
	}
	return nil
}

// planPublishes selects the resolutions worth publishing: first sightings
// and status changes. It returns the records to produce and the status each
// key should be remembered at once its record is acknowledged.
func planPublishes(topic string, resolved []*domain.ResolvedEOL, last map[string]domain.Status) ([]*kgo.Record, map[string]domain.Status) {
	var out []*kgo.Record
	statusByKey := make(map[string]domain.Status)
	for _, r := range resolved {
		if r == nil {
			continue
		}
		if prev, ok := last[r.QueryKey]; ok && prev == r.Status {
			continue
		}
		value, _ := json.Marshal(r)
		out = append(out, &kgo.Record{
			Topic: topic,
			Key:   []byte(r.QueryKey),
			Value: value,
		})
		statusByKey[r.QueryKey] = r.Status
	}
	return out, statusByKey
}
