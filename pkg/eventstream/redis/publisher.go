// Package redis publishes site events to a Redis stream with go-redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"github.com/jlsoftware/jlsite/pkg/eventstream"
)

const (
	defaultWriteTimeout = 10 * time.Second
	defaultMaxLen       = 10000
)

// Config configures a Publisher.
type Config struct {
	// URL is a redis:// or rediss:// URL.
	URL    string
	Stream string

	// MaxLen caps the stream length (approximately). Defaults to 10000.
	MaxLen int64

	// WriteTimeout bounds one publish. Defaults to 10 seconds.
	WriteTimeout time.Duration
}

// streamWriter is the part of *goredis.Client the publisher needs.
type streamWriter interface {
	XAdd(ctx context.Context, a *goredis.XAddArgs) *goredis.StringCmd
	Close() error
}

// Publisher implements eventstream.Publisher by appending one stream entry
// per event. Each entry carries the entity key, event type and id next to the
// JSON payload so consumers can filter without decoding.
type Publisher struct {
	client  streamWriter
	stream  string
	maxLen  int64
	timeout time.Duration
	logger  *slog.Logger
}

// NewPublisher connects to cfg.URL and verifies the server answers.
func NewPublisher(ctx context.Context, cfg Config, logger *slog.Logger) (*Publisher, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis publisher requires a URL")
	}
	if cfg.Stream == "" {
		return nil, errors.New("redis publisher requires a stream name")
	}

	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return newPublisher(client, cfg, logger), nil
}

func newPublisher(client streamWriter, cfg Config, logger *slog.Logger) *Publisher {
	p := &Publisher{
		client:  client,
		stream:  cfg.Stream,
		maxLen:  cfg.MaxLen,
		timeout: cfg.WriteTimeout,
		logger:  logger,
	}
	if p.maxLen <= 0 {
		p.maxLen = defaultMaxLen
	}
	if p.timeout <= 0 {
		p.timeout = defaultWriteTimeout
	}
	return p
}

// PublishQuotation appends event keyed by the quotation id.
func (p *Publisher) PublishQuotation(ctx context.Context, event *eventstream.QuotationSubmittedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}
	return p.publish(ctx, event.Quotation.ID, event.EventType, event.EventID, event)
}

// PublishChatTurn appends event keyed by the turn id.
func (p *Publisher) PublishChatTurn(ctx context.Context, event *eventstream.ChatTurnRecordedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}
	return p.publish(ctx, event.Turn.ID, event.EventType, event.EventID, event)
}

func (p *Publisher) publish(ctx context.Context, key, eventType, eventID string, payload any) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling %s event: %w", eventType, err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	id, err := p.client.XAdd(ctx, &goredis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]any{
			"key":        key,
			"event_type": eventType,
			"event_id":   eventID,
			"payload":    string(value),
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("publishing %s event: %w", eventType, err)
	}

	p.logger.Debug("published event",
		"event_type", eventType,
		"event_id", eventID,
		"key", key,
		"entry_id", id,
	)
	return nil
}

// Close closes the client.
func (p *Publisher) Close() error {
	return p.client.Close()
}
