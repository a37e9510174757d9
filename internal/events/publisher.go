// Package events publishes an audit event for every executed action.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"

	"finassist/internal/config"
	"finassist/internal/logging"
	"finassist/internal/types"
)

// ActionEvent is the payload published after a request's turns persist.
type ActionEvent struct {
	UserID     string              `json:"user_id"`
	Kind       types.ActionKind    `json:"kind"`
	Summary    string              `json:"summary"`
	Source     string              `json:"source"`
	Provider   string              `json:"provider,omitempty"`
	Record     *types.ActionRecord `json:"record"`
	OccurredAt time.Time           `json:"occurred_at"`
}

// Publisher sends ActionEvents to a watermill topic.
type Publisher struct {
	pub    message.Publisher
	sub    message.Subscriber
	topic  string
	closer func() error
}

// NewPublisher builds the backend named by cfg.Backend.
func NewPublisher(cfg config.EventsConfig) (*Publisher, error) {
	logger := NewWatermillLogger(logging.Zap().Named("watermill"))
	topic := cfg.Topic
	if topic == "" {
		topic = "finassist.actions"
	}

	switch cfg.Backend {
	case "", "gochannel":
		return NewGoChannelPublisher(topic, logger), nil

	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return NewRedisStreamPublisher(client, topic, logger)

	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.Backend)
	}
}

// NewGoChannelPublisher publishes in-process. Subscribe returns the same
// channel so tests and the CLI can observe events.
func NewGoChannelPublisher(topic string, logger watermill.LoggerAdapter) *Publisher {
	ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, logger)
	return &Publisher{pub: ch, sub: ch, topic: topic, closer: ch.Close}
}

// NewRedisStreamPublisher publishes to a Redis stream named after the topic.
func NewRedisStreamPublisher(client redis.UniversalClient, topic string, logger watermill.LoggerAdapter) (*Publisher, error) {
	pub, err := redisstream.NewPublisher(redisstream.PublisherConfig{
		Client:     client,
		Marshaller: redisstream.DefaultMarshallerUnmarshaller{},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis stream publisher: %w", err)
	}
	// pub.Close also closes client.
	return &Publisher{pub: pub, topic: topic, closer: pub.Close}, nil
}

// Topic returns the topic events are published to.
func (p *Publisher) Topic() string { return p.topic }

// PublishAction marshals ev and publishes it.
func (p *Publisher) PublishAction(ctx context.Context, ev ActionEvent) error {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now()
	}
	if ev.Summary == "" {
		ev.Summary = ev.Record.Summary()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("user_id", ev.UserID)
	msg.Metadata.Set("kind", string(ev.Kind))
	msg.SetContext(ctx)

	if err := p.pub.Publish(p.topic, msg); err != nil {
		logging.EventsError("failed to publish %s for %s: %v", ev.Kind, ev.UserID, err)
		return fmt.Errorf("failed to publish event: %w", err)
	}
	logging.Events("published %s for %s (%s)", ev.Kind, ev.UserID, msg.UUID)
	return nil
}

// Subscribe returns the event stream for in-process backends.
func (p *Publisher) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	if p.sub == nil {
		return nil, fmt.Errorf("backend does not support in-process subscription")
	}
	return p.sub.Subscribe(ctx, p.topic)
}

// DecodeActionEvent parses a published payload.
func DecodeActionEvent(msg *message.Message) (ActionEvent, error) {
	var ev ActionEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		return ev, fmt.Errorf("failed to decode event: %w", err)
	}
	return ev, nil
}

// Close releases the backend.
func (p *Publisher) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer()
}
