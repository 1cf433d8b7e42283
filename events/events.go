// Package events publishes auth domain events for other systems, such as the mailer.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"github.com/jrsteele09/go-sso-server/internal/config"
)

// Event types
const (
	UserRegistered         = "user.registered"
	FamilyRevoked          = "auth.family_revoked"
	PasswordResetRequested = "auth.password_reset_requested"
	PasswordChanged        = "auth.password_changed"
	SSOCompleted           = "sso.completed"
)

// Event is the envelope written to the broker
type Event struct {
	Type       string         `json:"type"`
	OccurredAt time.Time      `json:"occurredAt"`
	Key        string         `json:"key"`
	Data       map[string]any `json:"data"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NewPublisherFromConfig returns a Kafka publisher when brokers are configured, otherwise a log publisher
func NewPublisherFromConfig(cfg config.EventsConfig) (Publisher, error) {
	brokers := cfg.GetKafkaBrokers()
	if len(brokers) == 0 {
		return LogPublisher{}, nil
	}
	return NewKafkaPublisher(brokers, cfg.GetEventTopics())
}

type KafkaPublisher struct {
	writer       *kafka.Writer
	topicByEvent map[string]string
}

func NewKafkaPublisher(brokers []string, topicByEvent map[string]string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher requires at least one broker")
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			RequiredAcks: kafka.RequireAll,
			Balancer:     &kafka.Hash{},
		},
		topicByEvent: topicByEvent,
	}, nil
}

// TopicFor resolves the topic an event type is written to
func (p *KafkaPublisher) TopicFor(eventType string) string {
	if mapped, ok := p.topicByEvent[eventType]; ok && mapped != "" {
		return mapped
	}
	return eventType
}

func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("[KafkaPublisher Publish] %w", err)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: p.TopicFor(event.Type),
		Key:   []byte(event.Key),
		Value: payload,
		Time:  event.OccurredAt,
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// LogPublisher writes events to the log instead of a broker. Only the field names of
// the payload are logged; values such as reset tokens never reach the log.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, event Event) error {
	fields := make([]string, 0, len(event.Data))
	for name := range event.Data {
		fields = append(fields, name)
	}
	sort.Strings(fields)
	log.Info().Str("event", event.Type).Str("key", event.Key).Strs("fields", fields).Msg("Event published")
	return nil
}

func (LogPublisher) Close() error {
	return nil
}

// Recorder keeps published events in memory
type Recorder struct {
	lock   sync.Mutex
	events []Event
	Err    error
}

func (r *Recorder) Publish(_ context.Context, event Event) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.events = append(r.events, event)
	return nil
}

func (r *Recorder) Close() error {
	return nil
}

// Events returns the recorded events of the given type, or all when eventType is empty
func (r *Recorder) Events(eventType string) []Event {
	r.lock.Lock()
	defer r.lock.Unlock()

	out := make([]Event, 0, len(r.events))
	for _, e := range r.events {
		if eventType == "" || e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}
