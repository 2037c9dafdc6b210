// Package events publishes project lifecycle notifications to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/meowem-bao/do1ad-assignment2/internal/domain"
)

// Event types.
const (
	ProjectCreated = "project.created"
	ProjectUpdated = "project.updated"
	ProjectDeleted = "project.deleted"
)

// ProjectEvent is the message body written for every project mutation.
type ProjectEvent struct {
	Type       string       `json:"type"`
	ProjectID  int64        `json:"project_id,string"`
	OwnerID    int64        `json:"owner_id,string"`
	Title      string       `json:"title,omitempty"`
	Phase      domain.Phase `json:"phase,omitempty"`
	OccurredAt time.Time    `json:"occurred_at"`
}

// NewProjectEvent builds an event from the project state after the mutation.
func NewProjectEvent(eventType string, p domain.Project, at time.Time) ProjectEvent {
	return ProjectEvent{
		Type:       eventType,
		ProjectID:  p.ID,
		OwnerID:    p.OwnerID,
		Title:      p.Title,
		Phase:      p.Phase,
		OccurredAt: at.UTC(),
	}
}

// Publisher delivers project events.
type Publisher interface {
	Publish(ctx context.Context, ev ProjectEvent) error
	Close() error
}

// NopPublisher drops every event. Used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, ProjectEvent) error { return nil }
func (NopPublisher) Close() error { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events keyed by project id so all events of one
// project land on the same partition in order.
type KafkaPublisher struct {
	writer  messageWriter
	topic   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewKafkaPublisher creates a synchronous writer for topic.
func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) *KafkaPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaPublisher{
		writer: kafka.NewWriter(kafka.WriterConfig{
			Brokers:      brokers,
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchSize:    10,
			BatchTimeout: 100 * time.Millisecond,
			RequiredAcks: 1,
		}),
		topic:   topic,
		timeout: 5 * time.Second,
		logger:  logger.Named("events"),
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev ProjectEvent) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(ev.ProjectID, 10)),
		Value: value,
		Time:  ev.OccurredAt,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(ev.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write %s to %s: %w", ev.Type, p.topic, err)
	}
	p.logger.Debug("event published", zap.String("type", ev.Type), zap.Int64("project_id", ev.ProjectID))
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
