// Package events publishes pricing activity to Kafka.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/sfgaluminium1-spec/sfg-app-portfolio-sub004/internal/pricing"
)

type writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher implements pricing.ActivityLog by writing each activity to a Kafka topic.
type Publisher struct {
	w      writer
	topic  string
	logger *zap.Logger
}

// NewWriter returns a writer for topic on brokers. Messages with the same key land on the same partition.
func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
}

// NewPublisher publishes to topic on brokers.
func NewPublisher(brokers []string, topic string, logger *zap.Logger) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("no kafka brokers configured")
	}
	if topic == "" {
		return nil, errors.New("no kafka topic configured")
	}
	return newPublisher(NewWriter(brokers, topic), topic, logger), nil
}

func newPublisher(w writer, topic string, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{w: w, topic: topic, logger: logger.Named("events")}
}

// AppendActivity implements pricing.ActivityLog.
func (p *Publisher) AppendActivity(ctx context.Context, activity pricing.Activity) error {
	value, err := json.Marshal(activity)
	if err != nil {
		return fmt.Errorf("encode activity: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(activity.PredictionID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(activity.Type)},
		},
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish activity to %s: %w", p.topic, err)
	}

	p.logger.Debug("activity published",
		zap.String("topic", p.topic),
		zap.String("prediction_id", activity.PredictionID),
	)
	return nil
}

// Close flushes pending messages and releases the writer.
func (p *Publisher) Close() error {
	return p.w.Close()
}

// Tee appends every activity to each log in turn. All logs are attempted; their errors are joined.
type Tee []pricing.ActivityLog

// AppendActivity implements pricing.ActivityLog.
func (t Tee) AppendActivity(ctx context.Context, activity pricing.Activity) error {
	var errs []error
	for _, log := range t {
		if err := log.AppendActivity(ctx, activity); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
