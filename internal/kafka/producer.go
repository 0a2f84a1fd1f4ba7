package kafka

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"ms-onboarding/internal/models"
)

// Topic names for the onboarding event streams.
const (
	TopicStatusEvents     = "application-status-events"
	TopicAssignmentEvents = "stall-assignment-events"
)

// Producer publishes lifecycle notifications consumed by the email and
// credential delivery services.
type Producer struct {
	statusWriter     *kafka.Writer
	assignmentWriter *kafka.Writer
}

func NewProducer(brokers []string) *Producer {
	return &Producer{
		statusWriter: kafka.NewWriter(kafka.WriterConfig{
			Brokers: brokers,
			Topic:   TopicStatusEvents,
		}),
		assignmentWriter: kafka.NewWriter(kafka.WriterConfig{
			Brokers: brokers,
			Topic:   TopicAssignmentEvents,
		}),
	}
}

// PublishStatusChanged streams one successful status transition.
func (p *Producer) PublishStatusChanged(event models.TransitionEvent) error {
	msgBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.statusWriter.WriteMessages(context.Background(),
		kafka.Message{
			Key:   []byte(event.ApplicationID),
			Value: msgBytes,
		},
	)
}

// PublishStallAssigned streams one completed stall assignment.
func (p *Producer) PublishStallAssigned(event models.AssignmentEvent) error {
	msgBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.assignmentWriter.WriteMessages(context.Background(),
		kafka.Message{
			Key:   []byte(event.StallID),
			Value: msgBytes,
		},
	)
}

// Close shuts both writers down.
func (p *Producer) Close() error {
	if err := p.statusWriter.Close(); err != nil {
		return err
	}
	return p.assignmentWriter.Close()
}
