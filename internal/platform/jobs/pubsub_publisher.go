package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"cloud.google.com/go/pubsub"

	"github.com/crewdesk/api/internal/services"
)

// PubSubSweepEventPublisher publishes sweep completion events to a Pub/Sub topic.
type PubSubSweepEventPublisher struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

var _ services.SweepEventPublisher = (*PubSubSweepEventPublisher)(nil)

// NewPubSubSweepEventPublisher constructs a Pub/Sub backed sweep event publisher.
func NewPubSubSweepEventPublisher(topic *pubsub.Topic) (*PubSubSweepEventPublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub sweep publisher: topic is required")
	}
	return &PubSubSweepEventPublisher{
		topic:   topic,
		marshal: json.Marshal,
	}, nil
}

// PublishSweepEvent emits one sweep completion message on the configured topic.
func (p *PubSubSweepEventPublisher) PublishSweepEvent(ctx context.Context, message services.SweepEventMessage) (string, error) {
	if p == nil || p.topic == nil {
		return "", errors.New("pubsub sweep publisher: not initialised")
	}

	data, err := p.marshal(message)
	if err != nil {
		return "", fmt.Errorf("marshal sweep event: %w", err)
	}

	attrs := make(map[string]string)
	if runID := strings.TrimSpace(message.RunID); runID != "" {
		attrs["runId"] = runID
	}
	attrs["completedCount"] = strconv.Itoa(len(message.CompletedBookingIDs))

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})

	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish sweep event: %w", err)
	}
	return id, nil
}
