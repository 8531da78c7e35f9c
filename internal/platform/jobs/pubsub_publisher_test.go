package jobs

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/crewdesk/api/internal/services"
)

func TestPubSubSweepEventPublisherPublishesMessage(t *testing.T) {
	ctx := context.Background()
	srv := pstest.NewServer()
	defer srv.Close()

	client, err := pubsub.NewClient(ctx, "test-project",
		option.WithEndpoint(srv.Addr),
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	)
	if err != nil {
		t.Fatalf("pubsub.NewClient: %v", err)
	}
	defer func() {
		_ = client.Close()
	}()

	topic, err := client.CreateTopic(ctx, "booking-sweeps")
	if err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}

	publisher, err := NewPubSubSweepEventPublisher(topic)
	if err != nil {
		t.Fatalf("NewPubSubSweepEventPublisher: %v", err)
	}

	msg := services.SweepEventMessage{
		RunID:               "01JC9Y2K4M",
		CompletedBookingIDs: []string{"bk1", "bk2"},
		SweptAt:             time.Date(2025, 10, 10, 3, 0, 0, 0, time.UTC),
	}
	if _, err := publisher.PublishSweepEvent(ctx, msg); err != nil {
		t.Fatalf("PublishSweepEvent: %v", err)
	}

	messages := srv.Messages()
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}

	var payload services.SweepEventMessage
	if err := json.Unmarshal(messages[0].Data, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.RunID != msg.RunID || len(payload.CompletedBookingIDs) != 2 {
		t.Fatalf("unexpected payload %#v", payload)
	}
	if attr := messages[0].Attributes["runId"]; attr != msg.RunID {
		t.Fatalf("expected runId attribute, got %q", attr)
	}
	if attr := messages[0].Attributes["completedCount"]; attr != "2" {
		t.Fatalf("expected completedCount attribute 2, got %q", attr)
	}
}

func TestNewPubSubSweepEventPublisherRequiresTopic(t *testing.T) {
	if _, err := NewPubSubSweepEventPublisher(nil); err == nil {
		t.Fatalf("expected error for nil topic")
	}
}
