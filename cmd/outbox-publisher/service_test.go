package main

import (
	"context"
	"errors"
	"io"
	"testing"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/ttkdelivery/ttk-backend/pkg/config"
	"github.com/ttkdelivery/ttk-backend/pkg/db/models"
	"github.com/ttkdelivery/ttk-backend/pkg/enums"
	"github.com/ttkdelivery/ttk-backend/pkg/logger"
)

type fakeRepo struct {
	events    []models.OutboxEvent
	fetchErr  error
	published []uuid.UUID
	failed    []uuid.UUID
}

func (f *fakeRepo) FetchUnpublished(limit, maxAttempts int) ([]models.OutboxEvent, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if limit < len(f.events) {
		return f.events[:limit], nil
	}
	return f.events, nil
}

func (f *fakeRepo) MarkPublished(id uuid.UUID) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailed(id uuid.UUID, err error) error {
	f.failed = append(f.failed, id)
	return nil
}

type fakePublishResult struct {
	err error
}

func (f fakePublishResult) Get(context.Context) (string, error) {
	return "msg-id", f.err
}

type fakePublisher struct {
	results  []publishResult
	messages []*gcppubsub.Message
}

func (f *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	f.messages = append(f.messages, msg)
	if len(f.results) == 0 {
		return fakePublishResult{}
	}
	result := f.results[0]
	f.results = f.results[1:]
	return result
}

func newTestService(t *testing.T, repo outboxRepository, factory publisherFactory) *Service {
	t.Helper()
	cfg := &config.Config{}
	cfg.Outbox.BatchSize = 10
	cfg.Outbox.MaxAttempts = 3
	cfg.PubSub.OrdersTopic = "orders-topic"
	cfg.PubSub.CatalogTopic = "catalog-topic"
	cfg.PubSub.NotificationTopic = "notification-topic"
	logg := logger.New(logger.Options{ServiceName: "outbox-test", Output: io.Discard})
	return &Service{
		cfg:              cfg,
		logg:             logg,
		repo:             repo,
		publisherFactory: factory,
		batchSize:        cfg.Outbox.BatchSize,
		maxAttempts:      cfg.Outbox.MaxAttempts,
	}
}

func orderEvent() models.OutboxEvent {
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       []byte(`{"order_id":"abc"}`),
	}
}

func TestProcessBatchPublishesAndMarks(t *testing.T) {
	event := orderEvent()
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	pub := &fakePublisher{}
	service := newTestService(t, repo, func(topic string) publisher {
		if topic != "orders-topic" {
			t.Fatalf("unexpected topic %q", topic)
		}
		return pub
	})

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if len(repo.published) != 1 || repo.published[0] != event.ID {
		t.Fatalf("published rows = %v", repo.published)
	}
	if len(pub.messages) != 1 {
		t.Fatalf("expected one message, got %d", len(pub.messages))
	}
	msg := pub.messages[0]
	if msg.Attributes["event_type"] != "order_created" {
		t.Fatalf("unexpected event_type attribute %q", msg.Attributes["event_type"])
	}
	if msg.Attributes["aggregate_id"] != event.AggregateID.String() {
		t.Fatalf("unexpected aggregate_id attribute %q", msg.Attributes["aggregate_id"])
	}
	if string(msg.Data) != `{"order_id":"abc"}` {
		t.Fatalf("unexpected payload %s", msg.Data)
	}
}

func TestProcessBatchContinuesAfterFailure(t *testing.T) {
	first := orderEvent()
	second := orderEvent()
	repo := &fakeRepo{events: []models.OutboxEvent{first, second}}
	pub := &fakePublisher{
		results: []publishResult{
			fakePublishResult{err: errors.New("transient")},
			fakePublishResult{},
		},
	}
	service := newTestService(t, repo, func(string) publisher { return pub })

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if len(repo.failed) != 1 || repo.failed[0] != first.ID {
		t.Fatalf("failed rows = %v", repo.failed)
	}
	if len(repo.published) != 1 || repo.published[0] != second.ID {
		t.Fatalf("published rows = %v", repo.published)
	}
}

func TestProcessBatchRoutesByAggregateType(t *testing.T) {
	product := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventProductRestocked,
		AggregateType: enums.AggregateProduct,
		AggregateID:   uuid.New(),
		Payload:       []byte(`{}`),
	}
	driver := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventDriverEnteredRegion,
		AggregateType: enums.AggregateDriver,
		AggregateID:   uuid.New(),
		Payload:       []byte(`{}`),
	}
	repo := &fakeRepo{events: []models.OutboxEvent{product, driver}}
	var topics []string
	pub := &fakePublisher{}
	service := newTestService(t, repo, func(topic string) publisher {
		topics = append(topics, topic)
		return pub
	})

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if len(topics) != 2 || topics[0] != "catalog-topic" || topics[1] != "notification-topic" {
		t.Fatalf("unexpected topic routing %v", topics)
	}
}

func TestProcessBatchEmptyQueue(t *testing.T) {
	repo := &fakeRepo{}
	service := newTestService(t, repo, func(string) publisher {
		t.Fatal("publisher should not be built for an empty batch")
		return nil
	})

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if processed {
		t.Fatalf("expected empty batch to report not processed")
	}
}

func TestProcessBatchPropagatesFetchErrors(t *testing.T) {
	repo := &fakeRepo{fetchErr: errors.New("db down")}
	service := newTestService(t, repo, func(string) publisher { return &fakePublisher{} })

	if _, err := service.processBatch(context.Background()); err == nil {
		t.Fatalf("expected fetch error to propagate")
	}
}

func TestProcessBatchMissingPublisherMarksFailed(t *testing.T) {
	event := orderEvent()
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	service := newTestService(t, repo, func(string) publisher { return nil })

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if len(repo.failed) != 1 || repo.failed[0] != event.ID {
		t.Fatalf("failed rows = %v", repo.failed)
	}
}
