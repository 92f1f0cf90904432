package synctrigger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/md-rashed-zaman/slotwise/libs/kafkax"
)

const EventSyncRequested = "calendar.sync.requested.v1"

// SyncRequest asks the calendar sync collaborator to refresh a provider.
type SyncRequest struct {
	EventID     string    `json:"event_id"`
	ProviderID  string    `json:"provider_id"`
	Reason      string    `json:"reason"`
	RequestedAt time.Time `json:"requested_at"`
}

type Publisher interface {
	Publish(ctx context.Context, req SyncRequest) error
}

// KafkaPublisher writes requests keyed by provider so one provider's
// requests stay ordered.
type KafkaPublisher struct {
	w kafkax.MessageWriter
}

func NewKafkaPublisher(w kafkax.MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{w: w}
}

func (p *KafkaPublisher) Publish(ctx context.Context, req SyncRequest) error {
	const op = "synctrigger.KafkaPublisher.Publish"

	if req.EventID == "" {
		req.EventID = uuid.NewString()
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("%s: marshal: %w", op, err)
	}
	meta := kafkax.EventMeta{EventID: req.EventID, EventType: EventSyncRequested}
	if err := kafkax.Publish(ctx, p.w, req.ProviderID, meta, payload); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// LogPublisher stands in when no brokers are configured.
type LogPublisher struct {
	Logger *slog.Logger
}

func (p LogPublisher) Publish(ctx context.Context, req SyncRequest) error {
	p.Logger.DebugContext(ctx, "sync publishing disabled, dropping request", "provider_id", req.ProviderID, "reason", req.Reason)
	return nil
}
