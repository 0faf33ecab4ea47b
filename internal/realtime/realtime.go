// Package realtime publishes ledger change notifications per project over
// Redis pub/sub.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type EventType string

const (
	EventCostSet           EventType = "cost_set"
	EventPaymentRecorded   EventType = "payment_recorded"
	EventPaymentReversed   EventType = "payment_reversed"
	EventExtraWorkAdded    EventType = "extra_work_added"
	EventExtraWorkDeleted  EventType = "extra_work_deleted"
	EventExtraWorkPaid     EventType = "extra_work_payment_recorded"
	EventExtraWorkReversed EventType = "extra_work_payment_reversed"
)

// Event tells subscribers that a project's ledger changed. Subscribers
// re-fetch; the event carries no balances.
type Event struct {
	Type      EventType `json:"type"`
	ProjectID uint      `json:"projectId"`
	EntityID  uint      `json:"entityId"`
	ActorID   uint      `json:"actorId"`
	At        time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Nop drops every event. Used when Redis is not configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

func Channel(projectID uint) string {
	return fmt.Sprintf("ledger:project:%d", projectID)
}

// Connect returns a client for addr, or nil when addr is empty or the server
// does not answer PING.
func Connect(ctx context.Context, addr string, log *zap.Logger) *redis.Client {
	if addr == "" {
		log.Warn("REDIS_ADDR not set, realtime notifications disabled")
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Error("redis ping failed, realtime notifications disabled", zap.String("addr", addr), zap.Error(err))
		_ = client.Close()
		return nil
	}
	log.Info("connected to redis", zap.String("addr", addr))
	return client
}

type RedisBus struct {
	client *redis.Client
}

func NewRedisBus(client *redis.Client) *RedisBus {
	return &RedisBus{client: client}
}

func (b *RedisBus) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := b.client.Publish(ctx, Channel(ev.ProjectID), payload).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Subscribe streams events for one project until ctx is done. The returned
// channel is closed when the subscription ends.
func (b *RedisBus) Subscribe(ctx context.Context, projectID uint) (<-chan Event, error) {
	sub := b.client.Subscribe(ctx, Channel(projectID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	out := make(chan Event)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
