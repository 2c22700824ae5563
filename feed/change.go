// Package feed fans row changes out to connected SPA clients. Every committed
// mutation publishes a thin change event to a Redis channel; a subscriber loop
// rebroadcasts it to per-project SSE streams. Clients refetch on receipt, so
// events carry identity, not row data.
package feed

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

// Change identifies one committed mutation.
type Change struct {
	ProjectID string `json:"project_id"`
	Entity    string `json:"entity"`
	EntityID  string `json:"entity_id"`
	Op        string `json:"op"` // created, updated, deleted
}

// Publisher pushes change events onto the Redis channel.
type Publisher struct {
	rc      *redis.Client
	channel string
}

// NewPublisher returns a Publisher, or nil when no Redis is configured; a nil
// Publisher silently drops events so services need no feed-enabled check.
func NewPublisher(rc *redis.Client, channel string) *Publisher {
	if rc == nil {
		return nil
	}
	return &Publisher{rc: rc, channel: channel}
}

// Publish sends the change event. Feed delivery is best effort: callers log
// the error and carry on, the write itself has already committed.
func (p *Publisher) Publish(ctx context.Context, ch Change) error {
	if p == nil {
		return nil
	}
	payload, err := json.Marshal(ch)
	if err != nil {
		return err
	}
	if err := p.rc.Publish(ctx, p.channel, payload).Err(); err != nil {
		return err
	}
	eventsPublished.Inc()
	return nil
}
