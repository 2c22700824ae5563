package feed

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// SubscribeChanges listens on the Redis change channel and rebroadcasts each
// event to the project's SSE listeners. It reconnects with a small backoff if
// the pubsub channel closes, and returns only when ctx is cancelled.
func SubscribeChanges(ctx context.Context, rc *redis.Client, channel string, broadcast func(projectID string, data []byte)) {
	for {
		sub := rc.Subscribe(ctx, channel)
		ch := sub.Channel()
	recv:
		for {
			select {
			case <-ctx.Done():
				sub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break recv
				}
				var ev Change
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					log.Errorf("unable to parse change event: %v", err)
					continue
				}
				if ev.ProjectID == "" {
					log.Warnf("change event without project id: %s", msg.Payload)
					continue
				}
				broadcast(ev.ProjectID, []byte(msg.Payload))
			}
		}
		sub.Close()
		if ctx.Err() != nil {
			return
		}
		log.Error("pubsub channel closed, reconnecting")
		time.Sleep(time.Second)
	}
}
