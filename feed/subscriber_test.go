package feed

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) *redis.Client {
	m, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(m.Close)
	rc := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { rc.Close() })
	return rc
}

func TestSubscribeChanges(t *testing.T) {
	rc := setupRedis(t)

	var mu sync.Mutex
	var gotProject string
	var gotData []byte
	broadcast := func(projectID string, data []byte) {
		mu.Lock()
		gotProject = projectID
		gotData = data
		mu.Unlock()
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		SubscribeChanges(ctx, rc, "sitewise:changes", broadcast)
		close(done)
	}()
	// wait for subscription to start
	time.Sleep(50 * time.Millisecond)

	payload := `{"project_id":"proj-1","entity":"task","entity_id":"task-1","op":"updated"}`
	require.NoError(t, rc.Publish(context.Background(), "sitewise:changes", payload).Err())
	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	assert.Equal(t, "proj-1", gotProject)
	assert.Equal(t, payload, string(gotData))
	mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("SubscribeChanges did not exit")
	}
}

func TestSubscribeChangesSkipsBadPayloads(t *testing.T) {
	rc := setupRedis(t)

	var mu sync.Mutex
	calls := 0
	broadcast := func(projectID string, data []byte) {
		mu.Lock()
		calls++
		mu.Unlock()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go SubscribeChanges(ctx, rc, "sitewise:changes", broadcast)
	time.Sleep(50 * time.Millisecond)

	// Malformed JSON and events without a project id are dropped.
	require.NoError(t, rc.Publish(context.Background(), "sitewise:changes", "{not json").Err())
	require.NoError(t, rc.Publish(context.Background(), "sitewise:changes", `{"entity":"task"}`).Err())
	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	assert.Equal(t, 0, calls)
	mu.Unlock()
}

func TestPublisherRoundTrip(t *testing.T) {
	rc := setupRedis(t)

	sub := rc.Subscribe(context.Background(), "sitewise:changes")
	defer sub.Close()
	ch := sub.Channel()
	time.Sleep(50 * time.Millisecond)

	p := NewPublisher(rc, "sitewise:changes")
	require.NotNil(t, p)
	require.NoError(t, p.Publish(context.Background(), Change{
		ProjectID: "proj-1",
		Entity:    "delivery",
		EntityID:  "del-1",
		Op:        "created",
	}))

	select {
	case msg := <-ch:
		var ev Change
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &ev))
		assert.Equal(t, "proj-1", ev.ProjectID)
		assert.Equal(t, "delivery", ev.Entity)
		assert.Equal(t, "created", ev.Op)
	case <-time.After(time.Second):
		t.Fatal("published change never arrived")
	}
}

func TestNilPublisher(t *testing.T) {
	assert.Nil(t, NewPublisher(nil, "sitewise:changes"))
	var p *Publisher
	assert.NoError(t, p.Publish(context.Background(), Change{ProjectID: "proj-1"}))
}
