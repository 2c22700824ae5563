package services

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/buildgrid/sitewise/events"
	"github.com/buildgrid/sitewise/feed"
	model "github.com/buildgrid/sitewise/models"
)

// Sentinel errors controllers translate into HTTP statuses.
var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
	ErrConflict  = errors.New("conflict")
)

// Notifier is the shared write-side plumbing: it persists the audit row, pushes
// the change onto the feed, and emits the Kafka activity event. Feed and Audit
// may be nil (the service runs fine without Redis or Kafka); failures here are
// logged and swallowed because the triggering write has already committed.
type Notifier struct {
	DB    *gorm.DB
	Feed  *feed.Publisher
	Audit *events.Producer
}

// Record logs one committed mutation across the audit table, the change feed
// and the event stream.
func (n *Notifier) Record(projectID, entity, entityID, op, actorID string, payload interface{}) {
	if n == nil {
		return
	}
	now := time.Now()

	var raw datatypes.JSON
	if payload != nil {
		if b, err := json.Marshal(payload); err == nil {
			raw = datatypes.JSON(b)
		} else {
			log.Printf("[Record] Error marshaling activity payload: %v", err)
		}
	}

	if n.DB != nil {
		ev := model.ActivityEvent{
			ProjectID: projectID,
			Entity:    entity,
			EntityID:  entityID,
			Op:        op,
			ActorID:   actorID,
			Payload:   raw,
			CreatedAt: now,
		}
		if err := n.DB.Create(&ev).Error; err != nil {
			log.Printf("[Record] Error saving activity event: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := n.Feed.Publish(ctx, feed.Change{
		ProjectID: projectID,
		Entity:    entity,
		EntityID:  entityID,
		Op:        op,
	}); err != nil {
		log.Printf("[Record] Error publishing change event: %v", err)
	}

	if err := n.Audit.Emit(ctx, events.Activity{
		ProjectID: projectID,
		Entity:    entity,
		EntityID:  entityID,
		Op:        op,
		ActorID:   actorID,
		At:        now,
	}); err != nil {
		log.Printf("[Record] Error emitting activity event: %v", err)
	}
}
