package feed

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sitewise_feed_events_published_total",
		Help: "Change events published to the Redis channel.",
	})
	eventsBroadcast = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sitewise_feed_events_broadcast_total",
		Help: "Change events fanned out to SSE subscribers.",
	})
)
