package controller

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/buildgrid/sitewise/feed"
	"github.com/buildgrid/sitewise/middleware"
	service "github.com/buildgrid/sitewise/service"
)

// FeedController serves the per-project SSE change stream the SPA's store
// subscribes to.
type FeedController struct {
	broker *feed.Broker
	team   *service.TeamService
}

func NewFeedController(broker *feed.Broker, team *service.TeamService) *FeedController {
	return &FeedController{broker: broker, team: team}
}

// heartbeatInterval keeps proxies from timing out an idle stream.
const heartbeatInterval = 25 * time.Second

// Stream holds the connection open and writes one SSE event per change in the
// project. Events carry only identity; clients refetch what changed.
func (c *FeedController) Stream(ctx *gin.Context) {
	projectID := ctx.Param("id")
	userID := middleware.CurrentUser(ctx)
	if _, err := c.team.RequireMember(projectID, userID); err != nil {
		respondError(ctx, err)
		return
	}

	ctx.Writer.Header().Set("Content-Type", "text/event-stream")
	ctx.Writer.Header().Set("Cache-Control", "no-cache")
	ctx.Writer.Header().Set("Connection", "keep-alive")
	ctx.Writer.Header().Set("X-Accel-Buffering", "no")

	ch := c.broker.Subscribe(projectID)
	defer c.broker.Unsubscribe(projectID, ch)

	if _, err := ctx.Writer.Write([]byte(": connected\n\n")); err != nil {
		return
	}
	ctx.Writer.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	done := ctx.Request.Context().Done()
	for {
		select {
		case <-done:
			return
		case data := <-ch:
			if _, err := ctx.Writer.Write([]byte("data: ")); err != nil {
				return
			}
			if _, err := ctx.Writer.Write(data); err != nil {
				return
			}
			if _, err := ctx.Writer.Write([]byte("\n\n")); err != nil {
				return
			}
			ctx.Writer.Flush()
		case <-heartbeat.C:
			if _, err := ctx.Writer.Write([]byte(": ping\n\n")); err != nil {
				return
			}
			ctx.Writer.Flush()
		}
	}
}
