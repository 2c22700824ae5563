package controller

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	service "github.com/buildgrid/sitewise/service"
)

// respondError maps service sentinel errors onto HTTP statuses; anything
// unexpected is a 500.
func respondError(ctx *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrConflict):
		status = http.StatusConflict
	}
	ctx.JSON(status, gin.H{"error": err.Error()})
}

// parseDate accepts the two formats the SPA sends: bare dates and full
// RFC 3339 timestamps.
func parseDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
