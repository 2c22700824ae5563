package controller

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	service "github.com/buildgrid/sitewise/service"
)

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", fmt.Errorf("task x: %w", service.ErrNotFound), http.StatusNotFound},
		{"forbidden", fmt.Errorf("role: %w", service.ErrForbidden), http.StatusForbidden},
		{"conflict", fmt.Errorf("stage: %w", service.ErrConflict), http.StatusConflict},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			ctx, _ := gin.CreateTestContext(w)
			respondError(ctx, tc.err)
			assert.Equal(t, tc.status, w.Code)
			assert.Contains(t, w.Body.String(), "error")
		})
	}
}

func TestParseDate(t *testing.T) {
	t.Run("empty is nil", func(t *testing.T) {
		got, err := parseDate("")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("bare date", func(t *testing.T) {
		got, err := parseDate("2026-03-02")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), *got)
	})

	t.Run("rfc3339", func(t *testing.T) {
		got, err := parseDate("2026-03-02T08:30:00Z")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, 8, got.Hour())
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := parseDate("next tuesday")
		assert.Error(t, err)
	})
}
