package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"collabapi/internal/middleware"
	"collabapi/internal/models"
	"collabapi/internal/notify"
	"collabapi/internal/token"
)

func streamBody(t *testing.T, hub *notify.Hub, wait time.Duration) string {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.GET("/stream", func(c *gin.Context) {
		middleware.SetClaims(c, token.Claims{
			UserID: primitive.NewObjectID(),
			Role:   models.RoleInfluencer,
		})
	}, NotificationStream(hub))

	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/stream", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec.Body.String()
}

func TestNotificationStreamEmitsHeartbeatEvents(t *testing.T) {
	hub := notify.NewHub(10, 20*time.Millisecond)

	body := streamBody(t, hub, 120*time.Millisecond)

	if !strings.Contains(body, `"type":"connected"`) {
		t.Fatalf("stream missing connected event: %q", body)
	}
	if !strings.Contains(body, `"type":"heartbeat"`) {
		t.Fatalf("stream missing heartbeat event: %q", body)
	}
	// heartbeats must be data frames an EventSource client can observe
	if strings.Contains(body, ": ping") {
		t.Fatalf("stream contains comment-only keepalives: %q", body)
	}
}

func TestNotificationStreamUsesDataFrames(t *testing.T) {
	hub := notify.NewHub(10, 15*time.Millisecond)

	body := streamBody(t, hub, 60*time.Millisecond)

	for _, line := range strings.Split(body, "\n") {
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "data:") {
			t.Fatalf("unexpected non-data frame %q in %q", line, body)
		}
	}
}
