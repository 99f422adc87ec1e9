package handlers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"

	"collabapi/internal/notify"
)

// NotificationStream pushes the caller's events over SSE. Frames are
// data-only; a heartbeat event goes out on the heartbeat interval so clients
// and proxies see a live stream between notifications.
func NotificationStream(hub *notify.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := actor(c)

		sub := hub.Subscribe(claims.UserID.Hex(), claims.Role)
		defer hub.Unsubscribe(sub)

		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")
		c.Writer.Header().Set("X-Accel-Buffering", "no")
		c.Writer.Flush()

		heartbeat := time.NewTicker(hub.HeartbeatInterval())
		defer heartbeat.Stop()

		for {
			select {
			case <-c.Request.Context().Done():
				return
			case event, ok := <-sub.Events():
				if !ok {
					return
				}
				if err := sse.Encode(c.Writer, sse.Event{Data: event}); err != nil {
					return
				}
				c.Writer.Flush()
			case <-heartbeat.C:
				beat := gin.H{"type": "heartbeat", "ts": time.Now().UnixMilli()}
				if err := sse.Encode(c.Writer, sse.Event{Data: beat}); err != nil {
					return
				}
				c.Writer.Flush()
			}
		}
	}
}

// RecentNotifications returns the buffered history visible to the caller,
// newest first.
func RecentNotifications(hub *notify.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := actor(c)
		events := hub.RecentFor(claims.UserID.Hex(), claims.Role)
		c.JSON(http.StatusOK, gin.H{"notifications": events})
	}
}
