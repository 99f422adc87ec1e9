// Package audit writes best-effort audit trail entries. A failed write is
// logged and swallowed; it must never break the primary request.
package audit

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"collabapi/internal/middleware"
	"collabapi/internal/models"
)

type Entry struct {
	Action     string
	EntityType string
	EntityID   string
	Metadata   map[string]any
}

type Recorder struct {
	db     *mongo.Database
	logger zerolog.Logger
}

func NewRecorder(db *mongo.Database, logger zerolog.Logger) *Recorder {
	return &Recorder{db: db, logger: logger}
}

// Record captures the acting user (when authenticated) and request metadata
// alongside the entry.
func (r *Recorder) Record(c *gin.Context, entry Entry) {
	doc := models.AuditLog{
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Metadata:   entry.Metadata,
		IPAddress:  c.ClientIP(),
		UserAgent:  c.GetHeader("User-Agent"),
		CreatedAt:  time.Now(),
	}
	if claims, ok := middleware.CurrentClaims(c); ok {
		actorID := claims.UserID
		doc.ActorID = &actorID
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := r.db.Collection("audit_logs").InsertOne(ctx, doc); err != nil {
		r.logger.Warn().Err(err).Str("action", entry.Action).Msg("audit write failed")
	}
}
