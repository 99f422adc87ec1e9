package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AuditLog struct {
	ID         primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	ActorID    *primitive.ObjectID `bson:"actorId,omitempty" json:"actorId,omitempty"`
	Action     string              `bson:"action" json:"action"`
	EntityType string              `bson:"entityType" json:"entityType"`
	EntityID   string              `bson:"entityId,omitempty" json:"entityId,omitempty"`
	Metadata   map[string]any      `bson:"metadata,omitempty" json:"metadata,omitempty"`
	IPAddress  string              `bson:"ipAddress,omitempty" json:"ipAddress,omitempty"`
	UserAgent  string              `bson:"userAgent,omitempty" json:"userAgent,omitempty"`
	CreatedAt  time.Time           `bson:"createdAt" json:"createdAt"`
}
