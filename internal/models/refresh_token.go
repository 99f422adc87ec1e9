package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RefreshToken stores only the sha256 hash of the raw secret. Rotation links
// the superseded record to its replacement, forming a revocation chain.
type RefreshToken struct {
	ID         primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID     primitive.ObjectID  `bson:"userId" json:"userId"`
	TokenHash  string              `bson:"tokenHash" json:"-"`
	ExpiresAt  time.Time           `bson:"expiresAt" json:"expiresAt"`
	RevokedAt  *time.Time          `bson:"revokedAt,omitempty" json:"revokedAt,omitempty"`
	ReplacedBy *primitive.ObjectID `bson:"replacedBy,omitempty" json:"replacedBy,omitempty"`
	CreatedAt  time.Time           `bson:"createdAt" json:"createdAt"`
}

func (t RefreshToken) Revoked() bool {
	return t.RevokedAt != nil
}

func (t RefreshToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
