package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	CampaignOpen   = "OPEN"
	CampaignClosed = "CLOSED"
)

type Campaign struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	BrandID     primitive.ObjectID `bson:"brandId" json:"brandId"`
	Title       string             `bson:"title" json:"title"`
	Budget      int64              `bson:"budget" json:"budget"`
	Description string             `bson:"description" json:"description"`
	TargetNiche string             `bson:"targetNiche,omitempty" json:"targetNiche,omitempty"`
	Status      string             `bson:"status" json:"status"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
}
