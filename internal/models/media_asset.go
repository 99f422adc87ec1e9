package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MediaAsset points at an already-uploaded file on the CDN; the upload
// pipeline itself lives outside this service.
type MediaAsset struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID       primitive.ObjectID  `bson:"userId" json:"userId"`
	CampaignID   *primitive.ObjectID `bson:"campaignId,omitempty" json:"campaignId,omitempty"`
	URL          string              `bson:"url" json:"url"`
	PublicID     string              `bson:"publicId" json:"publicId"`
	ResourceType string              `bson:"resourceType" json:"resourceType"`
	CreatedAt    time.Time           `bson:"createdAt" json:"createdAt"`
}
