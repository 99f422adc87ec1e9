package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Match pairs a campaign with an influencer; unique per pair.
type Match struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CampaignID   primitive.ObjectID `bson:"campaignId" json:"campaignId"`
	InfluencerID primitive.ObjectID `bson:"influencerId" json:"influencerId"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
}
