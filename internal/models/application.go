package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ApplicationPending   = "PENDING"
	ApplicationApproved  = "APPROVED"
	ApplicationRejected  = "REJECTED"
	ApplicationWithdrawn = "WITHDRAWN"
)

type Application struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CampaignID      primitive.ObjectID `bson:"campaignId" json:"campaignId"`
	InfluencerID    primitive.ObjectID `bson:"influencerId" json:"influencerId"`
	ProposalMessage string             `bson:"proposalMessage" json:"proposalMessage"`
	Status          string             `bson:"status" json:"status"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
}
