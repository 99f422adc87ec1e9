package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	TransactionHeld     = "HELD"
	TransactionReleased = "RELEASED"
	TransactionRefunded = "REFUNDED"
)

// Transaction is an escrow payment record: created HELD, then released or refunded.
type Transaction struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	CampaignID   primitive.ObjectID  `bson:"campaignId" json:"campaignId"`
	InfluencerID primitive.ObjectID  `bson:"influencerId" json:"influencerId"`
	ProposalID   *primitive.ObjectID `bson:"proposalId,omitempty" json:"proposalId,omitempty"`
	Amount       int64               `bson:"amount" json:"amount"`
	Status       string              `bson:"status" json:"status"`
	CreatedAt    time.Time           `bson:"createdAt" json:"createdAt"`
	ReleasedAt   *time.Time          `bson:"releasedAt,omitempty" json:"releasedAt,omitempty"`
}
