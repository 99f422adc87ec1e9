package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ProposalDraft    = "DRAFT"
	ProposalSent     = "SENT"
	ProposalAccepted = "ACCEPTED"
	ProposalRejected = "REJECTED"
)

type Proposal struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	MatchID      primitive.ObjectID `bson:"matchId" json:"matchId"`
	Deliverables string             `bson:"deliverables" json:"deliverables"`
	Amount       int64              `bson:"amount" json:"amount"`
	Status       string             `bson:"status" json:"status"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
}
