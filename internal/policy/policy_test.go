package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"collabapi/internal/models"
)

var (
	brandID      = primitive.NewObjectID()
	influencerID = primitive.NewObjectID()
	strangerID   = primitive.NewObjectID()
)

func TestApplicationTransition(t *testing.T) {
	tests := []struct {
		name    string
		actor   Actor
		next    string
		allowed bool
	}{
		{"brand owner approves", Actor{brandID, models.RoleBrand}, models.ApplicationApproved, true},
		{"brand owner rejects", Actor{brandID, models.RoleBrand}, models.ApplicationRejected, true},
		{"brand owner cannot withdraw", Actor{brandID, models.RoleBrand}, models.ApplicationWithdrawn, false},
		{"influencer owner withdraws", Actor{influencerID, models.RoleInfluencer}, models.ApplicationWithdrawn, true},
		{"influencer owner cannot approve", Actor{influencerID, models.RoleInfluencer}, models.ApplicationApproved, false},
		{"other brand denied", Actor{strangerID, models.RoleBrand}, models.ApplicationApproved, false},
		{"other influencer denied", Actor{strangerID, models.RoleInfluencer}, models.ApplicationWithdrawn, false},
		{"admin does anything", Actor{strangerID, models.RoleAdmin}, models.ApplicationRejected, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			decision := ApplicationTransition(tc.actor, brandID, influencerID, tc.next)
			assert.Equal(t, tc.allowed, decision.Allowed)
			if !tc.allowed {
				assert.NotEmpty(t, decision.Reason)
			}
		})
	}
}

func TestProposalCreation(t *testing.T) {
	tests := []struct {
		name    string
		actor   Actor
		allowed bool
	}{
		{"matched influencer creates", Actor{influencerID, models.RoleInfluencer}, true},
		{"owning brand creates", Actor{brandID, models.RoleBrand}, true},
		{"other influencer denied", Actor{strangerID, models.RoleInfluencer}, false},
		{"other brand denied", Actor{strangerID, models.RoleBrand}, false},
		{"admin creates", Actor{strangerID, models.RoleAdmin}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			decision := ProposalCreation(tc.actor, brandID, influencerID)
			assert.Equal(t, tc.allowed, decision.Allowed)
			if !tc.allowed {
				assert.NotEmpty(t, decision.Reason)
			}
		})
	}
}

func TestProposalTransition(t *testing.T) {
	tests := []struct {
		name    string
		actor   Actor
		next    string
		allowed bool
	}{
		{"influencer sends", Actor{influencerID, models.RoleInfluencer}, models.ProposalSent, true},
		{"influencer drafts", Actor{influencerID, models.RoleInfluencer}, models.ProposalDraft, true},
		{"influencer cannot accept", Actor{influencerID, models.RoleInfluencer}, models.ProposalAccepted, false},
		{"brand accepts", Actor{brandID, models.RoleBrand}, models.ProposalAccepted, true},
		{"brand rejects", Actor{brandID, models.RoleBrand}, models.ProposalRejected, true},
		{"brand cannot send", Actor{brandID, models.RoleBrand}, models.ProposalSent, false},
		{"stranger denied", Actor{strangerID, models.RoleBrand}, models.ProposalAccepted, false},
		{"admin does anything", Actor{strangerID, models.RoleAdmin}, models.ProposalSent, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			decision := ProposalTransition(tc.actor, brandID, influencerID, tc.next)
			assert.Equal(t, tc.allowed, decision.Allowed)
		})
	}
}

func TestTransactionTransition(t *testing.T) {
	tests := []struct {
		name    string
		actor   Actor
		current string
		allowed bool
	}{
		{"brand owner releases held", Actor{brandID, models.RoleBrand}, models.TransactionHeld, true},
		{"admin releases held", Actor{strangerID, models.RoleAdmin}, models.TransactionHeld, true},
		{"other brand denied", Actor{strangerID, models.RoleBrand}, models.TransactionHeld, false},
		{"influencer denied", Actor{influencerID, models.RoleInfluencer}, models.TransactionHeld, false},
		{"released cannot move again", Actor{brandID, models.RoleBrand}, models.TransactionReleased, false},
		{"refunded cannot move again", Actor{brandID, models.RoleBrand}, models.TransactionRefunded, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			decision := TransactionTransition(tc.actor, brandID, tc.current, models.TransactionReleased)
			assert.Equal(t, tc.allowed, decision.Allowed)
		})
	}
}
