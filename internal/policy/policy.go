// Package policy centralizes the role/ownership rules for status transitions,
// replacing the inline role branching the routers would otherwise repeat.
package policy

import (
	"go.mongodb.org/mongo-driver/bson/primitive"

	"collabapi/internal/models"
)

type Actor struct {
	ID   primitive.ObjectID
	Role string
}

func (a Actor) isAdmin() bool {
	return a.Role == models.RoleAdmin
}

type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason string) Decision {
	return Decision{Reason: reason}
}

// ApplicationTransition: the campaign's brand can approve or reject, the
// applying influencer can withdraw, admins can do anything.
func ApplicationTransition(actor Actor, campaignBrandID, influencerID primitive.ObjectID, next string) Decision {
	if actor.isAdmin() {
		return allow()
	}

	brandOwner := actor.Role == models.RoleBrand && actor.ID == campaignBrandID
	influencerOwner := actor.Role == models.RoleInfluencer && actor.ID == influencerID

	switch {
	case brandOwner:
		if next != models.ApplicationApproved && next != models.ApplicationRejected {
			return deny("brand can only APPROVE or REJECT")
		}
		return allow()
	case influencerOwner:
		if next != models.ApplicationWithdrawn {
			return deny("influencer can only WITHDRAW an application")
		}
		return allow()
	default:
		return deny("forbidden")
	}
}

// ProposalCreation: either side of the match can open a proposal on it, so
// can admins. Outsiders cannot.
func ProposalCreation(actor Actor, campaignBrandID, influencerID primitive.ObjectID) Decision {
	if actor.isAdmin() {
		return allow()
	}
	switch actor.Role {
	case models.RoleInfluencer:
		if actor.ID == influencerID {
			return allow()
		}
		return deny("cannot create proposals for another influencer's match")
	case models.RoleBrand:
		if actor.ID == campaignBrandID {
			return allow()
		}
		return deny("cannot create proposals for another brand campaign")
	}
	return deny("forbidden")
}

// ProposalTransition: the influencer side moves drafts forward, the brand side
// accepts or rejects, admins can do anything.
func ProposalTransition(actor Actor, campaignBrandID, influencerID primitive.ObjectID, next string) Decision {
	if actor.isAdmin() {
		return allow()
	}

	brandOwner := actor.Role == models.RoleBrand && actor.ID == campaignBrandID
	influencerOwner := actor.Role == models.RoleInfluencer && actor.ID == influencerID

	switch {
	case influencerOwner:
		if next != models.ProposalDraft && next != models.ProposalSent {
			return deny("influencer can only move to DRAFT or SENT")
		}
		return allow()
	case brandOwner:
		if next != models.ProposalAccepted && next != models.ProposalRejected {
			return deny("brand can only ACCEPT or REJECT")
		}
		return allow()
	default:
		return deny("status transition not allowed for this user")
	}
}

// TransactionTransition guards escrow settlement: only the owning brand or an
// admin may settle, and only a HELD transaction can move.
func TransactionTransition(actor Actor, campaignBrandID primitive.ObjectID, current, next string) Decision {
	if !actor.isAdmin() {
		if actor.Role != models.RoleBrand || actor.ID != campaignBrandID {
			return deny("forbidden")
		}
	}
	if current != models.TransactionHeld {
		if next == models.TransactionReleased {
			return deny("only HELD transactions can be released")
		}
		return deny("only HELD transactions can be refunded")
	}
	return allow()
}
