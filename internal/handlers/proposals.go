package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"collabapi/internal/audit"
	"collabapi/internal/httpx"
	"collabapi/internal/models"
	"collabapi/internal/notify"
	"collabapi/internal/policy"
)

type CreateProposalRequest struct {
	MatchID      string `json:"matchId" binding:"required"`
	Deliverables string `json:"deliverables" binding:"required,max=5000"`
	Amount       int64  `json:"amount" binding:"required,gt=0,max=100000000"`
}

type UpdateProposalStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=DRAFT SENT ACCEPTED REJECTED"`
}

type proposalItem struct {
	models.Proposal
	Campaign   campaignRef `json:"campaign"`
	Influencer userRef     `json:"influencer"`
}

// ListProposals resolves visibility through the match join: influencers see
// proposals on their matches, brands see proposals against their campaigns.
func ListProposals(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := actor(c)

		ctx, cancel := dbCtx()
		defer cancel()

		matchFilter := bson.M{}
		switch claims.Role {
		case models.RoleInfluencer:
			matchFilter["influencerId"] = claims.UserID
		case models.RoleBrand:
			ids, err := ownedCampaignIDs(ctx, db, claims.UserID)
			if err != nil {
				httpx.Fail(c, err)
				return
			}
			matchFilter["campaignId"] = bson.M{"$in": ids}
		}

		matches, err := findMatches(ctx, db, matchFilter)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		matchesByID := make(map[primitive.ObjectID]models.Match, len(matches))
		matchIDs := make([]primitive.ObjectID, 0, len(matches))
		for _, match := range matches {
			matchesByID[match.ID] = match
			matchIDs = append(matchIDs, match.ID)
		}

		filter := bson.M{"matchId": bson.M{"$in": matchIDs}}
		if claims.Role == models.RoleAdmin {
			filter = bson.M{}
		}
		cursor, err := db.Collection("proposals").Find(ctx, filter,
			options.Find().SetSort(bson.M{"createdAt": -1}))
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		var proposals []models.Proposal
		if err := cursor.All(ctx, &proposals); err != nil {
			httpx.Fail(c, err)
			return
		}

		// Admin listing may reference matches outside the pre-loaded scope.
		if claims.Role == models.RoleAdmin {
			missing := make([]primitive.ObjectID, 0)
			for _, proposal := range proposals {
				if _, ok := matchesByID[proposal.MatchID]; !ok {
					missing = append(missing, proposal.MatchID)
				}
			}
			if len(missing) > 0 {
				extra, err := findMatches(ctx, db, bson.M{"_id": bson.M{"$in": missing}})
				if err != nil {
					httpx.Fail(c, err)
					return
				}
				for _, match := range extra {
					matchesByID[match.ID] = match
				}
			}
		}

		items, err := attachProposalRefs(ctx, db, proposals, matchesByID)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"proposals": items})
	}
}

// CreateProposal starts a DRAFT proposal on a match. Either side of the match
// may open one: the matched influencer, the brand owning the campaign, or an
// admin.
func CreateProposal(db *mongo.Database, auditor *audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateProposalRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.FailValidation(c, err)
			return
		}
		matchID, err := primitive.ObjectIDFromHex(req.MatchID)
		if err != nil {
			httpx.Fail(c, httpx.BadRequest("invalid matchId"))
			return
		}
		claims := actor(c)

		ctx, cancel := dbCtx()
		defer cancel()

		var match models.Match
		if err := db.Collection("matches").FindOne(ctx, bson.M{"_id": matchID}).Decode(&match); err != nil {
			httpx.Fail(c, httpx.NotFound("match not found"))
			return
		}
		campaign, err := findCampaign(ctx, db, match.CampaignID)
		if err != nil {
			httpx.Fail(c, httpx.NotFound("campaign not found"))
			return
		}

		decision := policy.ProposalCreation(
			policy.Actor{ID: claims.UserID, Role: claims.Role},
			campaign.BrandID, match.InfluencerID,
		)
		if !decision.Allowed {
			httpx.Fail(c, httpx.Forbidden(decision.Reason))
			return
		}

		proposal := models.Proposal{
			MatchID:      matchID,
			Deliverables: req.Deliverables,
			Amount:       req.Amount,
			Status:       models.ProposalDraft,
			CreatedAt:    time.Now(),
		}
		res, err := db.Collection("proposals").InsertOne(ctx, proposal)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		proposal.ID = res.InsertedID.(primitive.ObjectID)

		auditor.Record(c, audit.Entry{
			Action:     "proposal.create",
			EntityType: "proposal",
			EntityID:   proposal.ID.Hex(),
			Metadata:   map[string]any{"matchId": matchID.Hex(), "amount": req.Amount},
		})

		c.JSON(http.StatusCreated, gin.H{"proposal": proposal})
	}
}

// UpdateProposalStatus transitions a proposal: influencers move DRAFT/SENT,
// brands decide ACCEPTED/REJECTED, admins may force anything.
func UpdateProposalStatus(db *mongo.Database, auditor *audit.Recorder, hub *notify.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := objectIDParam(c, "id")
		if !ok {
			return
		}
		var req UpdateProposalStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.FailValidation(c, err)
			return
		}
		claims := actor(c)

		ctx, cancel := dbCtx()
		defer cancel()

		var proposal models.Proposal
		if err := db.Collection("proposals").FindOne(ctx, bson.M{"_id": id}).Decode(&proposal); err != nil {
			httpx.Fail(c, httpx.NotFound("proposal not found"))
			return
		}
		var match models.Match
		if err := db.Collection("matches").FindOne(ctx, bson.M{"_id": proposal.MatchID}).Decode(&match); err != nil {
			httpx.Fail(c, httpx.NotFound("match not found"))
			return
		}
		campaign, err := findCampaign(ctx, db, match.CampaignID)
		if err != nil {
			httpx.Fail(c, httpx.NotFound("campaign not found"))
			return
		}

		decision := policy.ProposalTransition(
			policy.Actor{ID: claims.UserID, Role: claims.Role},
			campaign.BrandID, match.InfluencerID, req.Status,
		)
		if !decision.Allowed {
			httpx.Fail(c, httpx.Forbidden(decision.Reason))
			return
		}

		if _, err := db.Collection("proposals").UpdateOne(ctx,
			bson.M{"_id": id}, bson.M{"$set": bson.M{"status": req.Status}}); err != nil {
			httpx.Fail(c, err)
			return
		}
		proposal.Status = req.Status

		auditor.Record(c, audit.Entry{
			Action:     "proposal.status",
			EntityType: "proposal",
			EntityID:   proposal.ID.Hex(),
			Metadata:   map[string]any{"status": req.Status},
		})

		// Sent drafts notify the brand; decisions notify the influencer.
		switch req.Status {
		case models.ProposalSent:
			hub.Publish(notify.Event{
				Type:    "proposal.sent",
				Message: "New proposal for campaign " + campaign.Title,
				Data:    map[string]any{"proposalId": proposal.ID.Hex(), "campaignId": campaign.ID.Hex()},
				UserIDs: []string{campaign.BrandID.Hex()},
			})
		case models.ProposalAccepted, models.ProposalRejected:
			hub.Publish(notify.Event{
				Type:    "proposal.status.updated",
				Message: "Your proposal is now " + req.Status,
				Data:    map[string]any{"proposalId": proposal.ID.Hex(), "status": req.Status},
				UserIDs: []string{match.InfluencerID.Hex()},
			})
		}

		c.JSON(http.StatusOK, gin.H{"proposal": proposal})
	}
}

func attachProposalRefs(ctx context.Context, db *mongo.Database, proposals []models.Proposal, matches map[primitive.ObjectID]models.Match) ([]proposalItem, error) {
	campaignIDs := make([]primitive.ObjectID, 0, len(proposals))
	userIDs := make([]primitive.ObjectID, 0, len(proposals))
	for _, proposal := range proposals {
		if match, ok := matches[proposal.MatchID]; ok {
			campaignIDs = append(campaignIDs, match.CampaignID)
			userIDs = append(userIDs, match.InfluencerID)
		}
	}
	campaigns, err := campaignsByID(ctx, db, campaignIDs)
	if err != nil {
		return nil, err
	}
	users, err := usersByID(ctx, db, userIDs)
	if err != nil {
		return nil, err
	}

	items := make([]proposalItem, 0, len(proposals))
	for _, proposal := range proposals {
		match := matches[proposal.MatchID]
		campaign := campaigns[match.CampaignID]
		items = append(items, proposalItem{
			Proposal: proposal,
			Campaign: campaignRef{
				ID:      campaign.ID.Hex(),
				Title:   campaign.Title,
				BrandID: campaign.BrandID.Hex(),
				Status:  campaign.Status,
			},
			Influencer: toUserRef(users[match.InfluencerID]),
		})
	}
	return items, nil
}
