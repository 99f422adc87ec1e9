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

type CreateApplicationRequest struct {
	CampaignID      string `json:"campaignId" binding:"required"`
	ProposalMessage string `json:"proposalMessage" binding:"omitempty,max=5000"`
}

type UpdateApplicationStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=PENDING APPROVED REJECTED WITHDRAWN"`
}

type applicationItem struct {
	models.Application
	Campaign   campaignRef   `json:"campaign"`
	Influencer influencerRef `json:"influencer"`
}

// ListApplications scopes results to the caller: influencers see their own,
// brands see applications to their campaigns, admins see everything.
func ListApplications(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := actor(c)

		ctx, cancel := dbCtx()
		defer cancel()

		var queried *primitive.ObjectID
		if raw := c.Query("campaignId"); raw != "" {
			id, err := primitive.ObjectIDFromHex(raw)
			if err != nil {
				httpx.Fail(c, httpx.BadRequest("invalid campaignId"))
				return
			}
			queried = &id
		}

		filter := bson.M{}
		switch claims.Role {
		case models.RoleInfluencer:
			filter["influencerId"] = claims.UserID
			if queried != nil {
				filter["campaignId"] = *queried
			}
		case models.RoleBrand:
			ids, err := ownedCampaignIDs(ctx, db, claims.UserID)
			if err != nil {
				httpx.Fail(c, err)
				return
			}
			// the query param narrows the owned set, never widens it
			if queried != nil {
				if !containsID(ids, *queried) {
					httpx.Fail(c, httpx.Forbidden("forbidden"))
					return
				}
				filter["campaignId"] = *queried
			} else {
				filter["campaignId"] = bson.M{"$in": ids}
			}
		default:
			if queried != nil {
				filter["campaignId"] = *queried
			}
		}

		cursor, err := db.Collection("applications").Find(ctx, filter,
			options.Find().SetSort(bson.M{"createdAt": -1}))
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		var applications []models.Application
		if err := cursor.All(ctx, &applications); err != nil {
			httpx.Fail(c, err)
			return
		}

		items, err := attachApplicationRefs(ctx, db, applications)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"applications": items})
	}
}

func CreateApplication(db *mongo.Database, auditor *audit.Recorder, hub *notify.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateApplicationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.FailValidation(c, err)
			return
		}
		campaignID, err := primitive.ObjectIDFromHex(req.CampaignID)
		if err != nil {
			httpx.Fail(c, httpx.BadRequest("invalid campaignId"))
			return
		}
		claims := actor(c)

		ctx, cancel := dbCtx()
		defer cancel()

		campaign, err := findCampaign(ctx, db, campaignID)
		if err != nil {
			httpx.Fail(c, httpx.NotFound("campaign not found"))
			return
		}
		if campaign.Status != models.CampaignOpen {
			httpx.Fail(c, httpx.Conflict("campaign is not open for applications"))
			return
		}

		application := models.Application{
			CampaignID:      campaignID,
			InfluencerID:    claims.UserID,
			ProposalMessage: req.ProposalMessage,
			Status:          models.ApplicationPending,
			CreatedAt:       time.Now(),
		}
		res, err := db.Collection("applications").InsertOne(ctx, application)
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				httpx.Fail(c, httpx.Conflict("you already applied to this campaign"))
				return
			}
			httpx.Fail(c, err)
			return
		}
		application.ID = res.InsertedID.(primitive.ObjectID)

		auditor.Record(c, audit.Entry{
			Action:     "application.create",
			EntityType: "application",
			EntityID:   application.ID.Hex(),
			Metadata:   map[string]any{"campaignId": campaignID.Hex()},
		})
		hub.Publish(notify.Event{
			Type:    "application.created",
			Message: "New application for campaign " + campaign.Title,
			Data:    map[string]any{"applicationId": application.ID.Hex(), "campaignId": campaignID.Hex()},
			UserIDs: []string{campaign.BrandID.Hex()},
		})

		c.JSON(http.StatusCreated, gin.H{"application": application})
	}
}

// UpdateApplicationStatus moves an application through its lifecycle. Who may
// set which status is delegated to the policy package; approval also upserts
// the campaign/influencer match so downstream proposals can reference it.
func UpdateApplicationStatus(db *mongo.Database, auditor *audit.Recorder, hub *notify.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := objectIDParam(c, "id")
		if !ok {
			return
		}
		var req UpdateApplicationStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.FailValidation(c, err)
			return
		}
		claims := actor(c)

		ctx, cancel := dbCtx()
		defer cancel()

		var application models.Application
		if err := db.Collection("applications").FindOne(ctx, bson.M{"_id": id}).Decode(&application); err != nil {
			httpx.Fail(c, httpx.NotFound("application not found"))
			return
		}
		campaign, err := findCampaign(ctx, db, application.CampaignID)
		if err != nil {
			httpx.Fail(c, httpx.NotFound("campaign not found"))
			return
		}

		decision := policy.ApplicationTransition(
			policy.Actor{ID: claims.UserID, Role: claims.Role},
			campaign.BrandID, application.InfluencerID, req.Status,
		)
		if !decision.Allowed {
			httpx.Fail(c, httpx.Forbidden(decision.Reason))
			return
		}

		if _, err := db.Collection("applications").UpdateOne(ctx,
			bson.M{"_id": id}, bson.M{"$set": bson.M{"status": req.Status}}); err != nil {
			httpx.Fail(c, err)
			return
		}
		application.Status = req.Status

		if req.Status == models.ApplicationApproved {
			if err := upsertMatch(ctx, db, application.CampaignID, application.InfluencerID); err != nil {
				httpx.Fail(c, err)
				return
			}
		}

		auditor.Record(c, audit.Entry{
			Action:     "application.status",
			EntityType: "application",
			EntityID:   application.ID.Hex(),
			Metadata:   map[string]any{"status": req.Status},
		})
		hub.Publish(notify.Event{
			Type:    "application.status.updated",
			Message: "Your application is now " + req.Status,
			Data:    map[string]any{"applicationId": application.ID.Hex(), "status": req.Status},
			UserIDs: []string{application.InfluencerID.Hex()},
		})

		c.JSON(http.StatusOK, gin.H{"application": application})
	}
}

// upsertMatch is idempotent: re-approving never duplicates the pair thanks to
// the unique (campaignId, influencerId) index.
func upsertMatch(ctx context.Context, db *mongo.Database, campaignID, influencerID primitive.ObjectID) error {
	_, err := db.Collection("matches").UpdateOne(ctx,
		bson.M{"campaignId": campaignID, "influencerId": influencerID},
		bson.M{"$setOnInsert": bson.M{
			"campaignId":   campaignID,
			"influencerId": influencerID,
			"createdAt":    time.Now(),
		}},
		options.Update().SetUpsert(true),
	)
	return err
}

func attachApplicationRefs(ctx context.Context, db *mongo.Database, applications []models.Application) ([]applicationItem, error) {
	campaignIDs := make([]primitive.ObjectID, 0, len(applications))
	userIDs := make([]primitive.ObjectID, 0, len(applications))
	for _, application := range applications {
		campaignIDs = append(campaignIDs, application.CampaignID)
		userIDs = append(userIDs, application.InfluencerID)
	}
	campaigns, err := campaignsByID(ctx, db, campaignIDs)
	if err != nil {
		return nil, err
	}
	users, err := usersByID(ctx, db, userIDs)
	if err != nil {
		return nil, err
	}

	items := make([]applicationItem, 0, len(applications))
	for _, application := range applications {
		campaign := campaigns[application.CampaignID]
		items = append(items, applicationItem{
			Application: application,
			Campaign: campaignRef{
				ID:      campaign.ID.Hex(),
				Title:   campaign.Title,
				BrandID: campaign.BrandID.Hex(),
				Status:  campaign.Status,
			},
			Influencer: toInfluencerRef(users[application.InfluencerID]),
		})
	}
	return items, nil
}
