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
)

type CreateMatchRequest struct {
	CampaignID   string `json:"campaignId" binding:"required"`
	InfluencerID string `json:"influencerId" binding:"required"`
}

type matchItem struct {
	models.Match
	Campaign   *campaignRef `json:"campaign,omitempty"`
	Influencer *userRef     `json:"influencer,omitempty"`
}

// ListMatches returns the caller's matches with campaign and influencer
// references joined in; admins see every match.
func ListMatches(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := actor(c)

		ctx, cancel := dbCtx()
		defer cancel()

		filter := bson.M{}
		switch claims.Role {
		case models.RoleBrand:
			campaignIDs, err := ownedCampaignIDs(ctx, db, claims.UserID)
			if err != nil {
				httpx.Fail(c, err)
				return
			}
			filter = bson.M{"campaignId": bson.M{"$in": campaignIDs}}
		case models.RoleInfluencer:
			filter = bson.M{"influencerId": claims.UserID}
		}

		matches, err := findMatches(ctx, db, filter)
		if err != nil {
			httpx.Fail(c, err)
			return
		}

		items, err := attachMatchRefs(ctx, db, matches)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"matches": items})
	}
}

// CreateMatch lets a brand invite an influencer to an open campaign it owns.
func CreateMatch(db *mongo.Database, auditor *audit.Recorder, hub *notify.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateMatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.FailValidation(c, err)
			return
		}

		campaignID, err := primitive.ObjectIDFromHex(req.CampaignID)
		if err != nil {
			httpx.Fail(c, httpx.BadRequest("invalid campaignId"))
			return
		}
		influencerID, err := primitive.ObjectIDFromHex(req.InfluencerID)
		if err != nil {
			httpx.Fail(c, httpx.BadRequest("invalid influencerId"))
			return
		}

		claims := actor(c)

		ctx, cancel := dbCtx()
		defer cancel()

		campaign, err := findCampaign(ctx, db, campaignID)
		if err != nil || campaign.BrandID != claims.UserID {
			httpx.Fail(c, httpx.Forbidden("cannot create matches for another brand campaign"))
			return
		}
		if campaign.Status != models.CampaignOpen {
			httpx.Fail(c, httpx.Conflict("campaign is not open for new matches"))
			return
		}

		influencer, err := findUser(ctx, db, influencerID)
		if err != nil || influencer.Role != models.RoleInfluencer {
			httpx.Fail(c, httpx.BadRequest("influencerId must point to an influencer account"))
			return
		}

		match := models.Match{
			CampaignID:   campaignID,
			InfluencerID: influencerID,
			CreatedAt:    time.Now(),
		}
		res, err := db.Collection("matches").InsertOne(ctx, match)
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				httpx.Fail(c, httpx.Conflict("match already exists for this campaign and influencer"))
				return
			}
			httpx.Fail(c, err)
			return
		}
		match.ID = res.InsertedID.(primitive.ObjectID)

		auditor.Record(c, audit.Entry{
			Action:     "match.create",
			EntityType: "match",
			EntityID:   match.ID.Hex(),
			Metadata:   map[string]any{"campaignId": req.CampaignID, "influencerId": req.InfluencerID},
		})
		hub.Publish(notify.Event{
			Type:    "match.created",
			Message: "You were invited to campaign " + campaign.Title,
			UserIDs: []string{influencerID.Hex()},
			Data: map[string]any{
				"matchId":      match.ID.Hex(),
				"campaignId":   campaignID.Hex(),
				"influencerId": influencerID.Hex(),
			},
		})

		c.JSON(http.StatusCreated, gin.H{"match": match})
	}
}

func ownedCampaignIDs(ctx context.Context, db *mongo.Database, brandID primitive.ObjectID) ([]primitive.ObjectID, error) {
	cursor, err := db.Collection("campaigns").Find(ctx, bson.M{"brandId": brandID},
		options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	var docs []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(docs))
	for _, doc := range docs {
		ids = append(ids, doc.ID)
	}
	return ids, nil
}

func findMatches(ctx context.Context, db *mongo.Database, filter bson.M) ([]models.Match, error) {
	cursor, err := db.Collection("matches").Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	matches := []models.Match{}
	if err := cursor.All(ctx, &matches); err != nil {
		return nil, err
	}
	return matches, nil
}

func attachMatchRefs(ctx context.Context, db *mongo.Database, matches []models.Match) ([]matchItem, error) {
	campaignIDs := make([]primitive.ObjectID, 0, len(matches))
	influencerIDs := make([]primitive.ObjectID, 0, len(matches))
	for _, match := range matches {
		campaignIDs = append(campaignIDs, match.CampaignID)
		influencerIDs = append(influencerIDs, match.InfluencerID)
	}

	campaigns, err := campaignsByID(ctx, db, campaignIDs)
	if err != nil {
		return nil, err
	}
	influencers, err := usersByID(ctx, db, influencerIDs)
	if err != nil {
		return nil, err
	}

	items := make([]matchItem, 0, len(matches))
	for _, match := range matches {
		item := matchItem{Match: match}
		if campaign, ok := campaigns[match.CampaignID]; ok {
			item.Campaign = &campaignRef{
				ID:      campaign.ID.Hex(),
				Title:   campaign.Title,
				BrandID: campaign.BrandID.Hex(),
				Budget:  campaign.Budget,
				Status:  campaign.Status,
			}
		}
		if influencer, ok := influencers[match.InfluencerID]; ok {
			ref := toUserRef(influencer)
			item.Influencer = &ref
		}
		items = append(items, item)
	}
	return items, nil
}

func campaignsByID(ctx context.Context, db *mongo.Database, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Campaign, error) {
	result := map[primitive.ObjectID]models.Campaign{}
	if len(ids) == 0 {
		return result, nil
	}
	cursor, err := db.Collection("campaigns").Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	var campaigns []models.Campaign
	if err := cursor.All(ctx, &campaigns); err != nil {
		return nil, err
	}
	for _, campaign := range campaigns {
		result[campaign.ID] = campaign
	}
	return result, nil
}
