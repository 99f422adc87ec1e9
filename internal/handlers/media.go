package handlers

import (
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
)

type CreateMediaAssetRequest struct {
	CampaignID   string `json:"campaignId" binding:"omitempty"`
	URL          string `json:"url" binding:"required,url"`
	PublicID     string `json:"publicId" binding:"required,max=255"`
	ResourceType string `json:"resourceType" binding:"required,oneof=image video raw"`
}

// ListMediaAssets returns the caller's assets; admins see everything.
func ListMediaAssets(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := actor(c)

		ctx, cancel := dbCtx()
		defer cancel()

		filter := bson.M{"userId": claims.UserID}
		if claims.Role == models.RoleAdmin {
			filter = bson.M{}
		}
		if campaignID := c.Query("campaignId"); campaignID != "" {
			id, err := primitive.ObjectIDFromHex(campaignID)
			if err != nil {
				httpx.Fail(c, httpx.BadRequest("invalid campaignId"))
				return
			}
			filter["campaignId"] = id
		}

		cursor, err := db.Collection("media_assets").Find(ctx, filter,
			options.Find().SetSort(bson.M{"createdAt": -1}))
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		var assets []models.MediaAsset
		if err := cursor.All(ctx, &assets); err != nil {
			httpx.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"mediaAssets": assets})
	}
}

// CreateMediaAsset registers an already-uploaded file. Assets attached to a
// campaign require a relationship to it: brands must own the campaign,
// influencers must be matched to it.
func CreateMediaAsset(db *mongo.Database, auditor *audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateMediaAssetRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.FailValidation(c, err)
			return
		}
		claims := actor(c)

		ctx, cancel := dbCtx()
		defer cancel()

		asset := models.MediaAsset{
			UserID:       claims.UserID,
			URL:          req.URL,
			PublicID:     req.PublicID,
			ResourceType: req.ResourceType,
			CreatedAt:    time.Now(),
		}

		if req.CampaignID != "" {
			campaignID, err := primitive.ObjectIDFromHex(req.CampaignID)
			if err != nil {
				httpx.Fail(c, httpx.BadRequest("invalid campaignId"))
				return
			}
			campaign, err := findCampaign(ctx, db, campaignID)
			if err != nil {
				httpx.Fail(c, httpx.NotFound("campaign not found"))
				return
			}
			switch claims.Role {
			case models.RoleBrand:
				if campaign.BrandID != claims.UserID {
					httpx.Fail(c, httpx.Forbidden("cannot attach media to another brand campaign"))
					return
				}
			case models.RoleInfluencer:
				count, err := db.Collection("matches").CountDocuments(ctx, bson.M{
					"campaignId":   campaignID,
					"influencerId": claims.UserID,
				})
				if err != nil {
					httpx.Fail(c, err)
					return
				}
				if count == 0 {
					httpx.Fail(c, httpx.Forbidden("influencers can only attach media to campaigns they are matched with"))
					return
				}
			}
			asset.CampaignID = &campaignID
		}

		res, err := db.Collection("media_assets").InsertOne(ctx, asset)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		asset.ID = res.InsertedID.(primitive.ObjectID)

		auditor.Record(c, audit.Entry{
			Action:     "media.create",
			EntityType: "media_asset",
			EntityID:   asset.ID.Hex(),
			Metadata:   map[string]any{"resourceType": req.ResourceType},
		})

		c.JSON(http.StatusCreated, gin.H{"mediaAsset": asset})
	}
}
