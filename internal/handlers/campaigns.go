package handlers

import (
	"net/http"
	"strings"
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

type CreateCampaignRequest struct {
	Title       string `json:"title" binding:"required,min=3,max=120"`
	Budget      int64  `json:"budget" binding:"required,gt=0,max=100000000"`
	Description string `json:"description" binding:"max=5000"`
	TargetNiche string `json:"targetNiche" binding:"max=120"`
}

type campaignWithBrand struct {
	models.Campaign
	Brand *struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"brand,omitempty"`
}

// ListCampaigns is the public catalog: every campaign, newest first, with the
// posting brand attached.
func ListCampaigns(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := dbCtx()
		defer cancel()

		cursor, err := db.Collection("campaigns").Find(ctx, bson.M{},
			options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		var campaigns []models.Campaign
		if err := cursor.All(ctx, &campaigns); err != nil {
			httpx.Fail(c, err)
			return
		}

		brandIDs := make([]primitive.ObjectID, 0, len(campaigns))
		for _, campaign := range campaigns {
			brandIDs = append(brandIDs, campaign.BrandID)
		}
		brands, err := usersByID(ctx, db, brandIDs)
		if err != nil {
			httpx.Fail(c, err)
			return
		}

		result := make([]campaignWithBrand, 0, len(campaigns))
		for _, campaign := range campaigns {
			item := campaignWithBrand{Campaign: campaign}
			if brand, ok := brands[campaign.BrandID]; ok {
				item.Brand = &struct {
					ID   string `json:"id"`
					Name string `json:"name"`
				}{ID: brand.ID.Hex(), Name: brand.Name}
			}
			result = append(result, item)
		}
		c.JSON(http.StatusOK, result)
	}
}

// MyCampaigns returns the caller's campaigns; admins see everything.
func MyCampaigns(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := actor(c)

		filter := bson.M{"brandId": claims.UserID}
		if claims.Role == models.RoleAdmin {
			filter = bson.M{}
		}

		ctx, cancel := dbCtx()
		defer cancel()

		cursor, err := db.Collection("campaigns").Find(ctx, filter,
			options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		campaigns := []models.Campaign{}
		if err := cursor.All(ctx, &campaigns); err != nil {
			httpx.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, campaigns)
	}
}

func CreateCampaign(db *mongo.Database, auditor *audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateCampaignRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.FailValidation(c, err)
			return
		}

		claims := actor(c)
		campaign := models.Campaign{
			BrandID:     claims.UserID,
			Title:       strings.TrimSpace(req.Title),
			Budget:      req.Budget,
			Description: req.Description,
			TargetNiche: strings.TrimSpace(req.TargetNiche),
			Status:      models.CampaignOpen,
			CreatedAt:   time.Now(),
		}

		ctx, cancel := dbCtx()
		defer cancel()

		res, err := db.Collection("campaigns").InsertOne(ctx, campaign)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		campaign.ID = res.InsertedID.(primitive.ObjectID)

		auditor.Record(c, audit.Entry{
			Action:     "campaign.create",
			EntityType: "campaign",
			EntityID:   campaign.ID.Hex(),
			Metadata:   map[string]any{"title": campaign.Title},
		})

		c.JSON(http.StatusCreated, campaign)
	}
}

// CloseCampaign flips an owned campaign to CLOSED; closed campaigns accept no
// new matches or applications.
func CloseCampaign(db *mongo.Database, auditor *audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := objectIDParam(c, "id")
		if !ok {
			return
		}

		claims := actor(c)

		ctx, cancel := dbCtx()
		defer cancel()

		campaign, err := findCampaign(ctx, db, id)
		if err != nil {
			httpx.Fail(c, httpx.NotFound("campaign not found"))
			return
		}
		if claims.Role != models.RoleAdmin && campaign.BrandID != claims.UserID {
			httpx.Fail(c, httpx.Forbidden("forbidden"))
			return
		}

		campaign.Status = models.CampaignClosed
		if _, err := db.Collection("campaigns").UpdateByID(ctx, id,
			bson.M{"$set": bson.M{"status": models.CampaignClosed}}); err != nil {
			httpx.Fail(c, err)
			return
		}

		auditor.Record(c, audit.Entry{
			Action:     "campaign.close",
			EntityType: "campaign",
			EntityID:   campaign.ID.Hex(),
		})

		c.JSON(http.StatusOK, campaign)
	}
}
