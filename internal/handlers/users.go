package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"collabapi/internal/httpx"
	"collabapi/internal/models"
)

type influencerListItem struct {
	influencerRef
	IsFraudFlagged bool  `json:"isFraudFlagged"`
	ProfileViews   int64 `json:"profileViews"`
}

// ListInfluencers is the public directory, optionally filtered by niche.
func ListInfluencers(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := dbCtx()
		defer cancel()

		filter := bson.M{"role": models.RoleInfluencer}
		if niche := c.Query("niche"); niche != "" {
			filter["niche"] = bson.M{"$regex": niche, "$options": "i"}
		}

		cursor, err := db.Collection("users").Find(ctx, filter,
			options.Find().SetSort(bson.M{"followers": -1}))
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		var users []models.User
		if err := cursor.All(ctx, &users); err != nil {
			httpx.Fail(c, err)
			return
		}

		items := make([]influencerListItem, 0, len(users))
		for _, user := range users {
			items = append(items, influencerListItem{
				influencerRef:  toInfluencerRef(user),
				IsFraudFlagged: user.IsFraudFlagged,
				ProfileViews:   user.ProfileViews,
			})
		}
		c.JSON(http.StatusOK, gin.H{"influencers": items})
	}
}

// GetInfluencer returns one profile and bumps its view counter.
func GetInfluencer(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := objectIDParam(c, "id")
		if !ok {
			return
		}

		ctx, cancel := dbCtx()
		defer cancel()

		var user models.User
		err := db.Collection("users").FindOneAndUpdate(ctx,
			bson.M{"_id": id, "role": models.RoleInfluencer},
			bson.M{"$inc": bson.M{"profileViews": 1}},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&user)
		if err != nil {
			httpx.Fail(c, httpx.NotFound("influencer not found"))
			return
		}

		c.JSON(http.StatusOK, gin.H{"influencer": influencerListItem{
			influencerRef:  toInfluencerRef(user),
			IsFraudFlagged: user.IsFraudFlagged,
			ProfileViews:   user.ProfileViews,
		}})
	}
}
