package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"collabapi/internal/httpx"
	"collabapi/internal/middleware"
	"collabapi/internal/models"
	"collabapi/internal/token"
)

const dbTimeout = 5 * time.Second

func dbCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), dbTimeout)
}

// actor returns the verified claims; routes behind RequireAuth always have them.
func actor(c *gin.Context) token.Claims {
	claims, _ := middleware.CurrentClaims(c)
	return claims
}

func objectIDParam(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		httpx.Fail(c, httpx.BadRequest("invalid "+name))
		return primitive.NilObjectID, false
	}
	return id, true
}

func findCampaign(ctx context.Context, db *mongo.Database, id primitive.ObjectID) (models.Campaign, error) {
	var campaign models.Campaign
	err := db.Collection("campaigns").FindOne(ctx, bson.M{"_id": id}).Decode(&campaign)
	return campaign, err
}

func findUser(ctx context.Context, db *mongo.Database, id primitive.ObjectID) (models.User, error) {
	var user models.User
	err := db.Collection("users").FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	return user, err
}

// Shared response projections. The API never leaks full user documents; list
// endpoints embed these slimmed references instead.

type userRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func toUserRef(user models.User) userRef {
	return userRef{ID: user.ID.Hex(), Name: user.Name, Email: user.Email}
}

type influencerRef struct {
	userRef
	Niche                string  `json:"niche,omitempty"`
	Followers            int64   `json:"followers"`
	EngagementRate       float64 `json:"engagementRate"`
	FollowerQualityScore float64 `json:"followerQualityScore"`
}

func toInfluencerRef(user models.User) influencerRef {
	return influencerRef{
		userRef:              toUserRef(user),
		Niche:                user.Niche,
		Followers:            user.Followers,
		EngagementRate:       user.EngagementRate,
		FollowerQualityScore: user.FollowerQualityScore,
	}
}

type campaignRef struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	BrandID string `json:"brandId,omitempty"`
	Budget  int64  `json:"budget,omitempty"`
	Status  string `json:"status,omitempty"`
}

func containsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

// usersByID loads the referenced users in one query for in-memory joins.
func usersByID(ctx context.Context, db *mongo.Database, ids []primitive.ObjectID) (map[primitive.ObjectID]models.User, error) {
	result := map[primitive.ObjectID]models.User{}
	if len(ids) == 0 {
		return result, nil
	}
	cursor, err := db.Collection("users").Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	for _, user := range users {
		result[user.ID] = user
	}
	return result, nil
}
