package handlers

import (
	"context"
	"math"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"collabapi/internal/httpx"
	"collabapi/internal/models"
)

const scoreFormula = "matchScore = engagement*0.5 + relevance*0.3 + followerQuality*0.2 - fraudPenalty"

const fraudPenalty = 25

type recommendationItem struct {
	Influencer        recommendationProfile `json:"influencer"`
	Engagement        float64               `json:"engagement"`
	Relevance         float64               `json:"relevance"`
	FollowerQuality   float64               `json:"followerQuality"`
	MatchScore        float64               `json:"matchScore"`
	AlreadyMatched    bool                  `json:"alreadyMatched"`
	ApplicationStatus *string               `json:"applicationStatus"`
}

type recommendationProfile struct {
	influencerRef
	IsFraudFlagged bool `json:"isFraudFlagged"`
}

// MatchRecommendations ranks every influencer against a campaign: engagement
// and audience quality weighted with niche relevance, minus a flat penalty for
// fraud-flagged accounts.
func MatchRecommendations(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		campaignID, err := primitive.ObjectIDFromHex(c.Query("campaignId"))
		if err != nil {
			httpx.Fail(c, httpx.BadRequest("campaignId query parameter is required"))
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
		if claims.Role == models.RoleBrand && campaign.BrandID != claims.UserID {
			httpx.Fail(c, httpx.Forbidden("forbidden"))
			return
		}

		cursor, err := db.Collection("users").Find(ctx, bson.M{"role": models.RoleInfluencer})
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		var influencers []models.User
		if err := cursor.All(ctx, &influencers); err != nil {
			httpx.Fail(c, err)
			return
		}

		applicationStatus, err := applicationStatusByInfluencer(ctx, db, campaignID)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		matched, err := matchedInfluencerSet(ctx, db, campaignID)
		if err != nil {
			httpx.Fail(c, err)
			return
		}

		items := make([]recommendationItem, 0, len(influencers))
		for _, influencer := range influencers {
			engagement := clampScore(influencer.EngagementRate)
			relevance := relevanceScore(campaign.TargetNiche, influencer.Niche)
			quality := clampScore(defaultQuality(influencer.FollowerQualityScore))

			item := recommendationItem{
				Influencer: recommendationProfile{
					influencerRef:  toInfluencerRef(influencer),
					IsFraudFlagged: influencer.IsFraudFlagged,
				},
				Engagement:      engagement,
				Relevance:       relevance,
				FollowerQuality: quality,
				MatchScore:      matchScore(engagement, relevance, quality, influencer.IsFraudFlagged),
				AlreadyMatched:  matched[influencer.ID],
			}
			if status, ok := applicationStatus[influencer.ID]; ok {
				item.ApplicationStatus = &status
			}
			items = append(items, item)
		}

		sort.SliceStable(items, func(i, j int) bool {
			if items[i].MatchScore != items[j].MatchScore {
				return items[i].MatchScore > items[j].MatchScore
			}
			return items[i].Influencer.Followers > items[j].Influencer.Followers
		})

		c.JSON(http.StatusOK, gin.H{
			"campaign": gin.H{
				"id":          campaign.ID.Hex(),
				"title":       campaign.Title,
				"targetNiche": campaign.TargetNiche,
			},
			"formula": scoreFormula,
			"items":   items,
		})
	}
}

func clampScore(value float64) float64 {
	return math.Max(0, math.Min(100, value))
}

// defaultQuality: accounts that never got a quality score rank mid-low rather
// than at zero.
func defaultQuality(score float64) float64 {
	if score == 0 {
		return 40
	}
	return score
}

func relevanceScore(targetNiche, niche string) float64 {
	target := strings.ToLower(strings.TrimSpace(targetNiche))
	if target == "" {
		return 50
	}
	candidate := strings.ToLower(strings.TrimSpace(niche))
	if candidate == "" {
		return 20
	}
	if candidate == target {
		return 100
	}
	if strings.Contains(candidate, target) || strings.Contains(target, candidate) {
		return 75
	}
	return 30
}

func matchScore(engagement, relevance, quality float64, fraudFlagged bool) float64 {
	base := engagement*0.5 + relevance*0.3 + quality*0.2
	if fraudFlagged {
		base -= fraudPenalty
	}
	return math.Max(0, math.Round(base*100)/100)
}

func applicationStatusByInfluencer(ctx context.Context, db *mongo.Database, campaignID primitive.ObjectID) (map[primitive.ObjectID]string, error) {
	cursor, err := db.Collection("applications").Find(ctx, bson.M{"campaignId": campaignID},
		options.Find().SetProjection(bson.M{"influencerId": 1, "status": 1}))
	if err != nil {
		return nil, err
	}
	var docs []struct {
		InfluencerID primitive.ObjectID `bson:"influencerId"`
		Status       string             `bson:"status"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	result := map[primitive.ObjectID]string{}
	for _, doc := range docs {
		result[doc.InfluencerID] = doc.Status
	}
	return result, nil
}

func matchedInfluencerSet(ctx context.Context, db *mongo.Database, campaignID primitive.ObjectID) (map[primitive.ObjectID]bool, error) {
	cursor, err := db.Collection("matches").Find(ctx, bson.M{"campaignId": campaignID},
		options.Find().SetProjection(bson.M{"influencerId": 1}))
	if err != nil {
		return nil, err
	}
	var docs []struct {
		InfluencerID primitive.ObjectID `bson:"influencerId"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	result := map[primitive.ObjectID]bool{}
	for _, doc := range docs {
		result[doc.InfluencerID] = true
	}
	return result, nil
}
