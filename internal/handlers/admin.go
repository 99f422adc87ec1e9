package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"collabapi/internal/audit"
	"collabapi/internal/httpx"
	"collabapi/internal/models"
)

// AdminOverview reports entity counts for the moderation dashboard.
func AdminOverview(db *mongo.Database) gin.HandlerFunc {
	collections := []string{"users", "campaigns", "matches", "applications", "proposals", "transactions"}
	return func(c *gin.Context) {
		ctx, cancel := dbCtx()
		defer cancel()

		counts := gin.H{}
		for _, name := range collections {
			count, err := db.Collection(name).CountDocuments(ctx, bson.M{})
			if err != nil {
				httpx.Fail(c, err)
				return
			}
			counts[name] = count
		}
		flagged, err := db.Collection("users").CountDocuments(ctx, bson.M{"isFraudFlagged": true})
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		counts["fraudFlagged"] = flagged

		c.JSON(http.StatusOK, gin.H{"overview": counts})
	}
}

func AdminListUsers(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := dbCtx()
		defer cancel()

		filter := bson.M{}
		if role := c.Query("role"); role != "" {
			if role != models.RoleAdmin && !models.ValidRole(role) {
				httpx.Fail(c, httpx.BadRequest("unknown role"))
				return
			}
			filter["role"] = role
		}

		cursor, err := db.Collection("users").Find(ctx, filter,
			options.Find().SetSort(bson.M{"createdAt": -1}))
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		var users []models.User
		if err := cursor.All(ctx, &users); err != nil {
			httpx.Fail(c, err)
			return
		}

		items := make([]gin.H, 0, len(users))
		for _, user := range users {
			items = append(items, gin.H{
				"id":             user.ID.Hex(),
				"name":           user.Name,
				"email":          user.Email,
				"role":           user.Role,
				"niche":          user.Niche,
				"followers":      user.Followers,
				"isFraudFlagged": user.IsFraudFlagged,
				"createdAt":      user.CreatedAt,
			})
		}
		c.JSON(http.StatusOK, gin.H{"users": items})
	}
}

type FraudFlagRequest struct {
	IsFraudFlagged *bool `json:"isFraudFlagged" binding:"required"`
}

func AdminFlagFraud(db *mongo.Database, auditor *audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := objectIDParam(c, "id")
		if !ok {
			return
		}
		var req FraudFlagRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.FailValidation(c, err)
			return
		}

		ctx, cancel := dbCtx()
		defer cancel()

		res, err := db.Collection("users").UpdateOne(ctx,
			bson.M{"_id": id},
			bson.M{"$set": bson.M{"isFraudFlagged": *req.IsFraudFlagged, "updatedAt": time.Now()}})
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		if res.MatchedCount == 0 {
			httpx.Fail(c, httpx.NotFound("user not found"))
			return
		}

		auditor.Record(c, audit.Entry{
			Action:     "admin.fraud-flag",
			EntityType: "user",
			EntityID:   id.Hex(),
			Metadata:   map[string]any{"isFraudFlagged": *req.IsFraudFlagged},
		})

		c.JSON(http.StatusOK, gin.H{"ok": true, "isFraudFlagged": *req.IsFraudFlagged})
	}
}

func AdminAuditLogs(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 50
		if raw := c.Query("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 || parsed > 200 {
				httpx.Fail(c, httpx.BadRequest("limit must be between 1 and 200"))
				return
			}
			limit = parsed
		}

		ctx, cancel := dbCtx()
		defer cancel()

		cursor, err := db.Collection("audit_logs").Find(ctx, bson.M{},
			options.Find().SetSort(bson.M{"createdAt": -1}).SetLimit(int64(limit)))
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		var logs []models.AuditLog
		if err := cursor.All(ctx, &logs); err != nil {
			httpx.Fail(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"auditLogs": logs})
	}
}

// AdminFraudScan re-evaluates every influencer against the fraud heuristics
// and stores the verdict, unflagging accounts that no longer trip them.
func AdminFraudScan(db *mongo.Database, auditor *audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := dbCtx()
		defer cancel()

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

		flagged := 0
		for _, influencer := range influencers {
			suspicious := suspiciousInfluencer(influencer)
			if suspicious {
				flagged++
			}
			if suspicious == influencer.IsFraudFlagged {
				continue
			}
			if _, err := db.Collection("users").UpdateOne(ctx,
				bson.M{"_id": influencer.ID},
				bson.M{"$set": bson.M{"isFraudFlagged": suspicious, "updatedAt": time.Now()}}); err != nil {
				httpx.Fail(c, err)
				return
			}
		}

		auditor.Record(c, audit.Entry{
			Action:     "admin.fraud-scan",
			EntityType: "user",
			Metadata:   map[string]any{"scanned": len(influencers), "flagged": flagged},
		})

		c.JSON(http.StatusOK, gin.H{"scanned": len(influencers), "flaggedCount": flagged})
	}
}

// Large accounts with implausibly low engagement, or very poor audience
// quality, get flagged.
func suspiciousInfluencer(user models.User) bool {
	if user.Followers >= 50000 && user.EngagementRate < 0.5 {
		return true
	}
	return user.FollowerQualityScore < 20
}
