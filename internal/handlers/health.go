package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"collabapi/internal/database"
)

func Liveness() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// Readiness fails when Mongo stops answering pings.
func Readiness(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := dbCtx()
		defer cancel()
		if err := database.Ping(ctx, db); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}
}

func Health(db *mongo.Database, startedAt time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := dbCtx()
		defer cancel()

		dbStatus := "up"
		status := http.StatusOK
		if err := database.Ping(ctx, db); err != nil {
			dbStatus = "down"
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"status":        dbStatus,
			"uptimeSeconds": int64(time.Since(startedAt).Seconds()),
			"time":          time.Now().UTC(),
		})
	}
}
