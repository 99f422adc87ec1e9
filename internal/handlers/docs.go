package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Minimal OpenAPI stub. Route-level schemas live in the handbook; this keeps
// tooling that probes /api/docs/openapi.json happy.
var openAPIDocument = gin.H{
	"openapi": "3.0.3",
	"info": gin.H{
		"title":       "Collab API",
		"description": "Brand / influencer collaboration marketplace",
		"version":     "1.0.0",
	},
	"paths": gin.H{
		"/auth/signup":              gin.H{"post": gin.H{"summary": "Create an account"}},
		"/auth/login":               gin.H{"post": gin.H{"summary": "Log in"}},
		"/auth/refresh":             gin.H{"post": gin.H{"summary": "Rotate the refresh token"}},
		"/auth/logout":              gin.H{"post": gin.H{"summary": "Log out everywhere"}},
		"/auth/me":                  gin.H{"get": gin.H{"summary": "Current account"}},
		"/api/campaigns":            gin.H{"get": gin.H{"summary": "List open campaigns"}, "post": gin.H{"summary": "Create a campaign"}},
		"/api/matches":              gin.H{"get": gin.H{"summary": "List matches"}, "post": gin.H{"summary": "Create a match"}},
		"/api/applications":         gin.H{"get": gin.H{"summary": "List applications"}, "post": gin.H{"summary": "Apply to a campaign"}},
		"/api/proposals":            gin.H{"get": gin.H{"summary": "List proposals"}, "post": gin.H{"summary": "Create a proposal"}},
		"/api/transactions":         gin.H{"get": gin.H{"summary": "List transactions"}, "post": gin.H{"summary": "Hold funds in escrow"}},
		"/api/notifications/stream": gin.H{"get": gin.H{"summary": "Server-sent event stream"}},
		"/api/notifications/recent": gin.H{"get": gin.H{"summary": "Recent notifications"}},
		"/api/analytics/brand":      gin.H{"get": gin.H{"summary": "Brand analytics"}},
		"/api/analytics/influencer": gin.H{"get": gin.H{"summary": "Influencer analytics"}},
	},
}

func OpenAPISpec() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, openAPIDocument)
	}
}

func DocsIndex() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"name":    "Collab API",
			"openapi": "/api/docs/openapi.json",
			"health":  "/health",
		})
	}
}
