package main

import (
	"context"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"collabapi/internal/audit"
	"collabapi/internal/config"
	"collabapi/internal/database"
	"collabapi/internal/handlers"
	"collabapi/internal/middleware"
	"collabapi/internal/models"
	"collabapi/internal/notify"
	"collabapi/internal/token"
)

func main() {
	config.Load()

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "collabapi").Logger()

	client, err := database.Connect(config.AppEnv.MongoURI)
	if err != nil {
		logger.Fatal().Err(err).Msg("mongodb connection failed")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(ctx)
	}()
	db := client.Database(config.AppEnv.DBName)

	if err := database.EnsureIndexes(db); err != nil {
		logger.Fatal().Err(err).Msg("index creation failed")
	}
	if err := database.EnsureDefaultAdmin(db, config.AppEnv.DefaultAdminEmail, config.AppEnv.DefaultAdminPassword); err != nil {
		logger.Fatal().Err(err).Msg("default admin bootstrap failed")
	}

	tokens := token.NewService(
		token.NewMongoStore(db),
		token.NewMongoUsers(db),
		config.AppEnv.JWTSecret,
		config.AppEnv.AccessTokenTTL,
		config.AppEnv.RefreshTokenTTL,
	)
	hub := notify.NewHub(config.AppEnv.RecentEventsCap, config.AppEnv.HeartbeatInterval)
	auditor := audit.NewRecorder(db, logger)

	cookieOpts := token.CookieOptions{
		Domain:        config.AppEnv.CookieDomain,
		Secure:        config.AppEnv.CookieSecure,
		SameSite:      config.AppEnv.CookieSameSite,
		AccessMaxAge:  int(config.AppEnv.AccessTokenTTL.Seconds()),
		RefreshMaxAge: int(config.AppEnv.RefreshTokenTTL.Seconds()),
	}
	authDeps := handlers.AuthDeps{
		DB:         db,
		Tokens:     tokens,
		Auditor:    auditor,
		CookieOpts: cookieOpts,
		Logger:     logger,
	}

	router := buildRouter(routerDeps{
		db:       db,
		tokens:   tokens,
		hub:      hub,
		auditor:  auditor,
		authDeps: authDeps,
		logger:   logger,
	})

	logger.Info().Str("port", config.AppEnv.Port).Msg("server listening")
	if err := router.Run(":" + config.AppEnv.Port); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

type routerDeps struct {
	db       *mongo.Database
	tokens   *token.Service
	hub      *notify.Hub
	auditor  *audit.Recorder
	authDeps handlers.AuthDeps
	logger   zerolog.Logger
}

func buildRouter(deps routerDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(deps.logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     config.AppEnv.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.CSRFHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	startedAt := time.Now()
	router.GET("/live", handlers.Liveness())
	router.GET("/ready", handlers.Readiness(deps.db))
	router.GET("/health", handlers.Health(deps.db, startedAt))

	authLimiter := middleware.NewRateLimiter(
		config.AppEnv.AuthRateLimitPer10Min, 10*time.Minute,
		"too many authentication attempts, please try again later")
	apiLimiter := middleware.NewRateLimiter(
		config.AppEnv.APIRateLimitPerMin, time.Minute,
		"too many requests, please slow down")

	auth := router.Group("/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/signup", handlers.Signup(deps.authDeps))
		auth.POST("/login", handlers.Login(deps.authDeps))
		auth.POST("/refresh", handlers.Refresh(deps.authDeps))
		auth.POST("/logout", middleware.RequireAuth(deps.tokens), handlers.Logout(deps.authDeps))
		auth.GET("/me", middleware.RequireAuth(deps.tokens), handlers.Me(deps.db))
	}

	api := router.Group("/api")
	api.Use(apiLimiter.Middleware())

	api.GET("/docs", handlers.DocsIndex())
	api.GET("/docs/openapi.json", handlers.OpenAPISpec())
	api.GET("/campaigns", handlers.ListCampaigns(deps.db))

	protected := api.Group("")
	protected.Use(middleware.RequireAuth(deps.tokens))
	protected.Use(middleware.RequireCSRF(config.AppEnv.CSRFDisabled))

	campaigns := protected.Group("/campaigns")
	{
		campaigns.GET("/mine", middleware.RequireRoles(models.RoleBrand, models.RoleAdmin), handlers.MyCampaigns(deps.db))
		campaigns.POST("", middleware.RequireRoles(models.RoleBrand), handlers.CreateCampaign(deps.db, deps.auditor))
		campaigns.PATCH("/:id/close", middleware.RequireRoles(models.RoleBrand, models.RoleAdmin), handlers.CloseCampaign(deps.db, deps.auditor))
	}

	matches := protected.Group("/matches")
	{
		matches.GET("", handlers.ListMatches(deps.db))
		matches.POST("", middleware.RequireRoles(models.RoleBrand), handlers.CreateMatch(deps.db, deps.auditor, deps.hub))
		matches.GET("/recommendations", middleware.RequireRoles(models.RoleBrand, models.RoleAdmin), handlers.MatchRecommendations(deps.db))
	}

	applications := protected.Group("/applications")
	{
		applications.GET("", handlers.ListApplications(deps.db))
		applications.POST("", middleware.RequireRoles(models.RoleInfluencer), handlers.CreateApplication(deps.db, deps.auditor, deps.hub))
		applications.PATCH("/:id/status", handlers.UpdateApplicationStatus(deps.db, deps.auditor, deps.hub))
	}

	proposals := protected.Group("/proposals")
	{
		proposals.GET("", handlers.ListProposals(deps.db))
		proposals.POST("", handlers.CreateProposal(deps.db, deps.auditor))
		proposals.PATCH("/:id/status", handlers.UpdateProposalStatus(deps.db, deps.auditor, deps.hub))
	}

	transactions := protected.Group("/transactions")
	{
		transactions.GET("", handlers.ListTransactions(deps.db))
		transactions.POST("", middleware.RequireRoles(models.RoleBrand, models.RoleAdmin), handlers.CreateTransaction(deps.db, deps.auditor, deps.hub))
		transactions.PATCH("/:id/release", handlers.ReleaseTransaction(deps.db, deps.auditor, deps.hub))
		transactions.PATCH("/:id/refund", handlers.RefundTransaction(deps.db, deps.auditor, deps.hub))
		transactions.GET("/:id/receipt", handlers.TransactionReceipt(deps.db))
	}

	users := protected.Group("/users")
	{
		users.GET("/influencers", middleware.RequireRoles(models.RoleBrand, models.RoleAdmin), handlers.ListInfluencers(deps.db))
		users.GET("/influencers/:id", middleware.RequireRoles(models.RoleBrand, models.RoleAdmin), handlers.GetInfluencer(deps.db))
	}

	media := protected.Group("/media")
	{
		media.GET("", handlers.ListMediaAssets(deps.db))
		media.POST("", handlers.CreateMediaAsset(deps.db, deps.auditor))
	}

	analytics := protected.Group("/analytics")
	{
		analytics.GET("/brand", middleware.RequireRoles(models.RoleBrand, models.RoleAdmin), handlers.BrandAnalytics(deps.db))
		analytics.GET("/influencer", middleware.RequireRoles(models.RoleInfluencer, models.RoleAdmin), handlers.InfluencerAnalytics(deps.db))
	}

	notifications := protected.Group("/notifications")
	{
		notifications.GET("/stream", handlers.NotificationStream(deps.hub))
		notifications.GET("/recent", handlers.RecentNotifications(deps.hub))
	}

	admin := protected.Group("/admin")
	admin.Use(middleware.RequireRoles(models.RoleAdmin))
	{
		admin.GET("/overview", handlers.AdminOverview(deps.db))
		admin.GET("/users", handlers.AdminListUsers(deps.db))
		admin.PATCH("/users/:id/fraud-flag", handlers.AdminFlagFraud(deps.db, deps.auditor))
		admin.GET("/audit-logs", handlers.AdminAuditLogs(deps.db))
		admin.POST("/fraud-scan", handlers.AdminFraudScan(deps.db, deps.auditor))
	}

	return router
}
