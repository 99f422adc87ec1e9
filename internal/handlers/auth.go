package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"collabapi/internal/audit"
	"collabapi/internal/httpx"
	"collabapi/internal/middleware"
	"collabapi/internal/models"
	"collabapi/internal/token"
)

type SignupRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=80"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=128"`
	Role     string `json:"role" binding:"required,oneof=BRAND INFLUENCER"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

type authResponse struct {
	User        models.PublicUser `json:"user"`
	AccessToken string            `json:"accessToken"`
	CSRFToken   string            `json:"csrfToken"`
}

// AuthDeps bundles what every auth route needs.
type AuthDeps struct {
	DB         *mongo.Database
	Tokens     *token.Service
	Auditor    *audit.Recorder
	CookieOpts token.CookieOptions
	Logger     zerolog.Logger
}

func (d AuthDeps) startSession(c *gin.Context, user models.User, pair token.Pair) string {
	csrfToken := token.NewCSRFToken()
	token.SetAuthCookies(c, d.CookieOpts, pair.AccessToken, pair.RefreshToken, csrfToken)
	middleware.SetClaims(c, token.Claims{UserID: user.ID, Role: user.Role, Email: user.Email})
	return csrfToken
}

func Signup(deps AuthDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SignupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.FailValidation(c, err)
			return
		}

		ctx, cancel := dbCtx()
		defer cancel()

		email := strings.ToLower(strings.TrimSpace(req.Email))
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			httpx.Fail(c, err)
			return
		}

		now := time.Now()
		user := models.User{
			Name:         strings.TrimSpace(req.Name),
			Email:        email,
			PasswordHash: string(hash),
			Role:         req.Role,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		res, err := deps.DB.Collection("users").InsertOne(ctx, user)
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				httpx.Fail(c, httpx.Conflict("email already in use"))
				return
			}
			deps.Logger.Error().Err(err).Msg("signup insert failed")
			httpx.Fail(c, err)
			return
		}
		user.ID = res.InsertedID.(primitive.ObjectID)

		pair, err := deps.Tokens.Issue(ctx, user)
		if err != nil {
			deps.Logger.Error().Err(err).Msg("signup token issue failed")
			httpx.Fail(c, err)
			return
		}

		csrfToken := deps.startSession(c, user, pair)
		deps.Auditor.Record(c, audit.Entry{
			Action:     "auth.signup",
			EntityType: "user",
			EntityID:   user.ID.Hex(),
		})

		c.JSON(http.StatusCreated, authResponse{
			User:        user.Public(),
			AccessToken: pair.AccessToken,
			CSRFToken:   csrfToken,
		})
	}
}

func Login(deps AuthDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.FailValidation(c, err)
			return
		}

		ctx, cancel := dbCtx()
		defer cancel()

		email := strings.ToLower(strings.TrimSpace(req.Email))
		var user models.User
		if err := deps.DB.Collection("users").FindOne(ctx, bson.M{"email": email}).Decode(&user); err != nil {
			httpx.Fail(c, httpx.Unauthorized("invalid credentials"))
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
			httpx.Fail(c, httpx.Unauthorized("invalid credentials"))
			return
		}

		pair, err := deps.Tokens.Issue(ctx, user)
		if err != nil {
			deps.Logger.Error().Err(err).Msg("login token issue failed")
			httpx.Fail(c, err)
			return
		}

		csrfToken := deps.startSession(c, user, pair)
		deps.Auditor.Record(c, audit.Entry{
			Action:     "auth.login",
			EntityType: "user",
			EntityID:   user.ID.Hex(),
		})

		c.JSON(http.StatusOK, authResponse{
			User:        user.Public(),
			AccessToken: pair.AccessToken,
			CSRFToken:   csrfToken,
		})
	}
}

// Refresh rotates the refresh cookie. Every failure clears the cookie triple;
// the reuse case keeps its distinct message so the client can prompt a full
// re-login, but all failures are 401s.
func Refresh(deps AuthDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawRefresh, err := c.Cookie(token.RefreshCookie)
		if err != nil || rawRefresh == "" {
			token.ClearAuthCookies(c, deps.CookieOpts)
			httpx.Fail(c, httpx.Unauthorized("refresh token missing"))
			return
		}

		ctx, cancel := dbCtx()
		defer cancel()

		pair, user, err := deps.Tokens.Rotate(ctx, rawRefresh)
		if err != nil {
			token.ClearAuthCookies(c, deps.CookieOpts)
			switch {
			case errors.Is(err, token.ErrReuseDetected):
				deps.Logger.Warn().Msg("refresh token reuse detected")
				httpx.Fail(c, httpx.Unauthorized("refresh token reuse detected; please log in again"))
			case errors.Is(err, token.ErrExpired):
				httpx.Fail(c, httpx.Unauthorized("refresh token expired"))
			case errors.Is(err, token.ErrNotFound):
				httpx.Fail(c, httpx.Unauthorized("invalid refresh token"))
			default:
				deps.Logger.Error().Err(err).Msg("refresh rotation failed")
				httpx.Fail(c, err)
			}
			return
		}

		csrfToken := deps.startSession(c, user, pair)
		deps.Auditor.Record(c, audit.Entry{
			Action:     "auth.refresh",
			EntityType: "session",
			EntityID:   user.ID.Hex(),
		})

		c.JSON(http.StatusOK, gin.H{
			"ok":          true,
			"accessToken": pair.AccessToken,
			"csrfToken":   csrfToken,
		})
	}
}

func Logout(deps AuthDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := actor(c)

		ctx, cancel := dbCtx()
		defer cancel()

		if err := deps.Tokens.RevokeAllActive(ctx, claims.UserID); err != nil {
			deps.Logger.Error().Err(err).Msg("logout revoke failed")
			httpx.Fail(c, err)
			return
		}

		token.ClearAuthCookies(c, deps.CookieOpts)
		deps.Auditor.Record(c, audit.Entry{
			Action:     "auth.logout",
			EntityType: "user",
			EntityID:   claims.UserID.Hex(),
		})

		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

func Me(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := actor(c)

		ctx, cancel := dbCtx()
		defer cancel()

		user, err := findUser(ctx, db, claims.UserID)
		if err != nil {
			httpx.Fail(c, httpx.NotFound("user not found"))
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"id":        user.ID.Hex(),
			"name":      user.Name,
			"email":     user.Email,
			"role":      user.Role,
			"createdAt": user.CreatedAt,
		})
	}
}
