package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"collabapi/internal/models"
	"collabapi/internal/token"
)

type stubStore struct{}

func (stubStore) Insert(context.Context, models.RefreshToken) (primitive.ObjectID, error) {
	return primitive.NewObjectID(), nil
}
func (stubStore) FindByHash(context.Context, string) (models.RefreshToken, error) {
	return models.RefreshToken{}, token.ErrNotFound
}
func (stubStore) Claim(context.Context, primitive.ObjectID, time.Time) (bool, error) {
	return false, nil
}
func (stubStore) SetReplacedBy(context.Context, primitive.ObjectID, primitive.ObjectID) error {
	return nil
}
func (stubStore) Revoke(context.Context, primitive.ObjectID, time.Time) error { return nil }
func (stubStore) RevokeAllActive(context.Context, primitive.ObjectID, time.Time) error {
	return nil
}

type stubUsers struct{}

func (stubUsers) FindByID(context.Context, primitive.ObjectID) (models.User, error) {
	return models.User{}, token.ErrNotFound
}

func testTokens(t *testing.T) (*token.Service, string, models.User) {
	t.Helper()
	user := models.User{
		ID:    primitive.NewObjectID(),
		Name:  "Demo Brand",
		Email: "brand.demo@collab.local",
		Role:  models.RoleBrand,
	}
	svc := token.NewService(stubStore{}, stubUsers{}, "test-secret", 15*time.Minute, time.Hour)
	pair, err := svc.Issue(context.Background(), user)
	require.NoError(t, err)
	return svc, pair.AccessToken, user
}

func authedRouter(tokens *token.Service, roles ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := []gin.HandlerFunc{RequireAuth(tokens)}
	if len(roles) > 0 {
		handlers = append(handlers, RequireRoles(roles...))
	}
	handlers = append(handlers, func(c *gin.Context) {
		claims, _ := CurrentClaims(c)
		c.JSON(http.StatusOK, gin.H{"sub": claims.UserID.Hex()})
	})
	r.GET("/protected", handlers...)
	return r
}

func TestRequireAuthMissingToken(t *testing.T) {
	tokens, _, _ := testTokens(t)
	r := authedRouter(tokens)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuthBearer(t *testing.T) {
	tokens, access, user := testTokens(t)
	r := authedRouter(tokens)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), user.ID.Hex())
}

func TestRequireAuthCookieFallback(t *testing.T) {
	tokens, access, _ := testTokens(t)
	r := authedRouter(tokens)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: token.AccessCookie, Value: access})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireAuthRejectsGarbage(t *testing.T) {
	tokens, _, _ := testTokens(t)
	r := authedRouter(tokens)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer nonsense")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRoles(t *testing.T) {
	tokens, access, _ := testTokens(t)

	allowed := authedRouter(tokens, models.RoleBrand, models.RoleAdmin)
	denied := authedRouter(tokens, models.RoleAdmin)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+access)

	w := httptest.NewRecorder()
	allowed.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	denied.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func csrfRouter(disabled bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequireCSRF(disabled))
	r.POST("/mutate", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	r.GET("/read", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	return r
}

func TestCSRFMissingHeader(t *testing.T) {
	r := csrfRouter(false)

	req := httptest.NewRequest(http.MethodPost, "/mutate", nil)
	req.AddCookie(&http.Cookie{Name: token.CSRFCookie, Value: "abc"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCSRFMatchingPair(t *testing.T) {
	r := csrfRouter(false)

	req := httptest.NewRequest(http.MethodPost, "/mutate", nil)
	req.AddCookie(&http.Cookie{Name: token.CSRFCookie, Value: "abc"})
	req.Header.Set(CSRFHeader, "abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCSRFMismatch(t *testing.T) {
	r := csrfRouter(false)

	req := httptest.NewRequest(http.MethodPost, "/mutate", nil)
	req.AddCookie(&http.Cookie{Name: token.CSRFCookie, Value: "abc"})
	req.Header.Set(CSRFHeader, "xyz")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCSRFBearerExempt(t *testing.T) {
	r := csrfRouter(false)

	req := httptest.NewRequest(http.MethodPost, "/mutate", nil)
	req.Header.Set("Authorization", "Bearer whatever")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCSRFReadExempt(t *testing.T) {
	r := csrfRouter(false)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/read", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCSRFDisabled(t *testing.T) {
	r := csrfRouter(true)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/mutate", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimiterBlocksAfterBurst(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limiter := NewRateLimiter(3, time.Minute, "too many requests, try again later")
	r := gin.New()
	r.Use(limiter.Middleware())
	r.GET("/", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	var last int
	for i := 0; i < 4; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		last = w.Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}
