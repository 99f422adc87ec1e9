// Package token issues paired access/refresh credentials, rotates refresh
// tokens on use, and treats reuse of a rotated token as theft: the whole
// session chain for that user is revoked.
package token

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"collabapi/internal/models"
)

var (
	ErrNotFound      = errors.New("refresh token not found")
	ErrReuseDetected = errors.New("refresh token reuse detected")
	ErrExpired       = errors.New("refresh token expired")
	ErrInvalidAccess = errors.New("invalid access token")
)

// Claims is the verified identity carried by an access token. Never persisted;
// validity is purely signature plus expiry.
type Claims struct {
	UserID primitive.ObjectID
	Role   string
	Email  string
}

type Pair struct {
	AccessToken  string
	RefreshToken string
}

// Store persists refresh-token records. Claim must be atomic: of two
// concurrent rotations of one record, exactly one may win.
type Store interface {
	Insert(ctx context.Context, record models.RefreshToken) (primitive.ObjectID, error)
	FindByHash(ctx context.Context, hash string) (models.RefreshToken, error)
	Claim(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error)
	SetReplacedBy(ctx context.Context, id, replacedBy primitive.ObjectID) error
	Revoke(ctx context.Context, id primitive.ObjectID, at time.Time) error
	RevokeAllActive(ctx context.Context, userID primitive.ObjectID, at time.Time) error
}

// UserSource resolves the owning account during rotation.
type UserSource interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (models.User, error)
}

type Service struct {
	store      Store
	users      UserSource
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewService(store Store, users UserSource, secret string, accessTTL, refreshTTL time.Duration) *Service {
	return &Service{
		store:      store,
		users:      users,
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// Issue signs a short-lived access token and mints a fresh refresh secret for
// the user. Only the hash of the secret is stored; the raw value goes to the
// caller once and is never recoverable afterwards.
func (s *Service) Issue(ctx context.Context, user models.User) (Pair, error) {
	accessToken, err := s.signAccess(user)
	if err != nil {
		return Pair{}, err
	}

	rawRefresh, err := newRefreshSecret()
	if err != nil {
		return Pair{}, err
	}

	now := s.now()
	_, err = s.store.Insert(ctx, models.RefreshToken{
		UserID:    user.ID,
		TokenHash: HashSecret(rawRefresh),
		ExpiresAt: now.Add(s.refreshTTL),
		CreatedAt: now,
	})
	if err != nil {
		return Pair{}, err
	}

	return Pair{AccessToken: accessToken, RefreshToken: rawRefresh}, nil
}

// Rotate exchanges a presented refresh token for a fresh pair. A token that
// was already rotated is a reuse signal: every active session for the owning
// user is revoked before the error is returned.
func (s *Service) Rotate(ctx context.Context, rawRefresh string) (Pair, models.User, error) {
	record, err := s.store.FindByHash(ctx, HashSecret(rawRefresh))
	if err != nil {
		return Pair{}, models.User{}, ErrNotFound
	}

	now := s.now()

	if record.Revoked() {
		if err := s.store.RevokeAllActive(ctx, record.UserID, now); err != nil {
			return Pair{}, models.User{}, err
		}
		return Pair{}, models.User{}, ErrReuseDetected
	}

	if record.Expired(now) {
		if err := s.store.Revoke(ctx, record.ID, now); err != nil {
			return Pair{}, models.User{}, err
		}
		return Pair{}, models.User{}, ErrExpired
	}

	// Claim the record before minting the replacement so two concurrent
	// rotations of the same token cannot both succeed. The loser is
	// indistinguishable from a replay and is treated the same way.
	claimed, err := s.store.Claim(ctx, record.ID, now)
	if err != nil {
		return Pair{}, models.User{}, err
	}
	if !claimed {
		if err := s.store.RevokeAllActive(ctx, record.UserID, now); err != nil {
			return Pair{}, models.User{}, err
		}
		return Pair{}, models.User{}, ErrReuseDetected
	}

	user, err := s.users.FindByID(ctx, record.UserID)
	if err != nil {
		return Pair{}, models.User{}, ErrNotFound
	}

	accessToken, err := s.signAccess(user)
	if err != nil {
		return Pair{}, models.User{}, err
	}

	rawNext, err := newRefreshSecret()
	if err != nil {
		return Pair{}, models.User{}, err
	}

	nextID, err := s.store.Insert(ctx, models.RefreshToken{
		UserID:    user.ID,
		TokenHash: HashSecret(rawNext),
		ExpiresAt: now.Add(s.refreshTTL),
		CreatedAt: now,
	})
	if err != nil {
		return Pair{}, models.User{}, err
	}

	if err := s.store.SetReplacedBy(ctx, record.ID, nextID); err != nil {
		return Pair{}, models.User{}, err
	}

	return Pair{AccessToken: accessToken, RefreshToken: rawNext}, user, nil
}

// RevokeAllActive marks every live refresh token for the user revoked. Used on
// explicit logout and internally on reuse detection.
func (s *Service) RevokeAllActive(ctx context.Context, userID primitive.ObjectID) error {
	return s.store.RevokeAllActive(ctx, userID, s.now())
}

// VerifyAccess checks signature and expiry and returns the embedded identity.
func (s *Service) VerifyAccess(rawToken string) (Claims, error) {
	parsed, err := jwt.Parse(rawToken, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return s.now() }))
	if err != nil || !parsed.Valid {
		return Claims{}, ErrInvalidAccess
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidAccess
	}

	sub, _ := mapClaims["sub"].(string)
	userID, err := primitive.ObjectIDFromHex(sub)
	if err != nil {
		return Claims{}, ErrInvalidAccess
	}

	role, _ := mapClaims["role"].(string)
	email, _ := mapClaims["email"].(string)
	return Claims{UserID: userID, Role: role, Email: email}, nil
}

func (s *Service) signAccess(user models.User) (string, error) {
	claims := jwt.MapClaims{
		"sub":   user.ID.Hex(),
		"role":  user.Role,
		"email": user.Email,
		"exp":   s.now().Add(s.accessTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// HashSecret is the one-way mapping from raw refresh secret to stored hash.
func HashSecret(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func newRefreshSecret() (string, error) {
	buf := make([]byte, 48)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
