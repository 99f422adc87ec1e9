package token

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"collabapi/internal/models"
)

type fakeStore struct {
	mu      sync.Mutex
	records map[primitive.ObjectID]*models.RefreshToken
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: map[primitive.ObjectID]*models.RefreshToken{}}
}

func (f *fakeStore) Insert(_ context.Context, record models.RefreshToken) (primitive.ObjectID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record.ID = primitive.NewObjectID()
	f.records[record.ID] = &record
	return record.ID, nil
}

func (f *fakeStore) FindByHash(_ context.Context, hash string) (models.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, record := range f.records {
		if record.TokenHash == hash {
			return *record, nil
		}
	}
	return models.RefreshToken{}, ErrNotFound
}

func (f *fakeStore) Claim(_ context.Context, id primitive.ObjectID, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[id]
	if !ok || record.RevokedAt != nil {
		return false, nil
	}
	record.RevokedAt = &at
	return true, nil
}

func (f *fakeStore) SetReplacedBy(_ context.Context, id, replacedBy primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if record, ok := f.records[id]; ok {
		record.ReplacedBy = &replacedBy
	}
	return nil
}

func (f *fakeStore) Revoke(_ context.Context, id primitive.ObjectID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if record, ok := f.records[id]; ok && record.RevokedAt == nil {
		record.RevokedAt = &at
	}
	return nil
}

func (f *fakeStore) RevokeAllActive(_ context.Context, userID primitive.ObjectID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, record := range f.records {
		if record.UserID == userID && record.RevokedAt == nil {
			record.RevokedAt = &at
		}
	}
	return nil
}

func (f *fakeStore) activeCount(userID primitive.ObjectID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, record := range f.records {
		if record.UserID == userID && record.RevokedAt == nil {
			count++
		}
	}
	return count
}

type fakeUsers struct {
	users map[primitive.ObjectID]models.User
}

func (f *fakeUsers) FindByID(_ context.Context, id primitive.ObjectID) (models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return user, nil
}

func newTestService(t *testing.T) (*Service, *fakeStore, models.User) {
	t.Helper()
	user := models.User{
		ID:    primitive.NewObjectID(),
		Name:  "Demo Brand",
		Email: "brand.demo@collab.local",
		Role:  models.RoleBrand,
	}
	store := newFakeStore()
	users := &fakeUsers{users: map[primitive.ObjectID]models.User{user.ID: user}}
	svc := NewService(store, users, "test-secret", 15*time.Minute, 30*24*time.Hour)
	return svc, store, user
}

func TestIssueThenRotateYieldsNewSecret(t *testing.T) {
	svc, store, user := newTestService(t)
	ctx := context.Background()

	pair, err := svc.Issue(ctx, user)
	require.NoError(t, err)
	require.NotEmpty(t, pair.RefreshToken)

	rotated, rotatedUser, err := svc.Rotate(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, rotatedUser.ID)
	assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)
	assert.NotEmpty(t, rotated.AccessToken)

	// one active link in the chain after rotation
	assert.Equal(t, 1, store.activeCount(user.ID))
}

func TestRotationLinksRevocationChain(t *testing.T) {
	svc, store, user := newTestService(t)
	ctx := context.Background()

	pair, err := svc.Issue(ctx, user)
	require.NoError(t, err)
	_, _, err = svc.Rotate(ctx, pair.RefreshToken)
	require.NoError(t, err)

	old, err := store.FindByHash(ctx, HashSecret(pair.RefreshToken))
	require.NoError(t, err)
	assert.True(t, old.Revoked())
	require.NotNil(t, old.ReplacedBy)
	assert.Contains(t, store.records, *old.ReplacedBy)
}

func TestReplayRevokesWholeSession(t *testing.T) {
	svc, store, user := newTestService(t)
	ctx := context.Background()

	pair, err := svc.Issue(ctx, user)
	require.NoError(t, err)

	rotated, _, err := svc.Rotate(ctx, pair.RefreshToken)
	require.NoError(t, err)

	// replaying the rotated token is a theft signal
	_, _, err = svc.Rotate(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrReuseDetected)
	assert.Equal(t, 0, store.activeCount(user.ID))

	// the legitimate successor token is dead too
	_, _, err = svc.Rotate(ctx, rotated.RefreshToken)
	assert.ErrorIs(t, err, ErrReuseDetected)
}

func TestRotateUnknownToken(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, _, err := svc.Rotate(context.Background(), "deadbeef")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRotateExpiredTokenRevokesIt(t *testing.T) {
	svc, store, user := newTestService(t)
	ctx := context.Background()

	pair, err := svc.Issue(ctx, user)
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(31 * 24 * time.Hour) }
	_, _, err = svc.Rotate(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrExpired)

	record, err := store.FindByHash(ctx, HashSecret(pair.RefreshToken))
	require.NoError(t, err)
	assert.True(t, record.Revoked())
}

func TestRevokeAllActiveKillsRotation(t *testing.T) {
	svc, _, user := newTestService(t)
	ctx := context.Background()

	pair, err := svc.Issue(ctx, user)
	require.NoError(t, err)

	require.NoError(t, svc.RevokeAllActive(ctx, user.ID))

	_, _, err = svc.Rotate(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrReuseDetected)
}

func TestLostClaimRaceReportsReuse(t *testing.T) {
	svc, store, user := newTestService(t)
	ctx := context.Background()

	pair, err := svc.Issue(ctx, user)
	require.NoError(t, err)

	// A concurrent rotation claims the record first.
	record, err := store.FindByHash(ctx, HashSecret(pair.RefreshToken))
	require.NoError(t, err)
	claimed, err := store.Claim(ctx, record.ID, time.Now())
	require.NoError(t, err)
	require.True(t, claimed)

	_, _, err = svc.Rotate(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrReuseDetected)
	assert.Equal(t, 0, store.activeCount(user.ID))
}

func TestVerifyAccessRoundTrip(t *testing.T) {
	svc, _, user := newTestService(t)

	pair, err := svc.Issue(context.Background(), user)
	require.NoError(t, err)

	claims, err := svc.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, models.RoleBrand, claims.Role)
	assert.Equal(t, user.Email, claims.Email)
}

func TestVerifyAccessRejectsExpired(t *testing.T) {
	svc, _, user := newTestService(t)

	pair, err := svc.Issue(context.Background(), user)
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(16 * time.Minute) }
	_, err = svc.VerifyAccess(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidAccess)
}

func TestVerifyAccessRejectsGarbage(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.VerifyAccess("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidAccess)
}
