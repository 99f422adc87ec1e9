package database

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"

	"collabapi/internal/models"
)

// EnsureDefaultAdmin upserts the platform admin account so a fresh deploy is
// never locked out. Idempotent across restarts.
func EnsureDefaultAdmin(db *mongo.Database, email, password string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	now := time.Now()
	normalized := strings.ToLower(strings.TrimSpace(email))
	_, err = db.Collection("users").UpdateOne(ctx,
		bson.M{"email": normalized},
		bson.M{
			"$set": bson.M{
				"role":         models.RoleAdmin,
				"passwordHash": string(hash),
				"updatedAt":    now,
			},
			"$setOnInsert": bson.M{
				"name":      "Platform Admin",
				"email":     normalized,
				"createdAt": now,
			},
		},
		options.Update().SetUpsert(true),
	)
	return err
}
