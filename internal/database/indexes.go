package database

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the unique constraints the domain depends on:
// one account per email, one stored hash per refresh token, one match and one
// application per campaign/influencer pair. Duplicate-key errors from these
// indexes surface as 409 Conflict in the routers.
func EnsureIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := db.Collection("users").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetName("email_unique").SetUnique(true),
	}); err != nil {
		return err
	}

	if _, err := db.Collection("refresh_tokens").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "tokenHash", Value: 1}},
			Options: options.Index().SetName("tokenHash_unique").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}},
			Options: options.Index().SetName("userId_index"),
		},
	}); err != nil {
		return err
	}

	pairIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "campaignId", Value: 1},
			{Key: "influencerId", Value: 1},
		},
		Options: options.Index().SetName("campaign_influencer_unique").SetUnique(true),
	}
	if _, err := db.Collection("matches").Indexes().CreateOne(ctx, pairIndex); err != nil {
		return err
	}
	if _, err := db.Collection("applications").Indexes().CreateOne(ctx, pairIndex); err != nil {
		return err
	}

	if _, err := db.Collection("audit_logs").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "createdAt", Value: -1}},
		Options: options.Index().SetName("createdAt_desc"),
	}); err != nil {
		return err
	}

	return nil
}
