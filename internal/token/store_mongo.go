package token

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"collabapi/internal/models"
)

// MongoStore keeps refresh-token records in the refresh_tokens collection.
// The tokenHash unique index backs FindByHash; Claim relies on the conditional
// update semantics of UpdateOne for its atomicity.
type MongoStore struct {
	db *mongo.Database
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db}
}

func (s *MongoStore) collection() *mongo.Collection {
	return s.db.Collection("refresh_tokens")
}

func (s *MongoStore) Insert(ctx context.Context, record models.RefreshToken) (primitive.ObjectID, error) {
	res, err := s.collection().InsertOne(ctx, record)
	if err != nil {
		return primitive.NilObjectID, err
	}
	id, _ := res.InsertedID.(primitive.ObjectID)
	return id, nil
}

func (s *MongoStore) FindByHash(ctx context.Context, hash string) (models.RefreshToken, error) {
	var record models.RefreshToken
	err := s.collection().FindOne(ctx, bson.M{"tokenHash": hash}).Decode(&record)
	return record, err
}

func (s *MongoStore) Claim(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error) {
	res, err := s.collection().UpdateOne(ctx,
		bson.M{"_id": id, "revokedAt": nil},
		bson.M{"$set": bson.M{"revokedAt": at}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (s *MongoStore) SetReplacedBy(ctx context.Context, id, replacedBy primitive.ObjectID) error {
	_, err := s.collection().UpdateByID(ctx, id, bson.M{"$set": bson.M{"replacedBy": replacedBy}})
	return err
}

func (s *MongoStore) Revoke(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	_, err := s.collection().UpdateByID(ctx, id, bson.M{"$set": bson.M{"revokedAt": at}})
	return err
}

func (s *MongoStore) RevokeAllActive(ctx context.Context, userID primitive.ObjectID, at time.Time) error {
	_, err := s.collection().UpdateMany(ctx,
		bson.M{"userId": userID, "revokedAt": nil},
		bson.M{"$set": bson.M{"revokedAt": at}},
	)
	return err
}

// MongoUsers adapts the users collection to the UserSource needed by Rotate.
type MongoUsers struct {
	db *mongo.Database
}

func NewMongoUsers(db *mongo.Database) *MongoUsers {
	return &MongoUsers{db: db}
}

func (u *MongoUsers) FindByID(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	var user models.User
	err := u.db.Collection("users").FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	return user, err
}
