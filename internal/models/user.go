package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleAdmin      = "ADMIN"
	RoleBrand      = "BRAND"
	RoleInfluencer = "INFLUENCER"
)

// User is a platform account: admin, brand, or influencer.
// Influencer-only audience fields stay zero-valued for the other roles.
type User struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name                 string             `bson:"name" json:"name"`
	Email                string             `bson:"email" json:"email"`
	PasswordHash         string             `bson:"passwordHash" json:"-"`
	Role                 string             `bson:"role" json:"role"`
	Niche                string             `bson:"niche,omitempty" json:"niche,omitempty"`
	Followers            int64              `bson:"followers" json:"followers"`
	EngagementRate       float64            `bson:"engagementRate" json:"engagementRate"`
	FollowerQualityScore float64            `bson:"followerQualityScore" json:"followerQualityScore"`
	IsFraudFlagged       bool               `bson:"isFraudFlagged" json:"isFraudFlagged"`
	ProfileViews         int64              `bson:"profileViews" json:"profileViews"`
	CreatedAt            time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt            time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// PublicUser is the safe projection returned by auth and listing endpoints.
type PublicUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (u User) Public() PublicUser {
	return PublicUser{
		ID:    u.ID.Hex(),
		Name:  u.Name,
		Email: u.Email,
		Role:  u.Role,
	}
}

func ValidRole(role string) bool {
	return role == RoleBrand || role == RoleInfluencer
}
