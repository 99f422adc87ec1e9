package handlers

import (
	"testing"

	"collabapi/internal/models"
)

func TestSuspiciousInfluencer(t *testing.T) {
	cases := []struct {
		name string
		user models.User
		want bool
	}{
		{
			"large account with dead engagement",
			models.User{Followers: 80000, EngagementRate: 0.2, FollowerQualityScore: 70},
			true,
		},
		{
			"exactly at the follower threshold",
			models.User{Followers: 50000, EngagementRate: 0.49, FollowerQualityScore: 70},
			true,
		},
		{
			"large account with healthy engagement",
			models.User{Followers: 80000, EngagementRate: 3.1, FollowerQualityScore: 70},
			false,
		},
		{
			"small account with poor audience quality",
			models.User{Followers: 900, EngagementRate: 5, FollowerQualityScore: 12},
			true,
		},
		{
			"quality right at the cutoff",
			models.User{Followers: 900, EngagementRate: 5, FollowerQualityScore: 20},
			false,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := suspiciousInfluencer(tc.user); got != tc.want {
				t.Fatalf("suspiciousInfluencer = %v, want %v", got, tc.want)
			}
		})
	}
}
