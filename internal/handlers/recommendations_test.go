package handlers

import (
	"testing"
)

func TestRelevanceScore(t *testing.T) {
	cases := []struct {
		name   string
		target string
		niche  string
		want   float64
	}{
		{"no target niche", "", "beauty", 50},
		{"influencer without niche", "beauty", "", 20},
		{"exact match", "beauty", "Beauty", 100},
		{"substring match", "tech", "fintech", 75},
		{"reverse substring", "fitness and wellness", "fitness", 75},
		{"unrelated", "gaming", "cooking", 30},
		{"whitespace trimmed", "  travel  ", "travel", 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := relevanceScore(tc.target, tc.niche); got != tc.want {
				t.Fatalf("relevanceScore(%q, %q) = %v, want %v", tc.target, tc.niche, got, tc.want)
			}
		})
	}
}

func TestMatchScoreWeights(t *testing.T) {
	// 4.2*0.5 + 100*0.3 + 80*0.2 = 48.1
	if got := matchScore(4.2, 100, 80, false); got != 48.1 {
		t.Fatalf("matchScore = %v, want 48.1", got)
	}
}

func TestMatchScoreFraudPenalty(t *testing.T) {
	clean := matchScore(50, 50, 50, false)
	flagged := matchScore(50, 50, 50, true)
	if clean-flagged != fraudPenalty {
		t.Fatalf("penalty = %v, want %v", clean-flagged, float64(fraudPenalty))
	}
}

func TestMatchScoreNeverNegative(t *testing.T) {
	if got := matchScore(0, 0, 0, true); got != 0 {
		t.Fatalf("matchScore floored at %v, want 0", got)
	}
}

func TestClampScore(t *testing.T) {
	if got := clampScore(150); got != 100 {
		t.Fatalf("clampScore(150) = %v", got)
	}
	if got := clampScore(-3); got != 0 {
		t.Fatalf("clampScore(-3) = %v", got)
	}
	if got := clampScore(42.5); got != 42.5 {
		t.Fatalf("clampScore(42.5) = %v", got)
	}
}

func TestDefaultQuality(t *testing.T) {
	if got := defaultQuality(0); got != 40 {
		t.Fatalf("unscored accounts should default to 40, got %v", got)
	}
	if got := defaultQuality(87); got != 87 {
		t.Fatalf("scored accounts keep their score, got %v", got)
	}
}
