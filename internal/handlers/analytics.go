package handlers

import (
	"context"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"collabapi/internal/httpx"
	"collabapi/internal/models"
)

// Estimation constants, tuned against typical creator-marketing benchmarks.
const (
	conversionRatio      = 0.04
	revenuePerConversion = 45.0
)

type brandMetrics struct {
	Campaigns         int     `json:"campaigns"`
	TotalBudget       int64   `json:"totalBudget"`
	HeldSpend         int64   `json:"heldSpend"`
	ReleasedSpend     int64   `json:"releasedSpend"`
	AcceptedProposals int     `json:"acceptedProposals"`
	EstimatedReach    int64   `json:"estimatedReach"`
	Engagements       float64 `json:"engagements"`
	Conversions       int64   `json:"conversions"`
	EstimatedRevenue  float64 `json:"estimatedRevenue"`
	ROIPercent        float64 `json:"roiPercent"`
	ConversionRate    float64 `json:"conversionRate"`
	CostPerEngagement float64 `json:"costPerEngagement"`
}

// BrandAnalytics aggregates a brand's campaigns, escrow and the estimated
// funnel built from the audience of each ACCEPTED proposal's influencer.
func BrandAnalytics(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := actor(c)

		ctx, cancel := dbCtx()
		defer cancel()

		campaignFilter := bson.M{}
		if claims.Role == models.RoleBrand {
			campaignFilter["brandId"] = claims.UserID
		}
		cursor, err := db.Collection("campaigns").Find(ctx, campaignFilter)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		var campaigns []models.Campaign
		if err := cursor.All(ctx, &campaigns); err != nil {
			httpx.Fail(c, err)
			return
		}

		campaignIDs := make([]primitive.ObjectID, 0, len(campaigns))
		var totalBudget int64
		for _, campaign := range campaigns {
			campaignIDs = append(campaignIDs, campaign.ID)
			totalBudget += campaign.Budget
		}

		held, released, err := escrowTotals(ctx, db, campaignIDs)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		influencers, err := acceptedProposalInfluencers(ctx, db, campaignIDs)
		if err != nil {
			httpx.Fail(c, err)
			return
		}

		metrics := computeBrandMetrics(len(campaigns), totalBudget, held, released, influencers)
		c.JSON(http.StatusOK, gin.H{"analytics": metrics})
	}
}

// computeBrandMetrics takes one influencer entry per ACCEPTED proposal; an
// influencer accepted on two campaigns counts twice, matching how the deals
// were funded. ROI and cost-per-engagement are computed over released spend
// only, since held funds are still refundable.
func computeBrandMetrics(campaignCount int, totalBudget, held, released int64, influencers []models.User) brandMetrics {
	metrics := brandMetrics{
		Campaigns:         campaignCount,
		TotalBudget:       totalBudget,
		HeldSpend:         held,
		ReleasedSpend:     released,
		AcceptedProposals: len(influencers),
	}
	for _, influencer := range influencers {
		metrics.EstimatedReach += influencer.Followers
		metrics.Engagements += float64(influencer.Followers) * influencer.EngagementRate / 100
	}
	metrics.Engagements = round2(metrics.Engagements)
	metrics.Conversions = int64(math.Round(metrics.Engagements * conversionRatio))
	metrics.EstimatedRevenue = round2(float64(metrics.Conversions) * revenuePerConversion)

	spend := float64(released)
	if spend > 0 {
		metrics.ROIPercent = round2((metrics.EstimatedRevenue - spend) / spend * 100)
		metrics.CostPerEngagement = safeDivide(spend, metrics.Engagements)
	}
	if metrics.EstimatedReach > 0 {
		metrics.ConversionRate = round2(float64(metrics.Conversions) / float64(metrics.EstimatedReach) * 100)
	}
	return metrics
}

type influencerMetrics struct {
	ReleasedEarnings  int64   `json:"releasedEarnings"`
	PendingEarnings   int64   `json:"pendingEarnings"`
	ProposalsSent     int     `json:"proposalsSent"`
	ProposalsAccepted int     `json:"proposalsAccepted"`
	AcceptanceRate    float64 `json:"acceptanceRate"`
	AverageDealSize   float64 `json:"averageDealSize"`
	ActiveMatches     int     `json:"activeMatches"`
	ProfileViews      int64   `json:"profileViews"`
}

// InfluencerAnalytics summarizes earnings and proposal performance.
func InfluencerAnalytics(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := actor(c)

		ctx, cancel := dbCtx()
		defer cancel()

		cursor, err := db.Collection("transactions").Find(ctx, bson.M{"influencerId": claims.UserID})
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		var transactions []models.Transaction
		if err := cursor.All(ctx, &transactions); err != nil {
			httpx.Fail(c, err)
			return
		}

		matches, err := findMatches(ctx, db, bson.M{"influencerId": claims.UserID})
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		matchIDs := make([]primitive.ObjectID, 0, len(matches))
		for _, match := range matches {
			matchIDs = append(matchIDs, match.ID)
		}
		proposals, err := proposalsForMatches(ctx, db, matchIDs)
		if err != nil {
			httpx.Fail(c, err)
			return
		}

		var profileViews int64
		if user, err := findUser(ctx, db, claims.UserID); err == nil {
			profileViews = user.ProfileViews
		}

		metrics := computeInfluencerMetrics(transactions, proposals, len(matches))
		metrics.ProfileViews = profileViews
		c.JSON(http.StatusOK, gin.H{"analytics": metrics})
	}
}

func computeInfluencerMetrics(transactions []models.Transaction, proposals []models.Proposal, matchCount int) influencerMetrics {
	metrics := influencerMetrics{ActiveMatches: matchCount}

	var settledCount int
	var settledTotal int64
	for _, tx := range transactions {
		switch tx.Status {
		case models.TransactionReleased:
			metrics.ReleasedEarnings += tx.Amount
			settledCount++
			settledTotal += tx.Amount
		case models.TransactionHeld:
			metrics.PendingEarnings += tx.Amount
		}
	}
	if settledCount > 0 {
		metrics.AverageDealSize = round2(float64(settledTotal) / float64(settledCount))
	}

	for _, proposal := range proposals {
		switch proposal.Status {
		case models.ProposalSent:
			metrics.ProposalsSent++
		case models.ProposalAccepted:
			metrics.ProposalsAccepted++
		}
	}
	decided := metrics.ProposalsSent + metrics.ProposalsAccepted
	if decided > 0 {
		metrics.AcceptanceRate = round2(float64(metrics.ProposalsAccepted) / float64(decided) * 100)
	}
	return metrics
}

func escrowTotals(ctx context.Context, db *mongo.Database, campaignIDs []primitive.ObjectID) (held, released int64, err error) {
	if len(campaignIDs) == 0 {
		return 0, 0, nil
	}
	cursor, err := db.Collection("transactions").Find(ctx, bson.M{"campaignId": bson.M{"$in": campaignIDs}})
	if err != nil {
		return 0, 0, err
	}
	var transactions []models.Transaction
	if err := cursor.All(ctx, &transactions); err != nil {
		return 0, 0, err
	}
	for _, tx := range transactions {
		switch tx.Status {
		case models.TransactionHeld:
			held += tx.Amount
		case models.TransactionReleased:
			released += tx.Amount
		}
	}
	return held, released, nil
}

// acceptedProposalInfluencers returns one user entry per ACCEPTED proposal on
// the given campaigns, resolved through the proposal's match.
func acceptedProposalInfluencers(ctx context.Context, db *mongo.Database, campaignIDs []primitive.ObjectID) ([]models.User, error) {
	if len(campaignIDs) == 0 {
		return nil, nil
	}
	matches, err := findMatches(ctx, db, bson.M{"campaignId": bson.M{"$in": campaignIDs}})
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, nil
	}
	matchIDs := make([]primitive.ObjectID, 0, len(matches))
	influencerByMatch := make(map[primitive.ObjectID]primitive.ObjectID, len(matches))
	for _, match := range matches {
		matchIDs = append(matchIDs, match.ID)
		influencerByMatch[match.ID] = match.InfluencerID
	}

	cursor, err := db.Collection("proposals").Find(ctx, bson.M{
		"matchId": bson.M{"$in": matchIDs},
		"status":  models.ProposalAccepted,
	})
	if err != nil {
		return nil, err
	}
	var proposals []models.Proposal
	if err := cursor.All(ctx, &proposals); err != nil {
		return nil, err
	}

	ids := make([]primitive.ObjectID, 0, len(proposals))
	for _, proposal := range proposals {
		ids = append(ids, influencerByMatch[proposal.MatchID])
	}
	users, err := usersByID(ctx, db, ids)
	if err != nil {
		return nil, err
	}
	result := make([]models.User, 0, len(proposals))
	for _, proposal := range proposals {
		if user, ok := users[influencerByMatch[proposal.MatchID]]; ok {
			result = append(result, user)
		}
	}
	return result, nil
}

func proposalsForMatches(ctx context.Context, db *mongo.Database, matchIDs []primitive.ObjectID) ([]models.Proposal, error) {
	if len(matchIDs) == 0 {
		return nil, nil
	}
	cursor, err := db.Collection("proposals").Find(ctx, bson.M{"matchId": bson.M{"$in": matchIDs}})
	if err != nil {
		return nil, err
	}
	var proposals []models.Proposal
	if err := cursor.All(ctx, &proposals); err != nil {
		return nil, err
	}
	return proposals, nil
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}

func safeDivide(numerator, denominator float64) float64 {
	if denominator == 0 {
		return 0
	}
	return round2(numerator / denominator)
}
