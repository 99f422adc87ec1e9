package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"collabapi/internal/audit"
	"collabapi/internal/httpx"
	"collabapi/internal/models"
	"collabapi/internal/notify"
	"collabapi/internal/policy"
)

type CreateTransactionRequest struct {
	CampaignID   string `json:"campaignId" binding:"required"`
	InfluencerID string `json:"influencerId" binding:"required"`
	ProposalID   string `json:"proposalId" binding:"omitempty"`
	Amount       int64  `json:"amount" binding:"required,gt=0,max=100000000"`
}

type transactionItem struct {
	models.Transaction
	Campaign   campaignRef `json:"campaign"`
	Influencer userRef     `json:"influencer"`
}

// ListTransactions scopes escrow records to the caller's side of the deal.
func ListTransactions(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := actor(c)

		ctx, cancel := dbCtx()
		defer cancel()

		filter := bson.M{}
		switch claims.Role {
		case models.RoleInfluencer:
			filter["influencerId"] = claims.UserID
		case models.RoleBrand:
			ids, err := ownedCampaignIDs(ctx, db, claims.UserID)
			if err != nil {
				httpx.Fail(c, err)
				return
			}
			filter["campaignId"] = bson.M{"$in": ids}
		}

		cursor, err := db.Collection("transactions").Find(ctx, filter,
			options.Find().SetSort(bson.M{"createdAt": -1}))
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		var transactions []models.Transaction
		if err := cursor.All(ctx, &transactions); err != nil {
			httpx.Fail(c, err)
			return
		}

		items, err := attachTransactionRefs(ctx, db, transactions)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"transactions": items})
	}
}

// CreateTransaction opens an escrow hold against the brand's own campaign.
func CreateTransaction(db *mongo.Database, auditor *audit.Recorder, hub *notify.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateTransactionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.FailValidation(c, err)
			return
		}
		campaignID, err := primitive.ObjectIDFromHex(req.CampaignID)
		if err != nil {
			httpx.Fail(c, httpx.BadRequest("invalid campaignId"))
			return
		}
		influencerID, err := primitive.ObjectIDFromHex(req.InfluencerID)
		if err != nil {
			httpx.Fail(c, httpx.BadRequest("invalid influencerId"))
			return
		}
		claims := actor(c)

		ctx, cancel := dbCtx()
		defer cancel()

		campaign, err := findCampaign(ctx, db, campaignID)
		if err != nil {
			httpx.Fail(c, httpx.NotFound("campaign not found"))
			return
		}
		if claims.Role == models.RoleBrand && campaign.BrandID != claims.UserID {
			httpx.Fail(c, httpx.Forbidden("cannot create transactions for another brand campaign"))
			return
		}
		influencer, err := findUser(ctx, db, influencerID)
		if err != nil || influencer.Role != models.RoleInfluencer {
			httpx.Fail(c, httpx.BadRequest("influencerId must reference an influencer account"))
			return
		}

		transaction := models.Transaction{
			CampaignID:   campaignID,
			InfluencerID: influencerID,
			Amount:       req.Amount,
			Status:       models.TransactionHeld,
			CreatedAt:    time.Now(),
		}
		if req.ProposalID != "" {
			proposalID, err := primitive.ObjectIDFromHex(req.ProposalID)
			if err != nil {
				httpx.Fail(c, httpx.BadRequest("invalid proposalId"))
				return
			}
			if err := checkProposalForEscrow(ctx, db, proposalID, campaignID, influencerID); err != nil {
				httpx.Fail(c, err)
				return
			}
			transaction.ProposalID = &proposalID
		}

		res, err := db.Collection("transactions").InsertOne(ctx, transaction)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		transaction.ID = res.InsertedID.(primitive.ObjectID)

		auditor.Record(c, audit.Entry{
			Action:     "transaction.create",
			EntityType: "transaction",
			EntityID:   transaction.ID.Hex(),
			Metadata:   map[string]any{"amount": req.Amount, "campaignId": campaignID.Hex()},
		})
		hub.Publish(notify.Event{
			Type:    "transaction.held",
			Message: fmt.Sprintf("Payment of %d held in escrow for campaign %s", req.Amount, campaign.Title),
			Data:    map[string]any{"transactionId": transaction.ID.Hex(), "amount": req.Amount},
			UserIDs: []string{campaign.BrandID.Hex(), influencerID.Hex()},
		})

		c.JSON(http.StatusCreated, gin.H{"transaction": transaction})
	}
}

// ReleaseTransaction settles a HELD escrow in the influencer's favor.
func ReleaseTransaction(db *mongo.Database, auditor *audit.Recorder, hub *notify.Hub) gin.HandlerFunc {
	return settleTransaction(db, auditor, hub, models.TransactionReleased)
}

// RefundTransaction returns a HELD escrow to the brand.
func RefundTransaction(db *mongo.Database, auditor *audit.Recorder, hub *notify.Hub) gin.HandlerFunc {
	return settleTransaction(db, auditor, hub, models.TransactionRefunded)
}

func settleTransaction(db *mongo.Database, auditor *audit.Recorder, hub *notify.Hub, next string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := objectIDParam(c, "id")
		if !ok {
			return
		}
		claims := actor(c)

		ctx, cancel := dbCtx()
		defer cancel()

		var transaction models.Transaction
		if err := db.Collection("transactions").FindOne(ctx, bson.M{"_id": id}).Decode(&transaction); err != nil {
			httpx.Fail(c, httpx.NotFound("transaction not found"))
			return
		}
		campaign, err := findCampaign(ctx, db, transaction.CampaignID)
		if err != nil {
			httpx.Fail(c, httpx.NotFound("campaign not found"))
			return
		}

		decision := policy.TransactionTransition(
			policy.Actor{ID: claims.UserID, Role: claims.Role},
			campaign.BrandID, transaction.Status, next,
		)
		if !decision.Allowed {
			if transaction.Status != models.TransactionHeld {
				httpx.Fail(c, httpx.Conflict(decision.Reason))
				return
			}
			httpx.Fail(c, httpx.Forbidden(decision.Reason))
			return
		}

		now := time.Now()
		update := bson.M{"status": next}
		if next == models.TransactionReleased {
			update["releasedAt"] = now
		}
		if _, err := db.Collection("transactions").UpdateOne(ctx,
			bson.M{"_id": id}, bson.M{"$set": update}); err != nil {
			httpx.Fail(c, err)
			return
		}
		transaction.Status = next
		if next == models.TransactionReleased {
			transaction.ReleasedAt = &now
		}

		auditor.Record(c, audit.Entry{
			Action:     "transaction." + actionName(next),
			EntityType: "transaction",
			EntityID:   transaction.ID.Hex(),
			Metadata:   map[string]any{"amount": transaction.Amount},
		})

		hub.Publish(settlementEvent(transaction, campaign, next))

		c.JSON(http.StatusOK, gin.H{"transaction": transaction})
	}
}

// checkProposalForEscrow guards the optional proposal link: it must be an
// ACCEPTED proposal on the same campaign/influencer pair the money is for.
func checkProposalForEscrow(ctx context.Context, db *mongo.Database, proposalID, campaignID, influencerID primitive.ObjectID) error {
	var proposal models.Proposal
	if err := db.Collection("proposals").FindOne(ctx, bson.M{"_id": proposalID}).Decode(&proposal); err != nil {
		return httpx.BadRequest("proposalId does not reference an existing proposal")
	}
	if proposal.Status != models.ProposalAccepted {
		return httpx.Conflict("only ACCEPTED proposals can be funded")
	}
	var match models.Match
	if err := db.Collection("matches").FindOne(ctx, bson.M{"_id": proposal.MatchID}).Decode(&match); err != nil {
		return httpx.BadRequest("proposal is not attached to a valid match")
	}
	if match.CampaignID != campaignID || match.InfluencerID != influencerID {
		return httpx.BadRequest("proposal does not belong to this campaign and influencer")
	}
	return nil
}

// settlementEvent notifies both sides of the deal about a settled escrow.
func settlementEvent(tx models.Transaction, campaign models.Campaign, next string) notify.Event {
	verb := "released"
	if next == models.TransactionRefunded {
		verb = "refunded"
	}
	return notify.Event{
		Type:    "transaction." + actionName(next),
		Message: fmt.Sprintf("Payment of %d %s for campaign %s", tx.Amount, verb, campaign.Title),
		Data:    map[string]any{"transactionId": tx.ID.Hex(), "status": next},
		UserIDs: []string{tx.InfluencerID.Hex(), campaign.BrandID.Hex()},
	}
}

func actionName(status string) string {
	switch status {
	case models.TransactionReleased:
		return "release"
	case models.TransactionRefunded:
		return "refund"
	default:
		return "update"
	}
}

// TransactionReceipt renders a settlement receipt for a finished transaction.
func TransactionReceipt(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := objectIDParam(c, "id")
		if !ok {
			return
		}
		claims := actor(c)

		ctx, cancel := dbCtx()
		defer cancel()

		var transaction models.Transaction
		if err := db.Collection("transactions").FindOne(ctx, bson.M{"_id": id}).Decode(&transaction); err != nil {
			httpx.Fail(c, httpx.NotFound("transaction not found"))
			return
		}
		campaign, err := findCampaign(ctx, db, transaction.CampaignID)
		if err != nil {
			httpx.Fail(c, httpx.NotFound("campaign not found"))
			return
		}
		if claims.Role != models.RoleAdmin &&
			campaign.BrandID != claims.UserID && transaction.InfluencerID != claims.UserID {
			httpx.Fail(c, httpx.Forbidden("forbidden"))
			return
		}
		influencer, err := findUser(ctx, db, transaction.InfluencerID)
		if err != nil {
			httpx.Fail(c, httpx.NotFound("influencer not found"))
			return
		}

		c.JSON(http.StatusOK, gin.H{"receipt": buildReceipt(transaction, campaign, influencer)})
	}
}

type receipt struct {
	ReceiptNumber string     `json:"receiptNumber"`
	TransactionID string     `json:"transactionId"`
	Campaign      string     `json:"campaign"`
	Influencer    string     `json:"influencer"`
	Amount        int64      `json:"amount"`
	Status        string     `json:"status"`
	IssuedAt      time.Time  `json:"issuedAt"`
	SettledAt     *time.Time `json:"settledAt,omitempty"`
}

func buildReceipt(tx models.Transaction, campaign models.Campaign, influencer models.User) receipt {
	return receipt{
		ReceiptNumber: fmt.Sprintf("TX-%s-%d", tx.ID.Hex(), tx.CreatedAt.UnixMilli()),
		TransactionID: tx.ID.Hex(),
		Campaign:      campaign.Title,
		Influencer:    influencer.Name,
		Amount:        tx.Amount,
		Status:        tx.Status,
		IssuedAt:      time.Now(),
		SettledAt:     tx.ReleasedAt,
	}
}

func attachTransactionRefs(ctx context.Context, db *mongo.Database, transactions []models.Transaction) ([]transactionItem, error) {
	campaignIDs := make([]primitive.ObjectID, 0, len(transactions))
	userIDs := make([]primitive.ObjectID, 0, len(transactions))
	for _, tx := range transactions {
		campaignIDs = append(campaignIDs, tx.CampaignID)
		userIDs = append(userIDs, tx.InfluencerID)
	}
	campaigns, err := campaignsByID(ctx, db, campaignIDs)
	if err != nil {
		return nil, err
	}
	users, err := usersByID(ctx, db, userIDs)
	if err != nil {
		return nil, err
	}

	items := make([]transactionItem, 0, len(transactions))
	for _, tx := range transactions {
		campaign := campaigns[tx.CampaignID]
		items = append(items, transactionItem{
			Transaction: tx,
			Campaign: campaignRef{
				ID:      campaign.ID.Hex(),
				Title:   campaign.Title,
				BrandID: campaign.BrandID.Hex(),
				Status:  campaign.Status,
			},
			Influencer: toUserRef(users[tx.InfluencerID]),
		})
	}
	return items, nil
}
