package handlers

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"collabapi/internal/models"
)

func TestBuildReceipt(t *testing.T) {
	createdAt := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	releasedAt := createdAt.Add(48 * time.Hour)
	tx := models.Transaction{
		ID:         primitive.NewObjectID(),
		Amount:     7500,
		Status:     models.TransactionReleased,
		CreatedAt:  createdAt,
		ReleasedAt: &releasedAt,
	}
	campaign := models.Campaign{Title: "Spring Launch"}
	influencer := models.User{Name: "Jo Creator"}

	receipt := buildReceipt(tx, campaign, influencer)

	wantNumber := fmt.Sprintf("TX-%s-%d", tx.ID.Hex(), createdAt.UnixMilli())
	if receipt.ReceiptNumber != wantNumber {
		t.Fatalf("receipt number = %q, want %q", receipt.ReceiptNumber, wantNumber)
	}
	if receipt.TransactionID != tx.ID.Hex() {
		t.Fatalf("transaction id = %q", receipt.TransactionID)
	}
	if receipt.Campaign != "Spring Launch" || receipt.Influencer != "Jo Creator" {
		t.Fatalf("names wrong: %+v", receipt)
	}
	if receipt.Amount != 7500 || receipt.Status != models.TransactionReleased {
		t.Fatalf("amount/status wrong: %+v", receipt)
	}
	if receipt.SettledAt == nil || !receipt.SettledAt.Equal(releasedAt) {
		t.Fatalf("settledAt = %v, want %v", receipt.SettledAt, releasedAt)
	}
}

func TestBuildReceiptRefundHasNoSettlement(t *testing.T) {
	tx := models.Transaction{
		ID:        primitive.NewObjectID(),
		Amount:    100,
		Status:    models.TransactionRefunded,
		CreatedAt: time.Now(),
	}
	receipt := buildReceipt(tx, models.Campaign{Title: "X"}, models.User{Name: "Y"})
	if receipt.SettledAt != nil {
		t.Fatalf("refunds carry no settlement timestamp, got %v", receipt.SettledAt)
	}
}

func TestBuildReceiptHeldTransaction(t *testing.T) {
	tx := models.Transaction{
		ID:        primitive.NewObjectID(),
		Amount:    500,
		Status:    models.TransactionHeld,
		CreatedAt: time.Now(),
	}
	receipt := buildReceipt(tx, models.Campaign{Title: "X"}, models.User{Name: "Y"})
	if receipt.Status != models.TransactionHeld {
		t.Fatalf("held transactions still get receipts, got status %q", receipt.Status)
	}
	if receipt.SettledAt != nil {
		t.Fatalf("held receipt should carry no settlement timestamp, got %v", receipt.SettledAt)
	}
}

func TestSettlementEventTargetsBothParties(t *testing.T) {
	tx := models.Transaction{
		ID:           primitive.NewObjectID(),
		InfluencerID: primitive.NewObjectID(),
		Amount:       1200,
	}
	campaign := models.Campaign{
		ID:      primitive.NewObjectID(),
		BrandID: primitive.NewObjectID(),
		Title:   "Winter Push",
	}

	event := settlementEvent(tx, campaign, models.TransactionReleased)
	if event.Type != "transaction.release" {
		t.Fatalf("event type = %q", event.Type)
	}
	want := []string{tx.InfluencerID.Hex(), campaign.BrandID.Hex()}
	if len(event.UserIDs) != 2 || event.UserIDs[0] != want[0] || event.UserIDs[1] != want[1] {
		t.Fatalf("targets = %v, want %v", event.UserIDs, want)
	}
	if !strings.Contains(event.Message, "released") || !strings.Contains(event.Message, "Winter Push") {
		t.Fatalf("message = %q", event.Message)
	}

	refund := settlementEvent(tx, campaign, models.TransactionRefunded)
	if refund.Type != "transaction.refund" || !strings.Contains(refund.Message, "refunded") {
		t.Fatalf("refund event wrong: %q %q", refund.Type, refund.Message)
	}
	if len(refund.UserIDs) != 2 {
		t.Fatalf("refund targets = %v", refund.UserIDs)
	}
}

func TestActionName(t *testing.T) {
	if actionName(models.TransactionReleased) != "release" {
		t.Fatal("release mapping wrong")
	}
	if actionName(models.TransactionRefunded) != "refund" {
		t.Fatal("refund mapping wrong")
	}
	if actionName("ANYTHING") != "update" {
		t.Fatal("fallback mapping wrong")
	}
}
