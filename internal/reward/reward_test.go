package reward

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/veredas/trailhead/internal/models"
	"github.com/veredas/trailhead/internal/notify"
	"github.com/veredas/trailhead/internal/wallet"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.TrailTemplate{},
		&models.TrailInstance{},
		&models.TrailBadge{},
		&models.BadgeAward{},
	); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return db
}

// mockWallet records credit requests and can be configured to fail.
type mockWallet struct {
	mu       sync.Mutex
	requests []wallet.CreditRequest
	err      error
}

func (m *mockWallet) Credit(ctx context.Context, req wallet.CreditRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.requests = append(m.requests, req)
	return wallet.ResultOK, nil
}

func (m *mockWallet) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func testInstance() *models.TrailInstance {
	return &models.TrailInstance{
		ID:        "trl-aaaaa",
		UserID:    "user-1",
		Name:      "Morning Routine",
		Status:    models.StatusCompleted,
		StartedAt: time.Now().Add(-24 * time.Hour),
	}
}

func testBadge() *models.TrailBadge {
	return &models.TrailBadge{
		ID:          "bdg-early",
		Name:        "Early Riser",
		CoinsReward: 50,
		Active:      true,
	}
}

func TestIssue(t *testing.T) {
	db := openTestDB(t)
	inst, badge := testInstance(), testBadge()
	db.Create(badge)

	w := &mockWallet{}
	nm := notify.NewMock()
	d := &Dispatcher{Wallet: w, Notifier: nm}

	out, err := d.Issue(context.Background(), db, inst, badge)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.AlreadyAwarded {
		t.Error("first issuance should not report AlreadyAwarded")
	}
	if out.Award == nil || out.Award.InstanceID != inst.ID || out.Award.BadgeID != badge.ID {
		t.Fatalf("unexpected award: %+v", out.Award)
	}
	if out.CreditResult != wallet.ResultOK {
		t.Errorf("credit result = %q, want ok", out.CreditResult)
	}
	if w.count() != 1 {
		t.Fatalf("credit count = %d, want 1", w.count())
	}
	req := w.requests[0]
	if req.UserID != "user-1" || req.Amount != 50 {
		t.Errorf("unexpected credit request: %+v", req)
	}
	if req.IdempotencyKey == "" {
		t.Error("credit request should carry an idempotency key")
	}
	if nm.SentCount() != 1 {
		t.Errorf("notify count = %d, want 1", nm.SentCount())
	}
	evt, _ := nm.LastSent()
	if evt.Type != notify.EventBadgeAwarded {
		t.Errorf("event type = %v, want badge_awarded", evt.Type)
	}
}

func TestIssue_AtMostOnce(t *testing.T) {
	db := openTestDB(t)
	inst, badge := testInstance(), testBadge()
	db.Create(badge)

	w := &mockWallet{}
	nm := notify.NewMock()
	d := &Dispatcher{Wallet: w, Notifier: nm}

	first, err := d.Issue(context.Background(), db, inst, badge)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second, err := d.Issue(context.Background(), db, inst, badge)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !second.AlreadyAwarded {
		t.Error("repeat issuance should report AlreadyAwarded")
	}
	if second.Award.ID != first.Award.ID {
		t.Errorf("repeat issuance should return the original award, got %d want %d",
			second.Award.ID, first.Award.ID)
	}

	// No second credit, no second announcement.
	if w.count() != 1 {
		t.Errorf("credit count = %d, want 1", w.count())
	}
	if nm.SentCount() != 1 {
		t.Errorf("notify count = %d, want 1", nm.SentCount())
	}

	var awards int64
	db.Model(&models.BadgeAward{}).Count(&awards)
	if awards != 1 {
		t.Errorf("award rows = %d, want 1", awards)
	}
}

func TestIssue_WalletFailureDoesNotFail(t *testing.T) {
	db := openTestDB(t)
	inst, badge := testInstance(), testBadge()
	db.Create(badge)

	w := &mockWallet{err: errors.New("wallet down")}
	d := &Dispatcher{Wallet: w}

	out, err := d.Issue(context.Background(), db, inst, badge)
	if err != nil {
		t.Fatalf("wallet failure must not fail issuance: %v", err)
	}
	if out.Award == nil {
		t.Fatal("award should exist despite wallet failure")
	}
	if out.CreditResult != "" {
		t.Errorf("credit result = %q, want empty on failure", out.CreditResult)
	}

	var awards int64
	db.Model(&models.BadgeAward{}).Count(&awards)
	if awards != 1 {
		t.Errorf("award rows = %d, want 1", awards)
	}
}

func TestIssue_NoCoinsSkipsWallet(t *testing.T) {
	db := openTestDB(t)
	inst := testInstance()
	badge := &models.TrailBadge{ID: "bdg-free", Name: "Participant", Active: true}
	db.Create(badge)

	w := &mockWallet{}
	d := &Dispatcher{Wallet: w}

	if _, err := d.Issue(context.Background(), db, inst, badge); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.count() != 0 {
		t.Errorf("credit count = %d, want 0 for a zero-coin badge", w.count())
	}
}

func TestIssue_NilCollaborators(t *testing.T) {
	db := openTestDB(t)
	inst, badge := testInstance(), testBadge()
	db.Create(badge)

	d := &Dispatcher{}
	out, err := d.Issue(context.Background(), db, inst, badge)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Award == nil {
		t.Fatal("award should exist without wallet or notifier")
	}
}

func TestBadgeFor_InstanceOverride(t *testing.T) {
	db := openTestDB(t)
	badge := testBadge()
	db.Create(badge)

	inst := testInstance()
	inst.BadgeID = &badge.ID

	got, err := BadgeFor(db, inst)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.ID != badge.ID {
		t.Fatalf("badge = %+v, want %s", got, badge.ID)
	}
}

func TestBadgeFor_TemplateDefault(t *testing.T) {
	db := openTestDB(t)
	badge := testBadge()
	db.Create(badge)
	tpl := &models.TrailTemplate{ID: "tpl-aaaaa", Name: "Morning Routine", BadgeID: &badge.ID, Active: true}
	db.Create(tpl)

	inst := testInstance()
	inst.TemplateID = &tpl.ID

	got, err := BadgeFor(db, inst)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.ID != badge.ID {
		t.Fatalf("badge = %+v, want %s", got, badge.ID)
	}
}

func TestBadgeFor_NoBadge(t *testing.T) {
	db := openTestDB(t)

	got, err := BadgeFor(db, testInstance())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil badge for ad hoc instance, got %+v", got)
	}
}

func TestBadgeFor_InactiveBadge(t *testing.T) {
	db := openTestDB(t)
	badge := testBadge()
	db.Create(badge)
	db.Model(badge).Update("active", false)

	inst := testInstance()
	inst.BadgeID = &badge.ID

	got, err := BadgeFor(db, inst)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("inactive badge should not be issued, got %+v", got)
	}
}
