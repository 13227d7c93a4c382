package services_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"spinbet-backend/internal/models"
	"spinbet-backend/internal/services"
)

// fakeGateway scripts the provider's answers and counts how often we ask.
type fakeGateway struct {
	mu          sync.Mutex
	status      string
	statusCalls int
	failPayouts bool
	nextID      int
}

func (g *fakeGateway) CreateInvoice(ctx context.Context, amount float64, description string) (*services.Invoice, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextID++
	return &services.Invoice{
		ID:     fmt.Sprintf("inv_%d", g.nextID),
		PayURL: "https://pay.example/" + fmt.Sprint(g.nextID),
		Status: "active",
	}, nil
}

func (g *fakeGateway) GetInvoiceStatus(ctx context.Context, invoiceID string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.statusCalls++
	return g.status, nil
}

func (g *fakeGateway) CreatePayoutCheck(ctx context.Context, uid int64, amount float64) (*services.PayoutCheck, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failPayouts {
		return nil, fmt.Errorf("%w: payout refused", models.ErrGateway)
	}
	g.nextID++
	return &services.PayoutCheck{
		ID:       fmt.Sprintf("chk_%d", g.nextID),
		ClaimURL: "https://t.me/example/" + fmt.Sprint(g.nextID),
	}, nil
}

func (g *fakeGateway) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.statusCalls
}

func newPaymentService(t *testing.T) (services.Store, *fakeGateway, *services.PaymentService) {
	t.Helper()
	store := newTestStore(t)
	ledger := services.NewLedgerService(store)
	gateway := &fakeGateway{status: "active"}
	return store, gateway, services.NewPaymentService(ledger, gateway)
}

func TestDepositLifecycle(t *testing.T) {
	store, gateway, payments := newPaymentService(t)
	ctx := context.Background()
	uid := int64(500)
	fundAccount(t, store, uid, 0)

	rec, err := payments.Deposit(ctx, uid, 10)
	if err != nil {
		t.Fatalf("Failed to create deposit: %v", err)
	}
	if rec.Status != models.PaymentStatusPending {
		t.Errorf("Fresh deposit should be pending, got %s", rec.Status)
	}
	if rec.PayURL == "" {
		t.Error("Deposit should carry the gateway pay URL")
	}

	// Still unpaid: poll reports pending and credits nothing.
	rec, _, err = payments.CheckDeposit(ctx, uid, rec.ID)
	if err != nil {
		t.Fatalf("Failed to check deposit: %v", err)
	}
	if rec.Status != models.PaymentStatusPending {
		t.Errorf("Unpaid invoice should stay pending, got %s", rec.Status)
	}

	gateway.status = "paid"
	rec, acct, err := payments.CheckDeposit(ctx, uid, rec.ID)
	if err != nil {
		t.Fatalf("Failed to check paid deposit: %v", err)
	}
	if rec.Status != models.PaymentStatusPaid {
		t.Errorf("Deposit should be paid, got %s", rec.Status)
	}
	if acct == nil || acct.Balance != 10 {
		t.Fatalf("Deposit should credit the full amount, got %+v", acct)
	}
	if acct.TotalDeposited != 10 {
		t.Errorf("TotalDeposited should be 10, got %.2f", acct.TotalDeposited)
	}
}

func TestDepositCreditsExactlyOnce(t *testing.T) {
	store, gateway, payments := newPaymentService(t)
	ctx := context.Background()
	uid := int64(501)
	fundAccount(t, store, uid, 0)

	rec, err := payments.Deposit(ctx, uid, 25)
	if err != nil {
		t.Fatalf("Failed to create deposit: %v", err)
	}
	gateway.status = "paid"

	// The poll path and the push path race; the credit must land once.
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, _, err := payments.CheckDeposit(ctx, uid, rec.ID); err != nil {
				t.Errorf("CheckDeposit failed: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			if _, _, err := payments.HandlePaidNotification(ctx, rec.ID); err != nil {
				t.Errorf("HandlePaidNotification failed: %v", err)
			}
		}()
	}
	wg.Wait()

	acct, err := store.GetAccount(ctx, uid)
	if err != nil {
		t.Fatalf("Failed to read account: %v", err)
	}
	if acct.Balance != 25 {
		t.Errorf("20 racing confirmations should credit exactly once, balance = %.2f", acct.Balance)
	}
	if acct.TotalDeposited != 25 {
		t.Errorf("TotalDeposited should be 25, got %.2f", acct.TotalDeposited)
	}
}

func TestCheckDepositAnswersPaidFromStore(t *testing.T) {
	store, gateway, payments := newPaymentService(t)
	ctx := context.Background()
	uid := int64(502)
	fundAccount(t, store, uid, 0)

	rec, err := payments.Deposit(ctx, uid, 5)
	if err != nil {
		t.Fatalf("Failed to create deposit: %v", err)
	}
	gateway.status = "paid"
	if _, _, err := payments.CheckDeposit(ctx, uid, rec.ID); err != nil {
		t.Fatalf("Failed to settle deposit: %v", err)
	}

	before := gateway.calls()
	got, _, err := payments.CheckDeposit(ctx, uid, rec.ID)
	if err != nil {
		t.Fatalf("Failed to re-check deposit: %v", err)
	}
	if got.Status != models.PaymentStatusPaid {
		t.Errorf("Re-check should report paid, got %s", got.Status)
	}
	if gateway.calls() != before {
		t.Error("A terminal record should be answered without a gateway call")
	}
}

func TestExpiredDepositNeverCredits(t *testing.T) {
	store, gateway, payments := newPaymentService(t)
	ctx := context.Background()
	uid := int64(503)
	fundAccount(t, store, uid, 0)

	rec, err := payments.Deposit(ctx, uid, 10)
	if err != nil {
		t.Fatalf("Failed to create deposit: %v", err)
	}

	gateway.status = "expired"
	got, _, err := payments.CheckDeposit(ctx, uid, rec.ID)
	if err != nil {
		t.Fatalf("Failed to check expired deposit: %v", err)
	}
	if got.Status != models.PaymentStatusExpired {
		t.Fatalf("Deposit should be expired, got %s", got.Status)
	}

	// Expiry is terminal: a late "paid" must not resurrect the record.
	gateway.status = "paid"
	if _, _, err := payments.HandlePaidNotification(ctx, rec.ID); err != nil {
		t.Fatalf("Late notification should be answered, not fail: %v", err)
	}

	acct, err := store.GetAccount(ctx, uid)
	if err != nil {
		t.Fatalf("Failed to read account: %v", err)
	}
	if acct.Balance != 0 {
		t.Errorf("Expired invoice must never credit, balance = %.2f", acct.Balance)
	}
}

func TestDepositReferralCascade(t *testing.T) {
	store, gateway, payments := newPaymentService(t)
	ctx := context.Background()

	// grandparent(1) <- parent(2) <- player(3)
	fundAccount(t, store, 1, 0)
	if _, err := store.GetOrCreateAccount(ctx, 2, 1, 0); err != nil {
		t.Fatalf("Failed to create parent: %v", err)
	}
	if _, err := store.GetOrCreateAccount(ctx, 3, 2, 1); err != nil {
		t.Fatalf("Failed to create player: %v", err)
	}

	rec, err := payments.Deposit(ctx, 3, 10)
	if err != nil {
		t.Fatalf("Failed to create deposit: %v", err)
	}
	gateway.status = "paid"
	if _, _, err := payments.CheckDeposit(ctx, 3, rec.ID); err != nil {
		t.Fatalf("Failed to settle deposit: %v", err)
	}

	parent, _ := store.GetAccount(ctx, 2)
	grandparent, _ := store.GetAccount(ctx, 1)
	if parent.Balance != 10*models.DepositBonusRates.Level1 {
		t.Errorf("Level-1 referrer should earn %.2f, got %.2f", 10*models.DepositBonusRates.Level1, parent.Balance)
	}
	if grandparent.Balance != 10*models.DepositBonusRates.Level2 {
		t.Errorf("Level-2 referrer should earn %.2f, got %.2f", 10*models.DepositBonusRates.Level2, grandparent.Balance)
	}
	if parent.ReferralEarnings != parent.Balance {
		t.Errorf("Referral earnings should track the cascade, got %.2f", parent.ReferralEarnings)
	}
}

func TestWithdrawLifecycle(t *testing.T) {
	store, _, payments := newPaymentService(t)
	ctx := context.Background()
	uid := int64(600)
	fundAccount(t, store, uid, 50)

	rec, acct, err := payments.Withdraw(ctx, uid, 20)
	if err != nil {
		t.Fatalf("Failed to withdraw: %v", err)
	}
	if rec.Status != models.PaymentStatusPaid {
		t.Errorf("Withdrawal record should be paid immediately, got %s", rec.Status)
	}
	if rec.CheckURL == "" {
		t.Error("Withdrawal should carry the claim URL")
	}
	if acct.Balance != 30 {
		t.Errorf("Balance should drop to 30, got %.2f", acct.Balance)
	}
	if acct.TotalWithdrawn != 20 {
		t.Errorf("TotalWithdrawn should be 20, got %.2f", acct.TotalWithdrawn)
	}
}

func TestWithdrawGatewayFailureLeavesBalance(t *testing.T) {
	store, gateway, payments := newPaymentService(t)
	ctx := context.Background()
	uid := int64(601)
	fundAccount(t, store, uid, 50)

	gateway.failPayouts = true
	_, _, err := payments.Withdraw(ctx, uid, 20)
	if !errors.Is(err, models.ErrGateway) {
		t.Fatalf("Expected ErrGateway, got %v", err)
	}

	acct, err := store.GetAccount(ctx, uid)
	if err != nil {
		t.Fatalf("Failed to read account: %v", err)
	}
	if acct.Balance != 50 {
		t.Errorf("Failed payout must not debit, balance = %.2f", acct.Balance)
	}
}

func TestWithdrawInsufficientFunds(t *testing.T) {
	store, _, payments := newPaymentService(t)
	ctx := context.Background()
	uid := int64(602)
	fundAccount(t, store, uid, 5)

	if _, _, err := payments.Withdraw(ctx, uid, 20); !errors.Is(err, models.ErrInsufficientFunds) {
		t.Errorf("Expected ErrInsufficientFunds, got %v", err)
	}
}

func TestExpirySweeperRescuesLatePayment(t *testing.T) {
	store, gateway, payments := newPaymentService(t)
	ctx := context.Background()
	fundAccount(t, store, 700, 0)
	fundAccount(t, store, 701, 0)

	past := time.Now().Add(-time.Minute).Unix()
	stale := &models.PaymentRecord{
		ID: "inv_stale", UID: 700, Amount: 5,
		Kind: models.PaymentKindDeposit, Status: models.PaymentStatusPending,
		CreatedAt: past - 3600, ExpiresAt: past,
	}
	late := &models.PaymentRecord{
		ID: "inv_late", UID: 701, Amount: 5,
		Kind: models.PaymentKindDeposit, Status: models.PaymentStatusPending,
		CreatedAt: past - 3600, ExpiresAt: past,
	}
	if err := store.CreatePayment(ctx, stale); err != nil {
		t.Fatalf("Failed to seed stale payment: %v", err)
	}
	if err := store.CreatePayment(ctx, late); err != nil {
		t.Fatalf("Failed to seed late payment: %v", err)
	}

	// First sweep: the gateway still says unpaid, both expire.
	gateway.status = "active"
	payments.ExpireStalePending(ctx)

	got, err := store.GetPayment(ctx, "inv_stale")
	if err != nil {
		t.Fatalf("Failed to read swept payment: %v", err)
	}
	if got.Status != models.PaymentStatusExpired {
		t.Errorf("Stale unpaid invoice should expire, got %s", got.Status)
	}

	// Re-seed the second case: paid just before the sweep runs.
	if err := store.CreatePayment(ctx, &models.PaymentRecord{
		ID: "inv_rescued", UID: 701, Amount: 5,
		Kind: models.PaymentKindDeposit, Status: models.PaymentStatusPending,
		CreatedAt: past - 3600, ExpiresAt: past,
	}); err != nil {
		t.Fatalf("Failed to seed rescued payment: %v", err)
	}
	gateway.status = "paid"
	payments.ExpireStalePending(ctx)

	got, err = store.GetPayment(ctx, "inv_rescued")
	if err != nil {
		t.Fatalf("Failed to read rescued payment: %v", err)
	}
	if got.Status != models.PaymentStatusPaid {
		t.Errorf("Invoice paid before the sweep should credit, got %s", got.Status)
	}
	acct, _ := store.GetAccount(ctx, 701)
	if acct.Balance != 5 {
		t.Errorf("Rescued invoice should credit 5, got %.2f", acct.Balance)
	}
}
