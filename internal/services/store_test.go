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

func newTestStore(t *testing.T) services.Store {
	t.Helper()
	return services.NewMemoryStore()
}

func fundAccount(t *testing.T, store services.Store, uid int64, amount float64) *models.Account {
	t.Helper()
	ctx := context.Background()

	if _, err := store.GetOrCreateAccount(ctx, uid, 0, 0); err != nil {
		t.Fatalf("Failed to create account %d: %v", uid, err)
	}
	acct, err := store.Credit(ctx, uid, amount, models.CounterDeltas{}, nil)
	if err != nil {
		t.Fatalf("Failed to fund account %d: %v", uid, err)
	}
	return acct
}

func TestDebitNeverGoesNegative(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	uid := int64(42)

	fundAccount(t, store, uid, 10)

	var wg sync.WaitGroup
	successes := make(chan struct{}, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Debit(ctx, uid, 1); err == nil {
				successes <- struct{}{}
			} else if !errors.Is(err, models.ErrInsufficientFunds) {
				t.Errorf("Unexpected debit error: %v", err)
			}
		}()
	}
	wg.Wait()
	close(successes)

	granted := 0
	for range successes {
		granted++
	}
	if granted != 10 {
		t.Errorf("Exactly 10 of 100 concurrent unit debits should succeed, got %d", granted)
	}

	acct, err := store.GetAccount(ctx, uid)
	if err != nil {
		t.Fatalf("Failed to read account: %v", err)
	}
	if acct.Balance != 0 {
		t.Errorf("Balance should be exactly 0 after the race, got %.2f", acct.Balance)
	}
}

func TestReferralChainIsImmutable(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.GetOrCreateAccount(ctx, 100, 0, 0); err != nil {
		t.Fatalf("Failed to create referrer: %v", err)
	}
	acct, err := store.GetOrCreateAccount(ctx, 200, 100, 0)
	if err != nil {
		t.Fatalf("Failed to create referee: %v", err)
	}
	if acct.ReferredBy != 100 {
		t.Fatalf("Referee should be bound to 100, got %d", acct.ReferredBy)
	}

	// A later auth with a different referrer must not rebind.
	acct, err = store.GetOrCreateAccount(ctx, 200, 999, 0)
	if err != nil {
		t.Fatalf("Failed to re-auth referee: %v", err)
	}
	if acct.ReferredBy != 100 {
		t.Errorf("Referral chain should be frozen at 100, got %d", acct.ReferredBy)
	}
}

func TestSelfReferralIsDropped(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	acct, err := store.GetOrCreateAccount(ctx, 300, 300, 300)
	if err != nil {
		t.Fatalf("Failed to create account: %v", err)
	}
	if acct.ReferredBy != 0 || acct.ReferredByLevel2 != 0 {
		t.Errorf("Self-referral should be dropped, got %d/%d", acct.ReferredBy, acct.ReferredByLevel2)
	}
}

func TestDailyBonusClaimOncePerInterval(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	uid := int64(77)
	now := time.Now().Unix()

	fundAccount(t, store, uid, 0)

	acct, err := store.ClaimDailyBonus(ctx, uid, 0.05, now, 86400)
	if err != nil {
		t.Fatalf("First claim should succeed: %v", err)
	}
	if acct.Balance != 0.05 {
		t.Errorf("Balance should be 0.05 after claim, got %.2f", acct.Balance)
	}

	if _, err := store.ClaimDailyBonus(ctx, uid, 0.05, now+3600, 86400); !errors.Is(err, models.ErrBonusNotReady) {
		t.Errorf("Claim inside the interval should be ErrBonusNotReady, got %v", err)
	}

	acct, err = store.ClaimDailyBonus(ctx, uid, 0.05, now+86400, 86400)
	if err != nil {
		t.Fatalf("Claim after the interval should succeed: %v", err)
	}
	if acct.Balance != 0.10 {
		t.Errorf("Balance should be 0.10 after two claims, got %.2f", acct.Balance)
	}
}

func TestConcurrentRoundDebits(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	uid := int64(55)

	fundAccount(t, store, uid, 5)

	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			round := &models.WagerRound{
				ID:        fmt.Sprintf("round_test_%d", n),
				UID:       uid,
				Game:      models.GameTypeCoinflip,
				Stake:     1,
				Choice:    models.CoinFaceHeads,
				State:     models.RoundStateOpen,
				CreatedAt: time.Now().Unix(),
			}
			if _, err := store.CreateRoundDebit(ctx, round); err == nil {
				mu.Lock()
				created++
				mu.Unlock()
			} else if !errors.Is(err, models.ErrInsufficientFunds) {
				t.Errorf("Unexpected error creating round: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if created != 5 {
		t.Errorf("A balance of 5 should admit exactly 5 unit-stake rounds, got %d", created)
	}

	// Rounds that failed the debit must not exist.
	for i := 0; i < 20; i++ {
		_, err := store.GetRound(ctx, fmt.Sprintf("round_test_%d", i))
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			t.Errorf("Unexpected error fetching round %d: %v", i, err)
		}
	}
}

func TestTransactionHistoryOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	uid := int64(88)

	for i := 0; i < 5; i++ {
		tx := &models.Transaction{
			ID:        fmt.Sprintf("tx_%d", i),
			UID:       uid,
			Type:      models.TransactionTypeBet,
			Amount:    float64(i),
			CreatedAt: int64(1000 + i),
		}
		if err := store.SaveTransaction(ctx, tx); err != nil {
			t.Fatalf("Failed to save transaction: %v", err)
		}
	}

	txs, err := store.GetTransactions(ctx, uid, 3)
	if err != nil {
		t.Fatalf("Failed to load transactions: %v", err)
	}
	if len(txs) != 3 {
		t.Fatalf("Limit of 3 should return 3 entries, got %d", len(txs))
	}
	if txs[0].ID != "tx_4" {
		t.Errorf("Newest transaction should come first, got %s", txs[0].ID)
	}
}

func TestRateLimitWindow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := store.CheckRateLimit(ctx, 1, "spin", 3, time.Minute)
		if err != nil {
			t.Fatalf("Rate limit check failed: %v", err)
		}
		if !allowed {
			t.Fatalf("Call %d of 3 should be allowed", i+1)
		}
	}

	allowed, err := store.CheckRateLimit(ctx, 1, "spin", 3, time.Minute)
	if err != nil {
		t.Fatalf("Rate limit check failed: %v", err)
	}
	if allowed {
		t.Error("Fourth call in the window should be rejected")
	}

	// Other users and actions have their own counters.
	if allowed, _ := store.CheckRateLimit(ctx, 2, "spin", 3, time.Minute); !allowed {
		t.Error("A different user should not share the counter")
	}
}
