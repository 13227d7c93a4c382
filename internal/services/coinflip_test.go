package services_test

import (
	"context"
	"errors"
	"testing"

	"spinbet-backend/internal/models"
	"spinbet-backend/internal/services"
)

func TestCoinflipLifecycle(t *testing.T) {
	store := newTestStore(t)
	ledger := services.NewLedgerService(store)
	engine := services.NewCoinflipEngine(ledger, nil)

	ctx := context.Background()
	uid := int64(123456)
	fundAccount(t, store, uid, 10)

	round, acct, err := engine.Start(ctx, uid, &models.FlipStartRequest{
		Stake:  2,
		Choice: models.CoinFaceHeads,
	})
	if err != nil {
		t.Fatalf("Failed to start coinflip: %v", err)
	}
	if round.ID == "" {
		t.Error("Round should have an ID")
	}
	if acct.Balance != 8 {
		t.Errorf("Stake should be debited up front, balance = %.2f", acct.Balance)
	}
	if round.ServerHash == "" {
		t.Error("Commitment hash should be visible at start")
	}
	if pub := round.Public(); pub.ServerSeed != "" {
		t.Error("Server seed must stay hidden before settlement")
	}

	if _, err := engine.Flip(ctx, uid, &models.FlipRequest{RoundID: round.ID, ClientSeed: "my-luck"}); err != nil {
		t.Fatalf("Failed to flip: %v", err)
	}

	settled, acct, err := engine.Settle(ctx, uid, round.ID)
	if err != nil {
		t.Fatalf("Failed to settle: %v", err)
	}
	if settled.State != models.RoundStateSettled {
		t.Errorf("Round should be settled, got %s", settled.State)
	}
	if settled.Outcome != models.CoinFaceHeads && settled.Outcome != models.CoinFaceTails {
		t.Errorf("Outcome should be a coin face, got %q", settled.Outcome)
	}
	if !services.VerifyCommitment(settled.ServerSeed, settled.ServerHash) {
		t.Error("Revealed seed should match the commitment")
	}
	if services.DeriveCoinFace(settled.ServerSeed, settled.ClientSeed) != settled.Outcome {
		t.Error("Outcome should be reproducible from the revealed seeds")
	}

	wantPayout := 0.0
	wantBalance := 8.0
	if settled.Outcome == settled.Choice {
		wantPayout = 4
		wantBalance = 12
	}
	if settled.Payout != wantPayout {
		t.Errorf("Payout should be %.2f, got %.2f", wantPayout, settled.Payout)
	}
	if acct.Balance != wantBalance {
		t.Errorf("Balance should be %.2f, got %.2f", wantBalance, acct.Balance)
	}
	if acct.TotalGames != 1 || acct.TotalWagered != 2 {
		t.Errorf("Counters should record one game of stake 2, got games=%d wagered=%.2f",
			acct.TotalGames, acct.TotalWagered)
	}
}

func TestCoinflipSettleIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ledger := services.NewLedgerService(store)
	engine := services.NewCoinflipEngine(ledger, nil)

	ctx := context.Background()
	uid := int64(222)
	fundAccount(t, store, uid, 10)

	round, _, err := engine.Start(ctx, uid, &models.FlipStartRequest{Stake: 1, Choice: models.CoinFaceTails})
	if err != nil {
		t.Fatalf("Failed to start: %v", err)
	}
	if _, err := engine.Flip(ctx, uid, &models.FlipRequest{RoundID: round.ID, ClientSeed: "x"}); err != nil {
		t.Fatalf("Failed to flip: %v", err)
	}

	first, firstAcct, err := engine.Settle(ctx, uid, round.ID)
	if err != nil {
		t.Fatalf("First settle failed: %v", err)
	}
	second, secondAcct, err := engine.Settle(ctx, uid, round.ID)
	if err != nil {
		t.Fatalf("Second settle failed: %v", err)
	}

	if second.Payout != first.Payout || second.Outcome != first.Outcome {
		t.Error("Second settle should return the stored result")
	}
	if secondAcct.Balance != firstAcct.Balance {
		t.Errorf("Second settle must not move money: %.2f then %.2f", firstAcct.Balance, secondAcct.Balance)
	}
	if secondAcct.TotalGames != 1 {
		t.Errorf("Counters should not double, got %d games", secondAcct.TotalGames)
	}
}

func TestCoinflipInsufficientFunds(t *testing.T) {
	store := newTestStore(t)
	ledger := services.NewLedgerService(store)
	engine := services.NewCoinflipEngine(ledger, nil)

	ctx := context.Background()
	uid := int64(333)
	fundAccount(t, store, uid, 0.5)

	_, _, err := engine.Start(ctx, uid, &models.FlipStartRequest{Stake: 1, Choice: models.CoinFaceHeads})
	if !errors.Is(err, models.ErrInsufficientFunds) {
		t.Fatalf("Expected ErrInsufficientFunds, got %v", err)
	}

	acct, err := store.GetAccount(ctx, uid)
	if err != nil {
		t.Fatalf("Failed to read account: %v", err)
	}
	if acct.Balance != 0.5 {
		t.Errorf("Failed start must not touch the balance, got %.2f", acct.Balance)
	}
}

func TestCoinflipSettleBeforeFlip(t *testing.T) {
	store := newTestStore(t)
	ledger := services.NewLedgerService(store)
	engine := services.NewCoinflipEngine(ledger, nil)

	ctx := context.Background()
	uid := int64(444)
	fundAccount(t, store, uid, 5)

	round, _, err := engine.Start(ctx, uid, &models.FlipStartRequest{Stake: 1, Choice: models.CoinFaceHeads})
	if err != nil {
		t.Fatalf("Failed to start: %v", err)
	}

	if _, _, err := engine.Settle(ctx, uid, round.ID); !errors.Is(err, models.ErrNotReady) {
		t.Errorf("Settling without a client seed should be ErrNotReady, got %v", err)
	}
}

func TestCoinflipWinPaysReferralCascade(t *testing.T) {
	store := newTestStore(t)
	ledger := services.NewLedgerService(store)
	engine := services.NewCoinflipEngine(ledger, nil)

	ctx := context.Background()

	// grandparent <- parent <- player
	fundAccount(t, store, 1, 0)
	if _, err := store.GetOrCreateAccount(ctx, 2, 1, 0); err != nil {
		t.Fatalf("Failed to create parent: %v", err)
	}
	if _, err := store.GetOrCreateAccount(ctx, 3, 2, 1); err != nil {
		t.Fatalf("Failed to create player: %v", err)
	}
	if _, err := store.Credit(ctx, 3, 100, models.CounterDeltas{}, nil); err != nil {
		t.Fatalf("Failed to fund player: %v", err)
	}

	// Flip until the player wins once; each round is independent.
	var won *models.WagerRound
	for i := 0; i < 20 && won == nil; i++ {
		round, _, err := engine.Start(ctx, 3, &models.FlipStartRequest{Stake: 10, Choice: models.CoinFaceHeads})
		if err != nil {
			t.Fatalf("Failed to start round %d: %v", i, err)
		}
		if _, err := engine.Flip(ctx, 3, &models.FlipRequest{RoundID: round.ID, ClientSeed: "cascade"}); err != nil {
			t.Fatalf("Failed to flip round %d: %v", i, err)
		}
		settled, _, err := engine.Settle(ctx, 3, round.ID)
		if err != nil {
			t.Fatalf("Failed to settle round %d: %v", i, err)
		}
		if settled.Payout > 0 {
			won = settled
		}
	}
	if won == nil {
		t.Skip("No winning flip in 20 independent rounds")
	}

	parent, err := store.GetAccount(ctx, 2)
	if err != nil {
		t.Fatalf("Failed to read parent: %v", err)
	}
	wantLeg1 := won.Payout * models.WinBonusRates.Level1
	if parent.ReferralEarnings < wantLeg1 {
		t.Errorf("Parent should earn at least %.2f from the win, got %.2f", wantLeg1, parent.ReferralEarnings)
	}

	// Wins only cascade one level.
	grandparent, err := store.GetAccount(ctx, 1)
	if err != nil {
		t.Fatalf("Failed to read grandparent: %v", err)
	}
	if grandparent.Balance != 0 {
		t.Errorf("Level-2 referrer earns nothing from wins, got %.2f", grandparent.Balance)
	}
}
