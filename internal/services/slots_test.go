package services_test

import (
	"context"
	"errors"
	"testing"

	"spinbet-backend/internal/models"
	"spinbet-backend/internal/services"
)

func newSlotEngine(t *testing.T) (services.Store, *services.SlotEngine) {
	t.Helper()
	store := newTestStore(t)
	ledger := services.NewLedgerService(store)
	return store, services.NewSlotEngine(ledger, nil)
}

func TestSlotLifecycle(t *testing.T) {
	store, engine := newSlotEngine(t)
	ctx := context.Background()
	uid := int64(123456)
	fundAccount(t, store, uid, 20)

	round, acct, err := engine.Spin(ctx, uid, &models.SpinRequest{Stake: 1})
	if err != nil {
		t.Fatalf("Failed to spin: %v", err)
	}
	if acct.Balance != 19 {
		t.Errorf("Stake should be debited at spin, balance = %.2f", acct.Balance)
	}
	if round.State != models.RoundStateOpen {
		t.Errorf("Fresh round should be open, got %s", round.State)
	}

	for reel := 0; reel < models.ReelCount; reel++ {
		round, err = engine.StopReel(ctx, uid, &models.StopReelRequest{
			RoundID:    round.ID,
			Reel:       reel,
			ClientSeed: "stop-seed",
		})
		if err != nil {
			t.Fatalf("Failed to stop reel %d: %v", reel, err)
		}
		if len(round.Reels[reel]) != 3 {
			t.Fatalf("Reel %d should hold 3 symbols after stopping", reel)
		}
	}
	if round.State != models.RoundStateAwaiting {
		t.Errorf("Round with all reels stopped should await settlement, got %s", round.State)
	}

	settled, acct, err := engine.Settle(ctx, uid, round.ID)
	if err != nil {
		t.Fatalf("Failed to settle: %v", err)
	}
	if settled.State != models.RoundStateSettled {
		t.Errorf("Round should be settled, got %s", settled.State)
	}
	if !services.VerifyCommitment(settled.ServerSeed, settled.ServerHash) {
		t.Error("Revealed seed should match the commitment")
	}

	// Every reel must be reproducible from the revealed seeds.
	for reel := 0; reel < models.ReelCount; reel++ {
		want := services.DeriveReelStops(settled.ServerSeed, settled.ClientSeed, reel)
		for row := range want {
			if settled.Reels[reel][row] != want[row] {
				t.Errorf("Reel %d row %d not reproducible: stored %d, derived %d",
					reel, row, settled.Reels[reel][row], want[row])
			}
		}
	}

	wantPayout := models.EvaluatePaylines(settled.Grid(), settled.Stake)
	if settled.Payout != wantPayout {
		t.Errorf("Payout should be %.2f per the paytable, got %.2f", wantPayout, settled.Payout)
	}
	if acct.Balance != 19+wantPayout {
		t.Errorf("Balance should be %.2f, got %.2f", 19+wantPayout, acct.Balance)
	}
}

func TestSlotStopReelIsIdempotent(t *testing.T) {
	store, engine := newSlotEngine(t)
	ctx := context.Background()
	uid := int64(777)
	fundAccount(t, store, uid, 5)

	round, _, err := engine.Spin(ctx, uid, &models.SpinRequest{Stake: 1})
	if err != nil {
		t.Fatalf("Failed to spin: %v", err)
	}

	first, err := engine.StopReel(ctx, uid, &models.StopReelRequest{RoundID: round.ID, Reel: 0, ClientSeed: "s"})
	if err != nil {
		t.Fatalf("Failed to stop reel: %v", err)
	}
	second, err := engine.StopReel(ctx, uid, &models.StopReelRequest{RoundID: round.ID, Reel: 0, ClientSeed: "s"})
	if err != nil {
		t.Fatalf("Repeated stop should not error: %v", err)
	}
	for row := range first.Reels[0] {
		if first.Reels[0][row] != second.Reels[0][row] {
			t.Errorf("Repeated stop changed row %d: %d then %d", row, first.Reels[0][row], second.Reels[0][row])
		}
	}
}

func TestSlotFirstStopFixesClientSeed(t *testing.T) {
	store, engine := newSlotEngine(t)
	ctx := context.Background()
	uid := int64(888)
	fundAccount(t, store, uid, 5)

	round, _, err := engine.Spin(ctx, uid, &models.SpinRequest{Stake: 1})
	if err != nil {
		t.Fatalf("Failed to spin: %v", err)
	}

	if _, err := engine.StopReel(ctx, uid, &models.StopReelRequest{RoundID: round.ID, Reel: 0, ClientSeed: "alpha"}); err != nil {
		t.Fatalf("Failed to stop reel 0: %v", err)
	}

	// A different seed on a later stop loses to the first one.
	stored, err := engine.StopReel(ctx, uid, &models.StopReelRequest{RoundID: round.ID, Reel: 1, ClientSeed: "beta"})
	if err != nil {
		t.Fatalf("Conflicting seed should resolve to the stored one, got error: %v", err)
	}
	if stored.ClientSeed != "alpha" {
		t.Errorf("Client seed should stay %q, got %q", "alpha", stored.ClientSeed)
	}

	want := services.DeriveReelStops(stored.ServerSeed, "alpha", 1)
	for row := range want {
		if stored.Reels[1][row] != want[row] {
			t.Errorf("Reel 1 row %d should be derived from the winning seed", row)
		}
	}
}

func TestSlotSettleRequiresAllReels(t *testing.T) {
	store, engine := newSlotEngine(t)
	ctx := context.Background()
	uid := int64(999)
	fundAccount(t, store, uid, 5)

	round, _, err := engine.Spin(ctx, uid, &models.SpinRequest{Stake: 1})
	if err != nil {
		t.Fatalf("Failed to spin: %v", err)
	}
	if _, err := engine.StopReel(ctx, uid, &models.StopReelRequest{RoundID: round.ID, Reel: 0, ClientSeed: "s"}); err != nil {
		t.Fatalf("Failed to stop reel: %v", err)
	}

	if _, _, err := engine.Settle(ctx, uid, round.ID); !errors.Is(err, models.ErrNotReady) {
		t.Errorf("Settling with open reels should be ErrNotReady, got %v", err)
	}
}

func TestEvaluatePaylines(t *testing.T) {
	stake := 2.0

	// Only the middle row matches.
	grid := [9]int{
		0, 1, 0,
		3, 3, 3,
		0, 1, 0,
	}
	want := stake * models.SlotPaytable[3]
	if got := models.EvaluatePaylines(grid, stake); got != want {
		t.Errorf("Middle bar row should pay %.2f, got %.2f", want, got)
	}

	// All cherries: three rows plus two diagonals, five lines at 2x.
	allCherries := [9]int{0, 0, 0, 0, 0, 0, 0, 0, 0}
	want = 5 * stake * models.SlotPaytable[0]
	if got := models.EvaluatePaylines(allCherries, stake); got != want {
		t.Errorf("Full cherry grid should pay %.2f across 5 lines, got %.2f", want, got)
	}

	// Middle row plus both diagonals of coins through the shared center:
	// three independent lines, each paid in full.
	tripleLine := [9]int{
		4, 1, 4,
		4, 4, 4,
		4, 1, 4,
	}
	want = 3 * stake * models.SlotPaytable[4]
	if got := models.EvaluatePaylines(tripleLine, stake); got != want {
		t.Errorf("Row plus two diagonals should pay %.2f, got %.2f", want, got)
	}

	// No line matches.
	noWin := [9]int{
		0, 1, 2,
		1, 2, 3,
		2, 3, 4,
	}
	if got := models.EvaluatePaylines(noWin, stake); got != 0 {
		t.Errorf("Grid without a matching line should pay 0, got %.2f", got)
	}

	// Top coin row pays the top multiplier.
	coinRow := [9]int{
		4, 4, 4,
		0, 1, 2,
		1, 2, 3,
	}
	want = stake * models.SlotPaytable[4]
	if got := models.EvaluatePaylines(coinRow, stake); got != want {
		t.Errorf("Coin row should pay %.2f, got %.2f", want, got)
	}
}

func TestSlotMinimumStake(t *testing.T) {
	store, engine := newSlotEngine(t)
	ctx := context.Background()
	uid := int64(111)
	fundAccount(t, store, uid, 5)

	_, _, err := engine.Spin(ctx, uid, &models.SpinRequest{Stake: 0.001})
	if !errors.Is(err, models.ErrValidation) {
		t.Errorf("Sub-minimum stake should be ErrValidation, got %v", err)
	}
}
