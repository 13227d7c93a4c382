package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"spinbet-backend/internal/models"
)

// SlotEngine runs the 3x3 reel game. The stake is debited at spin time;
// the player then stops each reel once, which pins the client seed on the
// first stop, and settles when all three reels have landed.
type SlotEngine struct {
	ledger      *LedgerService
	store       Store
	broadcaster Broadcaster
}

func NewSlotEngine(ledger *LedgerService, broadcaster Broadcaster) *SlotEngine {
	if broadcaster == nil {
		broadcaster = NopBroadcaster{}
	}
	return &SlotEngine{
		ledger:      ledger,
		store:       ledger.Store(),
		broadcaster: broadcaster,
	}
}

func (e *SlotEngine) Spin(ctx context.Context, uid int64, req *models.SpinRequest) (*models.WagerRound, *models.Account, error) {
	if _, err := e.ledger.GuardStake(ctx, req.Stake); err != nil {
		return nil, nil, err
	}

	commitment := NewCommitment()
	round := &models.WagerRound{
		ID:         models.GenerateRoundID(),
		UID:        uid,
		Game:       models.GameTypeSlots,
		Stake:      req.Stake,
		ServerSeed: commitment.ServerSeed,
		ServerHash: commitment.ServerHash,
		State:      models.RoundStateOpen,
		CreatedAt:  time.Now().Unix(),
	}

	acct, err := e.store.CreateRoundDebit(ctx, round)
	if err != nil {
		return nil, nil, err
	}

	e.ledger.Journal(ctx, models.TransactionTypeBet, acct, -round.Stake, round.ID, "", "Slots spin")
	e.broadcaster.BroadcastBalance(uid, acct.Balance)

	return round, acct, nil
}

// StopReel lands one reel. The first stop fixes the round's client seed;
// stopping an already-stopped reel returns the stored stops instead of
// recomputing.
func (e *SlotEngine) StopReel(ctx context.Context, uid int64, req *models.StopReelRequest) (*models.WagerRound, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	round, err := e.store.GetRound(ctx, req.RoundID)
	if err != nil {
		return nil, err
	}
	if round.Game != models.GameTypeSlots || round.UID != uid {
		return nil, fmt.Errorf("round %s: %w", req.RoundID, models.ErrNotFound)
	}
	if round.State == models.RoundStateSettled {
		return nil, models.ErrAlreadySettled
	}

	seed := round.ClientSeed
	if seed == "" {
		seed = req.ClientSeed
	}
	if seed == "" {
		return nil, fmt.Errorf("%w: client seed required", models.ErrValidation)
	}

	stops := DeriveReelStops(round.ServerSeed, seed, req.Reel)
	stored, err := e.store.RecordReelStop(ctx, req.RoundID, req.Reel, seed, stops)
	if errors.Is(err, errSeedConflict) {
		// Another stop fixed a different seed first; recompute from the
		// seed that won and try once more.
		round, rerr := e.store.GetRound(ctx, req.RoundID)
		if rerr != nil {
			return nil, rerr
		}
		stops = DeriveReelStops(round.ServerSeed, round.ClientSeed, req.Reel)
		stored, err = e.store.RecordReelStop(ctx, req.RoundID, req.Reel, round.ClientSeed, stops)
	}
	return stored, err
}

// Settle evaluates the grid against the paylines, pays the summed line
// wins and reveals the server seed. Idempotent under the store's
// compare-and-set.
func (e *SlotEngine) Settle(ctx context.Context, uid int64, roundID string) (*models.WagerRound, *models.Account, error) {
	round, err := e.store.GetRound(ctx, roundID)
	if err != nil {
		return nil, nil, err
	}
	if round.Game != models.GameTypeSlots || round.UID != uid {
		return nil, nil, fmt.Errorf("round %s: %w", roundID, models.ErrNotFound)
	}
	if round.State != models.RoundStateSettled && !round.ReelsComplete() {
		return nil, nil, fmt.Errorf("not all reels stopped: %w", models.ErrNotReady)
	}

	payout := models.EvaluatePaylines(round.Grid(), round.Stake)

	settled := *round
	settled.Payout = payout
	settled.State = models.RoundStateSettled
	settled.SettledAt = time.Now().Unix()

	deltas := models.CounterDeltas{TotalGames: 1, TotalWagered: round.Stake}
	var cascade []models.ReferralPayout
	if payout > 0 {
		deltas.TotalWins = 1
		if acct, err := e.store.GetAccount(ctx, uid); err == nil {
			cascade = e.ledger.CascadeFor(ctx, acct, payout, models.WinBonusRates)
		}
	}

	stored, acct, settledNow, err := e.store.SettleRound(ctx, &settled, deltas, cascade)
	if err != nil {
		return nil, nil, err
	}

	if settledNow {
		if stored.Payout > 0 {
			e.ledger.Journal(ctx, models.TransactionTypeWin, acct, stored.Payout, stored.ID, "",
				fmt.Sprintf("Slots win %.2fx", stored.Payout/stored.Stake))
		}
		e.broadcaster.BroadcastSettlement(uid, models.GameTypeSlots, stored.Stake, stored.Payout)
		e.broadcaster.BroadcastBalance(uid, acct.Balance)
	}

	return stored, acct, nil
}
