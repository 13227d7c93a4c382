package services

import (
	"context"
	"fmt"
	"time"

	"spinbet-backend/internal/models"
)

// CoinflipEngine runs one coinflip wager from stake to settlement. The
// player picks a face and stakes up front; the outcome is derived from the
// committed server seed and the client seed supplied after the commitment
// is visible.
type CoinflipEngine struct {
	ledger      *LedgerService
	store       Store
	broadcaster Broadcaster
}

func NewCoinflipEngine(ledger *LedgerService, broadcaster Broadcaster) *CoinflipEngine {
	if broadcaster == nil {
		broadcaster = NopBroadcaster{}
	}
	return &CoinflipEngine{
		ledger:      ledger,
		store:       ledger.Store(),
		broadcaster: broadcaster,
	}
}

// Start debits the stake and opens the round. On insufficient funds no
// round is created.
func (e *CoinflipEngine) Start(ctx context.Context, uid int64, req *models.FlipStartRequest) (*models.WagerRound, *models.Account, error) {
	if err := req.Validate(); err != nil {
		return nil, nil, err
	}
	if _, err := e.ledger.GuardStake(ctx, req.Stake); err != nil {
		return nil, nil, err
	}

	commitment := NewCommitment()
	round := &models.WagerRound{
		ID:         models.GenerateRoundID(),
		UID:        uid,
		Game:       models.GameTypeCoinflip,
		Stake:      req.Stake,
		ServerSeed: commitment.ServerSeed,
		ServerHash: commitment.ServerHash,
		Choice:     req.Choice,
		State:      models.RoundStateOpen,
		CreatedAt:  time.Now().Unix(),
	}

	acct, err := e.store.CreateRoundDebit(ctx, round)
	if err != nil {
		return nil, nil, err
	}

	e.ledger.Journal(ctx, models.TransactionTypeBet, acct, -round.Stake, round.ID, "",
		fmt.Sprintf("Coinflip stake on %s", req.Choice))
	e.broadcaster.BroadcastBalance(uid, acct.Balance)

	return round, acct, nil
}

// Flip records the client seed. It may be set exactly once; repeating the
// same seed returns the stored round.
func (e *CoinflipEngine) Flip(ctx context.Context, uid int64, req *models.FlipRequest) (*models.WagerRound, error) {
	round, err := e.store.GetRound(ctx, req.RoundID)
	if err != nil {
		return nil, err
	}
	if round.Game != models.GameTypeCoinflip {
		return nil, fmt.Errorf("round %s is not a coinflip: %w", req.RoundID, models.ErrInvalidRoundState)
	}
	if round.UID != uid {
		return nil, fmt.Errorf("round %s: %w", req.RoundID, models.ErrNotFound)
	}

	return e.store.RecordClientSeed(ctx, req.RoundID, req.ClientSeed)
}

// Settle derives the face, pays 2x the stake on a match and reveals the
// server seed. A second settle returns the stored result without moving
// money again.
func (e *CoinflipEngine) Settle(ctx context.Context, uid int64, roundID string) (*models.WagerRound, *models.Account, error) {
	round, err := e.store.GetRound(ctx, roundID)
	if err != nil {
		return nil, nil, err
	}
	if round.Game != models.GameTypeCoinflip || round.UID != uid {
		return nil, nil, fmt.Errorf("round %s: %w", roundID, models.ErrNotFound)
	}
	if round.State != models.RoundStateSettled && round.ClientSeed == "" {
		return nil, nil, fmt.Errorf("coin not flipped yet: %w", models.ErrNotReady)
	}

	outcome := DeriveCoinFace(round.ServerSeed, round.ClientSeed)
	payout := 0.0
	if outcome == round.Choice {
		payout = round.Stake * 2
	}

	settled := *round
	settled.Outcome = outcome
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
				fmt.Sprintf("Coinflip win (%s)", stored.Outcome))
		}
		e.broadcaster.BroadcastSettlement(uid, models.GameTypeCoinflip, stored.Stake, stored.Payout)
		e.broadcaster.BroadcastBalance(uid, acct.Balance)
	}

	return stored, acct, nil
}
