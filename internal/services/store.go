package services

import (
	"context"
	"errors"
	"time"

	"spinbet-backend/internal/models"
)

// errSeedConflict signals that a reel stop raced against a different first
// client seed; the caller re-reads the round and retries with the seed that
// won.
var errSeedConflict = errors.New("client seed conflict")

// Store is the persistence boundary. Every method that moves money is a
// single atomic unit against the backing store: either all of its effects
// are visible or none are, and concurrent calls against the same entity
// serialize. The Redis backend enforces this with server-side Lua scripts;
// the in-memory backend with a mutex.
type Store interface {
	// GetOrCreateAccount upserts the account on first contact. referredBy
	// and referredByLevel2 only apply on creation; an existing account's
	// referral chain is immutable.
	GetOrCreateAccount(ctx context.Context, uid, referredBy, referredByLevel2 int64) (*models.Account, error)
	GetAccount(ctx context.Context, uid int64) (*models.Account, error)

	// Credit increases balance by amount (>= 0) and applies the counter
	// deltas plus the referral cascade legs in the same atomic unit.
	// Referrers missing from the store are skipped.
	Credit(ctx context.Context, uid int64, amount float64, deltas models.CounterDeltas, cascade []models.ReferralPayout) (*models.Account, error)
	// Debit decreases balance by amount, failing with ErrInsufficientFunds
	// before any mutation when the balance does not cover it.
	Debit(ctx context.Context, uid int64, amount float64) (*models.Account, error)
	// ClaimDailyBonus credits amount iff the previous claim is at least
	// minInterval seconds old; otherwise ErrBonusNotReady.
	ClaimDailyBonus(ctx context.Context, uid int64, amount float64, now, minInterval int64) (*models.Account, error)

	// CreateRoundDebit debits the stake and persists the round as one
	// unit; on ErrInsufficientFunds the round is never created.
	CreateRoundDebit(ctx context.Context, round *models.WagerRound) (*models.Account, error)
	GetRound(ctx context.Context, id string) (*models.WagerRound, error)
	// RecordClientSeed sets the round's client seed exactly once. Setting
	// the same seed again is a no-op returning the stored round; a
	// different seed or a settled round is ErrInvalidRoundState.
	RecordClientSeed(ctx context.Context, id, seed string) (*models.WagerRound, error)
	// RecordReelStop stores one reel's stops idempotently: a reel that is
	// already stopped returns the stored round untouched. The first stop
	// fixes the client seed; a conflicting seed on a later call is
	// ErrInvalidRoundState. When the last reel lands the round moves to
	// awaiting_settlement.
	RecordReelStop(ctx context.Context, id string, reel int, clientSeed string, stops []int) (*models.WagerRound, error)
	// SettleRound is a compare-and-set: if the round is already settled it
	// returns the stored round with settledNow=false and applies nothing.
	// Otherwise it writes the settled round and credits payout, counters
	// and cascade to the owner in the same unit.
	SettleRound(ctx context.Context, settled *models.WagerRound, deltas models.CounterDeltas, cascade []models.ReferralPayout) (round *models.WagerRound, account *models.Account, settledNow bool, err error)

	CreatePayment(ctx context.Context, rec *models.PaymentRecord) error
	GetPayment(ctx context.Context, id string) (*models.PaymentRecord, error)
	// MarkDepositPaid transitions pending -> paid and applies the credit
	// plus cascade, all in one unit. An already-paid record returns
	// (record, nil, false, nil); an expired or cancelled record is
	// ErrPaymentClosed and is never credited.
	MarkDepositPaid(ctx context.Context, id string, paidAt int64, deltas models.CounterDeltas, cascade []models.ReferralPayout) (rec *models.PaymentRecord, account *models.Account, paidNow bool, err error)
	// ExpirePayment is the sweep's pending -> expired compare-and-set.
	ExpirePayment(ctx context.Context, id string) error
	// CreateWithdrawalPaid debits the amount and persists the already-paid
	// withdrawal record as one unit, updating totalWithdrawn and the last
	// check URL.
	CreateWithdrawalPaid(ctx context.Context, rec *models.PaymentRecord) (*models.Account, error)
	// PendingDepositsDue lists deposit ids whose expiry passed.
	PendingDepositsDue(ctx context.Context, now int64, limit int64) ([]string, error)

	GetHouseConfig(ctx context.Context) (models.HouseConfig, error)
	UpdateHouseConfig(ctx context.Context, cfg models.HouseConfig) error

	SaveTransaction(ctx context.Context, tx *models.Transaction) error
	GetTransactions(ctx context.Context, uid int64, limit int64) ([]*models.Transaction, error)

	CheckRateLimit(ctx context.Context, uid int64, action string, limit int, window time.Duration) (bool, error)

	Close() error
}
