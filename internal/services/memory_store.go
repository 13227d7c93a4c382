package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"spinbet-backend/internal/models"
)

// MemoryStore keeps everything in process memory behind one mutex, giving
// the same atomicity guarantees as the Redis scripts. Selected with
// STORE_BACKEND=memory; the deterministic test suite runs on it.
type MemoryStore struct {
	mu           sync.Mutex
	accounts     map[int64]*models.Account
	rounds       map[string]*models.WagerRound
	payments     map[string]*models.PaymentRecord
	transactions map[int64][]*models.Transaction
	rateCounts   map[string]*rateWindow
	house        *models.HouseConfig
}

type rateWindow struct {
	count   int
	resetAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:     make(map[int64]*models.Account),
		rounds:       make(map[string]*models.WagerRound),
		payments:     make(map[string]*models.PaymentRecord),
		transactions: make(map[int64][]*models.Transaction),
		rateCounts:   make(map[string]*rateWindow),
	}
}

func copyAccount(a *models.Account) *models.Account {
	out := *a
	return &out
}

func copyRound(r *models.WagerRound) *models.WagerRound {
	out := *r
	for i, reel := range r.Reels {
		if reel != nil {
			out.Reels[i] = append([]int(nil), reel...)
		}
	}
	return &out
}

func copyPayment(p *models.PaymentRecord) *models.PaymentRecord {
	out := *p
	return &out
}

func applyDeltas(acct *models.Account, deltas models.CounterDeltas) {
	acct.TotalDeposited += deltas.TotalDeposited
	acct.TotalWithdrawn += deltas.TotalWithdrawn
	acct.TotalWagered += deltas.TotalWagered
	acct.TotalWins += deltas.TotalWins
	acct.TotalGames += deltas.TotalGames
	acct.ReferralEarnings += deltas.ReferralEarnings
}

// applyCascade pays each resolved referrer; a referrer that vanished from
// the store is skipped, never an error.
func (s *MemoryStore) applyCascade(cascade []models.ReferralPayout) {
	for _, leg := range cascade {
		ref, ok := s.accounts[leg.UID]
		if !ok {
			continue
		}
		ref.Balance += leg.Amount
		ref.ReferralEarnings += leg.Amount
	}
}

func (s *MemoryStore) GetOrCreateAccount(ctx context.Context, uid, referredBy, referredByLevel2 int64) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if acct, ok := s.accounts[uid]; ok {
		return copyAccount(acct), nil
	}

	if referredBy == uid {
		referredBy = 0
	}
	if referredByLevel2 == uid || referredBy == 0 {
		referredByLevel2 = 0
	}

	acct := &models.Account{
		UID:              uid,
		ReferredBy:       referredBy,
		ReferredByLevel2: referredByLevel2,
		CreatedAt:        time.Now().Unix(),
	}
	s.accounts[uid] = acct
	return copyAccount(acct), nil
}

func (s *MemoryStore) GetAccount(ctx context.Context, uid int64) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[uid]
	if !ok {
		return nil, fmt.Errorf("account %d: %w", uid, models.ErrNotFound)
	}
	return copyAccount(acct), nil
}

func (s *MemoryStore) Credit(ctx context.Context, uid int64, amount float64, deltas models.CounterDeltas, cascade []models.ReferralPayout) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[uid]
	if !ok {
		return nil, fmt.Errorf("account %d: %w", uid, models.ErrNotFound)
	}

	acct.Balance += amount
	applyDeltas(acct, deltas)
	s.applyCascade(cascade)
	return copyAccount(acct), nil
}

func (s *MemoryStore) Debit(ctx context.Context, uid int64, amount float64) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[uid]
	if !ok {
		return nil, fmt.Errorf("account %d: %w", uid, models.ErrNotFound)
	}
	if acct.Balance < amount {
		return nil, models.ErrInsufficientFunds
	}
	acct.Balance -= amount
	return copyAccount(acct), nil
}

func (s *MemoryStore) ClaimDailyBonus(ctx context.Context, uid int64, amount float64, now, minInterval int64) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[uid]
	if !ok {
		return nil, fmt.Errorf("account %d: %w", uid, models.ErrNotFound)
	}
	if acct.LastBonusClaimAt > now-minInterval {
		return nil, models.ErrBonusNotReady
	}
	acct.LastBonusClaimAt = now
	acct.Balance += amount
	return copyAccount(acct), nil
}

func (s *MemoryStore) CreateRoundDebit(ctx context.Context, round *models.WagerRound) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[round.UID]
	if !ok {
		return nil, fmt.Errorf("account %d: %w", round.UID, models.ErrNotFound)
	}
	if acct.Balance < round.Stake {
		return nil, models.ErrInsufficientFunds
	}

	acct.Balance -= round.Stake
	s.rounds[round.ID] = copyRound(round)
	return copyAccount(acct), nil
}

func (s *MemoryStore) GetRound(ctx context.Context, id string) (*models.WagerRound, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	round, ok := s.rounds[id]
	if !ok {
		return nil, fmt.Errorf("round %s: %w", id, models.ErrNotFound)
	}
	return copyRound(round), nil
}

func (s *MemoryStore) RecordClientSeed(ctx context.Context, id, seed string) (*models.WagerRound, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	round, ok := s.rounds[id]
	if !ok {
		return nil, fmt.Errorf("round %s: %w", id, models.ErrNotFound)
	}
	if round.State == models.RoundStateSettled {
		return nil, models.ErrAlreadySettled
	}
	if round.ClientSeed != "" {
		if round.ClientSeed == seed {
			return copyRound(round), nil
		}
		return nil, fmt.Errorf("client seed already set: %w", models.ErrInvalidRoundState)
	}

	round.ClientSeed = seed
	round.State = models.RoundStateAwaiting
	return copyRound(round), nil
}

func (s *MemoryStore) RecordReelStop(ctx context.Context, id string, reel int, clientSeed string, stops []int) (*models.WagerRound, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	round, ok := s.rounds[id]
	if !ok {
		return nil, fmt.Errorf("round %s: %w", id, models.ErrNotFound)
	}
	if round.State == models.RoundStateSettled {
		return nil, models.ErrAlreadySettled
	}
	if round.ClientSeed != "" && round.ClientSeed != clientSeed {
		return nil, errSeedConflict
	}
	if len(round.Reels[reel]) == 3 {
		return copyRound(round), nil
	}

	round.ClientSeed = clientSeed
	round.Reels[reel] = append([]int(nil), stops...)
	if round.ReelsComplete() {
		round.State = models.RoundStateAwaiting
	}
	return copyRound(round), nil
}

func (s *MemoryStore) SettleRound(ctx context.Context, settled *models.WagerRound, deltas models.CounterDeltas, cascade []models.ReferralPayout) (*models.WagerRound, *models.Account, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	round, ok := s.rounds[settled.ID]
	if !ok {
		return nil, nil, false, fmt.Errorf("round %s: %w", settled.ID, models.ErrNotFound)
	}
	if round.State == models.RoundStateSettled {
		acct := s.accounts[round.UID]
		return copyRound(round), copyAccount(acct), false, nil
	}

	acct, ok := s.accounts[settled.UID]
	if !ok {
		return nil, nil, false, fmt.Errorf("account %d: %w", settled.UID, models.ErrNotFound)
	}

	s.rounds[settled.ID] = copyRound(settled)
	acct.Balance += settled.Payout
	applyDeltas(acct, deltas)
	s.applyCascade(cascade)
	return copyRound(settled), copyAccount(acct), true, nil
}

func (s *MemoryStore) CreatePayment(ctx context.Context, rec *models.PaymentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.payments[rec.ID]; ok {
		return fmt.Errorf("payment %s already exists: %w", rec.ID, models.ErrValidation)
	}
	s.payments[rec.ID] = copyPayment(rec)
	return nil
}

func (s *MemoryStore) GetPayment(ctx context.Context, id string) (*models.PaymentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.payments[id]
	if !ok {
		return nil, fmt.Errorf("payment %s: %w", id, models.ErrNotFound)
	}
	return copyPayment(rec), nil
}

func (s *MemoryStore) MarkDepositPaid(ctx context.Context, id string, paidAt int64, deltas models.CounterDeltas, cascade []models.ReferralPayout) (*models.PaymentRecord, *models.Account, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.payments[id]
	if !ok {
		return nil, nil, false, fmt.Errorf("payment %s: %w", id, models.ErrNotFound)
	}
	if rec.Status == models.PaymentStatusPaid {
		return copyPayment(rec), nil, false, nil
	}
	if rec.Status != models.PaymentStatusPending {
		return nil, nil, false, fmt.Errorf("payment %s is %s: %w", id, rec.Status, models.ErrPaymentClosed)
	}

	acct, ok := s.accounts[rec.UID]
	if !ok {
		return nil, nil, false, fmt.Errorf("account %d: %w", rec.UID, models.ErrNotFound)
	}

	rec.Status = models.PaymentStatusPaid
	rec.PaidAt = paidAt
	acct.Balance += rec.Amount
	applyDeltas(acct, deltas)
	s.applyCascade(cascade)
	return copyPayment(rec), copyAccount(acct), true, nil
}

func (s *MemoryStore) ExpirePayment(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.payments[id]
	if !ok {
		return fmt.Errorf("payment %s: %w", id, models.ErrNotFound)
	}
	if rec.Status != models.PaymentStatusPending {
		return nil
	}
	rec.Status = models.PaymentStatusExpired
	return nil
}

func (s *MemoryStore) CreateWithdrawalPaid(ctx context.Context, rec *models.PaymentRecord) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[rec.UID]
	if !ok {
		return nil, fmt.Errorf("account %d: %w", rec.UID, models.ErrNotFound)
	}
	if acct.Balance < rec.Amount {
		return nil, models.ErrInsufficientFunds
	}

	acct.Balance -= rec.Amount
	acct.TotalWithdrawn += rec.Amount
	acct.LastWithdrawalCheckURL = rec.CheckURL
	s.payments[rec.ID] = copyPayment(rec)
	return copyAccount(acct), nil
}

func (s *MemoryStore) PendingDepositsDue(ctx context.Context, now int64, limit int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []string
	for id, rec := range s.payments {
		if rec.Kind != models.PaymentKindDeposit || rec.Status != models.PaymentStatusPending {
			continue
		}
		if rec.ExpiresAt > 0 && rec.ExpiresAt <= now {
			due = append(due, id)
			if int64(len(due)) >= limit {
				break
			}
		}
	}
	return due, nil
}

func (s *MemoryStore) GetHouseConfig(ctx context.Context) (models.HouseConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.house == nil {
		cfg := models.DefaultHouseConfig()
		s.house = &cfg
	}
	return *s.house, nil
}

func (s *MemoryStore) UpdateHouseConfig(ctx context.Context, cfg models.HouseConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.house = &cfg
	return nil
}

func (s *MemoryStore) SaveTransaction(ctx context.Context, tx *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := *tx
	s.transactions[tx.UID] = append(s.transactions[tx.UID], &entry)
	return nil
}

func (s *MemoryStore) GetTransactions(ctx context.Context, uid int64, limit int64) ([]*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.transactions[uid]
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var out []*models.Transaction
	for i := len(all) - 1; i >= 0 && int64(len(out)) < limit; i-- {
		entry := *all[i]
		out = append(out, &entry)
	}
	return out, nil
}

func (s *MemoryStore) CheckRateLimit(ctx context.Context, uid int64, action string, limit int, window time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := fmt.Sprintf("%d:%s", uid, action)
	now := time.Now()

	win, ok := s.rateCounts[key]
	if !ok || now.After(win.resetAt) {
		s.rateCounts[key] = &rateWindow{count: 1, resetAt: now.Add(window)}
		return true, nil
	}
	win.count++
	return win.count <= limit, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
