package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"spinbet-backend/internal/models"
)

// LedgerService composes the store's atomic credit/debit primitives with
// the referral cascade and the transaction journal. Nothing else in the
// system mutates balances directly.
type LedgerService struct {
	store Store
}

func NewLedgerService(store Store) *LedgerService {
	return &LedgerService{store: store}
}

func (s *LedgerService) Store() Store {
	return s.store
}

// CascadeFor resolves the two referral legs for a triggering amount. The
// chase is two explicit lookups, never a walk: referredBy and its level-2
// shadow are frozen at registration, which rules out cycles. A missing
// referrer or a self-referral yields no leg; that is not an error.
func (s *LedgerService) CascadeFor(ctx context.Context, acct *models.Account, amount float64, rates models.BonusRates) []models.ReferralPayout {
	var cascade []models.ReferralPayout
	if acct == nil || amount <= 0 {
		return cascade
	}

	if acct.ReferredBy != 0 && acct.ReferredBy != acct.UID && rates.Level1 > 0 {
		if _, err := s.store.GetAccount(ctx, acct.ReferredBy); err == nil {
			cascade = append(cascade, models.ReferralPayout{
				UID:    acct.ReferredBy,
				Amount: amount * rates.Level1,
			})
		}
	}
	if acct.ReferredByLevel2 != 0 && acct.ReferredByLevel2 != acct.UID && rates.Level2 > 0 {
		if _, err := s.store.GetAccount(ctx, acct.ReferredByLevel2); err == nil {
			cascade = append(cascade, models.ReferralPayout{
				UID:    acct.ReferredByLevel2,
				Amount: amount * rates.Level2,
			})
		}
	}
	return cascade
}

// GuardStake enforces the house-level preconditions for opening a round.
// The config is read fresh per call so admin changes apply immediately.
func (s *LedgerService) GuardStake(ctx context.Context, stake float64) (models.HouseConfig, error) {
	cfg, err := s.store.GetHouseConfig(ctx)
	if err != nil {
		return cfg, err
	}
	if cfg.MaintenanceMode {
		return cfg, models.ErrMaintenance
	}
	if stake < cfg.MinBet {
		return cfg, fmt.Errorf("%w: minimum stake is %s", models.ErrValidation, models.FormatCurrency(cfg.MinBet))
	}
	return cfg, nil
}

// Journal appends one entry after the money has already moved. The journal
// is best-effort: a failed write never unwinds a settled balance.
func (s *LedgerService) Journal(ctx context.Context, txType models.TransactionType, acct *models.Account, amount float64, roundID, paymentID, description string) {
	tx := &models.Transaction{
		ID:            models.GenerateTransactionID(),
		UID:           acct.UID,
		Type:          txType,
		Amount:        amount,
		BalanceBefore: acct.Balance - amount,
		BalanceAfter:  acct.Balance,
		RoundID:       roundID,
		PaymentID:     paymentID,
		Description:   description,
		CreatedAt:     time.Now().Unix(),
	}
	if err := s.store.SaveTransaction(ctx, tx); err != nil {
		log.Printf("failed to journal %s for %d: %v", txType, acct.UID, err)
	}
}
