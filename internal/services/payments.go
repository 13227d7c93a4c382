package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"spinbet-backend/internal/models"
)

const (
	// InvoiceTTL bounds how long an unpaid invoice stays reconcilable.
	InvoiceTTL = 1 * time.Hour
	// DailyBonusAmount and DailyBonusInterval drive the free claim.
	DailyBonusAmount   = 0.05
	DailyBonusInterval = int64(24 * 60 * 60)

	expirySweepBatch = 100
)

// PaymentService reconciles our records against the gateway. The gateway
// is the source of truth for whether money arrived; the store's
// compare-and-set transitions guarantee each invoice credits at most once
// no matter how many polls and push notifications race.
type PaymentService struct {
	ledger  *LedgerService
	store   Store
	gateway Gateway
}

func NewPaymentService(ledger *LedgerService, gateway Gateway) *PaymentService {
	return &PaymentService{
		ledger:  ledger,
		store:   ledger.Store(),
		gateway: gateway,
	}
}

// Deposit creates a gateway invoice and records it as pending. Nothing is
// credited here; crediting happens only when the gateway confirms payment.
func (s *PaymentService) Deposit(ctx context.Context, uid int64, amount float64) (*models.PaymentRecord, error) {
	cfg, err := s.store.GetHouseConfig(ctx)
	if err != nil {
		return nil, err
	}
	if cfg.MaintenanceMode {
		return nil, models.ErrMaintenance
	}
	if amount < cfg.MinDeposit {
		return nil, fmt.Errorf("%w: minimum deposit is %s", models.ErrValidation, models.FormatCurrency(cfg.MinDeposit))
	}

	invoice, err := s.gateway.CreateInvoice(ctx, amount, fmt.Sprintf("Deposit for player %d", uid))
	if err != nil {
		return nil, err
	}

	var referrer int64
	if acct, err := s.store.GetAccount(ctx, uid); err == nil {
		referrer = acct.ReferredBy
	}

	now := time.Now()
	rec := &models.PaymentRecord{
		ID:               invoice.ID,
		UID:              uid,
		Amount:           amount,
		Kind:             models.PaymentKindDeposit,
		Status:           models.PaymentStatusPending,
		ReferralCodeUsed: referrer,
		PayURL:           invoice.PayURL,
		CreatedAt:        now.Unix(),
		ExpiresAt:        now.Add(InvoiceTTL).Unix(),
	}
	if err := s.store.CreatePayment(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// CheckDeposit is the poll path. A record already in a terminal state is
// answered from the store without touching the gateway; only a pending
// record triggers a status fetch and, on "paid", the one-time credit.
func (s *PaymentService) CheckDeposit(ctx context.Context, uid int64, paymentID string) (*models.PaymentRecord, *models.Account, error) {
	rec, err := s.store.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, nil, err
	}
	if rec.UID != uid || rec.Kind != models.PaymentKindDeposit {
		return nil, nil, fmt.Errorf("payment %s: %w", paymentID, models.ErrNotFound)
	}
	if rec.Status.Terminal() {
		return rec, nil, nil
	}

	status, err := s.gateway.GetInvoiceStatus(ctx, paymentID)
	if err != nil {
		return nil, nil, err
	}

	switch NormalizeGatewayStatus(status) {
	case models.PaymentStatusPaid:
		return s.settleDeposit(ctx, rec)
	case models.PaymentStatusExpired, models.PaymentStatusCancelled:
		if err := s.store.ExpirePayment(ctx, paymentID); err != nil {
			return nil, nil, err
		}
		rec, err = s.store.GetPayment(ctx, paymentID)
		return rec, nil, err
	default:
		return rec, nil, nil
	}
}

// HandlePaidNotification is the push path: the gateway told us an invoice
// was paid. The same compare-and-set as the poll path makes the two
// deliveries collapse into one credit.
func (s *PaymentService) HandlePaidNotification(ctx context.Context, paymentID string) (*models.PaymentRecord, *models.Account, error) {
	rec, err := s.store.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, nil, err
	}
	if rec.Kind != models.PaymentKindDeposit {
		return nil, nil, fmt.Errorf("payment %s: %w", paymentID, models.ErrNotFound)
	}
	if rec.Status.Terminal() {
		return rec, nil, nil
	}
	return s.settleDeposit(ctx, rec)
}

func (s *PaymentService) settleDeposit(ctx context.Context, rec *models.PaymentRecord) (*models.PaymentRecord, *models.Account, error) {
	deltas := models.CounterDeltas{TotalDeposited: rec.Amount}
	var cascade []models.ReferralPayout
	if acct, err := s.store.GetAccount(ctx, rec.UID); err == nil {
		cascade = s.ledger.CascadeFor(ctx, acct, rec.Amount, models.DepositBonusRates)
	}

	stored, acct, paidNow, err := s.store.MarkDepositPaid(ctx, rec.ID, time.Now().Unix(), deltas, cascade)
	if err != nil {
		return nil, nil, err
	}
	if paidNow {
		s.ledger.Journal(ctx, models.TransactionTypeDeposit, acct, stored.Amount, "", stored.ID, "Deposit confirmed")
		for _, leg := range cascade {
			if ref, err := s.store.GetAccount(ctx, leg.UID); err == nil {
				s.ledger.Journal(ctx, models.TransactionTypeReferral, ref, leg.Amount, "", stored.ID,
					fmt.Sprintf("Referral bonus from deposit by %d", stored.UID))
			}
		}
	}
	return stored, acct, nil
}

// Withdraw issues a gateway payout and debits the balance. The gateway
// call comes first: if it fails nothing is debited, and the store's
// debit-plus-record unit keeps the two effects inseparable afterwards.
func (s *PaymentService) Withdraw(ctx context.Context, uid int64, amount float64) (*models.PaymentRecord, *models.Account, error) {
	cfg, err := s.store.GetHouseConfig(ctx)
	if err != nil {
		return nil, nil, err
	}
	if cfg.MaintenanceMode {
		return nil, nil, models.ErrMaintenance
	}
	if amount < cfg.MinWithdrawal {
		return nil, nil, fmt.Errorf("%w: minimum withdrawal is %s", models.ErrValidation, models.FormatCurrency(cfg.MinWithdrawal))
	}

	acct, err := s.store.GetAccount(ctx, uid)
	if err != nil {
		return nil, nil, err
	}
	if acct.Balance < amount {
		return nil, nil, models.ErrInsufficientFunds
	}

	check, err := s.gateway.CreatePayoutCheck(ctx, uid, amount)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now().Unix()
	rec := &models.PaymentRecord{
		ID:        check.ID,
		UID:       uid,
		Amount:    amount,
		Kind:      models.PaymentKindWithdrawal,
		Status:    models.PaymentStatusPaid,
		CheckURL:  check.ClaimURL,
		CreatedAt: now,
		PaidAt:    now,
	}
	acct, err = s.store.CreateWithdrawalPaid(ctx, rec)
	if err != nil {
		// The check exists at the gateway but the debit raced to failure;
		// flag it loudly for manual reconciliation.
		log.Printf("withdrawal check %s issued but not recorded for %d: %v", check.ID, uid, err)
		return nil, nil, err
	}

	s.ledger.Journal(ctx, models.TransactionTypeWithdraw, acct, -amount, "", rec.ID, "Withdrawal via payout check")
	return rec, acct, nil
}

// ClaimDailyBonus credits the free daily amount at most once per interval.
func (s *PaymentService) ClaimDailyBonus(ctx context.Context, uid int64) (*models.Account, error) {
	acct, err := s.store.ClaimDailyBonus(ctx, uid, DailyBonusAmount, time.Now().Unix(), DailyBonusInterval)
	if err != nil {
		return nil, err
	}
	s.ledger.Journal(ctx, models.TransactionTypeBonus, acct, DailyBonusAmount, "", "", "Daily bonus")
	return acct, nil
}

// ExpireStalePending sweeps pending deposits past their TTL. Each one is
// re-checked against the gateway first so a payment that landed just
// before the sweep still credits instead of expiring.
func (s *PaymentService) ExpireStalePending(ctx context.Context) {
	ids, err := s.store.PendingDepositsDue(ctx, time.Now().Unix(), expirySweepBatch)
	if err != nil {
		log.Printf("pending deposit sweep failed: %v", err)
		return
	}

	for _, id := range ids {
		rec, err := s.store.GetPayment(ctx, id)
		if err != nil || rec.Status.Terminal() {
			continue
		}
		status, err := s.gateway.GetInvoiceStatus(ctx, id)
		if err == nil && NormalizeGatewayStatus(status) == models.PaymentStatusPaid {
			if _, _, err := s.settleDeposit(ctx, rec); err != nil {
				log.Printf("late credit for invoice %s failed: %v", id, err)
			}
			continue
		}
		if err := s.store.ExpirePayment(ctx, id); err != nil {
			log.Printf("failed to expire invoice %s: %v", id, err)
		}
	}
}

// RunExpirySweeper periodically expires stale invoices until ctx is done.
func (s *PaymentService) RunExpirySweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.ExpireStalePending(ctx)
		}
	}
}
