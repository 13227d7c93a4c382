package models

type TransactionType string

const (
	TransactionTypeBet      TransactionType = "bet"
	TransactionTypeWin      TransactionType = "win"
	TransactionTypeDeposit  TransactionType = "deposit"
	TransactionTypeWithdraw TransactionType = "withdraw"
	TransactionTypeReferral TransactionType = "referral"
	TransactionTypeBonus    TransactionType = "bonus"
)

// Transaction is one append-only journal entry. Balance before/after are
// recorded so the journal can be replayed against the ledger.
type Transaction struct {
	ID            string          `json:"id" redis:"id"`
	UID           int64           `json:"uid" redis:"uid"`
	Type          TransactionType `json:"type" redis:"type"`
	Amount        float64         `json:"amount" redis:"amount"`
	BalanceBefore float64         `json:"balance_before" redis:"balance_before"`
	BalanceAfter  float64         `json:"balance_after" redis:"balance_after"`
	RoundID       string          `json:"round_id,omitempty" redis:"round_id"`
	PaymentID     string          `json:"payment_id,omitempty" redis:"payment_id"`
	Description   string          `json:"description" redis:"description"`
	CreatedAt     int64           `json:"created_at" redis:"created_at"`
}
