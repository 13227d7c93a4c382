package models

type PaymentKind string

const (
	PaymentKindDeposit    PaymentKind = "deposit"
	PaymentKindWithdrawal PaymentKind = "withdrawal"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusPaid      PaymentStatus = "paid"
	PaymentStatusExpired   PaymentStatus = "expired"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

// PaymentRecord mirrors one gateway invoice or payout check. ID is the
// gateway's own identifier, which makes reconciliation naturally keyed by
// the external event. A record reaches "paid" at most once; the ledger
// credit happens in the same store operation as that transition.
type PaymentRecord struct {
	ID     string        `json:"id" redis:"id"`
	UID    int64         `json:"uid" redis:"uid"`
	Amount float64       `json:"amount" redis:"amount"`
	Kind   PaymentKind   `json:"kind" redis:"kind"`
	Status PaymentStatus `json:"status" redis:"status"`

	// Deposit only, captured when the invoice is created.
	ReferralCodeUsed int64 `json:"referral_code_used,omitempty" redis:"referral_code_used"`

	PayURL   string `json:"pay_url,omitempty" redis:"pay_url"`
	CheckURL string `json:"check_url,omitempty" redis:"check_url"`

	CreatedAt int64 `json:"created_at" redis:"created_at"`
	PaidAt    int64 `json:"paid_at,omitempty" redis:"paid_at"`
	ExpiresAt int64 `json:"expires_at,omitempty" redis:"expires_at"`
}

func (s PaymentStatus) Terminal() bool {
	return s == PaymentStatusPaid || s == PaymentStatusExpired || s == PaymentStatusCancelled
}
