package models

type Account struct {
	UID     int64   `json:"uid" redis:"uid"`
	Balance float64 `json:"balance" redis:"balance"`

	// Referral chain, fixed depth of two. Zero means "no referrer".
	// Both are set once at registration and never change afterwards.
	ReferredBy       int64 `json:"referred_by,omitempty" redis:"referred_by"`
	ReferredByLevel2 int64 `json:"referred_by_level2,omitempty" redis:"referred_by_level2"`

	TotalDeposited   float64 `json:"total_deposited" redis:"total_deposited"`
	TotalWithdrawn   float64 `json:"total_withdrawn" redis:"total_withdrawn"`
	TotalWagered     float64 `json:"total_wagered" redis:"total_wagered"`
	TotalWins        int64   `json:"total_wins" redis:"total_wins"`
	TotalGames       int64   `json:"total_games" redis:"total_games"`
	ReferralEarnings float64 `json:"referral_earnings" redis:"referral_earnings"`

	LastBonusClaimAt       int64  `json:"last_bonus_claim_at" redis:"last_bonus_claim_at"`
	LastWithdrawalCheckURL string `json:"last_withdrawal_check_url,omitempty" redis:"last_withdrawal_check_url"`

	CreatedAt int64 `json:"created_at" redis:"created_at"`
}

// CounterDeltas are the aggregate counters applied together with a balance
// credit, in the same atomic store operation.
type CounterDeltas struct {
	TotalDeposited   float64 `json:"total_deposited,omitempty"`
	TotalWithdrawn   float64 `json:"total_withdrawn,omitempty"`
	TotalWagered     float64 `json:"total_wagered,omitempty"`
	TotalWins        int64   `json:"total_wins,omitempty"`
	TotalGames       int64   `json:"total_games,omitempty"`
	ReferralEarnings float64 `json:"referral_earnings,omitempty"`
}

// ReferralPayout is one resolved leg of the referral cascade: credit Amount
// to UID's balance and referral earnings.
type ReferralPayout struct {
	UID    int64   `json:"uid"`
	Amount float64 `json:"amount"`
}

// BonusRates are the two-level referral percentages for one trigger type.
// Deposits and wins intentionally use different pairs.
type BonusRates struct {
	Level1 float64 `json:"level1"`
	Level2 float64 `json:"level2"`
}

var (
	DepositBonusRates = BonusRates{Level1: 0.05, Level2: 0.02}
	WinBonusRates     = BonusRates{Level1: 0.01, Level2: 0}
)
