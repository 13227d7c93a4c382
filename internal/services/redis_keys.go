package services

import "time"

const (
	KeyAccount          = "account:%d"
	KeyRound            = "round:%s"
	KeyPayment          = "payment:%s"
	KeyPendingDeposits  = "payments:pending_deposits"
	KeyHouseConfig      = "house:config"
	KeyTransaction      = "transaction:%s"
	KeyUserTransactions = "user:%d:transactions"
	KeyRateLimit        = "ratelimit:%d:%s"

	TTLRound       = 7 * 24 * time.Hour  // settled rounds stay verifiable for a week
	TTLTransaction = 30 * 24 * time.Hour // journal entries kept 30 days

	DefaultRateLimitBets = 30 // max 30 bets per minute
)
