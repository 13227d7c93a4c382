package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"spinbet-backend/internal/config"
	"spinbet-backend/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists everything as JSON values and pushes every multi-step
// money mutation into a single Lua script, so each unit executes atomically
// on the server no matter how many API instances run.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(cfg *config.Config) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	if _, err := client.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %v", err)
	}

	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Script replies are arrays whose first element is a status code, followed
// by zero or more JSON payloads.
func scriptReply(res interface{}, err error) (string, []string, error) {
	if err != nil {
		return "", nil, err
	}
	arr, ok := res.([]interface{})
	if !ok || len(arr) == 0 {
		return "", nil, fmt.Errorf("unexpected script reply: %v", res)
	}
	code, _ := arr[0].(string)
	var payloads []string
	for _, item := range arr[1:] {
		str, _ := item.(string)
		payloads = append(payloads, str)
	}
	return code, payloads, nil
}

func unmarshalAccount(data string) (*models.Account, error) {
	var acct models.Account
	if err := json.Unmarshal([]byte(data), &acct); err != nil {
		return nil, fmt.Errorf("failed to unmarshal account: %v", err)
	}
	return &acct, nil
}

func unmarshalRound(data string) (*models.WagerRound, error) {
	var round models.WagerRound
	if err := json.Unmarshal([]byte(data), &round); err != nil {
		return nil, fmt.Errorf("failed to unmarshal round: %v", err)
	}
	return &round, nil
}

func unmarshalPayment(data string) (*models.PaymentRecord, error) {
	var rec models.PaymentRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payment: %v", err)
	}
	return &rec, nil
}

// cascadeKeysArgs appends one account key and one amount per cascade leg,
// keeping KEYS and ARGV aligned for the scripts below.
func cascadeKeysArgs(keys []string, args []interface{}, cascade []models.ReferralPayout) ([]string, []interface{}) {
	for _, leg := range cascade {
		keys = append(keys, fmt.Sprintf(KeyAccount, leg.UID))
		args = append(args, leg.Amount)
	}
	return keys, args
}

var createAccountScript = redis.NewScript(`
	local data = redis.call("GET", KEYS[1])
	if data then
		return data
	end
	redis.call("SET", KEYS[1], ARGV[1])
	return ARGV[1]
`)

func (s *RedisStore) GetOrCreateAccount(ctx context.Context, uid, referredBy, referredByLevel2 int64) (*models.Account, error) {
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
	payload, err := json.Marshal(acct)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal account: %v", err)
	}

	key := fmt.Sprintf(KeyAccount, uid)
	data, err := createAccountScript.Run(ctx, s.client, []string{key}, string(payload)).Text()
	if err != nil {
		return nil, fmt.Errorf("failed to upsert account: %v", err)
	}
	return unmarshalAccount(data)
}

func (s *RedisStore) GetAccount(ctx context.Context, uid int64) (*models.Account, error) {
	data, err := s.client.Get(ctx, fmt.Sprintf(KeyAccount, uid)).Result()
	if err == redis.Nil {
		return nil, fmt.Errorf("account %d: %w", uid, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %v", err)
	}
	return unmarshalAccount(data)
}

// creditScript credits the owner and pays each referrer present in KEYS[2..];
// missing referrer accounts are skipped silently.
var creditScript = redis.NewScript(`
	local data = redis.call("GET", KEYS[1])
	if not data then
		return {"NOT_FOUND"}
	end
	local acct = cjson.decode(data)
	acct.balance = (acct.balance or 0) + tonumber(ARGV[1])
	local deltas = cjson.decode(ARGV[2])
	for k, v in pairs(deltas) do
		acct[k] = (acct[k] or 0) + v
	end
	redis.call("SET", KEYS[1], cjson.encode(acct))
	for i = 2, #KEYS do
		local rdata = redis.call("GET", KEYS[i])
		if rdata then
			local ref = cjson.decode(rdata)
			local amt = tonumber(ARGV[i + 1])
			ref.balance = (ref.balance or 0) + amt
			ref.referral_earnings = (ref.referral_earnings or 0) + amt
			redis.call("SET", KEYS[i], cjson.encode(ref))
		end
	end
	return {"OK", cjson.encode(acct)}
`)

func (s *RedisStore) Credit(ctx context.Context, uid int64, amount float64, deltas models.CounterDeltas, cascade []models.ReferralPayout) (*models.Account, error) {
	deltasJSON, err := json.Marshal(deltas)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal deltas: %v", err)
	}

	keys := []string{fmt.Sprintf(KeyAccount, uid)}
	args := []interface{}{amount, string(deltasJSON)}
	keys, args = cascadeKeysArgs(keys, args, cascade)

	code, payloads, err := scriptReply(creditScript.Run(ctx, s.client, keys, args...).Result())
	if err != nil {
		return nil, fmt.Errorf("credit script failed: %v", err)
	}
	if code == "NOT_FOUND" {
		return nil, fmt.Errorf("account %d: %w", uid, models.ErrNotFound)
	}
	return unmarshalAccount(payloads[0])
}

var debitScript = redis.NewScript(`
	local data = redis.call("GET", KEYS[1])
	if not data then
		return {"NOT_FOUND"}
	end
	local acct = cjson.decode(data)
	local amount = tonumber(ARGV[1])
	if (acct.balance or 0) < amount then
		return {"INSUFFICIENT"}
	end
	acct.balance = acct.balance - amount
	redis.call("SET", KEYS[1], cjson.encode(acct))
	return {"OK", cjson.encode(acct)}
`)

func (s *RedisStore) Debit(ctx context.Context, uid int64, amount float64) (*models.Account, error) {
	key := fmt.Sprintf(KeyAccount, uid)
	code, payloads, err := scriptReply(debitScript.Run(ctx, s.client, []string{key}, amount).Result())
	if err != nil {
		return nil, fmt.Errorf("debit script failed: %v", err)
	}
	switch code {
	case "NOT_FOUND":
		return nil, fmt.Errorf("account %d: %w", uid, models.ErrNotFound)
	case "INSUFFICIENT":
		return nil, models.ErrInsufficientFunds
	}
	return unmarshalAccount(payloads[0])
}

var bonusScript = redis.NewScript(`
	local data = redis.call("GET", KEYS[1])
	if not data then
		return {"NOT_FOUND"}
	end
	local acct = cjson.decode(data)
	local now = tonumber(ARGV[2])
	local interval = tonumber(ARGV[3])
	if (acct.last_bonus_claim_at or 0) > now - interval then
		return {"NOT_READY"}
	end
	acct.last_bonus_claim_at = now
	acct.balance = (acct.balance or 0) + tonumber(ARGV[1])
	redis.call("SET", KEYS[1], cjson.encode(acct))
	return {"OK", cjson.encode(acct)}
`)

func (s *RedisStore) ClaimDailyBonus(ctx context.Context, uid int64, amount float64, now, minInterval int64) (*models.Account, error) {
	key := fmt.Sprintf(KeyAccount, uid)
	code, payloads, err := scriptReply(bonusScript.Run(ctx, s.client, []string{key}, amount, now, minInterval).Result())
	if err != nil {
		return nil, fmt.Errorf("bonus script failed: %v", err)
	}
	switch code {
	case "NOT_FOUND":
		return nil, fmt.Errorf("account %d: %w", uid, models.ErrNotFound)
	case "NOT_READY":
		return nil, models.ErrBonusNotReady
	}
	return unmarshalAccount(payloads[0])
}

// createRoundDebitScript: stake leaves the balance and the round appears in
// the same atomic step, so a failed debit never leaves a round behind.
var createRoundDebitScript = redis.NewScript(`
	local data = redis.call("GET", KEYS[1])
	if not data then
		return {"NOT_FOUND"}
	end
	local acct = cjson.decode(data)
	local stake = tonumber(ARGV[1])
	if (acct.balance or 0) < stake then
		return {"INSUFFICIENT"}
	end
	acct.balance = acct.balance - stake
	redis.call("SET", KEYS[1], cjson.encode(acct))
	redis.call("SET", KEYS[2], ARGV[2], "EX", tonumber(ARGV[3]))
	return {"OK", cjson.encode(acct)}
`)

func (s *RedisStore) CreateRoundDebit(ctx context.Context, round *models.WagerRound) (*models.Account, error) {
	payload, err := json.Marshal(round)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal round: %v", err)
	}

	keys := []string{
		fmt.Sprintf(KeyAccount, round.UID),
		fmt.Sprintf(KeyRound, round.ID),
	}
	code, payloads, err := scriptReply(createRoundDebitScript.Run(
		ctx, s.client, keys, round.Stake, string(payload), int(TTLRound.Seconds())).Result())
	if err != nil {
		return nil, fmt.Errorf("create round script failed: %v", err)
	}
	switch code {
	case "NOT_FOUND":
		return nil, fmt.Errorf("account %d: %w", round.UID, models.ErrNotFound)
	case "INSUFFICIENT":
		return nil, models.ErrInsufficientFunds
	}
	return unmarshalAccount(payloads[0])
}

func (s *RedisStore) GetRound(ctx context.Context, id string) (*models.WagerRound, error) {
	data, err := s.client.Get(ctx, fmt.Sprintf(KeyRound, id)).Result()
	if err == redis.Nil {
		return nil, fmt.Errorf("round %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get round: %v", err)
	}
	return unmarshalRound(data)
}

var recordSeedScript = redis.NewScript(`
	local data = redis.call("GET", KEYS[1])
	if not data then
		return {"NOT_FOUND"}
	end
	local round = cjson.decode(data)
	if round.state == "settled" then
		return {"SETTLED"}
	end
	if round.client_seed and round.client_seed ~= "" then
		if round.client_seed == ARGV[1] then
			return {"OK", data}
		end
		return {"CONFLICT"}
	end
	round.client_seed = ARGV[1]
	round.state = "awaiting_settlement"
	local enc = cjson.encode(round)
	redis.call("SET", KEYS[1], enc, "KEEPTTL")
	return {"OK", enc}
`)

func (s *RedisStore) RecordClientSeed(ctx context.Context, id, seed string) (*models.WagerRound, error) {
	key := fmt.Sprintf(KeyRound, id)
	code, payloads, err := scriptReply(recordSeedScript.Run(ctx, s.client, []string{key}, seed).Result())
	if err != nil {
		return nil, fmt.Errorf("record seed script failed: %v", err)
	}
	switch code {
	case "NOT_FOUND":
		return nil, fmt.Errorf("round %s: %w", id, models.ErrNotFound)
	case "SETTLED":
		return nil, models.ErrAlreadySettled
	case "CONFLICT":
		return nil, fmt.Errorf("client seed already set: %w", models.ErrInvalidRoundState)
	}
	return unmarshalRound(payloads[0])
}

var recordReelScript = redis.NewScript(`
	local data = redis.call("GET", KEYS[1])
	if not data then
		return {"NOT_FOUND"}
	end
	local round = cjson.decode(data)
	if round.state == "settled" then
		return {"SETTLED"}
	end
	local seed = round.client_seed
	if seed and seed ~= "" and seed ~= ARGV[2] then
		return {"CONFLICT"}
	end
	local idx = tonumber(ARGV[1]) + 1
	local reel = round.reels[idx]
	if reel ~= cjson.null and type(reel) == "table" and #reel == 3 then
		return {"OK", data}
	end
	round.client_seed = ARGV[2]
	round.reels[idx] = cjson.decode(ARGV[3])
	local complete = true
	for i = 1, 3 do
		local r = round.reels[i]
		if r == cjson.null or type(r) ~= "table" or #r ~= 3 then
			complete = false
		end
	end
	if complete then
		round.state = "awaiting_settlement"
	end
	local enc = cjson.encode(round)
	redis.call("SET", KEYS[1], enc, "KEEPTTL")
	return {"OK", enc}
`)

func (s *RedisStore) RecordReelStop(ctx context.Context, id string, reel int, clientSeed string, stops []int) (*models.WagerRound, error) {
	stopsJSON, err := json.Marshal(stops)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal stops: %v", err)
	}

	key := fmt.Sprintf(KeyRound, id)
	code, payloads, err := scriptReply(recordReelScript.Run(
		ctx, s.client, []string{key}, reel, clientSeed, string(stopsJSON)).Result())
	if err != nil {
		return nil, fmt.Errorf("record reel script failed: %v", err)
	}
	switch code {
	case "NOT_FOUND":
		return nil, fmt.Errorf("round %s: %w", id, models.ErrNotFound)
	case "SETTLED":
		return nil, models.ErrAlreadySettled
	case "CONFLICT":
		return nil, errSeedConflict
	}
	return unmarshalRound(payloads[0])
}

// settleScript is the settlement compare-and-set: the losing caller of a
// settle race sees ALREADY and nothing is credited twice.
var settleScript = redis.NewScript(`
	local data = redis.call("GET", KEYS[1])
	if not data then
		return {"NOT_FOUND"}
	end
	local round = cjson.decode(data)
	if round.state == "settled" then
		local adata = redis.call("GET", KEYS[2])
		return {"ALREADY", data, adata}
	end
	local adata = redis.call("GET", KEYS[2])
	if not adata then
		return {"NO_ACCOUNT"}
	end
	local acct = cjson.decode(adata)
	acct.balance = (acct.balance or 0) + tonumber(ARGV[2])
	local deltas = cjson.decode(ARGV[3])
	for k, v in pairs(deltas) do
		acct[k] = (acct[k] or 0) + v
	end
	redis.call("SET", KEYS[1], ARGV[1], "KEEPTTL")
	redis.call("SET", KEYS[2], cjson.encode(acct))
	for i = 3, #KEYS do
		local rdata = redis.call("GET", KEYS[i])
		if rdata then
			local ref = cjson.decode(rdata)
			local amt = tonumber(ARGV[i + 1])
			ref.balance = (ref.balance or 0) + amt
			ref.referral_earnings = (ref.referral_earnings or 0) + amt
			redis.call("SET", KEYS[i], cjson.encode(ref))
		end
	end
	return {"OK", ARGV[1], cjson.encode(acct)}
`)

func (s *RedisStore) SettleRound(ctx context.Context, settled *models.WagerRound, deltas models.CounterDeltas, cascade []models.ReferralPayout) (*models.WagerRound, *models.Account, bool, error) {
	payload, err := json.Marshal(settled)
	if err != nil {
		return nil, nil, false, fmt.Errorf("failed to marshal round: %v", err)
	}
	deltasJSON, err := json.Marshal(deltas)
	if err != nil {
		return nil, nil, false, fmt.Errorf("failed to marshal deltas: %v", err)
	}

	keys := []string{
		fmt.Sprintf(KeyRound, settled.ID),
		fmt.Sprintf(KeyAccount, settled.UID),
	}
	args := []interface{}{string(payload), settled.Payout, string(deltasJSON)}
	keys, args = cascadeKeysArgs(keys, args, cascade)

	code, payloads, err := scriptReply(settleScript.Run(ctx, s.client, keys, args...).Result())
	if err != nil {
		return nil, nil, false, fmt.Errorf("settle script failed: %v", err)
	}
	switch code {
	case "NOT_FOUND":
		return nil, nil, false, fmt.Errorf("round %s: %w", settled.ID, models.ErrNotFound)
	case "NO_ACCOUNT":
		return nil, nil, false, fmt.Errorf("account %d: %w", settled.UID, models.ErrNotFound)
	}

	round, err := unmarshalRound(payloads[0])
	if err != nil {
		return nil, nil, false, err
	}
	var acct *models.Account
	if len(payloads) > 1 && payloads[1] != "" {
		if acct, err = unmarshalAccount(payloads[1]); err != nil {
			return nil, nil, false, err
		}
	}
	return round, acct, code == "OK", nil
}

var createPaymentScript = redis.NewScript(`
	if redis.call("EXISTS", KEYS[1]) == 1 then
		return "EXISTS"
	end
	redis.call("SET", KEYS[1], ARGV[1])
	if ARGV[2] ~= "" then
		redis.call("ZADD", KEYS[2], tonumber(ARGV[3]), ARGV[2])
	end
	return "OK"
`)

func (s *RedisStore) CreatePayment(ctx context.Context, rec *models.PaymentRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal payment: %v", err)
	}

	// Only pending deposits join the expiry index.
	pendingID := ""
	if rec.Kind == models.PaymentKindDeposit && rec.Status == models.PaymentStatusPending {
		pendingID = rec.ID
	}

	keys := []string{fmt.Sprintf(KeyPayment, rec.ID), KeyPendingDeposits}
	code, err := createPaymentScript.Run(ctx, s.client, keys, string(payload), pendingID, rec.ExpiresAt).Text()
	if err != nil {
		return fmt.Errorf("create payment script failed: %v", err)
	}
	if code == "EXISTS" {
		return fmt.Errorf("payment %s already exists: %w", rec.ID, models.ErrValidation)
	}
	return nil
}

func (s *RedisStore) GetPayment(ctx context.Context, id string) (*models.PaymentRecord, error) {
	data, err := s.client.Get(ctx, fmt.Sprintf(KeyPayment, id)).Result()
	if err == redis.Nil {
		return nil, fmt.Errorf("payment %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %v", err)
	}
	return unmarshalPayment(data)
}

// markPaidScript closes the poll/push race: whichever caller lands first
// flips pending to paid and credits; the other sees ALREADY.
var markPaidScript = redis.NewScript(`
	local data = redis.call("GET", KEYS[1])
	if not data then
		return {"NOT_FOUND"}
	end
	local rec = cjson.decode(data)
	if rec.status == "paid" then
		return {"ALREADY", data}
	end
	if rec.status ~= "pending" then
		return {"CLOSED", data}
	end
	local adata = redis.call("GET", KEYS[3])
	if not adata then
		return {"NO_ACCOUNT"}
	end
	local acct = cjson.decode(adata)
	rec.status = "paid"
	rec.paid_at = tonumber(ARGV[1])
	acct.balance = (acct.balance or 0) + rec.amount
	local deltas = cjson.decode(ARGV[2])
	for k, v in pairs(deltas) do
		acct[k] = (acct[k] or 0) + v
	end
	redis.call("SET", KEYS[1], cjson.encode(rec))
	redis.call("SET", KEYS[3], cjson.encode(acct))
	redis.call("ZREM", KEYS[2], rec.id)
	for i = 4, #KEYS do
		local rdata = redis.call("GET", KEYS[i])
		if rdata then
			local ref = cjson.decode(rdata)
			local amt = tonumber(ARGV[i - 1])
			ref.balance = (ref.balance or 0) + amt
			ref.referral_earnings = (ref.referral_earnings or 0) + amt
			redis.call("SET", KEYS[i], cjson.encode(ref))
		end
	end
	return {"OK", cjson.encode(rec), cjson.encode(acct)}
`)

func (s *RedisStore) MarkDepositPaid(ctx context.Context, id string, paidAt int64, deltas models.CounterDeltas, cascade []models.ReferralPayout) (*models.PaymentRecord, *models.Account, bool, error) {
	deltasJSON, err := json.Marshal(deltas)
	if err != nil {
		return nil, nil, false, fmt.Errorf("failed to marshal deltas: %v", err)
	}

	rec, err := s.GetPayment(ctx, id)
	if err != nil {
		return nil, nil, false, err
	}

	keys := []string{
		fmt.Sprintf(KeyPayment, id),
		KeyPendingDeposits,
		fmt.Sprintf(KeyAccount, rec.UID),
	}
	args := []interface{}{paidAt, string(deltasJSON)}
	keys, args = cascadeKeysArgs(keys, args, cascade)

	code, payloads, err := scriptReply(markPaidScript.Run(ctx, s.client, keys, args...).Result())
	if err != nil {
		return nil, nil, false, fmt.Errorf("mark paid script failed: %v", err)
	}
	switch code {
	case "NOT_FOUND":
		return nil, nil, false, fmt.Errorf("payment %s: %w", id, models.ErrNotFound)
	case "NO_ACCOUNT":
		return nil, nil, false, fmt.Errorf("account %d: %w", rec.UID, models.ErrNotFound)
	case "CLOSED":
		closed, _ := unmarshalPayment(payloads[0])
		status := models.PaymentStatus("unknown")
		if closed != nil {
			status = closed.Status
		}
		return nil, nil, false, fmt.Errorf("payment %s is %s: %w", id, status, models.ErrPaymentClosed)
	case "ALREADY":
		already, err := unmarshalPayment(payloads[0])
		if err != nil {
			return nil, nil, false, err
		}
		return already, nil, false, nil
	}

	paid, err := unmarshalPayment(payloads[0])
	if err != nil {
		return nil, nil, false, err
	}
	acct, err := unmarshalAccount(payloads[1])
	if err != nil {
		return nil, nil, false, err
	}
	return paid, acct, true, nil
}

var expirePaymentScript = redis.NewScript(`
	local data = redis.call("GET", KEYS[1])
	if not data then
		return "NOT_FOUND"
	end
	local rec = cjson.decode(data)
	if rec.status ~= "pending" then
		redis.call("ZREM", KEYS[2], rec.id)
		return "SKIP"
	end
	rec.status = "expired"
	redis.call("SET", KEYS[1], cjson.encode(rec))
	redis.call("ZREM", KEYS[2], rec.id)
	return "OK"
`)

func (s *RedisStore) ExpirePayment(ctx context.Context, id string) error {
	keys := []string{fmt.Sprintf(KeyPayment, id), KeyPendingDeposits}
	code, err := expirePaymentScript.Run(ctx, s.client, keys).Text()
	if err != nil {
		return fmt.Errorf("expire payment script failed: %v", err)
	}
	if code == "NOT_FOUND" {
		return fmt.Errorf("payment %s: %w", id, models.ErrNotFound)
	}
	return nil
}

var withdrawalScript = redis.NewScript(`
	local adata = redis.call("GET", KEYS[1])
	if not adata then
		return {"NOT_FOUND"}
	end
	local acct = cjson.decode(adata)
	local amount = tonumber(ARGV[1])
	if (acct.balance or 0) < amount then
		return {"INSUFFICIENT"}
	end
	acct.balance = acct.balance - amount
	acct.total_withdrawn = (acct.total_withdrawn or 0) + amount
	acct.last_withdrawal_check_url = ARGV[3]
	redis.call("SET", KEYS[1], cjson.encode(acct))
	redis.call("SET", KEYS[2], ARGV[2])
	return {"OK", cjson.encode(acct)}
`)

func (s *RedisStore) CreateWithdrawalPaid(ctx context.Context, rec *models.PaymentRecord) (*models.Account, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payment: %v", err)
	}

	keys := []string{
		fmt.Sprintf(KeyAccount, rec.UID),
		fmt.Sprintf(KeyPayment, rec.ID),
	}
	code, payloads, err := scriptReply(withdrawalScript.Run(
		ctx, s.client, keys, rec.Amount, string(payload), rec.CheckURL).Result())
	if err != nil {
		return nil, fmt.Errorf("withdrawal script failed: %v", err)
	}
	switch code {
	case "NOT_FOUND":
		return nil, fmt.Errorf("account %d: %w", rec.UID, models.ErrNotFound)
	case "INSUFFICIENT":
		return nil, models.ErrInsufficientFunds
	}
	return unmarshalAccount(payloads[0])
}

func (s *RedisStore) PendingDepositsDue(ctx context.Context, now int64, limit int64) ([]string, error) {
	ids, err := s.client.ZRangeByScore(ctx, KeyPendingDeposits, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   fmt.Sprintf("%d", now),
		Count: limit,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list pending deposits: %v", err)
	}
	return ids, nil
}

func (s *RedisStore) GetHouseConfig(ctx context.Context) (models.HouseConfig, error) {
	data, err := s.client.Get(ctx, KeyHouseConfig).Result()
	if err == redis.Nil {
		cfg := models.DefaultHouseConfig()
		payload, merr := json.Marshal(cfg)
		if merr == nil {
			s.client.SetNX(ctx, KeyHouseConfig, payload, 0)
		}
		return cfg, nil
	}
	if err != nil {
		return models.HouseConfig{}, fmt.Errorf("failed to get house config: %v", err)
	}

	var cfg models.HouseConfig
	if err := json.Unmarshal([]byte(data), &cfg); err != nil {
		return models.HouseConfig{}, fmt.Errorf("failed to unmarshal house config: %v", err)
	}
	return cfg, nil
}

func (s *RedisStore) UpdateHouseConfig(ctx context.Context, cfg models.HouseConfig) error {
	payload, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal house config: %v", err)
	}
	return s.client.Set(ctx, KeyHouseConfig, payload, 0).Err()
}

func (s *RedisStore) SaveTransaction(ctx context.Context, tx *models.Transaction) error {
	payload, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction: %v", err)
	}

	txKey := fmt.Sprintf(KeyTransaction, tx.ID)
	if err := s.client.Set(ctx, txKey, payload, TTLTransaction).Err(); err != nil {
		return fmt.Errorf("failed to save transaction: %v", err)
	}

	userTxKey := fmt.Sprintf(KeyUserTransactions, tx.UID)
	if err := s.client.ZAdd(ctx, userTxKey, redis.Z{
		Score:  float64(tx.CreatedAt),
		Member: tx.ID,
	}).Err(); err != nil {
		return fmt.Errorf("failed to index transaction: %v", err)
	}

	// Keep only the last 100 entries per user.
	s.client.ZRemRangeByRank(ctx, userTxKey, 0, -101)

	return nil
}

func (s *RedisStore) GetTransactions(ctx context.Context, uid int64, limit int64) ([]*models.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	userTxKey := fmt.Sprintf(KeyUserTransactions, uid)
	ids, err := s.client.ZRevRange(ctx, userTxKey, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction ids: %v", err)
	}

	var out []*models.Transaction
	for _, id := range ids {
		data, err := s.client.Get(ctx, fmt.Sprintf(KeyTransaction, id)).Result()
		if err != nil {
			continue
		}
		var tx models.Transaction
		if err := json.Unmarshal([]byte(data), &tx); err != nil {
			continue
		}
		out = append(out, &tx)
	}
	return out, nil
}

func (s *RedisStore) CheckRateLimit(ctx context.Context, uid int64, action string, limit int, window time.Duration) (bool, error) {
	key := fmt.Sprintf(KeyRateLimit, uid, action)

	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit: %v", err)
	}
	if count == 1 {
		s.client.Expire(ctx, key, window)
	}
	return count <= int64(limit), nil
}
