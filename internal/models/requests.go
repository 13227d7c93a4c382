package models

import "fmt"

type SpinRequest struct {
	Stake float64 `json:"stake" binding:"required"`
}

type StopReelRequest struct {
	RoundID    string `json:"round_id" binding:"required"`
	Reel       int    `json:"reel"`
	ClientSeed string `json:"client_seed"`
}

type FlipStartRequest struct {
	Stake  float64  `json:"stake" binding:"required"`
	Choice CoinFace `json:"choice" binding:"required"`
}

type FlipRequest struct {
	RoundID    string `json:"round_id" binding:"required"`
	ClientSeed string `json:"client_seed" binding:"required"`
}

type SettleRequest struct {
	RoundID string `json:"round_id" binding:"required"`
}

type DepositRequest struct {
	Amount float64 `json:"amount" binding:"required"`
}

type WithdrawRequest struct {
	Amount float64 `json:"amount" binding:"required"`
}

type VerifyRequest struct {
	Game       GameType `json:"game" binding:"required"`
	ServerSeed string   `json:"server_seed" binding:"required"`
	ServerHash string   `json:"server_hash" binding:"required"`
	ClientSeed string   `json:"client_seed" binding:"required"`
}

func (r *FlipStartRequest) Validate() error {
	if r.Choice != CoinFaceHeads && r.Choice != CoinFaceTails {
		return fmt.Errorf("%w: choose heads or tails", ErrValidation)
	}
	return nil
}

func (r *StopReelRequest) Validate() error {
	if r.Reel < 0 || r.Reel >= ReelCount {
		return fmt.Errorf("%w: reel index must be 0..%d", ErrValidation, ReelCount-1)
	}
	return nil
}
