package models

import "fmt"

// HouseConfig is the administratively mutated settings singleton. It is
// loaded at the start of each settlement or payment operation and passed
// down explicitly, never read through a global.
type HouseConfig struct {
	HouseEdge       float64 `json:"house_edge" redis:"house_edge"`
	MaintenanceMode bool    `json:"maintenance_mode" redis:"maintenance_mode"`
	MinBet          float64 `json:"min_bet" redis:"min_bet"`
	MinDeposit      float64 `json:"min_deposit" redis:"min_deposit"`
	MinWithdrawal   float64 `json:"min_withdrawal" redis:"min_withdrawal"`
}

func DefaultHouseConfig() HouseConfig {
	return HouseConfig{
		HouseEdge:     0.05,
		MinBet:        0.01,
		MinDeposit:    0.01,
		MinWithdrawal: 0.2,
	}
}

func (h HouseConfig) Validate() error {
	if h.HouseEdge < 0 || h.HouseEdge > 0.5 {
		return fmt.Errorf("%w: house edge must be between 0 and 0.5", ErrValidation)
	}
	if h.MinBet <= 0 || h.MinDeposit <= 0 || h.MinWithdrawal <= 0 {
		return fmt.Errorf("%w: minimums must be positive", ErrValidation)
	}
	return nil
}
