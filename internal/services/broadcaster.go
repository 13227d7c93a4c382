package services

import "spinbet-backend/internal/models"

// Broadcaster pushes live events to connected clients. The WebSocket hub
// implements it; engines treat it as optional.
type Broadcaster interface {
	BroadcastSettlement(uid int64, game models.GameType, stake, payout float64)
	BroadcastBalance(uid int64, balance float64)
}

// NopBroadcaster is used when no hub is wired, e.g. in tests.
type NopBroadcaster struct{}

func (NopBroadcaster) BroadcastSettlement(int64, models.GameType, float64, float64) {}
func (NopBroadcaster) BroadcastBalance(int64, float64)                              {}
