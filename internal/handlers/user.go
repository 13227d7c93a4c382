package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"spinbet-backend/internal/services"
)

type UserHandler struct {
	store services.Store
}

func NewUserHandler(store services.Store) *UserHandler {
	return &UserHandler{store: store}
}

func (h *UserHandler) GetCurrentUser(c *gin.Context) {
	userID := c.GetInt64("user_id")

	acct, err := h.store.GetAccount(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user": gin.H{
			"id":          acct.UID,
			"balance":     acct.Balance,
			"referred_by": acct.ReferredBy,
			"created_at":  acct.CreatedAt,
		},
	})
}

func (h *UserHandler) GetStats(c *gin.Context) {
	userID := c.GetInt64("user_id")

	acct, err := h.store.GetAccount(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}

	winRate := 0.0
	if acct.TotalGames > 0 {
		winRate = float64(acct.TotalWins) / float64(acct.TotalGames)
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stats": gin.H{
			"total_games":       acct.TotalGames,
			"total_wins":        acct.TotalWins,
			"win_rate":          winRate,
			"total_wagered":     acct.TotalWagered,
			"total_deposited":   acct.TotalDeposited,
			"total_withdrawn":   acct.TotalWithdrawn,
			"referral_earnings": acct.ReferralEarnings,
		},
	})
}
