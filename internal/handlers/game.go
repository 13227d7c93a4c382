package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"spinbet-backend/internal/models"
	"spinbet-backend/internal/services"
)

type GameHandler struct {
	slots    *services.SlotEngine
	coinflip *services.CoinflipEngine
	store    services.Store
}

func NewGameHandler(slots *services.SlotEngine, coinflip *services.CoinflipEngine, store services.Store) *GameHandler {
	return &GameHandler{
		slots:    slots,
		coinflip: coinflip,
		store:    store,
	}
}

func (h *GameHandler) Spin(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req models.SpinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	round, acct, err := h.slots.Spin(c.Request.Context(), userID, &req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"round":   round.Public(),
		"balance": acct.Balance,
	})
}

func (h *GameHandler) StopReel(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req models.StopReelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	round, err := h.slots.StopReel(c.Request.Context(), userID, &req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"round":   round.Public(),
	})
}

func (h *GameHandler) SettleSlots(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req models.SettleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	round, acct, err := h.slots.Settle(c.Request.Context(), userID, req.RoundID)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"round":   round.Public(),
		"balance": acct.Balance,
	})
}

func (h *GameHandler) StartCoinflip(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req models.FlipStartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	round, acct, err := h.coinflip.Start(c.Request.Context(), userID, &req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"round":   round.Public(),
		"balance": acct.Balance,
	})
}

func (h *GameHandler) Flip(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req models.FlipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	round, err := h.coinflip.Flip(c.Request.Context(), userID, &req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"round":   round.Public(),
	})
}

func (h *GameHandler) SettleCoinflip(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req models.SettleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	round, acct, err := h.coinflip.Settle(c.Request.Context(), userID, req.RoundID)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"round":   round.Public(),
		"balance": acct.Balance,
	})
}

func (h *GameHandler) GetRound(c *gin.Context) {
	userID := c.GetInt64("user_id")

	round, err := h.store.GetRound(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if round.UID != userID {
		fail(c, models.ErrNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"round":   round.Public(),
	})
}

// VerifyRound lets anyone re-run the fairness math for a settled round:
// confirm the hash commits to the seed, then recompute the outcome from
// the two seeds.
func (h *GameHandler) VerifyRound(c *gin.Context) {
	var req models.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	if !services.VerifyCommitment(req.ServerSeed, req.ServerHash) {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"verification": gin.H{
				"valid":  false,
				"reason": "server hash does not match server seed",
			},
		})
		return
	}

	verification := gin.H{"valid": true}
	switch req.Game {
	case models.GameTypeCoinflip:
		verification["outcome"] = services.DeriveCoinFace(req.ServerSeed, req.ClientSeed)
	case models.GameTypeSlots:
		reels := make([][]int, models.ReelCount)
		for reel := 0; reel < models.ReelCount; reel++ {
			reels[reel] = services.DeriveReelStops(req.ServerSeed, req.ClientSeed, reel)
		}
		verification["reels"] = reels
	default:
		fail(c, models.ErrValidation)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"verification": verification,
	})
}
