package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"spinbet-backend/internal/models"
	"spinbet-backend/internal/services"
)

type WalletHandler struct {
	payments     *services.PaymentService
	store        services.Store
	webhookToken string
}

func NewWalletHandler(payments *services.PaymentService, store services.Store, webhookToken string) *WalletHandler {
	return &WalletHandler{
		payments:     payments,
		store:        store,
		webhookToken: webhookToken,
	}
}

func (h *WalletHandler) GetBalance(c *gin.Context) {
	userID := c.GetInt64("user_id")

	acct, err := h.store.GetAccount(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"balance": gin.H{
			"available":       acct.Balance,
			"total_deposited": acct.TotalDeposited,
			"total_withdrawn": acct.TotalWithdrawn,
			"total_wagered":   acct.TotalWagered,
		},
	})
}

func (h *WalletHandler) Deposit(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req models.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	rec, err := h.payments.Deposit(c.Request.Context(), userID, req.Amount)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"payment": gin.H{
			"id":         rec.ID,
			"amount":     rec.Amount,
			"status":     rec.Status,
			"pay_url":    rec.PayURL,
			"expires_at": rec.ExpiresAt,
		},
	})
}

func (h *WalletHandler) CheckDeposit(c *gin.Context) {
	userID := c.GetInt64("user_id")

	rec, acct, err := h.payments.CheckDeposit(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	resp := gin.H{
		"success": true,
		"payment": gin.H{
			"id":      rec.ID,
			"amount":  rec.Amount,
			"status":  rec.Status,
			"paid_at": rec.PaidAt,
		},
	}
	if acct != nil {
		resp["balance"] = acct.Balance
	}
	c.JSON(http.StatusOK, resp)
}

// Webhook is the gateway's push notification for a paid invoice. It shares
// the compare-and-set with the poll path, so a webhook racing a check still
// credits exactly once.
func (h *WalletHandler) Webhook(c *gin.Context) {
	if h.webhookToken == "" || c.GetHeader("X-Gateway-Token") != h.webhookToken {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Unauthorized"})
		return
	}

	var payload struct {
		InvoiceID string `json:"invoice_id" binding:"required"`
		Status    string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		badRequest(c, err.Error())
		return
	}

	if services.NormalizeGatewayStatus(payload.Status) != models.PaymentStatusPaid {
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	}

	rec, _, err := h.payments.HandlePaidNotification(c.Request.Context(), payload.InvoiceID)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"status":  rec.Status,
	})
}

func (h *WalletHandler) Withdraw(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req models.WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	rec, acct, err := h.payments.Withdraw(c.Request.Context(), userID, req.Amount)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"payment": gin.H{
			"id":        rec.ID,
			"amount":    rec.Amount,
			"status":    rec.Status,
			"check_url": rec.CheckURL,
		},
		"balance": acct.Balance,
	})
}

func (h *WalletHandler) ClaimBonus(c *gin.Context) {
	userID := c.GetInt64("user_id")

	acct, err := h.payments.ClaimDailyBonus(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"bonus":   services.DailyBonusAmount,
		"balance": acct.Balance,
	})
}

func (h *WalletHandler) GetTransactions(c *gin.Context) {
	userID := c.GetInt64("user_id")

	limit, err := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)
	if err != nil || limit <= 0 || limit > 100 {
		limit = 50
	}

	txs, err := h.store.GetTransactions(c.Request.Context(), userID, limit)
	if err != nil {
		fail(c, err)
		return
	}

	response := make([]gin.H, 0, len(txs))
	for _, tx := range txs {
		response = append(response, gin.H{
			"id":          tx.ID,
			"type":        tx.Type,
			"amount":      tx.Amount,
			"round_id":    tx.RoundID,
			"payment_id":  tx.PaymentID,
			"description": tx.Description,
			"created_at":  tx.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"transactions": response,
		"count":        len(response),
	})
}
