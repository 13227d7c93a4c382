package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"spinbet-backend/internal/models"
	"spinbet-backend/internal/services"
)

type AdminHandler struct {
	store  services.Store
	secret string
}

func NewAdminHandler(store services.Store, secret string) *AdminHandler {
	return &AdminHandler{
		store:  store,
		secret: secret,
	}
}

func (h *AdminHandler) authorized(c *gin.Context) bool {
	if h.secret == "" || c.GetHeader("X-Admin-Secret") != h.secret {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Unauthorized"})
		return false
	}
	return true
}

func (h *AdminHandler) GetHouseConfig(c *gin.Context) {
	if !h.authorized(c) {
		return
	}

	cfg, err := h.store.GetHouseConfig(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"config":  cfg,
	})
}

func (h *AdminHandler) UpdateHouseConfig(c *gin.Context) {
	if !h.authorized(c) {
		return
	}

	var cfg models.HouseConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := cfg.Validate(); err != nil {
		fail(c, err)
		return
	}

	if err := h.store.UpdateHouseConfig(c.Request.Context(), cfg); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"config":  cfg,
	})
}
