package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"spinbet-backend/internal/models"
)

// fail writes the uniform error shape. The HTTP class follows the error
// taxonomy: client mistakes are 4xx, gateway trouble is 503, anything
// unclassified is 500.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrInsufficientFunds):
		status = http.StatusPaymentRequired
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrAlreadySettled),
		errors.Is(err, models.ErrInvalidRoundState),
		errors.Is(err, models.ErrNotReady),
		errors.Is(err, models.ErrPaymentClosed),
		errors.Is(err, models.ErrBonusNotReady):
		status = http.StatusConflict
	case errors.Is(err, models.ErrMaintenance), errors.Is(err, models.ErrGateway):
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"success": false,
		"error":   err.Error(),
		"code":    models.ErrorCode(err),
	})
}

func badRequest(c *gin.Context, details string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   "Invalid request",
		"code":    "VALIDATION_ERROR",
		"details": details,
	})
}
