package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"dreampool/internal/engine"
)

// respondEngineError maps engine sentinels to HTTP statuses. Busy and
// Conflict are retryable with fresh state; everything else signals a
// caller fault or a terminal campaign condition.
func respondEngineError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, engine.ErrInvalidAmount),
		errors.Is(err, engine.ErrInvalidSchedule):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, engine.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Campaign not found"})
	case errors.Is(err, engine.ErrCampaignNotFunding),
		errors.Is(err, engine.ErrInvalidTransition),
		errors.Is(err, engine.ErrAlreadyDrawn),
		errors.Is(err, engine.ErrEmptyLedger):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, engine.ErrBusy), errors.Is(err, engine.ErrConflict):
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error."})
	}
}
