package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"dreampool/internal/engine"
	"dreampool/internal/models"
	ws "dreampool/internal/websocket"
)

type ContributionHandler struct {
	DB     *sqlx.DB
	Engine *engine.Engine
	Hub    *ws.Hub
}

func NewContributionHandler(db *sqlx.DB, eng *engine.Engine, hub *ws.Hub) *ContributionHandler {
	return &ContributionHandler{DB: db, Engine: eng, Hub: hub}
}

type JoinCampaignRequest struct {
	AmountCents int64 `json:"amount_cents" binding:"required,gt=0"`
}

// JoinCampaign appends the caller's contribution to the campaign
// ledger and answers with their updated share. Watchers of the
// campaign get a live event; a second one when funding completes.
func (h *ContributionHandler) JoinCampaign(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	var req JoinCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	campaign, shares, err := h.Engine.RecordContribution(
		c.Request.Context(), c.Param("id"), userID, req.AmountCents)
	if err != nil {
		log.Println("Failed to record contribution:", err)
		respondEngineError(c, err)
		return
	}

	h.Hub.Broadcast <- ws.CampaignEvent{
		CampaignID:   campaign.ID,
		Type:         ws.EventContribution,
		AmountCents:  req.AmountCents,
		CurrentCents: campaign.CurrentCents,
		Participants: campaign.Participants,
	}
	if campaign.Status == models.StatusReadyToDraw {
		h.Hub.Broadcast <- ws.CampaignEvent{
			CampaignID: campaign.ID,
			Type:       ws.EventStatusChange,
			Status:     string(campaign.Status),
		}
	}

	var mine *models.ParticipantShare
	for i := range shares {
		if shares[i].ContributorID == userID {
			mine = &shares[i]
			break
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"message":       "Contribution recorded.",
		"campaign_id":   campaign.ID,
		"status":        campaign.Status,
		"current_cents": campaign.CurrentCents,
		"participants":  campaign.Participants,
		"my_share":      mine,
	})
}

// GetMyContributions lists the caller's ledger entries, newest first.
func (h *ContributionHandler) GetMyContributions(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	var contributions []models.Contribution
	query := `SELECT * FROM contributions WHERE contributor_id = $1 ORDER BY created_at DESC`
	if err := h.DB.Select(&contributions, query, userID); err != nil {
		log.Println("Failed to get contributions:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch contributions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"contributions": contributions})
}
