package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"dreampool/internal/engine"
	"dreampool/internal/models"
	ws "dreampool/internal/websocket"
)

type DrawHandler struct {
	Engine *engine.Engine
	Repo   engine.Repository
	Hub    *ws.Hub
}

func NewDrawHandler(eng *engine.Engine, repo engine.Repository, hub *ws.Hub) *DrawHandler {
	return &DrawHandler{Engine: eng, Repo: repo, Hub: hub}
}

// Draw runs the weighted selection for a fully funded campaign. Only
// the campaign creator may trigger it.
func (h *DrawHandler) Draw(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	campaignID := c.Param("id")

	if !h.requireCreator(c, campaignID, userID) {
		return
	}

	campaign, err := h.Engine.Draw(c.Request.Context(), campaignID)
	if err != nil {
		log.Println("Draw failed for campaign", campaignID+":", err)
		respondEngineError(c, err)
		return
	}

	h.Hub.Broadcast <- ws.CampaignEvent{
		CampaignID: campaign.ID,
		Type:       ws.EventSettlement,
		Status:     string(campaign.Status),
		Payload:    campaign.Settlement,
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Draw completed.",
		"status":     campaign.Status,
		"settlement": campaign.Settlement,
		"refunds":    campaign.Refunds,
	})
}

// Complete archives a settled campaign.
func (h *DrawHandler) Complete(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	campaignID := c.Param("id")

	if !h.requireCreator(c, campaignID, userID) {
		return
	}

	campaign, err := h.Engine.Complete(c.Request.Context(), campaignID)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	h.Hub.Broadcast <- ws.CampaignEvent{
		CampaignID: campaign.ID,
		Type:       ws.EventStatusChange,
		Status:     string(campaign.Status),
	}

	c.JSON(http.StatusOK, gin.H{"message": "Campaign completed.", "status": campaign.Status})
}

// Tick evaluates deadline transitions for one campaign. Schedulers
// and impatient clients may both call it; it is safe to repeat.
func (h *DrawHandler) Tick(c *gin.Context) {
	campaignID := c.Param("id")

	before, err := h.Repo.Load(c.Request.Context(), campaignID)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	prior := before.Status

	campaign, err := h.Engine.Tick(c.Request.Context(), campaignID)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	if campaign.Status != prior {
		h.Hub.Broadcast <- ws.CampaignEvent{
			CampaignID: campaign.ID,
			Type:       ws.EventStatusChange,
			Status:     string(campaign.Status),
		}
	}

	response := gin.H{"status": campaign.Status}
	if campaign.Status == models.StatusFailed {
		response["refunds"] = campaign.Refunds
	}
	c.JSON(http.StatusOK, response)
}

func (h *DrawHandler) requireCreator(c *gin.Context, campaignID string, userID int) bool {
	campaign, err := h.Repo.Load(c.Request.Context(), campaignID)
	if err != nil {
		respondEngineError(c, err)
		return false
	}
	if campaign.CreatorID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the campaign creator can do this"})
		return false
	}
	return true
}
