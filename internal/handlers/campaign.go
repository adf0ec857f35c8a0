package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dreampool/internal/countdown"
	"dreampool/internal/engine"
	"dreampool/internal/models"
)

type CampaignHandler struct {
	Engine *engine.Engine
	Repo   engine.Repository
	Clock  engine.Clock
}

func NewCampaignHandler(eng *engine.Engine, repo engine.Repository, clock engine.Clock) *CampaignHandler {
	return &CampaignHandler{Engine: eng, Repo: repo, Clock: clock}
}

type CreateCampaignRequest struct {
	Title       string    `json:"title" binding:"required,min=3,max=100"`
	Story       string    `json:"story" binding:"required,min=10"`
	ImageURL    string    `json:"image_url"`
	TargetCents int64     `json:"target_cents" binding:"required,gt=0"`
	Deadline    time.Time `json:"deadline" binding:"required"`
}

func (h *CampaignHandler) CreateCampaign(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	var req CreateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	if !req.Deadline.After(h.Clock.Now()) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Deadline must be in the future"})
		return
	}

	campaign, err := h.Engine.CreateCampaign(c.Request.Context(),
		userID, req.Title, req.Story, req.ImageURL, req.TargetCents, req.Deadline.UTC())
	if err != nil {
		log.Println("Failed to create campaign:", err)
		respondEngineError(c, err)
		return
	}

	c.JSON(http.StatusCreated, h.campaignView(campaign, nil))
}

// ListCampaigns is the public feed, newest first, with live countdowns.
func (h *CampaignHandler) ListCampaigns(c *gin.Context) {
	campaigns, err := h.Repo.List(c.Request.Context())
	if err != nil {
		log.Println("Failed to list campaigns:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch campaigns"})
		return
	}

	views := make([]gin.H, 0, len(campaigns))
	for i := range campaigns {
		views = append(views, h.campaignView(&campaigns[i], nil))
	}
	c.JSON(http.StatusOK, gin.H{"campaigns": views})
}

// GetCampaign is the detail view: countdown, participant shares and the
// settlement once one exists.
func (h *CampaignHandler) GetCampaign(c *gin.Context) {
	campaign, err := h.Repo.Load(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondEngineError(c, err)
		return
	}

	shares := engine.ComputeShares(campaign.Ledger, campaign.CurrentCents)
	c.JSON(http.StatusOK, h.campaignView(campaign, shares))
}

func (h *CampaignHandler) campaignView(campaign *models.Campaign, shares []models.ParticipantShare) gin.H {
	view := gin.H{
		"id":            campaign.ID,
		"creator_id":    campaign.CreatorID,
		"title":         campaign.Title,
		"story":         campaign.Story,
		"image_url":     campaign.ImageURL,
		"target_cents":  campaign.TargetCents,
		"current_cents": campaign.CurrentCents,
		"deadline":      campaign.Deadline,
		"status":        campaign.Status,
		"participants":  campaign.Participants,
		"created_at":    campaign.CreatedAt,
		"countdown":     countdown.Evaluate(campaign.Deadline, h.Clock.Now()),
	}
	if shares != nil {
		view["shares"] = shares
	}
	if campaign.Settlement != nil {
		view["settlement"] = campaign.Settlement
	}
	if len(campaign.Refunds) > 0 {
		view["refunds"] = campaign.Refunds
	}
	return view
}

// callerID pulls the authenticated user id set by the auth middleware.
func callerID(c *gin.Context) (int, bool) {
	value, exists := c.Get("userID")
	if !exists {
		log.Println("UserID not found in context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error: UserID not found"})
		return 0, false
	}
	userID, ok := value.(int)
	if !ok {
		log.Println("UserID in context is not an int")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error: UserID invalid format"})
		return 0, false
	}
	return userID, true
}
