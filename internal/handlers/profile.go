package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"dreampool/internal/models"
)

type ProfileHandler struct {
	DB *sqlx.DB
}

func NewProfileHandler(db *sqlx.DB) *ProfileHandler {
	return &ProfileHandler{DB: db}
}

// GetMyProfile returns the caller's account plus their campaign
// totals: amount contributed, campaigns joined, created and won.
func (h *ProfileHandler) GetMyProfile(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	var profile models.User
	query := `SELECT id, email, display_name, created_at, updated_at
	          FROM users WHERE id = $1`
	if err := h.DB.Get(&profile, query, userID); err != nil {
		log.Println("Failed to get user profile:", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
		return
	}

	var totals struct {
		ContributedCents int64 `db:"contributed_cents"`
		JoinedCampaigns  int   `db:"joined_campaigns"`
	}
	query = `SELECT COALESCE(SUM(amount_cents), 0) AS contributed_cents,
	                COUNT(DISTINCT campaign_id) AS joined_campaigns
	         FROM contributions WHERE contributor_id = $1`
	if err := h.DB.Get(&totals, query, userID); err != nil {
		log.Println("Failed to get contribution totals:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error."})
		return
	}

	var createdCampaigns int
	if err := h.DB.Get(&createdCampaigns,
		`SELECT COUNT(*) FROM campaigns WHERE creator_id = $1`, userID); err != nil {
		log.Println("Failed to count created campaigns:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error."})
		return
	}

	var won struct {
		Count      int   `db:"count"`
		TotalCents int64 `db:"total_cents"`
	}
	query = `SELECT COUNT(*) AS count,
	                COALESCE(SUM(winner_payout_cents), 0) AS total_cents
	         FROM settlements WHERE selected_contributor_id = $1`
	if err := h.DB.Get(&won, query, userID); err != nil {
		log.Println("Failed to get winnings:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error."})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":                profile.ID,
		"email":             profile.Email,
		"display_name":      profile.DisplayName,
		"created_at":        profile.CreatedAt,
		"contributed_cents": totals.ContributedCents,
		"joined_campaigns":  totals.JoinedCampaigns,
		"created_campaigns": createdCampaigns,
		"campaigns_won":     won.Count,
		"won_cents":         won.TotalCents,
	})
}
