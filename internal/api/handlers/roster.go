package handlers

import (
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/dfs-showdown/internal/models"
	"github.com/stitts-dev/dfs-showdown/internal/services"
	"github.com/stitts-dev/dfs-showdown/pkg/utils"
)

const maxImportBytes = 5 << 20

type RosterHandler struct {
	roster *services.RosterService
	logger *logrus.Entry
}

func NewRosterHandler(roster *services.RosterService, logger *logrus.Entry) *RosterHandler {
	return &RosterHandler{roster: roster, logger: logger}
}

// GetRoster handles GET /rosters/:date. Pass all=true to include inactive
// players.
func (h *RosterHandler) GetRoster(c *gin.Context) {
	date := c.Param("date")
	if !validDate(date) {
		utils.SendValidationError(c, "Invalid date", "expected YYYY-MM-DD")
		return
	}

	entries, err := h.roster.ListByDate(c.Request.Context(), date, c.Query("all") != "true")
	if err != nil {
		respondError(c, "Failed to load roster", err)
		return
	}
	utils.SendSuccessWithMeta(c, entries, &utils.Meta{Total: int64(len(entries))})
}

// ImportCSV handles POST /rosters/import with either a multipart "file"
// field or a text/csv body.
func (h *RosterHandler) ImportCSV(c *gin.Context) {
	var body io.Reader
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("file")
		if err != nil {
			utils.SendValidationError(c, "Missing file field", err.Error())
			return
		}
		f, err := fh.Open()
		if err != nil {
			utils.SendValidationError(c, "Unreadable upload", err.Error())
			return
		}
		defer f.Close()
		body = f
	} else {
		body = c.Request.Body
	}

	n, err := h.roster.ImportCSV(c.Request.Context(), io.LimitReader(body, maxImportBytes))
	if err != nil {
		respondError(c, "Roster import failed", err)
		return
	}

	h.logger.WithField("rows", n).Info("Roster imported via API")
	utils.SendSuccessWithMeta(c, gin.H{"imported": n}, &utils.Meta{Total: int64(n)})
}

type ResultInput struct {
	PlayerName string  `json:"player_name" binding:"required"`
	ActualFPPG float64 `json:"actual_fppg"`
	IsMVP      bool    `json:"is_mvp"`
	Team       string  `json:"team"`
}

type RecordResultsRequest struct {
	Date    string        `json:"date" binding:"required"`
	Results []ResultInput `json:"results" binding:"required,min=1,dive"`
}

// RecordResults handles POST /results.
func (h *RosterHandler) RecordResults(c *gin.Context) {
	var req RecordResultsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request format", err.Error())
		return
	}
	if !validDate(req.Date) {
		utils.SendValidationError(c, "Invalid date", "expected YYYY-MM-DD")
		return
	}

	results := make([]models.PlayerResult, len(req.Results))
	for i, r := range req.Results {
		results[i] = models.PlayerResult{
			Date:       req.Date,
			PlayerName: r.PlayerName,
			ActualFPPG: r.ActualFPPG,
			IsMVP:      r.IsMVP,
			Team:       r.Team,
		}
	}
	if err := h.roster.RecordResults(c.Request.Context(), results); err != nil {
		respondError(c, "Failed to record results", err)
		return
	}
	utils.SendSuccessWithMeta(c, gin.H{"recorded": len(results)}, &utils.Meta{Total: int64(len(results))})
}
