package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/dfs-showdown/internal/overunder"
	"github.com/stitts-dev/dfs-showdown/internal/services"
	"github.com/stitts-dev/dfs-showdown/pkg/utils"
)

const (
	defaultSyntheticSamples = 1000
	maxSyntheticSamples     = 20000
)

type OverUnderHandler struct {
	overUnder *services.OverUnderService
	logger    *logrus.Entry
}

func NewOverUnderHandler(overUnder *services.OverUnderService, logger *logrus.Entry) *OverUnderHandler {
	return &OverUnderHandler{overUnder: overUnder, logger: logger}
}

// PredictRequest lists games by feature name. Missing features fall back to
// league-average defaults.
type PredictRequest struct {
	Games []map[string]float64 `json:"games" binding:"required,min=1"`
}

// Predict handles POST /over-under/predict.
func (h *OverUnderHandler) Predict(c *gin.Context) {
	var req PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request format", err.Error())
		return
	}

	features := make([]overunder.GameFeatures, len(req.Games))
	for i, g := range req.Games {
		features[i] = overunder.FeaturesFromMap(g)
	}
	preds, err := h.overUnder.Predict(features)
	if err != nil {
		respondError(c, "Prediction failed", err)
		return
	}
	utils.SendSuccessWithMeta(c, preds, &utils.Meta{Total: int64(len(preds))})
}

// GetGames handles GET /over-under/games/:date.
func (h *OverUnderHandler) GetGames(c *gin.Context) {
	date := c.Param("date")
	if !validDate(date) {
		utils.SendValidationError(c, "Invalid date", "expected YYYY-MM-DD")
		return
	}

	games, err := h.overUnder.GamesForDate(c.Request.Context(), date)
	if err != nil {
		respondError(c, "Failed to load game predictions", err)
		return
	}
	utils.SendSuccessWithMeta(c, games, &utils.Meta{Total: int64(len(games))})
}

type TrainRequest struct {
	Synthetic bool  `json:"synthetic"`
	Samples   int   `json:"samples"`
	Seed      int64 `json:"seed"`
}

// Train handles POST /over-under/train. Without synthetic it trains on
// stored games with final scores.
func (h *OverUnderHandler) Train(c *gin.Context) {
	var req TrainRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.SendValidationError(c, "Invalid request format", err.Error())
			return
		}
	}

	var (
		report *overunder.TrainingReport
		err    error
	)
	if req.Synthetic {
		n := req.Samples
		if n <= 0 {
			n = defaultSyntheticSamples
		}
		if n > maxSyntheticSamples {
			utils.SendValidationError(c, "Too many samples", "at most 20000 synthetic samples")
			return
		}
		report, err = h.overUnder.TrainSynthetic(c.Request.Context(), n, req.Seed)
	} else {
		report, err = h.overUnder.TrainFromHistory(c.Request.Context())
	}
	if err != nil {
		respondError(c, "Training failed", err)
		return
	}
	utils.SendSuccess(c, report)
}
