package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/dfs-showdown/internal/optimizer"
	"github.com/stitts-dev/dfs-showdown/internal/services"
	"github.com/stitts-dev/dfs-showdown/pkg/utils"
)

// OptimizeRequest takes either an explicit roster or a date whose stored
// slate is used. Shape overrides apply to either.
type OptimizeRequest struct {
	Date   string                `json:"date"`
	Roster []optimizer.Candidate `json:"roster"`
	services.ConfigOverrides
}

type OptimizerHandler struct {
	lineups *services.LineupService
	roster  *services.RosterService
	logger  *logrus.Entry
}

func NewOptimizerHandler(lineups *services.LineupService, roster *services.RosterService, logger *logrus.Entry) *OptimizerHandler {
	return &OptimizerHandler{
		lineups: lineups,
		roster:  roster,
		logger:  logger,
	}
}

func (h *OptimizerHandler) bind(c *gin.Context) (*OptimizeRequest, bool) {
	var req OptimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request format", err.Error())
		return nil, false
	}
	if len(req.Roster) == 0 && req.Date == "" {
		utils.SendValidationError(c, "Either roster or date is required", "")
		return nil, false
	}
	if req.Date != "" && !validDate(req.Date) {
		utils.SendValidationError(c, "Invalid date", "expected YYYY-MM-DD")
		return nil, false
	}
	return &req, true
}

// Optimize handles POST /optimize.
func (h *OptimizerHandler) Optimize(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}

	var (
		res *services.OptimizeResult
		err error
	)
	ctx := c.Request.Context()
	if len(req.Roster) > 0 {
		res, err = h.lineups.OptimizeRoster(ctx, req.Date, req.Roster, h.lineups.Config(&req.ConfigOverrides))
	} else {
		res, err = h.lineups.OptimizeDate(ctx, req.Date, &req.ConfigOverrides)
	}
	if err != nil {
		var data interface{}
		if res != nil {
			data = res.Lineup
		}
		respondErrorWithData(c, "Optimization failed", err, data)
		return
	}

	utils.SendSuccessWithMeta(c, res.Lineup, &utils.Meta{
		CacheHit: res.CacheHit,
		RunID:    res.RunID.String(),
	})
}

// Sweep handles POST /optimize/sweep.
func (h *OptimizerHandler) Sweep(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}

	var (
		out *services.SweepOutcome
		err error
	)
	ctx := c.Request.Context()
	if len(req.Roster) > 0 {
		out, err = h.lineups.SweepRoster(ctx, req.Date, req.Roster, h.lineups.Config(&req.ConfigOverrides))
	} else {
		out, err = h.lineups.SweepDate(ctx, req.Date, &req.ConfigOverrides)
	}
	if err != nil {
		respondError(c, "Sweep failed", err)
		return
	}

	utils.SendSuccessWithMeta(c, gin.H{
		"entries":    out.Result.Entries,
		"feasible":   out.Result.Feasible,
		"infeasible": out.Result.Infeasible,
		"best":       out.Best,
	}, &utils.Meta{
		Total:    int64(len(out.Result.Entries)),
		CacheHit: out.CacheHit,
		RunID:    out.RunID.String(),
	})
}

// ListRuns handles GET /optimize/runs?date=&limit=.
func (h *OptimizerHandler) ListRuns(c *gin.Context) {
	date := c.Query("date")
	if date != "" && !validDate(date) {
		utils.SendValidationError(c, "Invalid date", "expected YYYY-MM-DD")
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	runs, err := h.roster.ListRuns(c.Request.Context(), date, limit)
	if err != nil {
		respondError(c, "Failed to list runs", err)
		return
	}
	utils.SendSuccessWithMeta(c, runs, &utils.Meta{Total: int64(len(runs))})
}

// GetRun handles GET /optimize/runs/:id.
func (h *OptimizerHandler) GetRun(c *gin.Context) {
	id, ok := runID(c)
	if !ok {
		return
	}
	run, err := h.roster.GetRun(c.Request.Context(), id)
	if err != nil {
		respondError(c, "Failed to load run", err)
		return
	}
	utils.SendSuccess(c, run)
}

// CompareRun handles GET /optimize/runs/:id/compare.
func (h *OptimizerHandler) CompareRun(c *gin.Context) {
	id, ok := runID(c)
	if !ok {
		return
	}
	cmp, err := h.roster.CompareWithResults(c.Request.Context(), id)
	if err != nil {
		respondError(c, "Failed to compare run", err)
		return
	}
	utils.SendSuccess(c, cmp)
}

func runID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.SendValidationError(c, "Invalid run id", err.Error())
		return uuid.Nil, false
	}
	return id, true
}
