package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stitts-dev/dfs-showdown/internal/optimizer"
	"github.com/stitts-dev/dfs-showdown/internal/overunder"
	"github.com/stitts-dev/dfs-showdown/internal/providers"
	"github.com/stitts-dev/dfs-showdown/internal/services"
	"github.com/stitts-dev/dfs-showdown/pkg/utils"
)

const dateLayout = "2006-01-02"

// classify maps domain errors to an HTTP status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, optimizer.ErrInsufficientCandidates), errors.Is(err, services.ErrNotEnoughPlayers):
		return http.StatusUnprocessableEntity, utils.ErrCodeInsufficientCandidates
	case errors.Is(err, optimizer.ErrBudgetInfeasible):
		return http.StatusUnprocessableEntity, utils.ErrCodeBudgetInfeasible
	case errors.Is(err, optimizer.ErrSolverFailure):
		return http.StatusUnprocessableEntity, utils.ErrCodeSolverFailure
	case errors.Is(err, optimizer.ErrInvalidConfig),
		errors.Is(err, optimizer.ErrInvalidCandidate),
		errors.Is(err, optimizer.ErrDuplicateCandidate),
		errors.Is(err, services.ErrInvalidCSV):
		return http.StatusBadRequest, utils.ErrCodeValidation
	case errors.Is(err, overunder.ErrNotEnoughSamples):
		return http.StatusUnprocessableEntity, utils.ErrCodeValidation
	case errors.Is(err, services.ErrRunNotFound):
		return http.StatusNotFound, utils.ErrCodeNotFound
	case errors.Is(err, services.ErrNoLineup), errors.Is(err, services.ErrNoResultsYet):
		return http.StatusConflict, utils.ErrCodeConflict
	case errors.Is(err, overunder.ErrModelNotTrained):
		return http.StatusConflict, utils.ErrCodeModelNotTrained
	case errors.Is(err, providers.ErrUpstreamUnavailable), errors.Is(err, services.ErrNoGameSource):
		return http.StatusServiceUnavailable, utils.ErrCodeUpstreamUnavailable
	default:
		return http.StatusInternalServerError, utils.ErrCodeInternal
	}
}

func respondError(c *gin.Context, message string, err error) {
	respondErrorWithData(c, message, err, nil)
}

// respondErrorWithData keeps a partial result, such as an error lineup, in
// the response body.
func respondErrorWithData(c *gin.Context, message string, err error, data interface{}) {
	status, code := classify(err)
	_ = c.Error(err)
	details := err.Error()
	if status == http.StatusInternalServerError {
		details = ""
	}
	utils.SendErrorWithData(c, status, utils.NewAppError(code, message, details), data)
}

func validDate(date string) bool {
	_, err := time.Parse(dateLayout, date)
	return err == nil
}
