package utils

import "fmt"

// AppError is the error body of every failed API response.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func NewAppError(code string, message string, details ...string) *AppError {
	err := &AppError{
		Code:    code,
		Message: message,
	}
	if len(details) > 0 {
		err.Details = details[0]
	}
	return err
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s - %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

const (
	ErrCodeValidation             = "VALIDATION_ERROR"
	ErrCodeNotFound               = "NOT_FOUND"
	ErrCodeUnauthorized           = "UNAUTHORIZED"
	ErrCodeInternal               = "INTERNAL_ERROR"
	ErrCodeConflict               = "CONFLICT"
	ErrCodeInsufficientCandidates = "INSUFFICIENT_CANDIDATES"
	ErrCodeBudgetInfeasible       = "BUDGET_INFEASIBLE"
	ErrCodeSolverFailure          = "SOLVER_FAILURE"
	ErrCodeModelNotTrained        = "MODEL_NOT_TRAINED"
	ErrCodeUpstreamUnavailable    = "UPSTREAM_UNAVAILABLE"
	ErrCodeRateLimited            = "RATE_LIMITED"
)
