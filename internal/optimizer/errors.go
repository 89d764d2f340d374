package optimizer

import (
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

var (
	ErrInsufficientCandidates = errors.New("insufficient candidates")
	ErrBudgetInfeasible       = errors.New("no combination fits budget")
	ErrSolverFailure          = errors.New("solver failure")
	ErrInvalidConfig          = errors.New("invalid optimizer config")
	ErrInvalidCandidate       = errors.New("invalid candidate")
	ErrDuplicateCandidate     = errors.New("duplicate candidate")
)

// OptimizationError is the structured failure behind an error lineup. Kind is
// one of the package sentinels so callers can use errors.Is.
type OptimizationError struct {
	Kind   error
	Status string
	Detail string

	// CheapestCost is the weighted cost of the cheapest legal lineup; only
	// meaningful for ErrBudgetInfeasible.
	CheapestCost float64
}

func (e *OptimizationError) Error() string {
	msg := e.Kind.Error()
	if e.Status != "" {
		msg = fmt.Sprintf("%s (status: %s)", msg, e.Status)
	}
	if e.Detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Detail)
	}
	return msg
}

func (e *OptimizationError) Unwrap() error {
	return e.Kind
}

func insufficientCandidates(have, need int) *OptimizationError {
	return &OptimizationError{
		Kind:   ErrInsufficientCandidates,
		Detail: fmt.Sprintf("have %d candidates, lineup needs %d", have, need),
	}
}

func budgetInfeasible(cheapest float64, budget int) *OptimizationError {
	return &OptimizationError{
		Kind:         ErrBudgetInfeasible,
		Status:       statusInfeasible,
		Detail:       fmt.Sprintf("cheapest legal lineup costs %.2f, budget is %d", cheapest, budget),
		CheapestCost: cheapest,
	}
}

func solverFailure(status, detail string) *OptimizationError {
	return &OptimizationError{
		Kind:   ErrSolverFailure,
		Status: status,
		Detail: detail,
	}
}

var discard = func() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}()

func silentLogger() *logrus.Entry {
	return logrus.NewEntry(discard)
}
