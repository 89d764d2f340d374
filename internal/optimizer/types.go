package optimizer

import (
	"math"

	"github.com/sirupsen/logrus"
)

const (
	DefaultBudget            = 60000
	DefaultPremiumMultiplier = 1.5
	DefaultPremiumCount      = 1
	DefaultStandardCount     = 5

	defaultMaxNodes  = 200000
	defaultTolerance = 1e-9
	defaultWorkers   = 4

	StatusSuccess = "success"
	StatusError   = "error"
)

// Candidate is one player entry offered to the optimizer. Position and Team
// are carried through to the result untouched.
type Candidate struct {
	ID              string  `json:"id,omitempty"`
	Name            string  `json:"name"`
	Salary          int     `json:"salary"`
	ProjectedPoints float64 `json:"projected_points"`
	Position        string  `json:"position,omitempty"`
	Team            string  `json:"team,omitempty"`
}

// Key identifies the candidate within a single optimization call.
func (c Candidate) Key() string {
	if c.ID != "" {
		return c.ID
	}
	return c.Name
}

// Config holds the lineup shape and solver limits for one call.
type Config struct {
	Budget            int     `json:"budget"`
	PremiumMultiplier float64 `json:"premium_multiplier"`
	PremiumCount      int     `json:"premium_count"`
	StandardCount     int     `json:"standard_count"`

	// MaxNodes caps the branch-and-bound search tree. Zero means the default.
	MaxNodes int `json:"max_nodes,omitempty"`
	// Tolerance is the integrality and objective comparison tolerance.
	Tolerance float64 `json:"tolerance,omitempty"`
	// Workers bounds the sweep fan-out.
	Workers int `json:"workers,omitempty"`

	Logger *logrus.Entry `json:"-"`
}

// DefaultConfig returns the showdown contest shape: one MVP at 1.5x plus five
// utility slots under a 60,000 salary budget.
func DefaultConfig() Config {
	return Config{
		Budget:            DefaultBudget,
		PremiumMultiplier: DefaultPremiumMultiplier,
		PremiumCount:      DefaultPremiumCount,
		StandardCount:     DefaultStandardCount,
	}
}

// Slots is the number of roster spots a lineup fills.
func (c Config) Slots() int {
	return c.PremiumCount + c.StandardCount
}

func (c Config) withSolverDefaults() Config {
	if c.MaxNodes <= 0 {
		c.MaxNodes = defaultMaxNodes
	}
	if c.Tolerance <= 0 || math.IsNaN(c.Tolerance) {
		c.Tolerance = defaultTolerance
	}
	if c.Workers <= 0 {
		c.Workers = defaultWorkers
	}
	if c.Logger == nil {
		c.Logger = silentLogger()
	}
	return c
}

// Lineup is the optimizer's answer. On failure Status is "error", Message
// explains why and no role is populated.
type Lineup struct {
	// Premium is the first premium occupant, kept separate for the common
	// single-MVP contest shape.
	Premium     *Candidate  `json:"premium"`
	Premiums    []Candidate `json:"premiums,omitempty"`
	Standards   []Candidate `json:"standards"`
	TotalCost   float64     `json:"total_cost"`
	TotalPoints float64     `json:"total_points"`
	Status      string      `json:"status"`
	Message     string      `json:"message,omitempty"`
	Solver      SolverStats `json:"solver"`
}

// Succeeded reports whether the roles of the lineup can be trusted.
func (l *Lineup) Succeeded() bool {
	return l != nil && l.Status == StatusSuccess
}

// Players returns premium occupants followed by standard occupants.
func (l *Lineup) Players() []Candidate {
	if l == nil {
		return nil
	}
	players := make([]Candidate, 0, len(l.Premiums)+len(l.Standards))
	players = append(players, l.Premiums...)
	players = append(players, l.Standards...)
	return players
}

// SolverStats describes the branch-and-bound run behind a lineup.
type SolverStats struct {
	Status     string  `json:"status"`
	Nodes      int     `json:"nodes"`
	LPSolves   int     `json:"lp_solves"`
	LPFailures int     `json:"lp_failures"`
	Objective  float64 `json:"objective"`
	DurationMs int64   `json:"duration_ms"`
}

// SweepEntry is the best lineup available when one candidate is forced into
// the premium role.
type SweepEntry struct {
	Premium      Candidate   `json:"premium"`
	Standards    []Candidate `json:"standards,omitempty"`
	TotalCost    float64     `json:"total_cost"`
	TotalPoints  float64     `json:"total_points"`
	Feasible     bool        `json:"feasible"`
	Reason       string      `json:"reason,omitempty"`
	Combinations int         `json:"combinations"`
}

// SweepResult holds one entry per roster candidate, in roster order.
type SweepResult struct {
	Entries    []SweepEntry `json:"entries"`
	Feasible   int          `json:"feasible"`
	Infeasible int          `json:"infeasible"`
}

// Best returns the highest scoring feasible entry, or nil when no forced
// premium admits a lineup.
func (r *SweepResult) Best() *SweepEntry {
	if r == nil {
		return nil
	}
	var best *SweepEntry
	for i := range r.Entries {
		e := &r.Entries[i]
		if !e.Feasible {
			continue
		}
		if best == nil || e.TotalPoints > best.TotalPoints {
			best = e
		}
	}
	return best
}
