package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	RunModeOptimize = "optimize"
	RunModeSweep    = "sweep"
)

// OptimizationRun records one optimizer or sweep invocation and its outcome.
type OptimizationRun struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Date        string          `gorm:"size:10;index" json:"date,omitempty"`
	Mode        string          `gorm:"size:20;not null" json:"mode"`
	Config      datatypes.JSON  `json:"config"`
	Status      string          `gorm:"size:20;not null;index" json:"status"`
	Reason      string          `gorm:"size:40" json:"reason,omitempty"`
	Message     string          `gorm:"type:text" json:"message,omitempty"`
	Candidates  int             `json:"candidates"`
	TotalCost   decimal.Decimal `gorm:"type:numeric(12,2)" json:"total_cost"`
	TotalPoints float64         `json:"total_points"`
	Result      datatypes.JSON  `json:"result"`
	DurationMs  int64           `json:"duration_ms"`
	CreatedAt   time.Time       `gorm:"index" json:"created_at"`
}

func (OptimizationRun) TableName() string {
	return "optimization_runs"
}

func (r *OptimizationRun) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// GamePrediction is the model's projected run total for one game.
type GamePrediction struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	GameID        string         `gorm:"size:20;not null;uniqueIndex:idx_prediction_game_date" json:"game_id"`
	Date          string         `gorm:"size:10;not null;uniqueIndex:idx_prediction_game_date" json:"date"`
	HomeTeam      string         `gorm:"size:60" json:"home_team"`
	AwayTeam      string         `gorm:"size:60" json:"away_team"`
	Venue         string         `gorm:"size:100" json:"venue,omitempty"`
	PredictedLine float64        `json:"predicted_line"`
	OfficialLine  *float64       `json:"official_line,omitempty"`
	ActualTotal   *float64       `json:"actual_total,omitempty"`
	Confidence    float64        `json:"confidence"`
	Features      datatypes.JSON `json:"features"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

func (GamePrediction) TableName() string {
	return "game_predictions"
}

// All lists every persisted model in migration order.
func All() []interface{} {
	return []interface{}{
		&RosterEntry{},
		&PlayerResult{},
		&OptimizationRun{},
		&GamePrediction{},
	}
}
