package models

import (
	"time"

	"github.com/stitts-dev/dfs-showdown/internal/optimizer"
)

// RosterEntry is one player available on a showdown slate.
type RosterEntry struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Date        string    `gorm:"size:10;not null;uniqueIndex:idx_roster_date_name" json:"date"`
	Name        string    `gorm:"size:120;not null;uniqueIndex:idx_roster_date_name" json:"name"`
	Team        string    `gorm:"size:10" json:"team"`
	Position    string    `gorm:"size:10" json:"position"`
	Salary      int       `gorm:"not null" json:"salary"`
	FPPG        float64   `gorm:"column:fppg;not null" json:"fppg"`
	GamesPlayed int       `json:"games_played"`
	Active      bool      `gorm:"not null;index" json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (RosterEntry) TableName() string {
	return "roster_entries"
}

// Candidate converts the entry for the optimizer. Names are unique per
// slate, so they double as the candidate key.
func (r RosterEntry) Candidate() optimizer.Candidate {
	return optimizer.Candidate{
		Name:            r.Name,
		Salary:          r.Salary,
		ProjectedPoints: r.FPPG,
		Position:        r.Position,
		Team:            r.Team,
	}
}

// Candidates converts a slate in order.
func Candidates(entries []RosterEntry) []optimizer.Candidate {
	out := make([]optimizer.Candidate, len(entries))
	for i, e := range entries {
		out[i] = e.Candidate()
	}
	return out
}

// PlayerResult is a player's actual fantasy output for a date.
type PlayerResult struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Date       string    `gorm:"size:10;not null;uniqueIndex:idx_result_date_player" json:"date"`
	PlayerName string    `gorm:"size:120;not null;uniqueIndex:idx_result_date_player" json:"player_name"`
	ActualFPPG float64   `gorm:"column:actual_fppg;not null" json:"actual_fppg"`
	IsMVP      bool      `gorm:"column:is_mvp;not null" json:"is_mvp"`
	Team       string    `gorm:"size:10" json:"team"`
	CreatedAt  time.Time `json:"created_at"`
}

func (PlayerResult) TableName() string {
	return "player_results"
}
