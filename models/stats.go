package models

import "time"

// PlayerSessionStats is the mutable per-(session, user) aggregate. Exactly
// one row per participant, touched once per accepted duel. Point fields
// are numeric because rated deltas can be fractional (e.g. 7.5).
type PlayerSessionStats struct {
	ID        string `json:"id" gorm:"primaryKey"`
	SessionID string `json:"session_id" gorm:"uniqueIndex:idx_stats_session_user;not null"`
	UserID    string `json:"user_id" gorm:"uniqueIndex:idx_stats_session_user;not null"`

	TotalGames int `json:"total_games" gorm:"default:0"`
	TotalWins  int `json:"total_wins" gorm:"default:0"`

	// CurrentPoints carries rated/cup standings; tier + net wins carry
	// ladder standings.
	CurrentPoints  float64 `json:"current_points" gorm:"type:numeric;default:0"`
	CurrentTierID  *string `json:"current_tier_id,omitempty"`
	CurrentNetWins int     `json:"current_net_wins" gorm:"default:0"`

	LastUpdated time.Time `json:"last_updated"`
}

// TotalLosses is derived so total_games = total_wins + total_losses can
// never drift.
func (s *PlayerSessionStats) TotalLosses() int {
	return s.TotalGames - s.TotalWins
}
