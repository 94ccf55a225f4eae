package models

import (
	"time"
)

// Game modes supported by a session. The mode is fixed at creation and
// decides how every duel in the session is scored.
const (
	GameModeLadder     = "ladder"
	GameModeRated      = "rated"
	GameModeDuelistCup = "duelist_cup"
)

const (
	SessionStatusActive   = "active"
	SessionStatusArchived = "archived"
)

// ValidGameMode reports whether mode names a supported scoring mode.
func ValidGameMode(mode string) bool {
	switch mode {
	case GameModeLadder, GameModeRated, GameModeDuelistCup:
		return true
	}
	return false
}

// Session is a time-boxed competitive event scored under one game mode.
// Status only ever moves active → archived.
type Session struct {
	ID          string `json:"id" gorm:"primaryKey"`
	Slug        string `json:"slug" gorm:"uniqueIndex;not null"`
	Name        string `json:"name" gorm:"not null"`
	GameMode    string `json:"game_mode" gorm:"type:varchar(16);not null"`
	AdminUserID string `json:"admin_user_id" gorm:"index;not null"`

	StartsAt time.Time `json:"starts_at" gorm:"not null"`
	EndsAt   time.Time `json:"ends_at" gorm:"not null"`

	// StartingRating seeds current_points for rated sessions. PointValue is
	// the informational default magnitude shown to the client.
	StartingRating float64 `json:"starting_rating" gorm:"default:0"`
	PointValue     float64 `json:"point_value" gorm:"default:0"`

	Status    string    `json:"status" gorm:"type:varchar(16);default:'active'"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// SessionParticipant records membership plus the declared starting point
// for ladder sessions. Rows are written once at join time and never
// mutated afterwards.
type SessionParticipant struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	SessionID string    `json:"session_id" gorm:"uniqueIndex:idx_participant_session_user;not null"`
	UserID    string    `json:"user_id" gorm:"uniqueIndex:idx_participant_session_user;not null"`
	JoinedAt  time.Time `json:"joined_at" gorm:"autoCreateTime"`

	// Ladder only: where the player says they currently stand.
	InitialTierID  *string `json:"initial_tier_id,omitempty"`
	InitialNetWins int     `json:"initial_net_wins" gorm:"default:0"`
}
