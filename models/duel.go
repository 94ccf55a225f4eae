package models

import "time"

// Duel results.
const (
	ResultWin  = "win"
	ResultLoss = "loss"
)

// Duel is one recorded match result. Append-only: never updated after
// insert, removed only when its session is deleted. PointsChange stores
// the effective delta actually applied to the player's stats (post-clamp
// for duelist cup).
type Duel struct {
	ID             string `json:"id" gorm:"primaryKey"`
	SessionID      string `json:"session_id" gorm:"index;not null"`
	UserID         string `json:"user_id" gorm:"index;not null"`
	PlayerDeckID   string `json:"player_deck_id" gorm:"not null"`
	OpponentDeckID string `json:"opponent_deck_id" gorm:"not null"`

	CoinFlipWon bool   `json:"coin_flip_won"`
	WentFirst   bool   `json:"went_first"`
	Result      string `json:"result" gorm:"type:varchar(8);check:result IN ('win','loss')"`

	PointsChange float64 `json:"points_change" gorm:"type:numeric"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}
