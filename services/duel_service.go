package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"duelytics-server/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DuelService struct {
	DB *gorm.DB
}

func NewDuelService(db *gorm.DB) *DuelService {
	return &DuelService{DB: db}
}

// DuelInput carries one duel submission with the caller's verified
// identity already resolved.
type DuelInput struct {
	SessionID      string
	UserID         string
	PlayerDeckID   string
	OpponentDeckID string
	Result         string
	CoinFlipWon    bool
	WentFirst      bool
	// PointsInput is the user-declared magnitude for rated/duelist cup.
	PointsInput *float64
}

// DuelOutcome is the client-facing result of one processed duel.
type DuelOutcome struct {
	DuelID          string          `json:"duel_id"`
	GameMode        string          `json:"game_mode"`
	Result          string          `json:"result"`
	PointsChange    float64         `json:"points_change"`
	TierProgression *TierTransition `json:"tier_progression"`
	Message         string          `json:"message"`
}

// SubmitDuel runs the full submission pipeline: validate, resolve the
// scoring mode, compute the effective delta, persist the duel fact, fold
// the delta into the player's stats and, for ladder sessions, run tier
// progression. The whole pipeline executes inside a single transaction
// with the stats row locked, so the duel record and the stats mutation
// commit or roll back together and concurrent submissions from the same
// participant serialize. Different participants never contend.
func (s *DuelService) SubmitDuel(in DuelInput) (*DuelOutcome, error) {
	if in.SessionID == "" || in.UserID == "" || in.Result == "" {
		return nil, NewValidationError("session_id, user_id and result are required")
	}
	if in.Result != models.ResultWin && in.Result != models.ResultLoss {
		return nil, NewValidationError("result must be 'win' or 'loss'")
	}

	var outcome *DuelOutcome
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var session models.Session
		if err := tx.First(&session, "id = ?", in.SessionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NewNotFoundError("session not found")
			}
			return NewPersistenceError("failed to load session")
		}
		if session.Status != models.SessionStatusActive {
			return NewStateError("session is not active")
		}

		var participant models.SessionParticipant
		err := tx.First(&participant, "session_id = ? AND user_id = ?", in.SessionID, in.UserID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NewStateError("user is not a participant of this session")
		}
		if err != nil {
			return NewPersistenceError("failed to load session participant")
		}

		if err := resolveDecks(tx, in.PlayerDeckID, in.OpponentDeckID); err != nil {
			return err
		}

		stats, err := ensureStats(tx, &session, &participant)
		if err != nil {
			return err
		}

		delta, err := ComputeDelta(session.GameMode, in.Result, in.PointsInput, stats.CurrentPoints)
		if err != nil {
			return err
		}

		duel := models.Duel{
			ID:             uuid.NewString(),
			SessionID:      in.SessionID,
			UserID:         in.UserID,
			PlayerDeckID:   in.PlayerDeckID,
			OpponentDeckID: in.OpponentDeckID,
			CoinFlipWon:    in.CoinFlipWon,
			WentFirst:      in.WentFirst,
			Result:         in.Result,
			PointsChange:   delta,
		}
		if err := tx.Create(&duel).Error; err != nil {
			return NewPersistenceError("failed to record duel")
		}

		applyDuelResult(stats, session.GameMode, in.Result, delta)

		transition := noTransition()
		if session.GameMode == models.GameModeLadder {
			var tiers []models.LadderTier
			if err := tx.Order("sort_order ASC").Find(&tiers).Error; err != nil {
				return NewPersistenceError("failed to load ladder tiers")
			}
			// A tier engine failure aborts the whole submission; skipping it
			// would desynchronize net wins from the recorded tier.
			transition, err = ApplyTierProgression(tiers, stats)
			if err != nil {
				return err
			}
		}

		if err := tx.Save(stats).Error; err != nil {
			return NewPersistenceError("failed to update player stats")
		}

		outcome = &DuelOutcome{
			DuelID:          duel.ID,
			GameMode:        session.GameMode,
			Result:          in.Result,
			PointsChange:    delta,
			TierProgression: transition,
			Message:         buildDuelMessage(session.GameMode, in.Result, delta, transition),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Duel processed: %s (session %s, user %s)", outcome.Message, in.SessionID, in.UserID)
	return outcome, nil
}

// resolveDecks checks both deck ids reference existing decks. A mirror
// match (both sides on the same deck) resolves against a single row.
func resolveDecks(tx *gorm.DB, playerDeckID, opponentDeckID string) error {
	if playerDeckID == "" || opponentDeckID == "" {
		return NewValidationError("player_deck_id and opponent_deck_id are required")
	}
	ids := []string{playerDeckID}
	if opponentDeckID != playerDeckID {
		ids = append(ids, opponentDeckID)
	}
	var count int64
	if err := tx.Model(&models.Deck{}).Where("id IN ?", ids).Count(&count).Error; err != nil {
		return NewPersistenceError("failed to resolve decks")
	}
	if count != int64(len(ids)) {
		return NewValidationError("unknown deck id")
	}
	return nil
}

// ensureStats loads the participant's stats row under a row lock, creating
// it from the recorded initial state when this is their first duel.
func ensureStats(tx *gorm.DB, session *models.Session, participant *models.SessionParticipant) (*models.PlayerSessionStats, error) {
	var stats models.PlayerSessionStats
	err := lockForUpdate(tx).
		First(&stats, "session_id = ? AND user_id = ?", session.ID, participant.UserID).Error
	if err == nil {
		return &stats, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NewPersistenceError("failed to load player stats")
	}

	stats = NewStatsForParticipant(session, participant)
	if err := tx.Create(&stats).Error; err != nil {
		return nil, NewPersistenceError("failed to initialize player stats")
	}
	return &stats, nil
}

// NewStatsForParticipant builds a fresh stats row with mode-appropriate
// defaults: rated starts at the session's starting rating, ladder copies
// the tier and net wins declared at join time, duelist cup starts at zero.
func NewStatsForParticipant(session *models.Session, participant *models.SessionParticipant) models.PlayerSessionStats {
	stats := models.PlayerSessionStats{
		ID:          uuid.NewString(),
		SessionID:   session.ID,
		UserID:      participant.UserID,
		LastUpdated: time.Now(),
	}
	switch session.GameMode {
	case models.GameModeRated:
		stats.CurrentPoints = session.StartingRating
	case models.GameModeLadder:
		stats.CurrentTierID = participant.InitialTierID
		stats.CurrentNetWins = participant.InitialNetWins
	}
	return stats
}

// applyDuelResult folds one effective delta into the running aggregate.
// The delta is already clamped by ComputeDelta and is applied verbatim.
func applyDuelResult(stats *models.PlayerSessionStats, mode, result string, delta float64) {
	stats.TotalGames++
	if result == models.ResultWin {
		stats.TotalWins++
	}
	if mode == models.GameModeLadder {
		stats.CurrentNetWins += int(delta)
	} else {
		stats.CurrentPoints += delta
	}
	stats.LastUpdated = time.Now()
}

// lockForUpdate adds a row-level lock on dialects that support it. SQLite,
// which backs the test suite, serializes writers on its own and rejects
// FOR UPDATE syntax.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

func buildDuelMessage(mode, result string, delta float64, transition *TierTransition) string {
	outcome := "Defeat"
	if result == models.ResultWin {
		outcome = "Victory!"
	}

	var msg string
	if mode == models.GameModeLadder {
		msg = fmt.Sprintf("%s Net wins: %+d", outcome, int(delta))
	} else {
		msg = fmt.Sprintf("%s Points: %+g", outcome, delta)
	}
	if transition != nil && transition.Type != TransitionNone {
		msg += " | " + transition.Message
	}
	return msg
}

// SubmitDuelHandler parses a submission request and runs the pipeline.
func (s *DuelService) SubmitDuelHandler(c *fiber.Ctx) error {
	var body struct {
		SessionID      string   `json:"session_id"`
		PlayerDeckID   string   `json:"player_deck_id"`
		OpponentDeckID string   `json:"opponent_deck_id"`
		Result         string   `json:"result"`
		CoinFlipWon    bool     `json:"coin_flip_won"`
		WentFirst      bool     `json:"went_first"`
		PointsInput    *float64 `json:"points_input"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body", "kind": KindValidation,
		})
	}

	userID, _ := c.Locals("user_id").(string)
	outcome, err := s.SubmitDuel(DuelInput{
		SessionID:      body.SessionID,
		UserID:         userID,
		PlayerDeckID:   body.PlayerDeckID,
		OpponentDeckID: body.OpponentDeckID,
		Result:         body.Result,
		CoinFlipWon:    body.CoinFlipWon,
		WentFirst:      body.WentFirst,
		PointsInput:    body.PointsInput,
	})
	if err != nil {
		return RespondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":          true,
		"duel_id":          outcome.DuelID,
		"game_mode":        outcome.GameMode,
		"result":           outcome.Result,
		"points_change":    outcome.PointsChange,
		"tier_progression": outcome.TierProgression,
		"message":          outcome.Message,
	})
}

// GetSessionDuels returns the caller's most recent duels in a session,
// newest first.
func (s *DuelService) GetSessionDuels(c *fiber.Ctx) error {
	sessionID := c.Params("session_id")
	userID, _ := c.Locals("user_id").(string)

	var duels []models.Duel
	if err := s.DB.
		Where("session_id = ? AND user_id = ?", sessionID, userID).
		Order("created_at DESC").
		Limit(10).
		Find(&duels).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to get duel history", "kind": KindPersistence,
		})
	}

	return c.JSON(fiber.Map{"success": true, "duels": duels})
}

// GetSessionStats returns the caller's current stats row for a session.
// Reads are idempotent: no duel in between means identical values.
func (s *DuelService) GetSessionStats(c *fiber.Ctx) error {
	sessionID := c.Params("session_id")
	userID, _ := c.Locals("user_id").(string)

	var stats models.PlayerSessionStats
	err := s.DB.First(&stats, "session_id = ? AND user_id = ?", sessionID, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return RespondError(c, NewNotFoundError("no stats recorded for this session"))
	}
	if err != nil {
		return RespondError(c, NewPersistenceError("failed to load player stats"))
	}

	var tierName string
	if stats.CurrentTierID != nil {
		var tier models.LadderTier
		if err := s.DB.First(&tier, "id = ?", *stats.CurrentTierID).Error; err == nil {
			tierName = tier.TierName
		}
	}

	return c.JSON(fiber.Map{
		"success":          true,
		"session_id":       stats.SessionID,
		"user_id":          stats.UserID,
		"total_games":      stats.TotalGames,
		"total_wins":       stats.TotalWins,
		"total_losses":     stats.TotalLosses(),
		"current_points":   stats.CurrentPoints,
		"current_tier_id":  stats.CurrentTierID,
		"tier_name":        tierName,
		"current_net_wins": stats.CurrentNetWins,
		"last_updated":     stats.LastUpdated,
	})
}
