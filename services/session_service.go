package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"duelytics-server/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SessionService struct {
	DB *gorm.DB
}

func NewSessionService(db *gorm.DB) *SessionService {
	return &SessionService{DB: db}
}

// SeedLadderTiers inserts the stock ladder when the tier table is empty.
// Tiers are static reference data and never mutated at request time.
func SeedLadderTiers(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.LadderTier{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	tiers := models.DefaultLadderTiers()
	for i := range tiers {
		tiers[i].ID = uuid.NewString()
	}
	if err := db.Create(&tiers).Error; err != nil {
		return err
	}
	log.Printf("✅ Seeded %d ladder tiers", len(tiers))
	return nil
}

// GetActiveSessions lists sessions open for play, newest first.
func (s *SessionService) GetActiveSessions(c *fiber.Ctx) error {
	var sessions []models.Session
	if err := s.DB.
		Where("status = ?", models.SessionStatusActive).
		Order("created_at DESC").
		Find(&sessions).Error; err != nil {
		return RespondError(c, NewPersistenceError("failed to get sessions"))
	}
	return c.JSON(fiber.Map{"success": true, "sessions": sessions})
}

// GetSessionByID returns full session details.
func (s *SessionService) GetSessionByID(c *fiber.Ctx) error {
	var session models.Session
	err := s.DB.First(&session, "id = ?", c.Params("id")).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return RespondError(c, NewNotFoundError("session not found"))
	}
	if err != nil {
		return RespondError(c, NewPersistenceError("failed to get session details"))
	}
	return c.JSON(fiber.Map{"success": true, "session": session})
}

// GetLadderTiers lists the tier table ordered bottom to top.
func (s *SessionService) GetLadderTiers(c *fiber.Ctx) error {
	var tiers []models.LadderTier
	if err := s.DB.Order("sort_order ASC").Find(&tiers).Error; err != nil {
		return RespondError(c, NewPersistenceError("failed to fetch ladder tiers"))
	}
	return c.JSON(fiber.Map{"success": true, "tiers": tiers})
}

// JoinSession enrolls the caller in a session. Joining twice is a
// friendly no-op so a reinstalled client can resume. Ladder sessions
// require the player's declared starting tier and net wins; the stats row
// is seeded immediately so the first duel has a consistent base.
func (s *SessionService) JoinSession(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	sessionID := c.Params("id")

	var body struct {
		InitialTierID  *string `json:"initial_tier_id"`
		InitialNetWins int     `json:"initial_net_wins"`
	}
	if err := c.BodyParser(&body); err != nil && !errors.Is(err, fiber.ErrUnprocessableEntity) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body", "kind": KindValidation,
		})
	}

	var session models.Session
	err := s.DB.First(&session, "id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return RespondError(c, NewNotFoundError("session not found"))
	}
	if err != nil {
		return RespondError(c, NewPersistenceError("failed to load session"))
	}
	if session.Status != models.SessionStatusActive {
		return RespondError(c, NewStateError("session is not active"))
	}

	var existing models.SessionParticipant
	err = s.DB.First(&existing, "session_id = ? AND user_id = ?", sessionID, userID).Error
	if err == nil {
		log.Printf("📝 User %s is already in session %s, allowing rejoin", userID, session.Name)
		return c.JSON(fiber.Map{
			"success":  true,
			"message":  fmt.Sprintf("Welcome back to %s", session.Name),
			"session":  sessionSummary(&session),
			"rejoined": true,
		})
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return RespondError(c, NewPersistenceError("failed to check participation"))
	}

	if session.GameMode == models.GameModeLadder {
		if body.InitialTierID == nil || *body.InitialTierID == "" {
			return RespondError(c, NewValidationError("initial tier and net wins are required for ladder sessions"))
		}
		var tier models.LadderTier
		if err := s.DB.First(&tier, "id = ?", *body.InitialTierID).Error; err != nil {
			return RespondError(c, NewValidationError("invalid tier selected"))
		}
		if body.InitialNetWins < 0 || body.InitialNetWins >= tier.WinsRequired {
			return RespondError(c, NewValidationError("initial net wins must be below the tier's promotion threshold"))
		}
	}

	participant := models.SessionParticipant{
		ID:             uuid.NewString(),
		SessionID:      sessionID,
		UserID:         userID,
		InitialTierID:  body.InitialTierID,
		InitialNetWins: body.InitialNetWins,
	}

	created, err := s.enrollParticipant(&session, &participant)
	if err != nil {
		return RespondError(c, err)
	}
	if !created {
		log.Printf("📝 User %s raced an earlier join of session %s, treating as rejoin", userID, session.Name)
		return c.JSON(fiber.Map{
			"success":  true,
			"message":  fmt.Sprintf("Welcome back to %s", session.Name),
			"session":  sessionSummary(&session),
			"rejoined": true,
		})
	}

	log.Printf("✅ User %s joined session: %s", userID, session.Name)
	return c.JSON(fiber.Map{
		"success": true,
		"message": fmt.Sprintf("Successfully joined %s", session.Name),
		"session": sessionSummary(&session),
	})
}

// enrollParticipant inserts the participant and seeds their stats in one
// transaction. A concurrent first join can commit between the handler's
// existence check and this insert; the conflict clause turns the loser's
// insert into a no-op so the caller can answer with the rejoin payload
// instead of surfacing the unique-index violation.
func (s *SessionService) enrollParticipant(session *models.Session, participant *models.SessionParticipant) (bool, error) {
	created := false
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(participant)
		if res.Error != nil {
			return NewPersistenceError("failed to join session")
		}
		if res.RowsAffected == 0 {
			return nil
		}
		created = true
		stats := NewStatsForParticipant(session, participant)
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&stats).Error; err != nil {
			return NewPersistenceError("failed to initialize player stats")
		}
		return nil
	})
	return created, err
}

func sessionSummary(session *models.Session) fiber.Map {
	return fiber.Map{
		"id":        session.ID,
		"name":      session.Name,
		"game_mode": session.GameMode,
	}
}

// leaderboardRow is the scanned shape of one standings line.
type leaderboardRow struct {
	UserID         string    `json:"user_id"`
	Username       string    `json:"username"`
	JoinedAt       time.Time `json:"joined_at"`
	TotalGames     int       `json:"total_games"`
	TotalWins      int       `json:"total_wins"`
	CurrentPoints  float64   `json:"current_points"`
	CurrentNetWins int       `json:"current_net_wins"`
	TierName       string    `json:"tier_name"`
	TierSortOrder  int       `json:"-"`
}

// GetSessionLeaderboard lists all participants with their standing.
// Ladder sessions order by tier then net wins; rated and cup order by
// points.
func (s *SessionService) GetSessionLeaderboard(c *fiber.Ctx) error {
	sessionID := c.Params("id")

	var session models.Session
	err := s.DB.First(&session, "id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return RespondError(c, NewNotFoundError("session not found"))
	}
	if err != nil {
		return RespondError(c, NewPersistenceError("failed to load session"))
	}

	order := "pss.current_points DESC, sp.joined_at ASC"
	if session.GameMode == models.GameModeLadder {
		order = "lt.sort_order DESC, pss.current_net_wins DESC, sp.joined_at ASC"
	}

	var rows []leaderboardRow
	query := fmt.Sprintf(`
		SELECT sp.user_id,
		       COALESCE(u.username, '') AS username,
		       sp.joined_at,
		       COALESCE(pss.total_games, 0) AS total_games,
		       COALESCE(pss.total_wins, 0) AS total_wins,
		       COALESCE(pss.current_points, 0) AS current_points,
		       COALESCE(pss.current_net_wins, 0) AS current_net_wins,
		       COALESCE(lt.tier_name, '') AS tier_name,
		       COALESCE(lt.sort_order, -1) AS tier_sort_order
		FROM session_participants sp
		LEFT JOIN users u ON u.id = sp.user_id
		LEFT JOIN player_session_stats pss
		       ON pss.session_id = sp.session_id AND pss.user_id = sp.user_id
		LEFT JOIN ladder_tiers lt ON lt.id = pss.current_tier_id
		WHERE sp.session_id = ?
		ORDER BY %s`, order)
	if err := s.DB.Raw(query, sessionID).Scan(&rows).Error; err != nil {
		return RespondError(c, NewPersistenceError("failed to get participants"))
	}

	type entry struct {
		leaderboardRow
		TotalLosses int `json:"total_losses"`
	}
	entries := make([]entry, len(rows))
	for i, row := range rows {
		entries[i] = entry{leaderboardRow: row, TotalLosses: row.TotalGames - row.TotalWins}
	}

	return c.JSON(fiber.Map{"success": true, "participants": entries})
}

// CreateSession creates a new scoring session. Admin only; per-mode
// defaults match the client's expectations (duelist cup counts up from
// zero in big increments, the others start from a 1500 rating).
func (s *SessionService) CreateSession(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)

	var body struct {
		Name           string   `json:"name"`
		GameMode       string   `json:"game_mode"`
		StartsAt       string   `json:"starts_at"`
		EndsAt         string   `json:"ends_at"`
		StartingRating *float64 `json:"starting_rating"`
		PointValue     *float64 `json:"point_value"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body", "kind": KindValidation,
		})
	}

	if body.Name == "" || body.GameMode == "" || body.StartsAt == "" || body.EndsAt == "" {
		return RespondError(c, NewValidationError("name, game_mode, starts_at and ends_at are required"))
	}
	if !models.ValidGameMode(body.GameMode) {
		return RespondError(c, NewValidationError("invalid game mode: must be ladder, rated or duelist_cup"))
	}

	startsAt, err := time.Parse(time.RFC3339, body.StartsAt)
	if err != nil {
		return RespondError(c, NewValidationError("invalid starts_at (use RFC3339)"))
	}
	endsAt, err := time.Parse(time.RFC3339, body.EndsAt)
	if err != nil {
		return RespondError(c, NewValidationError("invalid ends_at (use RFC3339)"))
	}
	if !endsAt.After(startsAt) {
		return RespondError(c, NewValidationError("ends_at must be after starts_at"))
	}

	startingRating, pointValue := defaultSessionNumbers(body.GameMode)
	if body.StartingRating != nil {
		startingRating = *body.StartingRating
	}
	if body.PointValue != nil {
		pointValue = *body.PointValue
	}

	session := models.Session{
		ID:             uuid.NewString(),
		Slug:           s.uniqueSlug(body.Name),
		Name:           body.Name,
		GameMode:       body.GameMode,
		AdminUserID:    userID,
		StartsAt:       startsAt,
		EndsAt:         endsAt,
		StartingRating: startingRating,
		PointValue:     pointValue,
		Status:         models.SessionStatusActive,
	}
	if err := s.DB.Create(&session).Error; err != nil {
		return RespondError(c, NewPersistenceError("failed to create session"))
	}

	log.Printf("✅ Session created: %s (%s) by %s", session.Name, session.GameMode, userID)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": fmt.Sprintf("%s session %q created successfully", session.GameMode, session.Name),
		"session": session,
	})
}

func defaultSessionNumbers(gameMode string) (startingRating, pointValue float64) {
	if gameMode == models.GameModeDuelistCup {
		return 0, 1000
	}
	return 1500, 7
}

// uniqueSlug derives a URL slug from the session name, suffixing with a
// short random tail when the plain slug is taken.
func (s *SessionService) uniqueSlug(name string) string {
	base := slug.Make(name)
	var count int64
	if err := s.DB.Model(&models.Session{}).Where("slug = ?", base).Count(&count).Error; err == nil && count == 0 {
		return base
	}
	return base + "-" + uuid.NewString()[:8]
}

// requireSessionAdmin loads the session and checks the caller is either
// its admin or a system admin.
func (s *SessionService) requireSessionAdmin(c *fiber.Ctx, sessionID string) (*models.Session, error) {
	var session models.Session
	err := s.DB.First(&session, "id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NewNotFoundError("session not found")
	}
	if err != nil {
		return nil, NewPersistenceError("failed to load session")
	}

	userID, _ := c.Locals("user_id").(string)
	isAdmin, _ := c.Locals("is_admin").(bool)
	if session.AdminUserID != userID && !isAdmin {
		return nil, NewStateError("only the session admin can manage this session")
	}
	return &session, nil
}

// ArchiveSession flips a session to archived. One-way: archived sessions
// never come back.
func (s *SessionService) ArchiveSession(c *fiber.Ctx) error {
	session, err := s.requireSessionAdmin(c, c.Params("id"))
	if err != nil {
		return RespondError(c, err)
	}
	if session.Status == models.SessionStatusArchived {
		return RespondError(c, NewStateError("session is already archived"))
	}

	session.Status = models.SessionStatusArchived
	if err := s.DB.Save(session).Error; err != nil {
		return RespondError(c, NewPersistenceError("failed to archive session"))
	}

	log.Printf("📦 Session archived: %s", session.Name)
	return c.JSON(fiber.Map{
		"success": true,
		"message": fmt.Sprintf("Session %q archived successfully", session.Name),
	})
}

// DeleteSession hard-deletes a session and cascades to its duels,
// participants and stats in one transaction.
func (s *SessionService) DeleteSession(c *fiber.Ctx) error {
	session, err := s.requireSessionAdmin(c, c.Params("id"))
	if err != nil {
		return RespondError(c, err)
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{
			&models.PlayerSessionStats{},
			&models.SessionParticipant{},
			&models.Duel{},
		} {
			if err := tx.Where("session_id = ?", session.ID).Delete(model).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.Session{}, "id = ?", session.ID).Error
	})
	if err != nil {
		return RespondError(c, NewPersistenceError("failed to delete session"))
	}

	log.Printf("🗑️ Session deleted: %s", session.Name)
	return c.JSON(fiber.Map{
		"success": true,
		"message": fmt.Sprintf("Session %q deleted successfully", session.Name),
	})
}
