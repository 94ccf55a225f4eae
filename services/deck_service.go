package services

import (
	"errors"
	"fmt"
	"log"

	"duelytics-server/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DeckService struct {
	DB *gorm.DB
}

func NewDeckService(db *gorm.DB) *DeckService {
	return &DeckService{DB: db}
}

// GetDecks lists every deck, alphabetical. Public: the duel form needs
// the full list.
func (s *DeckService) GetDecks(c *fiber.Ctx) error {
	var decks []models.Deck
	if err := s.DB.Order("name ASC").Find(&decks).Error; err != nil {
		return RespondError(c, NewPersistenceError("failed to get decks"))
	}
	return c.JSON(fiber.Map{"success": true, "decks": decks})
}

// GetDeckStats aggregates a deck's record across every duel where it was
// the player's deck.
func (s *DeckService) GetDeckStats(c *fiber.Ctx) error {
	var deck models.Deck
	err := s.DB.First(&deck, "id = ?", c.Params("id")).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return RespondError(c, NewNotFoundError("deck not found"))
	}
	if err != nil {
		return RespondError(c, NewPersistenceError("failed to load deck"))
	}

	var row struct {
		TotalGames int64
		TotalWins  int64
	}
	if err := s.DB.Model(&models.Duel{}).
		Select("COUNT(*) AS total_games, COALESCE(SUM(CASE WHEN result = ? THEN 1 ELSE 0 END), 0) AS total_wins", models.ResultWin).
		Where("player_deck_id = ?", deck.ID).
		Scan(&row).Error; err != nil {
		return RespondError(c, NewPersistenceError("failed to aggregate deck stats"))
	}

	winRate := 0.0
	if row.TotalGames > 0 {
		winRate = float64(row.TotalWins) / float64(row.TotalGames) * 100
	}

	return c.JSON(fiber.Map{
		"success":     true,
		"deck":        deck,
		"total_games": row.TotalGames,
		"wins":        row.TotalWins,
		"losses":      row.TotalGames - row.TotalWins,
		"win_rate":    winRate,
	})
}

// CreateDeck registers a new deck archetype. Admin only; names are unique.
func (s *DeckService) CreateDeck(c *fiber.Ctx) error {
	var body struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&body); err != nil || body.Name == "" {
		return RespondError(c, NewValidationError("deck name is required"))
	}

	var count int64
	if err := s.DB.Model(&models.Deck{}).Where("name = ?", body.Name).Count(&count).Error; err != nil {
		return RespondError(c, NewPersistenceError("failed to check deck name"))
	}
	if count > 0 {
		return RespondError(c, NewValidationError("deck name already exists"))
	}

	userID, _ := c.Locals("user_id").(string)
	deck := models.Deck{
		ID:        uuid.NewString(),
		Name:      body.Name,
		CreatedBy: userID,
	}
	if err := s.DB.Create(&deck).Error; err != nil {
		return RespondError(c, NewPersistenceError("failed to create deck"))
	}

	log.Printf("✅ Deck created: %s", deck.Name)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": fmt.Sprintf("Deck %q created successfully", deck.Name),
		"deck":    deck,
	})
}

// UpdateDeck renames a deck. Admin only.
func (s *DeckService) UpdateDeck(c *fiber.Ctx) error {
	var deck models.Deck
	err := s.DB.First(&deck, "id = ?", c.Params("id")).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return RespondError(c, NewNotFoundError("deck not found"))
	}
	if err != nil {
		return RespondError(c, NewPersistenceError("failed to load deck"))
	}

	var body struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&body); err != nil || body.Name == "" {
		return RespondError(c, NewValidationError("deck name is required"))
	}

	var count int64
	if err := s.DB.Model(&models.Deck{}).
		Where("name = ? AND id <> ?", body.Name, deck.ID).
		Count(&count).Error; err != nil {
		return RespondError(c, NewPersistenceError("failed to check deck name"))
	}
	if count > 0 {
		return RespondError(c, NewValidationError("deck name already exists"))
	}

	deck.Name = body.Name
	if err := s.DB.Save(&deck).Error; err != nil {
		return RespondError(c, NewPersistenceError("failed to update deck"))
	}
	return c.JSON(fiber.Map{"success": true, "deck": deck})
}

// DeleteDeck removes a deck unless any duel references it. Duels are
// append-only facts, so a deck in use stays.
func (s *DeckService) DeleteDeck(c *fiber.Ctx) error {
	var deck models.Deck
	err := s.DB.First(&deck, "id = ?", c.Params("id")).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return RespondError(c, NewNotFoundError("deck not found"))
	}
	if err != nil {
		return RespondError(c, NewPersistenceError("failed to load deck"))
	}

	var inUse int64
	if err := s.DB.Model(&models.Duel{}).
		Where("player_deck_id = ? OR opponent_deck_id = ?", deck.ID, deck.ID).
		Count(&inUse).Error; err != nil {
		return RespondError(c, NewPersistenceError("failed to check deck usage"))
	}
	if inUse > 0 {
		return RespondError(c, NewStateError("deck is referenced by recorded duels and cannot be deleted"))
	}

	if err := s.DB.Delete(&deck).Error; err != nil {
		return RespondError(c, NewPersistenceError("failed to delete deck"))
	}

	log.Printf("🗑️ Deck deleted: %s", deck.Name)
	return c.JSON(fiber.Map{
		"success": true,
		"message": fmt.Sprintf("Deck %q deleted successfully", deck.Name),
	})
}
