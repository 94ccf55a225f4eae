package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"duelytics-server/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a private in-memory database. The shared-cache DSN keeps
// every pooled connection on the same database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Session{},
		&models.LadderTier{},
		&models.SessionParticipant{},
		&models.PlayerSessionStats{},
		&models.Deck{},
		&models.Duel{},
	))
	return db
}

func createTestSession(t *testing.T, db *gorm.DB, gameMode string) *models.Session {
	t.Helper()
	session := &models.Session{
		ID:          uuid.NewString(),
		Slug:        "test-" + uuid.NewString()[:8],
		Name:        "Test Session",
		GameMode:    gameMode,
		AdminUserID: "admin-user",
		StartsAt:    time.Now().Add(-time.Hour),
		EndsAt:      time.Now().Add(24 * time.Hour),
		Status:      models.SessionStatusActive,
	}
	if gameMode == models.GameModeRated {
		session.StartingRating = 1500
		session.PointValue = 7
	}
	if gameMode == models.GameModeDuelistCup {
		session.PointValue = 1000
	}
	require.NoError(t, db.Create(session).Error)
	return session
}

func createTestParticipant(t *testing.T, db *gorm.DB, sessionID, userID string, initialTierID *string, initialNetWins int) *models.SessionParticipant {
	t.Helper()
	participant := &models.SessionParticipant{
		ID:             uuid.NewString(),
		SessionID:      sessionID,
		UserID:         userID,
		InitialTierID:  initialTierID,
		InitialNetWins: initialNetWins,
	}
	require.NoError(t, db.Create(participant).Error)
	return participant
}

func createTestDeck(t *testing.T, db *gorm.DB, name string) *models.Deck {
	t.Helper()
	deck := &models.Deck{ID: uuid.NewString(), Name: name, CreatedBy: "admin-user"}
	require.NoError(t, db.Create(deck).Error)
	return deck
}

// createTestLadder seeds a compact three-rung ladder: a floor-protected
// Rookie tier, Bronze 1 and Silver 5 on top. Returned in sort order.
func createTestLadder(t *testing.T, db *gorm.DB) []models.LadderTier {
	t.Helper()
	tiers := testLadderTiers()
	require.NoError(t, db.Create(&tiers).Error)
	return tiers
}

func testLadderTiers() []models.LadderTier {
	return []models.LadderTier{
		{ID: "tier-rookie", TierName: "Rookie", WinsRequired: 2, CanDemoteFrom: false, SortOrder: 0},
		{ID: "tier-bronze-1", TierName: "Bronze 1", WinsRequired: 3, CanDemoteFrom: true, SortOrder: 1},
		{ID: "tier-silver-5", TierName: "Silver 5", WinsRequired: 3, CanDemoteFrom: true, SortOrder: 2},
	}
}

func f64(v float64) *float64 { return &v }

func strptr(v string) *string { return &v }

// newAuthedApp builds a fiber app with the request locals the auth
// middleware would normally set, so service handlers run as userID.
func newAuthedApp(userID string, isAdmin bool) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", userID)
		c.Locals("username", userID)
		c.Locals("is_admin", isAdmin)
		return c.Next()
	})
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, target string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	payload := map[string]interface{}{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &payload))
	}
	return resp, payload
}
