package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"duelytics-server/models"
	"duelytics-server/services"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testJWTSecret = "routes-test-secret"

// newRoutedApp builds the app through the real route setup, auth
// middleware included, backed by a private in-memory database.
func newRoutedApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()
	t.Setenv("JWT_SECRET", testJWTSecret)

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

	app := fiber.New()
	SetupRoutes(app, db,
		services.NewSessionService(db),
		services.NewDuelService(db),
		services.NewDeckService(db))
	return app, db
}

func signToken(t *testing.T, userID string, isAdmin bool) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      userID,
		"username": userID,
		"is_admin": isAdmin,
		"exp":      time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return signed
}

func doRequest(t *testing.T, app *fiber.App, method, target, token string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func createRoutedSession(t *testing.T, db *gorm.DB, adminUserID string) *models.Session {
	t.Helper()
	session := &models.Session{
		ID:             uuid.NewString(),
		Slug:           "routed-" + uuid.NewString()[:8],
		Name:           "Routed Session",
		GameMode:       models.GameModeRated,
		AdminUserID:    adminUserID,
		StartsAt:       time.Now().Add(-time.Hour),
		EndsAt:         time.Now().Add(24 * time.Hour),
		StartingRating: 1500,
		PointValue:     7,
		Status:         models.SessionStatusActive,
	}
	require.NoError(t, db.Create(session).Error)
	return session
}

func TestPublicRoutesNeedNoToken(t *testing.T) {
	app, _ := newRoutedApp(t)

	for _, target := range []string{"/health", "/sessions", "/ladder-tiers", "/decks"} {
		resp := doRequest(t, app, "GET", target, "")
		assert.Equal(t, http.StatusOK, resp.StatusCode, target)
	}
}

func TestSecuredRoutesRejectMissingToken(t *testing.T) {
	app, _ := newRoutedApp(t)

	cases := []struct{ method, target string }{
		{"POST", "/duels"},
		{"POST", "/sessions/some-id/join"},
		{"GET", "/sessions/some-id/leaderboard"},
		{"GET", "/duels/session/some-id"},
		{"POST", "/admin/sessions"},
		{"POST", "/admin/decks"},
	}
	for _, tc := range cases {
		resp := doRequest(t, app, tc.method, tc.target, "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, tc.method+" "+tc.target)
	}
}

func TestAdminGateOnManagementRoutes(t *testing.T) {
	app, _ := newRoutedApp(t)
	token := signToken(t, "regular-player", false)

	for _, tc := range []struct{ method, target string }{
		{"POST", "/admin/sessions"},
		{"POST", "/admin/decks"},
		{"PATCH", "/admin/decks/some-id"},
		{"DELETE", "/admin/decks/some-id"},
	} {
		resp := doRequest(t, app, tc.method, tc.target, token)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, tc.method+" "+tc.target)
	}
}

func TestSessionOwnerManagesWithoutSystemAdmin(t *testing.T) {
	app, db := newRoutedApp(t)

	t.Run("owner archives own session", func(t *testing.T) {
		session := createRoutedSession(t, db, "owner")
		resp := doRequest(t, app, "PATCH", "/admin/sessions/"+session.ID+"/archive", signToken(t, "owner", false))
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var reloaded models.Session
		require.NoError(t, db.First(&reloaded, "id = ?", session.ID).Error)
		assert.Equal(t, models.SessionStatusArchived, reloaded.Status)
	})

	t.Run("owner deletes own session", func(t *testing.T) {
		session := createRoutedSession(t, db, "owner")
		resp := doRequest(t, app, "DELETE", "/admin/sessions/"+session.ID, signToken(t, "owner", false))
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var count int64
		require.NoError(t, db.Model(&models.Session{}).Where("id = ?", session.ID).Count(&count).Error)
		assert.Zero(t, count)
	})

	t.Run("stranger is still rejected by the service", func(t *testing.T) {
		session := createRoutedSession(t, db, "owner")
		resp := doRequest(t, app, "PATCH", "/admin/sessions/"+session.ID+"/archive", signToken(t, "stranger", false))
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})
}
