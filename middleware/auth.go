// middleware/auth.go
package middleware

import (
	"fmt"
	"log"
	"os"
	"strings"

	"duelytics-server/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AuthMiddleware verifies the identity token issued by the auth provider
// and attaches the caller's identity to the request. The local user
// snapshot is refreshed on every request so usernames and role flags stay
// current without a sync job.
func AuthMiddleware(db *gorm.DB) fiber.Handler {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("❌ JWT_SECRET is not set, service cannot verify identity tokens")
	}

	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "authentication token missing",
			})
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenStr == authHeader {
			// no "Bearer " prefix, try the raw header value
			tokenStr = authHeader
		}

		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid authentication token",
			})
		}

		userID, _ := claims["sub"].(string)
		if userID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "token missing subject",
			})
		}
		username, _ := claims["username"].(string)
		isAdmin, _ := claims["is_admin"].(bool)
		isSupporter, _ := claims["is_supporter"].(bool)

		user := models.User{
			ID:          userID,
			Username:    username,
			IsAdmin:     isAdmin,
			IsSupporter: isSupporter,
		}
		if err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"username", "is_admin", "is_supporter", "updated_at"}),
		}).Create(&user).Error; err != nil {
			log.Printf("⚠️ Failed to sync user snapshot for %s: %v", userID, err)
		}

		c.Locals("user_id", userID)
		c.Locals("username", username)
		c.Locals("is_admin", isAdmin)
		c.Locals("is_supporter", isSupporter)
		return c.Next()
	}
}

// RequireAdmin guards admin-only routes. Must run after AuthMiddleware.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if isAdmin, _ := c.Locals("is_admin").(bool); !isAdmin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "admin access required",
			})
		}
		return c.Next()
	}
}
