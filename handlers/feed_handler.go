package handlers

import (
	"github.com/edupay/payment_service/database"
	"github.com/edupay/payment_service/models"
	ws "github.com/edupay/payment_service/websocket"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// UpgradeEventFeed gates the websocket upgrade behind the JWT middleware.
func UpgradeEventFeed(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// EventFeed streams payment and payout events. Admins see everything;
// instructors only their own events.
func EventFeed() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		token, ok := conn.Locals("user").(*jwt.Token)
		if !ok {
			conn.Close()
			return
		}
		claims := token.Claims.(jwt.MapClaims)
		userID, err := uuid.Parse(claims["user_id"].(string))
		if err != nil {
			conn.Close()
			return
		}
		role, _ := claims["role"].(string)

		subjectID := userID
		if role == "instructor" {
			var instructor models.Instructor
			if err := database.DB.First(&instructor, "user_id = ?", userID).Error; err == nil {
				subjectID = instructor.ID
			}
		}

		client := &ws.Client{UserID: subjectID, IsAdmin: role == "admin", Conn: conn}
		ws.RegisterClient(client)
		defer ws.UnregisterClient(client)

		// Hold the connection open; the feed is push-only.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	})
}
