package websocket

import (
	"log"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
)

// The hub pushes payment and payout events to connected dashboards. Admin
// connections receive every event; instructor connections only their own.
type Client struct {
	UserID  uuid.UUID
	IsAdmin bool
	Conn    *websocket.Conn
}

var clients = make(map[uuid.UUID]*Client)
var clientsMu sync.RWMutex

func RegisterClient(client *Client) {
	log.Printf("Event feed client registered: %s", client.UserID)
	clientsMu.Lock()
	clients[client.UserID] = client
	clientsMu.Unlock()
}

func UnregisterClient(client *Client) {
	log.Printf("Event feed client unregistered: %s", client.UserID)
	clientsMu.Lock()
	if existing, ok := clients[client.UserID]; ok && existing.Conn == client.Conn {
		delete(clients, client.UserID)
	}
	clientsMu.Unlock()
}

// BroadcastEvent delivers an event to the matching connections. A write
// failure drops that connection; delivery is best-effort.
func BroadcastEvent(instructorID uuid.UUID, event interface{}) {
	clientsMu.RLock()
	var failed []*Client
	for _, client := range clients {
		if !client.IsAdmin && client.UserID != instructorID {
			continue
		}
		if err := client.Conn.WriteJSON(event); err != nil {
			log.Printf("Error sending event to client %s: %v", client.UserID, err)
			failed = append(failed, client)
		}
	}
	clientsMu.RUnlock()

	for _, client := range failed {
		client.Conn.Close()
		UnregisterClient(client)
	}
}
