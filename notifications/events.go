package notifications

import (
	"log"

	"github.com/edupay/payment_service/websocket"
	"github.com/google/uuid"
)

type EventType string

const (
	EventPaymentCompleted EventType = "PAYMENT_COMPLETED"
	EventRefundCompleted  EventType = "REFUND_COMPLETED"
	EventPayoutCompleted  EventType = "PAYOUT_COMPLETED"
	EventPayoutFailed     EventType = "PAYOUT_FAILED"
	EventNewEarnings      EventType = "NEW_EARNINGS"
)

// Event is a fire-and-forget domain notification. Delivery failures are
// logged and never affect ledger or payout state.
type Event struct {
	Type         EventType              `json:"type"`
	InstructorID uuid.UUID              `json:"instructor_id"`
	Payload      map[string]interface{} `json:"payload"`
}

// Dispatch fans an event out to the live websocket feed. Callers invoke it
// in a goroutine after their own transaction has committed.
func Dispatch(event Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("🔥 Recovered from panic while dispatching %s event: %v", event.Type, r)
		}
	}()

	websocket.BroadcastEvent(event.InstructorID, event)
}
