package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventVerificationRequested EventType = "verification_requested"
	EventUserVerified          EventType = "user_verified"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// VerificationRequestedPayload carries what the notification side needs to
// send a confirmation email. The one-time token itself never leaves the
// token store except embedded in the link.
type VerificationRequestedPayload struct {
	Email     string `json:"email"`
	VerifyURL string `json:"verify_url"`
}

// UserVerifiedPayload marks a completed email confirmation.
type UserVerifiedPayload struct {
	Email string `json:"email"`
}
