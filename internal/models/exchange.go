// internal/models/exchange.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// ChatExchange is one user message and the reply it received.
type ChatExchange struct {
	ExchangeID   uuid.UUID `json:"exchangeId" db:"exchange_id"`
	Message      string    `json:"message" db:"user_message"`
	Response     string    `json:"response" db:"bot_response"`
	SessionToken string    `json:"sessionId,omitempty" db:"session_id"`
	Route        string    `json:"route" db:"route"`
	Timestamp    time.Time `json:"timestamp" db:"created_at"`
}

// NewChatExchange stamps a new exchange with a fresh id and the current time.
func NewChatExchange(message, response, sessionToken, route string) ChatExchange {
	return ChatExchange{
		ExchangeID:   uuid.New(),
		Message:      message,
		Response:     response,
		SessionToken: sessionToken,
		Route:        route,
		Timestamp:    time.Now().UTC(),
	}
}
