package model

import (
	"time"

	"sigflow/internal/types"
)

// SignalRecord is the audit row for one raw webhook payload. Every hit gets a
// row, including ones that never become orders.
type SignalRecord struct {
	ID        string             `json:"id"`
	AccountID string             `json:"account_id"`
	RawText   string             `json:"raw_text"`
	Status    types.SignalStatus `json:"status"`
	Error     string             `json:"error,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

type WebhookAccount struct {
	ID         string    `json:"id"`
	KeyID      string    `json:"key_id"`
	SecretHash string    `json:"-"`
	Label      string    `json:"label"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
}
