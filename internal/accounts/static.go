package accounts

import (
	"context"
	"time"

	"sigflow/internal/model"
)

// StaticStore serves a single account configured through the environment.
// Used when no database is available.
type StaticStore struct {
	account model.WebhookAccount
}

func NewStaticStore(keyID, secretHash string) *StaticStore {
	return &StaticStore{account: model.WebhookAccount{
		ID:         "static",
		KeyID:      keyID,
		SecretHash: secretHash,
		Label:      "static",
		Active:     true,
		CreatedAt:  time.Now().UTC(),
	}}
}

func (s *StaticStore) GetByKeyID(_ context.Context, keyID string) (model.WebhookAccount, error) {
	if keyID != s.account.KeyID {
		return model.WebhookAccount{}, ErrNotFound
	}
	return s.account, nil
}
