// Package accounts authenticates webhook callers. Keys look like
// "<key_id>.<secret>": the key id locates the account, the secret is checked
// against its bcrypt hash.
package accounts

import (
	"context"
	"errors"
	"strings"

	"sigflow/internal/model"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidKey = errors.New("invalid or inactive api key")

type AccountSource interface {
	GetByKeyID(ctx context.Context, keyID string) (model.WebhookAccount, error)
}

type Service struct {
	store AccountSource
}

func NewService(store AccountSource) *Service {
	return &Service{store: store}
}

func (s *Service) Authenticate(ctx context.Context, apiKey string) (model.WebhookAccount, error) {
	keyID, secret, ok := strings.Cut(strings.TrimSpace(apiKey), ".")
	if !ok || keyID == "" || secret == "" {
		return model.WebhookAccount{}, ErrInvalidKey
	}
	acct, err := s.store.GetByKeyID(ctx, keyID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.WebhookAccount{}, ErrInvalidKey
		}
		return model.WebhookAccount{}, err
	}
	if !acct.Active {
		return model.WebhookAccount{}, ErrInvalidKey
	}
	if bcrypt.CompareHashAndPassword([]byte(acct.SecretHash), []byte(secret)) != nil {
		return model.WebhookAccount{}, ErrInvalidKey
	}
	return acct, nil
}
