package accounts

import (
	"context"
	"errors"

	"sigflow/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("webhook account not found")

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) GetByKeyID(ctx context.Context, keyID string) (model.WebhookAccount, error) {
	var a model.WebhookAccount
	err := s.pool.QueryRow(ctx,
		"select id, key_id, secret_hash, label, active, created_at from webhook_accounts where key_id = $1",
		keyID).Scan(&a.ID, &a.KeyID, &a.SecretHash, &a.Label, &a.Active, &a.CreatedAt)
	if err == pgx.ErrNoRows {
		return a, ErrNotFound
	}
	return a, err
}

func (s *Store) Create(ctx context.Context, a model.WebhookAccount) (string, error) {
	var id string
	err := s.pool.QueryRow(ctx,
		"insert into webhook_accounts (key_id, secret_hash, label, active, created_at) values ($1,$2,$3,true,now()) returning id",
		a.KeyID, a.SecretHash, a.Label).Scan(&id)
	return id, err
}
