// Package signals persists the audit row for every raw webhook payload,
// including the ones that never become orders.
package signals

import (
	"context"
	"time"

	"sigflow/internal/model"
	"sigflow/internal/types"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Create(ctx context.Context, accountID, rawText string) (model.SignalRecord, error) {
	rec := model.SignalRecord{
		AccountID: accountID,
		RawText:   rawText,
		Status:    types.SignalStatusReceived,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	err := s.pool.QueryRow(ctx,
		"insert into trading_signals (account_id, raw_text, status, error_message, created_at, updated_at) values ($1,$2,$3,'',$4,$4) returning id",
		accountID, rawText, string(rec.Status), rec.CreatedAt).Scan(&rec.ID)
	return rec, err
}

func (s *Store) SetStatus(ctx context.Context, id string, status types.SignalStatus, errMsg string) error {
	_, err := s.pool.Exec(ctx,
		"update trading_signals set status=$2, error_message=$3, updated_at=$4 where id=$1",
		id, string(status), errMsg, time.Now().UTC())
	return err
}

func (s *Store) Get(ctx context.Context, id string) (model.SignalRecord, error) {
	var rec model.SignalRecord
	var status string
	err := s.pool.QueryRow(ctx,
		"select id, account_id, raw_text, status, error_message, created_at, updated_at from trading_signals where id=$1",
		id).Scan(&rec.ID, &rec.AccountID, &rec.RawText, &status, &rec.Error, &rec.CreatedAt, &rec.UpdatedAt)
	rec.Status = types.SignalStatus(status)
	return rec, err
}
