package signals

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"sigflow/internal/model"
	"sigflow/internal/types"
)

// MemStore backs the service when no database is configured.
type MemStore struct {
	mu   sync.Mutex
	seq  int64
	recs map[string]model.SignalRecord
}

func NewMemStore() *MemStore {
	return &MemStore{recs: make(map[string]model.SignalRecord)}
}

func (s *MemStore) Create(_ context.Context, accountID, rawText string) (model.SignalRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	rec := model.SignalRecord{
		ID:        fmt.Sprintf("sig-%d", s.seq),
		AccountID: accountID,
		RawText:   rawText,
		Status:    types.SignalStatusReceived,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	s.recs[rec.ID] = rec
	return rec, nil
}

func (s *MemStore) SetStatus(_ context.Context, id string, status types.SignalStatus, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[id]
	if !ok {
		return errors.New("signal not found")
	}
	rec.Status = status
	rec.Error = errMsg
	rec.UpdatedAt = time.Now().UTC()
	s.recs[id] = rec
	return nil
}

func (s *MemStore) Get(_ context.Context, id string) (model.SignalRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[id]
	if !ok {
		return model.SignalRecord{}, errors.New("signal not found")
	}
	return rec, nil
}
