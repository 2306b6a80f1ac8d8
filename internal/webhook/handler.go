// Package webhook receives raw signal text. The handler only parses,
// validates and enqueues; it never waits on broker simulation or broadcast
// delivery. A receivable body is always acknowledged with 200; malformed
// trading signals are reported on the invalid_signals topic, not as HTTP
// errors.
package webhook

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"sigflow/internal/engine"
	"sigflow/internal/events"
	"sigflow/internal/httputil"
	"sigflow/internal/model"
	"sigflow/internal/queue"
	"sigflow/internal/signal"
	"sigflow/internal/types"
)

const maxBodyBytes = 64 << 10

type SignalStore interface {
	Create(ctx context.Context, accountID, rawText string) (model.SignalRecord, error)
	SetStatus(ctx context.Context, id string, status types.SignalStatus, errMsg string) error
}

type Handler struct {
	queue     queue.Queue
	bus       *events.Bus
	signals   SignalStore
	validator signal.ValidatorConfig
}

func NewHandler(q queue.Queue, bus *events.Bus, signals SignalStore, validator signal.ValidatorConfig) *Handler {
	return &Handler{queue: q, bus: bus, signals: signals, validator: validator}
}

type receiveResponse struct {
	Message  string `json:"message"`
	SignalID string `json:"signal_id,omitempty"`
}

func (h *Handler) Receive(w http.ResponseWriter, r *http.Request, account model.WebhookAccount) {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "text/plain") {
		httputil.WriteJSON(w, http.StatusUnsupportedMediaType, httputil.ErrorResponse{Error: "content type must be text/plain"})
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "unreadable body"})
		return
	}
	raw := string(body)
	if strings.TrimSpace(raw) == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "signal message is required"})
		return
	}

	rec, err := h.signals.Create(r.Context(), account.ID, raw)
	if err != nil {
		log.Printf("webhook: persisting signal: %v", err)
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: "internal error"})
		return
	}

	sig, perr := signal.Parse(raw)
	if perr != nil {
		h.rejectSignal(r.Context(), rec.ID, perr.Reason, map[string]any{"line": perr.Line})
		httputil.WriteJSON(w, http.StatusOK, receiveResponse{Message: "signal received", SignalID: rec.ID})
		return
	}
	if verr := signal.Validate(sig, h.validator); verr != nil {
		h.rejectSignal(r.Context(), rec.ID, verr.Reason, map[string]any{"rule": verr.Rule})
		httputil.WriteJSON(w, http.StatusOK, receiveResponse{Message: "signal received", SignalID: rec.ID})
		return
	}

	payload, err := json.Marshal(engine.Envelope{SignalID: rec.ID, Signal: sig})
	if err != nil {
		log.Printf("webhook: encoding envelope: %v", err)
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: "internal error"})
		return
	}
	if err := h.queue.Enqueue(r.Context(), rec.ID, payload); err != nil {
		// Infrastructure failure, surfaced so the caller can retry delivery.
		log.Printf("webhook: enqueue signal %s: %v", rec.ID, err)
		httputil.WriteJSON(w, http.StatusServiceUnavailable, httputil.ErrorResponse{Error: "queue unavailable"})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, receiveResponse{Message: "signal received", SignalID: rec.ID})
}

func (h *Handler) rejectSignal(ctx context.Context, signalID, reason string, data map[string]any) {
	if err := h.signals.SetStatus(ctx, signalID, types.SignalStatusFailed, reason); err != nil {
		log.Printf("webhook: marking signal %s failed: %v", signalID, err)
	}
	h.bus.Publish(events.TopicInvalidSignals, events.Event{
		Type:   "signal.invalid",
		Reason: reason,
		Data:   data,
		TS:     time.Now().UnixMilli(),
	})
}
