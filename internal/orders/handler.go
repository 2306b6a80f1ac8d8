package orders

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"sigflow/internal/httputil"
	"sigflow/internal/model"
)

type Reader interface {
	ListOrders(ctx context.Context, limit int) ([]model.Order, error)
	GetOrder(ctx context.Context, id string) (model.Order, error)
	ListHistory(ctx context.Context, orderID string) ([]model.OrderHistory, error)
}

// Closer drives the external close command for an executed order.
type Closer interface {
	CloseOrder(ctx context.Context, orderID string) (model.Order, error)
}

type Handler struct {
	reader Reader
	closer Closer
}

func NewHandler(reader Reader, closer Closer) *Handler {
	return &Handler{reader: reader, closer: closer}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}
	list, err := h.reader.ListOrders(r.Context(), limit)
	if err != nil {
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: "internal error"})
		return
	}
	if list == nil {
		list = []model.Order{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"items": list})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request, orderID string) {
	o, err := h.reader.GetOrder(r.Context(), orderID)
	if err != nil {
		writeOrderErr(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, o)
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request, orderID string) {
	if _, err := h.reader.GetOrder(r.Context(), orderID); err != nil {
		writeOrderErr(w, err)
		return
	}
	hist, err := h.reader.ListHistory(r.Context(), orderID)
	if err != nil {
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: "internal error"})
		return
	}
	if hist == nil {
		hist = []model.OrderHistory{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"items": hist})
}

func (h *Handler) Close(w http.ResponseWriter, r *http.Request, orderID string) {
	o, err := h.closer.CloseOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{Error: "order not found"})
			return
		}
		httputil.WriteJSON(w, http.StatusConflict, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, o)
}

func writeOrderErr(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{Error: "order not found"})
		return
	}
	httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: "internal error"})
}
