package auth

import (
	"net/http"
	"time"

	"sigflow/internal/httputil"
	"sigflow/internal/model"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type tokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

// Token exchanges an authenticated webhook API key for a subscriber stream
// token.
func (h *Handler) Token(w http.ResponseWriter, _ *http.Request, account model.WebhookAccount) {
	token, err := h.svc.MintToken(account.ID)
	if err != nil {
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: "internal error"})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, tokenResponse{Token: token, ExpiresIn: int64(h.svc.ttl / time.Second)})
}
