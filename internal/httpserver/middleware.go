package httpserver

import (
	"context"
	"net/http"

	"sigflow/internal/accounts"
	"sigflow/internal/httputil"
	"sigflow/internal/model"
)

type ctxKey string

const accountKey ctxKey = "webhook_account"

// WithAPIKey authenticates the X-API-KEY header against webhook accounts.
func WithAPIKey(svc *accounts.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-KEY")
			if key == "" {
				httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "missing X-API-KEY header"})
				return
			}
			acct, err := svc.Authenticate(r.Context(), key)
			if err != nil {
				httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "invalid or inactive api key"})
				return
			}
			ctx := context.WithValue(r.Context(), accountKey, acct)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func Account(r *http.Request) (model.WebhookAccount, bool) {
	v := r.Context().Value(accountKey)
	if v == nil {
		return model.WebhookAccount{}, false
	}
	acct, ok := v.(model.WebhookAccount)
	return acct, ok
}
