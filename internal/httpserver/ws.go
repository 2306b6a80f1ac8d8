package httpserver

import (
	"net/http"
	"strings"

	"sigflow/internal/auth"
	"sigflow/internal/events"

	"github.com/gorilla/websocket"
)

// TopicWS streams one broadcast topic over a websocket. Delivery is
// fire-and-forget from the bus; there is no replay of events published before
// the client attached.
type TopicWS struct {
	bus      *events.Bus
	topic    events.Topic
	authSvc  *auth.Service
	upgrader websocket.Upgrader
}

func NewTopicWS(bus *events.Bus, topic events.Topic, authSvc *auth.Service, origin string) *TopicWS {
	return &TopicWS{
		bus:     bus,
		topic:   topic,
		authSvc: authSvc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return allowOrigin(r, origin) },
		},
	}
}

func (h *TopicWS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Browser websockets cannot set headers, so the token rides the query.
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	if _, err := h.authSvc.ParseToken(token); err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	sub := h.bus.Subscribe(h.topic)
	defer h.bus.Unsubscribe(h.topic, sub)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	for {
		select {
		case evt, ok := <-sub:
			if !ok {
				return
			}
			if err := conn.WriteJSON(evt); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func allowOrigin(r *http.Request, origin string) bool {
	if origin == "*" {
		return true
	}
	reqOrigin := r.Header.Get("Origin")
	if strings.Contains(origin, "localhost") || strings.Contains(origin, "127.0.0.1") {
		if strings.Contains(reqOrigin, "localhost") || strings.Contains(reqOrigin, "127.0.0.1") {
			return true
		}
	}
	return strings.EqualFold(reqOrigin, origin)
}
