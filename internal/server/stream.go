package server

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

const streamPingInterval = 10 * time.Second

// handleStream отдает новые комментарии темы по websocket.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	topicID, err := strconv.Atoi(chi.URLParam(r, "topicID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid topic id"})
		return
	}
	if _, err := s.store.GetTopicByID(r.Context(), topicID); err != nil {
		writeError(w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	subID, comments := s.observer.Subscribe(topicID)
	defer s.observer.Unsubscribe(topicID, subID)

	// Читаем соединение только ради обнаружения закрытия
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(streamPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case pc, ok := <-comments:
			if !ok {
				return
			}
			if err := conn.WriteJSON(pc); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
