package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/UkralStul/forum-view-service/internal/auth"
	"github.com/UkralStul/forum-view-service/internal/storage"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeError переводит ошибки доменного слоя в HTTP-статусы.
func writeError(w http.ResponseWriter, err error) {
	var denied *auth.AccessDeniedError
	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &denied):
		status = http.StatusForbidden
	case errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, storage.ErrEmptyComment),
		errors.Is(err, storage.ErrCommentTooLong),
		errors.Is(err, storage.ErrTopicClosed),
		errors.Is(err, storage.ErrReplyNotFound):
		status = http.StatusBadRequest
	default:
		slog.Error("request failed", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
