package auth

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/UkralStul/forum-view-service/internal/domain"
)

// TokenRegistry хранит выданные токены сессий в памяти.
type TokenRegistry struct {
	mu     sync.RWMutex
	tokens map[string]int // map[token]userID
}

// NewTokenRegistry создает пустой реестр токенов.
func NewTokenRegistry() *TokenRegistry {
	return &TokenRegistry{tokens: make(map[string]int)}
}

// Issue выдает новый токен для пользователя.
func (r *TokenRegistry) Issue(userID int) string {
	token := uuid.NewString()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[token] = userID
	return token
}

// Resolve возвращает id пользователя по токену.
func (r *TokenRegistry) Resolve(token string) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	userID, ok := r.tokens[token]
	return userID, ok
}

// Revoke отзывает токен.
func (r *TokenRegistry) Revoke(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tokens, token)
}

// UserSource — минимальный контракт загрузки пользователя по id.
type UserSource interface {
	GetUserByID(ctx context.Context, id int) (*domain.User, error)
}

// Middleware строит контекст аутентификации из заголовка Authorization
// и кладет его в контекст запроса. Запросы без валидного токена проходят
// дальше без контекста — дальше они классифицируются как анонимные.
func Middleware(registry *TokenRegistry, users UserSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			userID, ok := registry.Resolve(token)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			user, err := users.GetUserByID(r.Context(), userID)
			if err != nil {
				// Токен указывает на исчезнувшего пользователя: считаем запрос анонимным
				next.ServeHTTP(w, r)
				return
			}

			ctx := WithContext(r.Context(), ContextFor(user))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken извлекает токен из заголовка Authorization.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
