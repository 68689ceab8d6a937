package auth

import (
	"context"

	"github.com/UkralStul/forum-view-service/internal/domain"
)

// Context — явный контекст аутентификации запроса. Он заменяет «невидимое»
// глобальное состояние: middleware строит его из токена и кладет в
// context.Context, дальше все читают только его.
type Context struct {
	user          *domain.User
	authenticated bool
	roles         map[string]bool
}

// NewContext строит контекст аутентификации с заданным набором ролей.
func NewContext(user *domain.User, roles ...string) Context {
	set := make(map[string]bool, len(roles))
	for _, r := range roles {
		set[r] = true
	}
	return Context{
		user:          user,
		authenticated: user != nil,
		roles:         set,
	}
}

// ContextFor выводит роли из флагов самого пользователя.
// Системный анонимный принципал аутентифицирован, но роли authenticated
// не получает.
func ContextFor(user *domain.User) Context {
	if user == nil {
		return Context{}
	}
	var roles []string
	if user.Activated && !user.Anonymous {
		roles = append(roles, RoleAuthenticated)
	}
	if user.Corrector {
		roles = append(roles, RoleCorrector)
	}
	if user.Moderator {
		roles = append(roles, RoleModerator)
	}
	if user.Administrator {
		roles = append(roles, RoleAdministrator)
	}
	return NewContext(user, roles...)
}

// Authenticated сообщает, стоит ли за запросом какой-либо принципал.
func (c Context) Authenticated() bool { return c.authenticated }

// HasRole проверяет наличие роли у контекста.
func (c Context) HasRole(role string) bool { return c.roles[role] }

// User возвращает принципала запроса; nil для неаутентифицированных.
func (c Context) User() *domain.User { return c.user }

type contextKey string

const key = contextKey("authContext")

// WithContext кладет контекст аутентификации в context.Context запроса.
func WithContext(ctx context.Context, ac Context) context.Context {
	return context.WithValue(ctx, key, ac)
}

// FromContext извлекает контекст аутентификации.
func FromContext(ctx context.Context) (Context, bool) {
	ac, ok := ctx.Value(key).(Context)
	return ac, ok
}
