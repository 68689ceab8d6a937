package auth

import (
	"github.com/UkralStul/forum-view-service/internal/domain"
)

// Роли, которые может нести контекст аутентификации.
const (
	RoleAuthenticated = "authenticated"
	RoleCorrector     = "corrector"
	RoleModerator     = "moderator"
	RoleAdministrator = "administrator"
)

// AccessDeniedError возвращается, когда у сессии нет требуемой роли.
type AccessDeniedError struct {
	Requirement string
}

func (e *AccessDeniedError) Error() string {
	return "access denied: " + e.Requirement + " required"
}

var (
	errNotAuthenticated      = &AccessDeniedError{Requirement: "authenticated session"}
	errModeratorRequired     = &AccessDeniedError{Requirement: "moderator role"}
	errCorrectorRequired     = &AccessDeniedError{Requirement: "corrector or moderator role"}
	errAdministratorRequired = &AccessDeniedError{Requirement: "administrator role"}
)

// Session — неизменяемый снимок авторизации на один запрос.
// Нулевое значение — анонимная сессия: без пользователя и без ролей.
type Session struct {
	user          *domain.User
	authorized    bool
	corrector     bool
	moderator     bool
	administrator bool
}

// AnonymousSession возвращает сессию анонимного посетителя.
func AnonymousSession() Session {
	return Session{}
}

// Authorized сообщает, аутентифицирована ли сессия.
func (s Session) Authorized() bool { return s.authorized }

// Corrector сообщает, есть ли у сессии роль корректора.
func (s Session) Corrector() bool { return s.corrector }

// Moderator сообщает, есть ли у сессии роль модератора.
func (s Session) Moderator() bool { return s.moderator }

// Administrator сообщает, есть ли у сессии роль администратора.
func (s Session) Administrator() bool { return s.administrator }

// User возвращает пользователя сессии, если она аутентифицирована.
func (s Session) User() (*domain.User, bool) {
	if !s.authorized {
		return nil, false
	}
	return s.user, true
}

// Nickname возвращает ник пользователя сессии, если она аутентифицирована.
func (s Session) Nickname() (string, bool) {
	if !s.authorized {
		return "", false
	}
	return s.user.Nick, true
}
