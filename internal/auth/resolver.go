package auth

import (
	"context"
	"errors"
	"time"

	"github.com/UkralStul/forum-view-service/internal/domain"
	"github.com/UkralStul/forum-view-service/internal/storage"
)

// CurrentSession классифицирует контекст аутентификации в сессию.
// Сессия авторизована только если принципал аутентифицирован, не является
// системным анонимом и несет роль authenticated. Роли корректора,
// модератора и администратора проверяются независимо друг от друга.
func CurrentSession(ctx context.Context) Session {
	ac, ok := FromContext(ctx)
	if !ok || !ac.Authenticated() {
		return AnonymousSession()
	}
	user := ac.User()
	if user == nil || user.Anonymous || !ac.HasRole(RoleAuthenticated) {
		return AnonymousSession()
	}
	return Session{
		user:          user,
		authorized:    true,
		corrector:     ac.HasRole(RoleCorrector),
		moderator:     ac.HasRole(RoleModerator),
		administrator: ac.HasRole(RoleAdministrator),
	}
}

// WithSession всегда вызывает f, передавая анонимную сессию для
// неаутентифицированных запросов.
func WithSession[T any](ctx context.Context, f func(Session) (T, error)) (T, error) {
	return f(CurrentSession(ctx))
}

// WithAuthenticated вызывает f только для авторизованной сессии.
func WithAuthenticated[T any](ctx context.Context, f func(Session) (T, error)) (T, error) {
	session := CurrentSession(ctx)
	if !session.Authorized() {
		var zero T
		return zero, errNotAuthenticated
	}
	return f(session)
}

// WithModerator вызывает f только для сессии с ролью модератора.
func WithModerator[T any](ctx context.Context, f func(Session) (T, error)) (T, error) {
	return WithAuthenticated(ctx, func(s Session) (T, error) {
		if !s.Moderator() {
			var zero T
			return zero, errModeratorRequired
		}
		return f(s)
	})
}

// WithCorrectorOrModerator вызывает f для корректора либо модератора.
func WithCorrectorOrModerator[T any](ctx context.Context, f func(Session) (T, error)) (T, error) {
	return WithAuthenticated(ctx, func(s Session) (T, error) {
		if !s.Corrector() && !s.Moderator() {
			var zero T
			return zero, errCorrectorRequired
		}
		return f(s)
	})
}

// WithAdministrator вызывает f только для сессии администратора.
func WithAdministrator[T any](ctx context.Context, f func(Session) (T, error)) (T, error) {
	return WithAuthenticated(ctx, func(s Session) (T, error) {
		if !s.Administrator() {
			var zero T
			return zero, errAdministratorRequired
		}
		return f(s)
	})
}

// CurrentNickname возвращает ник текущего пользователя.
func CurrentNickname(ctx context.Context) (string, bool) {
	return CurrentSession(ctx).Nickname()
}

// CurrentUser возвращает текущего пользователя.
func CurrentUser(ctx context.Context) (*domain.User, bool) {
	return CurrentSession(ctx).User()
}

// ProfileSource — минимальный контракт загрузки профиля.
type ProfileSource interface {
	GetProfile(ctx context.Context, userID int) (*domain.Profile, error)
}

// CurrentProfile возвращает профиль текущего пользователя либо профиль
// по умолчанию для анонимов и пользователей без сохраненного профиля.
func CurrentProfile(ctx context.Context, source ProfileSource) (domain.Profile, error) {
	user, ok := CurrentUser(ctx)
	if !ok {
		return domain.DefaultProfile(), nil
	}
	profile, err := source.GetProfile(ctx, user.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return domain.DefaultProfile(), nil
	}
	if err != nil {
		return domain.Profile{}, err
	}
	return *profile, nil
}

// LoginStore — минимальный контракт отметки последнего входа.
type LoginStore interface {
	UpdateLastLogin(ctx context.Context, userID int, at time.Time) error
}

// RecordLogin отмечает время последнего входа аутентифицированного
// принципала. Классификация та же, что у CurrentSession: для анонимных
// сессий, включая системного анонимного принципала, ничего не делает.
func RecordLogin(ctx context.Context, store LoginStore, now time.Time) error {
	user, ok := CurrentUser(ctx)
	if !ok {
		return nil
	}
	return store.UpdateLastLogin(ctx, user.ID, now)
}
