package permission

import (
	"time"

	"github.com/UkralStul/forum-view-service/internal/domain"
)

// Service вычисляет права на действия с комментариями.
// Правила чистые: только доменные значения на входе, без обращений к базе.
type Service struct {
	// DeleteDeadline — окно, в течение которого автор может удалить свой
	// комментарий без модератора.
	DeleteDeadline time.Duration
	// EditDeadline — окно самостоятельного редактирования.
	EditDeadline time.Duration
	// WarningMinScore — минимальный счет, с которого пользователю доступны
	// пометки для модераторов.
	WarningMinScore int
}

// New возвращает сервис с правилами по умолчанию.
func New() *Service {
	return &Service{
		DeleteDeadline:  30 * time.Minute,
		EditDeadline:    30 * time.Minute,
		WarningMinScore: 50,
	}
}

// CommentDeletableNow сообщает, может ли by удалить комментарий прямо сейчас.
func (s *Service) CommentDeletableNow(c *domain.Comment, topic *domain.Topic, by *domain.User, hasAnswers bool, now time.Time) bool {
	if by == nil || c.Deleted || topic.Deleted {
		return false
	}
	if by.Moderator {
		return !topic.Expired(now)
	}
	// Автор может удалить свой комментарий, пока на него не ответили
	// и не вышло окно удаления
	return by.ID == c.AuthorID &&
		!hasAnswers &&
		!topic.Expired(now) &&
		now.Sub(c.PostedAt) <= s.DeleteDeadline
}

// CommentEditableNow сообщает, может ли by отредактировать комментарий.
func (s *Service) CommentEditableNow(c *domain.Comment, topic *domain.Topic, by *domain.User, hasAnswers bool, now time.Time) bool {
	if by == nil || c.Deleted || topic.Deleted || topic.Expired(now) {
		return false
	}
	if by.Moderator || by.Corrector {
		return true
	}
	return by.ID == c.AuthorID &&
		!hasAnswers &&
		now.Sub(c.PostedAt) <= s.EditDeadline
}

// CommentUndeletable сообщает, можно ли восстановить удаленный комментарий.
func (s *Service) CommentUndeletable(c *domain.Comment, topic *domain.Topic, by *domain.User, now time.Time) bool {
	if by == nil || !by.Moderator {
		return false
	}
	return c.Deleted && !topic.Deleted && !topic.Expired(now)
}

// Warnable сообщает, может ли by оставить пометку на комментарии.
func (s *Service) Warnable(c *domain.Comment, topic *domain.Topic, by *domain.User, now time.Time) bool {
	if by == nil || c.Deleted || topic.Deleted || topic.Expired(now) {
		return false
	}
	if by.Moderator || by.Corrector {
		return true
	}
	return by.Score >= s.WarningMinScore
}

// CommentsAllowed сообщает, принимает ли раздел/тема комментарии от author.
// ignoreFrozen позволяет не учитывать заморозку пользователя; остальные
// ограничения действуют и под этим флагом.
func (s *Service) CommentsAllowed(group *domain.Group, topic *domain.Topic, author *domain.User, ignoreFrozen bool, now time.Time) bool {
	if topic.Deleted || topic.CommentsClosed || topic.Expired(now) {
		return false
	}
	if group.CommentsClosed {
		return false
	}
	if author == nil {
		return false
	}
	if !ignoreFrozen && author.Frozen(now) {
		return false
	}
	return true
}
