package storage

import (
	"context"
	"errors"
	"time"

	"github.com/UkralStul/forum-view-service/internal/domain"
)

// ErrNotFound возвращается, когда запрошенная сущность отсутствует.
var ErrNotFound = errors.New("storage: not found")

// Ошибки валидации при создании комментария.
var (
	ErrEmptyComment   = errors.New("comment content cannot be empty")
	ErrCommentTooLong = errors.New("comment content is too long")
	ErrTopicClosed    = errors.New("comments are closed for this topic")
	ErrReplyNotFound  = errors.New("reply target not found")
)

// MaxCommentLength — максимальная длина текста комментария.
const MaxCommentLength = 4096

// Storage определяет контракт для хранилищ.
type Storage interface {
	// Пользователи
	GetUserByID(ctx context.Context, id int) (*domain.User, error)
	GetUsersByIDs(ctx context.Context, ids []int) (map[int]*domain.User, error)
	GetUserByNick(ctx context.Context, nick string) (*domain.User, error)
	UpdateLastLogin(ctx context.Context, userID int, at time.Time) error
	GetProfile(ctx context.Context, userID int) (*domain.Profile, error)
	GetUserAgentByID(ctx context.Context, id int) (string, error)

	// Разделы и темы
	GetGroupByID(ctx context.Context, id int) (*domain.Group, error)
	GetTopicByID(ctx context.Context, id int) (*domain.Topic, error)

	// Комментарии
	GetCommentByID(ctx context.Context, id int) (*domain.Comment, error)
	GetCommentsByTopicID(ctx context.Context, topicID int) ([]*domain.Comment, error)
	CreateComment(ctx context.Context, comment *domain.Comment, text string) (*domain.Comment, error)

	// Игнор-лист просматривающего
	GetIgnoredUserIDs(ctx context.Context, ownerID int) ([]int, error)

	// Тексты сообщений (одиночная и батчевая загрузка)
	GetMessageText(ctx context.Context, commentID int) (*domain.MsgText, error)
	GetMessageTexts(ctx context.Context, commentIDs []int) (map[int]*domain.MsgText, error)

	// История удаления
	GetDeleteInfo(ctx context.Context, commentID int) (*domain.DeleteInfo, error)

	// Заметки просматривающего о других пользователях
	GetRemarks(ctx context.Context, ownerID int, refUserIDs []int) (map[int]*domain.Remark, error)

	// Пометки модераторов
	GetWarningsByCommentIDs(ctx context.Context, commentIDs []int) (map[int][]*domain.Warning, error)
}
