package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/UkralStul/forum-view-service/internal/domain"
	"github.com/UkralStul/forum-view-service/internal/storage"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store реализует интерфейс Storage с использованием PostgreSQL.
type Store struct {
	db *gorm.DB
}

// New создает новый экземпляр хранилища PostgreSQL.
func New(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Выполняем миграцию схемы
	if err := db.AutoMigrate(
		&domain.User{}, &domain.Profile{}, &domain.UserAgent{},
		&domain.Group{}, &domain.Topic{}, &domain.Comment{},
		&domain.MsgText{}, &domain.DeleteInfo{}, &domain.Remark{}, &domain.Warning{},
		&domain.IgnoreEntry{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: db}, nil
}

// notFound переводит gorm.ErrRecordNotFound в ошибку уровня хранилища.
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return storage.ErrNotFound
	}
	return err
}

// === User Methods ===

func (s *Store) GetUserByID(ctx context.Context, id int) (*domain.User, error) {
	var user domain.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *Store) GetUsersByIDs(ctx context.Context, ids []int) (map[int]*domain.User, error) {
	var users []*domain.User
	// Загружаем всех пользователей одним запросом
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	return lo.Associate(users, func(u *domain.User) (int, *domain.User) {
		return u.ID, u
	}), nil
}

func (s *Store) GetUserByNick(ctx context.Context, nick string) (*domain.User, error) {
	var user domain.User
	if err := s.db.WithContext(ctx).First(&user, "nick = ?", nick).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *Store) UpdateLastLogin(ctx context.Context, userID int, at time.Time) error {
	return s.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", userID).
		Update("last_login", at).Error
}

func (s *Store) GetProfile(ctx context.Context, userID int) (*domain.Profile, error) {
	var profile domain.Profile
	if err := s.db.WithContext(ctx).First(&profile, "user_id = ?", userID).Error; err != nil {
		return nil, notFound(err)
	}
	return &profile, nil
}

func (s *Store) GetUserAgentByID(ctx context.Context, id int) (string, error) {
	var ua domain.UserAgent
	if err := s.db.WithContext(ctx).First(&ua, "id = ?", id).Error; err != nil {
		return "", notFound(err)
	}
	return ua.Name, nil
}

// === Group / Topic Methods ===

func (s *Store) GetGroupByID(ctx context.Context, id int) (*domain.Group, error) {
	var group domain.Group
	if err := s.db.WithContext(ctx).First(&group, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &group, nil
}

func (s *Store) GetTopicByID(ctx context.Context, id int) (*domain.Topic, error) {
	var topic domain.Topic
	if err := s.db.WithContext(ctx).First(&topic, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &topic, nil
}

// === Comment Methods ===

func (s *Store) GetCommentByID(ctx context.Context, id int) (*domain.Comment, error) {
	var comment domain.Comment
	if err := s.db.WithContext(ctx).First(&comment, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &comment, nil
}

func (s *Store) GetCommentsByTopicID(ctx context.Context, topicID int) ([]*domain.Comment, error) {
	var comments []*domain.Comment
	// Порядок по времени обязателен: на нем держатся дерево ответов и date jump
	err := s.db.WithContext(ctx).
		Where("topic_id = ?", topicID).
		Order("posted_at ASC, id ASC").
		Find(&comments).Error
	return comments, err
}

func (s *Store) CreateComment(ctx context.Context, comment *domain.Comment, text string) (*domain.Comment, error) {
	// Валидация
	if strings.TrimSpace(text) == "" {
		return nil, storage.ErrEmptyComment
	}
	if len(text) > storage.MaxCommentLength {
		return nil, storage.ErrCommentTooLong
	}

	// Проверяем тему и цель ответа в одной транзакции с созданием
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var topic domain.Topic
		if err := tx.First(&topic, "id = ?", comment.TopicID).Error; err != nil {
			return notFound(err)
		}
		if topic.Deleted || topic.CommentsClosed || topic.Expired(time.Now()) {
			return storage.ErrTopicClosed
		}

		if comment.ReplyTo != 0 {
			var replyCount int64
			if err := tx.Model(&domain.Comment{}).Where("id = ? AND topic_id = ?", comment.ReplyTo, comment.TopicID).Count(&replyCount).Error; err != nil {
				return err
			}
			if replyCount == 0 {
				return storage.ErrReplyNotFound
			}
		}

		if err := tx.Create(comment).Error; err != nil {
			return err
		}
		return tx.Create(&domain.MsgText{CommentID: comment.ID, Text: text}).Error
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *Store) GetIgnoredUserIDs(ctx context.Context, ownerID int) ([]int, error) {
	var ids []int
	err := s.db.WithContext(ctx).
		Model(&domain.IgnoreEntry{}).
		Where("owner_id = ?", ownerID).
		Pluck("ignored_id", &ids).Error
	return ids, err
}

// === MsgText Methods ===

func (s *Store) GetMessageText(ctx context.Context, commentID int) (*domain.MsgText, error) {
	var text domain.MsgText
	if err := s.db.WithContext(ctx).First(&text, "comment_id = ?", commentID).Error; err != nil {
		return nil, notFound(err)
	}
	return &text, nil
}

func (s *Store) GetMessageTexts(ctx context.Context, commentIDs []int) (map[int]*domain.MsgText, error) {
	var texts []*domain.MsgText
	if err := s.db.WithContext(ctx).Where("comment_id IN ?", commentIDs).Find(&texts).Error; err != nil {
		return nil, err
	}
	return lo.Associate(texts, func(t *domain.MsgText) (int, *domain.MsgText) {
		return t.CommentID, t
	}), nil
}

// === DeleteInfo Methods ===

func (s *Store) GetDeleteInfo(ctx context.Context, commentID int) (*domain.DeleteInfo, error) {
	var info domain.DeleteInfo
	if err := s.db.WithContext(ctx).First(&info, "comment_id = ?", commentID).Error; err != nil {
		return nil, notFound(err)
	}
	return &info, nil
}

// === Remark Methods ===

func (s *Store) GetRemarks(ctx context.Context, ownerID int, refUserIDs []int) (map[int]*domain.Remark, error) {
	var remarks []*domain.Remark
	err := s.db.WithContext(ctx).
		Where("owner_id = ? AND ref_user_id IN ?", ownerID, refUserIDs).
		Find(&remarks).Error
	if err != nil {
		return nil, err
	}
	return lo.Associate(remarks, func(r *domain.Remark) (int, *domain.Remark) {
		return r.RefUserID, r
	}), nil
}

// === Warning Methods ===

func (s *Store) GetWarningsByCommentIDs(ctx context.Context, commentIDs []int) (map[int][]*domain.Warning, error) {
	var warnings []*domain.Warning
	// Загружаем пометки для всех комментариев одним запросом
	err := s.db.WithContext(ctx).
		Where("comment_id IN ?", commentIDs).
		Order("comment_id, posted_at ASC").
		Find(&warnings).Error
	if err != nil {
		return nil, err
	}
	return lo.GroupBy(warnings, func(w *domain.Warning) int {
		return w.CommentID
	}), nil
}
