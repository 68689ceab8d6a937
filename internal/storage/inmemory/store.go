package inmemory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/UkralStul/forum-view-service/internal/domain"
	"github.com/UkralStul/forum-view-service/internal/storage"
)

// Store реализует интерфейс Storage в памяти.
type Store struct {
	mu              sync.RWMutex
	nextID          int
	users           map[int]*domain.User
	usersByNick     map[string]int
	profiles        map[int]*domain.Profile
	userAgents      map[int]string
	groups          map[int]*domain.Group
	topics          map[int]*domain.Topic
	comments        map[int]*domain.Comment
	commentsByTopic map[int][]int // map[topicID][]commentID, в порядке добавления
	texts           map[int]*domain.MsgText
	deleteInfo      map[int]*domain.DeleteInfo
	remarks         map[int]map[int]*domain.Remark // map[ownerID]map[refUserID]
	warnings        map[int][]*domain.Warning      // map[commentID]
	ignored         map[int][]int                  // map[ownerID][]ignoredID
}

// New создает новый экземпляр in-memory хранилища.
func New() *Store {
	return &Store{
		nextID:          1,
		users:           make(map[int]*domain.User),
		usersByNick:     make(map[string]int),
		profiles:        make(map[int]*domain.Profile),
		userAgents:      make(map[int]string),
		groups:          make(map[int]*domain.Group),
		topics:          make(map[int]*domain.Topic),
		comments:        make(map[int]*domain.Comment),
		commentsByTopic: make(map[int][]int),
		texts:           make(map[int]*domain.MsgText),
		deleteInfo:      make(map[int]*domain.DeleteInfo),
		remarks:         make(map[int]map[int]*domain.Remark),
		warnings:        make(map[int][]*domain.Warning),
		ignored:         make(map[int][]int),
	}
}

func (s *Store) allocID() int {
	id := s.nextID
	s.nextID++
	return id
}

// === User Methods ===

func (s *Store) GetUserByID(ctx context.Context, id int) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return user, nil
}

func (s *Store) GetUsersByIDs(ctx context.Context, ids []int) (map[int]*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[int]*domain.User, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			result[id] = u
		}
	}
	return result, nil
}

func (s *Store) GetUserByNick(ctx context.Context, nick string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usersByNick[nick]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return s.users[id], nil
}

func (s *Store) UpdateLastLogin(ctx context.Context, userID int, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return storage.ErrNotFound
	}
	user.LastLogin = &at
	return nil
}

func (s *Store) GetProfile(ctx context.Context, userID int) (*domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profile, ok := s.profiles[userID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return profile, nil
}

func (s *Store) GetUserAgentByID(ctx context.Context, id int) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ua, ok := s.userAgents[id]
	if !ok {
		return "", storage.ErrNotFound
	}
	return ua, nil
}

// === Group / Topic Methods ===

func (s *Store) GetGroupByID(ctx context.Context, id int) (*domain.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	group, ok := s.groups[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return group, nil
}

func (s *Store) GetTopicByID(ctx context.Context, id int) (*domain.Topic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	topic, ok := s.topics[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return topic, nil
}

// === Comment Methods ===

func (s *Store) GetCommentByID(ctx context.Context, id int) (*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	comment, ok := s.comments[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return comment, nil
}

func (s *Store) GetCommentsByTopicID(ctx context.Context, topicID int) ([]*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.commentsByTopic[topicID]
	comments := make([]*domain.Comment, 0, len(ids))
	for _, id := range ids {
		if c, ok := s.comments[id]; ok {
			comments = append(comments, c)
		}
	}
	// Сортируем по времени, как это делает SQL-вариант
	sort.Slice(comments, func(i, j int) bool {
		if comments[i].PostedAt.Equal(comments[j].PostedAt) {
			return comments[i].ID < comments[j].ID
		}
		return comments[i].PostedAt.Before(comments[j].PostedAt)
	})
	return comments, nil
}

func (s *Store) CreateComment(ctx context.Context, comment *domain.Comment, text string) (*domain.Comment, error) {
	if strings.TrimSpace(text) == "" {
		return nil, storage.ErrEmptyComment
	}
	if len(text) > storage.MaxCommentLength {
		return nil, storage.ErrCommentTooLong
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	topic, ok := s.topics[comment.TopicID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if topic.Deleted || topic.CommentsClosed || topic.Expired(time.Now()) {
		return nil, storage.ErrTopicClosed
	}
	if comment.ReplyTo != 0 {
		reply, ok := s.comments[comment.ReplyTo]
		if !ok || reply.TopicID != comment.TopicID {
			return nil, storage.ErrReplyNotFound
		}
	}

	comment.ID = s.allocID()
	if comment.PostedAt.IsZero() {
		comment.PostedAt = time.Now().UTC()
	}
	s.comments[comment.ID] = comment
	s.commentsByTopic[comment.TopicID] = append(s.commentsByTopic[comment.TopicID], comment.ID)
	s.texts[comment.ID] = &domain.MsgText{CommentID: comment.ID, Text: text}
	return comment, nil
}

func (s *Store) GetIgnoredUserIDs(ctx context.Context, ownerID int) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]int(nil), s.ignored[ownerID]...), nil
}

// === MsgText Methods ===

func (s *Store) GetMessageText(ctx context.Context, commentID int) (*domain.MsgText, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	text, ok := s.texts[commentID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return text, nil
}

func (s *Store) GetMessageTexts(ctx context.Context, commentIDs []int) (map[int]*domain.MsgText, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[int]*domain.MsgText, len(commentIDs))
	for _, id := range commentIDs {
		if t, ok := s.texts[id]; ok {
			result[id] = t
		}
	}
	return result, nil
}

// === DeleteInfo Methods ===

func (s *Store) GetDeleteInfo(ctx context.Context, commentID int) (*domain.DeleteInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, ok := s.deleteInfo[commentID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return info, nil
}

// === Remark Methods ===

func (s *Store) GetRemarks(ctx context.Context, ownerID int, refUserIDs []int) (map[int]*domain.Remark, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	owned := s.remarks[ownerID]
	result := make(map[int]*domain.Remark, len(refUserIDs))
	for _, refID := range refUserIDs {
		if r, ok := owned[refID]; ok {
			result[refID] = r
		}
	}
	return result, nil
}

// === Warning Methods ===

func (s *Store) GetWarningsByCommentIDs(ctx context.Context, commentIDs []int) (map[int][]*domain.Warning, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[int][]*domain.Warning, len(commentIDs))
	for _, id := range commentIDs {
		if ws := s.warnings[id]; len(ws) > 0 {
			result[id] = ws
		}
	}
	return result, nil
}
