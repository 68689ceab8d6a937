package inmemory

import (
	"time"

	"github.com/UkralStul/forum-view-service/internal/domain"
)

// Методы заполнения данными. Они не входят в контракт Storage и нужны
// для тестов и режима in-memory без базы.

// AddUser добавляет пользователя и возвращает его с присвоенным id.
func (s *Store) AddUser(user domain.User) *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.ID == 0 {
		user.ID = s.allocID()
	}
	u := &user
	s.users[u.ID] = u
	s.usersByNick[u.Nick] = u.ID
	return u
}

// SetProfile сохраняет профиль пользователя.
func (s *Store) SetProfile(profile domain.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := &profile
	s.profiles[p.UserID] = p
}

// AddUserAgent регистрирует строку user-agent и возвращает ее id.
func (s *Store) AddUserAgent(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.allocID()
	s.userAgents[id] = name
	return id
}

// AddGroup добавляет раздел форума.
func (s *Store) AddGroup(group domain.Group) *domain.Group {
	s.mu.Lock()
	defer s.mu.Unlock()

	if group.ID == 0 {
		group.ID = s.allocID()
	}
	g := &group
	s.groups[g.ID] = g
	return g
}

// AddTopic добавляет тему.
func (s *Store) AddTopic(topic domain.Topic) *domain.Topic {
	s.mu.Lock()
	defer s.mu.Unlock()

	if topic.ID == 0 {
		topic.ID = s.allocID()
	}
	if topic.PostedAt.IsZero() {
		topic.PostedAt = time.Now().UTC()
	}
	t := &topic
	s.topics[t.ID] = t
	return t
}

// AddComment добавляет комментарий вместе с его текстом.
func (s *Store) AddComment(comment domain.Comment, text string) *domain.Comment {
	s.mu.Lock()
	defer s.mu.Unlock()

	if comment.ID == 0 {
		comment.ID = s.allocID()
	}
	if comment.PostedAt.IsZero() {
		comment.PostedAt = time.Now().UTC()
	}
	c := &comment
	s.comments[c.ID] = c
	s.commentsByTopic[c.TopicID] = append(s.commentsByTopic[c.TopicID], c.ID)
	s.texts[c.ID] = &domain.MsgText{CommentID: c.ID, Text: text}
	return c
}

// SetDeleteInfo сохраняет причину удаления комментария.
func (s *Store) SetDeleteInfo(info domain.DeleteInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if info.DeletedAt.IsZero() {
		info.DeletedAt = time.Now().UTC()
	}
	i := &info
	s.deleteInfo[i.CommentID] = i
}

// AddRemark сохраняет заметку владельца о другом пользователе.
func (s *Store) AddRemark(remark domain.Remark) *domain.Remark {
	s.mu.Lock()
	defer s.mu.Unlock()

	if remark.ID == 0 {
		remark.ID = s.allocID()
	}
	r := &remark
	if s.remarks[r.OwnerID] == nil {
		s.remarks[r.OwnerID] = make(map[int]*domain.Remark)
	}
	s.remarks[r.OwnerID][r.RefUserID] = r
	return r
}

// AddIgnore добавляет запись в игнор-лист владельца.
func (s *Store) AddIgnore(ownerID, ignoredID int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ignored[ownerID] = append(s.ignored[ownerID], ignoredID)
}

// AddWarning добавляет пометку на комментарий.
func (s *Store) AddWarning(warning domain.Warning) *domain.Warning {
	s.mu.Lock()
	defer s.mu.Unlock()

	if warning.ID == 0 {
		warning.ID = s.allocID()
	}
	if warning.PostedAt.IsZero() {
		warning.PostedAt = time.Now().UTC()
	}
	w := &warning
	s.warnings[w.CommentID] = append(s.warnings[w.CommentID], w)
	return w
}
