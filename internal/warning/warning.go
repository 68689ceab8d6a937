package warning

import (
	"context"
	"time"

	"github.com/samber/lo"

	"github.com/UkralStul/forum-view-service/internal/domain"
)

// Source — минимальный контракт батчевой загрузки пометок.
type Source interface {
	GetWarningsByCommentIDs(ctx context.Context, commentIDs []int) (map[int][]*domain.Warning, error)
}

// Prepared — пометка модератора, готовая к показу.
type Prepared struct {
	Author   string    `json:"author"`
	Message  string    `json:"message"`
	PostedAt time.Time `json:"postedAt"`
}

// Service загружает и готовит к показу пометки на комментариях.
type Service struct {
	source Source
}

// NewService создает сервис пометок.
func NewService(source Source) *Service {
	return &Service{source: source}
}

// LoadForComments загружает пометки для набора комментариев одним запросом.
func (s *Service) LoadForComments(ctx context.Context, commentIDs []int) (map[int][]*domain.Warning, error) {
	if len(commentIDs) == 0 {
		return map[int][]*domain.Warning{}, nil
	}
	return s.source.GetWarningsByCommentIDs(ctx, commentIDs)
}

// AuthorIDs возвращает авторов набора пометок без дубликатов.
func AuthorIDs(warnings map[int][]*domain.Warning) []int {
	var ids []int
	for _, ws := range warnings {
		for _, w := range ws {
			ids = append(ids, w.AuthorID)
		}
	}
	return lo.Uniq(ids)
}

// Prepare превращает пометки в отображаемую форму, подставляя ники авторов.
func (s *Service) Prepare(warnings []*domain.Warning, authors map[int]*domain.User) []Prepared {
	return lo.Map(warnings, func(w *domain.Warning, _ int) Prepared {
		nick := ""
		if author, ok := authors[w.AuthorID]; ok {
			nick = author.Nick
		}
		return Prepared{Author: nick, Message: w.Message, PostedAt: w.PostedAt}
	})
}
