package reaction

import (
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/UkralStul/forum-view-service/internal/domain"
)

// Count — количество реакций одного вида после фильтрации игнор-листа.
type Count struct {
	Emoji   string `json:"emoji"`
	Count   int    `json:"count"`
	Clicked bool   `json:"clicked"` // реагировал ли сам просматривающий
}

// View — готовый к показу блок реакций комментария.
type View struct {
	Counts  []Count `json:"counts,omitempty"`
	Total   int     `json:"total"`
	Enabled bool    `json:"enabled"` // может ли просматривающий реагировать
}

// Service готовит реакции к показу.
type Service struct{}

// NewService создает сервис реакций.
func NewService() *Service {
	return &Service{}
}

// Prepare строит блок реакций: реакции пользователей из игнор-листа
// не учитываются, порядок — по убыванию количества.
func (s *Service) Prepare(raw domain.Reactions, ignore map[int]bool, viewer *domain.User, topic *domain.Topic, comment *domain.Comment, now time.Time) View {
	view := View{
		Enabled: s.enabled(viewer, topic, comment, now),
	}

	for emoji, userIDs := range raw {
		visible := lo.Filter(userIDs, func(id int, _ int) bool {
			return !ignore[id]
		})
		if len(visible) == 0 {
			continue
		}
		clicked := viewer != nil && lo.Contains(visible, viewer.ID)
		view.Counts = append(view.Counts, Count{Emoji: emoji, Count: len(visible), Clicked: clicked})
		view.Total += len(visible)
	}

	sort.Slice(view.Counts, func(i, j int) bool {
		if view.Counts[i].Count != view.Counts[j].Count {
			return view.Counts[i].Count > view.Counts[j].Count
		}
		return view.Counts[i].Emoji < view.Counts[j].Emoji
	})
	return view
}

func (s *Service) enabled(viewer *domain.User, topic *domain.Topic, comment *domain.Comment, now time.Time) bool {
	if viewer == nil || comment == nil || topic == nil {
		return false
	}
	if comment.Deleted || topic.Deleted || topic.Expired(now) {
		return false
	}
	// На собственные комментарии реагировать нельзя
	return viewer.ID != comment.AuthorID
}
