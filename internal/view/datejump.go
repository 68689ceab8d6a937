package view

import (
	"time"

	"github.com/UkralStul/forum-view-service/internal/domain"
)

// BuildDateJumpSet возвращает id комментариев, перед которыми в ленте
// нужно показать разделитель «прошло время»: пауза до предыдущего
// комментария больше minGap. Вход должен быть отсортирован по времени.
func BuildDateJumpSet(comments []*domain.Comment, minGap time.Duration) map[int]bool {
	jumps := make(map[int]bool)
	for i := 1; i < len(comments); i++ {
		if comments[i].PostedAt.Sub(comments[i-1].PostedAt) > minGap {
			jumps[comments[i].ID] = true
		}
	}
	return jumps
}
