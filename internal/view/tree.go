package view

import (
	"github.com/UkralStul/forum-view-service/internal/domain"
)

// Tree — дерево ответов темы, построенное в памяти из плоского списка.
// Дерево знает только структуру; какие комментарии попали на текущую
// страницу, решает вызывающая сторона.
type Tree struct {
	byID     map[int]*domain.Comment
	children map[int][]int // map[commentID][]childID, в исходном порядке
}

// NewTree строит дерево из списка комментариев, отсортированного по времени.
func NewTree(comments []*domain.Comment) *Tree {
	t := &Tree{
		byID:     make(map[int]*domain.Comment, len(comments)),
		children: make(map[int][]int),
	}
	for _, c := range comments {
		t.byID[c.ID] = c
	}
	for _, c := range comments {
		if c.ReplyTo != 0 {
			t.children[c.ReplyTo] = append(t.children[c.ReplyTo], c.ID)
		}
	}
	return t
}

// Get возвращает узел дерева по id.
func (t *Tree) Get(id int) (*domain.Comment, bool) {
	c, ok := t.byID[id]
	return c, ok
}

// Children возвращает id прямых ответов на комментарий.
func (t *Tree) Children(id int) []int {
	return t.children[id]
}

// VisibleAnswers возвращает прямые ответы, не попавшие в скрытый набор.
func (t *Tree) VisibleAnswers(id int, hidden map[int]bool) []int {
	children := t.children[id]
	visible := make([]int, 0, len(children))
	for _, childID := range children {
		if !hidden[childID] {
			visible = append(visible, childID)
		}
	}
	return visible
}
