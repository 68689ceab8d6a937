package view

import (
	"time"

	"github.com/UkralStul/forum-view-service/internal/domain"
	"github.com/UkralStul/forum-view-service/internal/reaction"
	"github.com/UkralStul/forum-view-service/internal/warning"
)

// ReplyInfo описывает, на что отвечает комментарий.
// Для ответа на удаленный или отсутствующий узел заполняются только
// ID и Deleted.
type ReplyInfo struct {
	ID       int       `json:"id"`
	Deleted  bool      `json:"deleted"`
	Author   string    `json:"author,omitempty"`
	Title    string    `json:"title,omitempty"` // пустой заголовок не показывается
	PostedAt time.Time `json:"postedAt,omitzero"`
	SamePage bool      `json:"samePage"`
}

// PreparedDeleteInfo — кто, когда и почему удалил комментарий.
type PreparedDeleteInfo struct {
	Nick      string    `json:"nick"`
	Reason    string    `json:"reason"`
	DeletedAt time.Time `json:"deletedAt"`
}

// EditSummary — сводка правок комментария.
type EditSummary struct {
	EditCount int        `json:"editCount"`
	EditNick  string     `json:"editNick"`
	EditedAt  *time.Time `json:"editedAt,omitempty"`
}

// PreparedComment — проекция комментария, полностью готовая к показу.
// Живет один запрос и никогда не сохраняется.
type PreparedComment struct {
	Comment       *domain.Comment `json:"comment"`
	Author        *domain.User    `json:"author"`
	AuthorPhoto   string          `json:"authorPhoto,omitempty"`
	Remark        string          `json:"remark,omitempty"`
	ProcessedText string          `json:"processedText"`

	Reply       *ReplyInfo `json:"reply,omitempty"`
	AnswerCount int        `json:"answerCount"`
	AnswerLink  string     `json:"answerLink,omitempty"`
	HasAnswers  bool       `json:"hasAnswers"`

	// Видны только модераторам
	PostIP    string `json:"postIP,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`

	Deletable      bool `json:"deletable"`
	Editable       bool `json:"editable"`
	Undeletable    bool `json:"undeletable"`
	Warnable       bool `json:"warnable"`
	AuthorReadonly bool `json:"authorReadonly"`

	DeleteInfo  *PreparedDeleteInfo `json:"deleteInfo,omitempty"`
	EditSummary *EditSummary        `json:"editSummary,omitempty"`

	Reactions reaction.View      `json:"reactions"`
	Warnings  []warning.Prepared `json:"warnings,omitempty"`
}
