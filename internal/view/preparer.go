package view

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/UkralStul/forum-view-service/internal/auth"
	"github.com/UkralStul/forum-view-service/internal/domain"
	"github.com/UkralStul/forum-view-service/internal/permission"
	"github.com/UkralStul/forum-view-service/internal/reaction"
	"github.com/UkralStul/forum-view-service/internal/text"
	"github.com/UkralStul/forum-view-service/internal/warning"
)

// CommentSource — лукапы хранилища, нужные презентеру.
type CommentSource interface {
	GetMessageText(ctx context.Context, commentID int) (*domain.MsgText, error)
	GetMessageTexts(ctx context.Context, commentIDs []int) (map[int]*domain.MsgText, error)
	GetDeleteInfo(ctx context.Context, commentID int) (*domain.DeleteInfo, error)
	GetRemarks(ctx context.Context, ownerID int, refUserIDs []int) (map[int]*domain.Remark, error)
	GetUserAgentByID(ctx context.Context, id int) (string, error)
}

// UserSource — лукапы пользователей; обычно это сквозной кеш.
type UserSource interface {
	GetUserByID(ctx context.Context, id int) (*domain.User, error)
	GetUsersByIDs(ctx context.Context, ids []int) (map[int]*domain.User, error)
}

// GroupSource — лукап раздела; обычно это сквозной кеш.
type GroupSource interface {
	GetGroupByID(ctx context.Context, id int) (*domain.Group, error)
}

// Preparer собирает готовые к показу комментарии из сырых сущностей.
type Preparer struct {
	comments  CommentSource
	users     UserSource
	groups    GroupSource
	perms     *permission.Service
	renderer  *text.Renderer
	reactions *reaction.Service
	warnings  *warning.Service
	now       func() time.Time
}

// NewPreparer создает презентер комментариев.
func NewPreparer(comments CommentSource, users UserSource, groups GroupSource, perms *permission.Service, renderer *text.Renderer, reactions *reaction.Service, warnings *warning.Service) *Preparer {
	return &Preparer{
		comments:  comments,
		users:     users,
		groups:    groups,
		perms:     perms,
		renderer:  renderer,
		reactions: reactions,
		warnings:  warnings,
		now:       time.Now,
	}
}

// assembleInput — все, что нужно общей процедуре сборки одного комментария.
type assembleInput struct {
	comment *domain.Comment
	msgText *domain.MsgText
	author  *domain.User
	topic   *domain.Topic
	group   *domain.Group

	viewer  auth.Session
	profile domain.Profile
	ignore  map[int]bool

	// Дерево ответов; nil — собираем без информации об ответах
	tree       *Tree
	hidden     map[int]bool
	onPage     map[int]bool
	authors    map[int]*domain.User // авторы страницы и целей ответов
	filterShow bool

	remark         *domain.Remark
	warnings       []*domain.Warning
	warningAuthors map[int]*domain.User
}

// PrepareSingle готовит один комментарий без контекста дерева ответов.
func (p *Preparer) PrepareSingle(ctx context.Context, comment *domain.Comment, viewer auth.Session, profile domain.Profile, topic *domain.Topic, ignore map[int]bool) (*PreparedComment, error) {
	msgText, err := p.comments.GetMessageText(ctx, comment.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load message text for comment %d: %w", comment.ID, err)
	}
	author, err := p.users.GetUserByID(ctx, comment.AuthorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load author %d: %w", comment.AuthorID, err)
	}
	group, err := p.groups.GetGroupByID(ctx, topic.GroupID)
	if err != nil {
		return nil, fmt.Errorf("failed to load group %d: %w", topic.GroupID, err)
	}

	return p.assemble(ctx, assembleInput{
		comment: comment,
		msgText: msgText,
		author:  author,
		topic:   topic,
		group:   group,
		viewer:  viewer,
		profile: profile,
		ignore:  ignore,
	})
}

// PrepareForEdit готовит минимальный вариант для предпросмотра правки:
// только автор и отрендеренный текст, без прав, ответов и реакций.
func (p *Preparer) PrepareForEdit(ctx context.Context, comment *domain.Comment, msgText *domain.MsgText) (*PreparedComment, error) {
	author, err := p.users.GetUserByID(ctx, comment.AuthorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load author %d: %w", comment.AuthorID, err)
	}
	return &PreparedComment{
		Comment:       comment,
		Author:        author,
		ProcessedText: p.renderer.Render(msgText.Text, author.TrustedLinks()),
	}, nil
}

// PrepareList готовит страницу комментариев. Плюральные лукапы (тексты,
// авторы) выполняются по одному запросу на страницу, чтобы не плодить N+1.
// Пустой вход возвращает пустой срез, не обращаясь к хранилищу.
func (p *Preparer) PrepareList(ctx context.Context, tree *Tree, comments []*domain.Comment, topic *domain.Topic, hidden map[int]bool, viewer auth.Session, profile domain.Profile, ignore map[int]bool, filterShow bool) ([]*PreparedComment, error) {
	if len(comments) == 0 {
		return []*PreparedComment{}, nil
	}

	group, err := p.groups.GetGroupByID(ctx, topic.GroupID)
	if err != nil {
		return nil, fmt.Errorf("failed to load group %d: %w", topic.GroupID, err)
	}

	commentIDs := lo.Map(comments, func(c *domain.Comment, _ int) int { return c.ID })
	texts, err := p.comments.GetMessageTexts(ctx, commentIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load message texts: %w", err)
	}

	// Авторы страницы плюс авторы комментариев, на которые здесь отвечают:
	// цель ответа может лежать на другой странице
	authorIDs := lo.Map(comments, func(c *domain.Comment, _ int) int { return c.AuthorID })
	if tree != nil {
		for _, c := range comments {
			if c.ReplyTo == 0 {
				continue
			}
			if target, ok := tree.Get(c.ReplyTo); ok && !target.Deleted {
				authorIDs = append(authorIDs, target.AuthorID)
			}
		}
	}
	authors, err := p.users.GetUsersByIDs(ctx, lo.Uniq(authorIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to load authors: %w", err)
	}

	// Заметки о других пользователях есть только у авторизованного зрителя
	var remarks map[int]*domain.Remark
	if viewerUser, ok := viewer.User(); ok {
		remarks, err = p.comments.GetRemarks(ctx, viewerUser.ID, lo.Uniq(authorIDs))
		if err != nil {
			return nil, fmt.Errorf("failed to load remarks: %w", err)
		}
	}

	// Пометки нужны только модераторам и только пока тема не в архиве
	var commentWarnings map[int][]*domain.Warning
	var warningAuthors map[int]*domain.User
	if viewer.Moderator() && !topic.Expired(p.now()) {
		commentWarnings, err = p.warnings.LoadForComments(ctx, commentIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to load warnings: %w", err)
		}
		if ids := warning.AuthorIDs(commentWarnings); len(ids) > 0 {
			warningAuthors, err = p.users.GetUsersByIDs(ctx, ids)
			if err != nil {
				return nil, fmt.Errorf("failed to load warning authors: %w", err)
			}
		}
	}

	onPage := lo.SliceToMap(commentIDs, func(id int) (int, bool) { return id, true })

	prepared := make([]*PreparedComment, 0, len(comments))
	for _, c := range comments {
		msgText, ok := texts[c.ID]
		if !ok {
			return nil, fmt.Errorf("message text missing for comment %d", c.ID)
		}
		author, ok := authors[c.AuthorID]
		if !ok {
			return nil, fmt.Errorf("author %d missing for comment %d", c.AuthorID, c.ID)
		}

		pc, err := p.assemble(ctx, assembleInput{
			comment:        c,
			msgText:        msgText,
			author:         author,
			topic:          topic,
			group:          group,
			viewer:         viewer,
			profile:        profile,
			ignore:         ignore,
			tree:           tree,
			hidden:         hidden,
			onPage:         onPage,
			authors:        authors,
			filterShow:     filterShow,
			remark:         remarks[c.AuthorID],
			warnings:       commentWarnings[c.ID],
			warningAuthors: warningAuthors,
		})
		if err != nil {
			return nil, err
		}
		prepared = append(prepared, pc)
	}
	return prepared, nil
}

// assemble — общая процедура сборки одного комментария.
func (p *Preparer) assemble(ctx context.Context, in assembleInput) (*PreparedComment, error) {
	now := p.now()
	pc := &PreparedComment{
		Comment:       in.comment,
		Author:        in.author,
		ProcessedText: p.renderer.Render(in.msgText.Text, in.author.TrustedLinks()),
	}

	if in.remark != nil {
		pc.Remark = in.remark.Text
	}
	if in.profile.ShowPhotos && in.author.Photo != "" {
		pc.AuthorPhoto = "/photos/" + in.author.Photo
	}

	if in.tree != nil {
		p.fillReply(pc, in)
		p.fillAnswers(pc, in)
	}

	if in.comment.Deleted {
		if err := p.fillDeleteInfo(ctx, pc, in.comment); err != nil {
			return nil, err
		}
	}
	if in.comment.EditCount > 0 {
		if err := p.fillEditSummary(ctx, pc, in.comment); err != nil {
			return nil, err
		}
	}

	// Адрес и user-agent отправителя видят только модераторы
	if in.viewer.Moderator() {
		pc.PostIP = in.comment.PostIP
		if in.comment.UserAgentID != 0 {
			ua, err := p.comments.GetUserAgentByID(ctx, in.comment.UserAgentID)
			if err != nil {
				return nil, fmt.Errorf("failed to load user agent %d: %w", in.comment.UserAgentID, err)
			}
			pc.UserAgent = ua
		}
	}

	viewerUser, _ := in.viewer.User()
	pc.Deletable = p.perms.CommentDeletableNow(in.comment, in.topic, viewerUser, pc.HasAnswers, now)
	pc.Editable = p.perms.CommentEditableNow(in.comment, in.topic, viewerUser, pc.HasAnswers, now)
	pc.Undeletable = p.perms.CommentUndeletable(in.comment, in.topic, viewerUser, now)
	pc.Warnable = p.perms.Warnable(in.comment, in.topic, viewerUser, now)
	// Раздел больше не принимает комментарии автора даже с поправкой на заморозку
	pc.AuthorReadonly = !p.perms.CommentsAllowed(in.group, in.topic, in.author, true, now)

	pc.Reactions = p.reactions.Prepare(in.comment.Reactions, in.ignore, viewerUser, in.topic, in.comment, now)
	if len(in.warnings) > 0 {
		pc.Warnings = p.warnings.Prepare(in.warnings, in.warningAuthors)
	}
	return pc, nil
}

func (p *Preparer) fillReply(pc *PreparedComment, in assembleInput) {
	if in.comment.ReplyTo == 0 {
		return
	}
	target, ok := in.tree.Get(in.comment.ReplyTo)
	if !ok || target.Deleted {
		// Ответ на удаленный или отсутствующий комментарий: без автора
		pc.Reply = &ReplyInfo{ID: in.comment.ReplyTo, Deleted: true}
		return
	}
	reply := &ReplyInfo{
		ID:       target.ID,
		Title:    target.Title,
		PostedAt: target.PostedAt,
		SamePage: in.onPage[target.ID],
	}
	if author, ok := in.authors[target.AuthorID]; ok {
		reply.Author = author.Nick
	}
	pc.Reply = reply
}

func (p *Preparer) fillAnswers(pc *PreparedComment, in assembleInput) {
	visible := in.tree.VisibleAnswers(in.comment.ID, in.hidden)
	pc.AnswerCount = len(visible)
	pc.HasAnswers = len(visible) > 0

	switch {
	case len(visible) > 1:
		// Несколько ответов: ссылка на просмотр ветки
		pc.AnswerLink = fmt.Sprintf("%s/thread/%d", in.topic.Link(), in.comment.ID)
		if in.filterShow {
			pc.AnswerLink += "?filter=show"
		}
	case len(visible) == 1:
		// Единственный ответ: прыгаем прямо на него
		if in.filterShow {
			pc.AnswerLink = fmt.Sprintf("%s?filter=show&cid=%d", in.topic.Link(), visible[0])
		} else {
			pc.AnswerLink = fmt.Sprintf("%s?cid=%d", in.topic.Link(), visible[0])
		}
	}
}

func (p *Preparer) fillDeleteInfo(ctx context.Context, pc *PreparedComment, c *domain.Comment) error {
	info, err := p.comments.GetDeleteInfo(ctx, c.ID)
	if err != nil {
		return fmt.Errorf("failed to load delete info for comment %d: %w", c.ID, err)
	}
	deleter, err := p.users.GetUserByID(ctx, info.DeleterID)
	if err != nil {
		return fmt.Errorf("failed to load deleter %d: %w", info.DeleterID, err)
	}
	pc.DeleteInfo = &PreparedDeleteInfo{
		Nick:      deleter.Nick,
		Reason:    info.Reason,
		DeletedAt: info.DeletedAt,
	}
	return nil
}

func (p *Preparer) fillEditSummary(ctx context.Context, pc *PreparedComment, c *domain.Comment) error {
	summary := &EditSummary{EditCount: c.EditCount, EditedAt: c.EditedAt}
	if c.EditorID != 0 {
		editor, err := p.users.GetUserByID(ctx, c.EditorID)
		if err != nil {
			return fmt.Errorf("failed to load editor %d: %w", c.EditorID, err)
		}
		summary.EditNick = editor.Nick
	}
	pc.EditSummary = summary
	return nil
}
