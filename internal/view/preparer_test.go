package view

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UkralStul/forum-view-service/internal/auth"
	"github.com/UkralStul/forum-view-service/internal/domain"
	"github.com/UkralStul/forum-view-service/internal/permission"
	"github.com/UkralStul/forum-view-service/internal/reaction"
	"github.com/UkralStul/forum-view-service/internal/storage/inmemory"
	"github.com/UkralStul/forum-view-service/internal/text"
	"github.com/UkralStul/forum-view-service/internal/warning"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store     *inmemory.Store
	preparer  *Preparer
	group     *domain.Group
	topic     *domain.Topic
	author    *domain.User
	moderator *domain.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := inmemory.New()

	author := store.AddUser(domain.User{Nick: "author", Activated: true, Score: 30})
	moderator := store.AddUser(domain.User{Nick: "mod", Activated: true, Moderator: true, Score: 300})
	group := store.AddGroup(domain.Group{Title: "General"})
	topic := store.AddTopic(domain.Topic{
		GroupID:  group.ID,
		AuthorID: author.ID,
		Title:    "Test Topic",
		PostedAt: testNow.Add(-24 * time.Hour),
	})

	p := NewPreparer(store, store, store, permission.New(), text.NewRenderer(), reaction.NewService(), warning.NewService(store))
	p.now = func() time.Time { return testNow }

	return &fixture{
		store:     store,
		preparer:  p,
		group:     group,
		topic:     topic,
		author:    author,
		moderator: moderator,
	}
}

func sessionFor(user *domain.User) auth.Session {
	if user == nil {
		return auth.AnonymousSession()
	}
	ctx := auth.WithContext(context.Background(), auth.ContextFor(user))
	return auth.CurrentSession(ctx)
}

func (f *fixture) addComment(replyTo int, author *domain.User, age time.Duration, body string) *domain.Comment {
	return f.store.AddComment(domain.Comment{
		TopicID:  f.topic.ID,
		AuthorID: author.ID,
		ReplyTo:  replyTo,
		PostedAt: testNow.Add(-age),
	}, body)
}

func (f *fixture) prepareList(t *testing.T, viewer *domain.User, hidden map[int]bool, filterShow bool) []*PreparedComment {
	t.Helper()
	ctx := context.Background()
	comments, err := f.store.GetCommentsByTopicID(ctx, f.topic.ID)
	require.NoError(t, err)
	tree := NewTree(comments)

	prepared, err := f.preparer.PrepareList(ctx, tree, comments, f.topic, hidden, sessionFor(viewer), domain.DefaultProfile(), nil, filterShow)
	require.NoError(t, err)
	return prepared
}

func byID(prepared []*PreparedComment, id int) *PreparedComment {
	for _, pc := range prepared {
		if pc.Comment.ID == id {
			return pc
		}
	}
	return nil
}

func TestPrepareSingle_NoReplyInfo(t *testing.T) {
	f := newFixture(t)
	root := f.addComment(0, f.author, time.Hour, "root")
	reply := f.addComment(root.ID, f.author, time.Minute, "reply")

	// Одиночная подготовка идет без дерева: ни ответов, ни reply info,
	// даже если комментарий на что-то отвечает
	pc, err := f.preparer.PrepareSingle(context.Background(), reply, sessionFor(nil), domain.DefaultProfile(), f.topic, nil)
	require.NoError(t, err)

	assert.Nil(t, pc.Reply)
	assert.Zero(t, pc.AnswerCount)
	assert.False(t, pc.HasAnswers)
	assert.Equal(t, "author", pc.Author.Nick)
	assert.Contains(t, pc.ProcessedText, "reply")
}

func TestPrepareList_TopLevelHasNoReply(t *testing.T) {
	f := newFixture(t)
	root := f.addComment(0, f.author, time.Hour, "root")

	prepared := f.prepareList(t, nil, nil, false)
	require.Len(t, prepared, 1)
	// replyTo=0: никакой информации об ответе даже при наличии дерева
	assert.Nil(t, byID(prepared, root.ID).Reply)
}

func TestPrepareList_ReplyToExisting(t *testing.T) {
	f := newFixture(t)
	root := f.store.AddComment(domain.Comment{
		TopicID:  f.topic.ID,
		AuthorID: f.moderator.ID,
		Title:    "re: subject",
		PostedAt: testNow.Add(-time.Hour),
	}, "root")
	reply := f.addComment(root.ID, f.author, time.Minute, "reply")

	prepared := f.prepareList(t, nil, nil, false)
	pc := byID(prepared, reply.ID)
	require.NotNil(t, pc.Reply)

	assert.Equal(t, root.ID, pc.Reply.ID)
	assert.False(t, pc.Reply.Deleted)
	assert.Equal(t, "mod", pc.Reply.Author)
	assert.Equal(t, "re: subject", pc.Reply.Title)
	assert.Equal(t, root.PostedAt, pc.Reply.PostedAt)
	// Цель ответа находится в этой же выдаче
	assert.True(t, pc.Reply.SamePage)
}

func TestPrepareList_ReplyToDeleted(t *testing.T) {
	f := newFixture(t)
	root := f.store.AddComment(domain.Comment{
		TopicID:  f.topic.ID,
		AuthorID: f.author.ID,
		Deleted:  true,
		PostedAt: testNow.Add(-time.Hour),
	}, "deleted root")
	f.store.SetDeleteInfo(domain.DeleteInfo{CommentID: root.ID, DeleterID: f.moderator.ID, Reason: "spam"})
	reply := f.addComment(root.ID, f.author, time.Minute, "reply")

	prepared := f.prepareList(t, nil, nil, false)
	pc := byID(prepared, reply.ID)
	require.NotNil(t, pc.Reply)

	// Ответ на удаленный узел: только id и флаг, без автора
	assert.True(t, pc.Reply.Deleted)
	assert.Equal(t, root.ID, pc.Reply.ID)
	assert.Empty(t, pc.Reply.Author)
	assert.Empty(t, pc.Reply.Title)
}

func TestPrepareList_ReplyToMissing(t *testing.T) {
	f := newFixture(t)
	// Цель ответа вообще отсутствует в дереве
	orphan := f.store.AddComment(domain.Comment{
		TopicID:  f.topic.ID,
		AuthorID: f.author.ID,
		ReplyTo:  777,
		PostedAt: testNow.Add(-time.Minute),
	}, "orphan")

	prepared := f.prepareList(t, nil, nil, false)
	pc := byID(prepared, orphan.ID)
	require.NotNil(t, pc.Reply)
	assert.True(t, pc.Reply.Deleted)
	assert.Empty(t, pc.Reply.Author)
}

func TestPrepareList_AnswerCounts(t *testing.T) {
	f := newFixture(t)
	noAnswers := f.addComment(0, f.author, 4*time.Hour, "no answers")
	oneAnswer := f.addComment(0, f.author, 3*time.Hour, "one answer")
	child := f.addComment(oneAnswer.ID, f.moderator, 2*time.Hour, "the only answer")
	manyAnswers := f.addComment(0, f.author, 90*time.Minute, "many answers")
	f.addComment(manyAnswers.ID, f.moderator, time.Hour, "a1")
	f.addComment(manyAnswers.ID, f.author, 30*time.Minute, "a2")

	prepared := f.prepareList(t, nil, nil, false)

	// Нет ответов: ни счетчика, ни ссылки
	pc := byID(prepared, noAnswers.ID)
	assert.False(t, pc.HasAnswers)
	assert.Zero(t, pc.AnswerCount)
	assert.Empty(t, pc.AnswerLink)

	// Один ответ: ссылка прыгает прямо на него
	pc = byID(prepared, oneAnswer.ID)
	assert.True(t, pc.HasAnswers)
	assert.Equal(t, 1, pc.AnswerCount)
	assert.Equal(t, f.topic.Link()+"?cid="+strconv.Itoa(child.ID), pc.AnswerLink)

	// Несколько ответов: ссылка на ветку
	pc = byID(prepared, manyAnswers.ID)
	assert.Equal(t, 2, pc.AnswerCount)
	assert.Equal(t, f.topic.Link()+"/thread/"+strconv.Itoa(manyAnswers.ID), pc.AnswerLink)
}

func TestPrepareList_AnswerCounts_FilterParam(t *testing.T) {
	f := newFixture(t)
	oneAnswer := f.addComment(0, f.author, 3*time.Hour, "one answer")
	child := f.addComment(oneAnswer.ID, f.moderator, 2*time.Hour, "answer")
	manyAnswers := f.addComment(0, f.author, 90*time.Minute, "many")
	f.addComment(manyAnswers.ID, f.moderator, time.Hour, "a1")
	f.addComment(manyAnswers.ID, f.author, 30*time.Minute, "a2")

	prepared := f.prepareList(t, nil, nil, true)

	assert.Equal(t, f.topic.Link()+"?filter=show&cid="+strconv.Itoa(child.ID), byID(prepared, oneAnswer.ID).AnswerLink)
	assert.Equal(t, f.topic.Link()+"/thread/"+strconv.Itoa(manyAnswers.ID)+"?filter=show", byID(prepared, manyAnswers.ID).AnswerLink)
}

func TestPrepareList_HiddenAnswersNotCounted(t *testing.T) {
	f := newFixture(t)
	root := f.addComment(0, f.author, 3*time.Hour, "root")
	visible := f.addComment(root.ID, f.moderator, 2*time.Hour, "visible")
	hiddenChild := f.addComment(root.ID, f.author, time.Hour, "hidden")

	hidden := map[int]bool{hiddenChild.ID: true}
	ctx := context.Background()
	comments, err := f.store.GetCommentsByTopicID(ctx, f.topic.ID)
	require.NoError(t, err)
	tree := NewTree(comments)

	// Скрытый ответ выпадает и из счетчика, и из выдачи
	page := []*domain.Comment{comments[0], comments[1]}
	prepared, err := f.preparer.PrepareList(ctx, tree, page, f.topic, hidden, sessionFor(nil), domain.DefaultProfile(), nil, false)
	require.NoError(t, err)

	pc := byID(prepared, root.ID)
	assert.Equal(t, 1, pc.AnswerCount)
	assert.Equal(t, f.topic.Link()+"?cid="+strconv.Itoa(visible.ID), pc.AnswerLink)
}

func TestPrepareList_ModeratorOnlyFields(t *testing.T) {
	f := newFixture(t)
	uaID := f.store.AddUserAgent("Mozilla/5.0")
	comment := f.store.AddComment(domain.Comment{
		TopicID:     f.topic.ID,
		AuthorID:    f.author.ID,
		PostedAt:    testNow.Add(-time.Hour),
		PostIP:      "192.0.2.7",
		UserAgentID: uaID,
	}, "who posted this")

	// Аноним не видит адрес и user-agent
	pc := byID(f.prepareList(t, nil, nil, false), comment.ID)
	assert.Empty(t, pc.PostIP)
	assert.Empty(t, pc.UserAgent)

	// Обычный авторизованный — тоже
	pc = byID(f.prepareList(t, f.author, nil, false), comment.ID)
	assert.Empty(t, pc.PostIP)
	assert.Empty(t, pc.UserAgent)

	// Модератор видит оба поля
	pc = byID(f.prepareList(t, f.moderator, nil, false), comment.ID)
	assert.Equal(t, "192.0.2.7", pc.PostIP)
	assert.Equal(t, "Mozilla/5.0", pc.UserAgent)
}

func TestPrepareList_DeleteInfo(t *testing.T) {
	f := newFixture(t)
	deleted := f.store.AddComment(domain.Comment{
		TopicID:  f.topic.ID,
		AuthorID: f.author.ID,
		Deleted:  true,
		PostedAt: testNow.Add(-time.Hour),
	}, "deleted")
	f.store.SetDeleteInfo(domain.DeleteInfo{
		CommentID: deleted.ID,
		DeleterID: f.moderator.ID,
		Reason:    "offtopic",
		DeletedAt: testNow.Add(-30 * time.Minute),
	})
	alive := f.addComment(0, f.author, time.Minute, "alive")

	prepared := f.prepareList(t, nil, nil, false)

	pc := byID(prepared, deleted.ID)
	require.NotNil(t, pc.DeleteInfo)
	assert.Equal(t, "mod", pc.DeleteInfo.Nick)
	assert.Equal(t, "offtopic", pc.DeleteInfo.Reason)

	// Провенанс удаления загружается только для удаленных
	assert.Nil(t, byID(prepared, alive.ID).DeleteInfo)
}

func TestPrepareList_EditSummary(t *testing.T) {
	f := newFixture(t)
	editedAt := testNow.Add(-10 * time.Minute)
	edited := f.store.AddComment(domain.Comment{
		TopicID:   f.topic.ID,
		AuthorID:  f.author.ID,
		PostedAt:  testNow.Add(-time.Hour),
		EditCount: 2,
		EditorID:  f.moderator.ID,
		EditedAt:  &editedAt,
	}, "edited twice")
	pristine := f.addComment(0, f.author, time.Minute, "never edited")

	prepared := f.prepareList(t, nil, nil, false)

	pc := byID(prepared, edited.ID)
	require.NotNil(t, pc.EditSummary)
	assert.Equal(t, 2, pc.EditSummary.EditCount)
	assert.Equal(t, "mod", pc.EditSummary.EditNick)

	assert.Nil(t, byID(prepared, pristine.ID).EditSummary)
}

func TestPrepareList_RemarksOnlyForAuthenticatedViewer(t *testing.T) {
	f := newFixture(t)
	f.addComment(0, f.author, time.Hour, "hello")
	f.store.AddRemark(domain.Remark{OwnerID: f.moderator.ID, RefUserID: f.author.ID, Text: "known troll"})

	// Для анонима заметок нет
	prepared := f.prepareList(t, nil, nil, false)
	assert.Empty(t, prepared[0].Remark)

	// Владелец заметки ее видит
	prepared = f.prepareList(t, f.moderator, nil, false)
	assert.Equal(t, "known troll", prepared[0].Remark)

	// Другой пользователь — нет
	prepared = f.prepareList(t, f.author, nil, false)
	assert.Empty(t, prepared[0].Remark)
}

func TestPrepareList_WarningsOnlyForModerator(t *testing.T) {
	f := newFixture(t)
	comment := f.addComment(0, f.author, time.Hour, "flagged")
	f.store.AddWarning(domain.Warning{CommentID: comment.ID, AuthorID: f.moderator.ID, Message: "rule 1"})

	// Обычный зритель пометок не видит
	prepared := f.prepareList(t, f.author, nil, false)
	assert.Empty(t, prepared[0].Warnings)

	// Модератор видит
	prepared = f.prepareList(t, f.moderator, nil, false)
	require.Len(t, prepared[0].Warnings, 1)
	assert.Equal(t, "mod", prepared[0].Warnings[0].Author)
	assert.Equal(t, "rule 1", prepared[0].Warnings[0].Message)
}

func TestPrepareList_WarningsSkippedForExpiredTopic(t *testing.T) {
	f := newFixture(t)
	expired := testNow.Add(-time.Minute)
	f.topic.ExpiredAt = &expired

	comment := f.addComment(0, f.author, time.Hour, "archived")
	f.store.AddWarning(domain.Warning{CommentID: comment.ID, AuthorID: f.moderator.ID, Message: "stale"})

	prepared := f.prepareList(t, f.moderator, nil, false)
	assert.Empty(t, prepared[0].Warnings)
}

func TestPrepareList_PhotoGate(t *testing.T) {
	f := newFixture(t)
	withPhoto := f.store.AddUser(domain.User{Nick: "pretty", Activated: true, Photo: "pretty.png"})
	comment := f.store.AddComment(domain.Comment{
		TopicID:  f.topic.ID,
		AuthorID: withPhoto.ID,
		PostedAt: testNow.Add(-time.Hour),
	}, "with photo")

	ctx := context.Background()
	comments, err := f.store.GetCommentsByTopicID(ctx, f.topic.ID)
	require.NoError(t, err)
	tree := NewTree(comments)

	profile := domain.DefaultProfile()
	prepared, err := f.preparer.PrepareList(ctx, tree, comments, f.topic, nil, sessionFor(nil), profile, nil, false)
	require.NoError(t, err)
	assert.Equal(t, "/photos/pretty.png", byID(prepared, comment.ID).AuthorPhoto)

	// Фотографии выключены в профиле зрителя
	profile.ShowPhotos = false
	prepared, err = f.preparer.PrepareList(ctx, tree, comments, f.topic, nil, sessionFor(nil), profile, nil, false)
	require.NoError(t, err)
	assert.Empty(t, byID(prepared, comment.ID).AuthorPhoto)
}

func TestPrepareList_AuthorReadonly(t *testing.T) {
	f := newFixture(t)
	f.addComment(0, f.author, time.Hour, "hello")

	prepared := f.prepareList(t, nil, nil, false)
	assert.False(t, prepared[0].AuthorReadonly)

	// Тема закрыта для комментариев: автор «только для чтения»
	f.topic.CommentsClosed = true
	prepared = f.prepareList(t, nil, nil, false)
	assert.True(t, prepared[0].AuthorReadonly)
}

func TestPrepareList_AuthorReadonly_IgnoresFrozen(t *testing.T) {
	f := newFixture(t)
	until := testNow.Add(time.Hour)
	frozen := f.store.AddUser(domain.User{Nick: "frozen", Activated: true, FrozenUntil: &until})
	comment := f.store.AddComment(domain.Comment{
		TopicID:  f.topic.ID,
		AuthorID: frozen.ID,
		PostedAt: testNow.Add(-time.Hour),
	}, "from frozen user")

	// Сама по себе заморозка не делает автора readonly
	prepared := f.prepareList(t, nil, nil, false)
	assert.False(t, byID(prepared, comment.ID).AuthorReadonly)
}

func TestPrepareList_PermissionFlags(t *testing.T) {
	f := newFixture(t)
	comment := f.addComment(0, f.author, time.Minute, "fresh")

	// Аноним: никаких прав
	pc := byID(f.prepareList(t, nil, nil, false), comment.ID)
	assert.False(t, pc.Deletable)
	assert.False(t, pc.Editable)
	assert.False(t, pc.Undeletable)
	assert.False(t, pc.Warnable)

	// Автор свежего комментария без ответов может удалить и поправить
	pc = byID(f.prepareList(t, f.author, nil, false), comment.ID)
	assert.True(t, pc.Deletable)
	assert.True(t, pc.Editable)
	assert.False(t, pc.Undeletable)
}

// forbiddenSource проваливает тест при любом обращении к хранилищу.
type forbiddenSource struct {
	t *testing.T
}

func (f forbiddenSource) fail() {
	f.t.Helper()
	f.t.Fatal("unexpected storage lookup")
}

func (f forbiddenSource) GetMessageText(context.Context, int) (*domain.MsgText, error) {
	f.fail()
	return nil, nil
}

func (f forbiddenSource) GetMessageTexts(context.Context, []int) (map[int]*domain.MsgText, error) {
	f.fail()
	return nil, nil
}

func (f forbiddenSource) GetDeleteInfo(context.Context, int) (*domain.DeleteInfo, error) {
	f.fail()
	return nil, nil
}

func (f forbiddenSource) GetRemarks(context.Context, int, []int) (map[int]*domain.Remark, error) {
	f.fail()
	return nil, nil
}

func (f forbiddenSource) GetUserAgentByID(context.Context, int) (string, error) {
	f.fail()
	return "", nil
}

func (f forbiddenSource) GetUserByID(context.Context, int) (*domain.User, error) {
	f.fail()
	return nil, nil
}

func (f forbiddenSource) GetUsersByIDs(context.Context, []int) (map[int]*domain.User, error) {
	f.fail()
	return nil, nil
}

func (f forbiddenSource) GetGroupByID(context.Context, int) (*domain.Group, error) {
	f.fail()
	return nil, nil
}

func (f forbiddenSource) GetWarningsByCommentIDs(context.Context, []int) (map[int][]*domain.Warning, error) {
	f.fail()
	return nil, nil
}

func TestPrepareList_EmptyInput_NoLookups(t *testing.T) {
	source := forbiddenSource{t: t}
	p := NewPreparer(source, source, source, permission.New(), text.NewRenderer(), reaction.NewService(), warning.NewService(source))

	topic := &domain.Topic{ID: 1, GroupID: 1}
	prepared, err := p.PrepareList(context.Background(), NewTree(nil), nil, topic, nil, sessionFor(nil), domain.DefaultProfile(), nil, false)

	require.NoError(t, err)
	assert.Empty(t, prepared)
}

func TestPrepareForEdit_Minimal(t *testing.T) {
	f := newFixture(t)
	editedAt := testNow.Add(-time.Minute)
	comment := f.store.AddComment(domain.Comment{
		TopicID:   f.topic.ID,
		AuthorID:  f.author.ID,
		ReplyTo:   777,
		Deleted:   true,
		EditCount: 3,
		EditedAt:  &editedAt,
		PostedAt:  testNow.Add(-time.Hour),
		PostIP:    "192.0.2.7",
		Reactions: domain.Reactions{"beer": {f.moderator.ID}},
	}, "draft text")

	msgText, err := f.store.GetMessageText(context.Background(), comment.ID)
	require.NoError(t, err)

	pc, err := f.preparer.PrepareForEdit(context.Background(), comment, msgText)
	require.NoError(t, err)

	// Независимо от состояния комментария: только автор и текст
	assert.Contains(t, pc.ProcessedText, "draft text")
	assert.Equal(t, "author", pc.Author.Nick)
	assert.Nil(t, pc.Reply)
	assert.Nil(t, pc.DeleteInfo)
	assert.Nil(t, pc.EditSummary)
	assert.False(t, pc.Deletable)
	assert.False(t, pc.Editable)
	assert.False(t, pc.Undeletable)
	assert.False(t, pc.Warnable)
	assert.Empty(t, pc.PostIP)
	assert.False(t, pc.Reactions.Enabled)
	assert.Empty(t, pc.Reactions.Counts)
}

func TestPrepareList_IgnoredReactionsFiltered(t *testing.T) {
	f := newFixture(t)
	annoying := f.store.AddUser(domain.User{Nick: "annoying", Activated: true})
	comment := f.store.AddComment(domain.Comment{
		TopicID:   f.topic.ID,
		AuthorID:  f.author.ID,
		PostedAt:  testNow.Add(-time.Hour),
		Reactions: domain.Reactions{"beer": {annoying.ID, f.moderator.ID}},
	}, "cheers")

	ctx := context.Background()
	comments, err := f.store.GetCommentsByTopicID(ctx, f.topic.ID)
	require.NoError(t, err)
	tree := NewTree(comments)

	ignore := map[int]bool{annoying.ID: true}
	prepared, err := f.preparer.PrepareList(ctx, tree, comments, f.topic, nil, sessionFor(f.author), domain.DefaultProfile(), ignore, false)
	require.NoError(t, err)

	pc := byID(prepared, comment.ID)
	require.Len(t, pc.Reactions.Counts, 1)
	assert.Equal(t, 1, pc.Reactions.Counts[0].Count)
}

