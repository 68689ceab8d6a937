package dataloader

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/graph-gophers/dataloader"

	"github.com/UkralStul/forum-view-service/internal/domain"
	"github.com/UkralStul/forum-view-service/internal/storage"
)

type contextKey string

const key = contextKey("dataloaders")

// Loaders содержит все дата-лоадеры запроса. Они склеивают одиночные
// лукапы, сделанные в пределах одного запроса, в батчевые обращения
// к хранилищу.
type Loaders struct {
	UserByID    *dataloader.Loader
	MsgTextByID *dataloader.Loader
}

// UserSource — батчевая загрузка пользователей; обычно это сквозной кеш.
type UserSource interface {
	GetUsersByIDs(ctx context.Context, ids []int) (map[int]*domain.User, error)
}

// TextSource — батчевая загрузка текстов комментариев.
type TextSource interface {
	GetMessageTexts(ctx context.Context, commentIDs []int) (map[int]*domain.MsgText, error)
}

// Middleware внедряет лоадеры в контекст запроса.
func Middleware(users UserSource, texts TextSource, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		loaders := Loaders{
			UserByID:    dataloader.NewBatchedLoader(userBatchFn(users), dataloader.WithWait(time.Millisecond*1)),
			MsgTextByID: dataloader.NewBatchedLoader(msgTextBatchFn(texts), dataloader.WithWait(time.Millisecond*1)),
		}
		ctx := context.WithValue(r.Context(), key, &loaders)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// For извлекает лоадеры из контекста.
func For(ctx context.Context) *Loaders {
	return ctx.Value(key).(*Loaders)
}

// LoadUser загружает пользователя через батчевый лоадер запроса.
func (l *Loaders) LoadUser(ctx context.Context, id int) (*domain.User, error) {
	v, err := l.UserByID.Load(ctx, intKey(id))()
	if err != nil {
		return nil, err
	}
	return v.(*domain.User), nil
}

// LoadMsgText загружает текст комментария через батчевый лоадер запроса.
func (l *Loaders) LoadMsgText(ctx context.Context, commentID int) (*domain.MsgText, error) {
	v, err := l.MsgTextByID.Load(ctx, intKey(commentID))()
	if err != nil {
		return nil, err
	}
	return v.(*domain.MsgText), nil
}

func intKey(id int) dataloader.Key {
	return dataloader.StringKey(strconv.Itoa(id))
}

func parseKeys(keys dataloader.Keys) []int {
	ids := make([]int, len(keys))
	for i, k := range keys {
		ids[i], _ = strconv.Atoi(k.String())
	}
	return ids
}

func errorResults(keys dataloader.Keys, err error) []*dataloader.Result {
	results := make([]*dataloader.Result, len(keys))
	for i := range results {
		results[i] = &dataloader.Result{Error: err}
	}
	return results
}

func userBatchFn(users UserSource) dataloader.BatchFunc {
	return func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		ids := parseKeys(keys)

		// Один запрос к хранилищу на весь батч
		loaded, err := users.GetUsersByIDs(ctx, ids)
		if err != nil {
			return errorResults(keys, err)
		}

		results := make([]*dataloader.Result, len(keys))
		for i, id := range ids {
			if u, ok := loaded[id]; ok {
				results[i] = &dataloader.Result{Data: u}
			} else {
				results[i] = &dataloader.Result{Error: fmt.Errorf("user %d: %w", id, storage.ErrNotFound)}
			}
		}
		return results
	}
}

func msgTextBatchFn(source TextSource) dataloader.BatchFunc {
	return func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		ids := parseKeys(keys)

		texts, err := source.GetMessageTexts(ctx, ids)
		if err != nil {
			return errorResults(keys, err)
		}

		results := make([]*dataloader.Result, len(keys))
		for i, id := range ids {
			if t, ok := texts[id]; ok {
				results[i] = &dataloader.Result{Data: t}
			} else {
				results[i] = &dataloader.Result{Error: fmt.Errorf("message text %d: %w", id, storage.ErrNotFound)}
			}
		}
		return results
	}
}
