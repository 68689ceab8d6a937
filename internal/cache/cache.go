package cache

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/UkralStul/forum-view-service/internal/domain"
	"github.com/UkralStul/forum-view-service/internal/storage"
)

// Users — сквозной LRU-кеш пользователей поверх хранилища.
// Пользователей читают на каждый комментарий страницы, поэтому кеш
// разделяется между запросами.
type Users struct {
	store storage.Storage
	lru   *lru.Cache[int, *domain.User]
}

// NewUsers создает кеш пользователей заданного размера.
func NewUsers(store storage.Storage, size int) (*Users, error) {
	c, err := lru.New[int, *domain.User](size)
	if err != nil {
		return nil, err
	}
	return &Users{store: store, lru: c}, nil
}

// GetUserByID возвращает пользователя, заглядывая сначала в кеш.
func (u *Users) GetUserByID(ctx context.Context, id int) (*domain.User, error) {
	if user, ok := u.lru.Get(id); ok {
		return user, nil
	}
	user, err := u.store.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	u.lru.Add(id, user)
	return user, nil
}

// GetUsersByIDs возвращает пользователей по набору id, дозагружая промахи
// одним батчевым запросом.
func (u *Users) GetUsersByIDs(ctx context.Context, ids []int) (map[int]*domain.User, error) {
	result := make(map[int]*domain.User, len(ids))
	var misses []int
	for _, id := range ids {
		if user, ok := u.lru.Get(id); ok {
			result[id] = user
		} else {
			misses = append(misses, id)
		}
	}
	if len(misses) == 0 {
		return result, nil
	}

	loaded, err := u.store.GetUsersByIDs(ctx, misses)
	if err != nil {
		return nil, err
	}
	for id, user := range loaded {
		u.lru.Add(id, user)
		result[id] = user
	}
	return result, nil
}

// Groups — сквозной LRU-кеш разделов форума.
type Groups struct {
	store storage.Storage
	lru   *lru.Cache[int, *domain.Group]
}

// NewGroups создает кеш разделов заданного размера.
func NewGroups(store storage.Storage, size int) (*Groups, error) {
	c, err := lru.New[int, *domain.Group](size)
	if err != nil {
		return nil, err
	}
	return &Groups{store: store, lru: c}, nil
}

// GetGroupByID возвращает раздел, заглядывая сначала в кеш.
func (g *Groups) GetGroupByID(ctx context.Context, id int) (*domain.Group, error) {
	if group, ok := g.lru.Get(id); ok {
		return group, nil
	}
	group, err := g.store.GetGroupByID(ctx, id)
	if err != nil {
		return nil, err
	}
	g.lru.Add(id, group)
	return group, nil
}
