package dataloader

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/graph-gophers/dataloader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UkralStul/forum-view-service/internal/domain"
	"github.com/UkralStul/forum-view-service/internal/storage"
)

type countingUserSource struct {
	mu    sync.Mutex
	calls int
	users map[int]*domain.User
}

func (c *countingUserSource) GetUsersByIDs(_ context.Context, ids []int) (map[int]*domain.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls++
	result := make(map[int]*domain.User, len(ids))
	for _, id := range ids {
		if u, ok := c.users[id]; ok {
			result[id] = u
		}
	}
	return result, nil
}

func newUserLoaders(source *countingUserSource) *Loaders {
	return &Loaders{
		UserByID: dataloader.NewBatchedLoader(userBatchFn(source), dataloader.WithWait(time.Millisecond)),
	}
}

func TestLoadUser_BatchesLookups(t *testing.T) {
	source := &countingUserSource{users: map[int]*domain.User{
		1: {ID: 1, Nick: "one"},
		2: {ID: 2, Nick: "two"},
	}}
	loaders := newUserLoaders(source)
	ctx := context.Background()

	// Два лукапа внутри одного окна склеиваются в один батчевый запрос
	thunk1 := loaders.UserByID.Load(ctx, intKey(1))
	thunk2 := loaders.UserByID.Load(ctx, intKey(2))

	v1, err := thunk1()
	require.NoError(t, err)
	v2, err := thunk2()
	require.NoError(t, err)

	assert.Equal(t, "one", v1.(*domain.User).Nick)
	assert.Equal(t, "two", v2.(*domain.User).Nick)
	assert.Equal(t, 1, source.calls)
}

func TestLoadUser_NotFound(t *testing.T) {
	loaders := newUserLoaders(&countingUserSource{users: map[int]*domain.User{}})

	_, err := loaders.LoadUser(context.Background(), 404)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
