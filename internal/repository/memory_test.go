package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/atinyakov/GateKeeper/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryUserRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUserRepository()

	users, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)

	require.NoError(t, repo.Add(ctx, models.User{Username: "alice", Password: "S3cr3t!"}))
	require.NoError(t, repo.Add(ctx, models.User{Username: "bob", Password: "hunter22"}))
	assert.ErrorIs(t, repo.Add(ctx, models.User{Username: "alice", Password: "other"}), ErrUserExists)

	exists, err := repo.Exists(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, exists)

	u, err := repo.Get(ctx, "alice", "S3cr3t!")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, models.User{Username: "alice", Password: "S3cr3t!"}, *u)

	u, err = repo.Get(ctx, "alice", "wrong")
	require.NoError(t, err)
	assert.Nil(t, u)

	users, err = repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.User{{Username: "alice"}, {Username: "bob"}}, users)

	require.NoError(t, repo.Delete(ctx, "alice"))
	require.NoError(t, repo.Delete(ctx, "alice"))

	exists, err = repo.Exists(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, exists)

	users, err = repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.User{{Username: "bob"}}, users)
}

func TestMemoryUserRepository_FirstWriterWins(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUserRepository()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		winners  []string
		failures int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pw := fmt.Sprintf("pw-%d", i)
			err := repo.Add(ctx, models.User{Username: "race", Password: pw})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				winners = append(winners, pw)
			} else {
				failures++
			}
		}(i)
	}
	wg.Wait()

	require.Len(t, winners, 1)
	assert.Equal(t, 15, failures)

	u, err := repo.Get(ctx, "race", winners[0])
	require.NoError(t, err)
	assert.NotNil(t, u)
}
