package store_test

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subaccounts/notes-server/internal/store"
)

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func TestStore_ReadAbsentKey(t *testing.T) {
	s := setupTestStore(t)

	value, ok, err := s.Read(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, value)
}

func TestStore_WriteReadRemove(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, store.NotesKey, `[]`))

	value, ok, err := s.Read(ctx, store.NotesKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[]`, value)

	require.NoError(t, s.Write(ctx, store.NotesKey, `[{"id":"a"}]`))
	value, _, err = s.Read(ctx, store.NotesKey)
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"a"}]`, value, "last write wins")

	require.NoError(t, s.Remove(ctx, store.NotesKey))
	_, ok, err = s.Read(ctx, store.NotesKey)
	require.NoError(t, err)
	assert.False(t, ok)

	// Removing again is idempotent.
	require.NoError(t, s.Remove(ctx, store.NotesKey))
}

func TestStore_WriteDoesNotTouchOtherKeys(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, store.TransactionsKey("0xA"), "ledger-a"))
	require.NoError(t, s.Write(ctx, store.TransactionsKey("0xB"), "ledger-b"))
	require.NoError(t, s.Remove(ctx, store.TransactionsKey("0xA")))

	value, ok, err := s.Read(ctx, store.TransactionsKey("0xB"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "ledger-b", value)
}

func TestStore_UpdateAbortLeavesValue(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, "k", "before"))

	boom := errors.New("boom")
	err := s.Update(ctx, "k", func(current string, ok bool) (string, bool, error) {
		return "after", false, boom
	})
	require.ErrorIs(t, err, boom)

	value, _, err := s.Read(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "before", value)
}

func TestStore_UpdateRemove(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, "k", "v"))
	require.NoError(t, s.Update(ctx, "k", func(string, bool) (string, bool, error) {
		return "", true, nil
	}))

	_, ok, err := s.Read(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_ConcurrentUpdatesAreNotLost(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	const writers = 4
	const perWriter = 10

	var wg sync.WaitGroup
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perWriter {
				err := s.Update(ctx, "counter", func(current string, ok bool) (string, bool, error) {
					n := 0
					if ok {
						n, _ = strconv.Atoi(current)
					}
					return strconv.Itoa(n + 1), false, nil
				})
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	value, ok, err := s.Read(ctx, "counter")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, strconv.Itoa(writers*perWriter), value)
}

func TestStore_KeysByPrefix(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, store.NotesKey, "[]"))
	require.NoError(t, s.Write(ctx, store.TransactionsKey("0xAbC"), "[]"))
	require.NoError(t, s.Write(ctx, store.TransactionsKey("0xdef"), "[]"))

	keys, err := s.Keys(ctx, store.TransactionsPrefix)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		store.TransactionsPrefix + "0xabc",
		store.TransactionsPrefix + "0xdef",
	}, keys)
}

func TestStore_InMemory(t *testing.T) {
	s, err := store.NewInMemory(nil)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.Ping(ctx))
	require.NoError(t, s.Write(ctx, "k", "v"))

	value, ok, err := s.Read(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", value)
}

func TestTransactionsKey_NormalizesAccount(t *testing.T) {
	assert.Equal(t, store.TransactionsKey("0xabc"), store.TransactionsKey(" 0xABC "))
	assert.NotEqual(t, store.TransactionsKey("0xabc"), store.PurchasesKey("0xabc"))
}
