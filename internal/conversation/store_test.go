package conversation

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finassist/internal/config"
	"finassist/internal/ledger"
	"finassist/internal/types"
)

var base = time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC)

func backends(t *testing.T) map[string]Store {
	t.Helper()

	l, err := ledger.Open("sqlite", filepath.Join(t.TempDir(), "conv.db"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	sqlStore, err := NewSQLStore(l.DB())
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	redisStore := NewRedisStoreWithClient(client, "test")
	t.Cleanup(func() { redisStore.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqlStore,
		"redis":  redisStore,
	}
}

func makeTurns(n int) []types.ConversationTurn {
	turns := make([]types.ConversationTurn, n)
	for i := range turns {
		role := types.RoleUser
		if i%2 == 1 {
			role = types.RoleAssistant
		}
		turns[i] = types.ConversationTurn{
			Role:      role,
			Content:   fmt.Sprintf("turn %02d", i),
			Timestamp: base.Add(time.Duration(i) * time.Second),
		}
	}
	return turns
}

func TestStores_WindowKeepsLatestInOrder(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			turns := makeTurns(25)
			// Appended in pairs as the engine does.
			for i := 0; i < len(turns); i += 2 {
				end := i + 2
				if end > len(turns) {
					end = len(turns)
				}
				require.NoError(t, store.AppendTurns(ctx, "alice", turns[i:end]))
			}

			got, err := store.ReadLatest(ctx, "alice", 10)
			require.NoError(t, err)
			require.Len(t, got, 10)
			for i, turn := range got {
				want := turns[15+i]
				assert.Equal(t, want.Content, turn.Content)
				assert.Equal(t, want.Role, turn.Role)
				assert.True(t, want.Timestamp.Equal(turn.Timestamp), "%s != %s", want.Timestamp, turn.Timestamp)
			}

			all, err := store.ReadLatest(ctx, "alice", 100)
			require.NoError(t, err)
			assert.Len(t, all, 25)

			none, err := store.ReadLatest(ctx, "bob", 10)
			require.NoError(t, err)
			assert.Empty(t, none)

			zero, err := store.ReadLatest(ctx, "alice", 0)
			require.NoError(t, err)
			assert.Empty(t, zero)
		})
	}
}

func TestStores_ActionRecordRoundTrip(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			rec := &types.ActionRecord{
				Kind:       types.ActionAddTransaction,
				ExecutedAt: base,
				Transaction: &types.Transaction{
					ID: "tx-1", UserID: "alice", Amount: decimal.NewFromInt(150),
					Type: types.TransactionExpense, Category: "Food", Description: "restaurant", Date: base,
				},
			}
			require.NoError(t, store.AppendTurns(ctx, "alice", []types.ConversationTurn{
				{Role: types.RoleUser, Content: "I spent 150 MAD", Timestamp: base},
				{Role: types.RoleAssistant, Content: "Recorded.", Timestamp: base, Action: rec},
			}))

			got, err := store.ReadLatest(ctx, "alice", 10)
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Nil(t, got[0].Action)
			require.NotNil(t, got[1].Action)
			assert.Equal(t, types.ActionAddTransaction, got[1].Action.Kind)
			require.NotNil(t, got[1].Action.Transaction)
			assert.Equal(t, "tx-1", got[1].Action.Transaction.ID)
			assert.True(t, got[1].Action.Transaction.Amount.Equal(decimal.NewFromInt(150)))
		})
	}
}

func TestStores_ConcurrentAppendsAreAdditive(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			var wg sync.WaitGroup
			for w := 0; w < 4; w++ {
				wg.Add(1)
				go func(w int) {
					defer wg.Done()
					for i := 0; i < 5; i++ {
						pair := []types.ConversationTurn{
							{Role: types.RoleUser, Content: fmt.Sprintf("w%d-%d", w, i), Timestamp: base},
							{Role: types.RoleAssistant, Content: "ok", Timestamp: base},
						}
						assert.NoError(t, store.AppendTurns(ctx, "carol", pair))
					}
				}(w)
			}
			wg.Wait()

			got, err := store.ReadLatest(ctx, "carol", 1000)
			require.NoError(t, err)
			assert.Len(t, got, 40)
			// Pairs are never split.
			for i := 0; i < len(got); i += 2 {
				assert.Equal(t, types.RoleUser, got[i].Role)
				assert.Equal(t, types.RoleAssistant, got[i+1].Role)
			}
		})
	}
}

func TestRedisStore_ConversationMetadata(t *testing.T) {
	mr := miniredis.RunT(t)
	store := NewRedisStoreWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "")
	defer store.Close()
	ctx := context.Background()

	conv, err := store.Conversation(ctx, "dave")
	require.NoError(t, err)
	assert.Nil(t, conv)

	require.NoError(t, store.AppendTurns(ctx, "dave", makeTurns(2)))
	conv, err = store.Conversation(ctx, "dave")
	require.NoError(t, err)
	require.NotNil(t, conv)
	first := conv.ID
	assert.NotEmpty(t, first)
	assert.True(t, mr.Exists("finassist:conversation:dave:turns"))

	require.NoError(t, store.AppendTurns(ctx, "dave", makeTurns(2)))
	conv, err = store.Conversation(ctx, "dave")
	require.NoError(t, err)
	assert.Equal(t, first, conv.ID)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, config.ConversationConfig{Backend: "memory"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	_, err = Open(ctx, config.ConversationConfig{Backend: "sqlite"}, nil)
	assert.Error(t, err)

	mr := miniredis.RunT(t)
	s, err = Open(ctx, config.ConversationConfig{Backend: "redis", RedisAddr: mr.Addr()}, nil)
	require.NoError(t, err)
	assert.IsType(t, &RedisStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(ctx, config.ConversationConfig{Backend: "cassandra"}, nil)
	assert.Error(t, err)
}
