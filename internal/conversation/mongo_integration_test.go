//go:build integration

package conversation

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run with: FINASSIST_TEST_MONGO_URI=mongodb://localhost:27017 go test -tags integration ./internal/conversation/
func TestMongoStore_WindowKeepsLatestInOrder(t *testing.T) {
	uri := os.Getenv("FINASSIST_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("FINASSIST_TEST_MONGO_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := fmt.Sprintf("finassist_test_%d", time.Now().UnixNano())
	store, err := NewMongoStore(ctx, uri, db)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.coll.Database().Drop(context.Background())
		_ = store.Close()
	})

	turns := makeTurns(25)
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
		assert.Equal(t, turns[15+i].Content, turn.Content)
	}
}
