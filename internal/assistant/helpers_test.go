package assistant

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"finassist/internal/config"
	"finassist/internal/conversation"
	"finassist/internal/events"
	"finassist/internal/ledger"
	"finassist/internal/perception"
	"finassist/internal/types"
)

var fixedNow = time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixture struct {
	ledger *ledger.SQLLedger
	store  *conversation.MemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	l, err := ledger.Open("sqlite", filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return &fixture{ledger: l, store: conversation.NewMemoryStore()}
}

func (f *fixture) engine(chain *perception.Chain, pub EventPublisher) *Engine {
	return NewEngine(Deps{Ledger: f.ledger, Store: f.store, Chain: chain, Events: pub, Now: clock}, EngineConfig{
		Currency: "MAD",
		Timeouts: config.FastEngineTimeouts(),
	})
}

func (f *fixture) transactions(t *testing.T, userID string) []types.Transaction {
	t.Helper()
	txs, err := f.ledger.Query(context.Background(), types.TransactionFilter{UserID: userID})
	require.NoError(t, err)
	return txs
}

func (f *fixture) turns(t *testing.T, userID string) []types.ConversationTurn {
	t.Helper()
	turns, err := f.store.ReadLatest(context.Background(), userID, 100)
	require.NoError(t, err)
	return turns
}

// stubProvider answers Classify with fn and counts calls.
type stubProvider struct {
	name  string
	calls int32
	fn    func(ctx context.Context, req perception.ClassifyRequest) (*perception.ClassifyResult, error)
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Classify(ctx context.Context, req perception.ClassifyRequest) (*perception.ClassifyResult, error) {
	atomic.AddInt32(&s.calls, 1)
	return s.fn(ctx, req)
}

func (s *stubProvider) Calls() int { return int(atomic.LoadInt32(&s.calls)) }

func failing(name string, kind perception.ErrorKind) *stubProvider {
	return &stubProvider{name: name, fn: func(context.Context, perception.ClassifyRequest) (*perception.ClassifyResult, error) {
		return nil, &perception.ProviderError{Kind: kind, Provider: name, Err: errors.New(string(kind))}
	}}
}

func answering(name string, res *perception.ClassifyResult) *stubProvider {
	return &stubProvider{name: name, fn: func(context.Context, perception.ClassifyRequest) (*perception.ClassifyResult, error) {
		return res, nil
	}}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.ActionEvent
}

func (p *recordingPublisher) PublishAction(_ context.Context, ev events.ActionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

// failingLedger fails the balance query.
type failingLedger struct {
	types.Ledger
}

func (failingLedger) Balance(context.Context, string) (decimal.Decimal, error) {
	return decimal.Zero, errors.New("database is locked")
}

type failingStore struct {
	*conversation.MemoryStore
}

func (failingStore) AppendTurns(context.Context, string, []types.ConversationTurn) error {
	return errors.New("disk full")
}
