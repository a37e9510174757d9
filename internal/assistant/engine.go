// Package assistant is the conversational intent-to-action engine. It turns
// one inbound message into at most one ledger action, degrading from the
// provider chain to the heuristic extractor and finally to a fixed reply.
//
// Flow for one message:
//
//	BuildContext → ClassifyPrimary → [ClassifySecondary] → [Degrade] → Execute | Respond → Persist
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"finassist/internal/config"
	"finassist/internal/events"
	"finassist/internal/logging"
	"finassist/internal/perception"
	"finassist/internal/types"
	"finassist/internal/usage"
)

// Source says which stage produced a reply's action or text.
type Source string

const (
	SourcePrimary   Source = "primary"
	SourceRescue    Source = "rescue"
	SourceHeuristic Source = "heuristic"
	SourceFallback  Source = "fallback"
)

// Reply is what HandleMessage returns to the caller.
type Reply struct {
	Text     string              `json:"text"`
	Action   *types.ActionRecord `json:"action,omitempty"`
	Source   Source              `json:"source"`
	Provider string              `json:"provider,omitempty"`
}

// EventPublisher receives an audit event after an action's turns persist.
type EventPublisher interface {
	PublishAction(ctx context.Context, ev events.ActionEvent) error
}

// EngineConfig holds the engine's tunables.
type EngineConfig struct {
	Currency        string
	HistoryWindow   int
	FallbackMessage string
	Timeouts        config.EngineTimeouts
}

// EngineConfigFromConfig extracts the engine settings from cfg.
func EngineConfigFromConfig(cfg *config.Config) EngineConfig {
	return EngineConfig{
		Currency:        cfg.Assistant.Currency,
		HistoryWindow:   cfg.GetHistoryWindow(),
		FallbackMessage: cfg.Assistant.FallbackMessage,
		Timeouts:        cfg.EngineTimeouts(),
	}
}

// Deps are the engine's collaborators. Chain and Events may be nil.
type Deps struct {
	Ledger types.Ledger
	Store  types.ConversationStore
	Chain  *perception.Chain
	Events EventPublisher
	// Now is the engine clock. Defaults to time.Now.
	Now func() time.Time
}

// Engine handles inbound messages. It keeps no per-request state, so one
// Engine serves concurrent requests.
type Engine struct {
	store     types.ConversationStore
	chain     *perception.Chain
	events    EventPublisher
	heuristic *perception.HeuristicExtractor
	contexts  *ContextBuilder
	executor  *Executor
	responder *Responder
	cfg       EngineConfig
	now       func() time.Time
}

// NewEngine wires an engine.
func NewEngine(deps Deps, cfg EngineConfig) *Engine {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = 10
	}
	if cfg.FallbackMessage == "" {
		cfg.FallbackMessage = config.DefaultConfig().Assistant.FallbackMessage
	}
	if cfg.Timeouts == (config.EngineTimeouts{}) {
		cfg.Timeouts = config.DefaultEngineTimeouts()
	}
	return &Engine{
		store:     deps.Store,
		chain:     deps.Chain,
		events:    deps.Events,
		heuristic: perception.NewHeuristicExtractor(perception.Clock(now)),
		contexts:  NewContextBuilder(deps.Ledger, cfg.Currency, now),
		executor:  NewExecutor(deps.Ledger, now),
		responder: NewResponder(cfg.Currency),
		cfg:       cfg,
		now:       now,
	}
}

// decision is the outcome of classification: an action to execute, or text
// to return as is.
type decision struct {
	action   types.FinancialAction
	text     string
	source   Source
	provider string
}

// HandleMessage classifies text, executes at most one action and appends the
// user and assistant turns. Provider failures never fail the request; context
// and persistence failures return a *FatalError. A cancelled ctx aborts
// without persisting anything.
func (e *Engine) HandleMessage(ctx context.Context, userID, text string) (*Reply, error) {
	timer := logging.StartTimer(logging.CategoryEngine, "HandleMessage")
	defer timer.Stop()

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	ctx = usage.WithUser(ctx, userID)
	received := e.now()

	// BuildContext
	cctx, cancel := context.WithTimeout(ctx, e.cfg.Timeouts.ContextBuild)
	snap, err := e.contexts.Build(cctx, userID)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logging.EngineError("context build failed for %s: %v", userID, err)
		return nil, &FatalError{Stage: StageContext, Err: err}
	}

	history, err := e.store.ReadLatest(ctx, userID, e.cfg.HistoryWindow)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logging.EngineWarn("history unavailable for %s, classifying without it: %v", userID, err)
		history = nil
	}

	// Classify
	dec, err := e.classify(ctx, perception.ClassifyRequest{
		UserID:        userID,
		SystemContext: perception.BuildSystemPrompt(snap, received, true),
		History:       history,
		Message:       text,
		Tools:         perception.FinancialTools(),
		Now:           received,
	})
	if err != nil {
		return nil, err
	}

	// Execute | Respond
	reply := &Reply{Source: dec.source, Provider: dec.provider}
	if dec.action != nil {
		rec, err := e.executor.Execute(ctx, userID, dec.action)
		var ae *ActionError
		switch {
		case errors.As(err, &ae):
			logging.EngineDebug("action %s rejected: %v", dec.action.Kind(), ae)
			reply.Text = e.responder.RenderError(ae)
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logging.EngineError("executing %s failed for %s: %v", dec.action.Kind(), userID, err)
			return nil, &FatalError{Stage: StageExecute, Err: err}
		default:
			reply.Action = rec
			reply.Text = e.responder.Render(rec)
		}
	} else {
		reply.Text = dec.text
	}

	// Persist
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	answered := e.now()
	if answered.Before(received) {
		answered = received
	}
	turns := []types.ConversationTurn{
		{Role: types.RoleUser, Content: text, Timestamp: received},
		{Role: types.RoleAssistant, Content: reply.Text, Timestamp: answered, Action: reply.Action},
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.Timeouts.Persist)
	err = e.store.AppendTurns(pctx, userID, turns)
	cancel()
	if err != nil {
		logging.EngineError("persisting turns failed for %s: %v", userID, err)
		return nil, &FatalError{Stage: StagePersist, Err: err}
	}

	e.publish(ctx, userID, reply)
	logging.Engine("handled message for %s: source=%s provider=%s action=%s", userID, reply.Source, reply.Provider, reply.Action.Summary())
	return reply, nil
}

// classify runs the provider chain and the heuristic fallback. The only
// error it returns is the caller's cancellation.
func (e *Engine) classify(ctx context.Context, req perception.ClassifyRequest) (decision, error) {
	if !e.chain.HasPrimary() {
		return e.degrade(req.Message), nil
	}

	res, err := e.chain.Primary.Classify(ctx, req)
	if err == nil {
		return e.fromResult(res, SourcePrimary, e.chain.Primary.Name(), req.Message), nil
	}
	if ctx.Err() != nil {
		return decision{}, ctx.Err()
	}
	logging.EngineWarn("primary provider %s failed: %v", e.chain.Primary.Name(), err)

	if e.chain.ShouldRescue(err) {
		res, rerr := e.chain.Rescue.Classify(ctx, req)
		if rerr == nil {
			return e.fromResult(res, SourceRescue, e.chain.Rescue.Name(), req.Message), nil
		}
		if ctx.Err() != nil {
			return decision{}, ctx.Err()
		}
		logging.EngineWarn("rescue provider %s failed: %v", e.chain.Rescue.Name(), rerr)
	}
	return e.degrade(req.Message), nil
}

// fromResult prefers the provider's structured action, then the heuristic on
// the raw message, then the provider's text.
func (e *Engine) fromResult(res *perception.ClassifyResult, source Source, provider, message string) decision {
	if res.Action != nil {
		return decision{action: res.Action, source: source, provider: provider}
	}
	if action, ok := e.heuristic.Extract(message); ok {
		return decision{action: action, source: SourceHeuristic, provider: provider}
	}
	text := strings.TrimSpace(res.Text)
	if text == "" {
		return decision{text: e.cfg.FallbackMessage, source: SourceFallback, provider: provider}
	}
	return decision{text: text, source: source, provider: provider}
}

// degrade is the last resort once no provider answered.
func (e *Engine) degrade(message string) decision {
	if action, ok := e.heuristic.Extract(message); ok {
		return decision{action: action, source: SourceHeuristic}
	}
	return decision{text: e.cfg.FallbackMessage, source: SourceFallback}
}

func (e *Engine) publish(ctx context.Context, userID string, reply *Reply) {
	if e.events == nil || reply.Action == nil {
		return
	}
	err := e.events.PublishAction(context.WithoutCancel(ctx), events.ActionEvent{
		UserID:   userID,
		Kind:     reply.Action.Kind,
		Source:   string(reply.Source),
		Provider: reply.Provider,
		Record:   reply.Action,
	})
	if err != nil {
		logging.EngineWarn("audit event for %s not published: %v", userID, err)
	}
}

// Describe returns a short description of the chain for diagnostics.
func (e *Engine) Describe() string {
	if !e.chain.HasPrimary() {
		return "heuristic only"
	}
	s := fmt.Sprintf("primary=%s", e.chain.Primary.Name())
	if e.chain.RescueEnabled && e.chain.Rescue != nil {
		s += fmt.Sprintf(" rescue=%s", e.chain.Rescue.Name())
	}
	return s
}
