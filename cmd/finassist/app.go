package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"finassist/internal/assistant"
	"finassist/internal/config"
	"finassist/internal/conversation"
	"finassist/internal/events"
	"finassist/internal/ledger"
	"finassist/internal/perception"
	"finassist/internal/usage"
)

// app holds the wired collaborators for one CLI invocation.
type app struct {
	ledger    *ledger.SQLLedger
	store     conversation.Store
	tracker   *usage.Tracker
	publisher *events.Publisher
	engine    *assistant.Engine
}

// newApp wires config → ledger → conversation store → provider chain →
// usage → events → engine.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}

	l, err := ledger.Open(cfg.Storage.Driver, cfg.Storage.Path)
	if err != nil {
		return nil, err
	}
	a.ledger = l

	a.store, err = conversation.Open(ctx, cfg.Conversation, l.DB())
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to open conversation store: %w", err)
	}

	var recorder perception.UsageRecorder
	if cfg.Usage.Enabled {
		a.tracker, err = usage.NewTracker(cfg.Usage.Path)
		if err != nil {
			a.Close()
			return nil, err
		}
		recorder = a.tracker
	}

	chain, err := perception.NewChainFromConfig(cfg, recorder)
	if err != nil {
		a.Close()
		return nil, err
	}

	var pub assistant.EventPublisher
	if cfg.Events.Enabled {
		a.publisher, err = events.NewPublisher(cfg.Events)
		if err != nil {
			a.Close()
			return nil, err
		}
		pub = a.publisher
	}

	a.engine = assistant.NewEngine(assistant.Deps{
		Ledger: l,
		Store:  a.store,
		Chain:  chain,
		Events: pub,
	}, assistant.EngineConfigFromConfig(cfg))

	logger.Debug("app wired",
		zap.String("ledger", l.Path()),
		zap.String("conversation", cfg.Conversation.Backend),
		zap.String("chain", a.engine.Describe()),
	)
	return a, nil
}

// Close releases everything newApp opened, saving usage counters first.
func (a *app) Close() error {
	var errs []error
	if a.tracker != nil {
		errs = append(errs, a.tracker.Save())
	}
	if a.publisher != nil {
		errs = append(errs, a.publisher.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if a.ledger != nil {
		errs = append(errs, a.ledger.Close())
	}
	return errors.Join(errs...)
}
