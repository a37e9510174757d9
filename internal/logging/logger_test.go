package logging

import (
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"finassist/internal/config"
)

func observe(t *testing.T, c config.LoggingConfig) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	InitializeWith(zap.New(core), c)
	t.Cleanup(func() { InitializeWith(zap.NewNop(), config.LoggingConfig{}) })
	return logs
}

func TestGet_SilentWithoutDebugMode(t *testing.T) {
	logs := observe(t, config.LoggingConfig{DebugMode: false})

	Engine("should not appear %d", 1)
	Get(CategoryLedger).Error("nor this")

	if n := logs.Len(); n != 0 {
		t.Fatalf("expected no entries, got %d", n)
	}
}

func TestGet_CategoryNamedAndFormatted(t *testing.T) {
	logs := observe(t, config.LoggingConfig{DebugMode: true})

	Perception("classified %s via %s", "add_transaction", "primary")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].LoggerName != "perception" {
		t.Errorf("LoggerName = %q, want perception", entries[0].LoggerName)
	}
	if entries[0].Message != "classified add_transaction via primary" {
		t.Errorf("Message = %q", entries[0].Message)
	}
}

func TestGet_CategoryToggle(t *testing.T) {
	logs := observe(t, config.LoggingConfig{
		DebugMode:  true,
		Categories: map[string]bool{"store": false},
	})

	StoreDebug("hidden")
	LedgerDebug("shown")

	if logs.FilterLoggerName("store").Len() != 0 {
		t.Error("store category should be disabled")
	}
	if logs.FilterLoggerName("ledger").Len() != 1 {
		t.Error("ledger category should be enabled")
	}
}

func TestLogger_With(t *testing.T) {
	logs := observe(t, config.LoggingConfig{DebugMode: true})

	Get(CategoryEngine).With("user", "u1").Info("handled")

	entries := logs.FilterField(zap.String("user", "u1")).All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry with user field, got %d", len(entries))
	}
}

func TestTimer_StopWithThreshold(t *testing.T) {
	logs := observe(t, config.LoggingConfig{DebugMode: true})

	timer := StartTimer(CategoryEngine, "classify")
	time.Sleep(2 * time.Millisecond)
	if d := timer.StopWithThreshold(time.Nanosecond); d <= 0 {
		t.Fatalf("expected positive duration, got %v", d)
	}

	if logs.FilterLevelExact(zapcore.WarnLevel).Len() != 1 {
		t.Error("expected a warning for exceeded threshold")
	}
}

func TestInitialize_BadLevel(t *testing.T) {
	t.Cleanup(func() { InitializeWith(zap.NewNop(), config.LoggingConfig{}) })
	if err := Initialize(config.LoggingConfig{DebugMode: true, Level: "loud"}); err == nil {
		t.Fatal("expected error for invalid level")
	}
}
