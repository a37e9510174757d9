package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finassist/internal/assistant"
	"finassist/internal/config"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	for _, env := range config.APIKeyEnv {
		t.Setenv(env, "")
	}
	t.Setenv("FINASSIST_PRIMARY_PROVIDER", "")
	t.Setenv("FINASSIST_RESCUE_PROVIDER", "")
	t.Setenv("FINASSIST_DB", "")

	dir := t.TempDir()
	c := config.DefaultConfig()
	c.Storage.Path = filepath.Join(dir, "ledger.db")
	c.Usage.Path = filepath.Join(dir, "usage.json")
	path := filepath.Join(dir, "finassist.yaml")
	require.NoError(t, c.Save(path))
	return path
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute(), buf.String())
	return buf.String()
}

func TestAskThenHistory(t *testing.T) {
	path := writeTestConfig(t)

	out := execute(t, "--config", path, "--user", "cli", "ask", "--json", "I spent 150 MAD at the restaurant yesterday")
	var reply assistant.Reply
	require.NoError(t, json.Unmarshal([]byte(out), &reply))
	assert.Equal(t, assistant.SourceHeuristic, reply.Source)
	require.NotNil(t, reply.Action)
	require.NotNil(t, reply.Action.Transaction)
	assert.Equal(t, "Food", reply.Action.Transaction.Category)

	out = execute(t, "--config", path, "--user", "cli", "history", "--limit", "10")
	assert.Contains(t, out, "I spent 150 MAD at the restaurant yesterday")
	assert.Contains(t, out, "add_transaction")

	out = execute(t, "--config", path, "--user", "someone-else", "history")
	assert.Contains(t, out, "No conversation yet")
}

func TestExtractDryRun(t *testing.T) {
	path := writeTestConfig(t)

	out := execute(t, "--config", path, "extract", "set a food budget of 2000 MAD per month")
	assert.Contains(t, out, "create_budget")
	assert.Contains(t, out, "2000")

	out = execute(t, "--config", path, "extract", "I spent money at the restaurant")
	assert.Contains(t, out, "no amount")

	out = execute(t, "--config", path, "extract", "hello there")
	assert.Contains(t, out, "no action")

	// extract never opens the ledger
	_, err := os.Stat(strings.TrimSuffix(path, "finassist.yaml") + "ledger.db")
	assert.True(t, os.IsNotExist(err))
}

func TestUsageEmpty(t *testing.T) {
	path := writeTestConfig(t)
	out := execute(t, "--config", path, "usage")
	assert.Contains(t, out, "total: 0 calls")
}
