package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/macchain/backend/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWritesToConfiguredFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, config.Init(filepath.Join(dir, "config.toml")))
	defer Close()

	Init(true)
	Debug("syncing", "pending", 2)
	Close()

	data, err := os.ReadFile(filepath.Join(dir, "macchain-cli.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "syncing")
	assert.Contains(t, string(data), "pending=2")
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, log.WarnLevel)

	Info("hidden")
	Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
