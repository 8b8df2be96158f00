package credentials

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/macchain/backend/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) {
	t.Helper()
	require.NoError(t, config.Init(filepath.Join(t.TempDir(), "config.toml")))
}

func TestLoadMissing(t *testing.T) {
	setup(t)
	creds, err := Load()
	require.NoError(t, err)
	assert.Nil(t, creds)
}

func TestSaveLoadDelete(t *testing.T) {
	setup(t)
	in := &Credentials{
		AccessToken: "token",
		ExpiresAt:   time.Now().Add(time.Hour).UTC().Truncate(time.Second),
		UserID:      "u1",
		Username:    "alice",
		Email:       "alice@example.com",
	}
	require.NoError(t, Save(in))

	info, err := os.Stat(config.GetCredentialsPath())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	out, err := Load()
	require.NoError(t, err)
	assert.Equal(t, in.AccessToken, out.AccessToken)
	assert.True(t, in.ExpiresAt.Equal(out.ExpiresAt))
	assert.True(t, out.IsValid())

	require.NoError(t, Delete())
	require.NoError(t, Delete())
	out, err = Load()
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestIsValid(t *testing.T) {
	var missing *Credentials
	assert.False(t, missing.IsValid())
	assert.False(t, (&Credentials{AccessToken: "t", ExpiresAt: time.Now().Add(-time.Minute)}).IsValid())
	assert.False(t, (&Credentials{ExpiresAt: time.Now().Add(time.Hour)}).IsValid())
}

func TestClientIDIsStable(t *testing.T) {
	setup(t)
	first, err := ClientID()
	require.NoError(t, err)
	assert.Len(t, first, 36)

	second, err := ClientID()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
