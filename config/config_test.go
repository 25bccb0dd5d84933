package config_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portalverify/config"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv(config.KeyBaseURL, "http://portal.example")
	t.Setenv(config.KeyUsername, "admin")
	t.Setenv(config.KeyPassword, "hunter2")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "http://portal.example", cfg.BaseURL)
	assert.Equal(t, "artifacts", cfg.ArtifactsDir)
	assert.Equal(t, 60*time.Second, cfg.SignalTimeout)
	assert.Equal(t, "8086", cfg.Port)
	assert.Equal(t, "portal.verify.results", cfg.NATSSubject)
}

func TestLoadMissingKeyNamesTheKey(t *testing.T) {
	t.Setenv(config.KeyBaseURL, "http://portal.example")
	t.Setenv(config.KeyUsername, "")
	t.Setenv(config.KeyPassword, "hunter2")

	_, err := config.Load()
	require.Error(t, err)

	var missing *config.MissingKeyError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, config.KeyUsername, missing.Key)
	assert.Contains(t, err.Error(), config.KeyUsername)
}

func TestPasswordAliasAccepted(t *testing.T) {
	t.Setenv(config.KeyBaseURL, "http://portal.example")
	t.Setenv(config.KeyUsername, "admin")
	t.Setenv(config.KeyPassword, "")
	t.Setenv(config.KeyPasswordAlias, "fallback")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "fallback", cfg.Password)
}

func TestSpecificPasswordKeyWins(t *testing.T) {
	setRequired(t)
	t.Setenv(config.KeyPasswordAlias, "fallback")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "hunter2", cfg.Password)
}

func TestSignalTimeoutParsedAndCapped(t *testing.T) {
	setRequired(t)

	t.Setenv(config.KeySignalTimeout, "30")
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.SignalTimeout)

	t.Setenv(config.KeySignalTimeout, "600")
	cfg, err = config.Load()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, cfg.SignalTimeout)
}

func TestSignalTimeoutRejectsGarbage(t *testing.T) {
	setRequired(t)
	t.Setenv(config.KeySignalTimeout, "soon")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.KeySignalTimeout)
}
