package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveDefaults_AutoDriver(t *testing.T) {
	cfg := NewForTesting()
	cfg.DBDriver = "auto"
	cfg.PostgresDSN = ""
	require.NoError(t, cfg.ResolveDefaults())
	assert.Equal(t, "sqlite", cfg.DBDriver)

	cfg = NewForTesting()
	cfg.DBDriver = "auto"
	cfg.PostgresDSN = "postgres://localhost/concierge"
	require.NoError(t, cfg.ResolveDefaults())
	assert.Equal(t, "postgres", cfg.DBDriver)
}

func TestResolveDefaults_RejectsUnknownDriver(t *testing.T) {
	cfg := NewForTesting()
	cfg.DBDriver = "spanner"
	assert.Error(t, cfg.ResolveDefaults())
}

func TestResolveDefaults_RejectsBadWindows(t *testing.T) {
	cfg := NewForTesting()
	cfg.SlotWindowDays = 0
	assert.Error(t, cfg.ResolveDefaults())

	cfg = NewForTesting()
	cfg.SearchAlpha = 1.5
	assert.Error(t, cfg.ResolveDefaults())
}

func TestGetHTTPAddr(t *testing.T) {
	cfg := NewForTesting()
	cfg.HTTPPort = 9090
	assert.Equal(t, ":9090", cfg.GetHTTPAddr())
}
