package main

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewpulse/reviewpulse/internal/config"
)

func TestConfigInit(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg = &config.Config{
		Store: config.StoreConfig{Driver: "sqlite", DatabaseURL: "reviewpulse.db"},
		Log:   config.LogConfig{Level: "info", Format: "json"},
	}
	configForce = false

	require.NoError(t, configInitCmd.RunE(configInitCmd, nil))

	data, err := os.ReadFile("config.yaml")
	require.NoError(t, err)
	assert.Contains(t, string(data), "driver: sqlite")

	// Refuses to overwrite unless forced.
	err = configInitCmd.RunE(configInitCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	configForce = true
	defer func() { configForce = false }()
	assert.NoError(t, configInitCmd.RunE(configInitCmd, nil))
}
