package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaultsWithNoFileOrEnv(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoURI)
	assert.Equal(t, "bourse", cfg.MongoDB)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.PersistEnabled)
}

func TestLoadReadsEnvironmentOverride(t *testing.T) {
	t.Setenv("BOURSE_LOG_LEVEL", "debug")
	t.Setenv("BOURSE_MONGO_DB", "bourse_test")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "bourse_test", cfg.MongoDB)
}

func TestLoadIgnoresEmptyEnvironment(t *testing.T) {
	_ = os.Unsetenv("BOURSE_PROMPT")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "> ", cfg.Prompt)
}
