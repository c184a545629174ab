package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:6978", cfg.Classifier.Addr)
	assert.Equal(t, "tcp", cfg.Classifier.Transport)
	assert.Equal(t, 100, cfg.Classifier.CacheSize)
	assert.Equal(t, 2*time.Second, cfg.Classifier.QueryTimeout)
	assert.False(t, cfg.Classifier.CacheFailureVerdicts)
	assert.Equal(t, "chat.log", cfg.ChatLogPath)
	assert.Equal(t, []string{"buy gold", "cheap gold", "free membership"}, cfg.Stub.StopPhrases)
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("CLASSIFIER_ADDR", "10.0.0.5:7000")
	t.Setenv("CLASSIFIER_QUERY_TIMEOUT", "750ms")
	t.Setenv("CACHE_SIZE", "5")
	t.Setenv("CACHE_FAILURE_VERDICTS", "true")
	t.Setenv("STUB_STOP_PHRASES", "gold;  ;bond")

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.5:7000", cfg.Classifier.Addr)
	assert.Equal(t, 750*time.Millisecond, cfg.Classifier.QueryTimeout)
	assert.Equal(t, 5, cfg.Classifier.CacheSize)
	assert.True(t, cfg.Classifier.CacheFailureVerdicts)
	assert.Equal(t, []string{"gold", "bond"}, cfg.Stub.StopPhrases)
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("CHAT_LOG_PATH", "env.log")

	cfg, err := Load([]string{"-chat-log-path", "flag.log", "-classifier-transport", "ws", "-cache-size", "7"})
	require.NoError(t, err)

	assert.Equal(t, "flag.log", cfg.ChatLogPath)
	assert.Equal(t, "ws", cfg.Classifier.Transport)
	assert.Equal(t, 7, cfg.Classifier.CacheSize)
}

func TestLoad_RejectsInvalid(t *testing.T) {
	_, err := Load([]string{"-cache-size", "0"})
	assert.Error(t, err)

	_, err = Load([]string{"-chat-log-path", " "})
	assert.Error(t, err)

	t.Setenv("CACHE_SIZE", "many")
	_, err = Load(nil)
	assert.Error(t, err)
}

func TestParseListFlag(t *testing.T) {
	assert.Equal(t, []string{"x"}, parseListFlag("", []string{"x"}))
	assert.Equal(t, []string{"x"}, parseListFlag(" ; ", []string{"x"}))
	assert.Equal(t, []string{"a", "b"}, parseListFlag("a; b;", nil))
}
