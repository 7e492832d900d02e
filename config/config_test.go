package config

import (
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsetenv clears keys for the duration of the test. envconfig only applies
// defaults to variables that are not set at all.
func unsetenv(t *testing.T, keys ...string) {
	for _, key := range keys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoadDefaults(t *testing.T) {
	unsetenv(t, "LOG_LEVEL", "LOG_FORMAT", "CALLBACK_TIMEOUT")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, "json", c.LogFormat)
	assert.Equal(t, 10*time.Second, c.CallbackTimeout)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("CALLBACK_TIMEOUT", "3s")
	t.Setenv("AWS_REGION", "eu-west-1")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", c.LogLevel)
	assert.Equal(t, "text", c.LogFormat)
	assert.Equal(t, 3*time.Second, c.CallbackTimeout)
	assert.Equal(t, "eu-west-1", c.Region)
}

func TestLoadRejectsBadTimeout(t *testing.T) {
	t.Setenv("CALLBACK_TIMEOUT", "soon")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("CALLBACK_TIMEOUT", "0s")
	_, err = Load()
	assert.EqualError(t, err, "CALLBACK_TIMEOUT must be positive, got 0s")
}

func TestNewLogger(t *testing.T) {
	for _, tt := range []struct {
		name      string
		level     string
		format    string
		wantLevel logrus.Level
		wantErr   string
	}{
		{name: "json", level: "info", format: "json", wantLevel: logrus.InfoLevel},
		{name: "text debug", level: "debug", format: "text", wantLevel: logrus.DebugLevel},
		{name: "bad level", level: "loud", format: "json", wantErr: `parsing log level: not a valid logrus Level: "loud"`},
		{name: "bad format", level: "info", format: "xml", wantErr: `unknown log format "xml"`},
	} {
		t.Run(tt.name, func(t *testing.T) {
			log, err := NewLogger(tt.level, tt.format)
			if tt.wantErr != "" {
				assert.EqualError(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantLevel, log.Logger.GetLevel())
		})
	}
}
