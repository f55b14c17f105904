package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	cases := []struct {
		level, env string
		enabled    zapcore.Level
		disabled   zapcore.Level
	}{
		{"info", "production", zapcore.InfoLevel, zapcore.DebugLevel},
		{"debug", "development", zapcore.DebugLevel, zapcore.DebugLevel - 1},
		{"warn", "development", zapcore.WarnLevel, zapcore.InfoLevel},
	}
	for _, tc := range cases {
		t.Run(tc.level+"/"+tc.env, func(t *testing.T) {
			l, err := New(tc.level, tc.env)
			require.NoError(t, err)
			assert.True(t, l.Core().Enabled(tc.enabled))
			assert.False(t, l.Core().Enabled(tc.disabled))
		})
	}
}

func TestNew_BadLevel(t *testing.T) {
	_, err := New("loud", "production")
	assert.Error(t, err)
}
