package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	tests := map[string]struct {
		level, format string
		wantErr       bool
		enabled       zapcore.Level
	}{
		"console debug":  {level: "debug", format: "console", enabled: zapcore.DebugLevel},
		"json warn":      {level: "warn", format: "json", enabled: zapcore.WarnLevel},
		"default format": {level: "info", format: "", enabled: zapcore.InfoLevel},
		"bad level":      {level: "loud", format: "json", wantErr: true},
		"bad format":     {level: "info", format: "xml", wantErr: true},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			l, err := NewLogger(tc.level, tc.format)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, l.Core().Enabled(tc.enabled))
			assert.False(t, l.Core().Enabled(tc.enabled-1))
		})
	}
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
}
