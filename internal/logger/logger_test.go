package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		env       string
		debugging bool
	}{
		{"development", true},
		{"", true},
		{"production", false},
	}
	for _, tc := range tests {
		t.Run(tc.env, func(t *testing.T) {
			log := New(tc.env)
			assert.NotNil(t, log)
			assert.Equal(t, tc.debugging, log.Core().Enabled(zapcore.DebugLevel))
		})
	}
}
