package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	for _, env := range []string{"production", "development", ""} {
		l, err := New(env)
		require.NoError(t, err, env)
		assert.NotNil(t, l)
	}

	prod, _ := New("production")
	assert.False(t, prod.Core().Enabled(zapcore.DebugLevel), "production logger must not emit debug")
	dev, _ := New("development")
	assert.True(t, dev.Core().Enabled(zapcore.DebugLevel))
}
