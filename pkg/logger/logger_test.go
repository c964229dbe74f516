package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{" WARN ", zapcore.WarnLevel},
		{"", zapcore.InfoLevel},
		{"nonsense", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		l, err := New(tt.in)
		require.NoError(t, err)
		assert.True(t, l.Core().Enabled(tt.want), tt.in)
		if tt.want > zapcore.DebugLevel {
			assert.False(t, l.Core().Enabled(tt.want-1), tt.in)
		}
	}
}

func TestFromContext(t *testing.T) {
	base := zap.NewExample()
	reqLogger := base.With(zap.String("request_id", "abc"))

	assert.Same(t, base, FromContext(context.Background(), base))
	assert.Same(t, reqLogger, FromContext(WithContext(context.Background(), reqLogger), base))
	assert.NotNil(t, FromContext(context.Background(), nil))
}
