package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestLevelGating(t *testing.T) {
	logger := newLogger("test.levelgating", zapcore.InfoLevel)
	var buf bytes.Buffer
	logger.SetOutput(&buf)

	assert.True(t, logger.Enabled(zapcore.InfoLevel))
	assert.False(t, logger.Enabled(zapcore.DebugLevel))

	logger.Debugf("op", "should not appear")
	assert.Empty(t, buf.Bytes())

	logger.Infof("op", "should appear")
	assert.NotEmpty(t, buf.Bytes())
}

func TestSetLevelsDefaultAndOverride(t *testing.T) {
	mu.Lock()
	loggers = map[string]*Logger{}
	defaultLevel = zapcore.InfoLevel
	mu.Unlock()

	a := Get("test.a")
	b := Get("test.b")
	var bufA, bufB bytes.Buffer
	a.SetOutput(&bufA)
	b.SetOutput(&bufB)

	SetLevels("test.a:error;.:debug")

	assert.True(t, a.Enabled(zapcore.ErrorLevel))
	assert.False(t, a.Enabled(zapcore.WarnLevel))
	assert.True(t, b.Enabled(zapcore.DebugLevel))
}

func TestGetCaches(t *testing.T) {
	l1 := Get("test.cache")
	l2 := Get("test.cache")
	assert.Same(t, l1, l2)
}
