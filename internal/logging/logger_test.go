package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: LevelWarn, Output: &buf})

	logger.Debug("should not appear")
	logger.Info("also should not appear")
	logger.Warn("this one shows", "attempt", 3)
	logger.Error("and this one", "code", "timeout")

	out := buf.String()
	assert.NotContains(t, out, "should not appear")
	assert.NotContains(t, out, "also should not appear")
	assert.Contains(t, out, "[WARN]")
	assert.Contains(t, out, "this one shows attempt=3")
	assert.Contains(t, out, "[ERROR]")
	assert.Contains(t, out, "and this one code=timeout")
}

func TestLoggerDefaultConfigLevel(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, LevelInfo, cfg.Level)
}

func TestFormatArgsOddCountDropsTrailing(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: LevelDebug, Output: &buf})
	logger.Info("msg", "onlykey")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(buf.String()), "msg"))
}

func TestSetDefaultAndPackageLevelFuncs(t *testing.T) {
	var buf bytes.Buffer
	SetDefault(NewLogger(&Config{Level: LevelDebug, Output: &buf}))
	Info("hello", "k", "v")
	assert.Contains(t, buf.String(), "hello k=v")
}
