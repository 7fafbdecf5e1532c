package log

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(LevelWarn)
	t.Cleanup(func() { SetLevel(LevelInfo) })

	Info("hidden", "k", 1)
	Warn("shown", "week", "2025-04-14")
	Error("failed", errors.New("boom"), "q", "rue")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[WARN] shown week=2025-04-14")
	assert.Contains(t, out, "[ERROR] failed err=boom q=rue")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelWarn, ParseLevel("warning"))
	assert.Equal(t, LevelError, ParseLevel(" ERROR "))
	assert.Equal(t, LevelInfo, ParseLevel("verbose"))
}

func TestOddKVIgnored(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(LevelDebug)
	t.Cleanup(func() { SetLevel(LevelInfo) })

	Debug("pair", "a", 1, "dangling")
	assert.Contains(t, buf.String(), "pair a=1")
	assert.NotContains(t, buf.String(), "dangling")
}
