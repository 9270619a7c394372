package log

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelsAndFields(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(LevelInfo)
	t.Cleanup(func() { SetLevel(LevelInfo) })

	Debug("hidden", "k", "v")
	assert.Empty(t, buf.String())

	Info("store loaded", "members", 12, "dangling")
	out := buf.String()
	assert.Contains(t, out, "store loaded")
	assert.Contains(t, out, "members=12")
	assert.NotContains(t, out, "dangling")

	buf.Reset()
	Error("insert failed", errors.New("boom"), "table", "songs")
	out = buf.String()
	assert.Contains(t, out, "level=error")
	assert.Contains(t, out, "error=boom")
	assert.Contains(t, out, "table=songs")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelWarn, ParseLevel(" warning "))
	assert.Equal(t, LevelError, ParseLevel("ERROR"))
	assert.Equal(t, LevelInfo, ParseLevel("nonsense"))
}
