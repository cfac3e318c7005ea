package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelsAndDebugGate(t *testing.T) {
	defer func() {
		_ = Close()
		SetOutput(os.Stderr)
	}()
	require.NoError(t, Init("", false))

	var buf bytes.Buffer
	SetOutput(&buf)

	Infof("index", "committed %d documents", 3)
	Debugf("index", "hidden")
	assert.Contains(t, buf.String(), "[INFO] index: committed 3 documents")
	assert.NotContains(t, buf.String(), "hidden")

	require.NoError(t, Init("", true))
	SetOutput(&buf)
	Debugf("", "visible")
	Request("out", "openai", "/embeddings", map[string]int{"n": 1})
	assert.Contains(t, buf.String(), "[DEBUG] visible")
	assert.Contains(t, buf.String(), `service=openai endpoint=/embeddings payload={"n":1}`)
}

func TestInitWritesLogFile(t *testing.T) {
	defer func() {
		_ = Close()
		SetOutput(os.Stderr)
	}()
	path := filepath.Join(t.TempDir(), "logs", "plantprofit.log")
	require.NoError(t, Init(path, false))
	Warnf("server", "falling back")
	require.NoError(t, Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[WARN] server: falling back")
}

func TestFormatPayload(t *testing.T) {
	assert.Equal(t, "null", formatPayload(nil))
	assert.Equal(t, `""`, formatPayload("  "))
	assert.Equal(t, "[]", formatPayload([]byte{}))
	assert.Equal(t, `{"a":1}`, formatPayload(map[string]int{"a": 1}))
}
