package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_BufferIsNotColored(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	assert.False(t, w.useColor)
	assert.False(t, w.Interactive())
}

func TestWriter_StatusVariants(t *testing.T) {
	// Given: a writer with a buffer
	buf := &bytes.Buffer{}
	w := New(buf)

	// When: printing each kind of status
	w.Successf("inserted %d documents", 3)
	w.Warningf("insert into %s was cancelled", "catalog")
	w.Errorf("index %s is locked", "catalog")
	w.Status("", "plain")

	// Then: each line carries its icon
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "✅ inserted 3 documents", lines[0])
	assert.Contains(t, lines[1], "⚠️")
	assert.Equal(t, "❌ index catalog is locked", lines[2])
	assert.Equal(t, "   plain", lines[3])
}

func TestWriter_Hit_SortsFields(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	w.Hit(1, "doc-1", 0.5, map[string]any{"title": "Kettle", "price": 12.5})

	out := buf.String()
	assert.Contains(t, out, "  1. doc-1 (0.5000)")
	assert.Less(t, strings.Index(out, "price"), strings.Index(out, "title"))
	assert.NotContains(t, out, ansiBold)
}

func TestWriter_HitColored(t *testing.T) {
	buf := &bytes.Buffer{}
	w := &Writer{out: buf, useColor: true}

	w.Hit(2, "doc-2", 1, nil)

	assert.Contains(t, buf.String(), ansiBold+"doc-2"+ansiReset)
}

func TestWriter_JSON(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	require.NoError(t, w.JSON(map[string]int{"total": 2}))

	var got map[string]int
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, 2, got["total"])
}

func TestWriter_KeyValue(t *testing.T) {
	buf := &bytes.Buffer{}
	New(buf).KeyValue("commits", 4)

	assert.Equal(t, "  commits:       4\n", buf.String())
}

func TestWriter_Progress(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	w.Progress(0, 0, "ignored")
	assert.Empty(t, buf.String())

	w.Progress(5, 10, "inserting")
	assert.Contains(t, buf.String(), "50% inserting")
	assert.NotContains(t, buf.String(), "\n")

	w.Progress(10, 10, "done")
	assert.True(t, strings.HasSuffix(buf.String(), "100% done\n"))
}

func TestRenderProgressBar(t *testing.T) {
	assert.Equal(t, strings.Repeat("░", 4), renderProgressBar(1, 0, 4))
	assert.Equal(t, "██░░", renderProgressBar(1, 2, 4))
	assert.Equal(t, "████", renderProgressBar(9, 2, 4))
}
