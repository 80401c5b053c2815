package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lj "gopkg.in/natefinch/lumberjack.v2"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":        slog.LevelInfo,
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNew_ColorText(t *testing.T) {
	var buf bytes.Buffer
	l, c, err := New(Config{Level: "debug", Stderr: &buf})
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	l.Debug("cache refreshed", "projects", 2)
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "\033[36mDEBUG\033[0m "), out)
	assert.Contains(t, out, `msg="cache refreshed"`)
	assert.NotContains(t, out, "level=")
	assert.Contains(t, out, "projects=2")
	assert.NotContains(t, out, "time=")
}

func TestNew_ColorTextKeepsColorWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	l, _, err := New(Config{Stderr: &buf, ShowTime: true})
	require.NoError(t, err)

	l.With("account", "u").Warn("fetch failed")
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "\033[33mWARN\033[0m "), out)
	assert.Contains(t, out, `msg="fetch failed"`)
	assert.Contains(t, out, "account=u")
	assert.Contains(t, out, "time=")
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l, _, err := New(Config{Level: "warn", Stderr: &buf})
	require.NoError(t, err)
	l.Info("hidden")
	assert.Empty(t, buf.String())
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	l, _, err := New(Config{Format: "json", Stderr: &buf})
	require.NoError(t, err)
	l.Info("hello", "k", "v")

	var m map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	assert.Equal(t, "hello", m["msg"])
	assert.Equal(t, "v", m["k"])
}

func TestNew_RejectsUnknownFormat(t *testing.T) {
	_, _, err := New(Config{Format: "xml"})
	assert.Error(t, err)
}

func TestNew_FileCopyIsPlain(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "folio.log")
	var buf bytes.Buffer
	l, c, err := New(Config{File: path, Stderr: &buf})
	require.NoError(t, err)

	l.Info("server started", "listen", "127.0.0.1:5005")
	require.NoError(t, c.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "msg=\"server started\"")
	assert.False(t, strings.Contains(string(b), "\033["), "file output must not carry ANSI codes")
	assert.Contains(t, buf.String(), "server started")
}

func TestFileWriter_Defaults(t *testing.T) {
	assert.Nil(t, Config{}.FileWriter())

	w := Config{File: "x.log"}.FileWriter()
	l, ok := w.(*lj.Logger)
	require.True(t, ok)
	assert.Equal(t, DefaultMaxSizeMB, l.MaxSize)
	assert.Equal(t, DefaultMaxBackups, l.MaxBackups)
	assert.Equal(t, DefaultMaxAgeDays, l.MaxAge)
	assert.False(t, l.Compress)
}

func TestFileWriter_Overrides(t *testing.T) {
	w := Config{File: "x.log", MaxSizeMB: 1, MaxBackups: 9, MaxAgeDays: 11, Compress: true}.FileWriter()
	l := w.(*lj.Logger)
	assert.Equal(t, 1, l.MaxSize)
	assert.Equal(t, 9, l.MaxBackups)
	assert.Equal(t, 11, l.MaxAge)
	assert.True(t, l.Compress)
}
