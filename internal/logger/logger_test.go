package logger

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_FormatsCategoryAndMessage(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	l := NewWithWriter(&buf)

	l.Info("checkin", "Checked in successfully.")
	l.LogSecurity("FORBIDDEN", "operator u2 on event e1")

	out := buf.String()
	assert.Contains(t, out, "INFO")
	assert.Contains(t, out, "[CHECKIN   ]")
	assert.Contains(t, out, "Checked in successfully.")
	assert.Contains(t, out, "WARN")
	assert.Contains(t, out, "[FORBIDDEN] operator u2 on event e1")
	assert.Contains(t, out, "logger_test.go")
}

func TestSetLevel_DropsLowerEntries(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	l := NewWithWriter(&buf)
	l.SetLevel(WARN)

	l.Debug("X", "debug line")
	l.Info("X", "info line")
	l.Error("X", "error line")

	out := buf.String()
	assert.NotContains(t, out, "debug line")
	assert.NotContains(t, out, "info line")
	assert.Contains(t, out, "error line")
}

func TestNewLogger_WritesJSONFile(t *testing.T) {
	dir := t.TempDir()
	l := NewLogger(dir, "test")
	l.out = &bytes.Buffer{}
	l.LogTicket("ISSUE", "t-1", "issued")
	l.Close()

	matches, err := filepath.Glob(filepath.Join(dir, "test-*.log"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	f, err := os.Open(matches[0])
	require.NoError(t, err)
	defer f.Close()

	var last LogEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &last))
	}
	assert.Equal(t, "INFO", last.Level)
	assert.Equal(t, "TICKETS", last.Category)
	assert.Equal(t, "[ISSUE] t-1 - issued", last.Message)
}
