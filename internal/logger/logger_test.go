package logger

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func reset() {
	SetVerbose(false)
	SetOutput(os.Stderr)
}

func TestSetVerbose(t *testing.T) {
	defer reset()

	SetVerbose(false)
	assert.False(t, IsVerbose())

	SetVerbose(true)
	assert.True(t, IsVerbose())

	SetVerbose(false)
	assert.False(t, IsVerbose())
}

func TestDebug_WhenVerbose(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(true)

	Debug("rebuilt %d indexes", 3)

	out := buf.String()
	assert.Contains(t, out, "level=DEBUG")
	assert.Contains(t, out, `msg="rebuilt 3 indexes"`)
	assert.NotContains(t, out, "time=")
}

func TestDebug_WhenNotVerbose(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(false)

	Debug("test message")
	Info("test message")
	Section("Load")

	assert.Zero(t, buf.Len())
}

func TestSection(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(true)

	Section("Resolve")

	assert.Contains(t, buf.String(), "=== Resolve ===")
}

func TestWarn_AlwaysWritten(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(false)

	Warn("potential duplicate: %s", "I382000000001")

	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "potential duplicate: I382000000001")
}

func TestSetOutput_OrderIndependent(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetVerbose(true)
	SetOutput(&buf)

	Info("loaded %d locations", 2)

	assert.Contains(t, buf.String(), "loaded 2 locations")
}
