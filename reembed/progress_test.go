package reembed

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProgressTracker_Basic(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, "turns", 100, 10)

	tracker.Start()
	assert.True(t, tracker.started, "should be started")

	tracker.Increment(25)
	tracker.Increment(25)
	tracker.Increment(50)

	elapsed := tracker.Elapsed()
	assert.Greater(t, elapsed, time.Duration(0), "elapsed time should be positive")

	output := buf.String()
	assert.Contains(t, output, "100/100", "should show completion")
	assert.Contains(t, output, "100.0%", "should show 100%")
	assert.Contains(t, output, "turns/s")
}

func TestProgressTracker_Finish(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, "turns", 100, 10)

	tracker.Start()
	tracker.Increment(75)
	tracker.Finish()

	output := buf.String()
	assert.Contains(t, output, "100/100", "finish should set to total")
	assert.True(t, strings.HasSuffix(output, "\n"), "finish should print newline")
}

func TestProgressTracker_IncrementBeyondTotal(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, "turns", 10, 1)

	tracker.Start()
	tracker.Increment(25)

	assert.Equal(t, 10, tracker.current)
	assert.Contains(t, buf.String(), "10/10")
}

func TestProgressTracker_NotStarted(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, "turns", 100, 10)

	tracker.Increment(10)
	tracker.Finish()

	assert.Equal(t, "", buf.String(), "should have no output when not started")
	assert.Equal(t, time.Duration(0), tracker.Elapsed())
	assert.Equal(t, 0.0, tracker.Rate())
}

func TestProgressTracker_ReportInterval(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, "turns", 1000, 100)

	tracker.Start()

	tracker.Increment(50)
	assert.Equal(t, "", buf.String(), "should not print under interval")

	tracker.Increment(50)
	assert.NotEmpty(t, buf.String(), "should print at interval")

	buf.Reset()
	tracker.Increment(99)
	assert.Equal(t, "", buf.String(), "interval counts from the last report")
}

func TestProgressTracker_NilWriter(t *testing.T) {
	tracker := NewProgressTracker(nil, "turns", 5, 0)
	tracker.Start()
	tracker.Increment(5)
	tracker.Finish()
}

func TestProgressTracker_ETA(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, "turns", 10, 100)
	assert.Equal(t, time.Duration(0), tracker.ETA(), "no estimate before start")

	tracker.Start()
	time.Sleep(10 * time.Millisecond)
	tracker.Increment(5)
	assert.GreaterOrEqual(t, tracker.ETA(), time.Duration(0))

	tracker.Finish()
	assert.Equal(t, time.Duration(0), tracker.ETA(), "nothing remains after finish")
	assert.True(t, strings.HasPrefix(buf.String(), "\rturns 10/10"))
}
