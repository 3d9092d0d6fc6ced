package logging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferLoggerRecordsEachCategory(t *testing.T) {
	b := NewBufferLogger()
	b.Progressf("starting %s", "run")
	b.Warnf("low coverage %.1f%%", 42.0)
	b.Errorf("failed: %v", "boom")

	lines := b.Dump()
	require.Len(t, lines, 3)
	assert.Equal(t, "[progress] starting run", lines[0])
	assert.Equal(t, "[warn] low coverage 42.0%", lines[1])
	assert.Equal(t, "[error] failed: boom", lines[2])
}

func TestBufferLoggerDumpIsACopy(t *testing.T) {
	b := NewBufferLogger()
	b.Progressf("one")
	lines := b.Dump()
	lines[0] = "mutated"
	assert.Equal(t, "[progress] one", b.Dump()[0])
}

func TestNopReporterDiscardsEvents(t *testing.T) {
	var r Reporter = NopReporter{}
	r.Report(Event{Stage: "x", Percent: 50})
}

func TestCollectingReporterRecordsInOrder(t *testing.T) {
	c := NewCollectingReporter()
	c.Report(Event{Stage: "grid", Percent: 50})
	c.Report(Event{Stage: "grid", Percent: 100})

	events := c.Snapshot()
	require.Len(t, events, 2)
	assert.Equal(t, 50.0, events[0].Percent)
	assert.Equal(t, 100.0, events[1].Percent)
}

func TestRateLimitedReporterDropsWithinWindowButAlwaysForwards100(t *testing.T) {
	c := NewCollectingReporter()
	r := NewRateLimitedReporter(c, 1) // min gap 1s

	r.Report(Event{Stage: "viewshed", Percent: 10})
	r.Report(Event{Stage: "viewshed", Percent: 20}) // dropped: inside the 1s window
	r.Report(Event{Stage: "viewshed", Percent: 100}) // always forwarded regardless of window

	require.Eventually(t, func() bool {
		return len(c.Snapshot()) == 2
	}, time.Second, 5*time.Millisecond)

	events := c.Snapshot()
	assert.Equal(t, 10.0, events[0].Percent)
	assert.Equal(t, 100.0, events[1].Percent)
}

func TestRateLimitedReporterDefaultsEventsPerSecond(t *testing.T) {
	r := NewRateLimitedReporter(NopReporter{}, 0)
	assert.Equal(t, time.Second/4, r.minGap)
}
