// Package logging provides a pluggable log sink threaded through a
// pipeline run, plus a non-blocking progress Reporter.
package logging

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Logger is the pipeline-wide logging sink, with a category per
// severity: Progressf for stage narration, Warnf/Errorf for problems.
type Logger interface {
	Progressf(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// SlogLogger adapts a *slog.Logger to the Logger interface, the logging
// backend the rest of the ambient stack (config loading, CLI) also uses.
type SlogLogger struct {
	L *slog.Logger
}

func NewSlogLogger(l *slog.Logger) *SlogLogger {
	if l == nil {
		l = slog.Default()
	}
	return &SlogLogger{L: l}
}

func (s *SlogLogger) Progressf(format string, args ...interface{}) {
	s.L.Info(fmt.Sprintf(format, args...))
}

func (s *SlogLogger) Warnf(format string, args ...interface{}) {
	s.L.Warn(fmt.Sprintf(format, args...))
}

func (s *SlogLogger) Errorf(format string, args ...interface{}) {
	s.L.Error(fmt.Sprintf(format, args...))
}

// BufferLogger accumulates log lines in memory, useful for tests.
type BufferLogger struct {
	mu    sync.Mutex
	Lines []string
}

func NewBufferLogger() *BufferLogger { return &BufferLogger{} }

func (b *BufferLogger) append(category, format string, args ...interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Lines = append(b.Lines, fmt.Sprintf("[%s] %s", category, fmt.Sprintf(format, args...)))
}

func (b *BufferLogger) Progressf(format string, args ...interface{}) { b.append("progress", format, args...) }
func (b *BufferLogger) Warnf(format string, args ...interface{})     { b.append("warn", format, args...) }
func (b *BufferLogger) Errorf(format string, args ...interface{})    { b.append("error", format, args...) }

func (b *BufferLogger) Dump() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.Lines))
	copy(out, b.Lines)
	return out
}

// Event is a single stage-boundary progress notification: a
// (stage_name, percent) pair emitted to an injectable sink.
type Event struct {
	Stage   string
	Percent float64
}

// Reporter is the injectable, fire-and-forget progress sink. A slow
// Reporter must never block the pipeline; implementations that talk to
// slow transports should drop events rather than block.
type Reporter interface {
	Report(Event)
}

// NopReporter discards every event.
type NopReporter struct{}

func (NopReporter) Report(Event) {}

// CollectingReporter records every event it receives, for tests.
type CollectingReporter struct {
	mu     sync.Mutex
	Events []Event
}

func NewCollectingReporter() *CollectingReporter { return &CollectingReporter{} }

func (c *CollectingReporter) Report(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Events = append(c.Events, e)
}

func (c *CollectingReporter) Snapshot() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.Events))
	copy(out, c.Events)
	return out
}

// RateLimitedReporter forwards to an underlying Reporter at most a few
// times per second, bounding the emit rate to avoid overwhelming slow
// transports, and never blocks the caller.
type RateLimitedReporter struct {
	underlying Reporter
	minGap     time.Duration

	mu   sync.Mutex
	last time.Time
}

func NewRateLimitedReporter(underlying Reporter, eventsPerSecond int) *RateLimitedReporter {
	if eventsPerSecond <= 0 {
		eventsPerSecond = 4
	}
	return &RateLimitedReporter{
		underlying: underlying,
		minGap:     time.Second / time.Duration(eventsPerSecond),
	}
}

func (r *RateLimitedReporter) Report(e Event) {
	r.mu.Lock()
	now := time.Now()
	drop := now.Sub(r.last) < r.minGap && e.Percent < 100
	if !drop {
		r.last = now
	}
	r.mu.Unlock()

	if drop {
		return
	}

	// Fire-and-forget: never let a slow sink stall the pipeline.
	go r.underlying.Report(e)
}
