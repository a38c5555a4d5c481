package engine

import (
	"log/slog"
	"time"

	"github.com/Veraticus/tally/internal/model"
)

// LogProgress reports batch progress through the default logger.
type LogProgress struct{}

// Start implements ProgressReporter.
func (LogProgress) Start(total int) {
	slog.Debug("Classification progress started", "total", total)
}

// Advance implements ProgressReporter.
func (LogProgress) Advance(processed int) {
	slog.Debug("Classification progress", "processed", processed)
}

// Finish implements ProgressReporter.
func (LogProgress) Finish() {}

type nopProgress struct{}

func (nopProgress) Start(int)   {}
func (nopProgress) Advance(int) {}
func (nopProgress) Finish()     {}

// NopMetrics discards all observations.
type NopMetrics struct{}

// ObserveClassification implements MetricsRecorder.
func (NopMetrics) ObserveClassification(model.Result) {}

// ObserveBatch implements MetricsRecorder.
func (NopMetrics) ObserveBatch(time.Duration, int) {}

// ObserveCacheLookup implements MetricsRecorder.
func (NopMetrics) ObserveCacheLookup(bool) {}
