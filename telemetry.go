package kai

import (
	"net/http"
	"time"
)

// TelemetryHooks expose observability callbacks without forcing a logging
// dependency on SDK consumers. All hooks are optional.
type TelemetryHooks struct {
	// OnHTTPRequest fires before an HTTP request is sent.
	OnHTTPRequest func(req *http.Request)
	// OnHTTPResponse fires after a request completes (even when err != nil).
	OnHTTPResponse func(req *http.Request, resp *http.Response, err error, latency time.Duration)
	// OnStreamEvent fires for every domain event yielded by a MessageStream.
	OnStreamEvent func(event Event)
	// OnLogEntry allows callers to capture SDK log events.
	OnLogEntry func(entry LogEntry)
	// OnMetric records lightweight counters for observability dashboards.
	OnMetric func(metric Metric)
}

// LogLevel encodes the severity for log hooks.
type LogLevel string

const (
	LogLevelInfo  LogLevel = "info"
	LogLevelError LogLevel = "error"
)

// LogEntry captures structured log details for SDK consumers.
type LogEntry struct {
	Level   LogLevel
	Message string
	Fields  map[string]any
}

// Metric represents a single observability datapoint.
type Metric struct {
	Name   string
	Value  float64
	Labels map[string]string
}

func (t TelemetryHooks) log(level LogLevel, msg string, fields map[string]any) {
	if t.OnLogEntry == nil {
		return
	}
	t.OnLogEntry(LogEntry{Level: level, Message: msg, Fields: fields})
}

func (t TelemetryHooks) metric(name string, value float64, labels map[string]string) {
	if t.OnMetric == nil {
		return
	}
	t.OnMetric(Metric{Name: name, Value: value, Labels: labels})
}
