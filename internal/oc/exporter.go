package oc

import (
	"github.com/sirupsen/logrus"
	"go.opencensus.io/trace"

	"github.com/Microsoft/hvctl/internal/log"
	"github.com/Microsoft/hvctl/internal/logfields"
)

const spanMessage = "Span"

// LogrusExporter writes finished spans to a logrus logger: at Debug level,
// or at Error level with the status message as the error when the span
// failed.
type LogrusExporter struct {
	// Logger defaults to the standard logger.
	Logger *logrus.Logger
}

var _ trace.Exporter = &LogrusExporter{}

func (le *LogrusExporter) ExportSpan(s *trace.SpanData) {
	l := le.Logger
	if l == nil {
		l = logrus.StandardLogger()
	}

	data := make(logrus.Fields, len(s.Attributes)+8)
	for k, v := range s.Attributes {
		data[k] = v
	}
	data[logfields.Name] = s.Name
	data[logfields.TraceID] = s.TraceID.String()
	data[logfields.SpanID] = s.SpanID.String()
	data[logfields.ParentSpanID] = s.ParentSpanID.String()
	data[logfields.StartTime] = log.FormatTime(s.StartTime)
	data[logfields.EndTime] = log.FormatTime(s.EndTime)
	data[logfields.Duration] = s.EndTime.Sub(s.StartTime).String()

	level := logrus.DebugLevel
	if s.Status.Code != trace.StatusCodeOK {
		level = logrus.ErrorLevel
		data[logrus.ErrorKey] = s.Status.Message
		data[logrus.ErrorKey+"Code"] = s.Status.Code
	}

	entry := logrus.NewEntry(l).WithFields(data)
	entry.Time = s.StartTime
	entry.Log(level, spanMessage)
}

// Register installs a LogrusExporter for l and samples every span.
func Register(l *logrus.Logger) {
	trace.ApplyConfig(trace.Config{DefaultSampler: DefaultSampler})
	trace.RegisterExporter(&LogrusExporter{Logger: l})
}
