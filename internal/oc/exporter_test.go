package oc

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"go.opencensus.io/trace"

	"github.com/Microsoft/hvctl/internal/logfields"
)

func TestExportSpan(t *testing.T) {
	start := time.Date(2023, 6, 13, 15, 28, 0, 0, time.UTC)
	for _, tc := range []struct {
		name   string
		status trace.Status
		level  logrus.Level
	}{
		{"ok", trace.Status{}, logrus.DebugLevel},
		{"failed", trace.Status{Code: trace.StatusCodeNotFound, Message: "vswitch not found"}, logrus.ErrorLevel},
	} {
		t.Run(tc.name, func(t *testing.T) {
			l, hook := test.NewNullLogger()
			l.SetLevel(logrus.TraceLevel)

			e := &LogrusExporter{Logger: l}
			e.ExportSpan(&trace.SpanData{
				Name:       "remote::PowerShell",
				StartTime:  start,
				EndTime:    start.Add(2 * time.Second),
				Status:     tc.status,
				Attributes: map[string]interface{}{logfields.Command: "Get-VM"},
			})

			entry := hook.LastEntry()
			if entry == nil {
				t.Fatal("no span logged")
			}
			if entry.Level != tc.level {
				t.Errorf("level %s, want %s", entry.Level, tc.level)
			}
			if entry.Data[logfields.Command] != "Get-VM" || entry.Data[logfields.Duration] != "2s" {
				t.Errorf("unexpected fields %v", entry.Data)
			}
			if tc.status.Code != 0 && entry.Data[logrus.ErrorKey] != tc.status.Message {
				t.Errorf("error %v, want %q", entry.Data[logrus.ErrorKey], tc.status.Message)
			}
			if !entry.Time.Equal(start) {
				t.Errorf("time %v, want %v", entry.Time, start)
			}
		})
	}
}
