package log

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"go.opencensus.io/trace"

	"github.com/Microsoft/hvctl/internal/logfields"
)

func TestHook_Encode(t *testing.T) {
	now := time.Date(2023, 7, 7, 7, 44, 33, 0, time.UTC)
	e := logrus.NewEntry(logrus.StandardLogger())
	e.Data = logrus.Fields{
		"attrs":    map[string]string{"name": "vs_01"},
		"ids":      []string{"2", "1"},
		"count":    3,
		"when":     now,
		"took":     1500 * time.Millisecond,
		"buf":      bytes.NewBufferString("raw"),
		"nilptr":   (*struct{})(nil),
		"plainstr": "x",
	}

	if err := NewHook().Fire(e); err != nil {
		t.Fatal(err)
	}

	for k, want := range map[string]interface{}{
		"attrs":    `{"name":"vs_01"}`,
		"ids":      `["2","1"]`,
		"count":    3,
		"when":     now.Format(TimeFormat),
		"took":     1.5,
		"buf":      "raw",
		"nilptr":   nullString,
		"plainstr": "x",
	} {
		if got := e.Data[k]; got != want {
			t.Errorf("field %q: got %#v, want %#v", k, got, want)
		}
	}
}

func TestHook_SpanContext(t *testing.T) {
	ctx, span := trace.StartSpan(context.Background(), "test", trace.WithSampler(trace.AlwaysSample()))
	defer span.End()

	e := G(ctx)
	e.Data = logrus.Fields{}
	if err := NewHook().Fire(e); err != nil {
		t.Fatal(err)
	}
	if got, want := e.Data[logfields.TraceID], span.SpanContext().TraceID.String(); got != want {
		t.Errorf("trace id: got %v, want %v", got, want)
	}
	if got, want := e.Data[logfields.SpanID], span.SpanContext().SpanID.String(); got != want {
		t.Errorf("span id: got %v, want %v", got, want)
	}
}

func TestG_CarriesFields(t *testing.T) {
	ctx := UpdateContext(context.Background(), logrus.Fields{logfields.VMName: "vm01"})
	if got := G(ctx).Data[logfields.VMName]; got != "vm01" {
		t.Fatalf("expected vm name to be carried, got %v", got)
	}
	if _, ok := G(context.Background()).Data[logfields.VMName]; ok {
		t.Fatal("fields leaked into the default entry")
	}
}
