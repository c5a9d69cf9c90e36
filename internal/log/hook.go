package log

import (
	"bytes"
	"reflect"
	"time"

	"github.com/sirupsen/logrus"
	"go.opencensus.io/trace"

	"github.com/Microsoft/hvctl/internal/logfields"
)

const nullString = "null"

// Hook formats the fields of a [logrus.Entry] before it is written.
//
// Command output and parsed attribute blocks are attached to entries as maps
// and slices; the hook turns them into single-line JSON so text and JSON
// formatters print them the same way.
type Hook struct {
	// EncodeAsJSON formats structs, maps, arrays and slices as JSON.
	//
	// Default is true.
	EncodeAsJSON bool

	// TimeFormat specifies the format for [time.Time] fields.
	// An empty string disables formatting.
	TimeFormat string

	// DurationFormat converts [time.Duration] fields.
	//
	// Default is [DurationFormatSeconds].
	DurationFormat DurationFormat

	// AddSpanContext adds [logfields.TraceID] and [logfields.SpanID] from the
	// span in [logrus.Entry.Context], if there is one.
	AddSpanContext bool
}

var _ logrus.Hook = &Hook{}

func NewHook() *Hook {
	return &Hook{
		EncodeAsJSON:   true,
		TimeFormat:     TimeFormat,
		DurationFormat: DurationFormatSeconds,
		AddSpanContext: true,
	}
}

func (h *Hook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *Hook) Fire(e *logrus.Entry) error {
	h.encode(e)
	if h.AddSpanContext {
		h.addSpanContext(e)
	}
	return nil
}

func (h *Hook) encode(e *logrus.Entry) {
	d := e.Data
	formatTime := h.TimeFormat != ""
	if !(h.EncodeAsJSON || formatTime) {
		return
	}

	for k, v := range d {
		if _, ok := v.(error); k == logrus.ErrorKey || ok {
			continue
		}

		switch vv := v.(type) {
		case time.Time:
			if formatTime {
				d[k] = vv.Format(h.TimeFormat)
			}
			continue
		case time.Duration:
			if h.DurationFormat != nil {
				if i := h.DurationFormat(vv); i != nil {
					d[k] = i
				}
			}
			continue
		case bool, string, uintptr,
			int8, int16, int32, int64, int,
			uint8, uint16, uint32, uint64, uint,
			float32, float64:
			continue
		case *bytes.Buffer:
			d[k] = vv.String()
			continue
		}

		if !h.EncodeAsJSON {
			continue
		}

		rv := reflect.Indirect(reflect.ValueOf(v))
		if !rv.IsValid() {
			d[k] = nullString
			continue
		}
		switch rv.Kind() {
		case reflect.Map, reflect.Struct, reflect.Array, reflect.Slice:
		default:
			continue
		}

		b, err := encode(v)
		if err != nil {
			d[k+"-"+logrus.ErrorKey] = err.Error()
		}
		d[k] = string(b)
	}
}

func (h *Hook) addSpanContext(e *logrus.Entry) {
	ctx := e.Context
	if ctx == nil {
		return
	}
	span := trace.FromContext(ctx)
	if span == nil {
		return
	}
	sctx := span.SpanContext()
	e.Data[logfields.TraceID] = sctx.TraceID.String()
	e.Data[logfields.SpanID] = sctx.SpanID.String()
}

// DurationFormat converts a duration into a loggable value. Returning nil
// leaves the field unchanged.
type DurationFormat func(time.Duration) interface{}

// DurationFormatSeconds logs durations as fractional seconds.
func DurationFormatSeconds(d time.Duration) interface{} {
	return d.Seconds()
}

// DurationFormatString logs durations with [time.Duration.String].
func DurationFormatString(d time.Duration) interface{} {
	return d.String()
}
