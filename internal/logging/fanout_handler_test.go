package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestNewFanoutHandlerCollapses(t *testing.T) {
	if _, ok := newFanoutHandler(nil, nil).(NoopHandler); !ok {
		t.Fatal("expected NoopHandler when every handler is nil")
	}

	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	if h := newFanoutHandler(nil, inner, nil); h != inner {
		t.Fatal("expected single non-nil handler to be returned unwrapped")
	}
}

func TestFanoutHandlerHandleRespectsLevel(t *testing.T) {
	var infoBuf, debugBuf bytes.Buffer
	infoHandler := slog.NewJSONHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo})
	debugHandler := slog.NewJSONHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug})

	logger := slog.New(newFanoutHandler(infoHandler, debugHandler))
	if !logger.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected fanout enabled for debug when one handler accepts it")
	}

	logger.Debug("probe")
	if infoBuf.Len() != 0 {
		t.Fatalf("info handler should skip debug records, got %q", infoBuf.String())
	}
	if !strings.Contains(debugBuf.String(), "probe") {
		t.Fatalf("debug handler missing record: %q", debugBuf.String())
	}
}

func TestFanoutHandlerWithAttrsReachesEveryHandler(t *testing.T) {
	var first, second bytes.Buffer
	logger := slog.New(newFanoutHandler(
		slog.NewJSONHandler(&first, nil),
		slog.NewJSONHandler(&second, nil),
	)).With("report_id", "abc").WithGroup("scan")

	logger.Info("saved", "fhr", 145)
	for name, buf := range map[string]*bytes.Buffer{"first": &first, "second": &second} {
		out := buf.String()
		if !strings.Contains(out, `"report_id":"abc"`) {
			t.Fatalf("%s handler missing attr: %q", name, out)
		}
		if !strings.Contains(out, `"scan":{"fhr":145}`) {
			t.Fatalf("%s handler missing group: %q", name, out)
		}
	}
}
