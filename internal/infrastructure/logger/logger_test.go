package logger

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observed() (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return &Logger{SugaredLogger: zap.New(core).Sugar()}, logs
}

func TestLogHTTPRequestLevels(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		err     error
		level   zapcore.Level
		message string
	}{
		{"ok", 200, nil, zapcore.InfoLevel, "HTTP request"},
		{"client error", 404, nil, zapcore.InfoLevel, "HTTP request"},
		{"server error", 503, nil, zapcore.ErrorLevel, "HTTP request"},
		{"handler error", 500, errors.New("boom"), zapcore.ErrorLevel, "HTTP request failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, logs := observed()
			log.WithFields("remote_ip", "10.0.0.1").LogHTTPRequest("GET", "/api/v1/boards", "req-1", tt.status, 1.5, tt.err)

			entries := logs.AllUntimed()
			if len(entries) != 1 {
				t.Fatalf("got %d entries", len(entries))
			}
			e := entries[0]
			if e.Level != tt.level || e.Message != tt.message {
				t.Errorf("got %s %q, want %s %q", e.Level, e.Message, tt.level, tt.message)
			}
			fields := e.ContextMap()
			if fields["request_id"] != "req-1" || fields["remote_ip"] != "10.0.0.1" {
				t.Errorf("fields %v", fields)
			}
		})
	}
}

func TestScopedFields(t *testing.T) {
	log, logs := observed()
	log.WithComponent("tasks").
		WithRequestID("req-2").
		WithUserID("u-1").
		WithError(errors.New("denied")).
		Debugw("Delete task rejected", "task_id", 7)

	got := logs.AllUntimed()[0].ContextMap()
	for k, want := range map[string]interface{}{
		"component":  "tasks",
		"request_id": "req-2",
		"user_id":    "u-1",
		"error":      "denied",
		"task_id":    int64(7),
	} {
		if got[k] != want {
			t.Errorf("%s = %v (%T), want %v", k, got[k], got[k], want)
		}
	}
}
