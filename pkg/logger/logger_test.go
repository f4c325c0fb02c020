package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestLoggerInit(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize text logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}

	if err := Init(WithFormat("json")); err != nil {
		t.Fatalf("failed to initialize json logger: %v", err)
	}
	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}

	if err := Init(WithFormat("xml")); err == nil {
		t.Fatal("expected an error for an unknown format")
	}
}

func TestLoggerJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithWriter(&buf), WithFormat("json")); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	ctx := context.Background()
	Named("controller").With(String("slot", "players")).Info(ctx, "refresh committed",
		Int("players", 3),
		Bool("changed", true),
		Error(errors.New("boom")),
	)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("output is not json: %v: %s", err, buf.String())
	}
	if line["msg"] != "refresh committed" {
		t.Errorf("unexpected msg: %v", line["msg"])
	}
	if line["component"] != "controller" {
		t.Errorf("missing component: %v", line)
	}
	if line["slot"] != "players" {
		t.Errorf("missing bound field: %v", line)
	}
	if line["error"] != "boom" {
		t.Errorf("error should be rendered as its message: %v", line["error"])
	}
	if src, _ := line["source"].(string); !strings.Contains(src, "logger_test.go") {
		t.Errorf("source should point at the caller, got %q", src)
	}
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithWriter(&buf)); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	ctx := context.Background()

	Get().Debug(ctx, "hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug should be filtered at info level: %s", buf.String())
	}

	if err := SetLevelString("DEBUG"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	Get().Debug(ctx, "visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Fatalf("debug should be written after SetLevelString: %s", buf.String())
	}

	if err := SetLevelString("verbose"); err == nil {
		t.Fatal("expected an error for an unknown level")
	}
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Error(context.Background(), "discarded")
	if l.Named("x") == nil {
		t.Fatal("named nop logger is nil")
	}
}
