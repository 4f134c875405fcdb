package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/axiomhq/axiom-go/axiom"
	"github.com/axiomhq/axiom-go/axiom/ingest"

	"github.com/local/docconvert/internal/config"
)

func testForwarder(buffer int) *axiomForwarder {
	return &axiomForwarder{events: make(chan axiom.Event, buffer)}
}

func TestForwarderSkipsDebugLines(t *testing.T) {
	fw := testForwarder(4)
	line := []byte(`{"level":"debug","message":"noisy"}`)
	if n, err := fw.Write(line); err != nil || n != len(line) {
		t.Fatalf("write = %d, %v", n, err)
	}
	if len(fw.events) != 0 {
		t.Error("debug line should not be forwarded")
	}
}

func TestForwarderTagsServiceAndTimestamp(t *testing.T) {
	fw := testForwarder(4)
	if _, err := fw.Write([]byte(`{"level":"info","message":"converted"}`)); err != nil {
		t.Fatal(err)
	}
	ev := <-fw.events
	if ev["service"] != "docconvert" {
		t.Errorf("service = %v", ev["service"])
	}
	if _, ok := ev[ingest.TimestampField]; !ok {
		t.Error("timestamp field missing")
	}
}

func TestForwarderWrapsNonJSONLines(t *testing.T) {
	fw := testForwarder(4)
	if _, err := fw.Write([]byte("plain text line")); err != nil {
		t.Fatal(err)
	}
	ev := <-fw.events
	if ev["message"] != "plain text line" || ev["level"] != "info" {
		t.Errorf("event = %v", ev)
	}
}

func TestForwarderDropsWhenBufferFull(t *testing.T) {
	fw := testForwarder(1)
	line := []byte(`{"level":"warn","message":"first"}`)
	if _, err := fw.Write(line); err != nil {
		t.Fatal(err)
	}
	// Must not block with the buffer already full.
	if n, err := fw.Write([]byte(`{"level":"warn","message":"second"}`)); err != nil || n == 0 {
		t.Fatalf("write = %d, %v", n, err)
	}
	if len(fw.events) != 1 {
		t.Errorf("buffered events = %d, want 1", len(fw.events))
	}
}

func TestLocalWritersCreatesLogDir(t *testing.T) {
	dir := t.TempDir()
	lc := config.LoggingConfig{File: filepath.Join(dir, "logs", "app.log")}

	writers, err := localWriters(lc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(writers) != 2 {
		t.Errorf("writers = %d, want file and console", len(writers))
	}
	if _, err := os.Stat(filepath.Join(dir, "logs")); err != nil {
		t.Errorf("log dir not created: %v", err)
	}
}

func TestInitWithoutAxiom(t *testing.T) {
	lc := config.LoggingConfig{
		Level: "info",
		File:  filepath.Join(t.TempDir(), "app.log"),
	}
	if err := Init(lc, config.AxiomConfig{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if forwarder != nil {
		t.Error("no forwarder should start without Axiom config")
	}
}
