package recorder

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"
)

func TestRecorderRotation(t *testing.T) {
	tempDir := t.TempDir()

	r, err := New(tempDir, 2)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 5; i++ {
		if err := r.Start(fmt.Sprintf("run%d", i)); err != nil {
			t.Fatal(err)
		}
		r.Log(EventField, map[string]string{"msg": "hello"})
		time.Sleep(10 * time.Millisecond) // Ensure different mod times
	}
	if err := r.Close(); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 files, got %d", len(entries))
	}
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "trace_run3_") && !strings.HasPrefix(e.Name(), "trace_run4_") {
			t.Errorf("unexpected survivor %s", e.Name())
		}
	}
}

func TestRecorderLogging(t *testing.T) {
	r, err := New(t.TempDir(), 0)
	if err != nil {
		t.Fatal(err)
	}

	if err := r.Start("abc"); err != nil {
		t.Fatal(err)
	}
	path := r.Path()
	if path == "" {
		t.Fatal("expected an open trace")
	}

	r.Log(EventRunStarted, map[string]string{"url": "http://localhost"})
	r.Log(EventRunFinished, map[string]int{"total_filled": 2})
	if err := r.Close(); err != nil {
		t.Fatal(err)
	}
	r.Log(EventField, "after close is dropped")

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var events []Event
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var ev Event
		if err := json.Unmarshal(sc.Bytes(), &ev); err != nil {
			t.Fatalf("bad line %q: %v", sc.Text(), err)
		}
		events = append(events, ev)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Type != EventRunStarted || events[1].Type != EventRunFinished {
		t.Errorf("unexpected event order: %s, %s", events[0].Type, events[1].Type)
	}
	if events[0].RunID != "abc" {
		t.Errorf("expected run id abc, got %q", events[0].RunID)
	}
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	if err := r.Start("x"); err != nil {
		t.Fatal(err)
	}
	r.Log(EventField, nil)
	if r.Path() != "" {
		t.Error("nil recorder has no path")
	}
	if err := r.Close(); err != nil {
		t.Fatal(err)
	}
}
