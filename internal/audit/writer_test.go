package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWriterAppendsJSONLines(t *testing.T) {
	workspace := t.TempDir()
	writer := NewWriter(workspace)

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	events := []Event{
		{Time: now, Type: "decision", CallID: "call-1", Tool: "bash", Approver: "allow_list", Decision: "escalate", Result: "not listed"},
		{Time: now.Add(time.Second), Type: "decision", CallID: "call-1", Tool: "bash", Approver: "human_review", Decision: "approve"},
	}
	for _, event := range events {
		if err := writer.Append(event); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	file, err := os.Open(filepath.Join(workspace, "state", "audit.jsonl"))
	if err != nil {
		t.Fatalf("open audit file: %v", err)
	}
	defer file.Close()

	var got []Event
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var event Event
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			t.Fatalf("line is not valid json: %v", err)
		}
		got = append(got, event)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(got))
	}
	if got[0].Approver != "allow_list" || got[1].Approver != "human_review" {
		t.Fatalf("events out of order: %+v", got)
	}
	if got[1].Result != "" {
		t.Fatalf("empty result should round trip empty: %+v", got[1])
	}
}

func TestWriterOmitsEmptyOptionalFields(t *testing.T) {
	workspace := t.TempDir()
	writer := NewWriter(workspace)

	if err := writer.Append(Event{Time: time.Now().UTC(), Type: "decision"}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(workspace, "state", "audit.jsonl"))
	if err != nil {
		t.Fatalf("read audit file: %v", err)
	}

	var line map[string]any
	if err := json.Unmarshal(raw, &line); err != nil {
		t.Fatalf("parse line: %v", err)
	}
	for _, key := range []string{"call_id", "tool", "approver", "decision", "result"} {
		if _, ok := line[key]; ok {
			t.Fatalf("empty %s must be omitted: %v", key, line)
		}
	}
}
