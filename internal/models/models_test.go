package models

import (
	"encoding/json"
	"testing"
)

func TestJSONBMarshal(t *testing.T) {
	j := JSONB{
		"total_chunks":   12,
		"failed_indices": []int{3, 7},
	}

	data, err := j.Value()
	if err != nil {
		t.Fatalf("failed to marshal JSONB: %v", err)
	}

	if data == nil {
		t.Fatal("expected non-nil data")
	}

	// Verify it's valid JSON
	var result map[string]interface{}
	if err := json.Unmarshal(data.([]byte), &result); err != nil {
		t.Fatalf("failed to unmarshal result: %v", err)
	}

	if result["total_chunks"].(float64) != 12 {
		t.Errorf("expected total_chunks=12, got %v", result["total_chunks"])
	}
}

func TestJSONBScan(t *testing.T) {
	jsonData := []byte(`{"synthesized": 9, "failed": 3}`)

	var j JSONB
	if err := j.Scan(jsonData); err != nil {
		t.Fatalf("failed to scan: %v", err)
	}

	if j["synthesized"].(float64) != 9 {
		t.Errorf("expected synthesized=9, got %v", j["synthesized"])
	}

	if j["failed"].(float64) != 3 {
		t.Errorf("expected failed=3, got %v", j["failed"])
	}
}

func TestJSONBScanNil(t *testing.T) {
	j := JSONB{"stale": true}
	if err := j.Scan(nil); err != nil {
		t.Fatalf("failed to scan nil: %v", err)
	}
	if j != nil {
		t.Errorf("expected nil JSONB after scanning NULL, got %v", j)
	}
}

func TestDocumentStatus(t *testing.T) {
	statuses := []DocumentStatus{
		DocumentStatusQueued,
		DocumentStatusProcessing,
		DocumentStatusCompleted,
		DocumentStatusPartial,
		DocumentStatusFailed,
	}

	for _, status := range statuses {
		if status == "" {
			t.Errorf("empty status found")
		}
	}
}

func TestJobStatus(t *testing.T) {
	statuses := []JobStatus{
		JobStatusQueued,
		JobStatusRunning,
		JobStatusSucceeded,
		JobStatusFailed,
	}

	for _, status := range statuses {
		if status == "" {
			t.Errorf("empty status found")
		}
	}
}

func TestDocumentJSONOmitsSource(t *testing.T) {
	doc := Document{Title: "notes", SourceText: "secret body"}

	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("failed to marshal document: %v", err)
	}

	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("failed to unmarshal document: %v", err)
	}

	if _, ok := out["source_text"]; ok {
		t.Error("source text should not appear in API responses")
	}
	if out["title"] != "notes" {
		t.Errorf("expected title=notes, got %v", out["title"])
	}
}
