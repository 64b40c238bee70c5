package services

import (
	"errors"
	"testing"
)

func TestRepairJSONParsesCleanObject(t *testing.T) {
	out, err := RepairJSON(`{"a": 1}`)
	if err != nil {
		t.Fatalf("repair: %v", err)
	}
	if out["a"].(float64) != 1 {
		t.Fatalf("unexpected value: %v", out["a"])
	}
}

func TestRepairJSONStripsMarkdownFences(t *testing.T) {
	out, err := RepairJSON("```json\n{\"topic\": \"budgeting\"}\n```")
	if err != nil {
		t.Fatalf("repair: %v", err)
	}
	if out["topic"] != "budgeting" {
		t.Fatalf("unexpected value: %v", out["topic"])
	}
}

func TestRepairJSONExtractsEmbeddedObject(t *testing.T) {
	out, err := RepairJSON(`Sure! Here is the plan: {"sections": []} Hope that helps.`)
	if err != nil {
		t.Fatalf("repair: %v", err)
	}
	if _, ok := out["sections"]; !ok {
		t.Fatalf("expected sections key, got %v", out)
	}
}

func TestRepairJSONFailsAfterAllStrategies(t *testing.T) {
	_, err := RepairJSON("not json at all")
	if err == nil {
		t.Fatalf("expected error")
	}
	var parseErr *ModelParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ModelParseError, got %T", err)
	}
}
