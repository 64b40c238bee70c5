package services

import (
	"testing"

	"github.com/yungbote/skillforge-backend/internal/types"
)

func sampleSections() []types.Section {
	return []types.Section{
		{
			Title: "Intro",
			Kind:  "concept",
			Blocks: []types.ContentBlock{
				{Type: types.BlockTypeText, Status: types.BlockStatusOK, Text: "hello"},
			},
		},
		{
			Title: "Practice",
			Kind:  "practice",
			Blocks: []types.ContentBlock{
				{Type: types.BlockTypeImage, Status: types.BlockStatusOK, URL: "https://x/y.png"},
			},
		},
	}
}

func TestContentHashIsIdempotent(t *testing.T) {
	first, err := ContentHash(sampleSections())
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	second, err := ContentHash(sampleSections())
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if first != second {
		t.Fatalf("same tree hashed differently: %s vs %s", first, second)
	}
	if len(first) != 64 {
		t.Fatalf("expected sha256 hex digest, got %q", first)
	}
}

func TestContentHashChangesWithContent(t *testing.T) {
	base, err := ContentHash(sampleSections())
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	changed := sampleSections()
	changed[0].Blocks[0].Text = "hello."
	after, err := ContentHash(changed)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if base == after {
		t.Fatalf("content change must move the digest")
	}
}
