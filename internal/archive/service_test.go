package archive

import (
	"strings"
	"testing"
)

func TestRecordVersionAndHistory(t *testing.T) {
	svc := New(t.TempDir())

	first, err := svc.RecordVersion("doc_test1", 1, "draft one", "Avery")
	if err != nil {
		t.Fatalf("record version 1: %v", err)
	}
	if len(first.Hash) != 7 {
		t.Fatalf("expected 7-char short hash, got %q", first.Hash)
	}
	if first.Message != "Version 1" {
		t.Fatalf("unexpected commit message %q", first.Message)
	}
	if first.Author != "Avery" {
		t.Fatalf("unexpected author %q", first.Author)
	}

	if _, err := svc.RecordVersion("doc_test1", 2, "draft two", "Sam"); err != nil {
		t.Fatalf("record version 2: %v", err)
	}

	commits, err := svc.History("doc_test1", 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(commits) != 2 {
		t.Fatalf("expected 2 commits, got %d", len(commits))
	}
	if commits[0].Message != "Version 2" || commits[1].Message != "Version 1" {
		t.Fatalf("history not newest first: %q then %q", commits[0].Message, commits[1].Message)
	}
}

func TestHistoryLimit(t *testing.T) {
	svc := New(t.TempDir())
	for v := 1; v <= 5; v++ {
		if _, err := svc.RecordVersion("doc_limit", v, strings.Repeat("x", v), "Avery"); err != nil {
			t.Fatalf("record version %d: %v", v, err)
		}
	}

	commits, err := svc.History("doc_limit", 2)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(commits) != 2 {
		t.Fatalf("expected 2 commits, got %d", len(commits))
	}
	if commits[0].Message != "Version 5" {
		t.Fatalf("expected Version 5 first, got %q", commits[0].Message)
	}
}

func TestHistoryMissingRepoReturnsEmpty(t *testing.T) {
	svc := New(t.TempDir())
	commits, err := svc.History("doc_never_seen", 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(commits) != 0 {
		t.Fatalf("expected empty history, got %d commits", len(commits))
	}
}

func TestContentAtRoundTrip(t *testing.T) {
	svc := New(t.TempDir())

	v1, err := svc.RecordVersion("doc_content", 1, "original words", "Avery")
	if err != nil {
		t.Fatalf("record version 1: %v", err)
	}
	if _, err := svc.RecordVersion("doc_content", 2, "replaced words", "Avery"); err != nil {
		t.Fatalf("record version 2: %v", err)
	}

	got, err := svc.ContentAt("doc_content", v1.Hash)
	if err != nil {
		t.Fatalf("content at %s: %v", v1.Hash, err)
	}
	if got != "original words" {
		t.Fatalf("expected original content, got %q", got)
	}
}

func TestSanitizeEmail(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"Avery", "Avery"},
		{"Avery Chen", "Avery.Chen"},
		{"sam_t-42", "sam.t.42"},
		{"!!!", "user"},
		{"", "user"},
	}
	for _, tc := range cases {
		if got := sanitizeEmail(tc.input); got != tc.want {
			t.Fatalf("sanitizeEmail(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}
