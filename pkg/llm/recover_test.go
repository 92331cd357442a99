package llm

import (
	"errors"
	"testing"
)

type testSchema struct {
	Summary string   `json:"summary"`
	Tags    []string `json:"tags"`
}

func TestUnmarshalLenientPlainJSON(t *testing.T) {
	var out testSchema
	err := UnmarshalLenient(`{"summary": "s", "tags": ["a", "b"]}`, &out)
	if err != nil {
		t.Fatalf("UnmarshalLenient returned error: %v", err)
	}
	if out.Summary != "s" {
		t.Errorf("summary: got %q, want %q", out.Summary, "s")
	}
	if len(out.Tags) != 2 {
		t.Errorf("tags: got %d, want 2 (string arrays must survive recovery)", len(out.Tags))
	}
}

func TestUnmarshalLenientStripsCodeFence(t *testing.T) {
	var out testSchema
	raw := "```json\n{\"summary\": \"fenced\", \"tags\": []}\n```"
	if err := UnmarshalLenient(raw, &out); err != nil {
		t.Fatalf("UnmarshalLenient returned error: %v", err)
	}
	if out.Summary != "fenced" {
		t.Errorf("summary: got %q, want %q", out.Summary, "fenced")
	}
}

func TestUnmarshalLenientExtractsBraceWindow(t *testing.T) {
	var out testSchema
	raw := `Here is the extraction you asked for:
{"summary": "windowed", "tags": ["x"]}
Let me know if you need anything else!`
	if err := UnmarshalLenient(raw, &out); err != nil {
		t.Fatalf("UnmarshalLenient returned error: %v", err)
	}
	if out.Summary != "windowed" {
		t.Errorf("summary: got %q, want %q", out.Summary, "windowed")
	}
	if len(out.Tags) != 1 || out.Tags[0] != "x" {
		t.Errorf("tags: got %v, want [x]", out.Tags)
	}
}

func TestUnmarshalLenientNormalizesArrayToString(t *testing.T) {
	// Some models return a string field as an array of fragments.
	var out testSchema
	raw := `{"summary": ["part one", "part two"], "tags": []}`
	if err := UnmarshalLenient(raw, &out); err != nil {
		t.Fatalf("UnmarshalLenient returned error: %v", err)
	}
	if out.Summary != "part one, part two" {
		t.Errorf("summary: got %q, want joined fragments", out.Summary)
	}
}

func TestUnmarshalLenientUnrecoverable(t *testing.T) {
	var out testSchema
	err := UnmarshalLenient("I found nothing worth extracting.", &out)
	if err == nil {
		t.Fatalf("expected error for prose output")
	}
	if !errors.Is(err, ErrParse) {
		t.Errorf("expected ErrParse, got %v", err)
	}
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no fence", `{"a": 1}`, `{"a": 1}`},
		{"json fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"bare fence", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"surrounding whitespace", "  ```json\n{\"a\": 1}\n```  ", `{"a": 1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripCodeFence(tt.in); got != tt.want {
				t.Errorf("StripCodeFence(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
