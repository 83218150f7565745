package ai

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"no fences", `{"a":1}`, `{"a":1}`},
		{"plain fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"uppercase tag", "```JSON\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding whitespace", "  \n```json\n[1,2]\n```  \n", `[1,2]`},
		{"unclosed fence", "```json\n[1,2", `[1,2`},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StripFences(tt.raw)
			if got != tt.want {
				t.Errorf("StripFences() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractValue(t *testing.T) {
	t.Run("clean object", func(t *testing.T) {
		v, err := ExtractValue(`{"status":"correct"}`)
		if err != nil {
			t.Fatalf("ExtractValue: %v", err)
		}
		if string(v) != `{"status":"correct"}` {
			t.Errorf("got %s", v)
		}
	})

	t.Run("fenced object", func(t *testing.T) {
		v, err := ExtractValue("```json\n{\"status\":\"correct\"}\n```")
		if err != nil {
			t.Fatalf("ExtractValue: %v", err)
		}
		if string(v) != `{"status":"correct"}` {
			t.Errorf("got %s", v)
		}
	})

	t.Run("prose fails with ParseError", func(t *testing.T) {
		_, err := ExtractValue("I could not produce JSON, sorry.")
		var perr *ParseError
		if !errors.As(err, &perr) {
			t.Fatalf("want *ParseError, got %v", err)
		}
	})
}

const truncatedQuestions = `[
{"order": 1, "text": "What is a slice?", "difficulty": "easy", "xpBonus": 5},
{"order": 2, "text": "Explain channels.", "difficulty": "medium", "xpBonus": 10},
{"order": 3, "text": "Describe the sched`

func TestExtractArray(t *testing.T) {
	t.Run("clean array", func(t *testing.T) {
		items, recovered, err := ExtractArray(`[{"order":1,"text":"q","difficulty":"easy","xpBonus":5}]`, questionObjectRegex)
		if err != nil {
			t.Fatalf("ExtractArray: %v", err)
		}
		if recovered {
			t.Error("clean parse should not report recovered")
		}
		if len(items) != 1 {
			t.Fatalf("expected 1 item, got %d", len(items))
		}
	})

	t.Run("fenced array", func(t *testing.T) {
		items, recovered, err := ExtractArray("```json\n[{\"order\":1,\"text\":\"q\",\"difficulty\":\"easy\",\"xpBonus\":5}]\n```", questionObjectRegex)
		if err != nil {
			t.Fatalf("ExtractArray: %v", err)
		}
		if recovered || len(items) != 1 {
			t.Errorf("recovered=%v items=%d", recovered, len(items))
		}
	})

	t.Run("truncated array salvages complete objects", func(t *testing.T) {
		items, recovered, err := ExtractArray(truncatedQuestions, questionObjectRegex)
		if err != nil {
			t.Fatalf("ExtractArray: %v", err)
		}
		if !recovered {
			t.Error("pattern scan should report recovered")
		}
		if len(items) != 2 {
			t.Fatalf("expected 2 salvaged items, got %d", len(items))
		}
		var first map[string]any
		if err := json.Unmarshal(items[0], &first); err != nil {
			t.Fatalf("salvaged item is not valid JSON: %v", err)
		}
		if first["text"] != "What is a slice?" {
			t.Errorf("first text = %v", first["text"])
		}
	})

	t.Run("nothing salvageable fails with ParseError", func(t *testing.T) {
		_, _, err := ExtractArray("no json here at all", questionObjectRegex)
		var perr *ParseError
		if !errors.As(err, &perr) {
			t.Fatalf("want *ParseError, got %v", err)
		}
	})
}
