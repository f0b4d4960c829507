package quiz

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

const validArray = `[
  {"id":1,"type":"mcq","question":"What is Go?","options":["A language","A bird","A game","A food"],"answer":"A language","explanation":"Go is a programming language."},
  {"id":2,"type":"open","question":"Explain goroutines.","options":[],"answer":"Lightweight threads managed by the runtime."}
]`

func TestParse_ValidJSON(t *testing.T) {
	records, err := Parse(validArray)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Type != "mcq" || records[0].Question != "What is Go?" {
		t.Errorf("unexpected first record: %+v", records[0])
	}
	if string(records[1].Answer) != "Lightweight threads managed by the runtime." {
		t.Errorf("unexpected open answer: %q", records[1].Answer)
	}
}

func TestParse_RepairIsIdempotent(t *testing.T) {
	direct, err := Parse(validArray)
	if err != nil {
		t.Fatalf("direct parse failed: %v", err)
	}

	wrapped := []struct {
		name string
		raw  string
	}{
		{"CodeFence", "```json\n" + validArray + "\n```"},
		{"BareFence", "```\n" + validArray + "\n```"},
		{"Backticks", "`" + validArray + "`"},
		{"TrailingComma", strings.Replace(validArray, "}\n]", "},\n]", 1)},
		{"FenceAndComma", "```json\n" + strings.Replace(validArray, "}\n]", "},\n]", 1) + "\n```"},
		{"SurroundingWhitespace", "\n\n  " + validArray + "  \n"},
	}

	for _, tc := range wrapped {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Parse(tc.raw)
			if err != nil {
				t.Fatalf("Parse(%s) failed: %v", tc.name, err)
			}
			if !reflect.DeepEqual(got, direct) {
				t.Errorf("repaired parse differs from direct parse:\n got %+v\nwant %+v", got, direct)
			}
		})
	}
}

func TestParse_BracketExtraction(t *testing.T) {
	raw := "Sure! Here are your questions:\n" + validArray + "\nLet me know if you need more."
	records, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
}

func TestParse_ObjectWrappedQuestions(t *testing.T) {
	raw := `{"questions": ` + validArray + `}`
	records, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
}

func TestParse_Failure(t *testing.T) {
	t.Run("NoBrackets", func(t *testing.T) {
		raw := "not json at all"
		_, err := Parse(raw)
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		var parseErr *ParseError
		if !errors.As(err, &parseErr) {
			t.Fatalf("expected *ParseError, got %T", err)
		}
		if parseErr.Raw != raw {
			t.Errorf("raw text not preserved: got %q, want %q", parseErr.Raw, raw)
		}
	})

	t.Run("BracketsButGarbage", func(t *testing.T) {
		_, err := Parse("here is [ not actually json ] sorry")
		var parseErr *ParseError
		if !errors.As(err, &parseErr) {
			t.Fatalf("expected *ParseError, got %T (%v)", err, err)
		}
	})

	t.Run("Empty", func(t *testing.T) {
		_, err := Parse("")
		var parseErr *ParseError
		if !errors.As(err, &parseErr) {
			t.Fatalf("expected *ParseError, got %T (%v)", err, err)
		}
	})
}

func TestFlexString(t *testing.T) {
	raw := `[{"id":1,"type":"mcq","question":"Pick a number","options":["1","2"],"answer":2}]`
	records, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if string(records[0].Answer) != "2" {
		t.Errorf("numeric answer not converted: got %q", records[0].Answer)
	}
}

func TestClean_TrailingCommas(t *testing.T) {
	t.Run("Stripped", func(t *testing.T) {
		got := Clean(`{"a": [1, 2, ], "b": {"c": 1, }, }`)
		want := `{"a": [1, 2], "b": {"c": 1}}`
		if got != want {
			t.Errorf("Clean = %q, want %q", got, want)
		}
	})

	t.Run("StringContentsUntouched", func(t *testing.T) {
		in := `{"a": "list: [1, 2, ]", "b": "brace: {x, }"}`
		if got := Clean(in); got != in {
			t.Errorf("Clean altered string contents:\n got %q\nwant %q", got, in)
		}
	})

	t.Run("EscapedQuoteInString", func(t *testing.T) {
		in := `{"a": "quote \" then [1, ]"}`
		if got := Clean(in); got != in {
			t.Errorf("Clean altered string contents:\n got %q\nwant %q", got, in)
		}
	})
}

func TestParse_CommaInsideStringPreserved(t *testing.T) {
	raw := `[{"id":1,"type":"open","question":"Fill in the blank: [1, 2, ]","options":[],"answer":"3"}]`
	records, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if records[0].Question != "Fill in the blank: [1, 2, ]" {
		t.Errorf("question text altered: %q", records[0].Question)
	}
}
