package quiz

import (
	"fmt"
	"strings"
)

const generatorSystem = "You are an assistant that reads a document and generates educational questions. You always respond with strict JSON and nothing else."

// BuildPrompt constructs the question-generation instruction for a document.
// The document text is truncated to budget characters before embedding; the
// cut is a silent prefix cut, not an error.
func BuildPrompt(docText string, n, budget int) string {
	var sb strings.Builder

	sb.WriteString("Read the provided document text delimited by <<DOC>> and <<ENDDOC>>.\n")
	fmt.Fprintf(&sb, "Produce exactly %d questions covering the document's main ideas and details.\n\n", n)
	sb.WriteString("For each question produce either:\n")
	sb.WriteString("- an MCQ with exactly 4 options and the correct option, OR\n")
	sb.WriteString("- an open question where the user must type an answer.\n\n")
	sb.WriteString("Output MUST be strict JSON (no extra commentary) with an array of objects:\n")
	sb.WriteString(`[
  {
    "id": 1,
    "type": "mcq" or "open",
    "question": "question text",
    "options": ["opt1","opt2","opt3","opt4"],
    "answer": "correct option text, verbatim from options",
    "explanation": "brief explanation of the correct answer"
  }
]
`)
	sb.WriteString("\nMake sure the JSON is valid. If a question is \"open\", set \"options\": [] and put a short reference answer in \"answer\".\n")
	sb.WriteString("\nHere is the document:\n<<DOC>>\n")
	sb.WriteString(Truncate(docText, budget))
	sb.WriteString("\n<<ENDDOC>>\n\nOnly produce the JSON array.")

	return sb.String()
}

// Truncate cuts s to at most limit characters (runes, so a multi-byte rune
// is never split).
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
