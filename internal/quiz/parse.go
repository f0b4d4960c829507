package quiz

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ParseError reports completion text that could not be decoded as a
// question array even after repair. Raw carries the original model output
// for diagnostic display.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return "parse model output: " + e.Err.Error()
	}
	return "parse model output: no JSON payload found"
}

func (e *ParseError) Unwrap() error { return e.Err }

// RawQuestion is one decoded question-like record before validation. The
// upstream model owes us nothing, so every field is optional here.
type RawQuestion struct {
	ID          int        `json:"id"`
	Type        string     `json:"type"`
	Question    string     `json:"question"`
	Options     []string   `json:"options"`
	Answer      FlexString `json:"answer"`
	Explanation string     `json:"explanation"`
}

// FlexString decodes a JSON string, number, or bool into its text form.
// Models occasionally emit {"answer": 3} for option-index answers.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexString(s)
		return nil
	}
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*f = ""
		return nil
	}
	if unquoted, err := strconv.Unquote(trimmed); err == nil {
		*f = FlexString(unquoted)
		return nil
	}
	*f = FlexString(trimmed)
	return nil
}

// Clean strips common non-JSON wrapper artifacts: code fences, stray
// backticks, surrounding whitespace, and trailing commas before a closing
// bracket. Running it on already-valid JSON leaves the decoded result
// unchanged.
func Clean(raw string) string {
	content := strings.TrimSpace(raw)

	if strings.HasPrefix(content, "```") {
		start := 3
		// Skip the language identifier line, e.g. "```json".
		if idx := strings.Index(content[start:], "\n"); idx != -1 {
			start += idx + 1
		}
		if end := strings.Index(content[start:], "```"); end != -1 {
			content = content[start : start+end]
		} else {
			content = content[start:]
		}
	}
	content = strings.Trim(content, "` \t\r\n")

	return stripTrailingCommas(content)
}

// stripTrailingCommas drops commas that sit directly before a closing
// bracket. String literals are skipped, so a ", ]" inside question text
// survives untouched.
func stripTrailingCommas(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))

	inString := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			sb.WriteByte(c)
			if c == '\\' && i+1 < len(s) {
				i++
				sb.WriteByte(s[i])
				continue
			}
			if c == '"' {
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
			sb.WriteByte(c)
		case ',':
			j := i + 1
			for j < len(s) && (s[j] == ' ' || s[j] == '\t' || s[j] == '\r' || s[j] == '\n') {
				j++
			}
			if j < len(s) && (s[j] == ']' || s[j] == '}') {
				// Skip the comma and the whitespace run before the bracket.
				i = j - 1
				continue
			}
			sb.WriteByte(c)
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

// Parse decodes raw completion text into question records using a two-tier
// strategy: clean-then-direct-decode, then bracket-extraction-then-decode.
// It never returns an empty result as if it were valid; failure is a
// *ParseError carrying the raw text.
func Parse(raw string) ([]RawQuestion, error) {
	cleaned := Clean(raw)

	records, err := decodeRecords(cleaned)
	if err == nil {
		return records, nil
	}
	firstErr := err

	// Second tier: slice out the outermost JSON array or object.
	if payload, ok := bracketSlice(cleaned, '[', ']'); ok {
		if records, err := decodeRecords(payload); err == nil {
			return records, nil
		}
	}
	if payload, ok := bracketSlice(cleaned, '{', '}'); ok {
		if records, err := decodeRecords(payload); err == nil {
			return records, nil
		}
	}

	return nil, &ParseError{Raw: raw, Err: firstErr}
}

func decodeRecords(payload string) ([]RawQuestion, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, &ParseError{Raw: payload}
	}

	var records []RawQuestion
	if err := json.Unmarshal([]byte(payload), &records); err == nil {
		return records, nil
	} else if !strings.HasPrefix(payload, "{") {
		return nil, err
	}

	// Some models wrap the array in an object, or return a lone object.
	var wrapper struct {
		Questions []RawQuestion `json:"questions"`
	}
	if err := json.Unmarshal([]byte(payload), &wrapper); err != nil {
		return nil, err
	}
	if len(wrapper.Questions) > 0 {
		return wrapper.Questions, nil
	}

	var single RawQuestion
	if err := json.Unmarshal([]byte(payload), &single); err != nil {
		return nil, err
	}
	if strings.TrimSpace(single.Question) == "" {
		return nil, &ParseError{Raw: payload}
	}
	return []RawQuestion{single}, nil
}

func bracketSlice(s string, open, closing byte) (string, bool) {
	start := strings.IndexByte(s, open)
	end := strings.LastIndexByte(s, closing)
	if start == -1 || end == -1 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}
