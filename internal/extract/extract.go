// Package extract recovers a JSON object from a language model's free-text
// completion. Model output routinely wraps the object in prose or markdown
// code fences, and can be cut off mid-object when the token budget runs out;
// both cases are handled here so callers only ever see parsed JSON or a
// typed failure.
package extract

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

// excerptLen bounds how much offending text an Error carries for diagnostics.
const excerptLen = 200

// Error reports that no parseable JSON object could be recovered. Excerpt
// holds the start of the offending text, never more than excerptLen bytes.
type Error struct {
	Reason  string
	Excerpt string
}

func (e *Error) Error() string {
	return fmt.Sprintf("extract: %s (raw: %q)", e.Reason, e.Excerpt)
}

func newError(reason, text string) *Error {
	if len(text) > excerptLen {
		cut := excerptLen
		// Back off to a rune boundary so the excerpt stays valid UTF-8.
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	return &Error{Reason: reason, Excerpt: text}
}

// JSON locates and returns the single JSON object embedded in text. The
// candidate span runs from the first '{' to the last '}' (or to the end of
// the text when no closing brace exists), with code-fence markers stripped.
// If the candidate does not parse directly, a brace-balancing repair is
// attempted: the span is scanned with string- and escape-awareness, and any
// brackets still open at the end are closed in reverse order. Ambiguous
// nesting beyond that heuristic is a failure, not a guess.
func JSON(text string) (string, error) {
	start := strings.Index(text, "{")
	if start == -1 {
		return "", newError("no JSON object in response", text)
	}

	candidate := text[start:]
	if end := strings.LastIndex(candidate, "}"); end != -1 {
		candidate = candidate[:end+1]
	}
	candidate = stripFences(candidate)

	if json.Valid([]byte(candidate)) {
		return candidate, nil
	}

	repaired, ok := balance(candidate)
	if ok && json.Valid([]byte(repaired)) {
		return repaired, nil
	}
	return "", newError("response JSON does not parse even after repair", text)
}

// Decode extracts the JSON object from text and unmarshals it into v.
func Decode(text string, v any) error {
	raw, err := JSON(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return newError(fmt.Sprintf("decode: %v", err), raw)
	}
	return nil
}

func stripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// balance appends the closers for any brackets left open by truncation. A
// truncated string literal is closed first. Mismatched (as opposed to
// unclosed) brackets make the input unrepairable.
func balance(s string) (string, bool) {
	var stack []byte
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			stack = append(stack, '}')
		case c == '[':
			stack = append(stack, ']')
		case c == '}' || c == ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return "", false
			}
			stack = stack[:len(stack)-1]
		}
	}

	var b strings.Builder
	b.WriteString(s)
	if inString {
		b.WriteByte('"')
	}
	// a trailing comma before a closer is invalid JSON; trim it
	out := strings.TrimRight(b.String(), ", \n\t")
	b.Reset()
	b.WriteString(out)
	for i := len(stack) - 1; i >= 0; i-- {
		b.WriteByte(stack[i])
	}
	return b.String(), true
}
