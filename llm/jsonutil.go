package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// trailingCommaPattern matches trailing commas before ] or }.
var trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)

// extractStrategy attempts to recover a JSON object from model output.
type extractStrategy func(text string) (map[string]any, bool)

// extractStrategies run in order; the first success wins.
var extractStrategies = []extractStrategy{
	parseWhole,
	parseFirstObject,
	parseFencedBlock,
	parseFirstArray,
}

// ExtractObject recovers one JSON object from free-form model output. It
// tolerates surrounding prose, markdown fences and stray non-ASCII bytes and
// never fails: when nothing can be recovered it returns an empty, non-nil map.
// A bare list of objects is returned as {"daily_actions": list}.
func ExtractObject(content string) map[string]any {
	text := strings.TrimSpace(content)
	if text == "" {
		return map[string]any{}
	}
	for _, strategy := range extractStrategies {
		if obj, ok := strategy(text); ok {
			return obj
		}
	}
	return map[string]any{}
}

// DecodeInto converts an extracted object into a typed value.
func DecodeInto(obj map[string]any, dst any) error {
	data, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("re-encode extracted object: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode extracted object: %w", err)
	}
	return nil
}

// parseWhole parses the entire text.
func parseWhole(text string) (map[string]any, bool) {
	return decodeValue(text)
}

// parseFirstObject parses the balanced object starting at the first '{'.
// The raw substring is tried first, then with comments and trailing commas
// removed, then with everything outside printable ASCII stripped.
func parseFirstObject(text string) (map[string]any, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return nil, false
	}
	end, ok := matchDelimiter(text, start, '{', '}')
	if !ok {
		return nil, false
	}
	raw := text[start : end+1]

	for _, candidate := range []string{raw, cleanJSON(raw), printableASCII(raw)} {
		if obj, ok := decodeObject(candidate); ok {
			return obj, true
		}
	}
	return nil, false
}

// parseFencedBlock parses the first ```json fence, or failing that the first
// fence whose body starts with '{'.
func parseFencedBlock(text string) (map[string]any, bool) {
	blocks := fencedBlocks(text)

	for _, b := range blocks {
		if b.lang == "json" {
			return decodeObject(b.body)
		}
	}
	for _, b := range blocks {
		if strings.HasPrefix(b.body, "{") {
			return decodeObject(b.body)
		}
	}
	return nil, false
}

// parseFirstArray parses the balanced array starting at the first '['.
func parseFirstArray(text string) (map[string]any, bool) {
	start := strings.IndexByte(text, '[')
	if start < 0 {
		return nil, false
	}
	end, ok := matchDelimiter(text, start, '[', ']')
	if !ok {
		return nil, false
	}
	return decodeValue(text[start : end+1])
}

// decodeValue accepts an object, or a list wrapped as daily actions.
func decodeValue(s string) (map[string]any, bool) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	switch val := v.(type) {
	case map[string]any:
		return val, true
	case []any:
		return map[string]any{"daily_actions": val}, true
	}
	return nil, false
}

func decodeObject(s string) (map[string]any, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

// matchDelimiter returns the index of the delimiter closing the one at start.
// Delimiters inside JSON strings are ignored.
func matchDelimiter(text string, start int, open, close byte) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if escaped {
			escaped = false
			continue
		}
		if inString {
			switch ch {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

type fencedBlock struct {
	lang string
	body string
}

// fencedBlocks splits markdown fences. The info string after the opening
// ``` is lowercased into lang; unterminated fences are ignored.
func fencedBlocks(text string) []fencedBlock {
	var blocks []fencedBlock
	rest := text
	for {
		open := strings.Index(rest, "```")
		if open < 0 {
			return blocks
		}
		rest = rest[open+3:]

		header, body := rest, ""
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			header, body = rest[:nl], rest[nl+1:]
		}
		closeIdx := strings.Index(body, "```")
		lang := strings.ToLower(strings.TrimSpace(header))
		if closeIdx < 0 {
			// Inline fence such as ```{"a":1}``` has no newline.
			closeIdx = strings.Index(rest, "```")
			if closeIdx < 0 {
				return blocks
			}
			body, lang = rest[:closeIdx], ""
			rest = rest[closeIdx+3:]
		} else {
			rest = body[closeIdx+3:]
			body = body[:closeIdx]
			if strings.HasPrefix(lang, "{") {
				// Fence opened directly on the JSON line.
				body = header + "\n" + body
				lang = ""
			}
		}
		blocks = append(blocks, fencedBlock{lang: lang, body: strings.TrimSpace(body)})
	}
}

// printableASCII drops every byte outside 0x20-0x7E except tab, CR and LF.
func printableASCII(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch == '\t' || ch == '\n' || ch == '\r' || (ch >= 0x20 && ch <= 0x7e) {
			b.WriteByte(ch)
		}
	}
	return b.String()
}

// cleanJSON removes JavaScript-style comments and trailing commas from JSON.
// LLMs commonly produce these invalid JSON artifacts.
func cleanJSON(raw string) string {
	lines := strings.Split(raw, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		cleaned = append(cleaned, stripLineComment(line))
	}
	result := strings.Join(cleaned, "\n")

	return trailingCommaPattern.ReplaceAllString(result, "$1")
}

// stripLineComment removes a // comment from a JSON line, respecting string values.
// For example:
//
//	"Easy run",          // recovery   → "Easy run",
//	"url": "http://example.com"       → unchanged
func stripLineComment(line string) string {
	if !strings.Contains(line, "//") {
		return line
	}

	inString := false
	escaped := false
	for i := 0; i < len(line); i++ {
		ch := line[i]
		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' && inString {
			escaped = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if !inString && ch == '/' && i+1 < len(line) && line[i+1] == '/' {
			return strings.TrimRight(line[:i], " \t")
		}
	}
	return line
}
