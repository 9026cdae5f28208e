package llm

import (
	"encoding/json"
	"strings"
)

const codeFence = "```"

// ExtractJSON returns the first balanced JSON object or array found in text.
// Markdown code fences and surrounding prose are dropped. When nothing valid
// is found the trimmed input is returned unchanged so the caller's decoder
// reports the real error.
func ExtractJSON(text string) string {
	trimmed := strings.TrimSpace(stripCodeFence(text))

	for i := 0; i < len(trimmed); i++ {
		if trimmed[i] != '{' && trimmed[i] != '[' {
			continue
		}

		end := matchClosing(trimmed, i)
		if end < 0 {
			continue
		}

		candidate := trimmed[i : end+1]
		if json.Valid([]byte(candidate)) {
			return candidate
		}
	}

	return trimmed
}

func stripCodeFence(text string) string {
	start := strings.Index(text, codeFence)
	if start < 0 {
		return text
	}

	body := text[start+len(codeFence):]

	// Drop the language tag on the opening fence line.
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		tag := strings.TrimSpace(body[:nl])
		if tag == "" || !strings.ContainsAny(tag, "{[") {
			body = body[nl+1:]
		}
	}

	if end := strings.Index(body, codeFence); end >= 0 {
		body = body[:end]
	}

	return body
}

// matchClosing returns the index of the bracket closing the one at open,
// skipping brackets inside JSON strings, or -1.
func matchClosing(s string, open int) int {
	var stack []byte

	inString := false
	escaped := false

	for i := open; i < len(s); i++ {
		c := s[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}

			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return -1
			}

			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i
			}
		}
	}

	return -1
}
