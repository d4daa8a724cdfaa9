package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// normalizeJSONC converts JSONC content to strict JSON by blanking comments
// and removing trailing commas, preserving byte offsets for line reporting
// where possible.
func normalizeJSONC(content string) (string, error) {
	var (
		out      strings.Builder
		inString bool
		escaped  bool
	)
	out.Grow(len(content))

	runes := []rune(content)
	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if inString {
			out.WriteRune(r)
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}

		switch {
		case r == '"':
			inString = true
			out.WriteRune(r)
		case r == '/' && i+1 < len(runes) && runes[i+1] == '/':
			for i < len(runes) && runes[i] != '\n' {
				i++
			}
			if i < len(runes) {
				out.WriteRune('\n')
			}
		case r == '/' && i+1 < len(runes) && runes[i+1] == '*':
			i += 2
			for i+1 < len(runes) && !(runes[i] == '*' && runes[i+1] == '/') {
				if runes[i] == '\n' {
					out.WriteRune('\n')
				}
				i++
			}
			if i+1 >= len(runes) {
				return "", fmt.Errorf("unterminated block comment in config")
			}
			i++ // consume closing '/'
		default:
			out.WriteRune(r)
		}
	}

	if inString {
		return "", fmt.Errorf("unterminated string in config")
	}

	return stripTrailingCommas(out.String()), nil
}

// stripTrailingCommas removes commas directly preceding a closing bracket.
func stripTrailingCommas(content string) string {
	var (
		out      strings.Builder
		inString bool
		escaped  bool
		pending  []rune // comma plus following whitespace awaiting a verdict
	)
	out.Grow(len(content))

	flush := func() {
		for _, r := range pending {
			out.WriteRune(r)
		}
		pending = pending[:0]
	}

	for _, r := range content {
		if inString {
			out.WriteRune(r)
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}

		switch {
		case len(pending) > 0 && (r == '}' || r == ']'):
			// Drop the pending comma, keep trailing whitespace layout.
			for _, p := range pending[1:] {
				out.WriteRune(p)
			}
			pending = pending[:0]
			out.WriteRune(r)
		case len(pending) > 0 && (r == ' ' || r == '\t' || r == '\n' || r == '\r'):
			pending = append(pending, r)
		case r == ',':
			flush()
			pending = append(pending, r)
		case r == '"':
			flush()
			inString = true
			out.WriteRune(r)
		default:
			flush()
			out.WriteRune(r)
		}
	}
	flush()

	return out.String()
}

// wrapJSONDecodeError annotates a decode failure with its 1-based line number.
func wrapJSONDecodeError(content string, err error) error {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError

	offset := int64(-1)
	switch {
	case errors.As(err, &syntaxErr):
		offset = syntaxErr.Offset
	case errors.As(err, &typeErr):
		offset = typeErr.Offset
	}

	if offset < 0 || offset > int64(len(content)) {
		return fmt.Errorf("parse config: %w", err)
	}

	line := 1 + strings.Count(content[:offset], "\n")
	return fmt.Errorf("parse config (line %d): %w", line, err)
}
