// Package parse extracts structured records from free-form model output.
//
// Models reliably wrap valid JSON in prose or markdown fences, so extraction
// tries strategies in order of strictness: the whole text, then the interior
// of a fenced block, then the outermost brace pair. The bare brace scan is
// tried last, never first, to avoid false positives on trailing prose that
// happens to contain braces.
package parse

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	// fencedBlockPattern matches JSON inside markdown code blocks: ```json { ... } ```
	fencedBlockPattern = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(\\{.*\\})\\s*```")
	// trailingCommaPattern matches trailing commas before ] or }.
	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
)

// UnparsableError reports that no extraction strategy produced valid JSON.
type UnparsableError struct {
	Preview string
}

func (e *UnparsableError) Error() string {
	return fmt.Sprintf("unparsable model response: %q", e.Preview)
}

// Extract returns the first JSON object recoverable from raw, or an
// *UnparsableError if every strategy fails.
func Extract(raw string) (map[string]any, error) {
	text := strings.TrimSpace(raw)

	// Strategy 1: the entire text is the record.
	if rec, ok := tryDecode(text); ok {
		return rec, nil
	}

	// Strategy 2: the interior of a fenced block labeled as structured data.
	if m := fencedBlockPattern.FindStringSubmatch(text); len(m) > 1 {
		if rec, ok := tryDecode(m[1]); ok {
			return rec, nil
		}
	}

	// Strategy 3: the outermost brace pair.
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start != -1 && end > start {
		if rec, ok := tryDecode(text[start : end+1]); ok {
			return rec, nil
		}
	}

	preview := text
	if len(preview) > 100 {
		preview = preview[:100] + "..."
	}
	return nil, &UnparsableError{Preview: preview}
}

// tryDecode attempts to unmarshal candidate as a JSON object, retrying once
// after cleaning the artifacts models commonly emit.
func tryDecode(candidate string) (map[string]any, bool) {
	var rec map[string]any
	if err := json.Unmarshal([]byte(candidate), &rec); err == nil {
		return rec, true
	}
	cleaned := cleanJSON(candidate)
	if cleaned == candidate {
		return nil, false
	}
	if err := json.Unmarshal([]byte(cleaned), &rec); err == nil {
		return rec, true
	}
	return nil, false
}

// cleanJSON removes JavaScript-style line comments and trailing commas.
func cleanJSON(raw string) string {
	lines := strings.Split(raw, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		cleaned = append(cleaned, stripLineComment(line))
	}
	result := strings.Join(cleaned, "\n")
	return trailingCommaPattern.ReplaceAllString(result, "$1")
}

// stripLineComment removes a // comment from a JSON line, respecting string
// values (a URL like "http://x" must survive).
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
