package mcp

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/jmespath/go-jmespath"
	"github.com/rs/zerolog"
)

// Filter narrows a service response before it is handed to the model.
// JMESPath wins when both expressions are set.
type Filter struct {
	JMESPath     string
	Regex        string
	ContextLines int
}

// Empty reports whether no expression is set.
func (f Filter) Empty() bool {
	return f.JMESPath == "" && f.Regex == ""
}

// FilterResult represents the result of a filtering operation
type FilterResult struct {
	Content string                 `json:"content"`
	Meta    map[string]interface{} `json:"_meta"`
}

// Apply runs the filter over body.
func (f Filter) Apply(logger zerolog.Logger, body string) (*FilterResult, error) {
	switch {
	case f.JMESPath != "":
		return filterJMESPath(body, f.JMESPath)
	case f.Regex != "":
		return filterRegex(logger, body, f.Regex, f.ContextLines)
	default:
		return &FilterResult{Content: body, Meta: sizeMeta(body, body)}, nil
	}
}

// estimateTokens approximates token count using chars/4 heuristic
func estimateTokens(data string) int {
	return len(data) / 4
}

func sizeMeta(returned, source string) map[string]interface{} {
	return map[string]interface{}{
		"tokens": map[string]interface{}{
			"returned": estimateTokens(returned),
			"source":   estimateTokens(source),
		},
		"bytes": map[string]interface{}{
			"returned": len(returned),
			"source":   len(source),
		},
	}
}

// filterRegex returns every match with surrounding context; overlapping
// windows are merged.
func filterRegex(logger zerolog.Logger, body string, pattern string, contextLines int) (*FilterResult, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regex pattern: %w", err)
	}

	// ~80 chars per line, 100 minimum
	contextChars := max(contextLines*80, 100)

	matches := re.FindAllStringIndex(body, -1)
	logger.Debug().
		Int("input_bytes", len(body)).
		Str("pattern", pattern).
		Int("context_chars", contextChars).
		Int("total_matches", len(matches)).
		Msg("regex filter")

	if len(matches) == 0 {
		meta := sizeMeta("", body)
		meta["filter"] = map[string]interface{}{
			"type":          "regex",
			"pattern":       pattern,
			"total_matches": 0,
		}
		return &FilterResult{Content: "", Meta: meta}, nil
	}

	type window struct{ start, end int }
	merged := make([]window, 0, len(matches))
	for _, m := range matches {
		w := window{start: max(0, m[0]-contextChars), end: min(len(body), m[1]+contextChars)}
		if n := len(merged); n > 0 && w.start <= merged[n-1].end {
			merged[n-1].end = max(merged[n-1].end, w.end)
			continue
		}
		merged = append(merged, w)
	}

	blocks := make([]string, 0, len(merged))
	for i, w := range merged {
		excerpt := body[w.start:w.end]
		if w.start > 0 {
			excerpt = "..." + excerpt
		}
		if w.end < len(body) {
			excerpt += "..."
		}
		blocks = append(blocks, fmt.Sprintf("=== Context Window %d (bytes %d-%d) ===\n%s", i+1, w.start, w.end, excerpt))
	}
	content := strings.Join(blocks, "\n\n")

	meta := sizeMeta(content, body)
	meta["filter"] = map[string]interface{}{
		"type":           "regex",
		"pattern":        pattern,
		"total_matches":  len(matches),
		"merged_windows": len(merged),
	}
	return &FilterResult{Content: content, Meta: meta}, nil
}

// filterJMESPath filters JSON using a JMESPath expression
func filterJMESPath(body string, expression string) (*FilterResult, error) {
	var data interface{}
	if err := json.Unmarshal([]byte(body), &data); err != nil {
		return nil, fmt.Errorf("invalid JSON response: %w", err)
	}

	result, err := jmespath.Search(expression, data)
	if err != nil {
		return nil, fmt.Errorf("invalid jmespath expression: %w", err)
	}

	filtered, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal filtered result: %w", err)
	}

	count := 0
	if arr, ok := result.([]interface{}); ok {
		count = len(arr)
	} else if result != nil {
		count = 1
	}

	content := string(filtered)
	meta := sizeMeta(content, body)
	meta["filter"] = map[string]interface{}{
		"type":         "jmespath",
		"expression":   expression,
		"result_count": count,
	}
	return &FilterResult{Content: content, Meta: meta}, nil
}
