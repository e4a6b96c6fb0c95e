// Package codegen turns free-form LLM chat output into committable source
// artifacts: it extracts raw code from natural-language responses, applies
// style normalization, and orchestrates the generation calls themselves.
package codegen

import (
	"regexp"
	"strings"

	"appsmith/common"
	"appsmith/utils"
)

// fencedBlockRe matches the first fenced code block, either untagged or
// tagged with one of the known language markers.
var fencedBlockRe = regexp.MustCompile("(?s)```(?:python|julia|html|javascript)?\n(.*?)\n```")

// discourseMarkers are lowercase prefixes of explanatory prose that models
// commonly wrap around code.
var discourseMarkers = []string{"example", "note", "output", "certainly", "below", "here"}

// Sanitize extracts best-effort raw source code from a free-form model
// response. Only the first fenced code block is treated as signal; anything
// outside it, including prose after the closing fence, is discarded. The
// remainder is line-filtered: blank lines, markdown headings and bullets,
// and lines opening with a discourse marker are dropped.
//
// This is a lossy heuristic over natural language, not a parser. It can
// under-strip (prose that matches no filtered prefix survives) and
// over-strip (a code comment like "# Example usage" is indistinguishable
// from markdown and is removed). Callers must syntax-validate the output
// before trusting it. Sanitize is total and idempotent; worst case it
// returns an empty string.
func Sanitize(raw string, language common.Language) string {
	_ = language // reserved for per-language filtering rules

	code := raw
	if m := fencedBlockRe.FindStringSubmatch(code); m != nil {
		code = m[1]
	}
	// Any fence still left, whether dangling or inside the extracted block
	// interior, marks the start of trailing commentary. Cutting here keeps
	// repeated sanitization stable.
	if i := strings.Index(code, "```"); i >= 0 {
		code = code[:i]
	}

	lines := strings.Split(code, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			continue
		}
		if utils.HasAnyPrefix(line, "# ", "##", "*", "-") {
			continue
		}
		if utils.HasAnyPrefix(strings.ToLower(line), discourseMarkers...) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
