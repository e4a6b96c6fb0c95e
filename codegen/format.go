package codegen

import (
	"strings"

	"github.com/rs/zerolog/log"
)

const indentWidth = 4

// FormatPython applies deterministic, idempotent style normalization to
// Python source: tabs become four-space indents, trailing whitespace is
// stripped, and runs of blank lines collapse to one. Formatting is a quality
// nicety, never a gate: any internal failure recovers to the input unchanged.
func FormatPython(code string) (formatted string) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Interface("panic", r).Msg("Python formatting failed, keeping code unformatted")
			formatted = code
		}
	}()
	return formatPython(code)
}

func formatPython(code string) string {
	code = strings.ReplaceAll(code, "\r\n", "\n")

	lines := strings.Split(code, "\n")
	out := make([]string, 0, len(lines))
	blankRun := 0
	for _, line := range lines {
		line = expandLeadingTabs(line)
		line = strings.TrimRight(line, " \t")
		if line == "" {
			blankRun++
			if blankRun > 1 {
				continue
			}
		} else {
			blankRun = 0
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

func expandLeadingTabs(line string) string {
	var indent strings.Builder
	rest := line
	for len(rest) > 0 {
		switch rest[0] {
		case '\t':
			indent.WriteString(strings.Repeat(" ", indentWidth))
		case ' ':
			indent.WriteByte(' ')
		default:
			return indent.String() + rest
		}
		rest = rest[1:]
	}
	return indent.String()
}
