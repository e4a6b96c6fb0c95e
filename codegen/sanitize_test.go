package codegen

import (
	"testing"

	"appsmith/common"

	"github.com/stretchr/testify/assert"
)

func TestSanitize_FenceExtraction(t *testing.T) {
	raw := "```python\nFOO\n```\nThis code uses Flask to serve the endpoints."
	assert.Equal(t, "FOO", Sanitize(raw, common.Python))
}

func TestSanitize_UntaggedFence(t *testing.T) {
	raw := "```\nx = 1\ny = 2\n```"
	assert.Equal(t, "x = 1\ny = 2", Sanitize(raw, common.Python))
}

func TestSanitize_SecondFenceDiscarded(t *testing.T) {
	raw := "```python\nfirst = True\n```\nAnd here is another variant:\n```python\nsecond = True\n```"
	assert.Equal(t, "first = True", Sanitize(raw, common.Python))
}

func TestSanitize_DanglingFence(t *testing.T) {
	raw := "x = 1\n```python\nleftover without closing"
	assert.Equal(t, "x = 1", Sanitize(raw, common.Python))
}

func TestSanitize_InlineFenceInsideBlock(t *testing.T) {
	// A triple backtick inside the extracted block interior is cut the same
	// way a dangling fence is, so a second pass sees no fence at all.
	raw := "```python\nprint(\"a```b\")\n```\ntrailing prose"
	once := Sanitize(raw, common.Python)
	assert.Equal(t, `print("a`, once)
	assert.Equal(t, once, Sanitize(once, common.Python))
}

func TestSanitize_LineFiltering(t *testing.T) {
	tests := []struct {
		name string
		line string
		kept bool
	}{
		{"markdown comment heading", "# Example usage", false},
		{"double hash heading", "## Setup", false},
		{"bullet star", "* install flask", false},
		{"bullet dash", "- install flask", false},
		{"discourse certainly", "Certainly! The code is:", false},
		{"discourse here", "Here is the script you asked for", false},
		{"discourse note", "Note that this requires pandas", false},
		{"inline comment preserved", "x = 1  # comment", true},
		{"plain code", "app = Flask(__name__)", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sanitize(tt.line, common.Python)
			if tt.kept {
				assert.Equal(t, tt.line, got)
			} else {
				assert.Empty(t, got)
			}
		})
	}
}

func TestSanitize_IndentedCommentPreserved(t *testing.T) {
	// Only lines that start a markdown construct at column zero are
	// filtered; indented code comments survive.
	raw := "def f():\n    # explain the next line\n    return 1"
	assert.Equal(t, raw, Sanitize(raw, common.Python))
}

func TestSanitize_Idempotent(t *testing.T) {
	inputs := []string{
		"```python\nFOO\n```\ntrailing prose",
		"Certainly! Here you go:\n```\ndef f():\n    return 1\n```\nNote: needs python 3.9",
		"x = 1  # comment\n\n\ny = 2",
		"",
		"no fences, just code\nprint('hi')",
		"```python\nprint(\"a```b\")\n```\ntrailing prose",
	}

	for _, raw := range inputs {
		once := Sanitize(raw, common.Python)
		twice := Sanitize(once, common.Python)
		assert.Equal(t, once, twice, "sanitize must be idempotent for %q", raw)
	}
}

func TestSanitize_WorstCaseEmpty(t *testing.T) {
	assert.Equal(t, "", Sanitize("### Notes\n* bullet one\n* bullet two", common.HTML))
}

func TestSanitize_DropsBlankLines(t *testing.T) {
	raw := "a = 1\n\n\nb = 2\n"
	assert.Equal(t, "a = 1\nb = 2", Sanitize(raw, common.Python))
}
