package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlainLines(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "empty",
			in:   "  \n ",
			want: nil,
		},
		{
			name: "plain paragraphs",
			in:   "Thanks for the note.\n\nI will revise the section.",
			want: []string{"Thanks for the note.", "I will revise the section."},
		},
		{
			name: "soft wrap joins",
			in:   "one line\nwrapped here",
			want: []string{"one line wrapped here"},
		},
		{
			name: "emphasis and links",
			in:   "**Agreed**, see [the appendix](https://example.com/a) and _figure 2_.",
			want: []string{"Agreed, see the appendix and figure 2."},
		},
		{
			name: "heading and lists",
			in:   "## Plan\n\n- add a figure\n- cite 2024 work\n\n1. first\n2. second",
			want: []string{"Plan", "- add a figure", "- cite 2024 work", "1. first", "2. second"},
		},
		{
			name: "code block",
			in:   "```\nx := 1\ny := 2\n```",
			want: []string{"x := 1", "y := 2"},
		},
		{
			name: "table",
			in:   "| a | b |\n|---|---|\n| 1 | 2 |",
			want: []string{"a | b", "1 | 2"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PlainLines(tt.in))
		})
	}
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "Yes.\nDone.", PlainText("Yes.\n\nDone."))
}
