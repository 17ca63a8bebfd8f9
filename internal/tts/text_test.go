package tts

import "testing"

func TestPlainText(t *testing.T) {
	tests := []struct {
		name     string
		markdown string
		want     string
	}{
		{
			name:     "plain",
			markdown: "আমার সোনার বাংলা",
			want:     "আমার সোনার বাংলা",
		},
		{
			name:     "heading and paragraph",
			markdown: "# শিরোনাম\n\nএটি **গাঢ়** লেখা।",
			want:     "শিরোনাম\nএটি গাঢ় লেখা।",
		},
		{
			name:     "emphasis",
			markdown: "This is **bold** and this is *italic* text.",
			want:     "This is bold and this is italic text.",
		},
		{
			name:     "links keep their text",
			markdown: "Visit [Google](https://google.com) now.",
			want:     "Visit Google now.",
		},
		{
			name:     "fenced code is dropped",
			markdown: "Here is text.\n\n```go\nfmt.Println(\"hi\")\n```\n\nMore text.",
			want:     "Here is text.\nMore text.",
		},
		{
			name:     "list items on their own lines",
			markdown: "- one\n- two\n- three",
			want:     "one\ntwo\nthree",
		},
		{
			name:     "soft line breaks join",
			markdown: "line one\nline two",
			want:     "line one line two",
		},
		{
			name:     "inline code keeps content",
			markdown: "Run `shobdo` now.",
			want:     "Run shobdo now.",
		},
		{
			name:     "empty",
			markdown: "",
			want:     "",
		},
		{
			name:     "whitespace only",
			markdown: "   \n\n \t ",
			want:     "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PlainText(tt.markdown); got != tt.want {
				t.Errorf("PlainText(%q) = %q, want %q", tt.markdown, got, tt.want)
			}
		})
	}
}
