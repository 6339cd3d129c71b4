package mailtext

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "quoted history",
			in:   "I felt calm today.\n\nOn Tue, Jan 2, 2024 at 9:00 AM Dabble <p@example.com> wrote:\n> Question 1: How are you?",
			want: "I felt calm today.",
		},
		{
			name: "gt quoted lines",
			in:   "Short answer.\n> old text\n> more",
			want: "Short answer.",
		},
		{
			name: "signature separator",
			in:   "Worked on the garden.\n-- \nJo",
			want: "Worked on the garden.",
		},
		{
			name: "mobile footer",
			in:   "Long day.\n\nSent from my iPhone",
			want: "Long day.",
		},
		{
			name: "signoff line",
			in:   "Had lunch with an old friend.\nThanks,\nJo",
			want: "Had lunch with an old friend.",
		},
		{
			name: "thanks inside a sentence stays",
			in:   "Thanks to the rain I stayed in and read.",
			want: "Thanks to the rain I stayed in and read.",
		},
		{
			name: "outlook header block",
			in:   "My reply.\n\n-----Original Message-----\nFrom: x\nSent: y",
			want: "My reply.",
		},
		{
			name: "entities",
			in:   "Fish &amp; chips &lt;3",
			want: "Fish & chips <3",
		},
		{
			name: "leaked headers",
			in:   "Subject: Re: prompts\nTo: me\n\nActual words.",
			want: "Actual words.",
		},
		{
			name: "html",
			in:   "<html><head><style>p{color:red}</style></head><body><p>First line</p><p>Second&nbsp;line</p><script>x()</script></body></html>",
			want: "First line\n\nSecond line",
		},
		{
			name: "collapse blank runs",
			in:   "a\n\n\n\nb",
			want: "a\n\nb",
		},
		{
			name: "angle bracket address is not html",
			in:   "Met Jo <jo@example.com> for coffee.",
			want: "Met Jo <jo@example.com> for coffee.",
		},
		{
			name: "blank",
			in:   "  \n ",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.in))
		})
	}
}
