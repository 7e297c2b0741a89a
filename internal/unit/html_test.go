package unit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitFragment(t *testing.T) {
	tests := []struct {
		name      string
		src       string
		want      []Descriptor
		hasScript bool
	}{
		{
			name: "no scripts",
			src:  `<div class="banner"><b>Hi</b></div>`,
			want: []Descriptor{{Type: KindHTML, Src: `<div class="banner"><b>Hi</b></div>`}},
		},
		{
			name: "markup around scripts",
			src:  `<p>a</p><script src="https://cdn.example.com/x.js"></script><SCRIPT>var y = "<b>";</SCRIPT><div>b</div>`,
			want: []Descriptor{
				{Type: KindHTML, Src: `<p>a</p>`},
				{Type: KindScript, Src: "https://cdn.example.com/x.js"},
				{Type: KindJS, Src: `var y = "<b>";`},
				{Type: KindHTML, Src: `<div>b</div>`},
			},
			hasScript: true,
		},
		{
			name: "src wins over body",
			src:  `<script src="a.js">ignored()</script>`,
			want: []Descriptor{
				{Type: KindScript, Src: "a.js"},
			},
			hasScript: true,
		},
		{
			name:      "empty script dropped",
			src:       "<script>  </script>\n",
			want:      nil,
			hasScript: true,
		},
		{
			name: "stray end tag dropped",
			src:  `<span>x</span></script>`,
			want: []Descriptor{{Type: KindHTML, Src: `<span>x</span>`}},
		},
		{
			name: "whitespace between scripts dropped",
			src:  "<script>a()</script>\n  <script>b()</script>",
			want: []Descriptor{
				{Type: KindJS, Src: "a()"},
				{Type: KindJS, Src: "b()"},
			},
			hasScript: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, hasScript := splitFragment(tt.src)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.hasScript, hasScript)
		})
	}
}
