package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRuleApply(t *testing.T) {
	rule := DefaultRule()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "rewrites path and extension",
			in:   "https://static.recar.lt/images/x/1.jpg",
			want: "https://static.recar.lt/pictures/x/1.webp",
		},
		{
			name: "uppercase extension",
			in:   "https://static.recar.lt/images/x/2.JPG",
			want: "https://static.recar.lt/pictures/x/2.webp",
		},
		{
			name: "mixed case extension",
			in:   "https://static.recar.lt/images/x/3.Jpg",
			want: "https://static.recar.lt/pictures/x/3.webp",
		},
		{
			name: "empty string",
			in:   "",
			want: "",
		},
		{
			name: "foreign host untouched",
			in:   "https://cdn.example.com/images/x/1.jpg",
			want: "https://cdn.example.com/images/x/1.jpg",
		},
		{
			name: "already transformed",
			in:   "https://static.recar.lt/pictures/x/1.webp",
			want: "https://static.recar.lt/pictures/x/1.webp",
		},
		{
			name: "substring match anywhere in the string",
			in:   "https://static.recar.lt/a/images/b/images/c.jpg",
			want: "https://static.recar.lt/a/pictures/b/pictures/c.webp",
		},
		{
			name: "no extension",
			in:   "https://static.recar.lt/images/x/1.png",
			want: "https://static.recar.lt/pictures/x/1.png",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rule.Apply(tt.in))
		})
	}
}

func TestRuleApplyIdempotent(t *testing.T) {
	rule := DefaultRule()

	urls := []string{
		"https://static.recar.lt/images/x/1.jpg",
		"https://static.recar.lt/pictures/x/1.webp",
		"https://cdn.example.com/images/x/1.jpg",
		"",
		"not a url at all",
	}

	for _, u := range urls {
		once := rule.Apply(u)
		twice := rule.Apply(once)
		assert.Equal(t, once, twice, "Apply must be idempotent for %q", u)
	}
}

func TestRuleApplyAll(t *testing.T) {
	rule := DefaultRule()

	in := []string{
		"https://static.recar.lt/images/a.jpg",
		"https://cdn.example.com/b.jpg",
		"https://static.recar.lt/images/c.jpg",
	}
	out := rule.ApplyAll(in)

	// Order and count preserved, input untouched
	assert.Len(t, out, 3)
	assert.Equal(t, "https://static.recar.lt/pictures/a.webp", out[0])
	assert.Equal(t, "https://cdn.example.com/b.jpg", out[1])
	assert.Equal(t, "https://static.recar.lt/pictures/c.webp", out[2])
	assert.Equal(t, "https://static.recar.lt/images/a.jpg", in[0])
}

func TestChanged(t *testing.T) {
	assert.False(t, Changed([]string{"a", "b"}, []string{"a", "b"}))
	assert.True(t, Changed([]string{"a", "b"}, []string{"a", "c"}))
	assert.True(t, Changed([]string{"a"}, []string{"a", "b"}))
	assert.False(t, Changed(nil, []string{}))
}

func TestReplaceAllFold(t *testing.T) {
	assert.Equal(t, "x.webp y.webp", replaceAllFold("x.JPG y.jpg", ".jpg", ".webp"))
	assert.Equal(t, "untouched", replaceAllFold("untouched", ".jpg", ".webp"))
	assert.Equal(t, "abc", replaceAllFold("abc", "", "zzz"))
}
