package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTextBasics(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"collapse spaces", "a    b\t\tc", "a b c"},
		{"collapse newlines", "a\n\n\n\nb", "a\nb"},
		{"crlf to lf", "a\r\nb\rc", "a\nb\nc"},
		{"trim", "  \n a b \n  ", "a b"},
		{"keeps chinese", "中文  内容\n\n保留", "中文 内容\n保留"},
		{"strips control chars", "a\x00b\x07c", "abc"},
		{"spaces around newline", "a  \n  b", "a\nb"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeText(tc.in))
		})
	}
}

func TestNormalizeTextIdempotent(t *testing.T) {
	inputs := []string{
		"a    b\t\tc\n\n\nd",
		"  混合 内容 with english \r\n\r\n 和换行  ",
		"already normal\ntext",
		"a\x00 \x01 b",
	}
	for _, in := range inputs {
		once := NormalizeText(in)
		twice := NormalizeText(once)
		assert.Equal(t, once, twice, "input %q", in)
	}
}
