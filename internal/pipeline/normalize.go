package pipeline

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	reSpaces   = regexp.MustCompile(`[ \t]+`)
	reNewlines = regexp.MustCompile(` *\n[\n ]*`)
)

// NormalizeText 规范化提取出的文本：去除不可打印字符，将连续空白折叠为
// 单个空格，将连续换行折叠为单个换行。纯函数且幂等，对已规范化的输入
// 再次调用是无操作。
func NormalizeText(s string) string {
	if s == "" {
		return s
	}

	// 统一换行符
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	// 去除控制字符与不可打印字符（保留换行与制表符，制表符随后折叠为空格）。
	// 注意：站点内容包含中文，因此按 unicode 可打印性过滤而非 ASCII 区间。
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '\n' || r == '\t' || unicode.IsPrint(r) {
			b.WriteRune(r)
		}
	}
	s = b.String()

	// 折叠空白
	s = reSpaces.ReplaceAllString(s, " ")
	s = reNewlines.ReplaceAllString(s, "\n")

	return strings.TrimSpace(s)
}
