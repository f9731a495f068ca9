package node

import "unicode/utf8"

// TruncateByRunes 保留前 maxRunes 个字符，上游原文写入日志或错误详情前使用
func TruncateByRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	offset := 0
	for kept := 0; kept < maxRunes; kept++ {
		if offset >= len(s) {
			return s
		}
		_, size := utf8.DecodeRuneInString(s[offset:])
		offset += size
	}
	return s[:offset]
}
