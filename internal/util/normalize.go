package util

import "strings"

// StripANSI 移除 ESC 开头的控制序列（如 \x1b[31m、\x1b[0K）以及除制表符外的不可见控制字符。
// 换行与回车需在调用前统一处理
func StripANSI(s string) string {
	if s == "" {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	skip := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if skip {
			// CSI 序列以字母结尾
			if (ch >= 'A' && ch <= 'Z') || (ch >= 'a' && ch <= 'z') {
				skip = false
			}
			continue
		}
		if ch == 0x1b {
			skip = true
			continue
		}
		if (ch < 0x20 && ch != '\t' && ch != '\n') || ch == 0x7f {
			continue
		}
		b.WriteByte(ch)
	}
	return b.String()
}

// NormalizeNewlines 将 \r\n 与单独的 \r 统一为 \n
func NormalizeNewlines(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "\r\n", "\n"), "\r", "\n")
}

// SplitOutput 把设备原始输出转换为干净的行：解码、换行统一、去控制符、去行尾空白
func SplitOutput(raw string) []string {
	s := StripANSI(NormalizeNewlines(EnsureUTF8(raw)))
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	return lines
}

// TrimBlank 去掉首尾空行
func TrimBlank(lines []string) []string {
	start, end := 0, len(lines)
	for start < end && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return lines[start:end]
}
