package prompt

import (
	"fmt"
	"regexp"
	"strings"
)

// hostChars Cisco 主机名允许的字符，兼容部分平台的 / : @
const hostChars = `[\w.\-/:@]+`

// 默认识别器（Cisco IOS 风格）。
// AuthFailed 排在最前：错误提示与登录提示可能同时出现在缓冲区，起始位置相同时以错误为准。
var defaultPatterns = []Pattern{
	Regex(AuthFailed, `(?i)%\s*(?:bad (?:passwords?|secrets?)|login invalid|authentication failed|access denied)`),
	Regex(LoginPrompt, `(?im)^[ \t]*(?:user ?name|login):[ \t\r]*$`),
	Regex(PasswordPrompt, `(?im)password:[ \t\r]*$`),
	Regex(ConfigPrompt, `(?m)^\r?`+hostChars+`\([\w.\-]*\)#[ \t\r]*$`),
	Regex(PrivExec, `(?m)^\r?`+hostChars+`#[ \t\r]*$`),
	Regex(UserExec, `(?m)^\r?`+hostChars+`>[ \t\r]*$`),
}

var defaultSet = MustSet(defaultPatterns...)

// Default 返回内置的只读提示符集合
func Default() *Set { return defaultSet }

// WithOverrides 以配置中的正则覆盖内置识别器，键为识别器名称
func WithOverrides(overrides map[string]string) (*Set, error) {
	if len(overrides) == 0 {
		return defaultSet, nil
	}
	patterns := make([]Pattern, 0, len(overrides))
	// 按内置顺序应用，保证优先级稳定
	for _, p := range defaultPatterns {
		if expr, ok := overrides[string(p.Name)]; ok && strings.TrimSpace(expr) != "" {
			patterns = append(patterns, Regex(p.Name, expr))
		}
	}
	for k := range overrides {
		if _, ok := defaultSet.Pattern(Name(k)); !ok {
			return nil, fmt.Errorf("unknown prompt pattern %q, known: %v", k, defaultSet.Names())
		}
	}
	return defaultSet.Replace(patterns...)
}

// ForHost 以会话就绪时观察到的主机名收紧 exec/config 提示符，
// 避免命令输出中恰好出现的 "xxx#" 被误判为结束符
func (s *Set) ForHost(host string) (*Set, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return s, nil
	}
	q := regexp.QuoteMeta(host)
	return s.Replace(
		Regex(ConfigPrompt, `(?m)^\r?`+q+`\([\w.\-]*\)#[ \t\r]*$`),
		Regex(PrivExec, `(?m)^\r?`+q+`#[ \t\r]*$`),
		Regex(UserExec, `(?m)^\r?`+q+`>[ \t\r]*$`),
	)
}

// HostFromPrompt 从提示符文本中提取主机名，如 "R1#"、"R1(config)#"、"R1>"
func HostFromPrompt(text string) string {
	s := strings.TrimSpace(strings.ReplaceAll(text, "\r", ""))
	s = strings.TrimRight(s, "#> \t")
	if i := strings.Index(s, "("); i > 0 {
		s = s[:i]
	}
	return s
}
