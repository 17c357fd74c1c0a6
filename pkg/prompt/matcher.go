package prompt

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// DefaultTimeout 单次等待提示符的默认超时
const DefaultTimeout = 4 * time.Second

// Name 提示符识别器名称
type Name string

const (
	LoginPrompt    Name = "login_prompt"
	PasswordPrompt Name = "password_prompt"
	UserExec       Name = "user_exec"
	PrivExec       Name = "priv_exec"
	ConfigPrompt   Name = "config_prompt"
	AuthFailed     Name = "auth_failed"
)

// Pattern 单个提示符识别器：字面量子串或正则表达式（二选一，Regex 优先）
type Pattern struct {
	Name    Name
	Literal string
	Regex   string
}

// Literal 创建字面量识别器
func Literal(name Name, s string) Pattern { return Pattern{Name: name, Literal: s} }

// Regex 创建正则识别器
func Regex(name Name, expr string) Pattern { return Pattern{Name: name, Regex: expr} }

func (p Pattern) expr() string {
	if p.Regex != "" {
		return p.Regex
	}
	return regexp.QuoteMeta(p.Literal)
}

// Set 有序的提示符集合，声明顺序即同位置命中时的优先级。
// 编译后只读，可在多个会话之间共享。
type Set struct {
	patterns []Pattern
	combined *regexp.Regexp
	// groups[i] 为第 i 个识别器在合并正则中的外层分组序号
	groups []int
}

// NewSet 编译提示符集合
func NewSet(patterns ...Pattern) (*Set, error) {
	if len(patterns) == 0 {
		return nil, fmt.Errorf("prompt set is empty")
	}
	seen := make(map[Name]struct{}, len(patterns))
	parts := make([]string, 0, len(patterns))
	groups := make([]int, 0, len(patterns))
	next := 1
	for _, p := range patterns {
		if p.Name == "" {
			return nil, fmt.Errorf("prompt pattern without name")
		}
		if _, dup := seen[p.Name]; dup {
			return nil, fmt.Errorf("duplicate prompt pattern %q", p.Name)
		}
		seen[p.Name] = struct{}{}
		if p.Regex == "" && p.Literal == "" {
			return nil, fmt.Errorf("prompt pattern %q has neither literal nor regex", p.Name)
		}
		re, err := regexp.Compile(p.expr())
		if err != nil {
			return nil, fmt.Errorf("compile prompt pattern %q: %w", p.Name, err)
		}
		if re.MatchString("") {
			return nil, fmt.Errorf("prompt pattern %q matches empty input", p.Name)
		}
		groups = append(groups, next)
		next += 1 + re.NumSubexp()
		parts = append(parts, "("+p.expr()+")")
	}
	// Go 正则为最左优先：起始位置最早者胜出，同一位置按分支声明顺序取第一个
	combined, err := regexp.Compile(strings.Join(parts, "|"))
	if err != nil {
		return nil, fmt.Errorf("compile prompt set: %w", err)
	}
	return &Set{
		patterns: append([]Pattern(nil), patterns...),
		combined: combined,
		groups:   groups,
	}, nil
}

// MustSet 编译失败时 panic，仅用于内置常量集合
func MustSet(patterns ...Pattern) *Set {
	s, err := NewSet(patterns...)
	if err != nil {
		panic(err)
	}
	return s
}

// Regexp 返回合并后的正则，供 expect 引擎直接等待
func (s *Set) Regexp() *regexp.Regexp { return s.combined }

// Names 按声明顺序返回识别器名称
func (s *Set) Names() []Name {
	out := make([]Name, 0, len(s.patterns))
	for _, p := range s.patterns {
		out = append(out, p.Name)
	}
	return out
}

// Pattern 按名称取识别器
func (s *Set) Pattern(name Name) (Pattern, bool) {
	for _, p := range s.patterns {
		if p.Name == name {
			return p, true
		}
	}
	return Pattern{}, false
}

// Select 按给定顺序挑选子集，顺序即新集合的优先级
func (s *Set) Select(names ...Name) (*Set, error) {
	picked := make([]Pattern, 0, len(names))
	for _, n := range names {
		p, ok := s.Pattern(n)
		if !ok {
			return nil, fmt.Errorf("prompt pattern %q not in set", n)
		}
		picked = append(picked, p)
	}
	return NewSet(picked...)
}

// Replace 返回替换同名识别器后的新集合，未出现的名称追加在末尾
func (s *Set) Replace(patterns ...Pattern) (*Set, error) {
	out := append([]Pattern(nil), s.patterns...)
	for _, np := range patterns {
		replaced := false
		for i := range out {
			if out[i].Name == np.Name {
				out[i] = np
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, np)
		}
	}
	return NewSet(out...)
}

// Match 在缓冲区中查找最早出现的提示符
type Match struct {
	Pattern Name
	// Prefix 提示符之前的全部内容
	Prefix string
	// Text 命中的提示符文本
	Text string
	// Remainder 提示符之后尚未消费的内容
	Remainder string
}

// Match 扫描缓冲区，返回起始位置最早的命中；同一位置按声明顺序取第一个
func (s *Set) Match(buf string) (Match, bool) {
	idx := s.combined.FindStringSubmatchIndex(buf)
	if idx == nil {
		return Match{}, false
	}
	for i, g := range s.groups {
		if idx[2*g] < 0 {
			continue
		}
		start, end := idx[0], idx[1]
		return Match{
			Pattern:   s.patterns[i].Name,
			Prefix:    buf[:start],
			Text:      buf[start:end],
			Remainder: buf[end:],
		}, true
	}
	return Match{}, false
}

// Outcome 读取结果标签
type Outcome int

const (
	// Matched 在超时前命中某个提示符
	Matched Outcome = iota + 1
	// Timeout 超时或读取中断，属于预期结果而非异常
	Timeout
)

func (o Outcome) String() string {
	switch o {
	case Matched:
		return "matched"
	case Timeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// ReadResult readUntil 的带标签结果，调用方按 Outcome 分支
type ReadResult struct {
	Outcome Outcome
	Match   Match
	// Err 超时的底层原因（定时器到期、连接断开等）
	Err error
}

// MatchedResult 构造命中结果
func MatchedResult(m Match) ReadResult { return ReadResult{Outcome: Matched, Match: m} }

// TimeoutResult 构造超时结果
func TimeoutResult(err error) ReadResult { return ReadResult{Outcome: Timeout, Err: err} }

// Is 判断是否命中指定识别器
func (r ReadResult) Is(name Name) bool {
	return r.Outcome == Matched && r.Match.Pattern == name
}

// IsTimeout 是否超时
func (r ReadResult) IsTimeout() bool { return r.Outcome == Timeout }
