package logger

import (
	"bytes"
	"io"
	"regexp"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// 关键字后的取值一律打码，兼容 "enable secret 5 xxx"、"password: xxx"
var redactRe = regexp.MustCompile(`(?i)\b(secret|password)\b([:=]?[ \t]+(?:[0-9][ \t]+)?)\S+`)

// Redact 隐去文本中的口令取值
func Redact(text string) string {
	return redactRe.ReplaceAllString(text, "${1}${2}******")
}

// OutputLines 表示命令输出的头部和尾部行
type OutputLines struct {
	HeadLines []string `json:"head_lines"`
	TailLines []string `json:"tail_lines"`
}

// ParseOutputLines 提取头尾各 maxLines 行，总行数不足时尾部为空
func ParseOutputLines(lines []string, maxLines int) OutputLines {
	if maxLines <= 0 {
		maxLines = 5
	}
	if len(lines) <= maxLines {
		return OutputLines{HeadLines: append([]string(nil), lines...)}
	}
	head := append([]string(nil), lines[:maxLines]...)
	start := len(lines) - maxLines
	if start < maxLines {
		start = maxLines
	}
	return OutputLines{HeadLines: head, TailLines: append([]string(nil), lines[start:]...)}
}

// FormatOutputLines 格式化输出行为字符串，用于日志记录
func FormatOutputLines(lines OutputLines) string {
	var parts []string
	if len(lines.HeadLines) > 0 {
		parts = append(parts, "head-lines: ["+strings.Join(lines.HeadLines, " ⟩ ")+"]")
	}
	if len(lines.TailLines) > 0 {
		parts = append(parts, "tail-lines: ["+strings.Join(lines.TailLines, " ⟩ ")+"]")
	}
	return strings.Join(parts, ", ")
}

// DebugCommandOutput 在 debug 级别记录命令输出的 head/tail-lines
func DebugCommandOutput(entry *logrus.Entry, command string, lines []string, maxLines int) {
	if entry == nil {
		entry = logrus.NewEntry(GetLogger())
	}
	if !entry.Logger.IsLevelEnabled(logrus.DebugLevel) || len(lines) == 0 {
		return
	}
	entry.WithField("lines", len(lines)).
		Debugf("Command echo [%s]: %s", Redact(command), Redact(FormatOutputLines(ParseOutputLines(lines, maxLines))))
}

// transcriptWriter 把 expect 引擎的收发记录按行写入 debug 日志
type transcriptWriter struct {
	entry *logrus.Entry
	mu    sync.Mutex
	buf   bytes.Buffer
}

// TranscriptWriter 返回 expect 收发记录的日志输出。
// 发送内容可能是口令，整行打码；接收内容按关键字打码
func TranscriptWriter(entry *logrus.Entry) io.Writer {
	return &transcriptWriter{entry: entry}
}

func (w *transcriptWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			// 不完整的行放回缓冲区
			w.buf.Reset()
			w.buf.WriteString(line)
			break
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}
		if strings.Contains(line, "Sent") {
			line = "sent ******"
		}
		w.entry.Debug(Redact(line))
	}
	return len(p), nil
}
