package simulate

import (
	"bufio"
	"io"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
)

type cliMode int

const (
	modeUser cliMode = iota
	modePriv
	modeConfig
)

const invalidInput = "% Invalid input detected at '^' marker.\r\n\r\n"

// console 一个交互会话的 IOS CLI 状态机
type console struct {
	dev  *Device
	rw   io.ReadWriter
	r    *bufio.Reader
	log  *logrus.Entry
	mode cliMode
	// touch 每次读取前调用，用于刷新空闲超时
	touch func()
	// skipLF 上一行以 \r 结束，丢弃紧随的 \n 或 \x00
	skipLF bool
}

func newConsole(dev *Device, rw io.ReadWriter, log *logrus.Entry, touch func()) *console {
	if touch == nil {
		touch = func() {}
	}
	return &console{dev: dev, rw: rw, r: bufio.NewReader(rw), log: log, touch: touch}
}

func (c *console) write(s string) {
	_, _ = io.WriteString(c.rw, s)
}

// readLine 读取一行，兼容 \r\n、\r\x00、\n 三种行尾
func (c *console) readLine() (string, error) {
	c.touch()
	var b strings.Builder
	for {
		ch, err := c.r.ReadByte()
		if err != nil {
			return b.String(), err
		}
		if c.skipLF {
			c.skipLF = false
			if ch == '\n' || ch == 0 {
				continue
			}
		}
		switch ch {
		case '\r':
			c.skipLF = true
			return b.String(), nil
		case '\n':
			return b.String(), nil
		case 0:
			continue
		}
		b.WriteByte(ch)
	}
}

func (c *console) prompt() {
	switch c.mode {
	case modeConfig:
		c.write(c.dev.Hostname() + "(config)#")
	case modePriv:
		c.write(c.dev.Hostname() + "#")
	default:
		c.write(c.dev.Hostname() + ">")
	}
}

// telnetLogin Username:/Password: 登录，最多三次
func (c *console) telnetLogin() bool {
	if c.dev.cfg.Banner != "" {
		c.write(ensureCRLF(c.dev.cfg.Banner))
	}
	c.write("\r\nUser Access Verification\r\n\r\n")
	for attempt := 0; attempt < 3; attempt++ {
		user := ""
		if c.dev.cfg.AskUsername {
			c.write("Username: ")
			u, err := c.readLine()
			if err != nil {
				return false
			}
			user = strings.TrimSpace(u)
			c.write(user + "\r\n")
		}
		c.write("Password: ")
		pass, err := c.readLine()
		if err != nil {
			return false
		}
		c.write("\r\n")
		if c.dev.checkLogin(user, pass) {
			c.log.Debugf("Simulate: telnet login ok, user %q", user)
			return true
		}
		c.log.Debugf("Simulate: telnet login failed, user %q", user)
		c.write("% Login invalid\r\n\r\n")
	}
	c.write("% Bad passwords\r\n")
	return false
}

// serve 命令循环，直到 exit 或连接断开
func (c *console) serve() {
	c.write("\r\n")
	c.prompt()
	for {
		line, err := c.readLine()
		if err != nil {
			c.log.Debugf("Simulate: session ended: %v", err)
			return
		}
		cmd := strings.TrimSpace(line)
		c.write(line + "\r\n")
		if cmd != "" {
			c.log.Debugf("Simulate: input %q", redactSecret(cmd))
			if !c.exec(cmd) {
				return
			}
		}
		c.prompt()
	}
}

// exec 执行一条命令，返回 false 表示会话结束
func (c *console) exec(cmd string) bool {
	if c.mode == modeConfig {
		c.configCommand(cmd)
		return true
	}

	norm := canonical(cmd)
	switch {
	case norm == "exit" || norm == "logout" || norm == "quit":
		return false
	case norm == "enable":
		if c.mode == modeUser {
			c.enable()
		}
	case norm == "disable":
		c.mode = modeUser
	case strings.HasPrefix(norm, "terminal "):
	case norm == "configure terminal":
		if c.mode != modePriv {
			c.write(invalidInput)
			break
		}
		c.write("Enter configuration commands, one per line.  End with CNTL/Z.\r\n")
		c.mode = modeConfig
	case strings.HasPrefix(norm, "show "):
		c.show(cmd)
	default:
		c.write(invalidInput)
	}
	return true
}

// enable 口令错误三次后回到用户模式
func (c *console) enable() {
	if c.dev.Secret() == "" {
		c.mode = modePriv
		return
	}
	for attempt := 0; attempt < 3; attempt++ {
		c.write("Password: ")
		s, err := c.readLine()
		if err != nil {
			return
		}
		c.write("\r\n")
		if c.dev.checkSecret(s) {
			c.mode = modePriv
			return
		}
	}
	c.write("% Bad secrets\r\n\r\n")
}

func (c *console) configCommand(cmd string) {
	f := strings.Fields(cmd)
	switch strings.ToLower(f[0]) {
	case "end", "exit":
		c.mode = modePriv
	case "enable":
		// enable secret [0|5] <value>
		if len(f) < 3 || strings.ToLower(f[1]) != "secret" {
			c.write("% Incomplete command.\r\n\r\n")
			return
		}
		value := f[len(f)-1]
		if len(f) > 4 {
			c.write(invalidInput)
			return
		}
		c.dev.setSecret(value)
		c.log.Debug("Simulate: enable secret changed")
	case "hostname":
		if len(f) != 2 {
			c.write("% Incomplete command.\r\n\r\n")
			return
		}
		c.dev.setHostname(f[1])
	case "no", "interface", "ip", "username", "line", "service", "logging":
		// 只接受，不建模
	default:
		c.write(invalidInput)
	}
}

// show 支持 "| include <regex>" 过滤
func (c *console) show(cmd string) {
	base, filter, piped := strings.Cut(cmd, "|")
	var re *regexp.Regexp
	if piped {
		f := strings.Fields(filter)
		if len(f) < 2 || !strings.HasPrefix("include", strings.ToLower(f[0])) || len(f[0]) < 3 {
			c.write(invalidInput)
			return
		}
		expr := strings.Join(f[1:], " ")
		var err error
		if re, err = regexp.Compile(expr); err != nil {
			re = regexp.MustCompile(regexp.QuoteMeta(expr))
		}
	}

	out, ok := c.dev.output(canonical(base), c.mode == modePriv)
	if !ok {
		c.write(invalidInput)
		return
	}
	if re == nil {
		c.write(out)
		return
	}
	for _, ln := range strings.SplitAfter(out, "\n") {
		if re.MatchString(strings.TrimRight(ln, "\r\n")) {
			c.write(ln)
		}
	}
}

var secretArg = regexp.MustCompile(`(?i)(secret\s+(?:\d\s+)?)\S+`)

func redactSecret(s string) string {
	return secretArg.ReplaceAllString(s, "${1}******")
}
