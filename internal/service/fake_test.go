package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sshcollectorpro/drconf/internal/model"
	"github.com/sshcollectorpro/drconf/pkg/prompt"
	"github.com/sshcollectorpro/drconf/pkg/transport"
)

// step 期望收到的一行，以及收到后设备追加的输出
type step struct {
	expect string
	reply  string
}

// fakeTransport 按脚本应答的传输层。收到的行与脚本不符时不应答，读取将超时
type fakeTransport struct {
	mu     sync.Mutex
	buf    string
	steps  []step
	sent   []string
	closes int
	done   chan struct{}
}

func newFake(greeting string, steps ...step) *fakeTransport {
	return &fakeTransport{buf: greeting, steps: steps, done: make(chan struct{})}
}

func (f *fakeTransport) closed() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

func (f *fakeTransport) Send(line string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed() {
		return transport.ErrClosed
	}
	f.sent = append(f.sent, line)
	if len(f.steps) > 0 && f.steps[0].expect == line {
		f.buf += f.steps[0].reply
		f.steps = f.steps[1:]
	}
	return nil
}

func (f *fakeTransport) ReadUntil(set *prompt.Set, timeout time.Duration) prompt.ReadResult {
	f.mu.Lock()
	if f.closed() {
		f.mu.Unlock()
		return prompt.TimeoutResult(transport.ErrClosed)
	}
	if m, ok := set.Match(f.buf); ok {
		f.buf = m.Remainder
		f.mu.Unlock()
		return prompt.MatchedResult(m)
	}
	f.mu.Unlock()

	select {
	case <-f.done:
		return prompt.TimeoutResult(transport.ErrClosed)
	case <-time.After(timeout):
		return prompt.TimeoutResult(nil)
	}
}

func (f *fakeTransport) IsAlive() bool { return !f.closed() }

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	if !f.closed() {
		close(f.done)
	}
	return nil
}

func (f *fakeTransport) Sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func (f *fakeTransport) Closes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closes
}

// fakeOpener 按主机名创建 fakeTransport，未登记的主机不可达
type fakeOpener struct {
	mu      sync.Mutex
	devices map[string]func() *fakeTransport
	errs    map[string]error
	opened  map[string]*fakeTransport
}

func newOpener() *fakeOpener {
	return &fakeOpener{
		devices: map[string]func() *fakeTransport{},
		errs:    map[string]error{},
		opened:  map[string]*fakeTransport{},
	}
}

func (o *fakeOpener) add(host string, mk func() *fakeTransport) *fakeOpener {
	o.devices[host] = mk
	return o
}

func (o *fakeOpener) Open(_ context.Context, ep transport.Endpoint) (transport.Transport, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.errs[ep.Host]; err != nil {
		return nil, err
	}
	mk, ok := o.devices[ep.Host]
	if !ok {
		return nil, &transport.ConnectError{Kind: transport.Unreachable, Addr: ep.Addr(), Err: errors.New("no route to host")}
	}
	tr := mk()
	o.opened[ep.Host] = tr
	return tr, nil
}

func (o *fakeOpener) transport(host string) *fakeTransport {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.opened[host]
}

var testCreds = model.Credentials{Username: "admin", Password: "cisco", Secret: "s3cret"}

const greeting = "\r\n\r\nUser Access Verification\r\n\r\nUsername: "

// iosLogin Telnet 登录与 enable 的完整应答
func iosLogin(host string) []step {
	return []step{
		{"admin", "admin\r\nPassword: "},
		{"cisco", "\r\n" + host + ">"},
		{"enable", "enable\r\nPassword: "},
		{"s3cret", "\r\n" + host + "#"},
	}
}

// iosCmd 回显命令、输出 output 后回到提示符 tail
func iosCmd(command, output, tail string) step {
	return step{command, command + "\r\n" + output + tail}
}

func device(host string, cmds ...step) func() *fakeTransport {
	return func() *fakeTransport {
		return newFake(greeting, append(iosLogin(host), cmds...)...)
	}
}

func telnetTarget(host string) model.Target {
	return model.Target{Addr: host, Host: host, Port: 23, Protocol: transport.Telnet}
}

func testOptions() SessionOptions {
	return SessionOptions{
		ExpectTimeout:  300 * time.Millisecond,
		PasswordGrace:  100 * time.Millisecond,
		CommandTimeout: 300 * time.Millisecond,
	}
}
