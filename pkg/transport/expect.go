package transport

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	expect "github.com/google/goexpect"

	"github.com/sshcollectorpro/drconf/pkg/prompt"
)

// stream 交给 expect 引擎驱动的底层字节流
type stream struct {
	in    io.WriteCloser
	out   io.Reader
	wait  func() error
	close func() error
	// probe 主动探活（如 SSH keepalive），可为空
	probe func() bool
}

// expectTransport 基于 goexpect 的通用实现，Telnet 与 SSH 共用
type expectTransport struct {
	exp     *expect.GExpect
	addr    string
	newline string

	once   sync.Once
	closed atomic.Bool
	// dead 底层流的 Wait 已返回（对端断开或本地关闭）
	dead  atomic.Bool
	probe func() bool
}

func spawn(addr string, s stream, newline string, opts Options) (*expectTransport, error) {
	t := &expectTransport{addr: addr, newline: newline, probe: s.probe}

	eopts := []expect.Option{expect.SendTimeout(opts.sendTimeout())}
	if opts.Transcript != nil {
		eopts = append(eopts, expect.Verbose(true), expect.VerboseWriter(opts.Transcript))
	}

	exp, errCh, err := expect.SpawnGeneric(&expect.GenOptions{
		In:    s.in,
		Out:   s.out,
		Wait:  s.wait,
		Close: s.close,
		Check: func() bool { return !t.dead.Load() && !t.closed.Load() },
	}, opts.connectTimeout(), eopts...)
	if err != nil {
		_ = s.close()
		return nil, fmt.Errorf("spawn expecter for %s: %w", addr, err)
	}
	t.exp = exp

	go func() {
		<-errCh
		t.dead.Store(true)
	}()
	return t, nil
}

func (t *expectTransport) Send(line string) error {
	if t.closed.Load() {
		return ErrClosed
	}
	if t.dead.Load() {
		return fmt.Errorf("send to %s: %w", t.addr, io.ErrClosedPipe)
	}
	if err := t.exp.Send(line + t.newline); err != nil {
		return fmt.Errorf("send to %s: %w", t.addr, err)
	}
	return nil
}

func (t *expectTransport) ReadUntil(set *prompt.Set, timeout time.Duration) prompt.ReadResult {
	if t.closed.Load() {
		return prompt.TimeoutResult(ErrClosed)
	}
	if timeout <= 0 {
		timeout = prompt.DefaultTimeout
	}
	out, _, err := t.exp.Expect(set.Regexp(), timeout)
	if err != nil {
		// 定时器到期、对端断开、本地关闭都归为超时
		return prompt.TimeoutResult(err)
	}
	m, ok := set.Match(out)
	if !ok {
		return prompt.TimeoutResult(fmt.Errorf("unclassified output from %s", t.addr))
	}
	return prompt.MatchedResult(m)
}

func (t *expectTransport) IsAlive() bool {
	if t.closed.Load() || t.dead.Load() {
		return false
	}
	if t.probe != nil {
		return t.probe()
	}
	return true
}

func (t *expectTransport) Close() error {
	t.once.Do(func() {
		t.closed.Store(true)
		// 对端已断开时关闭错误没有意义
		_ = t.exp.Close()
	})
	return nil
}
