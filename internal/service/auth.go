package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sshcollectorpro/drconf/internal/model"
	"github.com/sshcollectorpro/drconf/pkg/logger"
	"github.com/sshcollectorpro/drconf/pkg/prompt"
	"github.com/sshcollectorpro/drconf/pkg/transport"
)

// SessionState 会话状态，只会向前推进
type SessionState int

const (
	StateConnecting SessionState = iota
	StateAuthenticatingLogin
	StateAuthenticatingEnable
	StateReady
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticatingLogin:
		return "authenticating_login"
	case StateAuthenticatingEnable:
		return "authenticating_enable"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrSessionNotReady 会话未就绪或已关闭
var ErrSessionNotReady = errors.New("session not ready")

// SessionOptions 认证与命令执行参数
type SessionOptions struct {
	// Prompts 提示符识别器，为空时使用内置集合
	Prompts *prompt.Set
	// ExpectTimeout 等待必现提示符的时间
	ExpectTimeout time.Duration
	// PasswordGrace 等待可能不出现的 Password: 提示的时间
	PasswordGrace time.Duration
	// CommandTimeout 单条命令等待结束符的时间
	CommandTimeout time.Duration
	// DisablePagingCmds 进入特权模式后下发的关闭分页命令
	DisablePagingCmds []string
	// OutputLines 调试日志中命令输出的首尾行数
	OutputLines int
}

func (o SessionOptions) withDefaults() SessionOptions {
	if o.Prompts == nil {
		o.Prompts = prompt.Default()
	}
	if o.ExpectTimeout <= 0 {
		o.ExpectTimeout = prompt.DefaultTimeout
	}
	if o.PasswordGrace <= 0 {
		o.PasswordGrace = o.ExpectTimeout / 2
	}
	if o.CommandTimeout <= 0 {
		o.CommandTimeout = 10 * time.Second
	}
	if o.OutputLines <= 0 {
		o.OutputLines = 10
	}
	return o
}

// Session 已认证的设备会话，独占一个 Transport，由单个 goroutine 使用
type Session struct {
	target model.Target
	tr     transport.Transport
	opts   SessionOptions
	log    *logrus.Entry

	mu    sync.Mutex
	state SessionState
	// prompts 就绪后按主机名收紧的识别器
	prompts  *prompt.Set
	hostname string
	// stopWatch 取消 ctx 监听
	stopWatch func() bool
	closeOnce sync.Once
	trOnce    sync.Once
	trErr     error
}

// State 当前状态
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Hostname 就绪时从特权提示符中取得的主机名
func (s *Session) Hostname() string { return s.hostname }

// Target 会话对应的设备
func (s *Session) Target() model.Target { return s.target }

func (s *Session) advance(next SessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if next > s.state {
		s.state = next
	}
}

// Close 关闭会话与底层连接，可重复调用
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.advance(StateClosed)
		if s.stopWatch != nil {
			s.stopWatch()
		}
		err = s.closeTransport()
		s.log.Debug("session closed")
	})
	return err
}

// closeTransport 中断监听与 Close 都会调用，底层连接只关闭一次
func (s *Session) closeTransport() error {
	s.trOnce.Do(func() { s.trErr = s.tr.Close() })
	return s.trErr
}

// Authenticator 打开连接并完成登录与 enable 认证
type Authenticator struct {
	opener transport.Opener
	opts   SessionOptions
}

// NewAuthenticator 创建认证器
func NewAuthenticator(opener transport.Opener, opts SessionOptions) *Authenticator {
	return &Authenticator{opener: opener, opts: opts.withDefaults()}
}

// Login 建立会话并进入特权模式。失败时返回 *model.Failure，且连接已关闭
func (a *Authenticator) Login(ctx context.Context, target model.Target, creds model.Credentials) (*Session, error) {
	log := logger.ForTarget(target.Addr)
	log.Debugf("connecting via %s port %d", target.Protocol, target.Port)

	tr, err := a.opener.Open(ctx, target.Endpoint(creds))
	if err != nil {
		return nil, connectFailure(ctx, target, err)
	}

	s := &Session{target: target, tr: tr, opts: a.opts, log: log, state: StateConnecting}
	// 中断时关闭连接，阻塞中的读取随之返回
	s.stopWatch = context.AfterFunc(ctx, func() { _ = s.closeTransport() })

	if f := a.authenticate(ctx, s, creds); f != nil {
		_ = s.Close()
		return nil, f
	}
	return s, nil
}

func connectFailure(ctx context.Context, target model.Target, err error) *model.Failure {
	f := &model.Failure{Target: target.Addr, Stage: model.StageConnect, Detail: err.Error()}
	switch {
	case ctx.Err() != nil:
		f.Reason = model.ReasonCancelled
	case transport.IsKind(err, transport.HandshakeFailed):
		f.Reason = model.ReasonHandshakeFailed
	case transport.IsKind(err, transport.AuthRejected):
		// SSH 在握手阶段校验用户名口令
		f.Stage, f.Reason = model.StageLogin, model.ReasonBadCredentials
	default:
		f.Reason = model.ReasonUnreachable
	}
	return f
}

// authenticate 登录与 enable 流程：
// 用户名提示可能不出现；Password: 提示可能不出现；enable 总会下发
func (a *Authenticator) authenticate(ctx context.Context, s *Session, creds model.Credentials) *model.Failure {
	fail := func(stage model.Stage, reason model.Reason, detail string) *model.Failure {
		if ctx.Err() != nil {
			reason = model.ReasonCancelled
		}
		s.log.Debugf("%s failed (%s): %s", stage, reason, detail)
		return &model.Failure{Target: s.target.Addr, Stage: stage, Reason: reason, Detail: detail}
	}
	send := func(stage model.Stage, line string) *model.Failure {
		if err := s.tr.Send(line); err != nil {
			return fail(stage, model.ReasonTimeout, err.Error())
		}
		return nil
	}

	s.advance(StateAuthenticatingLogin)

	res, silent := a.readLogin(s, creds.Username)
	if silent {
		return fail(model.StageLogin, model.ReasonTimeout, "no login prompt")
	}

	if res.Is(prompt.PasswordPrompt) {
		if f := send(model.StageLogin, creds.Password); f != nil {
			return f
		}
		res = a.read(s.tr, a.opts.ExpectTimeout, prompt.UserExec, prompt.PrivExec, prompt.LoginPrompt, prompt.PasswordPrompt, prompt.AuthFailed)
	}
	if !res.Is(prompt.UserExec) && !res.Is(prompt.PrivExec) {
		return fail(model.StageLogin, model.ReasonBadCredentials, describe(res))
	}

	s.advance(StateAuthenticatingEnable)

	if f := send(model.StageEnable, "enable"); f != nil {
		return f
	}
	res = a.read(s.tr, a.opts.ExpectTimeout, prompt.PasswordPrompt, prompt.PrivExec, prompt.AuthFailed)
	if res.Is(prompt.PasswordPrompt) {
		if f := send(model.StageEnable, creds.Secret); f != nil {
			return f
		}
		res = a.read(s.tr, a.opts.ExpectTimeout, prompt.PrivExec, prompt.AuthFailed, prompt.PasswordPrompt)
	}
	if !res.Is(prompt.PrivExec) {
		return fail(model.StageEnable, model.ReasonBadSecret, describe(res))
	}

	s.hostname = prompt.HostFromPrompt(res.Match.Text)
	prompts, err := a.opts.Prompts.ForHost(s.hostname)
	if err != nil {
		prompts = a.opts.Prompts
	}
	s.prompts = prompts
	s.advance(StateReady)
	s.log.Debugf("session ready, hostname %q", s.hostname)

	for _, cmd := range a.opts.DisablePagingCmds {
		// 关闭分页失败不影响后续操作，长输出会在命令超时中体现
		if _, err := s.Run(ctx, cmd); err != nil {
			s.log.Warnf("disable paging %q failed: %v", cmd, err)
			if s.State() != StateReady || ctx.Err() != nil {
				return fail(model.StageEnable, model.ReasonTimeout, err.Error())
			}
		}
	}
	return nil
}

// readLogin 等待登录阶段的提示符，silent 表示 Telnet 连接后设备没有任何提示符输出。
// Telnet 先出现 Username:；SSH 的用户名已在握手中提交。
// 之后 Password: 可能不出现，宽限期内未见则继续等待 exec 提示符，
// 此时超时按凭据错误处理
func (a *Authenticator) readLogin(s *Session, username string) (res prompt.ReadResult, silent bool) {
	if s.target.Protocol != transport.SSH {
		res = a.read(s.tr, a.opts.ExpectTimeout, prompt.LoginPrompt, prompt.PasswordPrompt, prompt.UserExec, prompt.PrivExec, prompt.AuthFailed)
		if res.IsTimeout() {
			return res, true
		}
		if !res.Is(prompt.LoginPrompt) {
			return res, false
		}
		if err := s.tr.Send(username); err != nil {
			return prompt.TimeoutResult(err), false
		}
	}

	res = a.read(s.tr, a.opts.PasswordGrace, prompt.PasswordPrompt, prompt.UserExec, prompt.PrivExec, prompt.AuthFailed, prompt.LoginPrompt)
	if !res.IsTimeout() {
		return res, false
	}
	s.log.Debug("no password prompt, waiting for exec prompt")
	res = a.read(s.tr, a.opts.ExpectTimeout, prompt.UserExec, prompt.PrivExec, prompt.AuthFailed, prompt.LoginPrompt)
	return res, false
}

func (a *Authenticator) read(tr transport.Transport, timeout time.Duration, names ...prompt.Name) prompt.ReadResult {
	set, err := a.opts.Prompts.Select(names...)
	if err != nil {
		return prompt.TimeoutResult(err)
	}
	return tr.ReadUntil(set, timeout)
}

// describe 失败详情，不包含设备输出以免带出敏感信息
func describe(res prompt.ReadResult) string {
	if res.IsTimeout() {
		if res.Err != nil {
			return "timeout: " + res.Err.Error()
		}
		return "timeout"
	}
	return "unexpected " + string(res.Match.Pattern) + " prompt " + fmt.Sprintf("%q", strings.TrimSpace(res.Match.Text))
}
