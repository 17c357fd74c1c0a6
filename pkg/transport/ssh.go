package transport

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

// 兼容旧版 IOS 的算法列表
var (
	defaultKeyExchanges = []string{
		"diffie-hellman-group14-sha256",
		"diffie-hellman-group14-sha1",
		"diffie-hellman-group1-sha1",
		"diffie-hellman-group-exchange-sha256",
		"diffie-hellman-group-exchange-sha1",
		"ecdh-sha2-nistp256",
		"ecdh-sha2-nistp384",
		"ecdh-sha2-nistp521",
		"curve25519-sha256",
	}
	defaultCiphers = []string{
		"aes128-ctr",
		"aes192-ctr",
		"aes256-ctr",
		"aes128-gcm@openssh.com",
		"aes256-gcm@openssh.com",
		"aes128-cbc",
		"aes192-cbc",
		"aes256-cbc",
		"3des-cbc",
	}
	defaultMACs = []string{
		"hmac-sha2-256-etm@openssh.com",
		"hmac-sha2-256",
		"hmac-sha1",
		"hmac-sha1-96",
	}
	defaultHostKeyAlgorithms = []string{
		"ssh-rsa",
		"rsa-sha2-256",
		"rsa-sha2-512",
		"ecdsa-sha2-nistp256",
		"ecdsa-sha2-nistp384",
		"ecdsa-sha2-nistp521",
		"ssh-ed25519",
	}
)

// 终端类型回退顺序
var ptyTerms = []string{"vt100", "xterm", "ansi", "dumb"}

func pick(custom, def []string) []string {
	if len(custom) > 0 {
		return custom
	}
	return def
}

// sshConfig agentConn 非空时优先尝试 agent 中的密钥
func (d *Dialer) sshConfig(ep Endpoint, agentConn net.Conn) *ssh.ClientConfig {
	alg := d.opts.Algorithms
	cfg := &ssh.ClientConfig{
		User:            ep.Username,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         d.opts.connectTimeout(),
		Config: ssh.Config{
			KeyExchanges: pick(alg.KeyExchanges, defaultKeyExchanges),
			Ciphers:      pick(alg.Ciphers, defaultCiphers),
			MACs:         pick(alg.MACs, defaultMACs),
		},
		HostKeyAlgorithms: pick(alg.HostKeyAlgorithms, defaultHostKeyAlgorithms),
	}

	var methods []ssh.AuthMethod
	if agentConn != nil {
		methods = append(methods, ssh.PublicKeysCallback(agent.NewClient(agentConn).Signers))
	}
	// password 与 keyboard-interactive 同时提供，兼容不同设备的 AAA 配置
	methods = append(methods,
		ssh.Password(ep.Password),
		ssh.KeyboardInteractive(func(user, instruction string, questions []string, echos []bool) ([]string, error) {
			answers := make([]string, len(questions))
			for i := range questions {
				answers[i] = ep.Password
			}
			return answers, nil
		}),
	)
	cfg.Auth = methods
	return cfg
}

// dialAgent 连接 SSH_AUTH_SOCK，不可用时返回 nil。连接只在握手期间使用，由调用方关闭
func dialAgent() net.Conn {
	sock := os.Getenv("SSH_AUTH_SOCK")
	if sock == "" {
		return nil
	}
	conn, err := net.Dial("unix", sock)
	if err != nil {
		return nil
	}
	return conn
}

// classifyHandshake 区分认证失败与其他握手失败
func classifyHandshake(err error) ErrorKind {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "unable to authenticate") || strings.Contains(msg, "no supported methods remain") {
		return AuthRejected
	}
	return HandshakeFailed
}

func (d *Dialer) openSSH(ctx context.Context, ep Endpoint) (Transport, error) {
	addr := ep.Addr()
	dialer := &net.Dialer{Timeout: d.opts.connectTimeout()}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &ConnectError{Kind: Unreachable, Addr: addr, Err: err}
	}

	var agentConn net.Conn
	if d.opts.UseAgent {
		if agentConn = dialAgent(); agentConn != nil {
			defer agentConn.Close()
		}
	}

	// 握手同样受连接超时约束
	_ = conn.SetDeadline(time.Now().Add(d.opts.connectTimeout()))
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, d.sshConfig(ep, agentConn))
	if err != nil {
		conn.Close()
		return nil, &ConnectError{Kind: classifyHandshake(err), Addr: addr, Err: err}
	}
	_ = conn.SetDeadline(time.Time{})
	client := ssh.NewClient(sshConn, chans, reqs)

	fail := func(err error) (Transport, error) {
		client.Close()
		return nil, &ConnectError{Kind: HandshakeFailed, Addr: addr, Err: err}
	}

	session, err := client.NewSession()
	if err != nil {
		return fail(fmt.Errorf("open session: %w", err))
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	var ptyErr error
	for _, term := range ptyTerms {
		if ptyErr = session.RequestPty(term, 80, 24, modes); ptyErr == nil {
			break
		}
	}
	if ptyErr != nil {
		return fail(fmt.Errorf("request pty: %w", ptyErr))
	}

	stdin, err := session.StdinPipe()
	if err != nil {
		return fail(fmt.Errorf("stdin pipe: %w", err))
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		return fail(fmt.Errorf("stdout pipe: %w", err))
	}
	if err := session.Shell(); err != nil {
		return fail(fmt.Errorf("start shell: %w", err))
	}

	stopKeepAlive := make(chan struct{})
	var closeOnce sync.Once
	if d.opts.KeepAlive > 0 {
		go keepAlive(client, d.opts.KeepAlive, stopKeepAlive)
	}

	t, err := spawn(addr, stream{
		in:   stdin,
		out:  stdout,
		wait: session.Wait,
		close: func() error {
			var err error
			closeOnce.Do(func() {
				close(stopKeepAlive)
				session.Close()
				err = client.Close()
			})
			return err
		},
		probe: func() bool {
			// 轻量级探活：不创建会话，避免触发设备会话数上限
			_, _, err := client.SendRequest("keepalive@openssh.com", false, nil)
			return err == nil
		},
	}, "\n", d.opts)
	if err != nil {
		return nil, &ConnectError{Kind: HandshakeFailed, Addr: addr, Err: err}
	}
	return t, nil
}

func keepAlive(client *ssh.Client, every time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if _, _, err := client.SendRequest("keepalive@openssh.com", false, nil); err != nil {
				return
			}
		}
	}
}
