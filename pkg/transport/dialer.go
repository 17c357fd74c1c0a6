package transport

import (
	"context"
	"fmt"
	"io"
	"time"
)

// Options 连接参数
type Options struct {
	ConnectTimeout time.Duration
	SendTimeout    time.Duration
	// KeepAlive SSH 保活间隔，<=0 关闭
	KeepAlive time.Duration
	// UseAgent 允许 SSH 使用 SSH_AUTH_SOCK 指向的 agent 密钥
	UseAgent   bool
	Algorithms Algorithms
	// Transcript 非空时输出 expect 引擎收发记录
	Transcript io.Writer
}

// Algorithms SSH 算法列表，为空时使用兼容旧设备的默认列表
type Algorithms struct {
	KeyExchanges      []string
	Ciphers           []string
	MACs              []string
	HostKeyAlgorithms []string
}

func (o Options) connectTimeout() time.Duration {
	if o.ConnectTimeout > 0 {
		return o.ConnectTimeout
	}
	return 10 * time.Second
}

func (o Options) sendTimeout() time.Duration {
	if o.SendTimeout > 0 {
		return o.SendTimeout
	}
	return 5 * time.Second
}

// Dialer 按协议打开 Telnet/SSH 会话
type Dialer struct {
	opts Options
}

// NewDialer 创建 Dialer
func NewDialer(opts Options) *Dialer {
	return &Dialer{opts: opts}
}

// Open 建立连接；失败时返回 *ConnectError
func (d *Dialer) Open(ctx context.Context, ep Endpoint) (Transport, error) {
	if ep.Host == "" {
		return nil, &ConnectError{Kind: Unreachable, Addr: ep.Addr(), Err: fmt.Errorf("empty host")}
	}
	switch ep.Protocol {
	case SSH:
		return d.openSSH(ctx, ep)
	case Telnet, "":
		return d.openTelnet(ctx, ep)
	default:
		return nil, &ConnectError{Kind: HandshakeFailed, Addr: ep.Addr(), Err: fmt.Errorf("unsupported protocol %q", ep.Protocol)}
	}
}
