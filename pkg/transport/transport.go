package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/sshcollectorpro/drconf/pkg/prompt"
)

// Protocol 会话协议
type Protocol string

const (
	Telnet Protocol = "telnet"
	SSH    Protocol = "ssh"
)

// ParseProtocol 解析协议名称，空串按 telnet 处理
func ParseProtocol(s string) (Protocol, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "telnet":
		return Telnet, nil
	case "ssh":
		return SSH, nil
	default:
		return "", fmt.Errorf("unsupported protocol %q", s)
	}
}

// DefaultPort 协议默认端口
func (p Protocol) DefaultPort() int {
	if p == SSH {
		return 22
	}
	return 23
}

// Endpoint 连接目标。SSH 在握手阶段使用 Username/Password，Telnet 忽略二者
type Endpoint struct {
	Protocol Protocol
	Host     string
	Port     int
	Username string
	Password string
}

// Addr host:port
func (e Endpoint) Addr() string {
	port := e.Port
	if port <= 0 {
		port = e.Protocol.DefaultPort()
	}
	return net.JoinHostPort(e.Host, strconv.Itoa(port))
}

// Transport 行式交互通道。同一时刻只允许一个调用方使用
type Transport interface {
	// Send 发送一行（自动追加行结束符）
	Send(line string) error
	// ReadUntil 读取直到命中集合中的提示符或超时；超时是正常结果
	ReadUntil(set *prompt.Set, timeout time.Duration) prompt.ReadResult
	// IsAlive 底层连接是否仍可用
	IsAlive() bool
	// Close 幂等关闭，对已断开的连接同样返回 nil
	Close() error
}

// ErrClosed 在已关闭的通道上读写
var ErrClosed = errors.New("transport closed")

// ErrorKind 连接错误分类
type ErrorKind string

const (
	// Unreachable TCP 层不可达（拒绝、超时、DNS）
	Unreachable ErrorKind = "unreachable"
	// HandshakeFailed 协议协商失败（SSH 算法不匹配、通道/PTY 打开失败等）
	HandshakeFailed ErrorKind = "handshake_failed"
	// AuthRejected SSH 握手阶段认证被拒
	AuthRejected ErrorKind = "auth_rejected"
)

// ConnectError 打开连接失败
type ConnectError struct {
	Kind ErrorKind
	Addr string
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect %s: %s: %v", e.Addr, e.Kind, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// IsKind 判断 err 是否为指定类别的连接错误
func IsKind(err error, kind ErrorKind) bool {
	var ce *ConnectError
	return errors.As(err, &ce) && ce.Kind == kind
}

// Opener 打开会话通道的抽象，便于测试替换
type Opener interface {
	Open(ctx context.Context, ep Endpoint) (Transport, error)
}
