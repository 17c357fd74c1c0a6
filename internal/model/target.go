package model

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/sshcollectorpro/drconf/pkg/transport"
)

// Target 待处理设备，每个有效的路由器清单行对应一个
type Target struct {
	// Addr 清单中的原始地址（去掉协议前缀）
	Addr     string
	Host     string
	Port     int
	Protocol transport.Protocol
	// Line 在清单文件中的行号，从 1 开始
	Line int
	// Credentials 手动模式下的单设备凭据，为空时使用批量凭据
	Credentials *Credentials
}

func (t Target) String() string { return t.Addr }

// Endpoint 转换为传输层连接参数
func (t Target) Endpoint(creds Credentials) transport.Endpoint {
	return transport.Endpoint{
		Protocol: t.Protocol,
		Host:     t.Host,
		Port:     t.Port,
		Username: creds.Username,
		Password: creds.Password,
	}
}

// WithCredentials 返回带单设备凭据的副本
func (t Target) WithCredentials(c Credentials) Target {
	t.Credentials = &c
	return t
}

// ParseTarget 解析清单行：host、host:port、[v6]:port，可带 ssh:// 或 telnet:// 前缀。
// 未写端口时按协议取 ports 中的值，再退回协议默认端口
func ParseTarget(line string, defaultProto transport.Protocol, ports map[transport.Protocol]int) (Target, error) {
	s := strings.TrimSpace(line)
	proto := defaultProto
	if scheme, rest, ok := strings.Cut(s, "://"); ok {
		p, err := transport.ParseProtocol(scheme)
		if err != nil {
			return Target{}, err
		}
		proto, s = p, rest
	}
	s = strings.TrimSuffix(s, "/")
	if s == "" {
		return Target{}, fmt.Errorf("empty target")
	}

	host, port := s, 0
	if h, p, err := net.SplitHostPort(s); err == nil {
		n, perr := strconv.Atoi(p)
		if perr != nil || n <= 0 || n > 65535 {
			return Target{}, fmt.Errorf("invalid port in %q", line)
		}
		host, port = h, n
	} else if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		host = strings.Trim(s, "[]")
	}
	if strings.ContainsAny(host, " \t") || host == "" {
		return Target{}, fmt.Errorf("invalid host in %q", line)
	}
	if port == 0 {
		port = ports[proto]
	}
	if port <= 0 {
		port = proto.DefaultPort()
	}
	return Target{Addr: s, Host: host, Port: port, Protocol: proto}, nil
}
