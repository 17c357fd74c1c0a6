package simulate

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"

	"github.com/sshcollectorpro/drconf/pkg/logger"
)

// Server 模拟一台 Cisco IOS 设备，同时提供 Telnet 与 SSH 入口
type Server struct {
	cfg     Config
	dev     *Device
	hostKey ssh.Signer

	telnetLn net.Listener
	sshLn    net.Listener

	mu     sync.Mutex
	active int
	conns  map[net.Conn]struct{}
	wg     sync.WaitGroup
}

// Start 按配置启动监听
func Start(cfg Config) (*Server, error) {
	s := &Server{
		cfg:   cfg,
		dev:   newDevice(cfg.Device, cfg.DataDir),
		conns: make(map[net.Conn]struct{}),
	}

	if cfg.SSHListen != "" {
		signer, err := loadOrCreateHostKey(cfg.HostKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to init host key: %w", err)
		}
		s.hostKey = signer
		if s.sshLn, err = net.Listen("tcp", cfg.SSHListen); err != nil {
			return nil, fmt.Errorf("listen ssh %s: %w", cfg.SSHListen, err)
		}
		logger.Infof("Simulate: ssh listening on %s", s.sshLn.Addr())
		s.acceptLoop(s.sshLn, s.handleSSH)
	}
	if cfg.TelnetListen != "" {
		ln, err := net.Listen("tcp", cfg.TelnetListen)
		if err != nil {
			s.Stop()
			return nil, fmt.Errorf("listen telnet %s: %w", cfg.TelnetListen, err)
		}
		s.telnetLn = ln
		logger.Infof("Simulate: telnet listening on %s", ln.Addr())
		s.acceptLoop(ln, s.handleTelnet)
	}
	return s, nil
}

// Device 模拟设备状态
func (s *Server) Device() *Device { return s.dev }

// TelnetAddr 实际监听地址，未启用时为空
func (s *Server) TelnetAddr() string { return addrOf(s.telnetLn) }

// SSHAddr 实际监听地址，未启用时为空
func (s *Server) SSHAddr() string { return addrOf(s.sshLn) }

func addrOf(ln net.Listener) string {
	if ln == nil {
		return ""
	}
	return ln.Addr().String()
}

// Stop 关闭监听与所有会话
func (s *Server) Stop() {
	for _, ln := range []net.Listener{s.telnetLn, s.sshLn} {
		if ln != nil {
			_ = ln.Close()
		}
	}
	s.mu.Lock()
	for c := range s.conns {
		_ = c.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Server) acceptLoop(ln net.Listener, handle func(net.Conn)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := ln.Accept()
			if err != nil {
				if errors.Is(err, net.ErrClosed) {
					return
				}
				logger.Warnf("Simulate: accept error: %v", err)
				time.Sleep(200 * time.Millisecond)
				continue
			}

			s.mu.Lock()
			if s.cfg.MaxConn > 0 && s.active >= s.cfg.MaxConn {
				s.mu.Unlock()
				_ = conn.Close()
				logger.Warn("Simulate: reject connection, max_conn exceeded")
				continue
			}
			s.active++
			s.conns[conn] = struct{}{}
			s.mu.Unlock()

			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				defer func() {
					_ = conn.Close()
					s.mu.Lock()
					s.active--
					delete(s.conns, conn)
					s.mu.Unlock()
				}()
				handle(conn)
			}()
		}
	}()
}

// idleToucher 每次读取前刷新读超时
func (s *Server) idleToucher(conn net.Conn) func() {
	if s.cfg.IdleSeconds <= 0 {
		return nil
	}
	idle := time.Duration(s.cfg.IdleSeconds) * time.Second
	return func() { _ = conn.SetReadDeadline(time.Now().Add(idle)) }
}

func (s *Server) sessionLog(proto string, conn net.Conn) *logrus.Entry {
	return logger.WithFields(logrus.Fields{"protocol": proto, "remote": conn.RemoteAddr().String()})
}

func (s *Server) handleTelnet(conn net.Conn) {
	log := s.sessionLog("telnet", conn)
	log.Debug("Simulate: telnet session start")
	c := newConsole(s.dev, conn, log, s.idleToucher(conn))
	if !c.telnetLogin() {
		return
	}
	c.serve()
}

func (s *Server) handleSSH(nc net.Conn) {
	log := s.sessionLog("ssh", nc)
	cfg := s.dev.cfg
	srvCfg := &ssh.ServerConfig{
		PasswordCallback: func(meta ssh.ConnMetadata, password []byte) (*ssh.Permissions, error) {
			if meta.User() == cfg.Username && string(password) == cfg.Password {
				return nil, nil
			}
			log.Debugf("Simulate: ssh auth failed (password), user %q", meta.User())
			return nil, fmt.Errorf("access denied")
		},
		// 兼容只使用 keyboard-interactive 的客户端
		KeyboardInteractiveCallback: func(meta ssh.ConnMetadata, challenge ssh.KeyboardInteractiveChallenge) (*ssh.Permissions, error) {
			answers, err := challenge(meta.User(), "", []string{"Password: "}, []bool{false})
			if err != nil {
				return nil, err
			}
			if meta.User() == cfg.Username && len(answers) == 1 && answers[0] == cfg.Password {
				return nil, nil
			}
			return nil, fmt.Errorf("access denied")
		},
	}
	srvCfg.AddHostKey(s.hostKey)

	conn, chans, reqs, err := ssh.NewServerConn(nc, srvCfg)
	if err != nil {
		log.Debugf("Simulate: ssh handshake failed: %v", err)
		return
	}
	defer conn.Close()
	go ssh.DiscardRequests(reqs)

	for ch := range chans {
		if ch.ChannelType() != "session" {
			_ = ch.Reject(ssh.UnknownChannelType, "unknown channel type")
			continue
		}
		channel, requests, err := ch.Accept()
		if err != nil {
			log.Warnf("Simulate: channel accept failed: %v", err)
			continue
		}
		go s.handleSession(channel, requests, log, nc)
	}
}

// handleSession 只支持 pty-req 与 shell
func (s *Server) handleSession(channel ssh.Channel, requests <-chan *ssh.Request, log *logrus.Entry, nc net.Conn) {
	defer channel.Close()
	for req := range requests {
		switch req.Type {
		case "pty-req", "env", "window-change":
			_ = req.Reply(true, nil)
		case "shell":
			_ = req.Reply(true, nil)
			log.Debug("Simulate: ssh shell start")
			c := newConsole(s.dev, channel, log, s.idleToucher(nc))
			if s.dev.cfg.Banner != "" {
				c.write(ensureCRLF(s.dev.cfg.Banner))
			}
			c.serve()
			return
		default:
			_ = req.Reply(false, nil)
		}
	}
}

// loadOrCreateHostKey 指定文件时加载或生成持久化的 RSA host key，否则生成临时 ed25519 密钥
func loadOrCreateHostKey(path string) (ssh.Signer, error) {
	if path == "" {
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, err
		}
		return ssh.NewSignerFromKey(priv)
	}

	if bs, err := os.ReadFile(path); err == nil {
		signer, err := ssh.ParsePrivateKey(bs)
		if err == nil {
			return signer, nil
		}
		logger.Warnf("Simulate: host key %s parse failed, regenerating: %v", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to ensure host key dir: %w", err)
	}
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("failed to generate host key: %w", err)
	}
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	if err := os.WriteFile(path, pemBytes, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write host key: %w", err)
	}
	logger.Infof("Simulate: host key generated at %s", path)
	return ssh.ParsePrivateKey(pemBytes)
}
