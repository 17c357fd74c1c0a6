package transport

import (
	"context"
	"net"
	"sync"

	"github.com/ziutek/telnet"
)

// watchedReader 读出错时关闭 done，作为 expect 引擎的 Wait 信号
type watchedReader struct {
	r    *telnet.Conn
	once *sync.Once
	done chan struct{}
}

func (w watchedReader) Read(p []byte) (int, error) {
	n, err := w.r.Read(p)
	if err != nil {
		w.once.Do(func() { close(w.done) })
	}
	return n, err
}

func (d *Dialer) openTelnet(ctx context.Context, ep Endpoint) (Transport, error) {
	addr := ep.Addr()
	dialer := &net.Dialer{Timeout: d.opts.connectTimeout()}
	raw, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &ConnectError{Kind: Unreachable, Addr: addr, Err: err}
	}
	conn, err := telnet.NewConn(raw)
	if err != nil {
		raw.Close()
		return nil, &ConnectError{Kind: HandshakeFailed, Addr: addr, Err: err}
	}
	// 发送时将 \n 转换为 \r\n
	conn.SetUnixWriteMode(true)

	var once sync.Once
	done := make(chan struct{})
	t, err := spawn(addr, stream{
		in:  conn,
		out: watchedReader{r: conn, once: &once, done: done},
		wait: func() error {
			<-done
			return nil
		},
		close: func() error {
			err := conn.Close()
			once.Do(func() { close(done) })
			return err
		},
	}, "\n", d.opts)
	if err != nil {
		return nil, &ConnectError{Kind: HandshakeFailed, Addr: addr, Err: err}
	}
	return t, nil
}
