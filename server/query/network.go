package query

import (
	"errors"
	"log/slog"
	"net"
	"sync"
)

// Listener answers status queries on a UDP socket.
type Listener struct {
	conn *packetConn
	wg   sync.WaitGroup
}

// Listen starts answering status queries on the UDP address passed. Data of
// the answers is produced by the provider passed.
func Listen(address string, log *slog.Logger, provider ProviderFunc) (*Listener, error) {
	if log == nil {
		log = slog.Default()
	}
	conn, err := net.ListenPacket("udp", address)
	if err != nil {
		return nil, err
	}
	local, _ := net.ResolveUDPAddr("udp", conn.LocalAddr().String())
	host := ""
	if local != nil && local.IP != nil {
		host = local.IP.String()
		if host == "" || local.IP.IsUnspecified() {
			host = "0.0.0.0"
		}
	}
	port := 0
	if local != nil {
		port = local.Port
	}
	l := &Listener{conn: &packetConn{
		PacketConn: conn,
		log:        log.With("net origin", "query"),
		host:       host,
		port:       port,
		provider:   provider,
	}}
	l.wg.Add(1)
	go l.serve()
	return l, nil
}

// serve answers queries until the socket is closed. Datagrams that are not
// queries are dropped.
func (l *Listener) serve() {
	defer l.wg.Done()
	buf := make([]byte, 2048)
	for {
		n, addr, err := l.conn.PacketConn.ReadFrom(buf)
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				l.conn.log.Debug("query read failed", "err", err)
			}
			return
		}
		l.conn.handleQuery(buf[:n], addr)
	}
}

// Addr returns the address the Listener is bound to.
func (l *Listener) Addr() net.Addr {
	return l.conn.LocalAddr()
}

// Close closes the socket of the Listener and waits for it to stop serving.
func (l *Listener) Close() error {
	err := l.conn.Close()
	l.wg.Wait()
	return err
}
