package query

import (
	"encoding/binary"
	"errors"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	gophertunnelquery "github.com/sandertv/gophertunnel/query"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}

type packetRecorder struct {
	writes [][]byte
	addrs  []net.Addr
}

func (p *packetRecorder) ReadFrom([]byte) (int, net.Addr, error) {
	return 0, nil, errors.New("not implemented")
}

func (p *packetRecorder) WriteTo(b []byte, addr net.Addr) (int, error) {
	cp := append([]byte(nil), b...)
	p.writes = append(p.writes, cp)
	p.addrs = append(p.addrs, addr)
	return len(b), nil
}

func (p *packetRecorder) Close() error { return nil }

func (p *packetRecorder) LocalAddr() net.Addr { return &net.UDPAddr{} }

func (p *packetRecorder) SetDeadline(time.Time) error { return nil }

func (p *packetRecorder) SetReadDeadline(time.Time) error { return nil }

func (p *packetRecorder) SetWriteDeadline(time.Time) error { return nil }

func TestQueryResponsesParseWithGophertunnel(t *testing.T) {
	expected := Data{
		HostName:      "Test Server",
		WorldName:     "world",
		Engine:        "Chunk Engine (integration)",
		Version:       "1.21.100",
		LoadedColumns: 441,
		Viewers:       3,
		ForcedChunks:  2,
		TPS:           "19.98",
		Tick:          1200,
		GameType:      "SMP",
		GameID:        "MINECRAFTPE",
	}

	l, err := Listen("127.0.0.1:0", nil, func(host string, port int) Data {
		data := expected
		data.HostIP = host
		data.HostPort = port
		return data
	})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() {
		if err := l.Close(); err != nil && !isClosedError(err) {
			t.Fatalf("close listener: %v", err)
		}
	})
	addr := l.Addr().(*net.UDPAddr)

	information, err := gophertunnelquery.Do(addr.String())
	if err != nil {
		t.Fatalf("query do: %v", err)
	}

	checks := map[string]string{
		"hostname":       expected.HostName,
		"gametype":       expected.GameType,
		"game_id":        expected.GameID,
		"version":        expected.Version,
		"server_engine":  expected.Engine,
		"map":            expected.WorldName,
		"numplayers":     strconv.Itoa(expected.Viewers),
		"hostport":       strconv.Itoa(addr.Port),
		"hostip":         addr.IP.String(),
		"loaded_columns": strconv.Itoa(expected.LoadedColumns),
		"forced_chunks":  strconv.Itoa(expected.ForcedChunks),
		"tps":            expected.TPS,
		"tick":           "1200",
	}

	for key, want := range checks {
		got, ok := information[key]
		if !ok {
			t.Fatalf("expected key %q to be present in query information", key)
		}
		if got != want {
			t.Fatalf("unexpected value for key %q: got %q, want %q", key, got, want)
		}
	}
}

func TestDefaultData(t *testing.T) {
	d := collectData(nil, "", 19132)
	if d.HostIP != "0.0.0.0" || d.HostPort != 19132 {
		t.Fatalf("expected default host 0.0.0.0:19132, got %v:%v", d.HostIP, d.HostPort)
	}
	if d.GameType != "SMP" || d.Engine == "" || d.TPS != "0.00" {
		t.Fatalf("expected defaults to be applied, got %+v", d)
	}
}

func TestHandleQueryAcceptsASCIIChallengeTokens(t *testing.T) {
	recorder := &packetRecorder{}
	pc := &packetConn{
		PacketConn: recorder,
		log:        nopLogger{},
		host:       "0.0.0.0",
		port:       19132,
	}

	addr := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 43210}

	pc.mu.Lock()
	pc.tokens = map[string]token{
		addr.String(): {
			value:  7654321,
			expiry: time.Now().Add(time.Minute),
		},
	}
	pc.mu.Unlock()

	payload := make([]byte, 0, 7+7+5)
	payload = append(payload, queryVersion[:]...)
	payload = append(payload, queryTypeInformation)
	seq := make([]byte, 4)
	binary.BigEndian.PutUint32(seq, 42)
	payload = append(payload, seq...)
	payload = append(payload, []byte("7654321")...)
	payload = append(payload, 0x00)
	payload = append(payload, 0xff, 0xff, 0xff, 0x01)

	handled := pc.handleQuery(payload, addr)
	if !handled {
		t.Fatalf("expected query information request to be handled")
	}
	if len(recorder.writes) != 1 {
		t.Fatalf("expected one response write, got %d", len(recorder.writes))
	}
}

func isClosedError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, net.ErrClosed) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return isClosedError(opErr.Err)
	}
	return strings.Contains(err.Error(), "use of closed network connection")
}
