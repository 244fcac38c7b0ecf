package node

import (
	"io"
	"net"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/mdedz/p2pchat/internal/connio"
	"github.com/mdedz/p2pchat/internal/peer"
	"github.com/mdedz/p2pchat/internal/perr"
	"github.com/mdedz/p2pchat/internal/pmanager"
)

func discardLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func mustPipe(t *testing.T) net.Conn {
	t.Helper()
	a, b := net.Pipe()
	t.Cleanup(func() { a.Close(); b.Close() })
	return a
}

func TestDialRejectsSelfConnect(t *testing.T) {
	mgr := pmanager.New(discardLog())
	defer mgr.Stop()

	d := NewDialer("127.0.0.1:4000", nil, mgr, peer.Summary{ListenAddr: "127.0.0.1:4000"}, make(chan connio.Event, 4), discardLog())

	if err := d.Dial("127.0.0.1:4000"); err != perr.ErrSelfConnect {
		t.Fatalf("got %v, want ErrSelfConnect", err)
	}
}

func TestDialRejectsAlreadyKnownAddr(t *testing.T) {
	mgr := pmanager.New(discardLog())
	defer mgr.Stop()

	events := make(chan connio.Event, 4)
	box := peer.NewBox(peer.Summary{ListenAddr: "10.0.0.5:9000"})
	pair := connio.New(mustPipe(t), "c1", box, events, discardLog())
	defer pair.Close()
	if err := mgr.AddConn("c1", box, pair); err != nil {
		t.Fatalf("AddConn: %v", err)
	}
	<-events // Connected

	d := NewDialer("127.0.0.1:4000", nil, mgr, peer.Summary{}, events, discardLog())
	if err := d.Dial("10.0.0.5:9000"); err == nil {
		t.Fatal("expected an already-known error, got nil")
	}
}
