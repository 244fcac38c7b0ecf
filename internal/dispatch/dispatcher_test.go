package dispatch

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mdedz/p2pchat/internal/connio"
	"github.com/mdedz/p2pchat/internal/gossip"
	"github.com/mdedz/p2pchat/internal/peer"
	"github.com/mdedz/p2pchat/internal/pmanager"
)

func discardLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func newTestPair(t *testing.T, connID string, box *peer.Box, events chan<- connio.Event) *connio.Pair {
	t.Helper()
	a, b := net.Pipe()
	t.Cleanup(func() { a.Close(); b.Close() })
	return connio.New(a, connID, box, events, discardLog())
}

func TestHandleJoinPromotesAndMergesKnownFields(t *testing.T) {
	mgr := pmanager.New(discardLog())
	t.Cleanup(mgr.Stop)

	events := make(chan connio.Event, 16)
	box := peer.NewBox(peer.Summary{RemoteAddr: "9.9.9.9:9"})
	pair := newTestPair(t, "c1", box, events)
	if err := mgr.AddConn("c1", box, pair); err != nil {
		t.Fatalf("AddConn: %v", err)
	}
	<-events // discard the Connected event connio.New emits

	frontend := make(chan FrontendEvent, 4)
	d := New(mgr, nil, frontend, discardLog())

	announced := peer.Summary{NodeID: "node-9", ListenAddr: "9.9.9.9:4009", Uname: "bob"}
	d.handle(connio.Event{Kind: connio.Join, ConnID: "c1", Line: gossip.EncodeJoin(announced)})

	got, err := mgr.GetPeer("node-9")
	if err != nil {
		t.Fatalf("GetPeer: %v", err)
	}
	if got.RemoteAddr != "9.9.9.9:9" {
		t.Fatalf("expected remote_addr preserved from accept time, got %+v", got)
	}
	if got.ListenAddr != "9.9.9.9:4009" || got.Uname != "bob" {
		t.Fatalf("expected announced fields applied, got %+v", got)
	}

	select {
	case fe := <-frontend:
		if fe.Kind != PeerJoined || fe.NodeID != "node-9" {
			t.Fatalf("unexpected frontend event %+v", fe)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a PeerJoined frontend event")
	}
}

func TestHandleMessageSplitsPrefixAndLooksUpUname(t *testing.T) {
	mgr := pmanager.New(discardLog())
	t.Cleanup(mgr.Stop)

	events := make(chan connio.Event, 16)
	box := peer.NewBox(peer.Summary{RemoteAddr: "1.2.3.4:1"})
	pair := newTestPair(t, "c1", box, events)
	if err := mgr.AddConn("c1", box, pair); err != nil {
		t.Fatalf("AddConn: %v", err)
	}
	<-events
	if err := mgr.RegisterNode("c1", peer.Summary{NodeID: "n1", Uname: "carol"}); err != nil {
		t.Fatalf("RegisterNode: %v", err)
	}

	frontend := make(chan FrontendEvent, 4)
	d := New(mgr, nil, frontend, discardLog())
	d.handle(connio.Event{Kind: connio.Message, ConnID: "c1", NodeID: "n1", Line: "MSG|hello there"})

	select {
	case fe := <-frontend:
		if fe.Kind != MessageReceived || fe.From != "carol" || fe.Content != "hello there" {
			t.Fatalf("unexpected frontend event %+v", fe)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a MessageReceived frontend event")
	}
}

func TestHandleDisconnectedRemovesConnAndEmits(t *testing.T) {
	mgr := pmanager.New(discardLog())
	t.Cleanup(mgr.Stop)

	events := make(chan connio.Event, 16)
	box := peer.NewBox(peer.Summary{RemoteAddr: "1.1.1.1:1"})
	pair := newTestPair(t, "c1", box, events)
	if err := mgr.AddConn("c1", box, pair); err != nil {
		t.Fatalf("AddConn: %v", err)
	}
	<-events
	if err := mgr.RegisterNode("c1", peer.Summary{NodeID: "n1"}); err != nil {
		t.Fatalf("RegisterNode: %v", err)
	}

	frontend := make(chan FrontendEvent, 4)
	d := New(mgr, nil, frontend, discardLog())
	d.handle(connio.Event{Kind: connio.Disconnected, ConnID: "c1", NodeID: "n1"})

	if _, err := mgr.GetPeer("n1"); err == nil {
		t.Fatal("expected n1 removed after Disconnected event")
	}
	select {
	case fe := <-frontend:
		if fe.Kind != PeerDisconnected || fe.NodeID != "n1" {
			t.Fatalf("unexpected frontend event %+v", fe)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a PeerDisconnected frontend event")
	}
}
