package pmanager

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mdedz/p2pchat/internal/connio"
	"github.com/mdedz/p2pchat/internal/peer"
)

func discardLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

// newTestPair wires a connio.Pair to one end of an in-memory net.Pipe
// and drains its events onto a buffered channel so connio.New's initial
// Connected emit never blocks.
func newTestPair(t *testing.T, connID string, box *peer.Box) (*connio.Pair, chan connio.Event) {
	t.Helper()
	a, b := net.Pipe()
	t.Cleanup(func() { a.Close(); b.Close() })

	events := make(chan connio.Event, 16)
	return connio.New(a, connID, box, events, discardLog()), events
}

func newManager(t *testing.T) *Manager {
	t.Helper()
	m := New(discardLog())
	t.Cleanup(m.Stop)
	return m
}

func TestAddConnRejectsDuplicateConnID(t *testing.T) {
	m := newManager(t)
	box := peer.NewBox(peer.Summary{RemoteAddr: "1.1.1.1:1"})
	pair, _ := newTestPair(t, "c1", box)

	if err := m.AddConn("c1", box, pair); err != nil {
		t.Fatalf("first AddConn: %v", err)
	}
	if err := m.AddConn("c1", box, pair); err == nil {
		t.Fatal("expected duplicate conn_id error")
	}
}

func TestRegisterNodePromotesConnToPeer(t *testing.T) {
	m := newManager(t)
	box := peer.NewBox(peer.Summary{RemoteAddr: "1.1.1.1:1"})
	pair, _ := newTestPair(t, "c1", box)

	if err := m.AddConn("c1", box, pair); err != nil {
		t.Fatalf("AddConn: %v", err)
	}

	summary := peer.Summary{NodeID: "node-1", ListenAddr: "1.1.1.1:4000", Uname: "alice"}
	if err := m.RegisterNode("c1", summary); err != nil {
		t.Fatalf("RegisterNode: %v", err)
	}

	// conns should no longer hold it...
	if _, err := m.GetConn("c1"); err == nil {
		t.Fatal("expected c1 to be gone from conns after promotion")
	}
	// ...and peers should.
	got, err := m.GetPeer("node-1")
	if err != nil {
		t.Fatalf("GetPeer: %v", err)
	}
	if got.NodeID != "node-1" || got.Uname != "alice" {
		t.Fatalf("got %+v", got)
	}
}

func TestRegisterNodeRequiresNodeID(t *testing.T) {
	m := newManager(t)
	box := peer.NewBox(peer.Summary{})
	pair, _ := newTestPair(t, "c1", box)

	if err := m.AddConn("c1", box, pair); err != nil {
		t.Fatalf("AddConn: %v", err)
	}
	if err := m.RegisterNode("c1", peer.Summary{Uname: "no-id"}); err == nil {
		t.Fatal("expected error registering a summary with no node_id")
	}
}

func TestRegisterNodeUnknownConnAndNode(t *testing.T) {
	m := newManager(t)
	if err := m.RegisterNode("ghost", peer.Summary{NodeID: "n1"}); err == nil {
		t.Fatal("expected error for unknown conn_id with no existing peer")
	}
}

func TestGetPeersIsDisjointFromConns(t *testing.T) {
	m := newManager(t)

	pendingBox := peer.NewBox(peer.Summary{RemoteAddr: "2.2.2.2:2"})
	pendingPair, _ := newTestPair(t, "pending", pendingBox)
	if err := m.AddConn("pending", pendingBox, pendingPair); err != nil {
		t.Fatalf("AddConn pending: %v", err)
	}

	promotedBox := peer.NewBox(peer.Summary{RemoteAddr: "3.3.3.3:3"})
	promotedPair, _ := newTestPair(t, "promoted", promotedBox)
	if err := m.AddConn("promoted", promotedBox, promotedPair); err != nil {
		t.Fatalf("AddConn promoted: %v", err)
	}
	if err := m.RegisterNode("promoted", peer.Summary{NodeID: "node-2"}); err != nil {
		t.Fatalf("RegisterNode: %v", err)
	}

	peers := m.GetPeers()
	if len(peers) != 1 || peers[0].NodeID != "node-2" {
		t.Fatalf("got %+v, want exactly node-2", peers)
	}
}

func TestSendToByConnIDBeforePromotion(t *testing.T) {
	m := newManager(t)
	box := peer.NewBox(peer.Summary{RemoteAddr: "4.4.4.4:4"})
	pair, _ := newTestPair(t, "c1", box)
	if err := m.AddConn("c1", box, pair); err != nil {
		t.Fatalf("AddConn: %v", err)
	}

	if err := m.SendTo("", "c1", "JOIN|{}"); err != nil {
		t.Fatalf("SendTo by conn_id: %v", err)
	}
}

func TestSendToByNodeIDAfterPromotion(t *testing.T) {
	m := newManager(t)
	box := peer.NewBox(peer.Summary{RemoteAddr: "5.5.5.5:5"})
	pair, _ := newTestPair(t, "c1", box)
	if err := m.AddConn("c1", box, pair); err != nil {
		t.Fatalf("AddConn: %v", err)
	}
	if err := m.RegisterNode("c1", peer.Summary{NodeID: "n5"}); err != nil {
		t.Fatalf("RegisterNode: %v", err)
	}

	if err := m.SendTo("n5", "", "MSG|hi"); err != nil {
		t.Fatalf("SendTo by node_id: %v", err)
	}
	if err := m.SendTo("", "c1", "MSG|hi"); err == nil {
		t.Fatal("expected error: c1 no longer pending after promotion")
	}
}

func TestContainsListenAddr(t *testing.T) {
	m := newManager(t)
	box := peer.NewBox(peer.Summary{ListenAddr: "6.6.6.6:6"})
	pair, _ := newTestPair(t, "c1", box)
	if err := m.AddConn("c1", box, pair); err != nil {
		t.Fatalf("AddConn: %v", err)
	}

	if !m.ContainsListenAddr("6.6.6.6:6") {
		t.Fatal("expected listen_addr to be known from a pending conn")
	}
	if m.ContainsListenAddr("nope:0") {
		t.Fatal("unexpected match for unknown address")
	}
}

func TestBroadcastNeverBlocksOnFullQueue(t *testing.T) {
	m := newManager(t)
	box := peer.NewBox(peer.Summary{RemoteAddr: "7.7.7.7:7"})
	pair, _ := newTestPair(t, "c1", box)
	if err := m.AddConn("c1", box, pair); err != nil {
		t.Fatalf("AddConn: %v", err)
	}
	if err := m.RegisterNode("c1", peer.Summary{NodeID: "n7"}); err != nil {
		t.Fatalf("RegisterNode: %v", err)
	}

	done := make(chan struct{})
	go func() {
		for i := 0; i < connio.SendQueueCap*2; i++ {
			m.Broadcast("MSG|spam")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Broadcast blocked past the queue's capacity")
	}
}

func TestRemoveConnAlsoScansPeers(t *testing.T) {
	m := newManager(t)
	box := peer.NewBox(peer.Summary{RemoteAddr: "8.8.8.8:8"})
	pair, _ := newTestPair(t, "c1", box)
	if err := m.AddConn("c1", box, pair); err != nil {
		t.Fatalf("AddConn: %v", err)
	}
	if err := m.RegisterNode("c1", peer.Summary{NodeID: "n8"}); err != nil {
		t.Fatalf("RegisterNode: %v", err)
	}

	m.RemoveConn("c1")

	if _, err := m.GetPeer("n8"); err == nil {
		t.Fatal("expected n8 to be gone after RemoveConn by its original conn_id")
	}
}
