// Package connio owns one transport stream (plain TCP or TLS) per
// connection: a writer task draining a bounded send queue, and a reader
// task that frames newline-delimited text into typed Events.
package connio

import (
	"bufio"
	"errors"
	"io"
	"net"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/mdedz/p2pchat/internal/peer"
)

const (
	// SendQueueCap is the bounded outbound queue capacity per
	// connection (§3, §5). A full queue fails a broadcast push for
	// that peer rather than blocking the sender.
	SendQueueCap = 60

	prefixJoin  = "JOIN|"
	prefixPeers = "PEERS|"
	prefixMsg   = "MSG"
)

// Pair is the per-connection I/O handle: one underlying net.Conn, one
// writer goroutine, one reader goroutine, and the producer end of the
// bounded send queue handed out to the peer manager's entry.
type Pair struct {
	ConnID string

	conn net.Conn
	box  *peer.Box
	send chan string
	log  *logrus.Entry

	closeOnce sync.Once
	closeCh   chan struct{}
}

// New wraps conn into a Pair, spawns its reader and writer tasks, and
// begins forwarding typed Events onto events. box is the connection's
// mutable Summary cell — shared with the peer manager entry so the
// reader always observes the current node_id.
func New(conn net.Conn, connID string, box *peer.Box, events chan<- Event, log *logrus.Entry) *Pair {
	p := &Pair{
		ConnID:  connID,
		conn:    conn,
		box:     box,
		send:    make(chan string, SendQueueCap),
		log:     log.WithField("conn_id", connID),
		closeCh: make(chan struct{}),
	}

	go p.writeLoop()
	go p.readLoop(events)

	events <- Event{Kind: Connected, ConnID: connID, NodeID: box.NodeID()}

	return p
}

// Send enqueues msg for transmission. Returns false if the queue is
// full or the connection already closed — callers (the manager's
// broadcast/send-to) must treat that as "drop and log", never block.
func (p *Pair) Send(msg string) bool {
	select {
	case <-p.closeCh:
		return false
	default:
	}
	select {
	case p.send <- msg:
		return true
	default:
		return false
	}
}

// Close stops the send queue (later Sends return false) and closes the
// underlying transport exactly once; both I/O tasks observe this and
// exit.
func (p *Pair) Close() {
	p.closeOnce.Do(func() {
		close(p.closeCh)
		p.conn.Close()
	})
}

func (p *Pair) writeLoop() {
	defer p.Close()
	for {
		select {
		case <-p.closeCh:
			return
		case msg, ok := <-p.send:
			if !ok {
				return
			}
			if _, err := p.conn.Write([]byte(msg)); err != nil {
				p.log.WithError(err).Debug("writer: write failed")
				return
			}
			if _, err := p.conn.Write([]byte("\n")); err != nil {
				p.log.WithError(err).Debug("writer: newline write failed")
				return
			}
		}
	}
}

func (p *Pair) readLoop(events chan<- Event) {
	defer p.Close()

	r := bufio.NewReader(p.conn)
	for {
		line, err := r.ReadString('\n')
		if len(line) > 0 {
			p.emitLine(strings.TrimRight(line, "\r\n"), events)
		}
		if err != nil {
			p.emitTerminal(err, events)
			return
		}
	}
}

func (p *Pair) emitLine(line string, events chan<- Event) {
	if line == "" {
		return
	}

	switch {
	case strings.HasPrefix(line, prefixJoin):
		events <- Event{Kind: Join, ConnID: p.ConnID, Line: line}
	case strings.HasPrefix(line, prefixPeers):
		events <- Event{Kind: Peers, ConnID: p.ConnID, Line: line}
	case strings.HasPrefix(line, prefixMsg):
		events <- Event{Kind: Message, ConnID: p.ConnID, NodeID: p.box.NodeID(), Line: line}
	default:
		p.log.WithField("line", line).Warn("unknown line prefix, discarding")
	}
}

func (p *Pair) emitTerminal(err error, events chan<- Event) {
	nodeID := p.box.NodeID()
	if errors.Is(err, io.EOF) {
		events <- Event{Kind: Disconnected, ConnID: p.ConnID, NodeID: nodeID}
		return
	}
	events <- Event{Kind: Error, ConnID: p.ConnID, NodeID: nodeID, Line: err.Error()}
}
