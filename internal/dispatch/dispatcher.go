// Package dispatch implements the event dispatcher (§4.E): the single
// consumer of the connio.Event stream every connection's reader task
// feeds into. It is the only place that translates a raw line into a
// peer-manager command, a dial request, or a frontend notification.
package dispatch

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mdedz/p2pchat/internal/connio"
	"github.com/mdedz/p2pchat/internal/gossip"
	"github.com/mdedz/p2pchat/internal/peer"
	"github.com/mdedz/p2pchat/internal/pmanager"
)

// Dispatcher owns no state of its own beyond what it needs to route:
// the manager it commands, the channel it asks the dialer to try new
// addresses on, and the channel it pushes presentation events to.
type Dispatcher struct {
	mgr      *pmanager.Manager
	log      *logrus.Entry
	dialCh   chan<- string
	frontend chan<- FrontendEvent
}

// New builds a Dispatcher. dialCh receives listen_addrs worth trying
// (gossiped via PEERS); frontend receives presentation events for the
// web/WS surface and the TUI. Both may be nil if that collaborator
// isn't wired up (e.g. running headless with no TUI).
func New(mgr *pmanager.Manager, dialCh chan<- string, frontend chan<- FrontendEvent, log *logrus.Entry) *Dispatcher {
	return &Dispatcher{
		mgr:      mgr,
		log:      log.WithField("component", "dispatcher"),
		dialCh:   dialCh,
		frontend: frontend,
	}
}

// Run drains events until the channel closes; callers typically run
// this under an errgroup alongside the acceptor and manager.
func (d *Dispatcher) Run(events <-chan connio.Event) {
	for ev := range events {
		d.handle(ev)
	}
}

func (d *Dispatcher) handle(ev connio.Event) {
	switch ev.Kind {
	case connio.Join:
		d.handleJoin(ev)
	case connio.Peers:
		d.handlePeers(ev)
	case connio.Message:
		d.handleMessage(ev)
	case connio.Connected:
		d.log.WithField("conn_id", ev.ConnID).Debug("connection established")
	case connio.Disconnected:
		d.handleDisconnected(ev)
	case connio.Error:
		d.log.WithFields(logrus.Fields{"conn_id": ev.ConnID, "err": ev.Line}).Warn("connection read error")
		d.handleDisconnected(ev)
	}
}

func (d *Dispatcher) handleJoin(ev connio.Event) {
	remote, err := gossip.DecodeJoin(ev.Line)
	if err != nil {
		d.log.WithError(err).WithField("conn_id", ev.ConnID).Warn("malformed JOIN, dropping connection")
		d.mgr.RemoveConn(ev.ConnID)
		return
	}

	known, err := d.mgr.GetConn(ev.ConnID)
	if err != nil {
		d.log.WithError(err).WithField("conn_id", ev.ConnID).Warn("JOIN for unknown connection")
		return
	}

	merged := mergeJoin(known, remote)
	if err := d.mgr.RegisterNode(ev.ConnID, merged); err != nil {
		d.log.WithError(err).WithField("conn_id", ev.ConnID).Warn("register_node failed")
		return
	}

	d.log.WithFields(logrus.Fields{"conn_id": ev.ConnID, "node_id": merged.NodeID}).Info("peer joined")
	d.emitFrontend(FrontendEvent{Kind: PeerJoined, NodeID: merged.NodeID})

	gossip.SendPeers(d.mgr, d.log)
}

// mergeJoin keeps whichever side already knew remote_addr (set at
// accept/dial time, never announced in a JOIN frame) and takes the
// announcing peer's own description of itself for everything else,
// except that a JOIN without a listen_addr keeps the one already known
// (the dialed target).
func mergeJoin(known, announced peer.Summary) peer.Summary {
	merged := announced
	if merged.RemoteAddr == "" {
		merged.RemoteAddr = known.RemoteAddr
	}
	if merged.ListenAddr == "" {
		merged.ListenAddr = known.ListenAddr
	}
	return merged
}

func (d *Dispatcher) handlePeers(ev connio.Event) {
	summaries := gossip.DecodePeers(ev.Line, d.log)
	for _, addr := range gossip.SummaryListenAddrs(summaries) {
		if d.mgr.ContainsListenAddr(addr) {
			continue
		}
		if d.dialCh == nil {
			continue
		}
		select {
		case d.dialCh <- addr:
		default:
			d.log.WithField("addr", addr).Debug("dial queue full, dropping gossiped address")
		}
	}
}

func (d *Dispatcher) handleMessage(ev connio.Event) {
	body := ev.Line
	if idx := strings.Index(ev.Line, "|"); idx >= 0 {
		body = ev.Line[idx+1:]
	}

	uname := "Stranger"
	if ev.NodeID != "" {
		if s, err := d.mgr.GetPeer(ev.NodeID); err == nil {
			uname = s.UnameOrDefault()
		}
	}

	d.log.WithFields(logrus.Fields{"from": uname, "node_id": ev.NodeID}).Info(body)
	d.emitFrontend(FrontendEvent{Kind: MessageReceived, NodeID: ev.NodeID, From: uname, Content: body})
}

func (d *Dispatcher) handleDisconnected(ev connio.Event) {
	d.mgr.RemoveConn(ev.ConnID)
	if ev.NodeID != "" {
		d.emitFrontend(FrontendEvent{Kind: PeerDisconnected, NodeID: ev.NodeID})
	}
}

func (d *Dispatcher) emitFrontend(fe FrontendEvent) {
	if d.frontend == nil {
		return
	}
	select {
	case d.frontend <- fe:
	default:
		d.log.Debug("frontend event queue full, dropping")
	}
}
