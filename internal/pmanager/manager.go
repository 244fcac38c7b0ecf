// Package pmanager implements the peer-manager actor (§4.D): the single
// owner of the conns/peers membership maps. All mutation and all
// consistent reads funnel through one goroutine consuming a command
// channel, so the two-map invariants in spec §3 hold without locks in
// the data path.
package pmanager

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mdedz/p2pchat/internal/perr"
	"github.com/mdedz/p2pchat/internal/peer"
)

// cmdQueueCap is the command channel's capacity (§5): it backpressures
// producers but never the actor itself.
const cmdQueueCap = 256

// Manager is a handle to the actor; it is cheap to copy/share (it holds
// only channels and a logger) and safe for concurrent use from many
// goroutines.
type Manager struct {
	cmdCh  chan command
	stopCh chan struct{}
	done   chan struct{}
	log    *logrus.Entry
}

// New starts the actor goroutine and returns a handle to it.
func New(log *logrus.Entry) *Manager {
	m := &Manager{
		cmdCh:  make(chan command, cmdQueueCap),
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
		log:    log.WithField("component", "peer_manager"),
	}
	go m.run()
	return m
}

// Stop closes the command channel's intake; the actor finishes any
// already-enqueued command then exits. Every connection entry it was
// holding is closed, which drains their writer tasks.
func (m *Manager) Stop() {
	select {
	case <-m.stopCh:
	default:
		close(m.stopCh)
	}
	<-m.done
}

func (m *Manager) run() {
	defer close(m.done)

	conns := make(map[string]*entry)
	peers := make(map[string]*entry)

	defer func() {
		for _, e := range conns {
			e.pair.Close()
		}
		for _, e := range peers {
			e.pair.Close()
		}
	}()

	for {
		select {
		case <-m.stopCh:
			for {
				select {
				case cmd := <-m.cmdCh:
					m.handle(cmd, conns, peers)
				default:
					return
				}
			}
		case cmd := <-m.cmdCh:
			m.handle(cmd, conns, peers)
		}
	}
}

func (m *Manager) submit(cmd command) error {
	select {
	case <-m.stopCh:
		return perr.ErrActorStopped
	default:
	}
	select {
	case m.cmdCh <- cmd:
		return nil
	case <-m.stopCh:
		return perr.ErrActorStopped
	}
}

func (m *Manager) handle(cmd command, conns, peers map[string]*entry) {
	switch c := cmd.(type) {
	case addConnCmd:
		c.reply <- m.handleAddConn(c, conns)
	case registerNodeCmd:
		c.reply <- m.handleRegisterNode(c, conns, peers)
	case removeConnCmd:
		m.handleRemoveConn(c, conns, peers)
	case removeNodeCmd:
		m.handleRemoveNode(c, peers)
	case broadcastCmd:
		m.handleBroadcast(c, peers)
	case sendToCmd:
		c.reply <- m.handleSendTo(c, conns, peers)
	case getPeersCmd:
		c.reply <- m.handleGetPeers(peers)
	case getPeerCmd:
		c.reply <- m.handleGetPeer(c, peers)
	case getConnCmd:
		c.reply <- m.handleGetConn(c, conns)
	case containsListenAddrCmd:
		c.reply <- m.handleContainsListenAddr(c, conns, peers)
	}
}

func (m *Manager) handleAddConn(c addConnCmd, conns map[string]*entry) error {
	if _, ok := conns[c.entry.connID]; ok {
		return errors.Wrapf(perr.ErrDuplicateConn, "conn_id %s", c.entry.connID)
	}
	conns[c.entry.connID] = c.entry
	return nil
}

func (m *Manager) handleRegisterNode(c registerNodeCmd, conns, peers map[string]*entry) error {
	nodeID, err := c.summary.NodeIDOrErr()
	if err != nil {
		return errors.Wrap(err, "register_node")
	}

	if e, ok := conns[c.connID]; ok {
		delete(conns, c.connID)
		e.box.Set(c.summary)

		if old, exists := peers[nodeID]; exists {
			m.log.WithField("node_id", nodeID).Warn("replacing existing peer with same node_id")
			old.pair.Close()
		}
		peers[nodeID] = e
		return nil
	}

	if e, ok := peers[nodeID]; ok {
		e.box.Set(c.summary)
		return nil
	}

	return errors.Wrapf(perr.ErrUnknownTarget, "conn_id %s not pending and node_id %s not registered", c.connID, nodeID)
}

func (m *Manager) handleRemoveConn(c removeConnCmd, conns, peers map[string]*entry) {
	if e, ok := conns[c.connID]; ok {
		delete(conns, c.connID)
		e.pair.Close()
		m.log.WithField("conn_id", c.connID).Debug("dropped pending connection")
		return
	}

	for nodeID, e := range peers {
		if e.connID == c.connID {
			delete(peers, nodeID)
			e.pair.Close()
			m.log.WithFields(logrus.Fields{"conn_id": c.connID, "node_id": nodeID}).Debug("dropped connection found in peers")
			return
		}
	}
}

func (m *Manager) handleRemoveNode(c removeNodeCmd, peers map[string]*entry) {
	if e, ok := peers[c.nodeID]; ok {
		delete(peers, c.nodeID)
		e.pair.Close()
		m.log.WithField("node_id", c.nodeID).Debug("removed node")
	}
}

func (m *Manager) handleBroadcast(c broadcastCmd, peers map[string]*entry) {
	for nodeID, e := range peers {
		if !e.pair.Send(c.msg) {
			m.log.WithField("node_id", nodeID).Warn("broadcast: send queue full, dropping for this peer")
		}
	}
}

func (m *Manager) handleSendTo(c sendToCmd, conns, peers map[string]*entry) error {
	if c.nodeID != "" {
		e, ok := peers[c.nodeID]
		if !ok {
			return errors.Wrapf(perr.ErrUnknownTarget, "node_id %s", c.nodeID)
		}
		if !e.pair.Send(c.msg) {
			m.log.WithField("node_id", c.nodeID).Warn("send_to: queue full, dropping")
		}
		return nil
	}

	if c.connID != "" {
		e, ok := conns[c.connID]
		if !ok {
			return errors.Wrapf(perr.ErrUnknownTarget, "conn_id %s", c.connID)
		}
		if !e.pair.Send(c.msg) {
			m.log.WithField("conn_id", c.connID).Warn("send_to: queue full, dropping")
		}
		return nil
	}

	return errors.Wrap(perr.ErrUnknownTarget, "neither node_id nor conn_id set")
}

func (m *Manager) handleGetPeers(peers map[string]*entry) []peer.Summary {
	out := make([]peer.Summary, 0, len(peers))
	for _, e := range peers {
		out = append(out, e.summary())
	}
	return out
}

func (m *Manager) handleGetPeer(c getPeerCmd, peers map[string]*entry) lookupResult {
	e, ok := peers[c.nodeID]
	if !ok {
		return lookupResult{err: errors.Wrapf(perr.ErrUnknownTarget, "node_id %s", c.nodeID)}
	}
	return lookupResult{summary: e.summary()}
}

func (m *Manager) handleGetConn(c getConnCmd, conns map[string]*entry) lookupResult {
	e, ok := conns[c.connID]
	if !ok {
		return lookupResult{err: errors.Wrapf(perr.ErrUnknownTarget, "conn_id %s", c.connID)}
	}
	return lookupResult{summary: e.summary()}
}

func (m *Manager) handleContainsListenAddr(c containsListenAddrCmd, conns, peers map[string]*entry) bool {
	for _, e := range peers {
		if e.summary().ListenAddr == c.addr {
			return true
		}
	}
	for _, e := range conns {
		if e.summary().ListenAddr == c.addr {
			return true
		}
	}
	return false
}
