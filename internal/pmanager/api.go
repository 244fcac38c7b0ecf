package pmanager

import (
	"github.com/mdedz/p2pchat/internal/connio"
	"github.com/mdedz/p2pchat/internal/peer"
)

// AddConn registers a freshly-created connection under connID, still
// unpromoted (no node_id yet). Fails with ErrDuplicateConn if connID is
// already present, and with ErrActorStopped once the actor has exited.
func (m *Manager) AddConn(connID string, box *peer.Box, pair *connio.Pair) error {
	reply := make(chan error, 1)
	if err := m.submit(addConnCmd{entry: &entry{connID: connID, box: box, pair: pair}, reply: reply}); err != nil {
		return err
	}
	return <-reply
}

// RegisterNode promotes connID's entry into the peers map keyed by
// summary.NodeID, or — if connID isn't pending — refreshes an
// already-registered peer's summary in place. Requires summary.NodeID.
func (m *Manager) RegisterNode(connID string, summary peer.Summary) error {
	reply := make(chan error, 1)
	if err := m.submit(registerNodeCmd{connID: connID, summary: summary, reply: reply}); err != nil {
		return err
	}
	return <-reply
}

// RemoveConn drops connID from conns, or — if not pending — scans peers
// for a matching conn_id and removes that instead. Best-effort: errors
// (including ErrActorStopped) are not surfaced, matching the fire-and-
// forget semantics of spec §4.D.
func (m *Manager) RemoveConn(connID string) {
	_ = m.submit(removeConnCmd{connID: connID})
}

// RemoveNode drops nodeID from peers. Best-effort.
func (m *Manager) RemoveNode(nodeID string) {
	_ = m.submit(removeNodeCmd{nodeID: nodeID})
}

// Broadcast pushes msg onto every registered peer's send queue. A full
// queue fails that one push (logged) and never blocks the actor.
// Best-effort: a stopped actor silently drops the broadcast.
func (m *Manager) Broadcast(msg string) {
	_ = m.submit(broadcastCmd{msg: msg})
}

// SendTo resolves the target by node_id first, falling back to conn_id,
// and pushes msg onto its queue. Used by the gossip layer to address an
// unpromoted connection (by conn_id, for the initial JOIN) or a
// registered peer (by node_id, for everything after).
func (m *Manager) SendTo(nodeID, connID, msg string) error {
	reply := make(chan error, 1)
	if err := m.submit(sendToCmd{nodeID: nodeID, connID: connID, msg: msg, reply: reply}); err != nil {
		return err
	}
	return <-reply
}

// GetPeers returns a snapshot of every registered peer's summary.
func (m *Manager) GetPeers() []peer.Summary {
	reply := make(chan []peer.Summary, 1)
	if err := m.submit(getPeersCmd{reply: reply}); err != nil {
		return nil
	}
	return <-reply
}

// GetPeer looks up a single registered peer by node_id.
func (m *Manager) GetPeer(nodeID string) (peer.Summary, error) {
	reply := make(chan lookupResult, 1)
	if err := m.submit(getPeerCmd{nodeID: nodeID, reply: reply}); err != nil {
		return peer.Summary{}, err
	}
	res := <-reply
	return res.summary, res.err
}

// GetConn looks up a single pending (unpromoted) connection by conn_id.
func (m *Manager) GetConn(connID string) (peer.Summary, error) {
	reply := make(chan lookupResult, 1)
	if err := m.submit(getConnCmd{connID: connID, reply: reply}); err != nil {
		return peer.Summary{}, err
	}
	res := <-reply
	return res.summary, res.err
}

// ContainsListenAddr reports whether any entry in either map — pending
// or registered — advertises addr as its listen_addr.
func (m *Manager) ContainsListenAddr(addr string) bool {
	reply := make(chan bool, 1)
	if err := m.submit(containsListenAddrCmd{addr: addr, reply: reply}); err != nil {
		return false
	}
	return <-reply
}
