// Package peer holds the wire-level description of a node: the
// Summary record gossiped in JOIN/PEERS frames, and the id helpers used
// to name connections and logical nodes.
package peer

import (
	"github.com/pkg/errors"

	"github.com/mdedz/p2pchat/internal/perr"
)

// Summary is the four-field descriptor of a node. All fields are
// optional strings: a freshly-accepted inbound connection only knows
// RemoteAddr, a freshly-dialed outbound connection only knows the
// target ListenAddr. Both are filled in for the remote once JOIN is
// processed.
type Summary struct {
	ListenAddr string `json:"listen_addr,omitempty"`
	RemoteAddr string `json:"remote_addr,omitempty"`
	NodeID     string `json:"node_id,omitempty"`
	Uname      string `json:"uname,omitempty"`
}

// ListenAddrOrErr returns ListenAddr or ErrConfigMissing if empty.
// Required at trust boundaries such as dialing.
func (s Summary) ListenAddrOrErr() (string, error) {
	if s.ListenAddr == "" {
		return "", errors.Wrap(perr.ErrConfigMissing, "listen_addr")
	}
	return s.ListenAddr, nil
}

// NodeIDOrErr returns NodeID or ErrConfigMissing if empty. Required
// when registering a node.
func (s Summary) NodeIDOrErr() (string, error) {
	if s.NodeID == "" {
		return "", errors.Wrap(perr.ErrConfigMissing, "node_id")
	}
	return s.NodeID, nil
}

// RemoteAddrOrErr returns RemoteAddr or ErrConfigMissing if empty.
func (s Summary) RemoteAddrOrErr() (string, error) {
	if s.RemoteAddr == "" {
		return "", errors.Wrap(perr.ErrConfigMissing, "remote_addr")
	}
	return s.RemoteAddr, nil
}

// UnameOrDefault returns Uname, or "Stranger" if it was never set.
func (s Summary) UnameOrDefault() string {
	if s.Uname == "" {
		return "Stranger"
	}
	return s.Uname
}
