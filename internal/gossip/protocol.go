// Package gossip encodes and decodes the JOIN/PEERS wire frames (§4.F)
// and drives the join-then-gossip handshake: send JOIN on every new
// connection, re-gossip the full PEERS snapshot to everyone once a JOIN
// has been processed.
package gossip

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mdedz/p2pchat/internal/peer"
	"github.com/mdedz/p2pchat/internal/pmanager"
)

const (
	joinPrefix  = "JOIN|"
	peersPrefix = "PEERS|"
)

// DecodeJoin strips the "JOIN|" prefix and JSON-decodes the remainder.
// This is the splitn(2, "|")-then-JSON form spec.md §9 settles on: it's
// the only one consistent with send_join's JSON payload.
func DecodeJoin(line string) (peer.Summary, error) {
	parts := strings.SplitN(line, "|", 2)
	if len(parts) < 2 {
		return peer.Summary{}, errors.New("invalid JOIN frame: missing body")
	}

	var s peer.Summary
	if err := json.Unmarshal([]byte(parts[1]), &s); err != nil {
		return peer.Summary{}, errors.Wrap(err, "decode JOIN payload")
	}
	return s, nil
}

// EncodeJoin builds a "JOIN|<json>" frame announcing self. The
// terminating newline is added by the connection's writer task.
func EncodeJoin(self peer.Summary) string {
	body, _ := json.Marshal(self)
	return joinPrefix + string(body)
}

// DecodePeers splits the body on ';' and JSON-decodes each non-empty
// segment. Malformed segments are logged and skipped — the caller still
// gets whatever segments did decode.
func DecodePeers(line string, log *logrus.Entry) []peer.Summary {
	body := strings.TrimPrefix(line, peersPrefix)

	var out []peer.Summary
	for _, seg := range strings.Split(body, ";") {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		var s peer.Summary
		if err := json.Unmarshal([]byte(seg), &s); err != nil {
			log.WithError(err).WithField("segment", seg).Warn("gossip: malformed PEERS segment, skipping")
			continue
		}
		out = append(out, s)
	}
	return out
}

// EncodePeers builds a "PEERS|<json>;<json>;..." frame from summaries.
func EncodePeers(summaries []peer.Summary) string {
	parts := make([]string, 0, len(summaries))
	for _, s := range summaries {
		body, _ := json.Marshal(s)
		parts = append(parts, string(body))
	}
	return peersPrefix + strings.Join(parts, ";")
}

// SendJoin addresses the JOIN frame by conn_id, since for an outbound
// connection the peer's node_id is not yet known (§4.F).
func SendJoin(mgr *pmanager.Manager, self peer.Summary, connID string) error {
	return mgr.SendTo("", connID, EncodeJoin(self))
}

// SendPeers gossips the current membership snapshot to every
// registered peer. Called after any JOIN is processed (§4.E); never on
// peer departure (the original never re-broadcasts on disconnect, and
// spec.md §9 keeps that behavior).
func SendPeers(mgr *pmanager.Manager, log *logrus.Entry) {
	summaries := mgr.GetPeers()
	payload := EncodePeers(summaries)

	for _, s := range summaries {
		if err := mgr.SendTo(s.NodeID, "", payload); err != nil {
			log.WithError(err).WithField("node_id", s.NodeID).Warn("gossip: send_peers failed")
		}
	}
}

// SummaryListenAddrs extracts the listen_addr of every summary that has
// one set, for handing to the dialer loop.
func SummaryListenAddrs(summaries []peer.Summary) []string {
	addrs := make([]string, 0, len(summaries))
	for _, s := range summaries {
		if s.ListenAddr != "" {
			addrs = append(addrs, s.ListenAddr)
		}
	}
	return addrs
}
