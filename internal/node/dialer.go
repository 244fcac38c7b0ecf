package node

import (
	"crypto/tls"
	"net"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mdedz/p2pchat/internal/connio"
	"github.com/mdedz/p2pchat/internal/gossip"
	"github.com/mdedz/p2pchat/internal/peer"
	"github.com/mdedz/p2pchat/internal/perr"
	"github.com/mdedz/p2pchat/internal/pmanager"
)

const dialTimeout = 5 * time.Second

// Dialer consumes addresses off a channel — the bootstrap address at
// startup, then whatever PEERS gossip surfaces — and opens one outbound
// connection per address, skipping ones already known or pointing back
// at this node.
type Dialer struct {
	selfAddr string
	tlsCfg   *tls.Config
	mgr      *pmanager.Manager
	self     peer.Summary
	evCh     chan<- connio.Event
	log      *logrus.Entry
}

// NewDialer builds a Dialer. selfAddr is this node's own listen_addr,
// used to reject self-connect attempts; tlsCfg nil means plain TCP.
func NewDialer(selfAddr string, tlsCfg *tls.Config, mgr *pmanager.Manager, self peer.Summary, evCh chan<- connio.Event, log *logrus.Entry) *Dialer {
	return &Dialer{
		selfAddr: selfAddr,
		tlsCfg:   tlsCfg,
		mgr:      mgr,
		self:     self,
		evCh:     evCh,
		log:      log.WithField("component", "dialer"),
	}
}

// Run consumes addrCh until it's closed, dialing each address that
// isn't self and isn't already known.
func (d *Dialer) Run(addrCh <-chan string) {
	for addr := range addrCh {
		if err := d.Dial(addr); err != nil {
			d.log.WithError(err).WithField("addr", addr).Debug("dial skipped or failed")
		}
	}
}

// Dial opens one outbound connection to addr, registers it with the
// manager as pending, and sends this node's JOIN. Returns
// ErrSelfConnect or ErrAlreadyKnown without attempting a connection
// when the address is this node itself or already a peer/pending conn.
func (d *Dialer) Dial(addr string) error {
	if addr == d.selfAddr {
		return perr.ErrSelfConnect
	}
	if d.mgr.ContainsListenAddr(addr) {
		return errors.Wrapf(perr.ErrAlreadyKnown, "listen_addr %s", addr)
	}

	conn, err := d.dialConn(addr)
	if err != nil {
		return errors.Wrapf(err, "dial %s", addr)
	}

	connID := peer.NewID()
	box := peer.NewBox(peer.Summary{ListenAddr: addr, RemoteAddr: conn.RemoteAddr().String()})
	pair := connio.New(conn, connID, box, d.evCh, d.log)

	if err := d.mgr.AddConn(connID, box, pair); err != nil {
		pair.Close()
		return errors.Wrap(err, "add_conn")
	}

	if err := gossip.SendJoin(d.mgr, d.self, connID); err != nil {
		d.log.WithError(err).WithField("conn_id", connID).Warn("send_join failed on dial")
	}
	return nil
}

func (d *Dialer) dialConn(addr string) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: dialTimeout}
	if d.tlsCfg != nil {
		return tls.DialWithDialer(dialer, "tcp", addr, d.tlsCfg)
	}
	return dialer.Dial("tcp", addr)
}
