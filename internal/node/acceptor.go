package node

import (
	"crypto/tls"
	"net"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mdedz/p2pchat/internal/connio"
	"github.com/mdedz/p2pchat/internal/gossip"
	"github.com/mdedz/p2pchat/internal/peer"
	"github.com/mdedz/p2pchat/internal/pmanager"
)

// Acceptor owns the overlay's inbound listener: one goroutine accepting
// connections, each handed to its own connio.Pair and registered with
// the manager before announcing this node's JOIN.
type Acceptor struct {
	ln   net.Listener
	mgr  *pmanager.Manager
	self peer.Summary
	evCh chan<- connio.Event
	log  *logrus.Entry
}

// Listen binds addr, using tlsCfg if non-nil.
func Listen(addr string, tlsCfg *tls.Config, mgr *pmanager.Manager, self peer.Summary, evCh chan<- connio.Event, log *logrus.Entry) (*Acceptor, error) {
	var ln net.Listener
	var err error
	if tlsCfg != nil {
		ln, err = tls.Listen("tcp", addr, tlsCfg)
	} else {
		ln, err = net.Listen("tcp", addr)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "listen on %s", addr)
	}

	return &Acceptor{
		ln:   ln,
		mgr:  mgr,
		self: self,
		evCh: evCh,
		log:  log.WithField("component", "acceptor"),
	}, nil
}

// Addr reports the bound address (useful when ListenAddr asked for an
// OS-assigned port via ":0").
func (a *Acceptor) Addr() string {
	return a.ln.Addr().String()
}

// Run accepts connections until the listener is closed.
func (a *Acceptor) Run() error {
	for {
		conn, err := a.ln.Accept()
		if err != nil {
			return errors.Wrap(err, "accept")
		}
		go a.handle(conn)
	}
}

// Close stops accepting new connections.
func (a *Acceptor) Close() error {
	return a.ln.Close()
}

func (a *Acceptor) handle(conn net.Conn) {
	connID := peer.NewID()
	box := peer.NewBox(peer.Summary{RemoteAddr: conn.RemoteAddr().String()})
	pair := connio.New(conn, connID, box, a.evCh, a.log)

	if err := a.mgr.AddConn(connID, box, pair); err != nil {
		a.log.WithError(err).WithField("conn_id", connID).Warn("add_conn failed, dropping inbound connection")
		pair.Close()
		return
	}

	if err := gossip.SendJoin(a.mgr, a.self, connID); err != nil {
		a.log.WithError(err).WithField("conn_id", connID).Warn("send_join failed on accept")
	}
}
