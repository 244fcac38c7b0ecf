// Package node wires the overlay's collaborators — the peer-manager
// actor, the acceptor/dialer pair, the event dispatcher, and the
// outward-facing HTTP/WS and terminal surfaces — into one supervised
// task set, the way the teacher's Transport/Service pair drove a game's
// subsystems from one Start/Stop lifecycle.
package node

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/mdedz/p2pchat/internal/api"
	"github.com/mdedz/p2pchat/internal/chatui"
	"github.com/mdedz/p2pchat/internal/connio"
	"github.com/mdedz/p2pchat/internal/dispatch"
	"github.com/mdedz/p2pchat/internal/peer"
	"github.com/mdedz/p2pchat/internal/pmanager"
	"github.com/mdedz/p2pchat/internal/tlsutil"
)

const (
	eventQueueCap    = 256
	dialQueueCap     = 32
	frontendQueueCap = 256
)

// Node is one running instance of the overlay: it owns the manager, the
// listener, and whichever outward surfaces the Config asked for.
type Node struct {
	cfg  Config
	log  *logrus.Entry
	self peer.Summary

	mgr      *pmanager.Manager
	acceptor *Acceptor
	dialer   *Dialer
	dispatch *dispatch.Dispatcher

	dialCh   chan string
	events   chan connio.Event
	frontend chan dispatch.FrontendEvent

	apiServer *api.Server
	httpSrv   *http.Server
}

// New constructs a Node from cfg without starting anything yet.
func New(cfg Config, log *logrus.Entry) (*Node, error) {
	log = log.WithField("component", "node")

	self := peer.Summary{ListenAddr: cfg.ListenAddr, NodeID: peer.NewID(), Uname: cfg.Uname}
	events := make(chan connio.Event, eventQueueCap)
	dialCh := make(chan string, dialQueueCap)
	frontend := make(chan dispatch.FrontendEvent, frontendQueueCap)

	mgr := pmanager.New(log)

	var mat *tlsutil.Material
	if cfg.UseTLS {
		var m *tlsutil.Material
		var err error
		if cfg.CertPath == "" && cfg.KeyPath == "" {
			m, err = tlsutil.GenerateSelfSigned()
		} else {
			m, err = tlsutil.LoadOrGenerate(cfg.CertPath, cfg.KeyPath)
		}
		if err != nil {
			return nil, errors.Wrap(err, "initialize tls material")
		}
		mat = m
	}

	var serverCfg, clientCfg *tls.Config
	if mat != nil {
		serverCfg = tlsutil.ServerConfig(mat)
		clientCfg = tlsutil.ClientConfig(mat)
	}

	acceptor, err := Listen(cfg.ListenAddr, serverCfg, mgr, self, events, log)
	if err != nil {
		return nil, err
	}
	dialer := NewDialer(cfg.ListenAddr, clientCfg, mgr, self, events, log)
	disp := dispatch.New(mgr, dialCh, frontend, log)

	n := &Node{
		cfg:      cfg,
		log:      log,
		self:     self,
		mgr:      mgr,
		acceptor: acceptor,
		dialer:   dialer,
		dispatch: disp,
		dialCh:   dialCh,
		events:   events,
		frontend: frontend,
	}

	if cfg.HTTPAddr != "" {
		n.apiServer = api.NewServer(mgr, log)
		n.httpSrv = &http.Server{Addr: cfg.HTTPAddr, Handler: n.apiServer.Handler()}
	}

	return n, nil
}

// Run starts every wired collaborator and blocks until one fails or ctx
// is canceled, tearing everything else down on the way out — the same
// all-or-nothing lifecycle the teacher's Transport.Start/Stop gave a
// single subsystem, generalized here to the whole task set via errgroup.
// A task that returns without an error (the terminal UI after the user
// quits, the stdin loop at end of input) does not stop the others.
func (n *Node) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return n.acceptor.Run()
	})

	g.Go(func() error {
		n.dispatch.Run(n.events)
		return nil
	})

	g.Go(func() error {
		n.dialer.Run(n.dialCh)
		return nil
	})

	uiCh, apiCh := fanoutFrontend(ctx, n.frontend)

	if n.httpSrv != nil {
		g.Go(func() error {
			go n.apiServer.Run(apiCh)
			if err := n.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return errors.Wrap(err, "http server")
			}
			return nil
		})
	}

	g.Go(func() error {
		return n.runFrontEnd(ctx, uiCh)
	})

	if n.cfg.BootstrapAddr != "" {
		n.dialCh <- n.cfg.BootstrapAddr
	}

	go func() {
		<-ctx.Done()
		n.acceptor.Close()
		n.mgr.Stop()
		if n.httpSrv != nil {
			n.httpSrv.Close()
		}
		close(n.events)
		close(n.dialCh)
	}()

	return g.Wait()
}

// runFrontEnd drives the TUI when stdout is a terminal, falling back to
// a plain stdin line reader otherwise (output piped or redirected, CI).
func (n *Node) runFrontEnd(ctx context.Context, frontendCh <-chan dispatch.FrontendEvent) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		go func() {
			for range frontendCh {
			}
		}()
		RunStdinLoop(os.Stdin, n.mgr, n.log)
		return nil
	}

	ui, err := chatui.New(n.log)
	if err != nil {
		return errors.Wrap(err, "init terminal ui")
	}
	defer ui.Close()

	ui.Send = func(text string) {
		n.mgr.Broadcast("MSG|" + text)
	}

	done := make(chan struct{})
	go func() {
		ui.Run(frontendCh)
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		ui.Close()
	}
	return nil
}

// fanoutFrontend copies every FrontendEvent to two independent
// subscriber channels (the TUI/stdin surface and the web API), so
// either one falling behind never blocks the other.
func fanoutFrontend(ctx context.Context, in <-chan dispatch.FrontendEvent) (ui, apiCh chan dispatch.FrontendEvent) {
	ui = make(chan dispatch.FrontendEvent, frontendQueueCap)
	apiCh = make(chan dispatch.FrontendEvent, frontendQueueCap)

	go func() {
		defer close(ui)
		defer close(apiCh)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-in:
				if !ok {
					return
				}
				trySend(ui, ev)
				trySend(apiCh, ev)
			}
		}
	}()

	return ui, apiCh
}

func trySend(ch chan dispatch.FrontendEvent, ev dispatch.FrontendEvent) {
	select {
	case ch <- ev:
	default:
	}
}
