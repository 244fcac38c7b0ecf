// Command p2pchat starts one node of the peer-to-peer chat overlay.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mdedz/p2pchat/internal/node"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		port     uint16
		peerAddr string
		uname    string
		useTLS   bool
		certPath string
		keyPath  string
		httpAddr string
		noHTTP   bool
		verbose  bool
	)

	cmd := &cobra.Command{
		Use:   "p2pchat",
		Short: "Run a node in the peer-to-peer chat overlay",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(verbose)

			resolvedHTTP := httpAddr
			if resolvedHTTP == "" && !noHTTP {
				resolvedHTTP = fmt.Sprintf("127.0.0.1:%d", port+100)
			}

			cfg := node.Config{
				ListenAddr:    fmt.Sprintf("127.0.0.1:%d", port),
				BootstrapAddr: peerAddr,
				Uname:         uname,
				UseTLS:        useTLS,
				CertPath:      certPath,
				KeyPath:       keyPath,
				HTTPAddr:      resolvedHTTP,
			}

			n, err := node.New(cfg, log)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			return n.Run(ctx)
		},
	}

	flags := cmd.Flags()
	flags.Uint16Var(&port, "port", 4000, "TCP port to listen on (node binds 127.0.0.1:<port>)")
	flags.StringVar(&peerAddr, "peer", "", "address of an existing peer to bootstrap from (host:port)")
	flags.StringVar(&uname, "uname", "", "display name gossiped to other peers")
	flags.BoolVar(&useTLS, "tls", false, "encrypt connections with a self-signed certificate")
	flags.StringVar(&certPath, "cert", "", "path to persist/load the TLS certificate (generated if absent)")
	flags.StringVar(&keyPath, "key", "", "path to persist/load the TLS private key (generated if absent)")
	flags.StringVar(&httpAddr, "http", "", "override the HTTP/WebSocket surface address (defaults to 127.0.0.1:<port+100>)")
	flags.BoolVar(&noHTTP, "no-http", false, "disable the HTTP/WebSocket surface entirely")
	flags.BoolVar(&verbose, "verbose", false, "enable debug logging")

	return cmd
}

func newLogger(verbose bool) *logrus.Entry {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	return logrus.NewEntry(log)
}
