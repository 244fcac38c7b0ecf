package node

// Config is the set of values the CLI layer (cmd/p2pchat) gathers from
// flags before constructing a Node.
type Config struct {
	// ListenAddr is this node's own "host:port", advertised to peers
	// in JOIN frames as listen_addr.
	ListenAddr string
	// BootstrapAddr is an optional peer to dial on startup ("" to start
	// as the first node in a new overlay).
	BootstrapAddr string
	// Uname is the display name gossiped in this node's JOIN frame.
	Uname string
	// UseTLS selects tls.Listen/tls.Dial over plain net.Listen/net.Dial.
	UseTLS bool
	// CertPath/KeyPath locate persisted TLS material; both empty means
	// generate an ephemeral identity for this run only.
	CertPath string
	KeyPath  string
	// HTTPAddr, if non-empty, starts the HTTP/WS collaborator surface
	// (§6) on that address alongside the overlay listener.
	HTTPAddr string
}
