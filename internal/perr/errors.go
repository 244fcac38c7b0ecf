// Package perr defines the sentinel error kinds surfaced at the core
// boundary (peer manager, gossip, dialer). Call sites wrap these with
// github.com/pkg/errors so callers can still errors.Is/As against the
// sentinel while getting a call-site-specific message.
package perr

import "errors"

var (
	// ErrConfigMissing means a required PeerSummary field was absent when
	// the caller needed it present (e.g. dialing without listen_addr).
	ErrConfigMissing = errors.New("required field missing")

	// ErrDuplicateConn means AddConn/AddEntry was called with a conn_id
	// already present in the connections map.
	ErrDuplicateConn = errors.New("connection id already registered")

	// ErrUnknownTarget means SendTo/GetPeer/GetConn referenced an id not
	// present in the respective map.
	ErrUnknownTarget = errors.New("target not found")

	// ErrActorStopped means the manager's command channel is closed; all
	// subsequent public calls return this error.
	ErrActorStopped = errors.New("peer manager actor stopped")

	// ErrSelfConnect means a dial target equals the local node's own
	// listen address.
	ErrSelfConnect = errors.New("refusing to dial self")

	// ErrAlreadyKnown means a dial target is already present as a
	// pending connection or a registered peer.
	ErrAlreadyKnown = errors.New("listen address already known")
)
