package dispatch

// FrontendKind classifies a FrontendEvent pushed out to the HTTP/WS
// surface (§6 external interfaces). These are presentation events, not
// wire frames — the web API layer marshals them to JSON as-is.
type FrontendKind string

const (
	PeerJoined       FrontendKind = "PeerJoined"
	PeerDisconnected FrontendKind = "PeerDisconnected"
	MessageReceived  FrontendKind = "MessageReceived"
)

// FrontendEvent is one notification for collaborator surfaces (the
// WebSocket broadcaster, the TUI) to render. From/Content are only
// meaningful for MessageReceived; NodeID is set for PeerJoined and
// PeerDisconnected.
type FrontendEvent struct {
	Kind    FrontendKind `json:"kind"`
	NodeID  string       `json:"node_id,omitempty"`
	From    string       `json:"from,omitempty"`
	Content string       `json:"content,omitempty"`
}
