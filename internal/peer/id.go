package peer

import "github.com/google/uuid"

// NewID returns a fresh UUID-shaped identifier, used for both conn_id
// and node_id. The two namespaces are never compared to each other, but
// sharing a generator keeps both stable and collision-free.
func NewID() string {
	return uuid.NewString()
}
