package pmanager

import (
	"github.com/mdedz/p2pchat/internal/connio"
	"github.com/mdedz/p2pchat/internal/peer"
)

// entry is the manager's private record for one connection: its
// connection id, a shared mutable Summary cell, and the I/O pair used
// to push outbound lines. Only the actor goroutine ever reads or
// writes the maps holding these; the Box inside may also be read (not
// written) by the connection's own reader task.
type entry struct {
	connID string
	box    *peer.Box
	pair   *connio.Pair
}

func (e *entry) summary() peer.Summary {
	return e.box.Get()
}
