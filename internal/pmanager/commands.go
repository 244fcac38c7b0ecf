package pmanager

import "github.com/mdedz/p2pchat/internal/peer"

// command is the sealed set of messages the actor goroutine consumes
// serially off its command channel (§4.D). Every mutation and every
// consistent read of the two membership maps is expressed as one of
// these — nothing outside run() ever touches conns/peers directly.
type command interface {
	isCommand()
}

type addConnCmd struct {
	entry *entry
	reply chan error
}

type registerNodeCmd struct {
	connID  string
	summary peer.Summary
	reply   chan error
}

type removeConnCmd struct {
	connID string
}

type removeNodeCmd struct {
	nodeID string
}

type broadcastCmd struct {
	msg string
}

type sendToCmd struct {
	nodeID string
	connID string
	msg    string
	reply  chan error
}

type getPeersCmd struct {
	reply chan []peer.Summary
}

type lookupResult struct {
	summary peer.Summary
	err     error
}

type getPeerCmd struct {
	nodeID string
	reply  chan lookupResult
}

type getConnCmd struct {
	connID string
	reply  chan lookupResult
}

type containsListenAddrCmd struct {
	addr  string
	reply chan bool
}

func (addConnCmd) isCommand()            {}
func (registerNodeCmd) isCommand()       {}
func (removeConnCmd) isCommand()         {}
func (removeNodeCmd) isCommand()         {}
func (broadcastCmd) isCommand()          {}
func (sendToCmd) isCommand()             {}
func (getPeersCmd) isCommand()           {}
func (getPeerCmd) isCommand()            {}
func (getConnCmd) isCommand()            {}
func (containsListenAddrCmd) isCommand() {}
