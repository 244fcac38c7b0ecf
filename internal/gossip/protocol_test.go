package gossip

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/mdedz/p2pchat/internal/peer"
)

func discardLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func TestJoinRoundTrip(t *testing.T) {
	self := peer.Summary{NodeID: "n1", ListenAddr: "127.0.0.1:4001", Uname: "alice"}

	frame := EncodeJoin(self)
	got, err := DecodeJoin(frame)
	if err != nil {
		t.Fatalf("DecodeJoin: %v", err)
	}
	if got != self {
		t.Fatalf("got %+v, want %+v", got, self)
	}
}

func TestDecodeJoinMissingBody(t *testing.T) {
	if _, err := DecodeJoin("JOIN"); err == nil {
		t.Fatal("expected error for frame with no body")
	}
}

func TestDecodeJoinMalformedJSON(t *testing.T) {
	if _, err := DecodeJoin("JOIN|not-json"); err == nil {
		t.Fatal("expected error for malformed JSON body")
	}
}

func TestPeersRoundTrip(t *testing.T) {
	summaries := []peer.Summary{
		{NodeID: "n1", ListenAddr: "127.0.0.1:4001"},
		{NodeID: "n2", ListenAddr: "127.0.0.1:4002"},
	}

	frame := EncodePeers(summaries)
	got := DecodePeers(frame, discardLog())

	if len(got) != len(summaries) {
		t.Fatalf("got %d summaries, want %d", len(got), len(summaries))
	}
	for i, s := range summaries {
		if got[i] != s {
			t.Fatalf("summary %d: got %+v, want %+v", i, got[i], s)
		}
	}
}

func TestDecodePeersSkipsMalformedSegments(t *testing.T) {
	good := peer.Summary{NodeID: "n1", ListenAddr: "127.0.0.1:4001"}
	frame := peersPrefix + `{"node_id":"n1","listen_addr":"127.0.0.1:4001"};not-json;`

	got := DecodePeers(frame, discardLog())
	if len(got) != 1 || got[0] != good {
		t.Fatalf("got %+v, want single entry %+v", got, good)
	}
}

func TestSummaryListenAddrs(t *testing.T) {
	summaries := []peer.Summary{
		{ListenAddr: "a:1"},
		{RemoteAddr: "only-remote"},
		{ListenAddr: "b:2"},
	}
	addrs := SummaryListenAddrs(summaries)
	if len(addrs) != 2 || addrs[0] != "a:1" || addrs[1] != "b:2" {
		t.Fatalf("got %v", addrs)
	}
}
