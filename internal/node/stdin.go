package node

import (
	"bufio"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/mdedz/p2pchat/internal/pmanager"
)

// RunStdinLoop reads one line at a time from r and broadcasts each as a
// chat message. Used when stdout isn't a terminal (piped or redirected),
// mirroring main.rs's plain stdin fallback alongside the richer surfaces.
func RunStdinLoop(r io.Reader, mgr *pmanager.Manager, log *logrus.Entry) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		mgr.Broadcast("MSG|" + line)
	}
	if err := scanner.Err(); err != nil {
		log.WithError(err).Warn("stdin loop: read error")
	}
}
