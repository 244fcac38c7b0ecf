package chatui

import (
	"hash/fnv"

	"github.com/gdamore/tcell/v2"
	"github.com/lucasb-eyer/go-colorful"
)

// peerColor derives a stable, readable-on-dark-background color for a
// node_id by hashing it to a hue and fixing saturation/value — so the
// same peer always renders in the same color across a session without
// keeping a color-assignment table.
func peerColor(nodeID string) tcell.Color {
	h := fnv.New32a()
	h.Write([]byte(nodeID))
	hue := float64(h.Sum32()%360) / 360.0 * 360.0

	c := colorful.Hsv(hue, 0.55, 0.95)
	r, g, b := c.RGB255()
	return tcell.NewRGBColor(int32(r), int32(g), int32(b))
}
