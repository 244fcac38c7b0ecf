package chatui

import (
	"github.com/clipperhouse/uax29/v2/words"
	"github.com/mattn/go-runewidth"
)

// wrapLine breaks text into display lines no wider than width cells,
// breaking only at word boundaries (never mid-word) so CJK/emoji-heavy
// chat text wraps the way a reader expects. Falls back to a hard break
// when a single word is wider than the whole line.
func wrapLine(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}

	var lines []string
	var cur string
	curWidth := 0

	seg := words.NewSegmenter([]byte(text))
	for seg.Next() {
		word := string(seg.Value())
		wWidth := runewidth.StringWidth(word)

		if curWidth+wWidth > width && cur != "" {
			lines = append(lines, cur)
			cur = ""
			curWidth = 0
		}

		for wWidth > width {
			// A single word longer than the line: hard-break it.
			cut := hardBreak(word, width)
			lines = append(lines, cut)
			word = word[len(cut):]
			wWidth = runewidth.StringWidth(word)
		}

		cur += word
		curWidth += wWidth
	}

	if cur != "" {
		lines = append(lines, cur)
	}
	if len(lines) == 0 {
		lines = []string{""}
	}
	return lines
}

// hardBreak returns the longest prefix of s whose display width fits
// within width cells.
func hardBreak(s string, width int) string {
	w := 0
	for i, r := range s {
		rw := runewidth.RuneWidth(r)
		if w+rw > width {
			return s[:i]
		}
		w += rw
	}
	return s
}
