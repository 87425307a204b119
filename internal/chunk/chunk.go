// Package chunk splits input text into overlapping segments for retrieval.
package chunk

import (
	"strings"

	"mindmapgen/internal/types"
)

const (
	DefaultSize    = 1000
	DefaultOverlap = 200
)

// separators are tried in order when backing a cut off to a natural boundary.
var separators = [][]rune{
	[]rune("\n\n"),
	[]rune("\n"),
	[]rune(". "),
	[]rune(" "),
}

// Splitter cuts text into windows of at most Size runes. Consecutive windows share
// Overlap runes, so the union of all chunks covers the input.
type Splitter struct {
	Size    int
	Overlap int
}

// New returns a splitter, falling back to defaults for unusable settings.
func New(size, overlap int) *Splitter {
	if size <= 0 {
		size = DefaultSize
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
		if DefaultOverlap < size {
			overlap = DefaultOverlap
		}
	}
	return &Splitter{Size: size, Overlap: overlap}
}

// Split returns the ordered chunks of text. Empty text yields no chunks; text no
// longer than Size yields exactly one chunk equal to the text.
func (s *Splitter) Split(text string) []types.Chunk {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}
	if n <= s.Size {
		return []types.Chunk{{Text: text, Index: 0, Start: 0, End: n}}
	}

	var out []types.Chunk
	start := 0
	for {
		end := start + s.Size
		if end >= n {
			end = n
		} else {
			end = s.backoff(runes, start, end)
		}
		out = append(out, types.Chunk{
			Text:  string(runes[start:end]),
			Index: len(out),
			Start: start,
			End:   end,
		})
		if end == n {
			return out
		}
		start = end - s.Overlap
	}
}

// backoff moves a hard cut at end back to the last separator boundary that still
// keeps the chunk at least half full and guarantees forward progress.
func (s *Splitter) backoff(runes []rune, start, end int) int {
	lo := start + s.Size/2
	if floor := start + s.Overlap + 1; lo < floor {
		lo = floor
	}
	for _, sep := range separators {
		for cut := end; cut >= lo; cut-- {
			if cut-len(sep) < start {
				break
			}
			if hasSuffix(runes[:cut], sep) {
				return cut
			}
		}
	}
	return end
}

func hasSuffix(r, sep []rune) bool {
	if len(r) < len(sep) {
		return false
	}
	tail := r[len(r)-len(sep):]
	for i := range sep {
		if tail[i] != sep[i] {
			return false
		}
	}
	return true
}

// Reconstruct joins the non-overlapping spans of chunks back into the original text.
func Reconstruct(chunks []types.Chunk) string {
	var b strings.Builder
	covered := 0
	for _, c := range chunks {
		r := []rune(c.Text)
		skip := covered - c.Start
		if skip < 0 {
			skip = 0
		}
		if skip < len(r) {
			b.WriteString(string(r[skip:]))
		}
		if c.End > covered {
			covered = c.End
		}
	}
	return b.String()
}

// Texts returns the chunk texts in order.
func Texts(chunks []types.Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}
