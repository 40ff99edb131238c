package chunking

import (
	"strings"
	"unicode"
)

// Span is a window over the source text. Start and End are rune offsets.
type Span struct {
	Start int
	End   int
	Text  string
}

// SplitSpans cuts text into windows of at most size runes. Each window ends on
// the coarsest boundary available inside it (blank line, line break, sentence
// end, then whitespace) and consecutive windows share up to overlap runes.
// The windows always cover the whole text: the first starts at 0, the last ends
// at len(text), and every window starts no later than the previous one ends.
func SplitSpans(text string, size, overlap int) []Span {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}
	if size <= 0 || n <= size {
		return []Span{{Start: 0, End: n, Text: text}}
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 4
	}

	var spans []Span
	start := 0
	for {
		if n-start <= size {
			spans = append(spans, Span{Start: start, End: n, Text: string(runes[start:n])})
			return spans
		}

		end := breakPoint(runes, start+overlap+1, start+size)
		spans = append(spans, Span{Start: start, End: end, Text: string(runes[start:end])})

		start = overlapStart(runes, end-overlap, end)
	}
}

// Split returns the trimmed, non-empty window texts of SplitSpans.
func Split(text string, size, overlap int) []string {
	spans := SplitSpans(text, size, overlap)
	out := make([]string, 0, len(spans))
	for _, s := range spans {
		if t := strings.TrimSpace(s.Text); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// SplitParents splits a document into parent windows for the profile.
func SplitParents(text string, profile Profile) []string {
	return Split(text, profile.ParentSize, profile.ParentOverlap)
}

// SplitChildren splits one parent into child windows for the profile.
func SplitChildren(parentText string, profile Profile) []string {
	return Split(parentText, profile.ChildSize, profile.ChildOverlap)
}

type boundary func(runes []rune, p int) bool

// Ordered from the coarsest boundary to the finest.
var boundaries = []boundary{
	func(r []rune, p int) bool { return p >= 2 && r[p-1] == '\n' && r[p-2] == '\n' },
	func(r []rune, p int) bool { return r[p-1] == '\n' },
	func(r []rune, p int) bool {
		return p >= 2 && unicode.IsSpace(r[p-1]) && strings.ContainsRune(".!?", r[p-2])
	},
	func(r []rune, p int) bool { return unicode.IsSpace(r[p-1]) },
}

// breakPoint returns the largest p in [lo, hi] that sits on the coarsest
// boundary found in that range, or hi when the range has no boundary.
func breakPoint(runes []rune, lo, hi int) int {
	for _, isBoundary := range boundaries {
		for p := hi; p >= lo; p-- {
			if isBoundary(runes, p) {
				return p
			}
		}
	}
	return hi
}

// overlapStart moves from forward to the next word start before end.
func overlapStart(runes []rune, from, end int) int {
	for q := from; q < end; q++ {
		if q == 0 || unicode.IsSpace(runes[q-1]) {
			return q
		}
	}
	return from
}
