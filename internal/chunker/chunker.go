// Package chunker splits extracted text into overlapping fixed-size windows.
package chunker

import "iter"

// Split returns a lazy sequence of overlapping windows over text. Windows
// are chunkSize bytes and advance by chunkSize-overlap, so every window
// after the first repeats the last overlap bytes of its predecessor; the
// final window may be shorter. The sequence can be ranged over more than
// once and has no side effects.
//
// An overlap >= chunkSize would never advance, so the step is clamped to
// a minimum of 1.
func Split(text string, chunkSize, overlap int) iter.Seq[string] {
	return func(yield func(string) bool) {
		if text == "" || chunkSize <= 0 {
			return
		}
		if overlap < 0 {
			overlap = 0
		}
		step := chunkSize - overlap
		if step < 1 {
			step = 1
		}
		for start := 0; start < len(text); start += step {
			end := start + chunkSize
			if end > len(text) {
				end = len(text)
			}
			if !yield(text[start:end]) {
				return
			}
			if end == len(text) {
				return
			}
		}
	}
}

// SplitAll collects Split into a slice.
func SplitAll(text string, chunkSize, overlap int) []string {
	var chunks []string
	for c := range Split(text, chunkSize, overlap) {
		chunks = append(chunks, c)
	}
	return chunks
}

// Reassemble is the inverse of Split for a known overlap: it concatenates
// chunks after stripping the overlapping prefix of every chunk but the
// first, reproducing the original text.
func Reassemble(chunks []string, overlap int) string {
	var out []byte
	for i, c := range chunks {
		if i > 0 {
			if overlap >= len(c) {
				continue
			}
			c = c[overlap:]
		}
		out = append(out, c...)
	}
	return string(out)
}
