package chunker

import "testing"

// sampleText generates deterministic non-repeating text so overlap checks
// cannot pass by coincidence of a periodic pattern.
func sampleText(n int) string {
	b := make([]byte, n)
	x := uint32(2463534242)
	for i := range b {
		x ^= x << 13
		x ^= x >> 17
		x ^= x << 5
		b[i] = 'a' + byte(x%26)
	}
	return string(b)
}

func TestSplitEmpty(t *testing.T) {
	if got := SplitAll("", 100, 10); got != nil {
		t.Fatalf("expected no chunks for empty text, got %d", len(got))
	}
}

func TestSplitShortInput(t *testing.T) {
	text := "short text"
	chunks := SplitAll(text, 100, 10)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != text {
		t.Fatalf("expected chunk to equal input, got %q", chunks[0])
	}
}

func TestSplitWindowScenario(t *testing.T) {
	// 2500 chars, size 1000, overlap 200: three windows, each after the
	// first starting 200 chars before the prior window's end.
	text := sampleText(2500)
	chunks := SplitAll(text, 1000, 200)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if len(chunks[0]) != 1000 || len(chunks[1]) != 1000 {
		t.Fatalf("expected first two chunks of 1000, got %d and %d", len(chunks[0]), len(chunks[1]))
	}
	if chunks[0][800:] != chunks[1][:200] {
		t.Fatal("chunk 1 does not start 200 chars before chunk 0's end")
	}
	if chunks[1][800:] != chunks[2][:200] {
		t.Fatal("chunk 2 does not start 200 chars before chunk 1's end")
	}
	// The final window carries the remaining tail; stripping the overlap
	// prefixes must reproduce the input exactly.
	if got := Reassemble(chunks, 200); got != text {
		t.Fatal("reassembled text does not match input")
	}
}

func TestSplitReconstruction(t *testing.T) {
	cases := []struct {
		name      string
		length    int
		chunkSize int
		overlap   int
	}{
		{"no overlap", 1000, 100, 0},
		{"small overlap", 2531, 300, 50},
		{"large overlap", 997, 128, 100},
		{"exact multiple", 2000, 500, 100},
		{"single window", 99, 100, 20},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			text := sampleText(tc.length)
			chunks := SplitAll(text, tc.chunkSize, tc.overlap)
			if got := Reassemble(chunks, tc.overlap); got != text {
				t.Fatalf("reassembled %d chars, want %d", len(got), len(text))
			}
		})
	}
}

func TestSplitOverlapAtLeastChunkSizeTerminates(t *testing.T) {
	text := sampleText(50)
	chunks := SplitAll(text, 10, 10)
	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}
	// Step clamps to 1, so every suffix window appears exactly once.
	if len(chunks) != 41 {
		t.Fatalf("expected 41 chunks with step 1, got %d", len(chunks))
	}
	chunks = SplitAll(text, 10, 25)
	if len(chunks) != 41 {
		t.Fatalf("expected 41 chunks with overlap > size, got %d", len(chunks))
	}
}

func TestSplitIsRestartable(t *testing.T) {
	seq := Split(sampleText(500), 100, 20)
	first := 0
	for range seq {
		first++
	}
	second := 0
	for range seq {
		second++
	}
	if first == 0 || first != second {
		t.Fatalf("sequence not restartable: first pass %d, second pass %d", first, second)
	}
}

func TestSplitEarlyStop(t *testing.T) {
	n := 0
	for range Split(sampleText(1000), 100, 0) {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Fatalf("expected early stop after 2 chunks, got %d", n)
	}
}
