package chunker

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitterShortText(t *testing.T) {
	s := NewSplitter(1000, 150)

	text := "A single short paragraph that fits in one chunk."
	chunks := s.Chunk(text, "test.txt", "Test", "")

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != text {
		t.Errorf("expected chunk text to round-trip, got %q", chunks[0].Text)
	}
	if chunks[0].Metadata.Position != 0 {
		t.Errorf("expected position 0, got %d", chunks[0].Metadata.Position)
	}
	if chunks[0].Metadata.TotalChunks != 1 {
		t.Errorf("expected total_chunks 1, got %d", chunks[0].Metadata.TotalChunks)
	}
	if chunks[0].Metadata.Source != "test.txt" {
		t.Errorf("expected source test.txt, got %s", chunks[0].Metadata.Source)
	}
}

func TestSplitterEmptyText(t *testing.T) {
	s := NewSplitter(1000, 150)

	if got := s.Chunk("", "a.txt", "A", ""); len(got) != 0 {
		t.Errorf("expected 0 chunks for empty text, got %d", len(got))
	}
	if got := s.Chunk("   \n\n  ", "a.txt", "A", ""); len(got) != 0 {
		t.Errorf("expected 0 chunks for whitespace text, got %d", len(got))
	}
}

func TestSplitterPositions(t *testing.T) {
	s := NewSplitter(100, 20)

	var b strings.Builder
	for i := 0; i < 20; i++ {
		fmt.Fprintf(&b, "Paragraph number %d talks about topic %d in some detail.\n\n", i, i)
	}

	chunks := s.Chunk(b.String(), "doc.md", "Doc", "body")
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	for i, c := range chunks {
		if c.Metadata.Position != i {
			t.Errorf("chunk %d: expected position %d, got %d", i, i, c.Metadata.Position)
		}
		if c.Metadata.TotalChunks != len(chunks) {
			t.Errorf("chunk %d: expected total_chunks %d, got %d", i, len(chunks), c.Metadata.TotalChunks)
		}
	}
}

func TestSplitterRespectsSize(t *testing.T) {
	s := NewSplitter(120, 30)

	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 40)
	chunks := s.Chunk(text, "fox.txt", "Fox", "")

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if n := utf8.RuneCountInString(c.Text); n > 120 {
			t.Errorf("chunk %d exceeds size limit: %d chars", i, n)
		}
		if c.Text == "" {
			t.Errorf("chunk %d is empty", i)
		}
	}
}

func TestSplitterOverlap(t *testing.T) {
	s := NewSplitter(100, 50)

	text := strings.Repeat("alpha beta gamma delta epsilon zeta eta theta. ", 20)
	chunks := s.Chunk(text, "o.txt", "O", "")

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	// Each chunk after the first begins with text carried over from the
	// end of its predecessor.
	overlapping := 0
	for i := 0; i < len(chunks)-1; i++ {
		next := []rune(chunks[i+1].Text)
		if len(next) > 20 {
			next = next[:20]
		}
		if strings.Contains(chunks[i].Text, string(next)) {
			overlapping++
		}
	}
	if overlapping == 0 {
		t.Error("expected at least one overlapping boundary between consecutive chunks")
	}
}

func TestSplitterDeterministic(t *testing.T) {
	s := NewSplitter(90, 20)

	text := strings.Repeat("Sentences repeat here. Another one follows. ", 15)
	first := s.Chunk(text, "d.txt", "D", "")
	second := s.Chunk(text, "d.txt", "D", "")

	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Text != second[i].Text {
			t.Errorf("chunk %d differs between runs", i)
		}
	}
}

func TestSplitterNoSeparators(t *testing.T) {
	s := NewSplitter(50, 10)

	text := strings.Repeat("x", 200)
	chunks := s.Chunk(text, "x.txt", "X", "")

	if len(chunks) < 4 {
		t.Fatalf("expected at least 4 chunks for 200 unbroken chars, got %d", len(chunks))
	}
	for i, c := range chunks {
		if n := utf8.RuneCountInString(c.Text); n > 50 {
			t.Errorf("chunk %d exceeds size limit: %d chars", i, n)
		}
	}
}

func TestSplitterPrefersParagraphBreaks(t *testing.T) {
	s := NewSplitter(40, 0)

	paras := []string{
		"First paragraph is right here.",
		"Second paragraph follows it.",
		"Third one closes the document.",
	}
	chunks := s.Chunk(strings.Join(paras, "\n\n"), "p.txt", "P", "")

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.Text != paras[i] {
			t.Errorf("chunk %d: expected intact paragraph %q, got %q", i, paras[i], c.Text)
		}
	}
}

func TestEstimateTokens(t *testing.T) {
	if got := EstimateTokens("12345678"); got != 2 {
		t.Errorf("expected 2 tokens for 8 chars, got %d", got)
	}
	if got := EstimateTokens(""); got != 0 {
		t.Errorf("expected 0 tokens for empty text, got %d", got)
	}
}
