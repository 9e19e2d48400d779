package chunker

import (
	"strings"
	"unicode/utf8"

	"ragserver/internal/domain"
)

// defaultSeparators orders split points from coarsest to finest: paragraph
// breaks, line breaks, sentence breaks, spaces, then raw characters.
var defaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Splitter splits text recursively by a separator hierarchy, packing the
// resulting segments into chunks of roughly size characters with overlap
// characters carried over between consecutive chunks.
type Splitter struct {
	size    int
	overlap int
	seps    []string
}

func NewSplitter(size, overlap int) *Splitter {
	return &Splitter{
		size:    size,
		overlap: overlap,
		seps:    defaultSeparators,
	}
}

func (s *Splitter) Chunk(text, source, title, section string) []domain.Chunk {
	pieces := s.split(text, s.seps)

	chunks := make([]domain.Chunk, 0, len(pieces))
	for i, piece := range pieces {
		chunks = append(chunks, domain.Chunk{
			Text: piece,
			Metadata: domain.ChunkMetadata{
				Source:      source,
				Title:       title,
				Section:     section,
				Position:    i,
				TotalChunks: len(pieces),
			},
		})
	}
	return chunks
}

func (s *Splitter) split(text string, seps []string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	if length(text) <= s.size {
		return []string{trimmed}
	}

	sep, rest := pickSeparator(text, seps)
	if sep == "" {
		return s.hardSplit(text)
	}

	var out []string
	var run []string
	for _, part := range strings.Split(text, sep) {
		if length(part) <= s.size {
			run = append(run, part)
			continue
		}
		if len(run) > 0 {
			out = append(out, s.merge(run, sep)...)
			run = nil
		}
		out = append(out, s.split(part, rest)...)
	}
	if len(run) > 0 {
		out = append(out, s.merge(run, sep)...)
	}
	return out
}

// merge packs segments into chunks up to the target size, joined by sep.
// When a chunk is emitted, trailing segments totalling at most the overlap
// budget are retained as the start of the next chunk.
func (s *Splitter) merge(parts []string, sep string) []string {
	sepLen := length(sep)

	var docs []string
	var cur []string
	total := 0

	for _, part := range parts {
		partLen := length(part)
		extra := 0
		if len(cur) > 0 {
			extra = sepLen
		}
		if total+partLen+extra > s.size && len(cur) > 0 {
			if doc := joinTrim(cur, sep); doc != "" {
				docs = append(docs, doc)
			}
			for len(cur) > 0 && (total > s.overlap || total+partLen+sepLen > s.size) {
				total -= length(cur[0])
				if len(cur) > 1 {
					total -= sepLen
				}
				cur = cur[1:]
			}
		}
		cur = append(cur, part)
		total += partLen
		if len(cur) > 1 {
			total += sepLen
		}
	}
	if doc := joinTrim(cur, sep); doc != "" {
		docs = append(docs, doc)
	}
	return docs
}

// hardSplit slices text that no separator could break into fixed windows.
func (s *Splitter) hardSplit(text string) []string {
	runes := []rune(text)
	step := s.size - s.overlap
	if step < 1 {
		step = 1
	}

	var out []string
	for start := 0; start < len(runes); start += step {
		end := start + s.size
		if end > len(runes) {
			end = len(runes)
		}
		if piece := strings.TrimSpace(string(runes[start:end])); piece != "" {
			out = append(out, piece)
		}
		if end == len(runes) {
			break
		}
	}
	return out
}

func pickSeparator(text string, seps []string) (string, []string) {
	for i, sep := range seps {
		if sep == "" {
			return "", nil
		}
		if strings.Contains(text, sep) {
			return sep, seps[i+1:]
		}
	}
	return "", nil
}

func joinTrim(parts []string, sep string) string {
	return strings.TrimSpace(strings.Join(parts, sep))
}

func length(s string) int {
	return utf8.RuneCountInString(s)
}

// EstimateTokens gives a rough token count for text, at about four
// characters per token.
func EstimateTokens(text string) int {
	return utf8.RuneCountInString(text) / 4
}
