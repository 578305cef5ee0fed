// Package chunking splits extracted document text into overlapping,
// boundary-respecting chunks that feed the vector index.
package chunking

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"planforge/internal/config"
	"planforge/internal/langdetect"
	"planforge/pkg/types"
)

// ChunkingError indicates the input could not be decoded as text
type ChunkingError struct {
	DocID  string
	Reason string
}

func (e *ChunkingError) Error() string {
	return fmt.Sprintf("chunking failed for document %s: %s", e.DocID, e.Reason)
}

// Section markers recognized across supported languages
var sectionMarkers = []string{
	"Article", "Section", "Chapter", "Appendix", "Annex",
	"Madde", "Bölüm", "Kısım", "Ek",
	"Artikel", "Abschnitt", "Kapitel", "Anhang",
	"Chapitre", "Annexe",
	"Artículo", "Capítulo", "Sección", "Anexo",
}

// Lines like "1.", "2.3", "4.1.2" open numbered sections
var numberedHeader = regexp.MustCompile(`^\d+(\.\d+)*[.)]?\s`)

// Chunker splits document text into bounded chunks
type Chunker struct {
	config *config.ChunkingConfig
}

// NewChunker creates a chunker with the given configuration
func NewChunker(cfg *config.ChunkingConfig) *Chunker {
	return &Chunker{config: cfg}
}

// section is an intermediate split of the document
type section struct {
	index   int
	content string
}

// ChunkDocument splits a document's extracted text into chunks. Empty
// input yields an empty list; invalid UTF-8 yields a ChunkingError.
func (c *Chunker) ChunkDocument(docID, content string, base types.ChunkMetadata) ([]types.DocumentChunk, error) {
	if !utf8.ValidString(content) {
		return nil, &ChunkingError{DocID: docID, Reason: "content is not valid UTF-8"}
	}
	if strings.TrimSpace(content) == "" {
		return []types.DocumentChunk{}, nil
	}

	lang := base.Language
	if lang == "" {
		lang = langdetect.Detect(content)
	}

	chunks := []types.DocumentChunk{}
	index := 0
	for _, sec := range c.splitSections(content) {
		pieces := c.chunkSection(sec.content, lang)
		for _, piece := range pieces {
			piece = normalizeWhitespace(piece)
			if len(piece) < c.config.MinChunkSize {
				// Too small to stand alone; fold into the previous chunk
				// of the same section rather than losing content
				if n := len(chunks); n > 0 && chunks[n-1].Metadata.SectionIndex == sec.index {
					merged := chunks[n-1].Content + " " + piece
					chunks[n-1].Content = merged
					chunks[n-1].Metadata.ContentLength = len(merged)
					chunks[n-1].Metadata.QualityScore = c.qualityScore(merged)
				}
				continue
			}

			meta := base
			meta.Language = lang
			meta.SectionIndex = sec.index
			meta.ContentLength = len(piece)
			meta.QualityScore = c.qualityScore(piece)

			chunks = append(chunks, types.DocumentChunk{
				ChunkID:  types.ChunkID(docID, index),
				DocID:    docID,
				Index:    index,
				Content:  piece,
				Metadata: meta,
			})
			index++
		}
	}

	return chunks, nil
}

// splitSections scans lines and flushes the accumulated section whenever
// a header line is detected
func (c *Chunker) splitSections(content string) []section {
	var sections []section
	var buf strings.Builder

	flush := func() {
		if strings.TrimSpace(buf.String()) != "" {
			sections = append(sections, section{index: len(sections), content: buf.String()})
		}
		buf.Reset()
	}

	for _, line := range strings.Split(content, "\n") {
		if isSectionHeader(line) && buf.Len() > 0 {
			flush()
		}
		buf.WriteString(line)
		buf.WriteString("\n")
	}
	flush()

	return sections
}

// isSectionHeader reports whether a line opens a new section
func isSectionHeader(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}

	for _, marker := range sectionMarkers {
		if strings.HasPrefix(trimmed, marker+" ") || strings.HasPrefix(trimmed, marker+":") {
			return true
		}
	}

	if numberedHeader.MatchString(trimmed) {
		return true
	}

	// All-uppercase short lines are treated as headings
	if fields := strings.Fields(trimmed); len(fields) <= 8 {
		hasLetter := false
		for _, r := range trimmed {
			if unicode.IsLetter(r) {
				hasLetter = true
				if unicode.IsLower(r) {
					return false
				}
			}
		}
		return hasLetter
	}

	return false
}

// chunkSection splits one section into pieces within the configured bounds
func (c *Chunker) chunkSection(sec, lang string) []string {
	if len(sec) <= c.config.MaxChunkSize {
		return []string{sec}
	}

	paragraphs := strings.Split(sec, "\n\n")
	if !c.config.RespectParagraphs {
		paragraphs = []string{sec}
	}

	var pieces []string
	var buf strings.Builder

	emit := func() {
		if buf.Len() > 0 {
			chunk := buf.String()
			pieces = append(pieces, chunk)
			buf.Reset()
			// Seed the next buffer with the trailing overlap window of
			// the emitted chunk, aligned to a word boundary
			if c.config.Overlap > 0 {
				buf.WriteString(overlapTail(chunk, c.config.Overlap))
			}
		}
	}

	for _, para := range paragraphs {
		if para == "" {
			continue
		}

		// Oversized paragraphs fall back to character splitting
		if len(para) > c.config.MaxChunkSize {
			emit()
			for _, part := range c.splitCharacters(para, lang) {
				pieces = append(pieces, part)
			}
			continue
		}

		if buf.Len() > 0 && buf.Len()+len(para)+2 > c.config.ChunkSize && buf.Len() >= c.config.MinChunkSize {
			emit()
		}
		if buf.Len() > 0 {
			buf.WriteString("\n\n")
		}
		buf.WriteString(para)
	}

	if buf.Len() > 0 {
		pieces = append(pieces, buf.String())
	}

	return pieces
}

// splitCharacters cuts an oversized paragraph near the preferred size,
// scanning backwards for a sentence delimiter appropriate to the language
func (c *Chunker) splitCharacters(para, lang string) []string {
	delims := langdetect.SentenceDelimiters(lang)
	var parts []string

	rest := para
	for len(rest) > c.config.MaxChunkSize {
		cut := c.config.ChunkSize
		if cut > len(rest) {
			cut = len(rest)
		}

		// Scan backwards up to 200 characters for a sentence boundary,
		// but never cut below the minimum chunk size
		best := cut
		for i := cut - 1; i >= cut-200 && i >= c.config.MinChunkSize; i-- {
			if isDelimiter(rune(rest[i]), delims) {
				best = i + 1
				break
			}
		}

		parts = append(parts, rest[:best])
		next := best - c.config.Overlap
		if next < 0 {
			next = 0
		}
		start := wordBoundary(rest, next)
		if start >= best {
			start = best
		}
		rest = rest[start:]
	}
	if strings.TrimSpace(rest) != "" {
		parts = append(parts, rest)
	}

	return parts
}

func isDelimiter(r rune, delims []rune) bool {
	for _, d := range delims {
		if r == d {
			return true
		}
	}
	return false
}

// overlapTail returns the trailing window of at most n bytes aligned to
// the last word boundary before the window start
func overlapTail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	start := wordBoundary(s, len(s)-n)
	return s[start:]
}

// wordBoundary advances pos to the next word start in s
func wordBoundary(s string, pos int) int {
	if pos <= 0 {
		return 0
	}
	if pos >= len(s) {
		return len(s)
	}
	for pos < len(s) && !unicode.IsSpace(rune(s[pos])) {
		pos++
	}
	for pos < len(s) && unicode.IsSpace(rune(s[pos])) {
		pos++
	}
	return pos
}

var whitespaceRun = regexp.MustCompile(`[ \t]+`)
var newlineRun = regexp.MustCompile(`\n{3,}`)

// normalizeWhitespace collapses runs of spaces and excess blank lines
func normalizeWhitespace(s string) string {
	s = whitespaceRun.ReplaceAllString(s, " ")
	s = newlineRun.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// qualityScore rates a chunk for retrieval re-ranking
func (c *Chunker) qualityScore(content string) float64 {
	score := 1.0

	if len(content) < c.config.MinChunkSize*3/2 {
		score *= 0.5
	}

	if len(content) > 0 {
		spaces := 0
		for _, r := range content {
			if unicode.IsSpace(r) {
				spaces++
			}
		}
		if float64(spaces)/float64(len(content)) > 0.3 {
			score *= 0.8
		}
	}

	trimmed := strings.TrimRight(content, " \n")
	if trimmed != "" {
		last := rune(trimmed[len(trimmed)-1])
		if last == '.' || last == '!' || last == '?' || last == ':' || last == ';' {
			score *= 1.1
		}
	}

	for _, marker := range sectionMarkers {
		if strings.Contains(content, marker+" ") {
			score *= 1.2
			break
		}
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}
