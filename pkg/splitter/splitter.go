// Package splitter chunks extracted document text for embedding. Markdown
// structure is honored first, then paragraphs, then sentences, so chunks
// follow the document's own boundaries instead of cutting mid-thought.
package splitter

import (
	"regexp"
	"strings"
)

const (
	// DefaultChunkSize is the target chunk length in runes. Overlap is
	// structural (trailing paragraphs or sentences), so emitted chunks can
	// run somewhat over the target when their units are large.
	DefaultChunkSize = 500

	paragraphOverlap = 2 // paragraphs carried into the next chunk
	sentenceOverlap  = 3 // sentences carried into the next chunk

	paragraphSep = "\n\n"
)

var headingRe = regexp.MustCompile(`(?m)^#{1,4}\s`)

// sentenceRe matches one sentence with its terminator attached. CJK
// terminators count as boundaries alongside the ASCII ones.
var sentenceRe = regexp.MustCompile(`[^。！？；.!?]*[。！？；.!?]+|[^。！？；.!?]+$`)

type Splitter struct {
	chunkSize int
}

func New(chunkSize int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Splitter{chunkSize: chunkSize}
}

// Split chunks text. Markdown input is cut at heading boundaries (levels
// 1-4) first and sections that fit within twice the chunk size stay whole;
// everything else goes through paragraph accumulation, with sentence-level
// accumulation for paragraphs that alone exceed the chunk size.
func (s *Splitter) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	if !headingRe.MatchString(text) {
		return s.splitByParagraph(text)
	}

	var chunks []string
	for _, section := range splitSections(text) {
		if runeLen(section) <= 2*s.chunkSize {
			chunks = append(chunks, section)
			continue
		}
		chunks = append(chunks, s.splitByParagraph(section)...)
	}
	return chunks
}

// splitSections cuts the text at markdown headings, keeping each heading
// with the body that follows it.
func splitSections(text string) []string {
	locs := headingRe.FindAllStringIndex(text, -1)

	var sections []string
	prev := 0
	for _, loc := range locs {
		if loc[0] > prev {
			if sec := strings.TrimSpace(text[prev:loc[0]]); sec != "" {
				sections = append(sections, sec)
			}
			prev = loc[0]
		}
	}
	if sec := strings.TrimSpace(text[prev:]); sec != "" {
		sections = append(sections, sec)
	}
	return sections
}

func (s *Splitter) splitByParagraph(block string) []string {
	var chunks []string
	var buf []string

	flush := func() {
		if len(buf) > 0 {
			chunks = append(chunks, strings.Join(buf, paragraphSep))
			buf = nil
		}
	}

	for _, p := range strings.Split(block, paragraphSep) {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		// A paragraph too big for any buffer is split by sentence on its own.
		if runeLen(p) > s.chunkSize {
			flush()
			chunks = append(chunks, s.splitBySentence(p)...)
			continue
		}
		if len(buf) > 0 && joinedLen(buf, paragraphSep)+runeLen(paragraphSep)+runeLen(p) > s.chunkSize {
			chunks = append(chunks, strings.Join(buf, paragraphSep))
			buf = overlapTail(buf, paragraphOverlap)
		}
		buf = append(buf, p)
	}
	flush()
	return chunks
}

func (s *Splitter) splitBySentence(paragraph string) []string {
	raw := sentenceRe.FindAllString(paragraph, -1)
	sentences := make([]string, 0, len(raw))
	for _, sent := range raw {
		if sent = strings.TrimSpace(sent); sent != "" {
			sentences = append(sentences, sent)
		}
	}

	var chunks []string
	var buf []string
	for _, sent := range sentences {
		if len(buf) > 0 && joinedLen(buf, "")+runeLen(sent) > s.chunkSize {
			chunks = append(chunks, strings.Join(buf, ""))
			buf = overlapTail(buf, sentenceOverlap)
		}
		buf = append(buf, sent)
	}
	if len(buf) > 0 {
		chunks = append(chunks, strings.Join(buf, ""))
	}
	return chunks
}

// overlapTail copies the last n units of an emitted chunk as the seed of the
// next buffer, so adjacent chunks share context across the boundary.
func overlapTail(units []string, n int) []string {
	if n > len(units) {
		n = len(units)
	}
	tail := make([]string, n)
	copy(tail, units[len(units)-n:])
	return tail
}

func runeLen(s string) int {
	return len([]rune(s))
}

func joinedLen(units []string, sep string) int {
	if len(units) == 0 {
		return 0
	}
	total := runeLen(sep) * (len(units) - 1)
	for _, u := range units {
		total += runeLen(u)
	}
	return total
}
