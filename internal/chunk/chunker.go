// Package chunk splits source documents into ordered, bounded text chunks
// that respect semantic boundaries (sentences, paragraphs, claim markers,
// subtitle cues) so that each chunk can be translated independently while
// still fitting inside a model's context budget.
package chunk

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/tastycandy/rlmtrans/pkg/types"
)

// sentenceTerminators are the characters (Latin and CJK) that end a
// sentence across the presets this engine supports.
var sentenceTerminators = []rune{'.', '!', '?', '。', '！', '？'}

// Config controls how Chunker divides input text.
type Config struct {
	// Size is the target chunk size in characters. Default 2000.
	Size int

	// Overlap is the maximum number of characters repeated between adjacent
	// chunks to preserve context across a boundary. Default 0 (no overlap).
	Overlap int

	// Strategy selects the splitting algorithm. Default
	// types.StrategyCharSentence.
	Strategy types.ChunkStrategy

	// BatchSize caps how many subtitle cues ChunkCues groups into one
	// chunk. Default 10. Ignored by the text strategies.
	BatchSize int

	// WarnFunc, if set, is called with a human-readable message whenever the
	// chunker must fall back to a lower-quality split (e.g. an oversized
	// paragraph split at sentence boundaries instead of being kept whole).
	WarnFunc func(message string)
}

func (c *Config) applyDefaults() {
	if c.Size <= 0 {
		c.Size = 2000
	}
	if c.Overlap < 0 {
		c.Overlap = 0
	}
	if c.Strategy == "" {
		c.Strategy = types.StrategyCharSentence
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 10
	}
}

func (c *Config) warn(msg string) {
	if c.WarnFunc != nil {
		c.WarnFunc(msg)
	}
}

// Chunker splits text into a dense, total-ordered sequence of [types.Chunk]
// values according to its [Config].
type Chunker struct {
	cfg Config
}

// New returns a Chunker configured by cfg. Zero-value fields are replaced
// with defaults.
func New(cfg Config) *Chunker {
	cfg.applyDefaults()
	return &Chunker{cfg: cfg}
}

// Chunk splits text per the configured strategy. The returned chunks cover
// the input without loss of content; overlap may replicate characters
// across adjacent chunks but never drops any.
func (c *Chunker) Chunk(text string) []types.Chunk {
	switch c.cfg.Strategy {
	case types.StrategyParagraph:
		return c.chunkByParagraph(text)
	case types.StrategyPatent:
		return c.chunkPatent(text)
	case types.StrategySubtitle:
		// Plain-text input has no cue structure; fall back to the
		// character strategy. Batch-aware subtitle chunking is exposed
		// separately as ChunkCues for callers that have parsed cues.
		return c.chunkCharSentence(text)
	default:
		return c.chunkCharSentence(text)
	}
}

// chunkCharSentence is the default strategy: fill up to Size, then search
// backward for a sentence terminator, then a paragraph break, else break at
// the max size. Adjacent chunks may overlap by up to Overlap characters.
func (c *Chunker) chunkCharSentence(text string) []types.Chunk {
	if text == "" {
		return nil
	}
	runes := []rune(text)
	n := len(runes)
	if n <= c.cfg.Size {
		return []types.Chunk{{Index: 0, SourceOffsetStart: 0, SourceOffsetEnd: n, Text: text}}
	}

	var chunks []types.Chunk
	pos := 0
	for pos < n {
		end := pos + c.cfg.Size
		if end >= n {
			end = n
		} else if boundary := findBreakPoint(runes, pos, end); boundary > pos {
			end = boundary
		}

		piece := strings.TrimSpace(string(runes[pos:end]))
		if piece != "" {
			chunks = append(chunks, types.Chunk{
				Index:             len(chunks),
				SourceOffsetStart: pos,
				SourceOffsetEnd:   end,
				Text:              piece,
			})
		}

		next := end - c.cfg.Overlap
		if next <= pos {
			next = end
		}
		pos = next
	}
	return chunks
}

// findBreakPoint searches runes[start:limit] backward for the best split
// point: a sentence terminator first, then a paragraph break, else limit.
func findBreakPoint(runes []rune, start, limit int) int {
	if b := findSentenceBoundary(runes, start, limit); b > start {
		return b
	}
	if b := findParagraphBoundary(runes, start, limit); b > start {
		return b
	}
	return limit
}

// findSentenceBoundary scans backward from limit for a sentence terminator
// followed by whitespace or a closing quote/paren, returning the index just
// past the terminator (and any trailing quote/paren).
func findSentenceBoundary(runes []rune, start, limit int) int {
	for i := limit - 1; i > start; i-- {
		if !isSentenceTerminator(runes[i]) {
			continue
		}
		end := i + 1
		// Skip a trailing closing quote or paren that belongs to the sentence.
		for end < limit && isClosingPunct(runes[end]) {
			end++
		}
		if end >= limit {
			return limit
		}
		if unicode.IsSpace(runes[end]) {
			return end
		}
	}
	return -1
}

// findParagraphBoundary scans backward from limit for a double newline.
func findParagraphBoundary(runes []rune, start, limit int) int {
	for i := limit - 1; i > start; i-- {
		if runes[i] == '\n' && i > start && runes[i-1] == '\n' {
			return i + 1
		}
	}
	return -1
}

func isSentenceTerminator(r rune) bool {
	for _, t := range sentenceTerminators {
		if r == t {
			return true
		}
	}
	return false
}

func isClosingPunct(r rune) bool {
	return r == '"' || r == '\'' || r == ')' || r == '”' || r == '’' || r == '」'
}

var paragraphSplit = regexp.MustCompile(`\n\s*\n`)

// chunkByParagraph accumulates whole paragraphs until the next would exceed
// Size, then emits. A single paragraph exceeding Size is split at sentence
// boundaries and a warning is emitted through cfg.WarnFunc.
func (c *Chunker) chunkByParagraph(text string) []types.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	paragraphs := paragraphSplit.Split(text, -1)

	var chunks []types.Chunk
	var cur strings.Builder
	offset := 0
	curStart := 0

	flush := func() {
		s := strings.TrimSpace(cur.String())
		if s != "" {
			chunks = append(chunks, types.Chunk{
				Index:             len(chunks),
				SourceOffsetStart: curStart,
				SourceOffsetEnd:   offset,
				Text:              s,
			})
		}
		cur.Reset()
	}

	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			offset += 2
			continue
		}
		if len(p) > c.cfg.Size {
			flush()
			c.cfg.warn("paragraph exceeds chunk size; splitting at sentence boundaries")
			for _, sub := range splitParagraphBySentences(p, c.cfg.Size) {
				chunks = append(chunks, types.Chunk{
					Index:             len(chunks),
					SourceOffsetStart: offset,
					SourceOffsetEnd:   offset + len(sub),
					Text:              sub,
				})
			}
			offset += len(p) + 2
			curStart = offset
			continue
		}
		if cur.Len() > 0 && cur.Len()+len(p)+2 > c.cfg.Size {
			flush()
			curStart = offset
		}
		if cur.Len() > 0 {
			cur.WriteString("\n\n")
		}
		cur.WriteString(p)
		offset += len(p) + 2
	}
	flush()
	return chunks
}

var sentenceSplit = regexp.MustCompile(`([.!?。！？]\s+)`)

// splitParagraphBySentences greedily packs sentences into pieces no larger
// than size.
func splitParagraphBySentences(paragraph string, size int) []string {
	parts := sentenceSplit.Split(paragraph, -1)
	seps := sentenceSplit.FindAllString(paragraph, -1)

	var sentences []string
	for i, p := range parts {
		s := p
		if i < len(seps) {
			s += seps[i]
		}
		if strings.TrimSpace(s) != "" {
			sentences = append(sentences, s)
		}
	}

	var out []string
	var cur strings.Builder
	for _, s := range sentences {
		if cur.Len() > 0 && cur.Len()+len(s) > size {
			out = append(out, strings.TrimSpace(cur.String()))
			cur.Reset()
		}
		cur.WriteString(s)
	}
	if cur.Len() > 0 {
		out = append(out, strings.TrimSpace(cur.String()))
	}
	return out
}

// SplitAtSentenceBoundary splits text at the last sentence boundary at or
// before its midpoint, or, when none precedes it, at the first boundary
// after it, for the orchestrator's split_chunk repair path. Returns
// ok=false when text contains no sentence terminator to split on.
func SplitAtSentenceBoundary(text string) (head, tail string, ok bool) {
	runes := []rune(text)
	mid := len(runes) / 2
	if mid == 0 {
		return "", "", false
	}
	if b := findSentenceBoundary(runes, 0, mid+1); b > 0 {
		return strings.TrimSpace(string(runes[:b])), strings.TrimSpace(string(runes[b:])), true
	}
	// Search forward from the midpoint if no boundary precedes it.
	if b := findSentenceBoundary(runes, mid, len(runes)); b > mid {
		return strings.TrimSpace(string(runes[:b])), strings.TrimSpace(string(runes[b:])), true
	}
	return "", "", false
}

// claimMarker matches patent claim headers such as "Claim 1:" or "(Claim 1)".
var claimMarker = regexp.MustCompile(`(?i)\(claims?\s*\d+\)|\bclaims?\s*\d+\s*[:.]`)

// chunkPatent splits on claim markers, preserving the marker with its
// following content as a single chunk. Text before the first marker becomes
// its own leading chunk.
func (c *Chunker) chunkPatent(text string) []types.Chunk {
	locs := claimMarker.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return c.chunkCharSentence(text)
	}

	var chunks []types.Chunk
	if pre := strings.TrimSpace(text[:locs[0][0]]); pre != "" {
		chunks = append(chunks, types.Chunk{
			Index:             0,
			SourceOffsetStart: 0,
			SourceOffsetEnd:   locs[0][0],
			Text:              pre,
		})
	}
	for i, loc := range locs {
		start := loc[0]
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		piece := strings.TrimSpace(text[start:end])
		if piece == "" {
			continue
		}
		chunks = append(chunks, types.Chunk{
			Index:             len(chunks),
			SourceOffsetStart: start,
			SourceOffsetEnd:   end,
			Text:              piece,
		})
	}
	return chunks
}

// Cue is a single subtitle entry as parsed from an SRT file.
type Cue struct {
	Index int
	Start string
	End   string
	Text  string
}

// ChunkCues groups subtitle cues into bounded batches of at most BatchSize
// cues (and at most Size characters), joining cue text with [CueSeparator]
// so chunk boundaries never split a single cue. A chunk's source offsets
// delimit its cue range within cues, which ReassembleSRT relies on to map
// batch translations back onto individual cues.
func (c *Chunker) ChunkCues(cues []Cue) []types.Chunk {
	var chunks []types.Chunk
	var texts []string
	size := 0
	startIdx := 0

	flush := func(endIdx int) {
		if len(texts) == 0 {
			return
		}
		chunks = append(chunks, types.Chunk{
			Index:             len(chunks),
			SourceOffsetStart: startIdx,
			SourceOffsetEnd:   endIdx,
			Text:              strings.Join(texts, CueSeparator),
		})
		texts = nil
		size = 0
	}

	for i, cue := range cues {
		if len(texts) >= c.cfg.BatchSize || (size > 0 && size+len(cue.Text) > c.cfg.Size) {
			flush(i)
			startIdx = i
		}
		texts = append(texts, cue.Text)
		size += len(cue.Text) + len(CueSeparator)
	}
	flush(len(cues))
	return chunks
}
