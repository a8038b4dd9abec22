package chunk

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tastycandy/rlmtrans/pkg/types"
)

// CueSeparator joins the cues of one batch into a single chunk text and is
// the marker the translated batch is split back on. It must survive a
// round trip through the model untouched, so it is short, line-oriented,
// and carries no translatable words.
const CueSeparator = "\n---\n"

var (
	srtBlockSplit = regexp.MustCompile(`\n\s*\n`)
	srtTimeRange  = regexp.MustCompile(`(\d{2}:\d{2}:\d{2}[,.]\d{3})\s*-->\s*(\d{2}:\d{2}:\d{2}[,.]\d{3})`)
)

// IsSRT reports whether text looks like an SRT subtitle file: a cue number
// on its own line followed by a timestamp range.
func IsSRT(text string) bool {
	sample := text
	if len(sample) > 4000 {
		sample = sample[:4000]
	}
	return srtTimecode.MatchString(sample) && srtCueNumber.MatchString(sample)
}

// ParseSRT parses SRT subtitle text into cues. Malformed blocks (missing
// index or timestamp line) are skipped rather than failing the whole file,
// matching how subtitle tooling generally tolerates stray noise between
// cues.
func ParseSRT(text string) []Cue {
	var cues []Cue
	for _, block := range srtBlockSplit.Split(strings.TrimSpace(text), -1) {
		lines := strings.Split(strings.TrimSpace(block), "\n")
		if len(lines) < 2 {
			continue
		}
		index, err := strconv.Atoi(strings.TrimSpace(lines[0]))
		if err != nil {
			continue
		}
		m := srtTimeRange.FindStringSubmatch(lines[1])
		if m == nil {
			continue
		}
		cueText := ""
		if len(lines) > 2 {
			cueText = strings.Join(lines[2:], "\n")
		}
		cues = append(cues, Cue{
			Index: index,
			Start: m[1],
			End:   m[2],
			Text:  cueText,
		})
	}
	return cues
}

// FormatSRT renders cues back to SRT text. ParseSRT ∘ FormatSRT is the
// identity on well-formed input, modulo the trailing newline.
func FormatSRT(cues []Cue) string {
	blocks := make([]string, 0, len(cues))
	for _, c := range cues {
		blocks = append(blocks, fmt.Sprintf("%d\n%s --> %s\n%s", c.Index, c.Start, c.End, c.Text))
	}
	return strings.Join(blocks, "\n\n") + "\n"
}

// SplitCueBatch splits a translated batch back into per-cue texts on
// [CueSeparator].
func SplitCueBatch(batch string) []string {
	parts := strings.Split(batch, CueSeparator)
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// ReassembleSRT maps batch translations back onto the original cues and
// renders the result as SRT. chunks must come from [Chunker.ChunkCues] over
// the same cues, so that each chunk's source offsets delimit its cue range.
// A cue whose translated part is missing (the model dropped a separator)
// keeps its original text; indices and timestamps are always preserved.
func ReassembleSRT(cues []Cue, chunks []types.Chunk, translations []string) string {
	out := make([]Cue, len(cues))
	copy(out, cues)

	for i, ch := range chunks {
		if i >= len(translations) || translations[i] == "" {
			continue
		}
		parts := SplitCueBatch(translations[i])
		for j := ch.SourceOffsetStart; j < ch.SourceOffsetEnd && j < len(out); j++ {
			k := j - ch.SourceOffsetStart
			if k < len(parts) && parts[k] != "" {
				out[j].Text = parts[k]
			}
		}
	}
	return FormatSRT(out)
}
