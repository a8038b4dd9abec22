package chunk

import (
	"regexp"
	"strings"

	"github.com/tastycandy/rlmtrans/pkg/types"
)

var (
	srtCueNumber  = regexp.MustCompile(`(?m)^\d+\s*$`)
	srtTimecode   = regexp.MustCompile(`\d{2}:\d{2}:\d{2}[,.]\d{3}\s*-->\s*\d{2}:\d{2}:\d{2}[,.]\d{3}`)
	patentMarkers = regexp.MustCompile(`(?i)\b(claim|claims|wherein|comprising|embodiment|prior art|specification)\b`)
	paperMarkers  = regexp.MustCompile(`(?i)\b(abstract|introduction|conclusion|methodology|references|et al\.|figure \d)\b`)
)

// DetectContentType inspects a sample of text and guesses which preset it
// belongs to. This is a convenience heuristic for callers that have not
// chosen a preset explicitly; it is never authoritative and a caller-chosen
// preset always takes precedence.
func DetectContentType(text string) types.Preset {
	sample := text
	if len(sample) > 4000 {
		sample = sample[:4000]
	}

	if srtTimecode.MatchString(sample) && srtCueNumber.MatchString(sample) {
		return types.PresetSubtitle
	}
	if n := len(patentMarkers.FindAllString(sample, -1)); n >= 3 {
		return types.PresetPatent
	}
	if n := len(paperMarkers.FindAllString(sample, -1)); n >= 2 {
		return types.PresetPaper
	}

	avgSentenceLen := averageSentenceLength(sample)
	if avgSentenceLen > 0 && avgSentenceLen < 60 && strings.Count(sample, `"`) > 4 {
		return types.PresetNovel
	}

	return types.PresetGeneral
}

func averageSentenceLength(text string) float64 {
	sentences := sentenceSplit.Split(text, -1)
	if len(sentences) == 0 {
		return 0
	}
	total := 0
	count := 0
	for _, s := range sentences {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		total += len(s)
		count++
	}
	if count == 0 {
		return 0
	}
	return float64(total) / float64(count)
}
