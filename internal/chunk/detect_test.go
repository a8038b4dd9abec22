package chunk

import (
	"testing"

	"github.com/tastycandy/rlmtrans/pkg/types"
)

func TestDetectContentTypeSubtitle(t *testing.T) {
	srt := "1\n00:00:01,000 --> 00:00:03,000\nHello there.\n\n2\n00:00:03,500 --> 00:00:05,000\nHow are you?\n"
	if got := DetectContentType(srt); got != types.PresetSubtitle {
		t.Errorf("DetectContentType = %q, want subtitle", got)
	}
}

func TestDetectContentTypePatent(t *testing.T) {
	text := "This specification describes an embodiment. Claim 1: A device. Claim 2: The device of claim 1, wherein prior art is distinguished."
	if got := DetectContentType(text); got != types.PresetPatent {
		t.Errorf("DetectContentType = %q, want patent", got)
	}
}

func TestDetectContentTypePaper(t *testing.T) {
	text := "Abstract: we study X. Introduction: prior work by Smith et al. established Y. See figure 1 for details. Methodology follows."
	if got := DetectContentType(text); got != types.PresetPaper {
		t.Errorf("DetectContentType = %q, want paper", got)
	}
}

func TestDetectContentTypeGeneralFallback(t *testing.T) {
	text := "A plain document with no distinguishing structural markers at all."
	if got := DetectContentType(text); got != types.PresetGeneral {
		t.Errorf("DetectContentType = %q, want general", got)
	}
}
