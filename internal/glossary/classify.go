package glossary

import (
	"regexp"
	"strings"
	"unicode"
)

// TermKind classifies a term candidate so the orchestrator can route it
// into the right typed glossary subset at commit time.
type TermKind string

const (
	// KindGeneral: no structural signal; stays a plain candidate pending
	// explicit promotion.
	KindGeneral TermKind = "general"
	// KindReferenceSign: a short alphanumeric identifier such as a patent
	// figure label ("100", "10a", "S102"). Always hard tier.
	KindReferenceSign TermKind = "reference_sign"
	// KindProperNoun: one or more capitalized words naming a person,
	// place, organization, or product.
	KindProperNoun TermKind = "proper_noun"
	// KindTechnical: an acronym, identifier-shaped token, or hyphenated
	// compound typical of technical vocabulary.
	KindTechnical TermKind = "technical"
)

// referenceSignRE matches the identifier shapes technical and legal
// documents use for figure/claim references: digits with an optional
// trailing letter ("100", "10a") or a single leading letter followed by
// digits ("S102", "M1").
var referenceSignRE = regexp.MustCompile(`^(\d+[A-Za-z]?|[A-Za-z]\d+)$`)

// properNounWordRE matches one capitalized word of at least two letters.
// Single letters are excluded: "A" or "B" alone carry no signal and must
// stay ordinary candidates.
var properNounWordRE = regexp.MustCompile(`^[A-Z][a-z]+$`)

// ClassifyTerm inspects a candidate's source term and assigns the typed
// subset it belongs to. Classification looks only at the source: targets
// are free-form labeled phrases and carry no reliable shape.
func ClassifyTerm(source string) TermKind {
	s := strings.TrimSpace(source)
	if s == "" {
		return KindGeneral
	}

	if referenceSignRE.MatchString(s) {
		return KindReferenceSign
	}
	if isTechnicalShape(s) {
		return KindTechnical
	}
	if isProperNounPhrase(s) {
		return KindProperNoun
	}
	return KindGeneral
}

// isTechnicalShape reports acronyms ("API", "GPU"), hyphen/underscore
// compounds ("CPU-cache", "max_tokens"), and camelCase identifiers.
func isTechnicalShape(s string) bool {
	if len(s) >= 2 && !strings.Contains(s, " ") && isAllUpperLetters(s) {
		return true
	}
	if strings.ContainsAny(s, "-_") && !strings.Contains(s, " ") {
		return true
	}
	return hasInnerUpper(s)
}

// isAllUpperLetters requires every cased letter to be uppercase and at
// least one uppercase letter to be present, so uncased scripts (Hangul,
// Han, kana) never read as acronyms.
func isAllUpperLetters(s string) bool {
	hasUpper := false
	for _, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		if !unicode.IsUpper(r) {
			return false
		}
		hasUpper = true
	}
	return hasUpper
}

// isProperNounPhrase reports whether every space-separated word is a
// capitalized word of two or more letters.
func isProperNounPhrase(s string) bool {
	words := strings.Fields(s)
	if len(words) == 0 {
		return false
	}
	for _, w := range words {
		if !properNounWordRE.MatchString(w) {
			return false
		}
	}
	return true
}

// hasInnerUpper reports an uppercase rune after the first position of a
// single token, the camelCase signal ("llamaCpp", "OpenAI").
func hasInnerUpper(s string) bool {
	if strings.Contains(s, " ") {
		return false
	}
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			return true
		}
	}
	return false
}
