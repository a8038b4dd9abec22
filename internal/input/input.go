// Package input loads source documents for translation. UTF-8 is the
// primary encoding; when a file is not valid UTF-8 a small chain of
// fallback decoders is tried (UTF-16 by BOM, CP949/EUC-KR, Latin-1), the
// same order the legacy tooling this engine replaces used for documents
// saved by older editors.
package input

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/korean"
	textunicode "golang.org/x/text/encoding/unicode"
)

// Document is a decoded source document.
type Document struct {
	Text     string
	Encoding string
}

// ReadFile reads and decodes the document at path.
func ReadFile(path string) (Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("input: read %s: %w", path, err)
	}
	return Decode(raw)
}

// Decode converts raw document bytes to a UTF-8 string, trying UTF-8
// first and then the fallback decoders in order. Latin-1 is last because
// it never fails; it maps every byte to some rune, so it only applies
// when nothing better matched.
func Decode(raw []byte) (Document, error) {
	raw = stripUTF8BOM(raw)
	if utf8.Valid(raw) {
		return Document{Text: normalize(string(raw)), Encoding: "utf-8"}, nil
	}

	if doc, ok := decodeUTF16(raw); ok {
		return doc, nil
	}
	if text, ok := tryDecoder(korean.EUCKR.NewDecoder(), raw); ok {
		return Document{Text: normalize(text), Encoding: "euc-kr"}, nil
	}

	text, err := charmap.ISO8859_1.NewDecoder().String(string(raw))
	if err != nil {
		return Document{}, fmt.Errorf("input: decode document: %w", err)
	}
	return Document{Text: normalize(text), Encoding: "latin-1"}, nil
}

func stripUTF8BOM(raw []byte) []byte {
	return bytes.TrimPrefix(raw, []byte{0xEF, 0xBB, 0xBF})
}

// decodeUTF16 decodes raw as UTF-16 when a BOM is present.
func decodeUTF16(raw []byte) (Document, bool) {
	if len(raw) < 2 {
		return Document{}, false
	}
	hasBOM := (raw[0] == 0xFF && raw[1] == 0xFE) || (raw[0] == 0xFE && raw[1] == 0xFF)
	if !hasBOM {
		return Document{}, false
	}
	dec := textunicode.UTF16(textunicode.LittleEndian, textunicode.UseBOM).NewDecoder()
	text, ok := tryDecoder(dec, raw)
	if !ok {
		return Document{}, false
	}
	return Document{Text: normalize(text), Encoding: "utf-16"}, true
}

// tryDecoder runs dec over raw and reports failure when the output
// contains a replacement rune, since x/text decoders substitute U+FFFD
// for bytes they cannot map instead of returning an error.
func tryDecoder(dec *encoding.Decoder, raw []byte) (string, bool) {
	out, err := dec.Bytes(raw)
	if err != nil {
		return "", false
	}
	if bytes.ContainsRune(out, utf8.RuneError) {
		return "", false
	}
	return string(out), true
}

// normalize unifies line endings so the chunker's paragraph detection sees
// "\n\n" regardless of the platform the document was authored on.
func normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}

// DetectLanguage guesses the dominant language of text from a bounded
// sample of its script composition. Returns "ko", "ja", "en", or
// "unknown"; used only to hint source_lang when the caller left it unset.
func DetectLanguage(text string) string {
	sample := []rune(text)
	if len(sample) > 1000 {
		sample = sample[:1000]
	}

	var hangul, kana, kanji, latin int
	for _, r := range sample {
		switch {
		case unicode.Is(unicode.Hangul, r):
			hangul++
		case unicode.Is(unicode.Hiragana, r) || unicode.Is(unicode.Katakana, r):
			kana++
		case unicode.Is(unicode.Han, r):
			kanji++
		case r < 128 && unicode.IsLetter(r):
			latin++
		}
	}

	total := hangul + kana + kanji + latin
	if total == 0 {
		return "unknown"
	}
	switch {
	case hangul*10 > total*3:
		return "ko"
	case kana > 0:
		return "ja"
	case kanji*5 > total:
		return "ja"
	case latin*2 > total:
		return "en"
	}
	return "unknown"
}
