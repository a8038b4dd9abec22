package input

import (
	"testing"

	"golang.org/x/text/encoding/korean"
	textunicode "golang.org/x/text/encoding/unicode"
)

func TestDecodeUTF8Passthrough(t *testing.T) {
	doc, err := Decode([]byte("Hello, 세계.\r\nSecond line."))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if doc.Encoding != "utf-8" {
		t.Errorf("Encoding = %q, want utf-8", doc.Encoding)
	}
	if doc.Text != "Hello, 세계.\nSecond line." {
		t.Errorf("Text = %q, want CRLF normalized", doc.Text)
	}
}

func TestDecodeStripsUTF8BOM(t *testing.T) {
	doc, err := Decode([]byte{0xEF, 0xBB, 0xBF, 'h', 'i'})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if doc.Text != "hi" {
		t.Errorf("Text = %q, want BOM removed", doc.Text)
	}
}

func TestDecodeEUCKRFallback(t *testing.T) {
	raw, err := korean.EUCKR.NewEncoder().Bytes([]byte("안녕하세요 세계"))
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	doc, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if doc.Encoding != "euc-kr" {
		t.Errorf("Encoding = %q, want euc-kr", doc.Encoding)
	}
	if doc.Text != "안녕하세요 세계" {
		t.Errorf("Text = %q, want round-tripped Korean", doc.Text)
	}
}

func TestDecodeUTF16WithBOM(t *testing.T) {
	enc := textunicode.UTF16(textunicode.LittleEndian, textunicode.UseBOM).NewEncoder()
	raw, err := enc.Bytes([]byte("Hello 세계"))
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	doc, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if doc.Encoding != "utf-16" {
		t.Errorf("Encoding = %q, want utf-16", doc.Encoding)
	}
	if doc.Text != "Hello 세계" {
		t.Errorf("Text = %q, want decoded UTF-16", doc.Text)
	}
}

func TestDecodeLatin1LastResort(t *testing.T) {
	// 0xE9 is é in Latin-1 and invalid as a lone UTF-8 byte.
	doc, err := Decode([]byte{'c', 'a', 'f', 0xE9})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if doc.Encoding != "latin-1" {
		t.Errorf("Encoding = %q, want latin-1", doc.Encoding)
	}
	if doc.Text != "café" {
		t.Errorf("Text = %q, want café", doc.Text)
	}
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"korean", "안녕하세요. 오늘 날씨가 좋네요.", "ko"},
		{"japanese kana", "こんにちは、世界。元気ですか。", "ja"},
		{"english", "The quick brown fox jumps over the lazy dog.", "en"},
		{"empty", "", "unknown"},
		{"digits only", "12345 67890", "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectLanguage(tt.text); got != tt.want {
				t.Errorf("DetectLanguage(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}
