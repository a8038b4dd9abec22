package glossary

import "testing"

func TestClassifyTerm(t *testing.T) {
	tests := []struct {
		source string
		want   TermKind
	}{
		{"100", KindReferenceSign},
		{"10a", KindReferenceSign},
		{"S102", KindReferenceSign},
		{"M1", KindReferenceSign},
		{"API", KindTechnical},
		{"CPU-cache", KindTechnical},
		{"max_tokens", KindTechnical},
		{"llamaCpp", KindTechnical},
		{"Gandalf", KindProperNoun},
		{"New York", KindProperNoun},
		{"Mount Doom", KindProperNoun},
		{"A", KindGeneral},
		{"B", KindGeneral},
		{"controller", KindGeneral},
		{"the quick fox", KindGeneral},
		{"", KindGeneral},
		{"간달프", KindGeneral},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			if got := ClassifyTerm(tt.source); got != tt.want {
				t.Errorf("ClassifyTerm(%q) = %q, want %q", tt.source, got, tt.want)
			}
		})
	}
}
