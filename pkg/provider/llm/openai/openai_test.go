package openai

import (
	"testing"

	"github.com/tastycandy/rlmtrans/pkg/provider/llm"
	"github.com/tastycandy/rlmtrans/pkg/types"
)

func TestConvertMessage(t *testing.T) {
	tests := []struct {
		role    string
		wantErr bool
	}{
		{"system", false},
		{"user", false},
		{"assistant", false},
		{"bogus", true},
	}
	for _, tt := range tests {
		_, err := convertMessage(types.Message{Role: tt.role, Content: "hi"})
		if (err != nil) != tt.wantErr {
			t.Errorf("role %q: err = %v, wantErr %v", tt.role, err, tt.wantErr)
		}
	}
}

func TestBuildParams(t *testing.T) {
	g := &Gateway{model: "gpt-4o-mini"}
	req := llm.CompletionRequest{
		Messages: []types.Message{
			{Role: "system", Content: "translate"},
			{Role: "user", Content: "hola mundo"},
		},
		Params: llm.GenParams{Temperature: 0.2, TopP: 0.9, MaxTokens: 1024},
	}

	params, err := g.buildParams(req)
	if err != nil {
		t.Fatalf("buildParams: %v", err)
	}
	if string(params.Model) != "gpt-4o-mini" {
		t.Errorf("Model = %q, want gpt-4o-mini", params.Model)
	}
	if len(params.Messages) != 2 {
		t.Errorf("len(Messages) = %d, want 2", len(params.Messages))
	}
	if !params.MaxCompletionTokens.Valid() || params.MaxCompletionTokens.Value != 1024 {
		t.Errorf("MaxCompletionTokens = %+v, want 1024", params.MaxCompletionTokens)
	}
}

func TestModelCapabilitiesO1Mini(t *testing.T) {
	caps := modelCapabilities("o1-mini")
	if caps.MaxOutputTokens != 65_536 {
		t.Errorf("MaxOutputTokens = %d, want 65536", caps.MaxOutputTokens)
	}
}
