package model

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		modelID string
		want    string
	}{
		{
			name:    "known claude 3.5",
			modelID: "anthropic.claude-3-5-sonnet-20240620-v1:0",
			want:    "anthropic.claude-3-5-sonnet",
		},
		{
			name:    "known titan",
			modelID: "amazon.titan-text-express-v1",
			want:    "amazon.titan",
		},
		{
			name:    "known cohere embed",
			modelID: "cohere.embed-english-v3",
			want:    "cohere.embed",
		},
		{
			name:    "unknown with vendor prefix",
			modelID: "foo.bar-baz",
			want:    "foo.unknown",
		},
		{
			name:    "unknown without prefix",
			modelID: "mystery-model",
			want:    "mystery-model",
		},
		{
			name:    "empty",
			modelID: "",
			want:    "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.modelID); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.modelID, got, tt.want)
			}
		})
	}
}

func TestNormalize_Deterministic(t *testing.T) {
	ids := []string{
		"anthropic.claude-v2",
		"meta.llama3-8b-instruct-v1:0",
		"foo.bar",
		"",
	}
	for _, id := range ids {
		first := Normalize(id)
		for i := 0; i < 3; i++ {
			if got := Normalize(id); got != first {
				t.Fatalf("Normalize(%q) not deterministic: %q then %q", id, first, got)
			}
		}
	}
}

func TestFamilyOf(t *testing.T) {
	tests := []struct {
		modelID string
		want    Family
	}{
		{"anthropic.claude-3-5-sonnet-20240620-v1:0", FamilyClaude3},
		{"anthropic.claude-3-haiku-20240307-v1:0", FamilyClaude3},
		{"anthropic.claude-v2:1", FamilyClaude},
		{"amazon.titan-text-express-v1", FamilyTitan},
		{"amazon.titan-text-express-v2:0", FamilyTitanV2},
		{"amazon.titan-embed-text-v1", FamilyTitanEmbed},
		{"cohere.command-text-v14", FamilyCohere},
		{"cohere.command-r-plus-v1:0", FamilyCohereCommandR},
		{"cohere.embed-english-v3", FamilyCohereEmbed},
		{"ai21.j2-ultra-v1", FamilyAI21Jurassic},
		{"ai21.jamba-instruct-v1:0", FamilyAI21Jamba},
		{"meta.llama2-70b-chat-v1", FamilyLlama2},
		{"meta.llama3-70b-instruct-v1:0", FamilyLlama3},
		{"mistral.mistral-7b-instruct-v0:2", FamilyMistral},
		{"mistral.mistral-large-2402-v1:0", FamilyMistralLarge},
		{"foo.bar-baz", FamilyUnknown},
		{"", FamilyUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.modelID, func(t *testing.T) {
			if got := FamilyOf(tt.modelID); got != tt.want {
				t.Errorf("FamilyOf(%q) = %v, want %v", tt.modelID, got, tt.want)
			}
		})
	}
}

func TestFamilyIsEmbedding(t *testing.T) {
	if !FamilyOf("amazon.titan-embed-text-v1").IsEmbedding() {
		t.Error("titan embed family should be embedding")
	}
	if !FamilyOf("cohere.embed-multilingual-v3").IsEmbedding() {
		t.Error("cohere embed family should be embedding")
	}
	if FamilyOf("anthropic.claude-v2").IsEmbedding() {
		t.Error("claude family should not be embedding")
	}
}
