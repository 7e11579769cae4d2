// Package model normalizes Bedrock model identifiers into stable family
// names used for telemetry attributes and extraction dispatch.
package model

import "strings"

// Family identifies the response/request schema a model speaks. It is
// computed once per call so extractors can dispatch on it without
// re-parsing the model id.
type Family int

const (
	FamilyUnknown Family = iota
	FamilyClaude         // Claude 1/2 prompt-completion API
	FamilyClaude3        // Claude 3 and 3.5 messages API
	FamilyTitan
	FamilyTitanV2
	FamilyTitanEmbed
	FamilyCohere // legacy command models
	FamilyCohereCommandR
	FamilyCohereEmbed
	FamilyAI21Jurassic
	FamilyAI21Jamba
	FamilyLlama2
	FamilyLlama3
	FamilyMistral
	FamilyMistralLarge
)

// String returns the family name for logging.
func (f Family) String() string {
	switch f {
	case FamilyClaude:
		return "claude"
	case FamilyClaude3:
		return "claude3"
	case FamilyTitan:
		return "titan"
	case FamilyTitanV2:
		return "titan-v2"
	case FamilyTitanEmbed:
		return "titan-embed"
	case FamilyCohere:
		return "cohere"
	case FamilyCohereCommandR:
		return "cohere-command-r"
	case FamilyCohereEmbed:
		return "cohere-embed"
	case FamilyAI21Jurassic:
		return "ai21-jurassic"
	case FamilyAI21Jamba:
		return "ai21-jamba"
	case FamilyLlama2:
		return "llama2"
	case FamilyLlama3:
		return "llama3"
	case FamilyMistral:
		return "mistral"
	case FamilyMistralLarge:
		return "mistral-large"
	default:
		return "unknown"
	}
}

// IsEmbedding reports whether models in this family produce embedding
// vectors rather than text completions.
func (f Family) IsEmbedding() bool {
	return f == FamilyTitanEmbed || f == FamilyCohereEmbed
}

// normalized maps concrete Bedrock model ids to stable model names.
var normalized = map[string]string{
	// Amazon Titan
	"amazon.titan-text-lite-v1":        "amazon.titan",
	"amazon.titan-text-express-v1":     "amazon.titan",
	"amazon.titan-text-premier-v1":     "amazon.titan",
	"amazon.titan-text-lite-v2:0":      "amazon.titan-v2",
	"amazon.titan-text-express-v2:0":   "amazon.titan-v2",
	"amazon.titan-text-premier-v2:0":   "amazon.titan-v2",
	"amazon.titan-embed-text-v1":       "amazon.titan-embed",
	"amazon.titan-embed-text-v2:0":     "amazon.titan-embed-v2",
	"amazon.titan-embed-image-v1":      "amazon.titan-embed-image",
	"amazon.titan-embed-g1-text-02":    "amazon.titan-embed-g1",
	"amazon.titan-embed-g1-text-01":    "amazon.titan-embed-g1",
	"amazon.titan-image-generator-v1":  "amazon.titan-image",
	"amazon.titan-multimodal-v1":       "amazon.titan-multimodal",
	"amazon.titan-multimodal-v2:0":     "amazon.titan-multimodal-v2",

	// Anthropic Claude
	"anthropic.claude-v1":                        "anthropic.claude",
	"anthropic.claude-v2":                        "anthropic.claude",
	"anthropic.claude-v2:1":                      "anthropic.claude",
	"anthropic.claude-instant-v1":                "anthropic.claude-instant",
	"anthropic.claude-3-sonnet-20240229-v1:0":    "anthropic.claude-3-sonnet",
	"anthropic.claude-3-haiku-20240307-v1:0":     "anthropic.claude-3-haiku",
	"anthropic.claude-3-opus-20240229-v1:0":      "anthropic.claude-3-opus",
	"anthropic.claude-3-5-sonnet-20240620-v1:0":  "anthropic.claude-3-5-sonnet",

	// AI21 Labs
	"ai21.j2-mid-v1":            "ai21.jurassic-2",
	"ai21.j2-ultra-v1":          "ai21.jurassic-2",
	"ai21.jamba-instruct-v1:0":  "ai21.jamba",

	// Cohere
	"cohere.command-text-v14":                "cohere.command",
	"cohere.command-light-text-v14":          "cohere.command-light",
	"cohere.command-r-v1:0":                  "cohere.command-r",
	"cohere.command-r-plus-v1:0":             "cohere.command-r-plus",
	"cohere.embed-english-v3":                "cohere.embed",
	"cohere.embed-multilingual-v3":           "cohere.embed-multilingual",
	"cohere.embed-english-light-v3:0":        "cohere.embed-english-light",
	"cohere.embed-multilingual-light-v3:0":   "cohere.embed-multilingual-light",

	// Meta
	"meta.llama2-13b-chat-v1":       "meta.llama2",
	"meta.llama2-70b-chat-v1":       "meta.llama2",
	"meta.llama3-8b-instruct-v1:0":  "meta.llama3",
	"meta.llama3-70b-instruct-v1:0": "meta.llama3",

	// Mistral AI
	"mistral.mistral-7b-instruct-v0:2":    "mistral.mistral",
	"mistral.mixtral-8x7b-instruct-v0:1":  "mistral.mixtral",
	"mistral.mistral-large-2402-v1:0":     "mistral.mistral-large",
	"mistral.mistral-small-2402-v1:0":     "mistral.mistral-small",
	"mistral.mistral-medium-2312-v1:0":    "mistral.mistral-medium",
}

// Normalize maps a Bedrock model id to a stable model name. Unknown ids
// with a vendor prefix normalize to "{vendor}.unknown"; ids without a
// prefix pass through; empty input yields "unknown". Total over all
// strings, never errors.
func Normalize(modelID string) string {
	if modelID == "" {
		return "unknown"
	}
	if name, ok := normalized[modelID]; ok {
		return name
	}
	if vendor, _, ok := strings.Cut(modelID, "."); ok {
		return vendor + ".unknown"
	}
	return modelID
}

// FamilyOf classifies a model id into the schema family used for
// extraction dispatch. Classification is by vendor segment with version
// refinement, matching the id shapes Bedrock issues.
func FamilyOf(modelID string) Family {
	id := strings.ToLower(modelID)

	switch {
	case strings.Contains(id, "amazon.titan"):
		switch {
		case strings.Contains(id, "embed"):
			return FamilyTitanEmbed
		case strings.Contains(id, "v2"):
			return FamilyTitanV2
		default:
			return FamilyTitan
		}

	case strings.Contains(id, "anthropic.claude"):
		if strings.Contains(id, "-3-") || strings.Contains(id, "3-5") || strings.Contains(id, "3.5") {
			return FamilyClaude3
		}
		return FamilyClaude

	case strings.Contains(id, "cohere"):
		switch {
		case strings.Contains(id, "embed"):
			return FamilyCohereEmbed
		case strings.Contains(id, "command-r"):
			return FamilyCohereCommandR
		default:
			return FamilyCohere
		}

	case strings.Contains(id, "ai21"):
		if strings.Contains(id, "jamba") {
			return FamilyAI21Jamba
		}
		return FamilyAI21Jurassic

	case strings.Contains(id, "meta.llama"):
		if strings.Contains(id, "llama3") || strings.Contains(id, "llama-3") {
			return FamilyLlama3
		}
		return FamilyLlama2

	case strings.Contains(id, "mistral"):
		if strings.Contains(id, "large") {
			return FamilyMistralLarge
		}
		return FamilyMistral

	default:
		return FamilyUnknown
	}
}

// Vendor returns the vendor prefix of a model id, or "" when absent.
func Vendor(modelID string) string {
	vendor, _, ok := strings.Cut(modelID, ".")
	if !ok {
		return ""
	}
	return vendor
}
