// Package tokens provides fallback token counting for responses that do
// not report usage. Counts produced here are estimates and are tagged as
// such on the emitted events.
package tokens

import (
	"strings"
	"sync"

	"github.com/tiktoken-go/tokenizer"

	"github.com/driftsignal/bedrockobs/internal/model"
)

// Counter counts tokens for a model's text.
type Counter interface {
	Count(modelID, text string) (int, error)
	Supports(modelID string) bool
}

// Registry tries registered counters in order and falls back to a
// character-ratio estimator. Count never fails.
type Registry struct {
	counters []Counter
	fallback Counter
}

// NewRegistry builds a registry with the tiktoken counter registered and
// the character estimator as fallback.
func NewRegistry() *Registry {
	return &Registry{
		counters: []Counter{NewTiktokenCounter()},
		fallback: NewEstimator(),
	}
}

// Register adds a counter ahead of the fallback.
func (r *Registry) Register(c Counter) {
	r.counters = append(r.counters, c)
}

// Count returns the token count for text under modelID. A counter error
// degrades to the fallback estimate.
func (r *Registry) Count(modelID, text string) int {
	if text == "" {
		return 0
	}
	for _, c := range r.counters {
		if !c.Supports(modelID) {
			continue
		}
		if n, err := c.Count(modelID, text); err == nil {
			return n
		}
	}
	n, _ := r.fallback.Count(modelID, text)
	return n
}

// TiktokenCounter counts with tiktoken BPE encodings. Bedrock models do
// not publish tokenizers, so the nearest encoding is an approximation:
// cl100k for the chat families, o200k otherwise.
type TiktokenCounter struct {
	mu    sync.RWMutex
	cache map[tokenizer.Encoding]tokenizer.Codec
}

// NewTiktokenCounter creates a counter with an empty codec cache.
func NewTiktokenCounter() *TiktokenCounter {
	return &TiktokenCounter{cache: make(map[tokenizer.Encoding]tokenizer.Codec)}
}

// Supports reports whether the model maps to a known family.
func (c *TiktokenCounter) Supports(modelID string) bool {
	return model.FamilyOf(modelID) != model.FamilyUnknown
}

// Count encodes text and returns the token count.
func (c *TiktokenCounter) Count(modelID, text string) (int, error) {
	codec, err := c.codec(encodingFor(modelID))
	if err != nil {
		return 0, err
	}
	ids, _, err := codec.Encode(text)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

func (c *TiktokenCounter) codec(enc tokenizer.Encoding) (tokenizer.Codec, error) {
	c.mu.RLock()
	codec, ok := c.cache[enc]
	c.mu.RUnlock()
	if ok {
		return codec, nil
	}

	codec, err := tokenizer.Get(enc)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.cache[enc] = codec
	c.mu.Unlock()
	return codec, nil
}

func encodingFor(modelID string) tokenizer.Encoding {
	switch model.FamilyOf(modelID) {
	case model.FamilyClaude, model.FamilyClaude3,
		model.FamilyLlama2, model.FamilyLlama3,
		model.FamilyMistral, model.FamilyMistralLarge,
		model.FamilyCohere, model.FamilyCohereCommandR:
		return tokenizer.Cl100kBase
	default:
		return tokenizer.O200kBase
	}
}

// Estimator approximates token counts from character length.
type Estimator struct {
	// CharsPerToken is the average characters per token.
	CharsPerToken float64
}

// NewEstimator returns an estimator with the 4 chars/token default.
func NewEstimator() *Estimator {
	return &Estimator{CharsPerToken: 4.0}
}

// Supports accepts every model.
func (e *Estimator) Supports(string) bool { return true }

// Count estimates the token count, rounding up and counting at least one
// token for non-empty text.
func (e *Estimator) Count(_ string, text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 1, nil
	}
	n := int(float64(len(text))/e.CharsPerToken + 0.5)
	if n < 1 {
		n = 1
	}
	return n, nil
}
