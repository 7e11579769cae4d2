package extract

import "github.com/driftsignal/bedrockobs/internal/model"

// Strategy holds the shape-specific parsers for one model family. Nil
// fields fall through to the generic parsers.
type Strategy struct {
	Prompt       func(req Body) string
	Completion   func(resp Body) string
	FinishReason func(resp Body) string
}

// strategies is the per-family dispatch table. Families without an entry
// (and fields a family leaves nil) use the generic key fallbacks.
var strategies = map[model.Family]Strategy{
	model.FamilyClaude:         {Prompt: claudePrompt, Completion: claudeCompletion, FinishReason: stopReason},
	model.FamilyClaude3:        {Prompt: claude3Prompt, Completion: claude3Completion, FinishReason: stopReason},
	model.FamilyTitan:          {Prompt: titanPrompt, Completion: titanCompletion, FinishReason: titanFinishReason},
	model.FamilyTitanV2:        {Prompt: titanV2Prompt, Completion: titanV2Completion, FinishReason: stopReason},
	model.FamilyCohere:         {Prompt: coherePrompt, Completion: cohereCompletion, FinishReason: cohereFinishReason},
	model.FamilyCohereCommandR: {Prompt: cohereCommandRPrompt, Completion: cohereCommandRCompletion, FinishReason: cohereCommandRFinishReason},
	model.FamilyAI21Jurassic:   {Prompt: coherePrompt, Completion: jurassicCompletion},
	model.FamilyAI21Jamba:      {Prompt: jambaPrompt, Completion: jambaCompletion},
	model.FamilyLlama2:         {Prompt: coherePrompt, Completion: llama2Completion, FinishReason: stopReason},
	model.FamilyLlama3:         {Prompt: messagesPrompt, Completion: llama3Completion, FinishReason: stopReason},
	model.FamilyMistral:        {Prompt: mistralPrompt, Completion: mistralCompletion, FinishReason: stopReason},
	model.FamilyMistralLarge:   {Prompt: mistralPrompt, Completion: mistralLargeCompletion, FinishReason: stopReason},
}

// Prompt extracts the user prompt text from a parsed request body.
// Returns "" when nothing recognizable is present.
func Prompt(req Body, fam model.Family) string {
	if s, ok := strategies[fam]; ok && s.Prompt != nil {
		if v := s.Prompt(req); v != "" {
			return v
		}
	}
	return genericPrompt(req)
}

// Completion extracts the generated text from a parsed response body.
func Completion(resp Body, fam model.Family) string {
	if s, ok := strategies[fam]; ok && s.Completion != nil {
		if v := s.Completion(resp); v != "" {
			return v
		}
	}
	return genericCompletion(resp)
}

// FinishReason extracts the model's stop reason from a parsed response
// body. Returns "" when the response carries none.
func FinishReason(resp Body, fam model.Family) string {
	if s, ok := strategies[fam]; ok && s.FinishReason != nil {
		if v := s.FinishReason(resp); v != "" {
			return v
		}
	}
	return genericFinishReason(resp)
}

// stopReason is shared by every family that reports a top-level
// stop_reason field (Claude, Titan v2, Llama, Mistral).
func stopReason(resp Body) string {
	return resp.Str("stop_reason")
}
