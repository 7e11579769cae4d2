package extract

import "github.com/driftsignal/bedrockobs/internal/model"

// Params carries the sampling parameters recovered from a request body.
// Nil means the request did not set the parameter.
type Params struct {
	Temperature *float64
	TopP        *float64
}

// ModelParams extracts temperature and top_p, tolerating the key
// variants different families use (topP, top-p, Cohere's bare p, and a
// nested params object). Claude requests default top_p to 1.0 when
// unset, matching the service default.
func ModelParams(req Body, fam model.Family) Params {
	var p Params

	if v, ok := firstFloat(req, "temperature"); ok {
		p.Temperature = &v
	} else if nested := req.Map("params"); nested != nil {
		if v, ok := firstFloat(nested, "temperature"); ok {
			p.Temperature = &v
		}
	}

	if v, ok := firstFloat(req, "top_p", "topP", "top-p"); ok {
		p.TopP = &v
	} else if nested := req.Map("params"); nested != nil {
		if v, ok := firstFloat(nested, "top_p", "topP", "top-p"); ok {
			p.TopP = &v
		}
	}

	switch fam {
	case model.FamilyClaude, model.FamilyClaude3:
		if p.TopP == nil {
			v := 1.0
			p.TopP = &v
		}
	case model.FamilyCohere, model.FamilyCohereCommandR:
		if p.TopP == nil {
			if v, ok := firstFloat(req, "p"); ok {
				p.TopP = &v
			}
		}
	}

	return p
}

func firstFloat(b Body, keys ...string) (float64, bool) {
	for _, key := range keys {
		if v, ok := b.Float(key); ok {
			return v, true
		}
	}
	return 0, false
}
