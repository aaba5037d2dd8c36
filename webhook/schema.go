package webhook

import (
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// EnvelopeValidator checks a decoded callback against the JSON Schema for
// its Kind. Schemas are compiled once per Kind and cached.
type EnvelopeValidator struct {
	mu    sync.RWMutex
	cache map[Kind]*jsonschema.Schema
}

// NewEnvelopeValidator creates a validator with an empty schema cache.
func NewEnvelopeValidator() *EnvelopeValidator {
	return &EnvelopeValidator{
		cache: make(map[Kind]*jsonschema.Schema),
	}
}

// Validate checks doc, as returned by jsonschema.UnmarshalJSON, against
// the envelope schema for kind.
func (v *EnvelopeValidator) Validate(kind Kind, doc any) error {
	compiled, err := v.compile(kind)
	if err != nil {
		return fmt.Errorf("schema compilation error: %w", err)
	}
	return compiled.Validate(doc)
}

// compile returns the compiled schema for kind, using the cache when the
// kind has been seen before.
func (v *EnvelopeValidator) compile(kind Kind) (*jsonschema.Schema, error) {
	v.mu.RLock()
	if cached, ok := v.cache[kind]; ok {
		v.mu.RUnlock()
		return cached, nil
	}
	v.mu.RUnlock()

	doc, ok := envelopeSchema(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrUnrecognizedStatus, kind)
	}

	url := "esignatures://webhook/" + kind.Status() + ".json"

	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}

	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	v.mu.Lock()
	v.cache[kind] = compiled
	v.mu.Unlock()

	return compiled, nil
}

func object(required []string, props map[string]any) map[string]any {
	out := map[string]any{"type": "object"}
	if len(required) > 0 {
		req := make([]any, len(required))
		for i, r := range required {
			req[i] = r
		}
		out["required"] = req
	}
	if len(props) > 0 {
		out["properties"] = props
	}
	return out
}

func arrayOf(items any) map[string]any {
	return map[string]any{"type": "array", "items": items}
}

var (
	str      = map[string]any{"type": "string"}
	optStr   = map[string]any{"type": []any{"string", "null"}}
	idString = map[string]any{"type": "string", "minLength": float64(1)}
)

func signerSchema(extraRequired ...string) map[string]any {
	return object(append([]string{"id"}, extraRequired...), map[string]any{
		"id":         idString,
		"name":       optStr,
		"email":      optStr,
		"mobile":     optStr,
		"mobile_new": optStr,
	})
}

// envelopeSchema builds the schema document for kind. Only the fields the
// parser reads are constrained; anything else the provider sends passes.
func envelopeSchema(kind Kind) (map[string]any, bool) {
	var data map[string]any
	switch kind {
	case KindContractSent, KindSignerViewed, KindSignerSigned, KindSignerDeclined:
		data = object([]string{"contract", "signer"}, map[string]any{
			"contract": object([]string{"id"}, map[string]any{"id": idString, "metadata": optStr}),
			"signer":   signerSchema(),
		})
	case KindMobileUpdate:
		data = object([]string{"contract", "signer"}, map[string]any{
			"contract": object([]string{"id"}, map[string]any{"id": idString, "metadata": optStr}),
			"signer":   signerSchema("mobile_new"),
		})
	case KindContractWithdrawn:
		data = object([]string{"contract_id", "contract"}, map[string]any{
			"contract_id": idString,
			"contract": object([]string{"signers"}, map[string]any{
				"metadata": optStr,
				"signers":  arrayOf(signerSchema()),
			}),
		})
	case KindContractSigned:
		event := object([]string{"event", "timestamp"}, map[string]any{
			"event":     str,
			"timestamp": str,
		})
		signed := signerSchema("events")
		signed["properties"].(map[string]any)["events"] = arrayOf(event)
		signed["properties"].(map[string]any)["signer_field_values"] = map[string]any{
			"type": []any{"object", "null"},
		}
		data = object([]string{"contract"}, map[string]any{
			"contract": object([]string{"id", "contract_pdf_url", "signers"}, map[string]any{
				"id":               idString,
				"metadata":         optStr,
				"contract_pdf_url": str,
				"signers":          arrayOf(signed),
			}),
		})
	case KindWebHookError:
		data = object([]string{"error_code", "error_message", "contract_id"}, map[string]any{
			"error_code":    str,
			"error_message": str,
			"contract_id":   idString,
			"metadata":      optStr,
		})
	default:
		return nil, false
	}

	return object([]string{"status", "data"}, map[string]any{
		"status": map[string]any{"const": kind.Status()},
		"data":   data,
	}), true
}
