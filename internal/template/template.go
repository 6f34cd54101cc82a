// Package template holds the in-memory representation of a synthesized
// CloudFormation template and its textual serializations.
package template

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document is a synthesized template as an opaque JSON-like tree. The
// synthesizer owns its shape; this package only serializes and inspects it.
type Document map[string]interface{}

// maxNesting bounds how deep a template tree may go before serialization
// refuses it. Real templates stay far below this; the bound exists so a
// cyclic or corrupted document fails loudly instead of recursing forever.
const maxNesting = 64

// ToYAML renders the document as YAML, the form uploaded to the toolkit
// bucket and submitted as a template body. Output is deterministic for a
// given document (map keys are emitted in sorted order), which keeps
// content-addressed upload keys stable across runs.
func (d Document) ToYAML() (string, error) {
	norm, err := normalize(map[string]interface{}(d), 0)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	enc := yaml.NewEncoder(&sb)
	enc.SetIndent(2)
	if err := enc.Encode(norm); err != nil {
		return "", fmt.Errorf("failed to render template as YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("failed to render template as YAML: %w", err)
	}
	return sb.String(), nil
}

// ToJSON renders the document as indented JSON. Used for diffs and debug
// output; the control plane accepts either form.
func (d Document) ToJSON() (string, error) {
	norm, err := normalize(map[string]interface{}(d), 0)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(norm, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to render template as JSON: %w", err)
	}
	return string(data), nil
}

// Resources returns the Resources section, or an empty map when absent.
func (d Document) Resources() map[string]interface{} {
	return section(d, "Resources")
}

// Outputs returns the Outputs section, or an empty map when absent.
func (d Document) Outputs() map[string]interface{} {
	return section(d, "Outputs")
}

// Parameters returns the Parameters section, or an empty map when absent.
func (d Document) Parameters() map[string]interface{} {
	return section(d, "Parameters")
}

func section(d Document, name string) map[string]interface{} {
	if m, ok := d[name].(map[string]interface{}); ok {
		return m
	}
	return map[string]interface{}{}
}

// Parse decodes a template body that may be JSON or YAML into a Document.
// GetTemplate returns whichever form the stack was last deployed with.
func Parse(body string) (Document, error) {
	var doc map[string]interface{}
	trimmed := strings.TrimSpace(body)
	if strings.HasPrefix(trimmed, "{") {
		if err := json.Unmarshal([]byte(trimmed), &doc); err != nil {
			return nil, fmt.Errorf("failed to parse template JSON: %w", err)
		}
		return Document(doc), nil
	}
	if err := yaml.Unmarshal([]byte(body), &doc); err != nil {
		return nil, fmt.Errorf("failed to parse template YAML: %w", err)
	}
	norm, err := normalize(doc, 0)
	if err != nil {
		return nil, err
	}
	return Document(norm.(map[string]interface{})), nil
}

// normalize flattens the tree into plain string-keyed maps and slices so the
// YAML and JSON encoders both accept it, rejecting documents nested beyond
// maxNesting levels.
func normalize(value interface{}, depth int) (interface{}, error) {
	if depth > maxNesting {
		return nil, fmt.Errorf("template nesting exceeds %d levels", maxNesting)
	}
	switch v := value.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, val := range v {
			norm, err := normalize(val, depth+1)
			if err != nil {
				return nil, err
			}
			out[key] = norm
		}
		return out, nil
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, val := range v {
			norm, err := normalize(val, depth+1)
			if err != nil {
				return nil, err
			}
			out[fmt.Sprintf("%v", key)] = norm
		}
		return out, nil
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, val := range v {
			norm, err := normalize(val, depth+1)
			if err != nil {
				return nil, err
			}
			out[i] = norm
		}
		return out, nil
	default:
		return v, nil
	}
}

// SortedKeys returns the keys of a template section in stable order; diff
// rendering and tests rely on it.
func SortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
