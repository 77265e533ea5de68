// Package openapi embeds the description of the power-service HTTP API
// served by the stub backend.
package openapi

import (
	_ "embed"
	"encoding/json"
	"sort"

	"sigs.k8s.io/yaml"
)

//go:embed spec.yaml
var specYAML []byte

// JSON returns the OpenAPI document serialized as JSON.
func JSON() ([]byte, error) {
	return yaml.YAMLToJSON(specYAML)
}

// YAML returns the raw OpenAPI YAML document.
func YAML() []byte {
	return specYAML
}

// Paths lists the documented paths in sorted order.
func Paths() ([]string, error) {
	raw, err := JSON()
	if err != nil {
		return nil, err
	}
	var doc struct {
		Paths map[string]json.RawMessage `json:"paths"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(doc.Paths))
	for p := range doc.Paths {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}
