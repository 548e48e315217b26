// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ohler55/ojg"
	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ErrUnknownFormat is returned for a parameter document format that is not
// JSON, YAML or TOML.
var ErrUnknownFormat = errors.New("framegraph: unknown parameter document format")

// Format is the encoding of a parameter document.
type Format int

const (
	// FormatJSON is a JSON object.
	FormatJSON Format = iota

	// FormatYAML is a YAML mapping.
	FormatYAML

	// FormatTOML is a TOML table.
	FormatTOML
)

// String returns the string representation of Format.
func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	case FormatTOML:
		return "toml"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, path)
}

// Document returns the current values as a flat map. Float fields map to a
// number, vector fields to a list of numbers.
func (u *Uniforms) Document() map[string]any {
	doc := make(map[string]any, len(u.slots))
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, s := range u.slots {
		v := u.values[s.offset : s.offset+s.typ.Components()]
		if s.typ == Float {
			doc[s.name] = widen(v[0])
			continue
		}
		list := make([]any, len(v))
		for i, c := range v {
			list[i] = widen(c)
		}
		doc[s.name] = list
	}
	return doc
}

// Export encodes the current values as a document in format f. Keys are
// written in sorted order.
func (u *Uniforms) Export(f Format) ([]byte, error) {
	doc := u.Document()
	switch f {
	case FormatJSON:
		return []byte(oj.JSON(doc, &ojg.Options{Indent: 2, Sort: true})), nil
	case FormatYAML:
		out, err := yaml.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("encode yaml: %w", err)
		}
		return out, nil
	case FormatTOML:
		out, err := toml.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("encode toml: %w", err)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrUnknownFormat, f)
}

// Import decodes a document in format f and applies every value whose key
// names a field and whose arity matches. Unknown keys and mismatched values
// are skipped. It returns the number of fields applied.
func (u *Uniforms) Import(data []byte, f Format) (int, error) {
	doc, err := decodeDocument(data, f)
	if err != nil {
		return 0, err
	}
	return u.Apply(doc), nil
}

// ImportJSONPath applies the object selected by the JSONPath expression
// path from a JSON document, e.g. "$.scenes[0].params".
func (u *Uniforms) ImportJSONPath(data []byte, path string) (int, error) {
	x, err := jp.ParseString(path)
	if err != nil {
		return 0, fmt.Errorf("invalid jsonpath %q: %w", path, err)
	}
	root, err := oj.Parse(data)
	if err != nil {
		return 0, fmt.Errorf("decode json: %w", err)
	}
	doc, ok := x.First(root).(map[string]any)
	if !ok {
		return 0, fmt.Errorf("jsonpath %q does not select an object", path)
	}
	return u.Apply(doc), nil
}

// Apply sets every field named in doc. Keys are NFC-normalized before
// lookup. It returns the number of fields applied.
func (u *Uniforms) Apply(doc map[string]any) int {
	applied := 0
	for key, raw := range doc {
		t := u.Type(key)
		if t == 0 {
			continue
		}
		v, ok := toFloats(raw)
		if !ok || len(v) != t.Components() {
			Logger().Debug("framegraph: parameter skipped", "key", key, "type", t.String())
			continue
		}
		if u.set(key, t, v...) {
			applied++
		}
	}
	return applied
}

func decodeDocument(data []byte, f Format) (map[string]any, error) {
	switch f {
	case FormatJSON:
		v, err := oj.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
		doc, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("decode json: document is %T, not an object", v)
		}
		return doc, nil
	case FormatYAML:
		var doc map[string]any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
		return doc, nil
	case FormatTOML:
		var doc map[string]any
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode toml: %w", err)
		}
		return doc, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrUnknownFormat, f)
}

// toFloats accepts a number or a list of numbers.
func toFloats(raw any) ([]float32, bool) {
	if f, ok := toFloat(raw); ok {
		return []float32{f}, true
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, false
	}
	out := make([]float32, len(list))
	for i, item := range list {
		f, ok := toFloat(item)
		if !ok {
			return nil, false
		}
		out[i] = f
	}
	return out, true
}

func toFloat(raw any) (float32, bool) {
	switch v := raw.(type) {
	case float64:
		return float32(v), true
	case float32:
		return v, true
	case int:
		return float32(v), true
	case int64:
		return float32(v), true
	case uint64:
		return float32(v), true
	}
	return 0, false
}

// widen converts v to the float64 with the same shortest decimal form, so
// 0.1 exports as 0.1 rather than 0.10000000149011612.
func widen(v float32) float64 {
	f, err := strconv.ParseFloat(strconv.FormatFloat(float64(v), 'g', -1, 32), 64)
	if err != nil {
		return float64(v)
	}
	return f
}
