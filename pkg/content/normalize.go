package content

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"
	"unicode"

	"github.com/siete/assetforge/pkg/errors"
)

// Data is decoded content JSON.
type Data map[string]any

// Keys returns the keys of d in sorted order.
func (d Data) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a shallow copy of d.
func (d Data) Clone() Data {
	out := make(Data, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Strings returns every top-level string field of d.
func (d Data) Strings() map[string]string {
	out := make(map[string]string)
	for k, v := range d {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

// Items returns the list stored under key as a slice of objects.
// Entries that are not objects are skipped.
func (d Data) Items(key string) []map[string]any {
	raw, ok := d[key].([]any)
	if !ok {
		if typed, ok := d[key].([]map[string]any); ok {
			return typed
		}
		return nil
	}
	out := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		switch m := item.(type) {
		case map[string]any:
			out = append(out, m)
		case Data:
			out = append(out, m)
		}
	}
	return out
}

// Decode parses a JSON object and also returns the order of its top-level keys.
// The order matters when flat fields are folded into slides.
func Decode(r io.Reader) (Data, []string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, err
	}
	var d Data
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "content data is not a JSON object")
	}
	order, err := keyOrder(raw)
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "content data is not a JSON object")
	}
	return d, order, nil
}

func keyOrder(raw []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected object")
	}
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := tok.(string)
		keys = append(keys, key)
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

// Option configures Normalize.
type Option func(*normalizeOpts)

type normalizeOpts struct {
	order []string
}

// WithKeyOrder sets the order in which flat fields are folded into the array
// field. Keys missing from order follow in sorted order.
func WithKeyOrder(keys []string) Option {
	return func(o *normalizeOpts) { o.order = keys }
}

// ResolveField returns the value of the canonical field, or of the first
// alias holding a non-empty value. It returns "" when nothing matches.
func ResolveField(d Data, field string, aliases []string) string {
	v, _ := resolve(d, field, aliases)
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// resolve returns the winning value and the source key it came from.
func resolve(d Data, field string, aliases []string) (any, string) {
	if v, ok := d[field]; ok && truthy(v) {
		return v, field
	}
	for _, a := range aliases {
		if v, ok := d[a]; ok && truthy(v) {
			return v, a
		}
	}
	return nil, ""
}

// Normalize maps aliases onto canonical fields and rebuilds the array field
// from leftover flat text fields. Unknown types are returned unchanged.
func Normalize(t VisualType, d Data, opts ...Option) Data {
	schema, ok := schemas[t]
	if !ok {
		return d
	}
	var o normalizeOpts
	for _, opt := range opts {
		opt(&o)
	}

	if schema.Array != "" && truthy(d[schema.Array]) && isList(d[schema.Array]) {
		out := d.Clone()
		for _, f := range schema.Fields {
			if truthy(out[f.Name]) {
				continue
			}
			if v, _ := resolve(d, f.Name, f.Aliases); v != nil {
				out[f.Name] = v
			}
		}
		return out
	}

	out := make(Data, len(schema.Fields)+1)
	consumed := make(map[string]bool)
	skip := make(map[string]bool)
	for _, m := range metadataFields {
		skip[m] = true
	}
	for _, f := range schema.Fields {
		skip[f.Name] = true
		for _, a := range f.Aliases {
			skip[a] = true
		}
		v, src := resolve(d, f.Name, f.Aliases)
		if v == nil {
			out[f.Name] = ""
			continue
		}
		out[f.Name] = v
		consumed[src] = true
	}

	if schema.Array != "" {
		items := []any{}
		for _, key := range orderedKeys(d, o.order) {
			if skip[key] || consumed[key] || strings.HasPrefix(key, "_") {
				continue
			}
			s, ok := d[key].(string)
			if !ok || s == "" {
				continue
			}
			headline := titleCase(strings.NewReplacer("_", " ", "-", " ").Replace(key))
			if t == CaseStudy {
				items = append(items, map[string]any{"metric": headline, "value": s})
			} else {
				items = append(items, map[string]any{"headline": headline, "body": s})
			}
		}
		out[schema.Array] = items
	}

	for _, m := range metadataFields {
		if v, ok := d[m]; ok {
			out[m] = v
		}
	}
	return out
}

// Validate checks that normalized data is renderable as t.
func Validate(t VisualType, d Data) error {
	if !IsVisual(t) {
		return errors.New(errors.ErrCodeInvalidContentType, "unknown visual content type: %q", string(t))
	}
	if len(d) == 0 {
		return errors.New(errors.ErrCodeEmptyContent, "content data is empty")
	}
	field := ArrayField(t)
	if field != "" && !truthy(d[field]) {
		return errors.New(errors.ErrCodeNoRenderableContent,
			"%q has no renderable %q, got keys: %s", string(t), field, strings.Join(d.Keys(), ", "))
	}
	return nil
}

func orderedKeys(d Data, order []string) []string {
	seen := make(map[string]bool, len(d))
	keys := make([]string, 0, len(d))
	for _, k := range order {
		if _, ok := d[k]; ok && !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	for _, k := range d.Keys() {
		if !seen[k] {
			keys = append(keys, k)
		}
	}
	return keys
}

// titleCase upper-cases every letter that follows a non-letter and
// lower-cases the rest.
func titleCase(s string) string {
	var b strings.Builder
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		b.WriteRune(r)
		prevLetter = false
	}
	return b.String()
}

func isList(v any) bool {
	if v == nil {
		return false
	}
	return reflect.TypeOf(v).Kind() == reflect.Slice
}

// truthy reports whether v counts as a present value.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case bool:
		return x
	case float64:
		return x != 0
	case int:
		return x != 0
	case int64:
		return x != 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}
