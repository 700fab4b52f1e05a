// Package provider renders content through external design tools and falls
// back to the built-in pipeline when they cannot.
//
// A template may carry a [store.DesignSource] naming a Canva brand template
// or a Figma frame. The [Orchestrator] tries that provider first; any
// failure is logged, reported through the provider fallback hook, and the
// request is rendered by the built-in engine instead.
package provider

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/siete/assetforge/pkg/content"
	"github.com/siete/assetforge/pkg/pipeline"
	"github.com/siete/assetforge/pkg/store"
)

// Provider names.
const (
	Canva = "canva"
	Figma = "figma"
)

// ErrFallback marks a provider failure that should be served by the
// built-in engine.
var ErrFallback = errors.New("design provider unavailable")

// Job is one content item to render through a provider.
type Job struct {
	OrgID  string
	Source store.DesignSource
	pipeline.Request
}

// Renderer renders jobs through one design tool. Failures wrap ErrFallback.
type Renderer interface {
	Render(ctx context.Context, job Job) (*pipeline.Artifact, error)
}

func fallback(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrFallback, fmt.Sprintf(format, args...))
}

func fallbackErr(step string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrFallback, step, err)
}

// FieldText flattens a normalized field value into design text. Strings
// pass through; lists of slide objects become "headline\nbody" blocks
// separated by blank lines.
func FieldText(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []any:
		return joinParts(x)
	case []map[string]any:
		items := make([]any, len(x))
		for i, m := range x {
			items[i] = m
		}
		return joinParts(items)
	}
	return ""
}

func joinParts(items []any) string {
	var parts []string
	for _, it := range items {
		switch x := it.(type) {
		case map[string]any:
			h, _ := x["headline"].(string)
			b, _ := x["body"].(string)
			parts = append(parts, h+"\n"+b)
		case string:
			parts = append(parts, x)
		}
	}
	return strings.Join(parts, "\n\n")
}

// TextFields maps design field or layer names to text using fieldMap
// (content field → design name). Empty values are left out.
func TextFields(data content.Data, fieldMap map[string]string) map[string]string {
	out := make(map[string]string, len(fieldMap))
	for _, field := range sortedKeys(fieldMap) {
		if text := FieldText(data[field]); text != "" {
			out[fieldMap[field]] = text
		}
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
