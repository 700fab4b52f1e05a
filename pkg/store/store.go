// Package store reads and updates the documents a render needs:
// organizations, brand resources, templates with their assets, content
// items and per-organization config.
//
// [Mongo] is the production backend. [Memory] backs tests and the CLI's
// offline mode and can be seeded from a YAML fixture with [LoadFixture].
package store

import (
	"context"
	"time"

	"github.com/siete/assetforge/pkg/assets"
	"github.com/siete/assetforge/pkg/content"
	"github.com/siete/assetforge/pkg/errors"
	"github.com/siete/assetforge/pkg/overlay"
)

// Resource types read by the brand builder.
const (
	ResourceLogo         = "logo"
	ResourceColorPalette = "color_palette"
)

// Org config keys.
const (
	ConfigCanva      = "canva_config"
	ConfigFigma      = "figma_config"
	ConfigICPProfile = "icp_profile"
)

// Organization is a tenant.
type Organization struct {
	ID         string     `json:"id" bson:"_id" yaml:"id"`
	Name       string     `json:"name" bson:"name" yaml:"name"`
	LogoURL    string     `json:"logo_url,omitempty" bson:"logo_url,omitempty" yaml:"logo_url"`
	BrandVoice BrandVoice `json:"brand_voice" bson:"brand_voice" yaml:"brand_voice"`
}

// BrandVoice holds the brand settings edited by the organization.
type BrandVoice struct {
	Website     string `json:"website,omitempty" bson:"website,omitempty" yaml:"website"`
	AccentColor string `json:"accent_color,omitempty" bson:"accent_color,omitempty" yaml:"accent_color"`
	Tone        string `json:"tone,omitempty" bson:"tone,omitempty" yaml:"tone"`
}

// Resource is an uploaded brand resource such as a logo or color palette.
type Resource struct {
	ID        string         `json:"id" bson:"_id" yaml:"id"`
	OrgID     string         `json:"org_id" bson:"org_id" yaml:"org_id"`
	Type      string         `json:"resource_type" bson:"resource_type" yaml:"resource_type"`
	FileURL   string         `json:"file_url,omitempty" bson:"file_url,omitempty" yaml:"file_url"`
	Data      map[string]any `json:"data,omitempty" bson:"-" yaml:"data"`
	Active    bool           `json:"is_active" bson:"is_active" yaml:"is_active"`
	CreatedAt time.Time      `json:"created_at" bson:"created_at" yaml:"created_at"`
}

// DesignSource links a template to a Canva brand template or a Figma frame.
type DesignSource struct {
	Provider   string            `json:"provider" bson:"provider" yaml:"provider"`
	TemplateID string            `json:"template_id,omitempty" bson:"template_id,omitempty" yaml:"template_id"`
	FileKey    string            `json:"file_key,omitempty" bson:"file_key,omitempty" yaml:"file_key"`
	FrameID    string            `json:"frame_id,omitempty" bson:"frame_id,omitempty" yaml:"frame_id"`
	FieldMap   map[string]string `json:"field_map,omitempty" bson:"field_map,omitempty" yaml:"field_map"`
	Dimensions *Dimensions       `json:"dimensions,omitempty" bson:"dimensions,omitempty" yaml:"dimensions"`
}

// Dimensions overrides the output size of a design.
type Dimensions struct {
	Width  int `json:"width" bson:"width" yaml:"width"`
	Height int `json:"height" bson:"height" yaml:"height"`
}

// Template is a reusable visual layout for one content type.
type Template struct {
	ID           string             `json:"id" bson:"_id" yaml:"id"`
	OrgID        string             `json:"org_id" bson:"org_id" yaml:"org_id"`
	Name         string             `json:"name" bson:"name" yaml:"name"`
	ContentType  content.VisualType `json:"content_type" bson:"content_type" yaml:"content_type"`
	VisualLayout string             `json:"visual_layout,omitempty" bson:"visual_layout,omitempty" yaml:"visual_layout"`
	VisualCSS    string             `json:"visual_css,omitempty" bson:"visual_css,omitempty" yaml:"visual_css"`
	Structure    map[string]any     `json:"structure,omitempty" bson:"-" yaml:"structure"`
	DesignSource *DesignSource      `json:"design_source,omitempty" bson:"design_source,omitempty" yaml:"design_source"`
}

// Zones returns the overlay zones declared under structure.zones.
func (t *Template) Zones() (overlay.Zones, error) {
	raw, ok := t.Structure["zones"].(map[string]any)
	if !ok {
		return overlay.Zones{}, nil
	}
	return overlay.FromMap(raw)
}

// TemplateAsset is a file uploaded to a template.
type TemplateAsset struct {
	ID           string `json:"id" bson:"_id" yaml:"id"`
	TemplateID   string `json:"template_id" bson:"template_id" yaml:"template_id"`
	assets.Asset `bson:",inline" yaml:",inline"`
}

// ContentItem is a piece of generated content awaiting a visual.
type ContentItem struct {
	ID           string             `json:"id" bson:"_id" yaml:"id"`
	OrgID        string             `json:"org_id" bson:"org_id" yaml:"org_id"`
	TemplateID   string             `json:"template_id,omitempty" bson:"template_id,omitempty" yaml:"template_id"`
	ContentType  content.VisualType `json:"content_type,omitempty" bson:"content_type,omitempty" yaml:"content_type"`
	ContentData  content.Data       `json:"content_data" bson:"-" yaml:"-"`
	RenderedHTML string             `json:"rendered_html,omitempty" bson:"rendered_html,omitempty" yaml:"rendered_html"`
	AssetURL     string             `json:"asset_url,omitempty" bson:"asset_url,omitempty" yaml:"asset_url"`
	UpdatedAt    time.Time          `json:"updated_at" bson:"updated_at" yaml:"updated_at"`

	// KeyOrder is the stored order of ContentData's top-level keys.
	KeyOrder []string `json:"-" bson:"-" yaml:"-"`
}

// RenderUpdate is written back to a content item after a render.
type RenderUpdate struct {
	RenderedHTML string
	AssetURL     string
}

// Store is the document storage used by the render service.
type Store interface {
	Organization(ctx context.Context, id string) (*Organization, error)
	// ActiveResources returns active resources of one type, newest first.
	ActiveResources(ctx context.Context, orgID, typ string) ([]Resource, error)
	Template(ctx context.Context, id string) (*Template, error)
	// TemplateAssets returns a template's assets ordered by sort order.
	TemplateAssets(ctx context.Context, templateID string) ([]assets.Asset, error)
	ContentItem(ctx context.Context, id string) (*ContentItem, error)
	UpdateRender(ctx context.Context, itemID string, u RenderUpdate) error
	// OrgConfig decodes the value stored under key into v.
	OrgConfig(ctx context.Context, orgID, key string, v any) error
	SetOrgConfig(ctx context.Context, orgID, key string, v any) error
	Close(ctx context.Context) error
}

func notFound(code errors.Code, kind, id string) error {
	return errors.New(code, "%s %q not found", kind, id)
}
