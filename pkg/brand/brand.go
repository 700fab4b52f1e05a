// Package brand assembles the organization branding that layouts render with.
package brand

// DefaultAccentColor is used when an organization has no accent color.
const DefaultAccentColor = "#0066FF"

// Brand is the branding of an organization.
type Brand struct {
	Name        string `json:"name"`
	LogoURL     string `json:"logo_url"`
	Website     string `json:"website"`
	AccentColor string `json:"accent_color"`
}

// WithDefaults returns b over the defaults: non-empty fields of b win.
func (b Brand) WithDefaults() Brand {
	out := Brand{AccentColor: DefaultAccentColor}
	if b.Name != "" {
		out.Name = b.Name
	}
	if b.LogoURL != "" {
		out.LogoURL = b.LogoURL
	}
	if b.Website != "" {
		out.Website = b.Website
	}
	if b.AccentColor != "" {
		out.AccentColor = b.AccentColor
	}
	return out
}

// Map returns b keyed by its JSON names, for template contexts.
func (b Brand) Map() map[string]any {
	return map[string]any{
		"name":         b.Name,
		"logo_url":     b.LogoURL,
		"website":      b.Website,
		"accent_color": b.AccentColor,
	}
}
