package brand

import (
	"context"

	"github.com/siete/assetforge/pkg/errors"
	"github.com/siete/assetforge/pkg/store"
)

// Build assembles the brand of orgID. Sources in increasing priority for
// the logo: organization logo_url, then the newest active logo resource.
// Accent color and website come from the brand voice and fall back to the
// active color palette's primary_color and the ICP profile's website.
// A missing organization yields an empty brand.
func Build(ctx context.Context, s store.Store, orgID string) (Brand, error) {
	var b Brand

	org, err := s.Organization(ctx, orgID)
	switch {
	case errors.Is(err, errors.ErrCodeNotFound):
	case err != nil:
		return Brand{}, err
	default:
		b.Name = org.Name
		b.LogoURL = org.LogoURL
		b.Website = org.BrandVoice.Website
		b.AccentColor = org.BrandVoice.AccentColor
	}

	logos, err := s.ActiveResources(ctx, orgID, store.ResourceLogo)
	if err != nil {
		return Brand{}, err
	}
	if len(logos) > 0 && logos[0].FileURL != "" {
		b.LogoURL = logos[0].FileURL
	}

	if b.AccentColor == "" {
		palettes, err := s.ActiveResources(ctx, orgID, store.ResourceColorPalette)
		if err != nil {
			return Brand{}, err
		}
		if len(palettes) > 0 {
			if c, ok := palettes[0].Data["primary_color"].(string); ok {
				b.AccentColor = c
			}
		}
	}

	if b.Website == "" {
		var icp map[string]any
		err := s.OrgConfig(ctx, orgID, store.ConfigICPProfile, &icp)
		switch {
		case errors.Is(err, errors.ErrCodeNotFound):
		case err != nil:
			return Brand{}, err
		default:
			if w, ok := icp["website"].(string); ok {
				b.Website = w
			}
		}
	}
	return b, nil
}
