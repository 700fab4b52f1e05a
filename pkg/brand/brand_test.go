package brand

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/siete/assetforge/pkg/store"
)

func TestWithDefaults(t *testing.T) {
	tests := []struct {
		name string
		in   Brand
		want Brand
	}{
		{"empty", Brand{}, Brand{AccentColor: DefaultAccentColor}},
		{"override", Brand{Name: "Acme", AccentColor: "#ff0000"}, Brand{Name: "Acme", AccentColor: "#ff0000"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, tt.in.WithDefaults()); diff != "" {
				t.Errorf("WithDefaults (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBuild(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	s.PutOrganization(store.Organization{ID: "org", Name: "Acme", LogoURL: "org.png"})
	s.PutResource(store.Resource{OrgID: "org", Type: store.ResourceLogo, FileURL: "old.png", Active: true, CreatedAt: time.Unix(100, 0)})
	s.PutResource(store.Resource{OrgID: "org", Type: store.ResourceLogo, FileURL: "new.png", Active: true, CreatedAt: time.Unix(200, 0)})
	s.PutResource(store.Resource{OrgID: "org", Type: store.ResourceColorPalette, Active: true, Data: map[string]any{"primary_color": "#112233"}})
	if err := s.SetOrgConfig(ctx, "org", store.ConfigICPProfile, map[string]any{"website": "acme.io"}); err != nil {
		t.Fatal(err)
	}

	got, err := Build(ctx, s, "org")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := Brand{Name: "Acme", LogoURL: "new.png", Website: "acme.io", AccentColor: "#112233"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Build (-want +got):\n%s", diff)
	}
}

func TestBuildBrandVoiceWins(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	s.PutOrganization(store.Organization{ID: "org", Name: "Acme", BrandVoice: store.BrandVoice{Website: "voice.io", AccentColor: "#abcdef"}})
	s.PutResource(store.Resource{OrgID: "org", Type: store.ResourceColorPalette, Active: true, Data: map[string]any{"primary_color": "#112233"}})
	_ = s.SetOrgConfig(ctx, "org", store.ConfigICPProfile, map[string]any{"website": "icp.io"})

	got, err := Build(ctx, s, "org")
	if err != nil {
		t.Fatal(err)
	}
	if got.Website != "voice.io" || got.AccentColor != "#abcdef" {
		t.Errorf("got %+v, want brand voice values", got)
	}
}

func TestBuildMissingOrg(t *testing.T) {
	got, err := Build(context.Background(), store.NewMemory(), "ghost")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got != (Brand{}) {
		t.Errorf("got %+v, want empty brand", got)
	}
}
