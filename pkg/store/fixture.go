package store

import (
	"context"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/siete/assetforge/pkg/content"
)

type fixture struct {
	Organizations  []Organization  `yaml:"organizations"`
	Resources      []Resource      `yaml:"resources"`
	Templates      []Template      `yaml:"templates"`
	TemplateAssets []TemplateAsset `yaml:"template_assets"`
	ContentItems   []fixtureItem   `yaml:"content_items"`
	OrgConfigs     []fixtureConfig `yaml:"org_configs"`
}

type fixtureItem struct {
	ContentItem `yaml:",inline"`
	Data        yaml.Node `yaml:"content_data"`
}

type fixtureConfig struct {
	OrgID string         `yaml:"org_id"`
	Key   string         `yaml:"key"`
	Value map[string]any `yaml:"value"`
}

// LoadFixture builds a Memory store from a YAML document with the lists
// organizations, resources, templates, template_assets, content_items and
// org_configs. Content data keeps its key order.
func LoadFixture(r io.Reader) (*Memory, error) {
	var f fixture
	if err := yaml.NewDecoder(r).Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}

	m := NewMemory()
	for _, o := range f.Organizations {
		m.PutOrganization(o)
	}
	for _, r := range f.Resources {
		m.PutResource(r)
	}
	for _, t := range f.Templates {
		m.PutTemplate(t)
	}
	for _, a := range f.TemplateAssets {
		m.PutTemplateAsset(a)
	}
	for _, it := range f.ContentItems {
		item := it.ContentItem
		data := content.Data{}
		if it.Data.Kind != 0 {
			if err := it.Data.Decode(&data); err != nil {
				return nil, fmt.Errorf("content item %s: %w", item.ID, err)
			}
		}
		item.ContentData = data
		item.KeyOrder = mappingKeys(&it.Data)
		m.PutContentItem(item)
	}
	for _, c := range f.OrgConfigs {
		if err := m.SetOrgConfig(context.Background(), c.OrgID, c.Key, c.Value); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// LoadFixtureFile reads a fixture from path.
func LoadFixtureFile(path string) (*Memory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadFixture(f)
}

func mappingKeys(n *yaml.Node) []string {
	if n.Kind != yaml.MappingNode {
		return nil
	}
	keys := make([]string, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		keys = append(keys, n.Content[i].Value)
	}
	return keys
}
