package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/siete/assetforge/pkg/assets"
	"github.com/siete/assetforge/pkg/errors"
)

// Memory is an in-process Store. It is safe for concurrent use.
type Memory struct {
	mu        sync.RWMutex
	orgs      map[string]Organization
	resources []Resource
	templates map[string]Template
	assets    map[string][]TemplateAsset
	items     map[string]ContentItem
	configs   map[string][]byte
	now       func() time.Time
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		orgs:      make(map[string]Organization),
		templates: make(map[string]Template),
		assets:    make(map[string][]TemplateAsset),
		items:     make(map[string]ContentItem),
		configs:   make(map[string][]byte),
		now:       time.Now,
	}
}

// PutOrganization inserts or replaces o.
func (m *Memory) PutOrganization(o Organization) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orgs[o.ID] = o
}

// PutResource appends r.
func (m *Memory) PutResource(r Resource) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resources = append(m.resources, r)
}

// PutTemplate inserts or replaces t.
func (m *Memory) PutTemplate(t Template) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.templates[t.ID] = t
}

// PutTemplateAsset appends a to its template.
func (m *Memory) PutTemplateAsset(a TemplateAsset) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assets[a.TemplateID] = append(m.assets[a.TemplateID], a)
}

// PutContentItem inserts or replaces it.
func (m *Memory) PutContentItem(it ContentItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if it.KeyOrder == nil {
		it.KeyOrder = it.ContentData.Keys()
	}
	m.items[it.ID] = it
}

func (m *Memory) Organization(_ context.Context, id string) (*Organization, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orgs[id]
	if !ok {
		return nil, notFound(errors.ErrCodeNotFound, "organization", id)
	}
	return &o, nil
}

func (m *Memory) ActiveResources(_ context.Context, orgID, typ string) ([]Resource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Resource
	for _, r := range m.resources {
		if r.OrgID == orgID && r.Type == typ && r.Active {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) Template(_ context.Context, id string) (*Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.templates[id]
	if !ok {
		return nil, notFound(errors.ErrCodeTemplateNotFound, "template", id)
	}
	return &t, nil
}

func (m *Memory) TemplateAssets(_ context.Context, templateID string) ([]assets.Asset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.assets[templateID]
	out := make([]assets.Asset, len(list))
	for i, a := range list {
		out[i] = a.Asset
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

func (m *Memory) ContentItem(_ context.Context, id string) (*ContentItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	it, ok := m.items[id]
	if !ok {
		return nil, notFound(errors.ErrCodeContentNotFound, "content item", id)
	}
	it.ContentData = it.ContentData.Clone()
	it.KeyOrder = append([]string(nil), it.KeyOrder...)
	return &it, nil
}

func (m *Memory) UpdateRender(_ context.Context, itemID string, u RenderUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[itemID]
	if !ok {
		return notFound(errors.ErrCodeContentNotFound, "content item", itemID)
	}
	it.RenderedHTML = u.RenderedHTML
	if u.AssetURL != "" {
		it.AssetURL = u.AssetURL
	}
	it.UpdatedAt = m.now()
	m.items[itemID] = it
	return nil
}

func (m *Memory) OrgConfig(_ context.Context, orgID, key string, v any) error {
	m.mu.RLock()
	data, ok := m.configs[configKey(orgID, key)]
	m.mu.RUnlock()
	if !ok {
		return errors.New(errors.ErrCodeNotFound, "config %q not set for organization %q", key, orgID)
	}
	return json.Unmarshal(data, v)
}

func (m *Memory) SetOrgConfig(_ context.Context, orgID, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode config %s: %w", key, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.configs[configKey(orgID, key)] = data
	return nil
}

func (m *Memory) Close(context.Context) error { return nil }

func configKey(orgID, key string) string { return orgID + "\x00" + key }

var _ Store = (*Memory)(nil)
