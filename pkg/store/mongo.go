package store

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/siete/assetforge/pkg/assets"
	"github.com/siete/assetforge/pkg/content"
	"github.com/siete/assetforge/pkg/errors"
)

// Collection names.
const (
	CollOrganizations  = "organizations"
	CollResources      = "resources"
	CollTemplates      = "templates"
	CollTemplateAssets = "template_assets"
	CollContentItems   = "content_items"
	CollOrgConfigs     = "org_configs"
)

// Mongo is a Store backed by a MongoDB database.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
	now    func() time.Time
}

// NewMongo connects to uri and verifies the connection.
func NewMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "connect mongodb")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "ping mongodb")
	}
	return NewMongoFromClient(client, database), nil
}

// NewMongoFromClient wraps an existing client.
func NewMongoFromClient(client *mongo.Client, database string) *Mongo {
	return &Mongo{client: client, db: client.Database(database), now: time.Now}
}

// Database returns the underlying database, shared with GridFS storage.
func (m *Mongo) Database() *mongo.Database { return m.db }

// EnsureIndexes creates the indexes the queries rely on.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		CollResources: {{
			Keys: bson.D{{Key: "org_id", Value: 1}, {Key: "resource_type", Value: 1}, {Key: "created_at", Value: -1}},
		}},
		CollTemplateAssets: {{
			Keys: bson.D{{Key: "template_id", Value: 1}, {Key: "sort_order", Value: 1}},
		}},
		CollOrgConfigs: {{
			Keys:    bson.D{{Key: "org_id", Value: 1}, {Key: "key", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
	}
	for coll, models := range indexes {
		if _, err := m.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}
	return nil
}

func (m *Mongo) Organization(ctx context.Context, id string) (*Organization, error) {
	var o Organization
	err := m.db.Collection(CollOrganizations).FindOne(ctx, bson.M{"_id": id}).Decode(&o)
	if err != nil {
		return nil, findErr(err, errors.ErrCodeNotFound, "organization", id)
	}
	return &o, nil
}

type resourceDoc struct {
	Resource `bson:",inline"`
	Data     bson.D `bson:"data,omitempty"`
}

func (m *Mongo) ActiveResources(ctx context.Context, orgID, typ string) ([]Resource, error) {
	filter := bson.M{"org_id": orgID, "resource_type": typ, "is_active": true}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := m.db.Collection(CollResources).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find resources: %w", err)
	}
	var docs []resourceDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode resources: %w", err)
	}
	out := make([]Resource, len(docs))
	for i, d := range docs {
		out[i] = d.Resource
		out[i].Data, _ = plainMap(d.Data)
	}
	return out, nil
}

type templateDoc struct {
	Template  `bson:",inline"`
	Structure bson.D `bson:"structure,omitempty"`
}

func (m *Mongo) Template(ctx context.Context, id string) (*Template, error) {
	var d templateDoc
	err := m.db.Collection(CollTemplates).FindOne(ctx, bson.M{"_id": id}).Decode(&d)
	if err != nil {
		return nil, findErr(err, errors.ErrCodeTemplateNotFound, "template", id)
	}
	t := d.Template
	t.Structure, _ = plainMap(d.Structure)
	return &t, nil
}

func (m *Mongo) TemplateAssets(ctx context.Context, templateID string) ([]assets.Asset, error) {
	opts := options.Find().SetSort(bson.D{{Key: "sort_order", Value: 1}})
	cur, err := m.db.Collection(CollTemplateAssets).Find(ctx, bson.M{"template_id": templateID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find template assets: %w", err)
	}
	var docs []TemplateAsset
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode template assets: %w", err)
	}
	out := make([]assets.Asset, len(docs))
	for i, d := range docs {
		out[i] = d.Asset
	}
	return out, nil
}

type itemDoc struct {
	ContentItem `bson:",inline"`
	Data        bson.D `bson:"content_data,omitempty"`
}

func (m *Mongo) ContentItem(ctx context.Context, id string) (*ContentItem, error) {
	var d itemDoc
	err := m.db.Collection(CollContentItems).FindOne(ctx, bson.M{"_id": id}).Decode(&d)
	if err != nil {
		return nil, findErr(err, errors.ErrCodeContentNotFound, "content item", id)
	}
	it := d.ContentItem
	data, order := plainMap(d.Data)
	it.ContentData = content.Data(data)
	it.KeyOrder = order
	return &it, nil
}

func (m *Mongo) UpdateRender(ctx context.Context, itemID string, u RenderUpdate) error {
	set := bson.M{"rendered_html": u.RenderedHTML, "updated_at": m.now()}
	if u.AssetURL != "" {
		set["asset_url"] = u.AssetURL
	}
	res, err := m.db.Collection(CollContentItems).UpdateOne(ctx, bson.M{"_id": itemID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update content item: %w", err)
	}
	if res.MatchedCount == 0 {
		return notFound(errors.ErrCodeContentNotFound, "content item", itemID)
	}
	return nil
}

func (m *Mongo) OrgConfig(ctx context.Context, orgID, key string, v any) error {
	var doc struct {
		Value bson.Raw `bson:"value"`
	}
	err := m.db.Collection(CollOrgConfigs).FindOne(ctx, bson.M{"org_id": orgID, "key": key}).Decode(&doc)
	if err != nil {
		return findErr(err, errors.ErrCodeNotFound, "config", key)
	}
	if doc.Value == nil {
		return errors.New(errors.ErrCodeNotFound, "config %q has no value", key)
	}
	return bson.Unmarshal(doc.Value, v)
}

func (m *Mongo) SetOrgConfig(ctx context.Context, orgID, key string, v any) error {
	_, err := m.db.Collection(CollOrgConfigs).UpdateOne(ctx,
		bson.M{"org_id": orgID, "key": key},
		bson.M{"$set": bson.M{"value": v, "updated_at": m.now()}},
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save config %s: %w", key, err)
	}
	return nil
}

// Close disconnects the client.
func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func findErr(err error, code errors.Code, kind, id string) error {
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return notFound(code, kind, id)
	}
	return fmt.Errorf("find %s %s: %w", kind, id, err)
}

// plainMap converts a BSON document into plain Go maps and slices and
// returns its top-level key order.
func plainMap(d bson.D) (map[string]any, []string) {
	if d == nil {
		return nil, nil
	}
	out := make(map[string]any, len(d))
	order := make([]string, 0, len(d))
	for _, e := range d {
		out[e.Key] = plain(e.Value)
		order = append(order, e.Key)
	}
	return out, order
}

func plain(v any) any {
	switch x := v.(type) {
	case bson.D:
		m, _ := plainMap(x)
		return m
	case bson.M:
		m := make(map[string]any, len(x))
		for k, val := range x {
			m[k] = plain(val)
		}
		return m
	case bson.A:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = plain(val)
		}
		return out
	case primitive.ObjectID:
		return x.Hex()
	case primitive.DateTime:
		return x.Time().UTC()
	case int32:
		return int(x)
	case int64:
		return int(x)
	default:
		return v
	}
}

var _ Store = (*Mongo)(nil)
