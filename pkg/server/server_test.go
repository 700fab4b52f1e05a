package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siete/assetforge/pkg/content"
	"github.com/siete/assetforge/pkg/errors"
	"github.com/siete/assetforge/pkg/integrations/canva"
	"github.com/siete/assetforge/pkg/pipeline"
	"github.com/siete/assetforge/pkg/provider"
	"github.com/siete/assetforge/pkg/rasterize"
	"github.com/siete/assetforge/pkg/service"
	"github.com/siete/assetforge/pkg/storage"
	"github.com/siete/assetforge/pkg/store"
)

type fakeRaster struct{}

func (fakeRaster) Rasterize(context.Context, rasterize.Job) ([]byte, error) { return []byte("PNG"), nil }
func (fakeRaster) Close() error                                             { return nil }

type fixture struct {
	srv   *httptest.Server
	store *store.Memory
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	dir := t.TempDir()
	eng, err := pipeline.NewEngine(pipeline.Options{Rasterizer: fakeRaster{}, RendersDir: filepath.Join(dir, "renders")})
	require.NoError(t, err)
	st, err := storage.NewLocal(filepath.Join(dir, "storage"), "http://assets.test")
	require.NoError(t, err)

	mem := store.NewMemory()
	mem.PutOrganization(store.Organization{ID: "org1", Name: "Acme"})
	mem.PutTemplate(store.Template{ID: "tpl1", OrgID: "org1", ContentType: content.Meme,
		VisualLayout: `<h1>{{ top_text }}</h1>`})
	mem.PutContentItem(store.ContentItem{ID: "item-1", OrgID: "org1", TemplateID: "tpl1",
		ContentData: content.Data{"top_text": "Hello"}})

	orch := provider.NewOrchestrator(pipeline.NewRunner(eng, nil, nil, nil), nil, nil)
	opts.Service = service.New(mem, st, orch, nil)
	srv := httptest.NewServer(New(opts).Handler())
	t.Cleanup(srv.Close)
	return &fixture{srv: srv, store: mem}
}

func (f *fixture) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, f.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
	resp, err := client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealth(t *testing.T) {
	f := newFixture(t, Options{})
	resp := f.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[map[string]any](t, resp)
	assert.Equal(t, "ok", body["status"])
}

func TestRenderItemAndServeFile(t *testing.T) {
	f := newFixture(t, Options{})

	resp := f.do(t, http.MethodPost, "/api/content/item-1/render", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res := decodeBody[service.Result](t, resp)
	assert.Equal(t, "item-1.png", res.FileName)
	assert.Equal(t, "<h1>Hello</h1>", res.RenderedHTML)
	assert.Equal(t, pipeline.ModeCustomHTML, res.Mode)

	file := f.do(t, http.MethodGet, "/api/renders/item-1.png", "")
	require.Equal(t, http.StatusOK, file.StatusCode)
	assert.Equal(t, "image/png", file.Header.Get("Content-Type"))
	data, _ := io.ReadAll(file.Body)
	assert.Equal(t, "PNG", string(data))
}

func TestErrors(t *testing.T) {
	f := newFixture(t, Options{})
	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   errors.Code
	}{
		{"missing item", http.MethodPost, "/api/content/nope/render", "", http.StatusNotFound, errors.ErrCodeContentNotFound},
		{"empty edited html", http.MethodPost, "/api/content/item-1/render-html", `{"html":"  "}`, http.StatusBadRequest, errors.ErrCodeEmptyContent},
		{"bad json", http.MethodPost, "/api/content/item-1/render-html", `{`, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"unknown type", http.MethodPost, "/api/render", `{"content_type":"podcast","content_data":{"a":"b"}}`, http.StatusBadRequest, errors.ErrCodeInvalidContentType},
		{"unknown bucket", http.MethodGet, "/api/secrets/x.png", "", http.StatusNotFound, errors.ErrCodeNotFound},
		{"missing file", http.MethodGet, "/api/renders/none.png", "", http.StatusNotFound, errors.ErrCodeNotFound},
		{"canva not configured", http.MethodGet, "/api/canva/authorize?org_id=org1", "", http.StatusNotImplemented, errors.ErrCodeUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := f.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			body := decodeBody[errorBody](t, resp)
			assert.Equal(t, tt.code, body.Error.Code)
			assert.NotEmpty(t, body.Error.Message)
		})
	}
}

func TestPreview(t *testing.T) {
	f := newFixture(t, Options{})

	resp := f.do(t, http.MethodGet, "/api/content/item-1/preview", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	p := decodeBody[service.Preview](t, resp)
	assert.Equal(t, "<h1>Hello</h1>", p.HTML)

	raw := f.do(t, http.MethodGet, "/api/content/item-1/preview?raw=1", "")
	assert.Equal(t, "text/html; charset=utf-8", raw.Header.Get("Content-Type"))
	data, _ := io.ReadAll(raw.Body)
	assert.Equal(t, "<h1>Hello</h1>", string(data))
}

func TestRenderHTML(t *testing.T) {
	f := newFixture(t, Options{})
	resp := f.do(t, http.MethodPost, "/api/content/item-1/render-html", `{"html":"<p onclick=\"x()\">Edited</p>"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res := decodeBody[service.Result](t, resp)
	assert.Equal(t, pipeline.ModeEdited, res.Mode)
	assert.NotContains(t, res.RenderedHTML, "onclick")

	item, err := f.store.ContentItem(context.Background(), "item-1")
	require.NoError(t, err)
	assert.Equal(t, res.RenderedHTML, item.RenderedHTML)
}

func TestRenderAdhocKeepsKeyOrder(t *testing.T) {
	f := newFixture(t, Options{})
	body := `{
		"content_type": "carousel",
		"content_id": "adhoc-1",
		"visual_layout": "{% for s in slides %}[{{ s.headline }}]{% endfor %}",
		"content_data": {"title": "T", "tip_two": "second", "tip_one": "first"}
	}`
	resp := f.do(t, http.MethodPost, "/api/render", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res := decodeBody[service.Result](t, resp)
	assert.Equal(t, "adhoc-1.pdf", res.FileName)
	assert.Equal(t, "[Tip Two][Tip One]", res.RenderedHTML)
}

func TestCanvaOAuthFlow(t *testing.T) {
	var verifier string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /oauth/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		verifier = r.PostForm.Get("code_verifier")
		if r.PostForm.Get("code") != "abc" {
			http.Error(w, "bad code", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"at","refresh_token":"rt","expires_in":3600}`)
	})
	mux.HandleFunc("GET /users/me", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"profile":{"user_id":"U1","display_name":"Dana"}}`)
	})
	canvaAPI := httptest.NewServer(mux)
	defer canvaAPI.Close()

	oauth := canva.NewOAuthClient(canva.OAuthConfig{ClientID: "cid", ClientSecret: "sec", RedirectURI: "http://app/cb"}).
		WithEndpoints("https://canva.test/authorize", canvaAPI.URL+"/oauth/token")
	f := newFixture(t, Options{
		OAuth: oauth,
		CanvaClient: func(token string) *canva.Client {
			return canva.NewClient(token, nil).WithBaseURL(canvaAPI.URL)
		},
	})

	resp := f.do(t, http.MethodGet, "/api/canva/authorize?org_id=org1&redirect=/settings", "")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "canva.test", loc.Host)
	assert.Equal(t, "S256", loc.Query().Get("code_challenge_method"))
	state := loc.Query().Get("state")
	require.NotEmpty(t, state)

	cb := f.do(t, http.MethodGet, "/api/canva/callback?code=abc&state="+url.QueryEscape(state), "")
	require.Equal(t, http.StatusFound, cb.StatusCode)
	assert.Equal(t, "/settings?canva=connected", cb.Header.Get("Location"))
	assert.NotEmpty(t, verifier)

	var creds canva.Credentials
	require.NoError(t, f.store.OrgConfig(context.Background(), "org1", store.ConfigCanva, &creds))
	assert.Equal(t, "at", creds.AccessToken)
	assert.Equal(t, "rt", creds.RefreshToken)
	assert.Equal(t, "Dana", creds.DisplayName)

	replay := f.do(t, http.MethodGet, "/api/canva/callback?code=abc&state="+url.QueryEscape(state), "")
	assert.Equal(t, http.StatusBadRequest, replay.StatusCode)
}

func TestCanvaAuthorizeRejectsOpenRedirect(t *testing.T) {
	oauth := canva.NewOAuthClient(canva.OAuthConfig{ClientID: "cid", ClientSecret: "sec"})
	f := newFixture(t, Options{OAuth: oauth})
	for _, redirect := range []string{"https://evil.test/", "//evil.test", `/\evil.test`, `/app\..\evil`} {
		resp := f.do(t, http.MethodGet, "/api/canva/authorize?org_id=org1&redirect="+url.QueryEscape(redirect), "")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, redirect)
	}
}

func TestLocalRedirect(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{"/", true},
		{"/settings/integrations?tab=canva", true},
		{"", false},
		{"settings", false},
		{"//evil.test", false},
		{`/\evil.test`, false},
		{`\\evil.test`, false},
		{"https://evil.test/", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, localRedirect(tt.raw), tt.raw)
	}
}
