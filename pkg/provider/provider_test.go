package provider

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/siete/assetforge/pkg/brand"
	"github.com/siete/assetforge/pkg/cache"
	"github.com/siete/assetforge/pkg/content"
	"github.com/siete/assetforge/pkg/httputil"
	"github.com/siete/assetforge/pkg/integrations/canva"
	"github.com/siete/assetforge/pkg/integrations/figma"
	"github.com/siete/assetforge/pkg/pipeline"
	"github.com/siete/assetforge/pkg/rasterize"
	"github.com/siete/assetforge/pkg/store"
)

var fastPoll = httputil.PollOptions{
	Initial: time.Millisecond,
	Factor:  1,
	Max:     time.Millisecond,
	Timeout: time.Second,
}

type fakeRaster struct {
	mu   sync.Mutex
	jobs []rasterize.Job
}

func (f *fakeRaster) Rasterize(_ context.Context, job rasterize.Job) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, job)
	return []byte("raster"), nil
}

func (f *fakeRaster) Close() error { return nil }

func newEngine(t *testing.T, raster rasterize.Rasterizer) *pipeline.Engine {
	t.Helper()
	eng, err := pipeline.NewEngine(pipeline.Options{
		Rasterizer: raster,
		RendersDir: filepath.Join(t.TempDir(), "renders"),
	})
	if err != nil {
		t.Fatal(err)
	}
	return eng
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestFieldText(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"string", "hello", "hello"},
		{"slides", []any{
			map[string]any{"headline": "One", "body": "first"},
			"plain",
			map[string]any{"headline": "Two"},
		}, "One\nfirst\n\nplain\n\nTwo\n"},
		{"typed slides", []map[string]any{{"headline": "A", "body": "b"}}, "A\nb"},
		{"number", 3, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FieldText(tt.in); got != tt.want {
				t.Errorf("FieldText = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTextFields(t *testing.T) {
	data := content.Data{"title": "Launch", "cta": "", "slides": []any{map[string]any{"headline": "h", "body": "b"}}}
	got := TextFields(data, map[string]string{"title": "Title Layer", "cta": "CTA", "slides": "Body", "missing": "X"})
	want := map[string]string{"Title Layer": "Launch", "Body": "h\nb"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("TextFields (-want +got):\n%s", diff)
	}
}

type canvaAPI struct {
	srv      *httptest.Server
	autofill map[string]canva.FieldValue
	auth     []string
	mu       sync.Mutex
}

func newCanvaAPI(t *testing.T) *canvaAPI {
	api := &canvaAPI{}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /autofills", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Data map[string]canva.FieldValue `json:"data"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		api.mu.Lock()
		api.autofill = body.Data
		api.auth = append(api.auth, r.Header.Get("Authorization"))
		api.mu.Unlock()
		writeJSON(w, map[string]any{"job": map[string]any{"id": "af1", "status": "in_progress"}})
	})
	mux.HandleFunc("GET /autofills/af1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"job": map[string]any{
			"id": "af1", "status": "success",
			"result": map[string]any{"type": "create_design", "design": map[string]any{"id": "D1"}},
		}})
	})
	mux.HandleFunc("POST /exports", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"job": map[string]any{"id": "ex1", "status": "in_progress"}})
	})
	mux.HandleFunc("GET /exports/ex1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"job": map[string]any{
			"id": "ex1", "status": "success", "urls": []string{api.srv.URL + "/dl/D1.png"},
		}})
	})
	mux.HandleFunc("GET /dl/D1.png", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			http.Error(w, "signed urls take no auth", http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte("PNGDATA"))
	})
	mux.HandleFunc("POST /oauth/token", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"access_token": "fresh", "refresh_token": "r2", "expires_in": 3600})
	})
	api.srv = httptest.NewServer(mux)
	t.Cleanup(api.srv.Close)
	return api
}

func (api *canvaAPI) renderer(s store.Store, eng *pipeline.Engine) *CanvaRenderer {
	oauth := canva.NewOAuthClient(canva.OAuthConfig{ClientID: "cid", ClientSecret: "sec"}).
		WithEndpoints(api.srv.URL+"/oauth/authorize", api.srv.URL+"/oauth/token")
	return NewCanvaRenderer(s, oauth, eng, nil, nil).WithClientFactory(func(token string) *canva.Client {
		return canva.NewClient(token, nil).WithBaseURL(api.srv.URL).WithPoll(fastPoll)
	})
}

func canvaJob() Job {
	return Job{
		OrgID: "org",
		Source: store.DesignSource{
			Provider:   Canva,
			TemplateID: "BT1",
			FieldMap:   map[string]string{"title": "headline", "slides": "body", "brand_name": "company"},
		},
		Request: pipeline.Request{
			Type:      content.Carousel,
			Data:      content.Data{"title": "Launch", "slides": []any{map[string]any{"headline": "h", "body": "b"}}},
			ContentID: "item-1",
			Brand:     brand.Brand{Name: "Acme"},
		},
	}
}

func TestCanvaRender(t *testing.T) {
	api := newCanvaAPI(t)
	s := store.NewMemory()
	expiresAt := float64(time.Now().Add(time.Hour).Unix())
	_ = s.SetOrgConfig(context.Background(), "org", store.ConfigCanva, canva.Credentials{AccessToken: "tok", ExpiresAt: expiresAt})

	art, err := api.renderer(s, newEngine(t, &fakeRaster{})).Render(context.Background(), canvaJob())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if art.FileName != "item-1.png" || string(art.Data) != "PNGDATA" || art.Mode != pipeline.ModeCanva {
		t.Errorf("artifact = %s %q %s", art.FileName, art.Data, art.Mode)
	}
	want := map[string]canva.FieldValue{
		"headline": canva.Text("Launch"),
		"body":     canva.Text("h\nb"),
		"company":  canva.Text("Acme"),
	}
	if diff := cmp.Diff(want, api.autofill); diff != "" {
		t.Errorf("autofill data (-want +got):\n%s", diff)
	}
	if api.auth[0] != "Bearer tok" {
		t.Errorf("auth = %q", api.auth[0])
	}
}

func TestCanvaRefreshesExpiredToken(t *testing.T) {
	api := newCanvaAPI(t)
	s := store.NewMemory()
	ctx := context.Background()
	_ = s.SetOrgConfig(ctx, "org", store.ConfigCanva, canva.Credentials{AccessToken: "old", RefreshToken: "r1", ExpiresAt: 1})

	if _, err := api.renderer(s, newEngine(t, &fakeRaster{})).Render(ctx, canvaJob()); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if api.auth[0] != "Bearer fresh" {
		t.Errorf("auth = %q, want refreshed token", api.auth[0])
	}
	var saved canva.Credentials
	if err := s.OrgConfig(ctx, "org", store.ConfigCanva, &saved); err != nil {
		t.Fatal(err)
	}
	if saved.AccessToken != "fresh" || saved.RefreshToken != "r2" {
		t.Errorf("saved credentials = %+v", saved)
	}
}

func TestCanvaFallbacks(t *testing.T) {
	api := newCanvaAPI(t)
	ctx := context.Background()
	valid := canva.Credentials{AccessToken: "tok", ExpiresAt: float64(time.Now().Add(time.Hour).Unix())}

	tests := []struct {
		name  string
		creds *canva.Credentials
		edit  func(*Job)
	}{
		{"not connected", nil, nil},
		{"no template", &valid, func(j *Job) { j.Source.TemplateID = "" }},
		{"nothing to fill", &valid, func(j *Job) { j.Source.FieldMap = map[string]string{"unknown": "x"} }},
		{"expired without refresh token", &canva.Credentials{AccessToken: "old", ExpiresAt: 1}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := store.NewMemory()
			if tt.creds != nil {
				_ = s.SetOrgConfig(ctx, "org", store.ConfigCanva, *tt.creds)
			}
			job := canvaJob()
			if tt.edit != nil {
				tt.edit(&job)
			}
			_, err := api.renderer(s, newEngine(t, &fakeRaster{})).Render(ctx, job)
			if !stderrors.Is(err, ErrFallback) {
				t.Errorf("err = %v, want ErrFallback", err)
			}
		})
	}
}

const frameSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="800" height="600">
<text id="Headline Layer">Placeholder</text><text id="brand_name">X</text></svg>`

func newFigmaAPI(t *testing.T, exports *atomic.Int32) *httptest.Server {
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("GET /images/FILE", func(w http.ResponseWriter, r *http.Request) {
		exports.Add(1)
		if r.Header.Get("X-Figma-Token") != "figd" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		writeJSON(w, map[string]any{"images": map[string]string{r.URL.Query().Get("ids"): srv.URL + "/cdn/frame.svg"}})
	})
	mux.HandleFunc("GET /cdn/frame.svg", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(frameSVG))
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFigmaRenderUsesCache(t *testing.T) {
	var exports atomic.Int32
	srv := newFigmaAPI(t, &exports)
	ctx := context.Background()
	s := store.NewMemory()
	_ = s.SetOrgConfig(ctx, "org", store.ConfigFigma, FigmaConfig{Token: "figd"})
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	raster := &fakeRaster{}
	r := NewFigmaRenderer(s, newEngine(t, raster), fc, nil, nil).WithClientFactory(func(token string) *figma.Client {
		return figma.NewClient(token, nil).WithBaseURL(srv.URL)
	})

	job := Job{
		OrgID: "org",
		Source: store.DesignSource{
			Provider:   Figma,
			FileKey:    "FILE",
			FrameID:    "1:2",
			FieldMap:   map[string]string{"top_text": "headline layer"},
			Dimensions: &store.Dimensions{Width: 800},
		},
		Request: pipeline.Request{
			Type:  content.Meme,
			Data:  content.Data{"texto_superior": "Deploy on Friday"},
			Brand: brand.Brand{Name: "Acme"},
		},
	}
	for i := 0; i < 2; i++ {
		art, err := r.Render(ctx, job)
		if err != nil {
			t.Fatalf("Render %d: %v", i, err)
		}
		if art.Mode != pipeline.ModeFigma || !strings.HasSuffix(art.FileName, ".png") {
			t.Errorf("artifact = %s %s", art.Mode, art.FileName)
		}
		for _, want := range []string{">Deploy on Friday</text>", ">Acme</text>", "width:800px;height:1350px"} {
			if !strings.Contains(art.HTML, want) {
				t.Errorf("html missing %q", want)
			}
		}
	}
	if n := exports.Load(); n != 1 {
		t.Errorf("figma exports = %d, want 1 (second render cached)", n)
	}
	if raster.jobs[0].Width != 800 || raster.jobs[0].Height != 1350 {
		t.Errorf("job size = %dx%d", raster.jobs[0].Width, raster.jobs[0].Height)
	}
}

func TestFigmaFallbacks(t *testing.T) {
	var exports atomic.Int32
	srv := newFigmaAPI(t, &exports)
	ctx := context.Background()

	tests := []struct {
		name  string
		token string
		frame string
	}{
		{"not connected", "", "1:2"},
		{"bad token", "wrong", "1:2"},
		{"no frame", "figd", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := store.NewMemory()
			if tt.token != "" {
				_ = s.SetOrgConfig(ctx, "org", store.ConfigFigma, FigmaConfig{Token: tt.token})
			}
			r := NewFigmaRenderer(s, newEngine(t, &fakeRaster{}), nil, nil, nil).WithClientFactory(func(token string) *figma.Client {
				return figma.NewClient(token, nil).WithBaseURL(srv.URL)
			})
			_, err := r.Render(ctx, Job{
				OrgID:   "org",
				Source:  store.DesignSource{Provider: Figma, FileKey: "FILE", FrameID: tt.frame},
				Request: pipeline.Request{Type: content.Meme, Data: content.Data{"top_text": "x"}},
			})
			if !stderrors.Is(err, ErrFallback) {
				t.Errorf("err = %v, want ErrFallback", err)
			}
		})
	}
}

type stubRenderer struct {
	art *pipeline.Artifact
	err error
}

func (s stubRenderer) Render(context.Context, Job) (*pipeline.Artifact, error) { return s.art, s.err }

func TestOrchestrator(t *testing.T) {
	ctx := context.Background()
	runner := pipeline.NewRunner(newEngine(t, &fakeRaster{}), nil, nil, nil)
	req := pipeline.Request{Type: content.Meme, Data: content.Data{"top_text": "x"}}
	providerArt := &pipeline.Artifact{Mode: pipeline.ModeCanva}

	o := NewOrchestrator(runner, map[string]Renderer{
		Canva: stubRenderer{art: providerArt},
		Figma: stubRenderer{err: fallback("figma down")},
	}, nil)

	tests := []struct {
		name string
		src  *store.DesignSource
		want pipeline.Mode
	}{
		{"no source", nil, pipeline.ModeDefaultHTML},
		{"provider ok", &store.DesignSource{Provider: Canva}, pipeline.ModeCanva},
		{"provider fails", &store.DesignSource{Provider: Figma}, pipeline.ModeDefaultHTML},
		{"unknown provider", &store.DesignSource{Provider: "sketch"}, pipeline.ModeDefaultHTML},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			art, err := o.Render(ctx, "org", tt.src, req)
			if err != nil {
				t.Fatalf("Render: %v", err)
			}
			if art.Mode != tt.want {
				t.Errorf("mode = %s, want %s", art.Mode, tt.want)
			}
		})
	}
}
