package canva

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/siete/assetforge/pkg/cache"
	"github.com/siete/assetforge/pkg/errors"
	"github.com/siete/assetforge/pkg/httputil"
)

var fastPoll = httputil.PollOptions{
	Initial: time.Millisecond,
	Factor:  1,
	Max:     time.Millisecond,
	Timeout: time.Second,
}

func testClient(t *testing.T, h http.Handler, c cache.Cache) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	cl := NewClient("tok", c)
	cl.WithHTTPClient(srv.Client())
	cl.baseURL = srv.URL
	cl.poll = fastPoll
	return cl
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestMe(t *testing.T) {
	tests := []struct {
		name string
		body string
		want Profile
	}{
		{"nested", `{"profile":{"display_name":"Ana","user_id":"u1"}}`, Profile{DisplayName: "Ana", UserID: "u1"}},
		{"flat", `{"user_id":"u2","team_id":"t2"}`, Profile{UserID: "u2", TeamID: "t2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("Authorization") != "Bearer tok" {
					w.WriteHeader(http.StatusUnauthorized)
					return
				}
				_, _ = w.Write([]byte(tt.body))
			}), nil)
			got, err := c.Me(context.Background())
			if err != nil {
				t.Fatalf("Me: %v", err)
			}
			if diff := cmp.Diff(tt.want, *got); diff != "" {
				t.Errorf("profile mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBrandTemplatesPaging(t *testing.T) {
	var calls atomic.Int32
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Query().Get("ownership") != "owned" {
			t.Errorf("ownership = %q", r.URL.Query().Get("ownership"))
		}
		switch r.URL.Query().Get("continuation") {
		case "":
			writeJSON(w, map[string]any{
				"items":        []map[string]any{{"id": "a", "title": "First"}},
				"continuation": "next",
			})
		case "next":
			writeJSON(w, map[string]any{"items": []map[string]any{{"id": "b"}}})
		}
	})
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	c := testClient(t, h, fc)

	got, err := c.BrandTemplates(context.Background(), false)
	if err != nil {
		t.Fatalf("BrandTemplates: %v", err)
	}
	want := []BrandTemplate{{ID: "a", Title: "First"}, {ID: "b", Title: "Untitled"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("templates mismatch (-want +got):\n%s", diff)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}

	if _, err := c.BrandTemplates(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 2 {
		t.Errorf("cached listing should not hit the API, calls = %d", calls.Load())
	}

	if _, err := c.BrandTemplates(context.Background(), true); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 4 {
		t.Errorf("refresh should bypass cache, calls = %d", calls.Load())
	}
}

func TestBrandTemplatesPageCap(t *testing.T) {
	var calls atomic.Int32
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, map[string]any{"items": []map[string]any{{"id": "x", "title": "x"}}, "continuation": "more"})
	}), nil)

	got, err := c.BrandTemplates(context.Background(), true)
	if err != nil {
		t.Fatal(err)
	}
	if calls.Load() != maxPages || len(got) != maxPages {
		t.Errorf("calls = %d, templates = %d, want %d", calls.Load(), len(got), maxPages)
	}
}

func TestDataset(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/brand-templates/T1/dataset" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"dataset":{"title":{"type":"text"},"photo":{"type":"image"},"cta":{}}}`))
	}), nil)

	got, err := c.Dataset(context.Background(), "T1")
	if err != nil {
		t.Fatalf("Dataset: %v", err)
	}
	want := []DatasetField{{Name: "cta", Type: "text"}, {Name: "photo", Type: "image"}, {Name: "title", Type: "text"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("dataset mismatch (-want +got):\n%s", diff)
	}

	if _, err := c.Dataset(context.Background(), "missing"); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("err = %v, want NOT_FOUND", err)
	}
}

func TestAutofillAndExport(t *testing.T) {
	var autofillPolls, exportPolls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /autofills", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			BrandTemplateID string                `json:"brand_template_id"`
			Data            map[string]FieldValue `json:"data"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.BrandTemplateID != "T1" || body.Data["title"].Text != "Hello" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		writeJSON(w, map[string]any{"job": map[string]any{"id": "job1", "status": StatusInProgress}})
	})
	mux.HandleFunc("GET /autofills/job1", func(w http.ResponseWriter, r *http.Request) {
		if autofillPolls.Add(1) < 3 {
			writeJSON(w, map[string]any{"job": map[string]any{"id": "job1", "status": StatusInProgress}})
			return
		}
		writeJSON(w, map[string]any{"job": map[string]any{
			"id": "job1", "status": StatusSuccess,
			"result": map[string]any{"design": map[string]any{"id": "D1"}},
		}})
	})
	mux.HandleFunc("POST /exports", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			DesignID string            `json:"design_id"`
			Format   map[string]string `json:"format"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.DesignID != "D1" || body.Format["type"] != "png" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		writeJSON(w, map[string]any{"job": map[string]any{"id": "exp1", "status": StatusInProgress}})
	})
	mux.HandleFunc("GET /exports/exp1", func(w http.ResponseWriter, r *http.Request) {
		if exportPolls.Add(1) < 2 {
			writeJSON(w, map[string]any{"job": map[string]any{"id": "exp1", "status": StatusInProgress}})
			return
		}
		writeJSON(w, map[string]any{"job": map[string]any{"id": "exp1", "status": StatusSuccess, "urls": []string{"https://dl/1.png"}}})
	})
	c := testClient(t, mux, nil)
	ctx := context.Background()

	job, err := c.CreateAutofill(ctx, "T1", map[string]FieldValue{"title": Text("Hello")})
	if err != nil {
		t.Fatalf("CreateAutofill: %v", err)
	}
	done, err := c.WaitAutofill(ctx, job.ID)
	if err != nil {
		t.Fatalf("WaitAutofill: %v", err)
	}
	if done.Result.Design.ID != "D1" {
		t.Errorf("design id = %q", done.Result.Design.ID)
	}

	exp, err := c.CreateExport(ctx, "D1", "png")
	if err != nil {
		t.Fatalf("CreateExport: %v", err)
	}
	urls, err := c.WaitExport(ctx, exp.ID)
	if err != nil {
		t.Fatalf("WaitExport: %v", err)
	}
	if diff := cmp.Diff([]string{"https://dl/1.png"}, urls); diff != "" {
		t.Errorf("urls mismatch (-want +got):\n%s", diff)
	}
}

func TestWaitAutofillFailed(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"job": map[string]any{
			"id": "j", "status": StatusFailed,
			"error": map[string]string{"code": "bad_data", "message": "field too long"},
		}})
	}), nil)

	_, err := c.WaitAutofill(context.Background(), "j")
	if !errors.Is(err, errors.ErrCodeProvider) {
		t.Errorf("err = %v, want PROVIDER_FAILED", err)
	}
}

func TestWaitExportTimeout(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"job": map[string]any{"id": "e", "status": StatusInProgress}})
	}), nil)
	c.poll.Timeout = 20 * time.Millisecond

	_, err := c.WaitExport(context.Background(), "e")
	if !errors.Is(err, errors.ErrCodeTimeout) {
		t.Errorf("err = %v, want TIMEOUT", err)
	}
}
