package assets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"go.uber.org/goleak"

	"github.com/siete/assetforge/pkg/errors"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeFetcher struct {
	calls atomic.Int32
	fail  string
}

func (f *fakeFetcher) Download(ctx context.Context, url string, limit int64) ([]byte, error) {
	f.calls.Add(1)
	if url == f.fail {
		return nil, errors.New(errors.ErrCodeNetwork, "fetch %s failed", url)
	}
	if limit != MaxSVGSize {
		return nil, fmt.Errorf("unexpected limit %d", limit)
	}
	return []byte("<svg id=\"" + url + "\"/>"), nil
}

func writeSVG(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte("<svg>"+name+"</svg>"), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadSVGLocal(t *testing.T) {
	allowed := t.TempDir()
	p := writeSVG(t, allowed, "card.svg")
	l := NewLoader(nil, allowed)
	ctx := context.Background()

	for _, u := range []string{p, "file://" + p} {
		got, err := l.LoadSVG(ctx, u)
		if err != nil {
			t.Fatalf("LoadSVG(%q): %v", u, err)
		}
		if got != "<svg>card.svg</svg>" {
			t.Errorf("LoadSVG(%q) = %q", u, got)
		}
	}

	if _, err := l.LoadSVG(ctx, filepath.Join(allowed, "missing.svg")); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("missing file err = %v, want NOT_FOUND", err)
	}
}

func TestLoadSVGPathDenied(t *testing.T) {
	allowed := t.TempDir()
	outside := t.TempDir()
	p := writeSVG(t, outside, "secret.svg")
	l := NewLoader(nil, allowed)

	for _, u := range []string{
		p,
		"file://" + p,
		filepath.Join(allowed, "..", filepath.Base(outside), "secret.svg"),
	} {
		if _, err := l.LoadSVG(context.Background(), u); !errors.Is(err, errors.ErrCodePathDenied) {
			t.Errorf("LoadSVG(%q) err = %v, want PATH_DENIED", u, err)
		}
	}
}

func TestLoadSVGSymlinkEscape(t *testing.T) {
	allowed := t.TempDir()
	outside := t.TempDir()
	target := writeSVG(t, outside, "secret.svg")
	link := filepath.Join(allowed, "link.svg")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	l := NewLoader(nil, allowed)
	if _, err := l.LoadSVG(context.Background(), link); !errors.Is(err, errors.ErrCodePathDenied) {
		t.Errorf("err = %v, want PATH_DENIED", err)
	}
}

func TestLoadSVGRemote(t *testing.T) {
	f := &fakeFetcher{}
	l := NewLoader(f)
	got, err := l.LoadSVG(context.Background(), "https://cdn.example.com/a.svg")
	if err != nil {
		t.Fatalf("LoadSVG: %v", err)
	}
	if got != `<svg id="https://cdn.example.com/a.svg"/>` {
		t.Errorf("got %q", got)
	}

	if _, err := NewLoader(nil).LoadSVG(context.Background(), "https://x/a.svg"); !errors.Is(err, errors.ErrCodeUnsupported) {
		t.Errorf("no fetcher err = %v, want UNSUPPORTED", err)
	}
}

func TestLoadAllKeepsOrder(t *testing.T) {
	f := &fakeFetcher{}
	l := NewLoader(f)
	urls := make([]string, 9)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://cdn.example.com/%d.svg", i)
	}
	got, err := l.LoadAll(context.Background(), urls)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	for i, svg := range got {
		want := `<svg id="` + urls[i] + `"/>`
		if svg != want {
			t.Errorf("got[%d] = %q, want %q", i, svg, want)
		}
	}
	if f.calls.Load() != int32(len(urls)) {
		t.Errorf("calls = %d", f.calls.Load())
	}
}

func TestLoadAllDeduplicates(t *testing.T) {
	f := &fakeFetcher{}
	l := NewLoader(f)
	slide := "https://cdn.example.com/slide.svg"
	cover := "https://cdn.example.com/cover.svg"
	urls := []string{cover, slide, slide, slide, slide}

	got, err := l.LoadAll(context.Background(), urls)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(got) != len(urls) {
		t.Fatalf("len = %d, want %d", len(got), len(urls))
	}
	for i, svg := range got {
		want := `<svg id="` + urls[i] + `"/>`
		if svg != want {
			t.Errorf("got[%d] = %q, want %q", i, svg, want)
		}
	}
	if n := f.calls.Load(); n != 2 {
		t.Errorf("downloads = %d, want 2", n)
	}
}

func TestLoadAllFailure(t *testing.T) {
	f := &fakeFetcher{fail: "https://cdn.example.com/bad.svg"}
	l := NewLoader(f)
	_, err := l.LoadAll(context.Background(), []string{
		"https://cdn.example.com/ok.svg",
		"https://cdn.example.com/bad.svg",
	})
	if !errors.Is(err, errors.ErrCodeNetwork) {
		t.Errorf("err = %v, want NETWORK_ERROR", err)
	}
}
