package cli

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/siete/assetforge/pkg/cache"
)

func TestCachePathCommand(t *testing.T) {
	c, dir := newTestCLI(t, "")
	out, err := execute(t, c, "cache", "path")
	if err != nil {
		t.Fatalf("cache path: %v", err)
	}
	if got, want := strings.TrimSpace(out), filepath.Join(dir, "cache"); got != want {
		t.Errorf("cache path = %q, want %q", got, want)
	}
}

func TestCachePathDefaultsToXDG(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", xdg)

	c, dir := newTestCLI(t, "")
	// Drop the explicit cache.dir from the test config.
	writeTestFile(t, c.configPath, "[paths]\nroot = \""+dir+"\"\n")

	out, err := execute(t, c, "cache", "path")
	if err != nil {
		t.Fatalf("cache path: %v", err)
	}
	if got, want := strings.TrimSpace(out), filepath.Join(xdg, "assetforge"); got != want {
		t.Errorf("cache path = %q, want %q", got, want)
	}
}

func TestCacheClearCommand(t *testing.T) {
	c, dir := newTestCLI(t, "")
	fc, err := cache.NewFileCache(filepath.Join(dir, "cache"))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	for _, key := range []string{"artifact:a", "design:b", "http:c"} {
		if err := fc.Set(ctx, key, []byte("x"), time.Hour); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := execute(t, c, "cache", "clear"); err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	for _, key := range []string{"artifact:a", "design:b", "http:c"} {
		if _, ok, _ := fc.Get(ctx, key); ok {
			t.Errorf("%s survived cache clear", key)
		}
	}
}
