package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testFixture = `
organizations:
  - id: org-1
    name: Acme
    brand_voice:
      website: acme.io
content_items:
  - id: item-1
    org_id: org-1
    content_type: meme
    content_data:
      texto_superior: Deploy on Friday
      bottom_text: What could go wrong
`

// newTestCLI returns a CLI whose config keeps everything under a temp dir
// and serves the memory store from testFixture.
func newTestCLI(t *testing.T, extra string) (*CLI, string) {
	t.Helper()
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "fixture.yaml"), testFixture)

	cfg := `
[paths]
root = "` + dir + `"
tmp = "tmp"

[cache]
backend = "file"
dir = "` + filepath.Join(dir, "cache") + `"

[store]
backend = "memory"
fixture = "fixture.yaml"

[canva]
client_secret = "shh"
` + extra
	path := filepath.Join(dir, "assetforge.toml")
	writeTestFile(t, path, cfg)

	c := New(io.Discard, LogInfo)
	c.configPath = path
	return c, dir
}

func execute(t *testing.T, c *CLI, args ...string) (string, error) {
	t.Helper()
	root := c.RootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeTestFile(t *testing.T, path, data string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestConfigCommand(t *testing.T) {
	c, dir := newTestCLI(t, "")
	out, err := execute(t, c, "config")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if !strings.Contains(out, filepath.Join(dir, "tmp")) {
		t.Errorf("tmp path not resolved against root:\n%s", out)
	}
	if strings.Contains(out, "shh") {
		t.Error("client secret printed in clear")
	}
	if !strings.Contains(out, `client_secret = "****"`) {
		t.Errorf("client secret not masked:\n%s", out)
	}
}

func TestConfigCommandOffline(t *testing.T) {
	c, _ := newTestCLI(t, "")
	if _, err := execute(t, c, "--offline", "config"); err != nil {
		t.Fatalf("config: %v", err)
	}
	if c.cfg.Store.Backend != "memory" || c.cfg.Storage.Backend != "local" {
		t.Errorf("offline config = %s/%s, want memory/local", c.cfg.Store.Backend, c.cfg.Storage.Backend)
	}
}

func TestTypesCommand(t *testing.T) {
	c, _ := newTestCLI(t, "")

	out, err := execute(t, c, "types")
	if err != nil {
		t.Fatalf("types: %v", err)
	}
	for _, want := range []string{"carousel", "meet_the_team", "PDF", "1080x1080", "1080x1350"} {
		if !strings.Contains(out, want) {
			t.Errorf("types output missing %q:\n%s", want, out)
		}
	}

	out, err = execute(t, c, "types", "meme")
	if err != nil {
		t.Fatalf("types meme: %v", err)
	}
	if !strings.Contains(out, "top_text") || !strings.Contains(out, "texto_superior") {
		t.Errorf("meme fields missing:\n%s", out)
	}

	out, err = execute(t, c, "types", "carousel")
	if err != nil {
		t.Fatalf("types carousel: %v", err)
	}
	if !strings.Contains(out, "slides []") {
		t.Errorf("carousel array field missing:\n%s", out)
	}

	if _, err := execute(t, c, "types", "poster"); err == nil {
		t.Error("unknown type should fail")
	}
}

func TestPreviewCommandFromFile(t *testing.T) {
	c, dir := newTestCLI(t, "")
	data := filepath.Join(dir, "meme.json")
	writeTestFile(t, data, `{"top_text": "Deploy on Friday", "bottom_text": "What could go wrong"}`)

	out, err := execute(t, c, "preview", "-t", "meme", "--data", data, "--brand-name", "Globex")
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	for _, want := range []string{"Deploy on Friday", "What could go wrong", "Globex"} {
		if !strings.Contains(out, want) {
			t.Errorf("preview missing %q", want)
		}
	}
}

func TestPreviewCommandItem(t *testing.T) {
	c, dir := newTestCLI(t, "")
	dst := filepath.Join(dir, "out", "item.html")

	if _, err := execute(t, c, "preview", "item-1", "-o", dst); err != nil {
		t.Fatalf("preview: %v", err)
	}
	b, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	html := string(b)
	if !strings.Contains(html, "Deploy on Friday") {
		t.Error("aliased field was not normalized into the layout")
	}
	if !strings.Contains(html, "Acme") {
		t.Error("organization brand missing")
	}
}

func TestPreviewCommandNeedsInput(t *testing.T) {
	c, _ := newTestCLI(t, "")
	_, err := execute(t, c, "preview", "-t", "meme")
	if err == nil || !strings.Contains(err.Error(), "--type and --data") {
		t.Errorf("err = %v, want missing input error", err)
	}
}

func TestInspectSVG(t *testing.T) {
	c, dir := newTestCLI(t, "")
	svg := filepath.Join(dir, "t.svg")
	writeTestFile(t, svg, `<svg xmlns="http://www.w3.org/2000/svg">
<text id="Title Text">Hello</text>
<text data-field="cta"><tspan>Buy</tspan><tspan>now</tspan></text>
</svg>`)

	out, err := execute(t, c, "inspect", "svg", svg)
	if err != nil {
		t.Fatalf("inspect svg: %v", err)
	}
	for _, want := range []string{"Title Text", "cta", "Hello"} {
		if !strings.Contains(out, want) {
			t.Errorf("inspect output missing %q:\n%s", want, out)
		}
	}
}

func TestInspectZones(t *testing.T) {
	c, dir := newTestCLI(t, "")
	zones := filepath.Join(dir, "zones.yaml")
	writeTestFile(t, zones, "title:\n  x: 80\n  y: 120\n  font_size: 64\n  bg_fill: \"#ffffff\"\n")

	out, err := execute(t, c, "inspect", "zones", zones)
	if err != nil {
		t.Fatalf("inspect zones: %v", err)
	}
	for _, want := range []string{"title", "80,120", "64px", "#ffffff"} {
		if !strings.Contains(out, want) {
			t.Errorf("zones output missing %q:\n%s", want, out)
		}
	}

	writeTestFile(t, zones, "title: [1, 2")
	if _, err := execute(t, c, "inspect", "zones", zones); err == nil {
		t.Error("malformed manifest should fail")
	}
}
