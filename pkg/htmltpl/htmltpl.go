// Package htmltpl renders the HTML layouts of visual content with pongo2,
// a Django/Jinja-style template engine. Output is autoescaped.
//
// Default layouts for every visual type are embedded in the binary. When an
// override directory is configured, a file with the same name there takes
// precedence, and [Engine.Watch] drops cached templates as files change.
//
// Layouts see the normalized content fields at the top level plus:
//
//	css_override  custom CSS, inserted with |safe
//	assets        asset type → file URL
//	brand         name, logo_url, website, accent_color
package htmltpl

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/flosch/pongo2/v6"
	"github.com/fsnotify/fsnotify"

	"github.com/siete/assetforge/pkg/content"
	"github.com/siete/assetforge/pkg/errors"
)

//go:embed visual_templates/*.html
var embedded embed.FS

// Defaults returns the embedded layouts.
func Defaults() fs.FS {
	sub, err := fs.Sub(embedded, "visual_templates")
	if err != nil {
		panic(err)
	}
	return sub
}

// Vars is the data a layout is rendered with.
type Vars struct {
	Data        content.Data
	CSSOverride string
	Assets      map[string]string
	Brand       map[string]any
}

func (v Vars) context() pongo2.Context {
	ctx := make(pongo2.Context, len(v.Data)+3)
	for k, val := range v.Data {
		ctx[k] = val
	}
	assets := v.Assets
	if assets == nil {
		assets = map[string]string{}
	}
	brand := v.Brand
	if brand == nil {
		brand = map[string]any{}
	}
	ctx["css_override"] = v.CSSOverride
	ctx["assets"] = assets
	ctx["brand"] = brand
	return ctx
}

// Option configures an Engine.
type Option func(*Engine)

// WithOverrideDir makes layouts in dir take precedence over the defaults.
func WithOverrideDir(dir string) Option {
	return func(e *Engine) { e.dir = dir }
}

// WithLogger sets the logger used for reload messages.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// Engine renders layouts. It is safe for concurrent use.
type Engine struct {
	dir      string
	logger   *log.Logger
	defaults *pongo2.TemplateSet
	override *pongo2.TemplateSet
	inline   *pongo2.TemplateSet

	mu    sync.RWMutex
	cache map[string]*pongo2.Template
}

// New creates an Engine.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		logger: log.New(io.Discard),
		cache:  make(map[string]*pongo2.Template),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.defaults = pongo2.NewSet("defaults", pongo2.NewFSLoader(Defaults()))
	e.inline = pongo2.NewSet("inline", pongo2.NewFSLoader(Defaults()))
	// Custom layouts are stored per organization; keep them off the filesystem.
	for _, tag := range []string{"ssi", "include", "import", "extends"} {
		if err := e.inline.BanTag(tag); err != nil {
			return nil, fmt.Errorf("restrict custom layouts: %w", err)
		}
	}
	if e.dir != "" {
		loader, err := pongo2.NewLocalFileSystemLoader(e.dir)
		if err != nil {
			return nil, fmt.Errorf("template override dir: %w", err)
		}
		e.override = pongo2.NewSet("override", loader)
	}
	return e, nil
}

// RenderFile renders the named layout.
func (e *Engine) RenderFile(name string, v Vars) (string, error) {
	tpl, err := e.lookup(name)
	if err != nil {
		return "", err
	}
	return execute(tpl, name, v)
}

// RenderString renders a layout given as source text.
func (e *Engine) RenderString(src string, v Vars) (string, error) {
	tpl, err := e.inline.FromString(src)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeTemplateRender, err, "parse custom layout: %v", err)
	}
	return execute(tpl, "custom layout", v)
}

// Has reports whether a layout named name exists.
func (e *Engine) Has(name string) bool {
	_, err := e.source(name)
	return err == nil
}

func (e *Engine) lookup(name string) (*pongo2.Template, error) {
	e.mu.RLock()
	tpl, ok := e.cache[name]
	e.mu.RUnlock()
	if ok {
		return tpl, nil
	}

	set, err := e.source(name)
	if err != nil {
		return nil, err
	}
	tpl, err = set.FromFile(name)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeTemplateRender, err, "parse layout %s: %v", name, err)
	}

	e.mu.Lock()
	e.cache[name] = tpl
	e.mu.Unlock()
	return tpl, nil
}

// source picks the template set holding name.
func (e *Engine) source(name string) (*pongo2.TemplateSet, error) {
	if name == "" || strings.Contains(name, "..") || filepath.IsAbs(name) {
		return nil, errors.New(errors.ErrCodeInvalidPath, "invalid layout name %q", name)
	}
	if e.override != nil {
		if st, err := os.Stat(filepath.Join(e.dir, name)); err == nil && !st.IsDir() {
			return e.override, nil
		}
	}
	if _, err := fs.Stat(Defaults(), name); err == nil {
		return e.defaults, nil
	}
	return nil, errors.New(errors.ErrCodeTemplateNotFound, "layout %s not found", name)
}

func execute(tpl *pongo2.Template, name string, v Vars) (string, error) {
	var buf bytes.Buffer
	if err := tpl.ExecuteWriter(v.context(), &buf); err != nil {
		return "", errors.Wrap(errors.ErrCodeTemplateRender, err,
			"%s rendering failed: %v. content_data keys: [%s]", name, err, strings.Join(v.Data.Keys(), ", "))
	}
	return buf.String(), nil
}

// Reload drops every cached layout.
func (e *Engine) Reload() {
	e.mu.Lock()
	clear(e.cache)
	e.mu.Unlock()
}

// Watch reloads layouts whenever the override directory changes. It blocks
// until ctx is done. Without an override directory it returns immediately.
func (e *Engine) Watch(ctx context.Context) error {
	if e.dir == "" {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create template watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(e.dir); err != nil {
		return fmt.Errorf("watch %s: %w", e.dir, err)
	}
	e.logger.Debug("watching templates", "dir", e.dir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Ext(ev.Name) != ".html" || !ev.Op.Has(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) {
				continue
			}
			e.Reload()
			e.logger.Info("templates reloaded", "file", filepath.Base(ev.Name), "op", ev.Op.String())
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			e.logger.Warn("template watcher", "err", err)
		}
	}
}
