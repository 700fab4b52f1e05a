package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"

	"github.com/siete/assetforge/pkg/assets"
	"github.com/siete/assetforge/pkg/cache"
	"github.com/siete/assetforge/pkg/config"
	"github.com/siete/assetforge/pkg/htmltpl"
	"github.com/siete/assetforge/pkg/integrations"
	"github.com/siete/assetforge/pkg/integrations/canva"
	"github.com/siete/assetforge/pkg/observability"
	"github.com/siete/assetforge/pkg/pipeline"
	"github.com/siete/assetforge/pkg/provider"
	"github.com/siete/assetforge/pkg/rasterize"
	"github.com/siete/assetforge/pkg/service"
	"github.com/siete/assetforge/pkg/session"
	"github.com/siete/assetforge/pkg/storage"
	"github.com/siete/assetforge/pkg/store"
)

// app is the wired component graph shared by the render, preview and
// serve commands.
type app struct {
	cfg       config.Config
	cache     cache.Cache
	redis     redis.UniversalClient
	store     store.Store
	storage   storage.Storage
	templates *htmltpl.Engine
	engine    *pipeline.Engine
	runner    *pipeline.Runner
	oauth     *canva.OAuthClient
	orch      *provider.Orchestrator
	svc       *service.Service

	closers []func() error
}

type appOptions struct {
	noCache bool
	// needStore skips opening mongo for commands that only render local files.
	needStore bool
}

func (c *CLI) openApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	observability.NewLogHooks(c.Logger).Install()

	if err := a.openCache(ctx, opts.noCache); err != nil {
		return nil, err
	}
	if err := a.openStore(ctx, opts.needStore); err != nil {
		return nil, err
	}

	if a.templates, err = htmltpl.New(htmltpl.WithOverrideDir(cfg.Paths.Templates), htmltpl.WithLogger(c.Logger)); err != nil {
		return nil, err
	}
	fetch := integrations.NewClient(a.cache, "svg", cache.TTLHTTP, nil)
	dirs := append([]string{cfg.Paths.Tmp, cfg.Paths.Root}, cfg.Paths.SVGDirs...)
	a.engine, err = pipeline.NewEngine(pipeline.Options{
		Templates: a.templates,
		Loader:    assets.NewLoader(fetch, dirs...),
		Rasterizer: rasterize.NewBrowser(rasterize.BrowserOptions{
			ControlURL: cfg.Browser.ControlURL,
			Bin:        cfg.Browser.Bin,
			Headless:   cfg.Browser.Headless,
			NoSandbox:  cfg.Browser.NoSandbox,
			Settle:     cfg.Browser.Settle.Duration,
			Timeout:    cfg.Browser.Timeout.Duration,
		}, c.Logger),
		RendersDir: cfg.Paths.Renders(),
		Logger:     c.Logger,
	})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.engine.Close)

	a.runner = pipeline.NewRunner(a.engine, a.cache, nil, c.Logger)
	a.oauth = canva.NewOAuthClient(canva.OAuthConfig{
		ClientID:     cfg.Canva.ClientID,
		ClientSecret: cfg.Canva.ClientSecret,
		RedirectURI:  cfg.Canva.RedirectURI,
	})
	a.orch = provider.NewOrchestrator(a.runner, map[string]provider.Renderer{
		provider.Canva: provider.NewCanvaRenderer(a.store, a.oauth, a.engine, a.cache, c.Logger),
		provider.Figma: provider.NewFigmaRenderer(a.store, a.engine, a.cache, nil, c.Logger),
	}, c.Logger)
	a.svc = service.New(a.store, a.storage, a.orch, c.Logger)

	ok = true
	return a, nil
}

func (a *app) openCache(ctx context.Context, noCache bool) error {
	backend := a.cfg.Cache.Backend
	if noCache {
		backend = config.BackendNone
	}
	switch backend {
	case config.BackendRedis:
		rc, err := cache.NewRedisCache(ctx, a.cfg.Cache.RedisURL, a.cfg.Cache.Prefix)
		if err != nil {
			return err
		}
		a.cache, a.redis = rc, rc.Client()
	case config.BackendFile:
		dir, err := a.cfg.CacheDir()
		if err != nil {
			a.cache = cache.NewNullCache()
			break
		}
		fc, err := cache.NewFileCache(dir)
		if err != nil {
			return err
		}
		a.cache = fc
	default:
		a.cache = cache.NewNullCache()
	}
	a.closers = append(a.closers, a.cache.Close)
	return nil
}

func (a *app) openStore(ctx context.Context, need bool) error {
	cfg := a.cfg
	if cfg.Store.Backend == config.BackendMongo && need {
		m, err := store.NewMongo(ctx, cfg.Store.URI, cfg.Store.Database)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() error { return m.Close(context.Background()) })
		if err := m.EnsureIndexes(ctx); err != nil {
			return err
		}
		a.store = m
		if cfg.Storage.Backend == config.BackendGridFS {
			a.storage = storage.NewGridFS(m.Database(), cfg.Storage.BaseURL)
			return nil
		}
	} else {
		mem := store.NewMemory()
		if cfg.Store.Fixture != "" {
			var err error
			if mem, err = store.LoadFixtureFile(cfg.Store.Fixture); err != nil {
				return err
			}
		}
		a.store = mem
	}
	local, err := storage.NewLocal(cfg.Paths.Tmp, cfg.Storage.BaseURL)
	if err != nil {
		return err
	}
	a.storage = local
	return nil
}

// states returns the OAuth state store: redis when configured, memory
// otherwise.
func (a *app) states(ctx context.Context) (session.StateStore, error) {
	if a.cfg.Server.Sessions != config.BackendRedis {
		return session.NewMemoryStore(), nil
	}
	client := a.redis
	if client == nil {
		opts, err := redis.ParseURL(a.cfg.Cache.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		c := redis.NewClient(opts)
		if err := c.Ping(ctx).Err(); err != nil {
			c.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.closers = append(a.closers, c.Close)
		client = c
	}
	return session.NewRedisStore(client, a.cfg.Cache.Prefix+"oauth:"), nil
}

// Close releases everything opened by openApp, newest first.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Warn("close", "error", err)
		}
	}
	a.closers = nil
}

// readFile reads a path argument, where "-" is stdin.
func readFile(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}
