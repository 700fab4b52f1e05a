// Package config loads assetforge settings from a TOML file and the
// environment.
//
// Lookup order for the file: the --config flag, $ASSETFORGE_CONFIG, then
// assetforge.toml in the XDG config directory. A missing file is not an
// error; defaults apply. Environment variables override file values:
//
//	ASSETFORGE_ROOT           paths.root
//	ASSETFORGE_TMP_DIR        paths.tmp
//	ASSETFORGE_TEMPLATES_DIR  paths.templates
//	ASSETFORGE_CHROME_BIN     browser.bin
//	ASSETFORGE_CHROME_URL     browser.control_url
//	ASSETFORGE_CACHE          cache.backend
//	ASSETFORGE_REDIS_URL      cache.redis_url
//	ASSETFORGE_STORE          store.backend
//	ASSETFORGE_MONGO_URI      store.uri
//	ASSETFORGE_MONGO_DB       store.database
//	ASSETFORGE_FIXTURE        store.fixture
//	ASSETFORGE_STORAGE        storage.backend
//	ASSETFORGE_PUBLIC_URL     storage.base_url
//	ASSETFORGE_ADDR           server.addr
//	CANVA_CLIENT_ID           canva.client_id
//	CANVA_CLIENT_SECRET       canva.client_secret
//	CANVA_REDIRECT_URI        canva.redirect_uri
//	FIGMA_TOKEN               figma.token
package config

import (
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/siete/assetforge/pkg/errors"
)

// FileName is the default config file name.
const FileName = "assetforge.toml"

// Backend names.
const (
	BackendNone   = "none"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
	BackendMongo  = "mongo"
	BackendLocal  = "local"
	BackendGridFS = "gridfs"
)

type Config struct {
	Paths   Paths   `toml:"paths"`
	Browser Browser `toml:"browser"`
	Cache   Cache   `toml:"cache"`
	Store   Store   `toml:"store"`
	Storage Storage `toml:"storage"`
	Server  Server  `toml:"server"`
	Canva   Canva   `toml:"canva"`
	Figma   Figma   `toml:"figma"`
}

type Paths struct {
	Root      string   `toml:"root"`
	Tmp       string   `toml:"tmp"`
	Templates string   `toml:"templates"` // overrides the embedded HTML templates
	SVGDirs   []string `toml:"svg_dirs"`  // extra directories SVG templates may be read from
}

// Renders is where artifacts are written before upload.
func (p Paths) Renders() string { return filepath.Join(p.Tmp, "renders") }

type Browser struct {
	Bin        string   `toml:"bin"`
	ControlURL string   `toml:"control_url"`
	Headless   bool     `toml:"headless"`
	NoSandbox  bool     `toml:"no_sandbox"`
	Settle     Duration `toml:"settle"`
	Timeout    Duration `toml:"timeout"`
}

type Cache struct {
	Backend  string `toml:"backend"`
	Dir      string `toml:"dir"`
	RedisURL string `toml:"redis_url"`
	Prefix   string `toml:"prefix"`
}

type Store struct {
	Backend  string `toml:"backend"`
	URI      string `toml:"uri"`
	Database string `toml:"database"`
	Fixture  string `toml:"fixture"` // YAML seed for the memory backend
}

type Storage struct {
	Backend string `toml:"backend"`
	BaseURL string `toml:"base_url"`
}

type Server struct {
	Addr           string   `toml:"addr"`
	RequestTimeout Duration `toml:"request_timeout"`
	Sessions       string   `toml:"sessions"` // memory or redis
}

type Canva struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
}

type Figma struct {
	Token string `toml:"token"`
}

// Duration is a time.Duration written as "500ms" or "2m" in TOML.
type Duration struct{ time.Duration }

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the built-in configuration rooted at the working
// directory.
func Default() Config {
	root, err := os.Getwd()
	if err != nil {
		root = "."
	}
	return Config{
		Paths: Paths{
			Root: root,
			Tmp:  filepath.Join(root, ".tmp"),
		},
		Browser: Browser{
			Headless: true,
			Settle:   Duration{500 * time.Millisecond},
			Timeout:  Duration{60 * time.Second},
		},
		Cache: Cache{
			Backend: BackendFile,
			Prefix:  "assetforge:",
		},
		Store: Store{
			Backend:  BackendMemory,
			URI:      "mongodb://localhost:27017",
			Database: "assetforge",
		},
		Storage: Storage{
			Backend: BackendLocal,
			BaseURL: "http://localhost:8000",
		},
		Server: Server{
			Addr:           ":8000",
			RequestTimeout: Duration{2 * time.Minute},
			Sessions:       BackendMemory,
		},
		Canva: Canva{
			RedirectURI: "http://localhost:8000/api/canva/callback",
		},
	}
}

// Load reads path (or the default location when empty) over the defaults
// and applies environment overrides. The returned config is validated.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if path == "" {
		path = os.Getenv("ASSETFORGE_CONFIG")
		explicit = path != ""
	}
	if path == "" {
		path = DefaultPath()
	}
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			if !os.IsNotExist(err) || explicit {
				return Config{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "read config %s", path)
			}
		}
	}
	cfg.applyEnv(os.LookupEnv)
	cfg.resolve()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DefaultPath returns $XDG_CONFIG_HOME/assetforge/assetforge.toml, or
// ~/.config/assetforge/assetforge.toml.
func DefaultPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "assetforge", FileName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "assetforge", FileName)
}

// CacheDir returns the file cache directory: cache.dir when set, else
// $XDG_CACHE_HOME/assetforge or ~/.cache/assetforge.
func (c Config) CacheDir() (string, error) {
	if c.Cache.Dir != "" {
		return c.Cache.Dir, nil
	}
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, "assetforge"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", "assetforge"), nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("ASSETFORGE_ROOT", &c.Paths.Root)
	str("ASSETFORGE_TMP_DIR", &c.Paths.Tmp)
	str("ASSETFORGE_TEMPLATES_DIR", &c.Paths.Templates)
	str("ASSETFORGE_CHROME_BIN", &c.Browser.Bin)
	str("ASSETFORGE_CHROME_URL", &c.Browser.ControlURL)
	str("ASSETFORGE_CACHE", &c.Cache.Backend)
	str("ASSETFORGE_REDIS_URL", &c.Cache.RedisURL)
	str("ASSETFORGE_STORE", &c.Store.Backend)
	str("ASSETFORGE_MONGO_URI", &c.Store.URI)
	str("ASSETFORGE_MONGO_DB", &c.Store.Database)
	str("ASSETFORGE_FIXTURE", &c.Store.Fixture)
	str("ASSETFORGE_STORAGE", &c.Storage.Backend)
	str("ASSETFORGE_PUBLIC_URL", &c.Storage.BaseURL)
	str("ASSETFORGE_ADDR", &c.Server.Addr)
	str("CANVA_CLIENT_ID", &c.Canva.ClientID)
	str("CANVA_CLIENT_SECRET", &c.Canva.ClientSecret)
	str("CANVA_REDIRECT_URI", &c.Canva.RedirectURI)
	str("FIGMA_TOKEN", &c.Figma.Token)

	if v, ok := lookup("ASSETFORGE_NO_SANDBOX"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Browser.NoSandbox = b
		}
	}
}

// resolve makes relative paths absolute against paths.root.
func (c *Config) resolve() {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(c.Paths.Root, p)
	}
	c.Paths.Tmp = abs(c.Paths.Tmp)
	c.Paths.Templates = abs(c.Paths.Templates)
	for i, d := range c.Paths.SVGDirs {
		c.Paths.SVGDirs[i] = abs(d)
	}
	c.Store.Fixture = abs(c.Store.Fixture)
}

// Validate checks backend names and required settings.
func (c Config) Validate() error {
	check := func(section, got string, allowed ...string) error {
		if !slices.Contains(allowed, got) {
			return errors.New(errors.ErrCodeInvalidInput, "%s.backend: unknown backend %q (want one of %v)", section, got, allowed)
		}
		return nil
	}
	if err := check("cache", c.Cache.Backend, BackendNone, BackendFile, BackendRedis); err != nil {
		return err
	}
	if err := check("store", c.Store.Backend, BackendMemory, BackendMongo); err != nil {
		return err
	}
	if err := check("storage", c.Storage.Backend, BackendLocal, BackendGridFS); err != nil {
		return err
	}
	if err := check("server.sessions", c.Server.Sessions, BackendMemory, BackendRedis); err != nil {
		return err
	}
	if c.Cache.Backend == BackendRedis && c.Cache.RedisURL == "" {
		return errors.New(errors.ErrCodeInvalidInput, "cache.redis_url is required for the redis cache")
	}
	if c.Server.Sessions == BackendRedis && c.Cache.RedisURL == "" {
		return errors.New(errors.ErrCodeInvalidInput, "cache.redis_url is required for redis sessions")
	}
	if c.Storage.Backend == BackendGridFS && c.Store.Backend != BackendMongo {
		return errors.New(errors.ErrCodeInvalidInput, "gridfs storage needs the mongo store")
	}
	if c.Paths.Tmp == "" {
		return errors.New(errors.ErrCodeInvalidInput, "paths.tmp must not be empty")
	}
	return nil
}

// String renders the config as TOML with secrets masked.
func (c Config) String() string {
	c.Canva.ClientSecret = mask(c.Canva.ClientSecret)
	c.Figma.Token = mask(c.Figma.Token)
	var b strings.Builder
	if err := toml.NewEncoder(&b).Encode(c); err != nil {
		return err.Error()
	}
	return b.String()
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "****"
}
