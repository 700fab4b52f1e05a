package observability

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// LogHooks reports pipeline, cache and HTTP events to a charm logger at
// debug level. Errors are logged at warn level.
type LogHooks struct {
	Logger *log.Logger
}

// NewLogHooks returns LogHooks writing to logger.
func NewLogHooks(logger *log.Logger) *LogHooks {
	if logger == nil {
		logger = log.Default()
	}
	return &LogHooks{Logger: logger}
}

// Install registers h for every hook category.
func (h *LogHooks) Install() {
	SetPipelineHooks(h)
	SetCacheHooks(h)
	SetHTTPHooks(h)
}

func (h *LogHooks) OnGenerateStart(_ context.Context, contentType string) {
	h.Logger.Debug("generate html", "type", contentType)
}

func (h *LogHooks) OnGenerateComplete(_ context.Context, contentType, mode string, d time.Duration, err error) {
	if err != nil {
		h.Logger.Warn("generate html failed", "type", contentType, "err", err)
		return
	}
	h.Logger.Debug("generated html", "type", contentType, "mode", mode, "duration", d)
}

func (h *LogHooks) OnRasterizeStart(_ context.Context, contentType, format string) {
	h.Logger.Debug("rasterize", "type", contentType, "format", format)
}

func (h *LogHooks) OnRasterizeComplete(_ context.Context, contentType, format string, size int, d time.Duration, err error) {
	if err != nil {
		h.Logger.Warn("rasterize failed", "type", contentType, "format", format, "err", err)
		return
	}
	h.Logger.Debug("rasterized", "type", contentType, "format", format, "bytes", size, "duration", d)
}

func (h *LogHooks) OnProviderFallback(_ context.Context, provider, contentType string, err error) {
	h.Logger.Warn("provider render failed, using built-in engine", "provider", provider, "type", contentType, "err", err)
}

func (h *LogHooks) OnCacheHit(_ context.Context, keyType string) {
	h.Logger.Debug("cache hit", "kind", keyType)
}

func (h *LogHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.Logger.Debug("cache miss", "kind", keyType)
}

func (h *LogHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.Logger.Debug("cache set", "kind", keyType, "bytes", size)
}

func (h *LogHooks) OnRequest(_ context.Context, method, host, path string) {
	h.Logger.Debug("http request", "method", method, "host", host, "path", path)
}

func (h *LogHooks) OnResponse(_ context.Context, method, host, path string, status int, d time.Duration) {
	h.Logger.Debug("http response", "method", method, "host", host, "path", path, "status", status, "duration", d)
}

func (h *LogHooks) OnError(_ context.Context, method, host, path string, err error) {
	h.Logger.Warn("http error", "method", method, "host", host, "path", path, "err", err)
}

var (
	_ PipelineHooks = (*LogHooks)(nil)
	_ CacheHooks    = (*LogHooks)(nil)
	_ HTTPHooks     = (*LogHooks)(nil)
)
