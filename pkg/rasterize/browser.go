package rasterize

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/siete/assetforge/pkg/content"
	"github.com/siete/assetforge/pkg/errors"
)

const cssPixelsPerInch = 96

// BrowserOptions configure the Chrome instance.
type BrowserOptions struct {
	ControlURL string        // connect to a running Chrome instead of launching one
	Bin        string        // Chrome binary; empty lets the launcher find or download one
	Headless   bool
	NoSandbox  bool          // required when running as root in containers
	Settle     time.Duration // wait after load for fonts and images
	Timeout    time.Duration // per job
}

// DefaultBrowserOptions returns headless options with a 500ms settle time.
func DefaultBrowserOptions() BrowserOptions {
	return BrowserOptions{Headless: true, Settle: 500 * time.Millisecond, Timeout: 60 * time.Second}
}

// Browser rasterizes with headless Chrome. Chrome is started on first use and
// shared between jobs; each job gets its own incognito context.
type Browser struct {
	opts   BrowserOptions
	logger *log.Logger

	mu       sync.Mutex
	browser  *rod.Browser
	launcher *launcher.Launcher
}

// NewBrowser creates a Browser. Chrome is not started until the first job.
func NewBrowser(opts BrowserOptions, logger *log.Logger) *Browser {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Browser{opts: opts, logger: logger}
}

func (b *Browser) connect() (*rod.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browser != nil {
		if _, err := b.browser.Version(); err == nil {
			return b.browser, nil
		}
		b.logger.Warn("stale browser connection, reconnecting")
		_ = b.browser.Close()
		b.browser = nil
	}

	controlURL := b.opts.ControlURL
	if controlURL == "" {
		l := launcher.New().Headless(b.opts.Headless).NoSandbox(b.opts.NoSandbox)
		if b.opts.Bin != "" {
			l = l.Bin(b.opts.Bin)
		}
		u, err := l.Launch()
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeBrowser, err, "launch chrome")
		}
		b.launcher = l
		controlURL = u
		b.logger.Debug("chrome launched", "control_url", u)
	}

	br := rod.New().ControlURL(controlURL)
	if err := br.Connect(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeBrowser, err, "connect to chrome")
	}
	b.browser = br
	return br, nil
}

// Rasterize renders job.HTML. PNG output is a full-page screenshot at
// job.Scale; PDF output uses a paper size equal to the page size.
func (b *Browser) Rasterize(ctx context.Context, job Job) ([]byte, error) {
	br, err := b.connect()
	if err != nil {
		return nil, err
	}
	if b.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.opts.Timeout)
		defer cancel()
	}

	incognito, err := br.Incognito()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeBrowser, err, "incognito context")
	}
	defer incognito.Close()

	page, err := incognito.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeBrowser, err, "create page")
	}
	defer page.Close()
	page = page.Context(ctx)

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             job.Width,
		Height:            job.Height,
		DeviceScaleFactor: job.scale(),
	}); err != nil {
		return nil, errors.Wrap(errors.ErrCodeBrowser, err, "set viewport")
	}

	wait := page.WaitRequestIdle(300*time.Millisecond, nil, nil, nil)
	if err := page.SetDocumentContent(job.HTML); err != nil {
		return nil, errors.Wrap(errors.ErrCodeBrowser, err, "set content")
	}
	if err := page.WaitLoad(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeBrowser, err, "wait for load")
	}
	wait()
	if b.opts.Settle > 0 {
		select {
		case <-ctx.Done():
			return nil, errors.Wrap(errors.ErrCodeTimeout, ctx.Err(), "rasterize")
		case <-time.After(b.opts.Settle):
		}
	}

	if job.Format == content.FormatPDF {
		return printPDF(page, job)
	}
	data, err := page.Screenshot(true, &proto.PageCaptureScreenshot{Format: proto.PageCaptureScreenshotFormatPng})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeBrowser, err, "screenshot")
	}
	return data, nil
}

func printPDF(page *rod.Page, job Job) ([]byte, error) {
	zero := 0.0
	w := float64(job.Width) / cssPixelsPerInch
	h := float64(job.Height) / cssPixelsPerInch
	stream, err := page.PDF(&proto.PagePrintToPDF{
		PrintBackground: true,
		PaperWidth:      &w,
		PaperHeight:     &h,
		MarginTop:       &zero,
		MarginBottom:    &zero,
		MarginLeft:      &zero,
		MarginRight:     &zero,
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeBrowser, err, "print pdf")
	}
	defer stream.Close()
	data, err := io.ReadAll(stream)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeBrowser, err, "read pdf")
	}
	return data, nil
}

// Close disconnects from Chrome and stops it if it was launched here.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var err error
	if b.browser != nil {
		err = b.browser.Close()
		b.browser = nil
	}
	if b.launcher != nil {
		b.launcher.Kill()
		b.launcher = nil
	}
	return err
}
