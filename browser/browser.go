// Package browser wraps chromedp as the pipeline's page-rendering
// capability: isolated sessions, navigation with bounded timeouts, DOM
// snapshots, and passive observation of requests, popups and frames.
package browser

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"
)

// Config controls how browser sessions are launched.
type Config struct {
	Headless       bool
	ChromePath     string // empty = auto-detect
	UserAgent      string
	AcceptLanguage string
	TimezoneID     string
	WindowWidth    int
	WindowHeight   int
	BlockedHosts   []string // ad/tracker hosts blocked at the network layer
}

// DefaultConfig returns launch settings matching the source sites' audience.
func DefaultConfig() Config {
	return Config{
		Headless:       true,
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
		AcceptLanguage: "ar-EG,ar;q=0.9,en-US;q=0.8,en;q=0.7",
		TimezoneID:     "Africa/Cairo",
		WindowWidth:    1280,
		WindowHeight:   720,
	}
}

// Engine creates isolated browsing sessions from a shared configuration.
type Engine struct {
	cfg Config
	log *logrus.Logger
}

// NewEngine returns an Engine. The logger is injected, never global.
func NewEngine(cfg Config, log *logrus.Logger) *Engine {
	return &Engine{cfg: cfg, log: log}
}

// Session is one isolated browsing context: its own Chrome process and
// ephemeral profile directory, so no cookie or storage state leaks between
// matches resolved in different sessions.
type Session struct {
	ctx       context.Context
	cancels   []context.CancelFunc
	dataDir   string
	collector *swappableCollector
}

// NewSession launches a session. Callers must Close it.
func (e *Engine) NewSession(parent context.Context) (*Session, error) {
	dataDir, err := os.MkdirTemp("", "matchstream-profile-*")
	if err != nil {
		return nil, fmt.Errorf("creating profile dir: %w", err)
	}

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoDefaultBrowserCheck,
		chromedp.NoFirstRun,
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("exclude-switches", "enable-automation"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-component-update", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("no-service-autorun", true),
		chromedp.Flag("password-store", "basic"),
		chromedp.Flag("use-mock-keychain", true),
		chromedp.UserAgent(e.cfg.UserAgent),
		chromedp.WindowSize(e.cfg.WindowWidth, e.cfg.WindowHeight),
		chromedp.UserDataDir(dataDir),
	}
	if e.cfg.Headless {
		opts = append(opts, chromedp.Flag("headless", "new"))
	}
	if e.cfg.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(e.cfg.ChromePath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, opts...)
	taskCtx, taskCancel := chromedp.NewContext(allocCtx)

	s := &Session{
		ctx:       taskCtx,
		cancels:   []context.CancelFunc{taskCancel, allocCancel},
		dataDir:   dataDir,
		collector: &swappableCollector{},
	}

	// Feed network requests, sub-frame navigations and new targets (popups,
	// tab-unders) into whichever collector is currently attached.
	chromedp.ListenTarget(taskCtx, func(ev any) {
		switch e := ev.(type) {
		case *network.EventRequestWillBeSent:
			s.collector.add(e.Request.URL)
		case *page.EventFrameNavigated:
			if e.Frame != nil && e.Frame.ParentID != "" {
				s.collector.add(e.Frame.URL)
			}
		}
	})
	chromedp.ListenBrowser(taskCtx, func(ev any) {
		if e, ok := ev.(*target.EventTargetCreated); ok && e.TargetInfo != nil {
			if e.TargetInfo.Type == "page" && e.TargetInfo.URL != "" {
				s.collector.add(e.TargetInfo.URL)
			}
		}
	})

	init := []chromedp.Action{
		network.Enable(),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(stealthScript(e.cfg)).Do(ctx)
			return err
		}),
		network.SetExtraHTTPHeaders(network.Headers(map[string]interface{}{
			"Accept-Language": e.cfg.AcceptLanguage,
		})),
	}
	if len(e.cfg.BlockedHosts) > 0 {
		init = append(init, network.SetBlockedURLS(blockPatterns(e.cfg.BlockedHosts)))
	}
	if e.cfg.TimezoneID != "" {
		init = append(init, chromedp.ActionFunc(func(ctx context.Context) error {
			return emulateTimezone(ctx, e.cfg.TimezoneID)
		}))
	}

	if err := chromedp.Run(taskCtx, init...); err != nil {
		s.Close()
		return nil, fmt.Errorf("starting browser session: %w", err)
	}
	return s, nil
}

// Close tears the session down and removes its profile directory.
func (s *Session) Close() {
	for _, cancel := range s.cancels {
		cancel()
	}
	if s.dataDir != "" {
		os.RemoveAll(s.dataDir)
	}
}

// Observe attaches a collector for the duration of one resolution task.
// Detach with the returned func, typically deferred.
func (s *Session) Observe(c *Collector) func() {
	s.collector.set(c)
	return func() { s.collector.set(nil) }
}

// Navigate loads a URL, bounded by timeout, and waits for the body to be
// ready. Exceeding the bound returns the context error; it never hangs.
func (s *Session) Navigate(url string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	return chromedp.Run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

// HTML snapshots the rendered document.
func (s *Session) HTML() (string, error) {
	var html string
	err := chromedp.Run(s.ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

// BodyText returns up to limit characters of the page's visible text.
func (s *Session) BodyText(limit int) (string, error) {
	var text string
	js := fmt.Sprintf(`(document.body && document.body.innerText || "").slice(0, %d)`, limit)
	err := chromedp.Run(s.ctx, chromedp.Evaluate(js, &text))
	return text, err
}

// ScriptText concatenates the text content of every inline script.
func (s *Session) ScriptText() (string, error) {
	var text string
	js := `Array.from(document.scripts).map(s => s.textContent || "").join("\n")`
	err := chromedp.Run(s.ctx, chromedp.Evaluate(js, &text))
	return text, err
}

// CountSelector returns how many elements currently match the selector.
func (s *Session) CountSelector(sel string) (int, error) {
	var n int
	js := fmt.Sprintf(`document.querySelectorAll(%q).length`, sel)
	err := chromedp.Run(s.ctx, chromedp.Evaluate(js, &n))
	return n, err
}

// Scroll wheels the page down to trigger lazy-loaded assets.
func (s *Session) Scroll(dy int) error {
	js := fmt.Sprintf(`window.scrollBy(0, %d)`, dy)
	return chromedp.Run(s.ctx, chromedp.Evaluate(js, nil))
}

// Sleep pauses inside the session's context so cancellation still applies.
func (s *Session) Sleep(d time.Duration) error {
	return chromedp.Run(s.ctx, chromedp.Sleep(d))
}

// Location returns the page's current URL.
func (s *Session) Location() (string, error) {
	var loc string
	err := chromedp.Run(s.ctx, chromedp.Location(&loc))
	return loc, err
}

// FrameURLs lists the URLs of the main frame and every sub-frame.
func (s *Session) FrameURLs() ([]string, error) {
	var urls []string
	err := chromedp.Run(s.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		tree, err := page.GetFrameTree().Do(ctx)
		if err != nil {
			return err
		}
		var walk func(*page.FrameTree)
		walk = func(t *page.FrameTree) {
			if t == nil {
				return
			}
			if t.Frame != nil && t.Frame.URL != "" {
				urls = append(urls, t.Frame.URL)
			}
			for _, child := range t.ChildFrames {
				walk(child)
			}
		}
		walk(tree)
		return nil
	}))
	return urls, err
}

// Screenshot captures the full page for diagnostics.
func (s *Session) Screenshot() ([]byte, error) {
	var buf []byte
	err := chromedp.Run(s.ctx, chromedp.FullScreenshot(&buf, 80))
	return buf, err
}

// blockPatterns turns bare hostnames into CDP URL block patterns covering
// the host and its subdomains.
func blockPatterns(hosts []string) []string {
	patterns := make([]string, 0, len(hosts)*2)
	for _, h := range hosts {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		patterns = append(patterns, "*://"+h+"/*", "*://*."+h+"/*")
	}
	return patterns
}
