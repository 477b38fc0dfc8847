// Package browser wraps the headless-Chrome session used by the listing
// crawler. The crawler only needs three capabilities: navigate, settle, and
// list the hyperlink targets on the current page, so that is all Session
// exposes. Tests supply a fake; production uses chromedp.
package browser

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
)

// Session is one live browser session. It is not safe for concurrent use;
// the discovery phase is single-threaded by design.
type Session interface {
	// Navigate loads url and returns once the main document committed.
	Navigate(ctx context.Context, url string) error
	// Hyperlinks returns the href targets of all anchors on the current page.
	Hyperlinks(ctx context.Context) ([]string, error)
	// Close tears the session down. Safe to call more than once.
	Close()
}

const collectHrefsJS = `Array.from(document.querySelectorAll("a[href]")).map(a => a.href)`

// ChromeSession drives a headless Chromium via the DevTools protocol.
type ChromeSession struct {
	taskCtx     context.Context
	cancelTask  context.CancelFunc
	cancelAlloc context.CancelFunc
}

// Options controls browser startup.
type Options struct {
	// ExecPath overrides the browser binary (e.g. /usr/bin/chromium).
	// Empty means chromedp's default lookup.
	ExecPath string
	// StartupTimeout bounds how long we wait for the browser to come up.
	StartupTimeout time.Duration
}

// NewChromeSession launches a headless browser suitable for unattended
// execution. The caller must Close the session, success or failure downstream.
func NewChromeSession(ctx context.Context, opts Options) (*ChromeSession, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	taskCtx, cancelTask := chromedp.NewContext(allocCtx)

	startup := opts.StartupTimeout
	if startup <= 0 {
		startup = 30 * time.Second
	}
	bootCtx, cancelBoot := context.WithTimeout(taskCtx, startup)
	defer cancelBoot()

	// Force the browser process to start now so a broken environment fails
	// here rather than mid-crawl.
	if err := chromedp.Run(bootCtx); err != nil {
		cancelTask()
		cancelAlloc()
		return nil, err
	}

	return &ChromeSession{
		taskCtx:     taskCtx,
		cancelTask:  cancelTask,
		cancelAlloc: cancelAlloc,
	}, nil
}

func (s *ChromeSession) Navigate(ctx context.Context, url string) error {
	runCtx, cancel := mergeDeadline(s.taskCtx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, chromedp.Navigate(url))
}

func (s *ChromeSession) Hyperlinks(ctx context.Context) ([]string, error) {
	runCtx, cancel := mergeDeadline(s.taskCtx, ctx)
	defer cancel()
	var hrefs []string
	if err := chromedp.Run(runCtx, chromedp.Evaluate(collectHrefsJS, &hrefs)); err != nil {
		return nil, err
	}
	return hrefs, nil
}

func (s *ChromeSession) Close() {
	s.cancelTask()
	s.cancelAlloc()
}

// mergeDeadline applies the caller context's deadline, if any, to the
// session's chromedp context (chromedp actions must run on the task context).
func mergeDeadline(taskCtx, caller context.Context) (context.Context, context.CancelFunc) {
	if dl, ok := caller.Deadline(); ok {
		return context.WithDeadline(taskCtx, dl)
	}
	return context.WithCancel(taskCtx)
}
