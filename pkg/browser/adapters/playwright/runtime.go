// Package playwright adapts the playwright-go engine to the browser runtime
// interface. Isolated sessions use persistent contexts backed by disposable
// profile directories; attach mode connects over CDP.
package playwright

import (
	"context"
	"fmt"
	"io"

	pw "github.com/playwright-community/playwright-go"

	"github.com/quillagent/quill/pkg/browser"
)

const (
	defaultViewportWidth  = 1280
	defaultViewportHeight = 800
)

// Runtime implements browser.Runtime on playwright.
type Runtime struct {
	pw *pw.Playwright
}

// New installs browser binaries if needed and starts the playwright driver.
// Driver output is discarded so it cannot interleave with terminal UI.
func New() (*Runtime, error) {
	opts := &pw.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}
	if err := pw.Install(opts); err != nil {
		return nil, fmt.Errorf("install playwright: %w", err)
	}
	driver, err := pw.Run(opts)
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}
	return &Runtime{pw: driver}, nil
}

// Launch starts a private chromium with its state rooted at profileDir.
func (r *Runtime) Launch(_ context.Context, profileDir string, headless bool) (browser.Page, error) {
	bctx, err := r.pw.Chromium.LaunchPersistentContext(profileDir, pw.BrowserTypeLaunchPersistentContextOptions{
		Headless: pw.Bool(headless),
		Viewport: &pw.Size{Width: defaultViewportWidth, Height: defaultViewportHeight},
	})
	if err != nil {
		return nil, fmt.Errorf("launch persistent context: %w", err)
	}
	page, err := firstPage(bctx)
	if err != nil {
		bctx.Close()
		return nil, err
	}
	return &enginePage{page: page, context: bctx}, nil
}

// Attach connects to an already-running browser over its CDP endpoint and
// drives a page in its default context.
func (r *Runtime) Attach(_ context.Context, wsEndpoint string) (browser.Page, error) {
	b, err := r.pw.Chromium.ConnectOverCDP(wsEndpoint)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", wsEndpoint, err)
	}
	contexts := b.Contexts()
	var bctx pw.BrowserContext
	if len(contexts) > 0 {
		bctx = contexts[0]
	} else {
		bctx, err = b.NewContext(pw.BrowserNewContextOptions{
			Viewport: &pw.Size{Width: defaultViewportWidth, Height: defaultViewportHeight},
		})
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("create context: %w", err)
		}
	}
	page, err := firstPage(bctx)
	if err != nil {
		b.Close()
		return nil, err
	}
	return &enginePage{page: page, context: bctx, browser: b}, nil
}

// Close stops the playwright driver. Callers close sessions first.
func (r *Runtime) Close() error {
	if r.pw == nil {
		return nil
	}
	return r.pw.Stop()
}

func firstPage(bctx pw.BrowserContext) (pw.Page, error) {
	if pages := bctx.Pages(); len(pages) > 0 {
		return pages[0], nil
	}
	page, err := bctx.NewPage()
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	return page, nil
}

// enginePage implements browser.Page on a playwright page. For attached
// browsers the page close disconnects rather than killing the target.
type enginePage struct {
	page    pw.Page
	context pw.BrowserContext
	browser pw.Browser
}

func (p *enginePage) Navigate(_ context.Context, url string) (browser.PageInfo, error) {
	if _, err := p.page.Goto(url, pw.PageGotoOptions{
		WaitUntil: pw.WaitUntilStateDomcontentloaded,
	}); err != nil {
		return browser.PageInfo{}, err
	}
	title, err := p.page.Title()
	if err != nil {
		title = ""
	}
	return browser.PageInfo{URL: p.page.URL(), Title: title}, nil
}

func (p *enginePage) Click(_ context.Context, selector string) error {
	return p.page.Click(selector, pw.PageClickOptions{})
}

func (p *enginePage) Type(_ context.Context, selector, text string) error {
	return p.page.Fill(selector, text, pw.PageFillOptions{})
}

func (p *enginePage) Content(_ context.Context) (string, error) {
	return p.page.Content()
}

func (p *enginePage) Screenshot(_ context.Context) ([]byte, error) {
	return p.page.Screenshot(pw.PageScreenshotOptions{})
}

func (p *enginePage) URL() string {
	return p.page.URL()
}

func (p *enginePage) Title() string {
	title, err := p.page.Title()
	if err != nil {
		return ""
	}
	return title
}

func (p *enginePage) Close() error {
	if err := p.page.Close(); err != nil {
		return err
	}
	if err := p.context.Close(); err != nil {
		return err
	}
	if p.browser != nil {
		return p.browser.Close()
	}
	return nil
}
