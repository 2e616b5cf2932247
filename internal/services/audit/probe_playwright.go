package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
)

// BrowserProbe measures load time in a real headless browser, capturing
// the rendering cost an HTTP transfer misses. Sites built entirely on
// client-side frameworks need this probe for a meaningful figure.
type BrowserProbe struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	timeout time.Duration
}

// NewBrowserProbe launches a headless Chromium instance. The caller owns
// the probe and must Close it.
func NewBrowserProbe(timeout time.Duration) (*BrowserProbe, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("starting playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("launching browser: %w", err)
	}

	return &BrowserProbe{pw: pw, browser: browser, timeout: timeout}, nil
}

// Close shuts the browser and the playwright driver down.
func (p *BrowserProbe) Close() error {
	if p.browser != nil {
		p.browser.Close()
	}
	if p.pw != nil {
		return p.pw.Stop()
	}
	return nil
}

// Measure loads the page until the network settles and times it.
func (p *BrowserProbe) Measure(ctx context.Context, pageURL string) (ProbeResult, error) {
	browserCtx, err := p.browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{Width: 1366, Height: 900},
	})
	if err != nil {
		return ProbeResult{}, fmt.Errorf("creating browser context: %w", err)
	}
	defer browserCtx.Close()

	page, err := browserCtx.NewPage()
	if err != nil {
		return ProbeResult{}, fmt.Errorf("creating page: %w", err)
	}
	defer page.Close()

	done := make(chan error, 1)
	start := time.Now()
	go func() {
		_, err := page.Goto(pageURL, playwright.PageGotoOptions{
			WaitUntil: playwright.WaitUntilStateNetworkidle,
			Timeout:   playwright.Float(float64(p.timeout.Milliseconds())),
		})
		done <- err
	}()

	select {
	case <-ctx.Done():
		return ProbeResult{}, ctx.Err()
	case err := <-done:
		if err != nil {
			return ProbeResult{}, fmt.Errorf("loading %s: %w", pageURL, err)
		}
	}
	elapsed := time.Since(start)

	return ProbeResult{
		Score:    scoreFromLoadTime(elapsed),
		LoadTime: elapsed,
	}, nil
}
