package capture

import (
	"context"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/grovetools/recorder/config"
	"github.com/grovetools/recorder/logging"
)

// ChromeOptions configure the browser ChromePage launches.
type ChromeOptions struct {
	Headless  bool
	Width     int
	Height    int
	UserAgent string
	// ExecPath overrides the Chrome binary lookup.
	ExecPath string
}

// ChromeOptionsFrom maps device emulation onto a viewport.
func ChromeOptionsFrom(o config.Options, headless bool) ChromeOptions {
	opts := ChromeOptions{Headless: headless, Width: 1280, Height: 800}
	if o.DeviceEmulation == config.DeviceMobile {
		opts.Width, opts.Height = 375, 812
		opts.UserAgent = "Mozilla/5.0 (iPhone; CPU iPhone OS 16_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.0 Mobile/15E148 Safari/604.1"
	}
	return opts
}

// ChromePage drives a Chrome tab over the DevTools protocol.
type ChromePage struct {
	ctx    context.Context
	cancel context.CancelFunc
	opts   ChromeOptions
}

// NewChromePage launches Chrome. Close releases it.
func NewChromePage(parent context.Context, opts ChromeOptions) (*ChromePage, error) {
	alloc := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-background-timer-throttling", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
		chromedp.WindowSize(opts.Width, opts.Height),
	)
	if opts.UserAgent != "" {
		alloc = append(alloc, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.ExecPath != "" {
		alloc = append(alloc, chromedp.ExecPath(opts.ExecPath))
	}

	logger := logging.NewLogger("capture")
	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, alloc...)
	ctx, ctxCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(logger.Debugf))

	p := &ChromePage{
		ctx:  ctx,
		opts: opts,
		cancel: func() {
			ctxCancel()
			allocCancel()
		},
	}
	// first Run starts the browser
	if err := chromedp.Run(ctx, chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height))); err != nil {
		p.cancel()
		return nil, err
	}
	return p, nil
}

// Navigate implements Page.
func (p *ChromePage) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return chromedp.Run(p.ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

// Install implements Page.
func (p *ChromePage) Install(ctx context.Context, script string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return chromedp.Run(p.ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(script).Do(ctx)
			return err
		}),
		chromedp.Evaluate(script, nil),
	)
}

// Evaluate implements Page.
func (p *ChromePage) Evaluate(ctx context.Context, expr string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var raw []byte
	if err := chromedp.Run(p.ctx, chromedp.Evaluate(expr, &raw)); err != nil {
		return nil, err
	}
	return raw, nil
}

// Close shuts the browser down.
func (p *ChromePage) Close() {
	if p.cancel != nil {
		p.cancel()
	}
}
