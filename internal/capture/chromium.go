// Package capture renders the printable ordo page to PNG with a headless
// Chromium, for sharing the month's calendar as an image.
package capture

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	appLog "github.com/Nhatnguyen0000/Choir-sub000/internal/log"
)

// Default capture parameters. They match the A4-ish layout of /print/ordo.
const (
	DefaultWidth      = 1240
	DefaultHeight     = 1754
	DefaultTimeoutSec = 30
)

// ReadySelector is the element the printable page marks once rendered.
const ReadySelector = `[data-ready="true"]`

// Options defines one capture.
type Options struct {
	// URL to capture, e.g. "http://127.0.0.1:8080/print/ordo?month=3&year=2026".
	URL string

	// OutputPath is where the PNG is written.
	OutputPath string

	// Account and Password are sent as HTTP Basic credentials when set.
	Account  string
	Password string

	// Width and Height are the viewport in pixels. Zero means the default.
	Width  int
	Height int

	// Timeout bounds the whole capture. Zero means DefaultTimeoutSec.
	Timeout time.Duration
}

// PageURL builds the printable ordo URL for a server base address.
func PageURL(base string, month, year int) string {
	return fmt.Sprintf("%s/print/ordo?month=%d&year=%d", base, month, year)
}

// CapturePNG navigates to opts.URL, waits until the page reports
// data-ready="true" and writes a full-page screenshot.
func CapturePNG(parentCtx context.Context, opts Options) error {
	if opts.URL == "" {
		return fmt.Errorf("capture: URL is required")
	}
	if opts.OutputPath == "" {
		return fmt.Errorf("capture: OutputPath is required")
	}
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Duration(DefaultTimeoutSec) * time.Second
	}

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()
	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var png []byte
	tasks := chromedp.Tasks{
		network.Enable(),
	}
	if opts.Account != "" {
		token := base64.StdEncoding.EncodeToString([]byte(opts.Account + ":" + opts.Password))
		tasks = append(tasks, network.SetExtraHTTPHeaders(network.Headers{"Authorization": "Basic " + token}))
	}
	tasks = append(tasks,
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(opts.URL),
		chromedp.WaitVisible(ReadySelector, chromedp.ByQuery),
		// Let web fonts settle.
		chromedp.Sleep(300*time.Millisecond),
		chromedp.FullScreenshot(&png, 100),
	)

	start := time.Now()
	if err := chromedp.Run(ctx, tasks); err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	if dir := filepath.Dir(opts.OutputPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("capture: %w", err)
		}
	}
	if err := os.WriteFile(opts.OutputPath, png, 0o644); err != nil {
		return fmt.Errorf("capture: failed to write PNG: %w", err)
	}

	appLog.Info("ordo captured", "path", opts.OutputPath, "bytes", len(png), "elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}
