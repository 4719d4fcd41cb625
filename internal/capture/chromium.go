// Package capture renders the /calendar page to a PNG with headless
// Chromium. The PNG is served back on /preview.png and usable as a
// wallpaper or dashboard tile.
package capture

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"
)

const (
	DefaultWidth      = 1280
	DefaultHeight     = 1024
	DefaultTimeoutSec = 30
)

// Options defines parameters for one screenshot capture.
type Options struct {
	// URL of the calendar page, e.g. "http://127.0.0.1:8080/calendar".
	URL string

	// View and Date, if set, are appended as query parameters so a
	// specific period can be captured without touching server state.
	View string
	Date string

	// OutputPath is where the PNG is written.
	OutputPath string

	// Username and Password are sent as URL credentials when the server
	// runs behind basic auth.
	Username string
	Password string

	// Viewport size in pixels; zero means the defaults.
	Width  int
	Height int

	// Timeout bounds the entire capture. Zero means DefaultTimeoutSec.
	Timeout time.Duration
}

// CalendarPNG navigates headless Chromium to the calendar page, waits
// for body[data-ready="true"], and writes a full-page PNG screenshot.
func CalendarPNG(parentCtx context.Context, opts Options) error {
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
		opts.Timeout = DefaultTimeoutSec * time.Second
	}

	target, err := buildTargetURL(opts)
	if err != nil {
		return fmt.Errorf("capture: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(opts.OutputPath), 0o755); err != nil {
		return fmt.Errorf("capture: create output dir: %w", err)
	}

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var png []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(target),
		// The page sets data-ready once the layout has been rendered
		// server-side; waiting on it avoids capturing a blank frame.
		chromedp.WaitVisible(`[data-ready="true"]`, chromedp.ByQuery),
		// Small extra delay for final paints.
		chromedp.Sleep(500 * time.Millisecond),
		chromedp.FullScreenshot(&png, 100),
	}

	if err := chromedp.Run(ctx, tasks); err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	if err := os.WriteFile(opts.OutputPath, png, 0o644); err != nil {
		return fmt.Errorf("capture: write PNG: %w", err)
	}

	return nil
}

func buildTargetURL(opts Options) (string, error) {
	u, err := url.Parse(opts.URL)
	if err != nil {
		return "", fmt.Errorf("parse URL %q: %w", opts.URL, err)
	}

	if opts.Username != "" {
		u.User = url.UserPassword(opts.Username, opts.Password)
	}

	q := u.Query()
	if opts.View != "" {
		q.Set("view", opts.View)
	}
	if opts.Date != "" {
		q.Set("date", opts.Date)
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}
