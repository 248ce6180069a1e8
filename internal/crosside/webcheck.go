package crosside

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// checkWebExport loads the freshly linked export in a headless browser
// and fails the build when the page throws during startup. This
// catches missing .data preloads and runtime-method misconfigurations
// that a successful link cannot.
func checkWebExport(ctx context.Context, p *ProjectSpec) error {
	html, err := resolveWebExport(p)
	if err != nil {
		return err
	}
	port, err := resolveAvailableRunPort(8090)
	if err != nil {
		return err
	}
	serveCtx, stopServe := context.WithCancel(ctx)
	defer stopServe()
	go serveStaticHTTP(serveCtx, filepath.Dir(html), "127.0.0.1", port, filepath.Base(html))

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(serveCtx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
		)...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()
	browserCtx, cancelTimeout := context.WithTimeout(browserCtx, 30*time.Second)
	defer cancelTimeout()

	var pageErrors []string
	chromedp.ListenTarget(browserCtx, func(ev any) {
		if e, ok := ev.(*runtime.EventExceptionThrown); ok && e.ExceptionDetails != nil {
			pageErrors = append(pageErrors, e.ExceptionDetails.Text)
		}
	})

	url := fmt.Sprintf("http://127.0.0.1:%d/%s", port, filepath.Base(html))
	logf("Web check: %s", url)
	var readyState string
	if err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.Sleep(3*time.Second),
		chromedp.Evaluate("document.readyState", &readyState),
	); err != nil {
		return fmt.Errorf("web check failed to load %s: %w", url, err)
	}
	if readyState != "complete" && readyState != "interactive" {
		return fmt.Errorf("web check: page stuck in state %q", readyState)
	}
	if len(pageErrors) > 0 {
		return fmt.Errorf("web check: page threw during startup: %s", strings.Join(pageErrors, "; "))
	}
	logf("Web check passed")
	return nil
}
