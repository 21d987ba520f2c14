package export

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"
)

// ChromeExporter prints the report to PDF with headless Chrome.
type ChromeExporter struct {
	execPath string
	timeout  time.Duration
	// settle gives chart scripts time to draw before printing.
	settle time.Duration
	logger *logrus.Logger
}

func NewChromeExporter(execPath string, timeout time.Duration, logger *logrus.Logger) *ChromeExporter {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &ChromeExporter{
		execPath: execPath,
		timeout:  timeout,
		settle:   time.Second,
		logger:   logger,
	}
}

func (ce *ChromeExporter) Name() string { return "chromedp" }

func (ce *ChromeExporter) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.WindowSize(1200, 1600),
	)
	if path := ce.resolveExecPath(); path != "" {
		opts = append(opts, chromedp.ExecPath(path))
	}
	return opts
}

func (ce *ChromeExporter) resolveExecPath() string {
	if ce.execPath != "" {
		return ce.execPath
	}
	for _, path := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser"} {
		if found, err := exec.LookPath(path); err == nil {
			return found
		}
	}
	return ""
}

// Export loads html into a blank tab and prints it with backgrounds.
func (ce *ChromeExporter) Export(ctx context.Context, html []byte) (*Document, error) {
	ctx, cancel := context.WithTimeout(ctx, ce.timeout)
	defer cancel()

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, ce.allocatorOptions()...)
	defer cancelAlloc()

	taskCtx, cancelTask := chromedp.NewContext(allocCtx, chromedp.WithLogf(ce.logger.Debugf))
	defer cancelTask()

	var pdf []byte
	start := time.Now()
	err := chromedp.Run(taskCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, string(html)).Do(ctx)
		}),
		chromedp.WaitReady("#reportPaper", chromedp.ByQuery),
		chromedp.Sleep(ce.settle),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(8.27).
				WithPaperHeight(11.69).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to print report to pdf: %w", err)
	}

	ce.logger.Infof("Exported PDF (%d bytes) in %v", len(pdf), time.Since(start))
	return &Document{Data: pdf, ContentType: "application/pdf", Extension: "pdf"}, nil
}
