package export

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/chrome"
)

// SeleniumExporter captures a PNG of the report through a remote WebDriver.
type SeleniumExporter struct {
	remoteURL string
	timeout   time.Duration
	settle    time.Duration
	width     int
	height    int
	logger    *logrus.Logger
}

func NewSeleniumExporter(remoteURL string, timeout time.Duration, logger *logrus.Logger) *SeleniumExporter {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &SeleniumExporter{
		remoteURL: remoteURL,
		timeout:   timeout,
		settle:    time.Second,
		width:     1200,
		height:    1600,
		logger:    logger,
	}
}

func (se *SeleniumExporter) Name() string { return "selenium" }

func (se *SeleniumExporter) capabilities() selenium.Capabilities {
	caps := selenium.Capabilities{"browserName": "chrome"}
	caps.AddChrome(chrome.Capabilities{
		Args: []string{
			"--headless",
			"--no-sandbox",
			"--disable-dev-shm-usage",
			"--disable-gpu",
			fmt.Sprintf("--window-size=%d,%d", se.width, se.height),
		},
	})
	return caps
}

// DataURL embeds html in a data: URL the browser can open directly.
func DataURL(html []byte) string {
	return "data:text/html;base64," + base64.StdEncoding.EncodeToString(html)
}

func (se *SeleniumExporter) Export(ctx context.Context, html []byte) (*Document, error) {
	type result struct {
		png []byte
		err error
	}
	done := make(chan result, 1)

	// the WebDriver client is blocking and has no context support
	go func() {
		png, err := se.capture(html)
		done <- result{png: png, err: err}
	}()

	ctx, cancel := context.WithTimeout(ctx, se.timeout)
	defer cancel()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("selenium export timed out: %w", ctx.Err())
	case r := <-done:
		if r.err != nil {
			return nil, r.err
		}
		return &Document{Data: r.png, ContentType: "image/png", Extension: "png"}, nil
	}
}

func (se *SeleniumExporter) capture(html []byte) ([]byte, error) {
	driver, err := selenium.NewRemote(se.capabilities(), se.remoteURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open webdriver session: %w", err)
	}
	defer driver.Quit()

	if err := driver.ResizeWindow("", se.width, se.height); err != nil {
		se.logger.Warnf("Failed to resize window: %v", err)
	}

	if err := driver.Get(DataURL(html)); err != nil {
		return nil, fmt.Errorf("failed to load report: %w", err)
	}

	if err := driver.WaitWithTimeout(func(wd selenium.WebDriver) (bool, error) {
		_, err := wd.FindElement(selenium.ByID, "reportPaper")
		return err == nil, nil
	}, se.timeout); err != nil {
		return nil, fmt.Errorf("report did not load: %w", err)
	}
	time.Sleep(se.settle)

	png, err := driver.Screenshot()
	if err != nil {
		return nil, fmt.Errorf("failed to take screenshot: %w", err)
	}

	se.logger.Infof("Exported PNG snapshot (%d bytes)", len(png))
	return png, nil
}
