package export

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"social-report/internal/config"
)

// Document is a rendered export ready to be served or attached.
type Document struct {
	Data        []byte
	ContentType string
	Extension   string
}

// Exporter turns a rendered HTML report into a document.
type Exporter interface {
	Export(ctx context.Context, html []byte) (*Document, error)
	Name() string
}

var whitespace = regexp.MustCompile(`\s+`)

// FileName builds "<Client_Name>_Report_<YYYY-MM-DD>.<ext>".
func FileName(client string, date time.Time, ext string) string {
	return FileNameForDate(client, date.Format("2006-01-02"), ext)
}

// FileNameForDate is FileName with a preformatted date.
func FileNameForDate(client, date, ext string) string {
	client = strings.TrimSpace(client)
	if client == "" {
		client = "Client"
	}
	return fmt.Sprintf("%s_Report_%s.%s", whitespace.ReplaceAllString(client, "_"), date, ext)
}

// New returns the exporter selected by cfg.Backend.
func New(cfg config.ExportConfig, logger *logrus.Logger) (Exporter, error) {
	timeout := time.Duration(cfg.Timeout) * time.Second
	switch cfg.Backend {
	case "", "chromedp":
		return NewChromeExporter(cfg.ChromePath, timeout, logger), nil
	case "selenium":
		if cfg.SeleniumURL == "" {
			return nil, fmt.Errorf("selenium export requires selenium_url")
		}
		return NewSeleniumExporter(cfg.SeleniumURL, timeout, logger), nil
	default:
		return nil, fmt.Errorf("unsupported export backend: %s", cfg.Backend)
	}
}
