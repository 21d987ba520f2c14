package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"social-report/internal/config"
	"social-report/internal/utils"
	"social-report/pkg/types"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// RangeOption is one entry of the time range selector.
type RangeOption struct {
	Value    string
	Label    string
	Selected bool
}

// Page is everything the report template reads.
type Page struct {
	Client       config.Client
	Report       *types.ReportViewModel
	Date         string
	Chart        ChartData
	Ranges       []RangeOption
	ShowTopPosts bool
	// Static hides the range selector, for exported documents.
	Static bool
}

// NewPage prepares a page for vm, dating it in loc.
func NewPage(client config.Client, vm *types.ReportViewModel, loc *time.Location) Page {
	if loc == nil {
		loc = time.Local
	}
	ranges := make([]RangeOption, 0, 3)
	for _, r := range []types.Range{types.RangeSevenDays, types.RangeMonth, types.RangeAll} {
		ranges = append(ranges, RangeOption{
			Value:    string(r),
			Label:    r.Label(),
			Selected: r == vm.Range,
		})
	}
	return Page{
		Client:       client,
		Report:       vm,
		Date:         utils.FormatLongDate(vm.GeneratedAt.In(loc)),
		Chart:        NewChartData(vm.DailySeries),
		Ranges:       ranges,
		ShowTopPosts: client.TopPostsVisible(),
	}
}

type Renderer struct {
	tmpl *template.Template
}

func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("report.html.tmpl").Funcs(template.FuncMap{
		"number":  FormatNumber,
		"cell":    FormatCell,
		"grouped": func(n int) string { return GroupThousands(int64(n)) },
	}).ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse report template: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Render writes the HTML document of page to w.
func (r *Renderer) Render(w io.Writer, page Page) error {
	if err := r.tmpl.ExecuteTemplate(w, "report.html.tmpl", page); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	return nil
}

// RenderBytes is Render into memory, for exporters that need the whole document.
func (r *Renderer) RenderBytes(page Page) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.Render(&buf, page); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
