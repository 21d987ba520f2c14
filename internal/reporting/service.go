package reporting

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"social-report/internal/config"
	"social-report/internal/export"
	"social-report/internal/ingest"
	"social-report/internal/mailer"
	"social-report/internal/monitoring"
	"social-report/internal/render"
	"social-report/internal/report"
	"social-report/internal/utils"
	"social-report/pkg/types"
)

var (
	ErrClientNotFound = errors.New("client not found")
	ErrNoExporter     = errors.New("no document exporter configured")
	ErrNotPDF         = errors.New("exporter does not produce PDF")
)

// SourceFunc returns the dataset source of a client.
type SourceFunc func(client config.Client) ingest.Source

// FileSources reads each client's data file from dataDir.
func FileSources(dataDir string) SourceFunc {
	return func(client config.Client) ingest.Source {
		return ingest.FileSource{Path: filepath.Join(dataDir, client.DataFile)}
	}
}

// SnapshotSources prefers the newest stored snapshot and falls back to the
// data file.
func SnapshotSources(store ingest.SnapshotStore, dataDir string) SourceFunc {
	files := FileSources(dataDir)
	return func(client config.Client) ingest.Source {
		return ingest.FallbackSource{
			ingest.SnapshotSource{Store: store, Client: client.Slug},
			files(client),
		}
	}
}

type Deps struct {
	Clients  []config.Client
	Sources  SourceFunc
	Exporter export.Exporter
	Monitor  *monitoring.Monitor
	Logger   *logrus.Logger
	Now      func() time.Time
}

type clientReport struct {
	client    config.Client
	loader    *ingest.Loader
	assembler *report.Assembler
}

// Service builds reports for the configured clients.
type Service struct {
	reports      map[string]*clientReport
	order        []string
	renderer     *render.Renderer
	exporter     export.Exporter
	monitor      *monitoring.Monitor
	logger       *logrus.Logger
	loc          *time.Location
	now          func() time.Time
	defaultRange string
}

// Result is one assembled report with the records behind it.
type Result struct {
	Client  config.Client
	Dataset *types.Dataset
	Report  *types.ReportViewModel
	Posts   []types.RawPostRecord
}

func NewService(cfg config.ReportConfig, deps Deps) (*Service, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	if deps.Sources == nil {
		return nil, fmt.Errorf("no dataset source configured")
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	renderer, err := render.NewRenderer()
	if err != nil {
		return nil, err
	}

	s := &Service{
		reports:      make(map[string]*clientReport, len(deps.Clients)),
		renderer:     renderer,
		exporter:     deps.Exporter,
		monitor:      deps.Monitor,
		logger:       deps.Logger,
		loc:          loc,
		now:          deps.Now,
		defaultRange: cfg.DefaultRange,
	}

	for _, client := range deps.Clients {
		mode := client.Aggregation
		if mode == "" {
			mode = cfg.Aggregation
		}
		s.reports[client.Slug] = &clientReport{
			client: client,
			loader: ingest.NewLoader(deps.Sources(client), deps.Logger),
			assembler: report.NewAssembler(report.Options{
				Location: loc,
				Mode:     types.ParseAggregationMode(mode),
				TopN:     cfg.TopN,
				Now:      deps.Now,
			}, deps.Logger.WithField("client", client.Slug)),
		}
		s.order = append(s.order, client.Slug)
	}
	return s, nil
}

func (s *Service) Location() *time.Location { return s.loc }

func (s *Service) Clients() []config.Client {
	clients := make([]config.Client, 0, len(s.order))
	for _, slug := range s.order {
		clients = append(clients, s.reports[slug].client)
	}
	return clients
}

func (s *Service) lookup(slug string) (*clientReport, error) {
	if cr, ok := s.reports[strings.ToLower(slug)]; ok {
		return cr, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrClientNotFound, slug)
}

func (s *Service) Client(slug string) (config.Client, error) {
	cr, err := s.lookup(slug)
	if err != nil {
		return config.Client{}, err
	}
	return cr.client, nil
}

// SlugFor maps a client display name to its slug. Names of unknown clients
// are lowercased with spaces turned into dashes.
func (s *Service) SlugFor(name string) string {
	name = strings.TrimSpace(name)
	for _, slug := range s.order {
		c := s.reports[slug].client
		if strings.EqualFold(c.Name, name) || strings.EqualFold(c.Slug, name) {
			return c.Slug
		}
	}
	return strings.ToLower(strings.Join(strings.Fields(name), "-"))
}

// RangeFor resolves the requested range, falling back to the client's and
// then the global default when none was asked for.
func (s *Service) RangeFor(client config.Client, requested string) types.Range {
	switch {
	case requested != "":
		return types.ParseRange(requested)
	case client.DefaultRange != "":
		return types.ParseRange(client.DefaultRange)
	default:
		return types.ParseRange(s.defaultRange)
	}
}

// Build assembles the report of a client for the requested range.
func (s *Service) Build(ctx context.Context, slug, requested string) (*Result, error) {
	cr, err := s.lookup(slug)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	r := s.RangeFor(cr.client, requested)
	ds := cr.loader.Load(ctx)
	run := cr.assembler.Run(ds, r)
	vm := run.Report

	s.logger.WithFields(logrus.Fields{
		"client": cr.client.Slug,
		"range":  string(r),
	}).Infof("Report assembled: %s", run.Stats)

	if s.monitor != nil {
		s.monitor.RecordReport(cr.client.Slug, vm.TotalPosts, time.Since(start))
	}
	return &Result{Client: cr.client, Dataset: ds, Report: vm, Posts: run.Posts}, nil
}

// Page prepares the template input of res. Static pages omit the range selector.
func (s *Service) Page(res *Result, static bool) render.Page {
	page := render.NewPage(res.Client, res.Report, s.loc)
	page.Static = static
	return page
}

func (s *Service) RenderHTML(ctx context.Context, slug, requested string, static bool) ([]byte, *Result, error) {
	res, err := s.Build(ctx, slug, requested)
	if err != nil {
		return nil, nil, err
	}
	html, err := s.renderer.RenderBytes(s.Page(res, static))
	if err != nil {
		return nil, nil, err
	}
	return html, res, nil
}

// FileName names an export of client produced today.
func (s *Service) FileName(client config.Client, ext string) string {
	return export.FileName(client.Name, s.now().In(s.loc), ext)
}

// ExportDocument renders the static report and hands it to the exporter.
func (s *Service) ExportDocument(ctx context.Context, slug, requested string) (*export.Document, *Result, error) {
	if s.exporter == nil {
		return nil, nil, ErrNoExporter
	}
	html, res, err := s.RenderHTML(ctx, slug, requested, true)
	if err != nil {
		return nil, nil, err
	}
	doc, err := s.exporter.Export(ctx, html)
	if err != nil {
		return nil, nil, err
	}
	if s.monitor != nil {
		s.monitor.RecordExport()
	}
	return doc, res, nil
}

// ExportPDF is ExportDocument restricted to exporters that print PDF.
func (s *Service) ExportPDF(ctx context.Context, slug, requested string) (*export.Document, *Result, error) {
	doc, res, err := s.ExportDocument(ctx, slug, requested)
	if err != nil {
		return nil, nil, err
	}
	if doc.Extension != "pdf" {
		return nil, nil, fmt.Errorf("%w: got %s", ErrNotPDF, doc.Extension)
	}
	return doc, res, nil
}

func (s *Service) ExportCSV(ctx context.Context, slug, requested string) (*export.Document, *Result, error) {
	res, err := s.Build(ctx, slug, requested)
	if err != nil {
		return nil, nil, err
	}
	doc, err := export.CSVDocument(res.Posts)
	if err != nil {
		return nil, nil, err
	}
	return doc, res, nil
}

// ClearCache drops every client's cached dataset.
func (s *Service) ClearCache() {
	for _, cr := range s.reports {
		cr.loader.ClearCache()
	}
}

// LastUpdate is the generated stamp of the client's cached dataset.
func (s *Service) LastUpdate(slug string) string {
	cr, err := s.lookup(slug)
	if err != nil {
		return ""
	}
	return cr.loader.LastUpdate()
}

// NewEmail prepares the email carrying res to recipient.
func (s *Service) NewEmail(res *Result, recipient string, pdf, csv []byte) *mailer.ReportEmail {
	email := &mailer.ReportEmail{
		Recipient:   recipient,
		ClientName:  res.Client.Name,
		ReportType:  res.Client.ReportType,
		ReportDate:  utils.FormatDate(s.now().In(s.loc)),
		PDF:         pdf,
		CSV:         csv,
		FilterLabel: res.Report.RangeLabel,
		Summary: &mailer.SummaryMetrics{
			TotalPosts:       res.Report.TotalPosts,
			TotalImpressions: res.Report.TotalImpressions,
		},
	}
	if res.Client.TopPostsVisible() {
		for _, p := range res.Report.TopPosts {
			email.TopPosts = append(email.TopPosts, mailer.TopPost{
				Rank:        p.Rank,
				Name:        p.DisplayName,
				Platform:    p.PlatformLabel,
				Impressions: p.Impressions,
				URL:         p.URL,
			})
		}
	}
	email.ApplyDefaults(s.now().In(s.loc))
	return email
}
