package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"social-report/internal/export"
)

// Execute implements the go-flags Commander interface for RenderCommand.
func (c *RenderCommand) Execute(args []string) error {
	ctx := context.Background()
	env, done, err := resolve(ctx, c.env, c.globals, envOptions{})
	if err != nil {
		return err
	}
	defer done()

	html, _, err := env.reports.RenderHTML(ctx, c.Client, c.Range, c.Static)
	if err != nil {
		return err
	}

	if c.Out == "" {
		_, err = env.out.Write(html)
		return err
	}
	if err := os.WriteFile(c.Out, html, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", c.Out, err)
	}
	env.logger.Infof("Report page written to %s", c.Out)
	return nil
}

// Execute implements the go-flags Commander interface for ExportCommand.
func (c *ExportCommand) Execute(args []string) error {
	if c.Format != "document" && c.Format != "csv" {
		return fmt.Errorf("unsupported format %q: use document or csv", c.Format)
	}

	ctx := context.Background()
	env, done, err := resolve(ctx, c.env, c.globals, envOptions{exporter: c.Format == "document"})
	if err != nil {
		return err
	}
	defer done()

	var doc *export.Document
	var name string
	if c.Format == "csv" {
		d, res, err := env.reports.ExportCSV(ctx, c.Client, c.Range)
		if err != nil {
			return err
		}
		doc, name = d, env.reports.FileName(res.Client, d.Extension)
	} else {
		d, res, err := env.reports.ExportDocument(ctx, c.Client, c.Range)
		if err != nil {
			return err
		}
		doc, name = d, env.reports.FileName(res.Client, d.Extension)
	}

	dir := c.Out
	if dir == "" {
		dir = env.cfg.Export.OutputDir
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, doc.Data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Fprintln(env.out, path)
	return nil
}
