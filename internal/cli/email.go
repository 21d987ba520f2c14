package cli

import (
	"context"
	"fmt"
)

// Execute implements the go-flags Commander interface for EmailCommand.
func (c *EmailCommand) Execute(args []string) error {
	ctx := context.Background()
	env, done, err := resolve(ctx, c.env, c.globals, envOptions{exporter: true, mailer: !c.DryRun})
	if err != nil {
		return err
	}
	defer done()

	doc, res, err := env.reports.ExportPDF(ctx, c.Client, c.Range)
	if err != nil {
		return fmt.Errorf("email needs a PDF export from the %s backend: %w", env.cfg.Export.Backend, err)
	}

	var csv []byte
	if c.CSV {
		csvDoc, _, err := env.reports.ExportCSV(ctx, c.Client, c.Range)
		if err != nil {
			return err
		}
		csv = csvDoc.Data
	}

	email := env.reports.NewEmail(res, c.To, doc.Data, csv)

	if c.DryRun {
		fmt.Fprintf(env.out, "To: %s\nSubject: %s\nAttachment: %s (%d bytes)\n",
			email.Recipient, email.Subject(), email.PDFName(), len(email.PDF))
		if len(email.CSV) > 0 {
			fmt.Fprintf(env.out, "Attachment: %s (%d bytes)\n", email.CSVName(), len(email.CSV))
		}
		fmt.Fprintf(env.out, "\n%s\n", email.Body(env.cfg.Email.FromName))
		return nil
	}

	err = env.mailer.Send(ctx, email)
	env.monitor.RecordEmail(res.Client.Slug, err == nil)
	if err != nil {
		return err
	}
	fmt.Fprintf(env.out, "Report sent to %s\n", c.To)
	return nil
}
