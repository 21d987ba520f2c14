package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"social-report/internal/render"
)

// Execute implements the go-flags Commander interface for SummaryCommand.
func (c *SummaryCommand) Execute(args []string) error {
	ctx := context.Background()
	env, done, err := resolve(ctx, c.env, c.globals, envOptions{})
	if err != nil {
		return err
	}
	defer done()

	res, err := env.reports.Build(ctx, c.Client, c.Range)
	if err != nil {
		return err
	}
	vm := res.Report

	if c.globals != nil && c.globals.JSON {
		enc := json.NewEncoder(env.out)
		enc.SetIndent("", "  ")
		return enc.Encode(vm)
	}

	w := env.out
	fmt.Fprintf(w, "%s %s\n", res.Client.Name, res.Client.ReportType)
	fmt.Fprintf(w, "Range:        %s\n", vm.RangeLabel)
	if vm.DataGenerated != "" {
		fmt.Fprintf(w, "Data as of:   %s\n", vm.DataGenerated)
	}
	fmt.Fprintf(w, "Posts:        %s\n", render.GroupThousands(int64(vm.TotalPosts)))
	fmt.Fprintf(w, "Impressions:  %s\n", render.FormatNumber(vm.TotalImpressions))

	if len(vm.Platforms) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Platforms:")
		for _, p := range vm.Platforms {
			fmt.Fprintf(w, "  %-12s %6d posts  %8s impressions  (%d rows)\n",
				p.Key, p.Posts, render.FormatNumber(p.Impressions), p.RawCount)
		}
	}

	if len(vm.DailySeries) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Daily:")
		for _, d := range vm.DailySeries {
			fmt.Fprintf(w, "  %s  %4d posts  %8s\n", d.Date, d.PostCount, render.FormatNumber(d.ImpressionSum))
		}
	}

	if res.Client.TopPostsVisible() && len(vm.TopPosts) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Top Posts:")
		for _, p := range vm.TopPosts {
			fmt.Fprintf(w, "  %d. %s · %s  %s  %s\n",
				p.Rank, p.DisplayName, p.PlatformLabel, render.FormatNumber(p.Impressions), p.URL)
		}
	}
	return nil
}
