package cli

import (
	"context"
	"encoding/json"
	"fmt"
)

type clientJSON struct {
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	ReportType   string `json:"report_type"`
	DefaultRange string `json:"default_range"`
	DataFile     string `json:"data_file"`
	Sheets       int    `json:"sheets"`
	TopPosts     bool   `json:"top_posts"`
}

// Execute implements the go-flags Commander interface for ClientsCommand.
func (c *ClientsCommand) Execute(args []string) error {
	env, done, err := resolve(context.Background(), c.env, c.globals, envOptions{})
	if err != nil {
		return err
	}
	defer done()

	clients := env.reports.Clients()
	out := make([]clientJSON, 0, len(clients))
	for _, cl := range clients {
		out = append(out, clientJSON{
			Name:         cl.Name,
			Slug:         cl.Slug,
			ReportType:   cl.ReportType,
			DefaultRange: string(env.reports.RangeFor(cl, "")),
			DataFile:     cl.DataFile,
			Sheets:       len(cl.Sheets),
			TopPosts:     cl.TopPostsVisible(),
		})
	}

	if c.globals != nil && c.globals.JSON {
		enc := json.NewEncoder(env.out)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	for _, cl := range out {
		fmt.Fprintf(env.out, "%-20s %-28s %-8s %s\n", cl.Slug, cl.Name, cl.DefaultRange, cl.DataFile)
	}
	return nil
}
