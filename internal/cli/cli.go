package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	goflags "github.com/jessevdk/go-flags"
)

type commands struct {
	Clients *ClientsCommand
	Summary *SummaryCommand
	Render  *RenderCommand
	Export  *ExportCommand
	Email   *EmailCommand
}

// buildParser registers every subcommand. --version is answered from the
// command handler, so it works with or without a subcommand.
func buildParser(version string, stdout io.Writer) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "report"
	parser.LongDescription = "Build, export and email social media performance reports."
	parser.SubcommandsOptional = true

	cmds := &commands{
		Clients: &ClientsCommand{globals: &globals},
		Summary: &SummaryCommand{globals: &globals},
		Render:  &RenderCommand{globals: &globals},
		Export:  &ExportCommand{globals: &globals},
		Email:   &EmailCommand{globals: &globals},
	}

	parser.AddCommand("clients", "List configured clients", "List configured clients with their report defaults.", cmds.Clients)
	parser.AddCommand("summary", "Print report totals", "Print totals, the daily series and the top posts of a client's report.", cmds.Summary)
	parser.AddCommand("render", "Render the report page", "Render a client's report as a standalone HTML page.", cmds.Render)
	parser.AddCommand("export", "Export the report document", "Export a client's report as PDF/PNG through the configured browser backend, or as CSV.", cmds.Export)
	parser.AddCommand("email", "Email the report", "Export a client's report and email it through the relay or SMTP.", cmds.Email)

	parser.CommandHandler = func(cmd goflags.Commander, args []string) error {
		switch {
		case globals.Version:
			_, err := fmt.Fprintf(stdout, "report %s\n", version)
			return err
		case cmd == nil:
			return errNoCommand
		default:
			return cmd.Execute(args)
		}
	}

	return parser, &globals, cmds
}

var errNoCommand = errors.New("no command given, run with --help to list commands")

func Run(version string) error {
	return RunWithArgs(version, os.Args[1:])
}

// RunWithArgs parses args and runs the selected subcommand. Help output is
// not an error.
func RunWithArgs(version string, args []string) error {
	return run(version, args, os.Stdout)
}

func run(version string, args []string, stdout io.Writer) error {
	parser, _, _ := buildParser(version, stdout)

	_, err := parser.ParseArgs(args)
	var flagsErr *goflags.Error
	if errors.As(err, &flagsErr) && flagsErr.Type == goflags.ErrHelp {
		return nil
	}
	return err
}
