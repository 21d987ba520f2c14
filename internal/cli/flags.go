package cli

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	Config  string `long:"config" description:"Path to config file" default:"configs/config.yaml"`
	JSON    bool   `long:"json" description:"Output in JSON format"`
	Verbose bool   `long:"verbose" description:"Enable debug logging"`
	Version bool   `long:"version" description:"Show version and exit"`
}

// ReportFlags select which report a command works on.
type ReportFlags struct {
	Client string `long:"client" short:"c" description:"Client slug" required:"true"`
	Range  string `long:"range" short:"r" description:"Time range: 7days | month | all (default: client setting)"`
}

type ClientsCommand struct {
	globals *GlobalFlags
	env     *environment
}

type SummaryCommand struct {
	ReportFlags

	globals *GlobalFlags
	env     *environment
}

type RenderCommand struct {
	ReportFlags
	Out    string `long:"out" short:"o" description:"Output file (default: stdout)"`
	Static bool   `long:"static" description:"Omit the interactive range selector"`

	globals *GlobalFlags
	env     *environment
}

type ExportCommand struct {
	ReportFlags
	Format string `long:"format" short:"f" description:"Output format: document | csv" default:"document"`
	Out    string `long:"out" short:"o" description:"Output directory (default: export.output_dir)"`

	globals *GlobalFlags
	env     *environment
}

type EmailCommand struct {
	ReportFlags
	To     string `long:"to" description:"Recipient address" required:"true"`
	CSV    bool   `long:"csv" description:"Attach the filtered posts as CSV"`
	DryRun bool   `long:"dry-run" description:"Print the email instead of sending it"`

	globals *GlobalFlags
	env     *environment
}
