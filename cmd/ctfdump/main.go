// Command ctfdump prints the contents of CTF (Compact C Type Format) data
// found in ELF objects or raw CTF files.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/jtang613/goctf/pkg/ctf"
	"github.com/jtang613/goctf/pkg/ctf/container"
	"github.com/jtang613/goctf/pkg/ctf/sections"
)

// errFailed reports that at least one input could not be dumped. The
// details have already been logged.
var errFailed = errors.New("ctfdump: one or more files could not be dumped")

// options collects flag values.
type options struct {
	header    bool
	labels    bool
	objects   bool
	functions bool
	types     bool
	strings   bool
	stats     bool

	json       bool
	pretty     bool
	typeIndex  int
	jobs       int
	logLevel   string
	color      string
	configFile string

	sections ctf.Section // resolved selection
}

func init() {
	// -h selects the header, so help is only available as --help.
	cli.HelpFlag = &cli.BoolFlag{Name: "help", Usage: "show help"}
}

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return newCommand(&options{})
}

// newCommand builds the root command, storing flag values in o.
func newCommand(o *options) *cli.Command {
	return &cli.Command{
		Name:                   "ctfdump",
		Usage:                  "Display CTF information",
		ArgsUsage:              "file ...",
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "d", Usage: "display data object section", Destination: &o.objects},
			&cli.BoolFlag{Name: "f", Usage: "display function section", Destination: &o.functions},
			&cli.BoolFlag{Name: "h", Usage: "display header", Destination: &o.header},
			&cli.BoolFlag{Name: "l", Usage: "display label section", Destination: &o.labels},
			&cli.BoolFlag{Name: "s", Usage: "display string table", Destination: &o.strings},
			&cli.BoolFlag{Name: "t", Usage: "display type section", Destination: &o.types},
			&cli.BoolFlag{Name: "S", Aliases: []string{"stats"}, Usage: "display statistics", Destination: &o.stats},
			&cli.BoolFlag{Name: "json", Usage: "write JSON instead of text", Destination: &o.json},
			&cli.BoolFlag{Name: "pretty", Usage: "indent JSON output", Destination: &o.pretty},
			&cli.IntFlag{Name: "type", Usage: "print the C declaration of one type index", Destination: &o.typeIndex},
			&cli.IntFlag{Name: "jobs", Aliases: []string{"j"}, Usage: "number of files decoded in parallel", Value: runtime.GOMAXPROCS(0), Destination: &o.jobs},
			&cli.StringFlag{Name: "log-level", Usage: "log level (debug, info, warn, error)", Value: "warn", Destination: &o.logLevel},
			&cli.StringFlag{Name: "color", Usage: "highlight kinds: auto, always or never", Value: "auto", Destination: &o.color},
			&cli.StringFlag{Name: "config", Usage: "path to config file", Value: configPath(), Destination: &o.configFile},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return run(ctx, cmd, o)
		},
	}
}

func run(ctx context.Context, cmd *cli.Command, o *options) error {
	cfg, err := loadConfig(o.configFile)
	if err != nil {
		return err
	}
	if err := applyConfig(cmd, cfg, o); err != nil {
		return err
	}

	paths := cmd.Args().Slice()
	if len(paths) == 0 {
		return fmt.Errorf("usage: %s [-dfhlst] file ...", cmd.Name)
	}
	if cmd.IsSet("type") && (o.typeIndex <= 0 || o.typeIndex > 0xffff) {
		return fmt.Errorf("invalid type index %d", o.typeIndex)
	}

	logger, err := newLogger(o.logLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	sections.SetLogger(logger.Named("sections"))
	container.SetLogger(logger.Named("container"))

	out := cmd.Root().Writer
	r, err := newRenderer(o, out)
	if err != nil {
		return err
	}

	d := &dumper{
		render: r,
		logger: logger,
		multi:  len(paths) > 1,
	}

	failed := false
	for i, res := range dumpFiles(ctx, paths, o.jobs, d.dump) {
		if _, err := out.Write(res.out.Bytes()); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		if res.err != nil {
			logger.Error("failed to dump file", zap.String("file", paths[i]), zap.Error(res.err))
			failed = true
		}
	}

	if failed {
		return errFailed
	}
	return nil
}
