package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	chlog "github.com/charmbracelet/log"
	"github.com/muesli/termenv"
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/eeprom/cmd/at24/console"
)

var version string
var commit string
var date string

func init() {
	// -v is taken by --verbose
	cli.VersionFlag = &cli.BoolFlag{Name: "version", Usage: "print the version"}
}

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	console.SetOutput(stdout, stderr)
	app := newApp(stdout, stderr)
	err := app.Run(args)
	if err == nil {
		return console.ExitOK
	}
	var exerr cli.ExitCoder
	if errors.As(err, &exerr) {
		if msg := exerr.Error(); msg != "" {
			console.Error(msg)
		}
		return exerr.ExitCode()
	}
	// errors raised by the flag parser
	console.Error(err.Error())
	return console.ExitUsage
}

func newApp(stdout, stderr io.Writer) *cli.App {
	app := cli.NewApp()
	app.Name = "at24"
	app.EnableBashCompletion = true
	app.Version = fmt.Sprintf("%s-%s-%s", version, date, commit)
	app.Usage = "read and write AT24C serial EEPROMs"
	app.Writer = stdout
	app.ErrWriter = stderr
	app.Flags = globalFlags()
	app.ExitErrHandler = func(*cli.Context, error) {}
	app.Before = func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return console.Exit(console.ExitFailure, "configuration error: %s", console.Red(err))
		}
		setupLogging(stderr, cfg.Verbose)
		c.App.Metadata = map[string]interface{}{configKey: cfg}
		return nil
	}
	app.Action = func(c *cli.Context) error {
		if c.Args().Present() {
			return console.Usage("unknown command %q", c.Args().First())
		}
		_ = cli.ShowAppHelp(c)
		return console.Usage("")
	}
	app.Commands = cli.Commands{
		readCmd,
		readStringCmd,
		writeCmd,
		writeStringCmd,
		writeStringTerminatedCmd,
		fruCmd,
		mcp2221Cmd,
	}
	return app
}

func setupLogging(w io.Writer, verbose bool) {
	charm := chlog.NewWithOptions(w, chlog.Options{
		ReportCaller:    true,
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
	})
	charm.SetColorProfile(termenv.TrueColor)
	charm.SetLevel(chlog.InfoLevel)
	if verbose {
		charm.SetLevel(chlog.DebugLevel)
	}
	slog.SetDefault(slog.New(charm))
}
