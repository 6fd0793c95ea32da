package main

import (
	"context"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/eeprom/adapter"
	"github.com/mklimuk/eeprom/cmd/at24/console"
	"github.com/mklimuk/eeprom/eectx"
)

var mcp2221Cmd = &cli.Command{
	Name:  "mcp2221",
	Usage: "MCP2221 USB bridge diagnostics",
	Subcommands: cli.Commands{
		mcp2221StatusCmd,
		mcp2221ReleaseCmd,
	},
}

var mcp2221StatusCmd = &cli.Command{
	Name:  "status",
	Usage: "print the bridge I2C engine status",
	Action: mcp2221Action(func(ctx context.Context, a *adapter.MCP2221) (*adapter.MCP2221Status, error) {
		return a.Status(ctx)
	}),
}

var mcp2221ReleaseCmd = &cli.Command{
	Name:  "release",
	Usage: "cancel the current transfer and free the bus",
	Action: mcp2221Action(func(ctx context.Context, a *adapter.MCP2221) (*adapter.MCP2221Status, error) {
		return a.ReleaseBus(ctx)
	}),
}

func mcp2221Action(fn func(ctx context.Context, a *adapter.MCP2221) (*adapter.MCP2221Status, error)) cli.ActionFunc {
	return func(c *cli.Context) error {
		a := adapter.NewMCP2221(mcp2221Opts...)
		ctx := eectx.SetVerbose(c.Context, configFrom(c).Verbose)
		status, err := fn(ctx, a)
		if err != nil {
			return console.Exit(console.ExitFailure, "adapter communication error: %s", console.Red(err))
		}
		out, err := yaml.Marshal(status)
		if err != nil {
			return console.Exit(console.ExitFailure, "encoding error: %s", console.Red(err))
		}
		console.Printf("%s", out)
		return nil
	}
}
