package main

import (
	"context"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/eeprom/cmd/at24/console"
	"github.com/mklimuk/eeprom/memory/at24"
)

var readCmd = &cli.Command{
	Name:      "read",
	Aliases:   []string{"r"},
	Usage:     "read bytes and print them as hex, 16 per line",
	ArgsUsage: "<bus-id> <peer-address-hex> <offset-hex> <length-dec> <addr-width:0|1>",
	Action: func(c *cli.Context) error {
		if err := checkArgs(c, 5); err != nil {
			return err
		}
		t, err := parseTarget(c)
		if err != nil {
			return err
		}
		length, err := parseDec("length", c.Args().Get(3))
		if err != nil {
			return err
		}
		width, err := parseWidth(c.Args().Get(4))
		if err != nil {
			return err
		}
		// page size plays no part in reads
		geo := at24.Geometry{AddressWidth: width, PageSize: 1}
		return withDevice(c, t, geo, func(ctx context.Context, e *at24.AT24) error {
			data, err := e.Read(ctx, t.offset, length)
			if err != nil {
				return console.Fail("read", err)
			}
			console.Printf("%s", formatHex(data))
			return nil
		})
	},
}

var readStringCmd = &cli.Command{
	Name:      "read-string",
	Aliases:   []string{"rs"},
	Usage:     "read text up to the first zero byte",
	ArgsUsage: "<bus-id> <peer-address-hex> <offset-hex> <max-length-dec> <addr-width:0|1>",
	Action: func(c *cli.Context) error {
		if err := checkArgs(c, 5); err != nil {
			return err
		}
		t, err := parseTarget(c)
		if err != nil {
			return err
		}
		limit, err := parseDec("max length", c.Args().Get(3))
		if err != nil {
			return err
		}
		width, err := parseWidth(c.Args().Get(4))
		if err != nil {
			return err
		}
		geo := at24.Geometry{AddressWidth: width, PageSize: 1}
		return withDevice(c, t, geo, func(ctx context.Context, e *at24.AT24) error {
			s, err := e.ReadString(ctx, t.offset, limit)
			if err != nil {
				return console.Fail("read", err)
			}
			console.Printf("%s\n", s)
			return nil
		})
	},
}
