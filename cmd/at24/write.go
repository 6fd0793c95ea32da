package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/eeprom/cmd/at24/console"
	"github.com/mklimuk/eeprom/memory/at24"
)

const writeArgsUsage = "<bus-id> <peer-address-hex> <offset-hex> %s <addr-width:0|1> <page-size-dec>"

var writeCmd = &cli.Command{
	Name:      "write",
	Aliases:   []string{"w"},
	Usage:     "write hex-encoded bytes",
	ArgsUsage: fmt.Sprintf(writeArgsUsage, "<hex-string>"),
	Action:    writeAction(decodeHex),
}

var writeStringCmd = &cli.Command{
	Name:      "write-string",
	Aliases:   []string{"ws"},
	Usage:     "write text without a terminator",
	ArgsUsage: fmt.Sprintf(writeArgsUsage, "<text>"),
	Action: writeAction(func(s string) ([]byte, error) {
		return at24.StringPayload(s, false), nil
	}),
}

var writeStringTerminatedCmd = &cli.Command{
	Name:      "write-string-terminated",
	Aliases:   []string{"wsc"},
	Usage:     "write text followed by a zero byte",
	ArgsUsage: fmt.Sprintf(writeArgsUsage, "<text>"),
	Action: writeAction(func(s string) ([]byte, error) {
		return at24.StringPayload(s, true), nil
	}),
}

// writeAction parses the common write command line; payload turns the
// fourth argument into bytes before the bus is opened.
func writeAction(payload func(arg string) ([]byte, error)) cli.ActionFunc {
	return func(c *cli.Context) error {
		if err := checkArgs(c, 6); err != nil {
			return err
		}
		t, err := parseTarget(c)
		if err != nil {
			return err
		}
		geo, err := parseGeometry(c, 4)
		if err != nil {
			return err
		}
		data, err := payload(c.Args().Get(3))
		if err != nil {
			return console.Fail("decode", err)
		}
		return writeBytes(c, t, geo, data)
	}
}
