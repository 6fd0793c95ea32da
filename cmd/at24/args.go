package main

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/eeprom"
	"github.com/mklimuk/eeprom/cmd/at24/console"
	"github.com/mklimuk/eeprom/memory/at24"
)

// target is the device part shared by every command line.
type target struct {
	bus    string
	peer   byte
	offset uint32
}

func checkArgs(c *cli.Context, want int) error {
	if c.NArg() != want {
		return console.Usage("%s expects %d arguments, got %d\nusage: %s %s %s",
			c.Command.Name, want, c.NArg(), c.App.Name, c.Command.Name, c.Command.ArgsUsage)
	}
	return nil
}

func parseTarget(c *cli.Context) (target, error) {
	t := target{bus: c.Args().Get(0)}
	if t.bus == "" {
		return t, console.Usage("empty bus id")
	}
	peer, err := parseHex(c.Args().Get(1), 8)
	if err != nil || peer > eeprom.MaxPeerAddress {
		return t, console.Usage("invalid peer address %q: expected 7-bit hex", c.Args().Get(1))
	}
	t.peer = byte(peer)
	offset, err := parseHex(c.Args().Get(2), 32)
	if err != nil {
		return t, console.Usage("invalid offset %q: expected hex", c.Args().Get(2))
	}
	t.offset = uint32(offset)
	return t, nil
}

func parseHex(s string, bits int) (uint64, error) {
	s = strings.TrimPrefix(strings.ToLower(s), "0x")
	return strconv.ParseUint(s, 16, bits)
}

// parseWidth maps the 0|1 addressing flag to a word-address width.
func parseWidth(s string) (int, error) {
	switch s {
	case "0":
		return 1, nil
	case "1":
		return 2, nil
	}
	return 0, console.Usage("invalid address width flag %q: expected 0 (1 byte) or 1 (2 bytes)", s)
}

func parseDec(name, s string) (int, error) {
	v, err := strconv.ParseUint(s, 10, 31)
	if err != nil {
		return 0, console.Usage("invalid %s %q: expected a non-negative decimal", name, s)
	}
	return int(v), nil
}

// parseGeometry reads the addr-width and page-size fields at idx and idx+1.
// A page size of zero parses; the driver rejects it.
func parseGeometry(c *cli.Context, idx int) (at24.Geometry, error) {
	width, err := parseWidth(c.Args().Get(idx))
	if err != nil {
		return at24.Geometry{}, err
	}
	page, err := parseDec("page size", c.Args().Get(idx+1))
	if err != nil {
		return at24.Geometry{}, err
	}
	return at24.Geometry{AddressWidth: width, PageSize: page}, nil
}

// decodeHex accepts an even number of hex digits, optionally separated by
// spaces or colons.
func decodeHex(s string) ([]byte, error) {
	s = strings.NewReplacer(" ", "", ":", "").Replace(s)
	s = strings.TrimPrefix(strings.ToLower(s), "0x")
	if s == "" {
		return nil, fmt.Errorf("empty hex payload")
	}
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex payload: %w", err)
	}
	return data, nil
}

// formatHex renders 16 upper-case bytes per line.
func formatHex(data []byte) string {
	var b strings.Builder
	for i, v := range data {
		switch {
		case i == 0:
		case i%16 == 0:
			b.WriteByte('\n')
		default:
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%02X", v)
	}
	if len(data) > 0 {
		b.WriteByte('\n')
	}
	return b.String()
}
