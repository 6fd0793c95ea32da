package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/eeprom/cmd/at24/console"
	"github.com/mklimuk/eeprom/fru"
	"github.com/mklimuk/eeprom/memory/at24"
)

var fruCmd = &cli.Command{
	Name:  "fru",
	Usage: "JFRU board-information images",
	Subcommands: cli.Commands{
		fruPackCmd,
		fruWriteCmd,
		fruReadCmd,
	},
}

func loadRecord(path string) (fru.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return fru.Record{}, err
	}
	defer func() { _ = f.Close() }()
	return fru.Decode(f)
}

var fruPackCmd = &cli.Command{
	Name:      "pack",
	Usage:     "build an image file from a JSON or YAML record",
	ArgsUsage: "<record-file> <image-file>",
	Action: func(c *cli.Context) error {
		if err := checkArgs(c, 2); err != nil {
			return err
		}
		rec, err := loadRecord(c.Args().Get(0))
		if err != nil {
			return console.Fail("decode", err)
		}
		img := fru.Pack(rec)
		out := c.Args().Get(1)
		if err := os.WriteFile(out, img, 0o644); err != nil {
			return console.Fail("save", err)
		}
		payloadCRC, headerCRC := fru.Checksums(img)
		console.Printf("OK: %s\n", out)
		console.Printf("payload_crc=0x%08X header_crc=0x%08X\n", payloadCRC, headerCRC)
		return nil
	},
}

var fruWriteCmd = &cli.Command{
	Name:      "write",
	Usage:     "pack a record and write the image to the EEPROM",
	ArgsUsage: "<bus-id> <peer-address-hex> <offset-hex> <record-file> <addr-width:0|1> <page-size-dec>",
	Action: func(c *cli.Context) error {
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
		rec, err := loadRecord(c.Args().Get(3))
		if err != nil {
			return console.Fail("decode", err)
		}
		return writeBytes(c, t, geo, fru.Pack(rec))
	},
}

var fruReadCmd = &cli.Command{
	Name:      "read",
	Usage:     "read an image from the EEPROM and print the record as YAML",
	ArgsUsage: "<bus-id> <peer-address-hex> <offset-hex> <addr-width:0|1>",
	Action: func(c *cli.Context) error {
		if err := checkArgs(c, 4); err != nil {
			return err
		}
		t, err := parseTarget(c)
		if err != nil {
			return err
		}
		width, err := parseWidth(c.Args().Get(3))
		if err != nil {
			return err
		}
		geo := at24.Geometry{AddressWidth: width, PageSize: 1}
		return withDevice(c, t, geo, func(ctx context.Context, e *at24.AT24) error {
			img, err := e.Read(ctx, t.offset, fru.TotalLen)
			if err != nil {
				return console.Fail("read", err)
			}
			rec, err := fru.Unpack(img)
			if err != nil {
				return console.Fail("unpack", err)
			}
			out, err := yaml.Marshal(rec)
			if err != nil {
				return console.Fail("encode", err)
			}
			console.Printf("%s", out)
			return nil
		})
	},
}
