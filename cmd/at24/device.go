package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/eeprom/cmd/at24/console"
	"github.com/mklimuk/eeprom/eectx"
	"github.com/mklimuk/eeprom/memory/at24"
)

// withDevice opens the configured transport for t, runs fn against the
// EEPROM and closes the transport again.
func withDevice(c *cli.Context, t target, geo at24.Geometry, fn func(ctx context.Context, e *at24.AT24) error) error {
	cfg := configFrom(c)
	if err := geo.Validate(); err != nil {
		return console.Fail("configure", err)
	}
	h, err := adapters[cfg.Adapter](t.bus, t.peer)
	if err != nil {
		return console.Fail("open bus", err)
	}
	defer closeHandle(h)
	e, err := at24.New(h, geo, cfg.deviceOpts()...)
	if err != nil {
		return console.Fail("configure", err)
	}
	ctx := eectx.SetVerbose(c.Context, cfg.Verbose)
	return fn(ctx, e)
}

// writeBytes writes data at t through the page-aligned write path and
// prints OK.
func writeBytes(c *cli.Context, t target, geo at24.Geometry, data []byte) error {
	if err := geo.Validate(); err != nil {
		return console.Fail("configure", err)
	}
	if c.Bool("dry-run") {
		for _, chunk := range at24.Plan(t.offset, len(data), geo.PageSize) {
			console.Printf("%s\n", chunk)
		}
		return nil
	}
	if c.Bool("confirm") {
		answer, err := console.YesOrNo(fmt.Sprintf("write %d bytes to peer %#02x at %#02x?", len(data), t.peer, t.offset))
		if err != nil {
			return console.Fail("prompt", err)
		}
		if answer != console.Yes {
			return console.Exit(console.ExitFailure, "write aborted")
		}
	}
	return withDevice(c, t, geo, func(ctx context.Context, e *at24.AT24) error {
		var err error
		if c.Bool("verify") {
			err = e.WriteVerified(ctx, t.offset, data, configFrom(c).Retries)
		} else {
			err = e.Write(ctx, t.offset, data)
		}
		if err != nil {
			return console.Fail("write", err)
		}
		console.Print("OK")
		return nil
	})
}
