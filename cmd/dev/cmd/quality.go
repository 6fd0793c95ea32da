package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gophertribe/devtool/test"
	"github.com/magefile/mage/sh"
	"github.com/spf13/cobra"
)

const gotestsum = "gotest.tools/gotestsum@v1.12.0"

// suites maps test groups to the packages they cover.
var suites = map[string][]string{
	"driver":     {"./", "./memory/...", "./fru/...", "./eectx/..."},
	"transports": {"./i2c/...", "./adapter/..."},
	"cli":        {"./cmd/..."},
}

// suitePackages resolves group names to package patterns; no groups means
// the whole module.
func suitePackages(groups []string) ([]string, error) {
	if len(groups) == 0 {
		return []string{"./..."}, nil
	}
	var pkgs []string
	for _, g := range groups {
		p, ok := suites[g]
		if !ok {
			names := make([]string, 0, len(suites))
			for n := range suites {
				names = append(names, n)
			}
			sort.Strings(names)
			return nil, fmt.Errorf("unknown suite %q (have %s)", g, strings.Join(names, ", "))
		}
		pkgs = append(pkgs, p...)
	}
	return pkgs, nil
}

func gotestsumArgs(pkgs []string) []string {
	args := []string{"run", gotestsum, "--no-summary=skipped", "--junitfile", "./coverage.xml", "--format", "short"}
	return append(args, pkgs...)
}

// integrationEnv passes the EEPROM under test to the hardware tests.
func integrationEnv(adapter, part, bus, peer, offset string) map[string]string {
	return map[string]string{
		"GOPRIVATE":                "github.com/mklimuk",
		"TEST_INTEGRATION_ENABLED": "1",
		"AT24_TEST_ADAPTER":        adapter,
		"AT24_TEST_PART":           part,
		"AT24_TEST_BUS":            bus,
		"AT24_TEST_PEER":           peer,
		"AT24_TEST_OFFSET":         offset,
	}
}

func TestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Run unit tests (driver, transports, cli)",
		RunE: func(cmd *cobra.Command, args []string) error {
			groups, _ := cmd.Flags().GetStringSlice("suite")
			if len(groups) == 0 {
				if err := test.Test(); err != nil {
					return fmt.Errorf("failed to run tests: %w", err)
				}
				return nil
			}
			pkgs, err := suitePackages(groups)
			if err != nil {
				return err
			}
			if err := sh.RunV("go", gotestsumArgs(pkgs)...); err != nil {
				return fmt.Errorf("failed to run tests: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringSlice("suite", nil, "test groups to run: driver, transports, cli")
	return cmd
}

func LintCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lint",
		Short: "Run linters",
		RunE: func(cmd *cobra.Command, args []string) error {
			err := test.Lint()
			if err != nil {
				return fmt.Errorf("failed to run linting: %w", err)
			}
			return nil
		},
	}
	return cmd
}

func IntegrationTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "integration-test",
		Short: "Run the transport tests against an attached EEPROM",
		RunE: func(cmd *cobra.Command, args []string) error {
			adapter, _ := cmd.Flags().GetString("adapter")
			part, _ := cmd.Flags().GetString("part")
			bus, _ := cmd.Flags().GetString("bus")
			peer, _ := cmd.Flags().GetString("peer")
			offset, _ := cmd.Flags().GetString("offset")
			pkgs, _ := suitePackages([]string{"transports"})
			err := sh.RunWithV(integrationEnv(adapter, part, bus, peer, offset), "go", gotestsumArgs(pkgs)...)
			if err != nil {
				return fmt.Errorf("failed to run integration testing: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().String("adapter", "i2cdev", "transport the EEPROM is attached to: i2cdev or periph")
	cmd.Flags().String("part", "24c02", "EEPROM part name")
	cmd.Flags().String("bus", "1", "bus id")
	cmd.Flags().String("peer", "50", "peer address (hex)")
	cmd.Flags().String("offset", "f0", "scratch area overwritten by the tests (hex, 16 bytes)")
	return cmd
}
