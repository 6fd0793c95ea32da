package main

import (
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/eeprom/memory/at24"
)

const configKey = "config"

// Config holds the settings shared by every command. Values come from the
// optional YAML file first; flags and AT24_* variables override them.
type Config struct {
	Adapter     string        `yaml:"adapter"`
	PollTimeout time.Duration `yaml:"poll_timeout"`
	Probe       string        `yaml:"probe"`
	Retries     int           `yaml:"retries"`
	Verbose     bool          `yaml:"verbose"`
}

func defaultConfig() Config {
	return Config{
		Adapter:     "i2cdev",
		PollTimeout: at24.DefaultPollTimeout,
		Probe:       at24.ProbeAuto.String(),
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Usage:   "YAML configuration file",
			EnvVars: []string{"AT24_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "adapter",
			Aliases: []string{"a"},
			Usage:   "bus transport: i2cdev, periph, nanopi, raspi, mcp2221 or sim (in-memory part, bus id is the part name)",
			Value:   "i2cdev",
			EnvVars: []string{"AT24_ADAPTER"},
		},
		&cli.DurationFlag{
			Name:    "poll-timeout",
			Usage:   "how long to wait for a page write to complete",
			Value:   at24.DefaultPollTimeout,
			EnvVars: []string{"AT24_POLL_TIMEOUT"},
		},
		&cli.StringFlag{
			Name:    "probe",
			Usage:   "ack polling probe: auto, zero or byte",
			Value:   "auto",
			EnvVars: []string{"AT24_PROBE"},
		},
		&cli.IntFlag{
			Name:    "retries",
			Usage:   "verified write attempts after the first one (with --verify)",
			EnvVars: []string{"AT24_RETRIES"},
		},
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "print the page-aligned chunk plan of a write without touching the bus",
		},
		&cli.BoolFlag{
			Name:  "confirm",
			Usage: "ask before writing",
		},
		&cli.BoolFlag{
			Name:  "verify",
			Usage: "read written data back and retry on mismatch",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "enable debug logging and bus traffic dumps",
			EnvVars: []string{"AT24_VERBOSE"},
		},
	}
}

func loadConfig(c *cli.Context) (Config, error) {
	cfg := defaultConfig()
	if path := c.String("config"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("could not read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("could not parse config %s: %w", path, err)
		}
	}
	if c.IsSet("adapter") {
		cfg.Adapter = c.String("adapter")
	}
	if c.IsSet("poll-timeout") {
		cfg.PollTimeout = c.Duration("poll-timeout")
	}
	if c.IsSet("probe") {
		cfg.Probe = c.String("probe")
	}
	if c.IsSet("retries") {
		cfg.Retries = c.Int("retries")
	}
	if c.IsSet("verbose") {
		cfg.Verbose = c.Bool("verbose")
	}
	if _, err := at24.ParseProbeMode(cfg.Probe); err != nil {
		return cfg, err
	}
	if cfg.Retries < 0 {
		return cfg, fmt.Errorf("retries must not be negative, got %d", cfg.Retries)
	}
	if _, ok := adapters[cfg.Adapter]; !ok {
		return cfg, fmt.Errorf("unknown adapter %q", cfg.Adapter)
	}
	return cfg, nil
}

func configFrom(c *cli.Context) Config {
	if cfg, ok := c.App.Metadata[configKey].(Config); ok {
		return cfg
	}
	return defaultConfig()
}

func (cfg Config) deviceOpts() []at24.Opt {
	probe, _ := at24.ParseProbeMode(cfg.Probe)
	return []at24.Opt{
		at24.WithPollTimeout(cfg.PollTimeout),
		at24.WithProbe(probe),
	}
}
