package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sigcntrl/lampagent/pkg/heartbeat"
	"github.com/sigcntrl/lampagent/pkg/output"
	"gopkg.in/yaml.v3"
)

// DefaultHost is the supervisor host when neither -host nor -discover is given.
const DefaultHost = "SIGCNTRL.local"

// Config holds the agent command configuration.
type Config struct {
	ConfigFile string `yaml:"-"`

	Variant     string        `yaml:"variant"`
	Driver      string        `yaml:"driver"`
	Host        string        `yaml:"host"`
	Port        int           `yaml:"port"`
	Discover    bool          `yaml:"discover"`
	Advertise   bool          `yaml:"advertise"`
	Interface   string        `yaml:"interface"`
	LogLevel    string        `yaml:"log_level"`
	LogFile     string        `yaml:"log_file"`
	CaptureFile string        `yaml:"capture_file"`
	StateFile   string        `yaml:"state_file"`
	MetricsAddr string        `yaml:"metrics_addr"`
	Seed        int64         `yaml:"seed"`
	CancelGrace time.Duration `yaml:"cancel_grace"`
	Testing     bool          `yaml:"testing"`
	Interactive bool          `yaml:"interactive"`
}

func defaultConfig() Config {
	return Config{
		Driver:      string(output.DriverRPi),
		Host:        DefaultHost,
		Port:        heartbeat.DefaultPort,
		Advertise:   true,
		LogLevel:    "info",
		CancelGrace: 2 * time.Second,
	}
}

func registerFlags(fs *flag.FlagSet, c *Config) {
	fs.StringVar(&c.ConfigFile, "config", "", "Configuration file path (YAML)")
	fs.StringVar(&c.Variant, "variant", c.Variant, "Board variant: nth, sth, or a .yaml wiring file (default: from hostname)")
	fs.StringVar(&c.Driver, "driver", c.Driver, "Output driver: rpio, sim")
	fs.StringVar(&c.Host, "host", c.Host, "Supervisor host")
	fs.IntVar(&c.Port, "port", c.Port, "Heartbeat port (bind and remote)")
	fs.BoolVar(&c.Discover, "discover", c.Discover, "Locate the supervisor with mDNS instead of -host")
	fs.BoolVar(&c.Advertise, "advertise", c.Advertise, "Advertise the agent with mDNS")
	fs.StringVar(&c.Interface, "interface", c.Interface, "Network interface for mDNS (default: all)")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level: debug, info, warn, error")
	fs.StringVar(&c.LogFile, "log-file", c.LogFile, "Also append logs to this file")
	fs.StringVar(&c.CaptureFile, "capture", c.CaptureFile, "Protocol capture file (.llog)")
	fs.StringVar(&c.StateFile, "state", c.StateFile, "Statistics snapshot file (JSON)")
	fs.StringVar(&c.MetricsAddr, "metrics-addr", c.MetricsAddr, "Prometheus listen address, e.g. :9110")
	fs.Int64Var(&c.Seed, "seed", c.Seed, "Random seed (0: from clock)")
	fs.DurationVar(&c.CancelGrace, "cancel-grace", c.CancelGrace, "Wait bound for flicker tasks at shutdown")
	fs.BoolVar(&c.Testing, "testing", c.Testing, "Never power the unit down on END")
	fs.BoolVar(&c.Interactive, "interactive", c.Interactive, "Start the console (sim driver only)")
}

// parseConfig parses args. Values from the config file fill in every
// setting the command line leaves unset.
func parseConfig(args []string) (Config, error) {
	c := defaultConfig()
	fs := flag.NewFlagSet("lamp-agent", flag.ContinueOnError)
	registerFlags(fs, &c)
	if err := fs.Parse(args); err != nil {
		return c, err
	}
	if c.ConfigFile == "" {
		return c, c.validate()
	}

	fromFile, err := loadConfigFile(c.ConfigFile)
	if err != nil {
		return c, err
	}
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	// Re-apply explicit flags on top of the file values.
	merged := fromFile
	merged.ConfigFile = c.ConfigFile
	fs2 := flag.NewFlagSet("lamp-agent", flag.ContinueOnError)
	registerFlags(fs2, &merged)
	merged.ConfigFile = c.ConfigFile
	for name := range set {
		if name == "config" {
			continue
		}
		if err := fs2.Set(name, fs.Lookup(name).Value.String()); err != nil {
			return c, err
		}
	}
	return merged, merged.validate()
}

// loadConfigFile reads a YAML config on top of the defaults.
func loadConfigFile(path string) (Config, error) {
	c := defaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("parse config %s: %w", path, err)
	}
	return c, nil
}

func (c Config) validate() error {
	kind, err := output.ParseDriverKind(c.Driver)
	if err != nil {
		return err
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be 1-65535, got %d", c.Port)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Interactive && kind != output.DriverSim {
		return errors.New("-interactive needs -driver sim")
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return l, fmt.Errorf("unknown log level: %s", s)
	}
	return l, nil
}
