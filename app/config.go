package app

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"slate/console"
	"slate/internal/klog"
	"slate/kernel"
)

// MaxTickHz bounds the timer frequency so one tick lasts at least a
// millisecond of host time.
const MaxTickHz = 1000

// Config is the boot configuration. The zero value of every field takes the
// default from DefaultConfig.
type Config struct {
	Kernel   KernelConfig    `yaml:"kernel"`
	Log      LogConfig       `yaml:"log"`
	Console  ConsoleConfig   `yaml:"console"`
	Trace    TraceConfig     `yaml:"trace"`
	Programs []ProgramConfig `yaml:"programs"`
}

type KernelConfig struct {
	// Timeslice is the scheduling quantum in ticks.
	Timeslice uint64 `yaml:"timeslice"`
	TickHz    uint64 `yaml:"tick_hz"`
	OSName    string `yaml:"os_name"`
}

type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
}

type ConsoleConfig struct {
	// RefreshTicks is the interval of the TTY refresh timer callback.
	RefreshTicks uint64 `yaml:"refresh_ticks"`
}

type TraceConfig struct {
	// File receives OpenTelemetry spans as JSON. Empty disables tracing.
	File string `yaml:"file"`
}

// ProgramConfig describes one process started at boot.
type ProgramConfig struct {
	Name    string `yaml:"name"`
	Program string `yaml:"program"`
	// Type is "user" or "kernel".
	Type string `yaml:"type"`
	TTY  int    `yaml:"tty"`
}

// DefaultConfig returns the built-in boot configuration.
func DefaultConfig() *Config {
	return &Config{
		Kernel: KernelConfig{
			Timeslice: kernel.DefaultTimeslice,
			TickHz:    kernel.DefaultTickHz,
			OSName:    kernel.DefaultOSName,
		},
		Log:     LogConfig{Level: "info"},
		Console: ConsoleConfig{RefreshTicks: 5},
		Programs: []ProgramConfig{
			{Name: "hello", Program: "hello", Type: "user", TTY: 0},
			{Name: "clock", Program: "clock", Type: "user", TTY: 0},
			{Name: "echo", Program: "echo", Type: "user", TTY: 1},
			{Name: "spin", Program: "spin", Type: "user", TTY: 2},
		},
	}
}

// LoadConfig reads a YAML configuration file on top of the defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig decodes YAML on top of the defaults and validates the
// result. A programs list in data replaces the default list.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate returns an error describing the first invalid setting, or nil.
func (c *Config) Validate() error {
	if c.Kernel.Timeslice == 0 {
		return fmt.Errorf("kernel.timeslice must be > 0")
	}
	if c.Kernel.TickHz == 0 || c.Kernel.TickHz > MaxTickHz {
		return fmt.Errorf("kernel.tick_hz must be in [1,%d]", MaxTickHz)
	}
	if c.Kernel.OSName == "" {
		return fmt.Errorf("kernel.os_name must not be empty")
	}
	if _, err := klog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Console.RefreshTicks == 0 {
		return fmt.Errorf("console.refresh_ticks must be > 0")
	}
	if len(c.Programs) > kernel.ProcMax-1 {
		return fmt.Errorf("programs: at most %d entries", kernel.ProcMax-1)
	}
	for i, p := range c.Programs {
		if p.Name == "" {
			return fmt.Errorf("programs[%d].name must not be empty", i)
		}
		if _, ok := programs[p.Program]; !ok {
			return fmt.Errorf("programs[%d].program: unknown program %q", i, p.Program)
		}
		if _, err := parseType(p.Type); err != nil {
			return fmt.Errorf("programs[%d].type: %w", i, err)
		}
		if p.TTY < 0 || p.TTY >= console.TTYMax {
			return fmt.Errorf("programs[%d].tty must be in [0,%d)", i, console.TTYMax)
		}
	}
	return nil
}

func parseType(s string) (kernel.Type, error) {
	switch s {
	case "", "user":
		return kernel.TypeUser, nil
	case "kernel":
		return kernel.TypeKernel, nil
	default:
		return 0, fmt.Errorf("unknown process type %q", s)
	}
}
