package oracle

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"perpstate/pkg/confkit"
)

const (
	DefaultDecimals = 6
	// MaxDecimals keeps 10^decimals well inside the 128-bit amount range.
	MaxDecimals     = 18
	DefaultSchedule = "@every 1m"
)

// Config describes the feeds the oracle serves and how their TWAPs refresh.
type Config struct {
	Decimals int32          `yaml:"decimals"`
	Feeds    []*FeedConfig  `yaml:"feeds"`
	Refresh  RefreshConfig  `yaml:"refresh"`
	Journal  JournalConfig  `yaml:"journal"`
	Reserves ReservesConfig `yaml:"reserves"`
}

// FeedConfig is one asset key and the TWAP windows published for it.
type FeedConfig struct {
	Key              string          `yaml:"key"`
	TWAPIntervalsRaw []string        `yaml:"twap_intervals"`
	TWAPIntervals    []time.Duration `yaml:"-"`
}

// RefreshConfig drives the cron TWAP refresher.
type RefreshConfig struct {
	Schedule   string        `yaml:"schedule"`
	TimeoutRaw string        `yaml:"timeout"`
	Timeout    time.Duration `yaml:"-"`
}

// JournalConfig enables the transition journal when Path is set.
type JournalConfig struct {
	Path string `yaml:"path"`
}

// ReservesConfig lists the TWAP windows published for the vAMM spot price.
type ReservesConfig struct {
	TWAPIntervalsRaw []string        `yaml:"twap_intervals"`
	TWAPIntervals    []time.Duration `yaml:"-"`
}

// DefaultConfig serves no feeds at the default scale and schedule.
func DefaultConfig() *Config {
	return &Config{
		Decimals: DefaultDecimals,
		Refresh:  RefreshConfig{Schedule: DefaultSchedule},
	}
}

// LoadConfig reads configuration from disk.
func LoadConfig(path string) (*Config, error) {
	confkit.LoadDotenvOnce()
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open oracle config: %w", err)
	}
	defer file.Close()
	return LoadConfigFromReader(file)
}

// MustLoad reads oracle configuration from the default project location and panics on error.
func MustLoad() *Config {
	cfg, err := LoadConfig(confkit.MustProjectPath("etc/oracle.yaml"))
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadConfigFromReader constructs a Config from an io.Reader.
func LoadConfigFromReader(r io.Reader) (*Config, error) {
	confkit.LoadDotenvOnce()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read oracle config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal oracle config: %w", err)
	}
	if err := cfg.normalise(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalise() error {
	if c.Decimals == 0 {
		c.Decimals = DefaultDecimals
	}
	c.Refresh.Schedule = strings.TrimSpace(os.ExpandEnv(c.Refresh.Schedule))
	if c.Refresh.Schedule == "" {
		c.Refresh.Schedule = DefaultSchedule
	}
	c.Refresh.TimeoutRaw = strings.TrimSpace(os.ExpandEnv(c.Refresh.TimeoutRaw))
	if c.Refresh.TimeoutRaw != "" {
		d, err := time.ParseDuration(c.Refresh.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("oracle refresh: invalid timeout %q: %w", c.Refresh.TimeoutRaw, err)
		}
		c.Refresh.Timeout = d
	}
	c.Journal.Path = strings.TrimSpace(os.ExpandEnv(c.Journal.Path))

	for i, feed := range c.Feeds {
		if feed == nil {
			return fmt.Errorf("oracle config: feed %d is empty", i)
		}
		feed.Key = strings.TrimSpace(os.ExpandEnv(feed.Key))
		intervals, err := parseIntervals(feed.TWAPIntervalsRaw)
		if err != nil {
			return fmt.Errorf("oracle feed %s: %w", feed.Key, err)
		}
		feed.TWAPIntervals = intervals
	}
	intervals, err := parseIntervals(c.Reserves.TWAPIntervalsRaw)
	if err != nil {
		return fmt.Errorf("oracle reserves: %w", err)
	}
	c.Reserves.TWAPIntervals = intervals
	return nil
}

func parseIntervals(raw []string) ([]time.Duration, error) {
	out := make([]time.Duration, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(os.ExpandEnv(r))
		d, err := time.ParseDuration(r)
		if err != nil {
			return nil, fmt.Errorf("invalid twap interval %q: %w", r, err)
		}
		if d < time.Second || d%time.Second != 0 {
			return nil, fmt.Errorf("twap interval %s must be a positive whole number of seconds", d)
		}
		out = append(out, d)
	}
	return out, nil
}

// Validate ensures the configuration is structurally sound.
func (c *Config) Validate() error {
	if c.Decimals < 0 || c.Decimals > MaxDecimals {
		return fmt.Errorf("oracle config: decimals must be within [0,%d], got %d", MaxDecimals, c.Decimals)
	}
	seen := make(map[string]struct{}, len(c.Feeds))
	for _, feed := range c.Feeds {
		if feed.Key == "" {
			return fmt.Errorf("oracle config: feed key cannot be empty")
		}
		if _, dup := seen[feed.Key]; dup {
			return fmt.Errorf("oracle config: duplicate feed %q", feed.Key)
		}
		seen[feed.Key] = struct{}{}
	}
	if _, err := cron.ParseStandard(c.Refresh.Schedule); err != nil {
		return fmt.Errorf("oracle config: invalid refresh schedule %q: %w", c.Refresh.Schedule, err)
	}
	if c.Refresh.Timeout < 0 {
		return fmt.Errorf("oracle config: refresh timeout must not be negative")
	}
	return nil
}

// Feed returns the configuration for key.
func (c *Config) Feed(key string) (*FeedConfig, bool) {
	for _, f := range c.Feeds {
		if f.Key == key {
			return f, true
		}
	}
	return nil, false
}
