package sched

import (
	"fmt"
	"os"
	"time"

	yaml "github.com/goccy/go-yaml"
	"github.com/robfig/cron/v3"
)

// Config mirrors the YAML configuration file.
type Config struct {
	Policy          string       `yaml:"policy"`           // "rr" or "edf"
	MinSleepUS      uint64       `yaml:"min_sleep_us"`     // 1000 (by default)
	ReportEvery     uint64       `yaml:"report_every"`     // 10 (by default)
	SummarySchedule string       `yaml:"summary_schedule"` // cron spec, e.g. "@every 10s"; empty disables
	Tasks           []TaskConfig `yaml:"tasks"`

	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	CSVPath     string `yaml:"csv_path"`
	MetricsAddr string `yaml:"metrics_addr"`
	SQLitePath  string `yaml:"sqlite_path"`
	RedisAddr   string `yaml:"redis_addr"`
}

// TaskConfig describes one periodic task.
type TaskConfig struct {
	Name     string   `yaml:"name"`
	PeriodUS uint64   `yaml:"period_us"`
	Work     WorkSpec `yaml:"work"`
}

// WorkSpec selects the work body of a task; see package job.
type WorkSpec struct {
	Kind    string `yaml:"kind"`    // print, sleep, spin, noop
	Message string `yaml:"message"` // print only
	CostUS  uint64 `yaml:"cost_us"` // sleep and spin; virtual cost in simulation
}

// DefaultConfig returns the three-task demo set scheduled by EDF.
func DefaultConfig() Config {
	return Config{
		Policy:      "edf",
		MinSleepUS:  1000,
		ReportEvery: DefaultReportEvery,
		Tasks: []TaskConfig{
			{Name: "A", PeriodUS: 300000, Work: WorkSpec{Kind: "print", Message: "Task A", CostUS: 2000}},
			{Name: "B", PeriodUS: 500000, Work: WorkSpec{Kind: "print", Message: "Task B", CostUS: 2000}},
			{Name: "C", PeriodUS: 700000, Work: WorkSpec{Kind: "print", Message: "Task C", CostUS: 2000}},
		},
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Read decodes YAML over the defaults without validating, so callers can
// apply overrides first. An empty path yields the defaults only.
func Read(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	// a file that lists tasks replaces the default set entirely
	defaults := cfg.Tasks
	cfg.Tasks = nil
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if len(cfg.Tasks) == 0 {
		cfg.Tasks = defaults
	}
	return cfg, nil
}

// Load is Read followed by Validate.
func Load(path string) (Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the scheduling parameters.
func (c Config) Validate() error {
	if _, err := ParsePolicy(c.Policy); err != nil {
		return err
	}
	if len(c.Tasks) == 0 {
		return ErrEmptyTaskSet
	}
	if c.ReportEvery == 0 {
		return fmt.Errorf("%w: report_every must be positive", ErrInvalidConfiguration)
	}

	seen := make(map[string]struct{}, len(c.Tasks))
	minPeriod := c.Tasks[0].PeriodUS
	for _, t := range c.Tasks {
		if t.Name == "" {
			return fmt.Errorf("%w: task name is empty", ErrInvalidConfiguration)
		}
		if _, dup := seen[t.Name]; dup {
			return fmt.Errorf("task %q: %w", t.Name, ErrDuplicateTask)
		}
		seen[t.Name] = struct{}{}
		if t.PeriodUS == 0 {
			return fmt.Errorf("task %q: %w", t.Name, ErrInvalidPeriod)
		}
		if t.PeriodUS < minPeriod {
			minPeriod = t.PeriodUS
		}
	}

	if c.MinSleepUS == 0 || c.MinSleepUS >= minPeriod {
		return fmt.Errorf("%w: min_sleep_us must be in (0, %d)", ErrInvalidConfiguration, minPeriod)
	}
	if _, err := c.Schedule(); err != nil {
		return err
	}
	return nil
}

// PolicyKind parses the configured policy.
func (c Config) PolicyKind() (PolicyKind, error) { return ParsePolicy(c.Policy) }

// MinSleep returns the idle yield interval.
func (c Config) MinSleep() time.Duration { return Duration(c.MinSleepUS) }

// Schedule parses SummarySchedule; nil when unset.
func (c Config) Schedule() (cron.Schedule, error) {
	if c.SummarySchedule == "" {
		return nil, nil
	}
	s, err := cron.ParseStandard(c.SummarySchedule)
	if err != nil {
		return nil, fmt.Errorf("%w: summary_schedule %q: %v", ErrInvalidConfiguration, c.SummarySchedule, err)
	}
	return s, nil
}
