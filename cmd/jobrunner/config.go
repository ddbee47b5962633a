package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jzx17/jobpool/pkg/logging"
	"github.com/jzx17/jobpool/pkg/types"
	"github.com/jzx17/jobpool/pkg/worker"
)

const envPrefix = "JOBRUNNER"

type configuration struct {
	Workers     int
	Jobs        int
	Rounds      int
	Invalidate  bool
	Duration    time.Duration
	FailRate    float64
	Retries     int
	Policy      string
	CancelAfter time.Duration
	Priority    string

	LogLevel    string
	LogEncoding string
	Development bool
}

func registerFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.String("config", "", "Path to a configuration file (yaml, json or toml)")
	flags.Int("workers", worker.MinPoolSize, "Number of workers, raised to 3 when lower")
	flags.Int("jobs", 30, "Number of jobs enqueued per round")
	flags.Int("rounds", 1, "Number of enqueue calls")
	flags.Bool("invalidate", false, "Drop the work of previous rounds on every enqueue")
	flags.Duration("duration", 50*time.Millisecond, "Time each job spends computing")
	flags.Float64("fail-rate", 0, "Fraction of jobs failing, between 0 and 1")
	flags.Int("retries", 1, "Attempts per job, 1 disables retries")
	flags.String("policy", "publish", "What to do with failed jobs: 'publish' or 'discard'")
	flags.Duration("cancel-after", 0, "Cancel the remaining work after this delay, 0 disables it")
	flags.String("priority", "", "Priority of every job: 'low', 'normal' or 'high', mixed when empty")
	flags.String("log-level", "info", "Log level: debug, info, warning or error")
	flags.String("log-encoding", "console", "Log encoding: 'console' or 'json'")
	flags.Bool("dev", false, "Use the development logger")
}

// loadConfiguration merges flags, JOBRUNNER_* environment variables and the
// optional configuration file, in that order of precedence
func loadConfiguration(cmd *cobra.Command) (configuration, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return configuration{}, fmt.Errorf("failed to bind flags: %w", err)
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return configuration{}, fmt.Errorf("failed to read configuration file %s: %w", path, err)
		}
	}

	cfg := configuration{
		Workers:     v.GetInt("workers"),
		Jobs:        v.GetInt("jobs"),
		Rounds:      v.GetInt("rounds"),
		Invalidate:  v.GetBool("invalidate"),
		Duration:    v.GetDuration("duration"),
		FailRate:    v.GetFloat64("fail-rate"),
		Retries:     v.GetInt("retries"),
		Policy:      v.GetString("policy"),
		CancelAfter: v.GetDuration("cancel-after"),
		Priority:    v.GetString("priority"),
		LogLevel:    v.GetString("log-level"),
		LogEncoding: v.GetString("log-encoding"),
		Development: v.GetBool("dev"),
	}
	return cfg, cfg.Validate()
}

func (c configuration) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("invalid workers %d: must not be negative", c.Workers)
	}
	if c.Jobs < 0 || c.Rounds < 1 {
		return errors.New("jobs must not be negative and rounds must be at least 1")
	}
	if c.FailRate < 0 || c.FailRate > 1 {
		return fmt.Errorf("invalid fail-rate %v: must be between 0 and 1", c.FailRate)
	}
	if c.Retries < 1 {
		return fmt.Errorf("invalid retries %d: must be at least 1", c.Retries)
	}
	if _, err := c.failurePolicy(); err != nil {
		return err
	}
	if c.Priority != "" {
		if _, err := types.ParsePriority(c.Priority); err != nil {
			return err
		}
	}
	if c.LogEncoding != "console" && c.LogEncoding != "json" {
		return fmt.Errorf("invalid log-encoding %q: must be 'console' or 'json'", c.LogEncoding)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

func (c configuration) failurePolicy() (types.FailurePolicy, error) {
	switch c.Policy {
	case "publish":
		return types.PublishFailures, nil
	case "discard":
		return types.DiscardFailures, nil
	default:
		return 0, fmt.Errorf("invalid policy %q: must be 'publish' or 'discard'", c.Policy)
	}
}

func (c configuration) loggingConfig() *logging.Config {
	return &logging.Config{
		Level:       c.LogLevel,
		Development: c.Development,
		Encoding:    c.LogEncoding,
	}
}
