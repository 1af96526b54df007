package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Swind/go-job-scheduler/config"
)

const envPrefix = "JOBSCHED"

// flagKeys maps CLI flags to configuration keys. The keys double as
// JOBSCHED_<KEY> environment variable names.
var flagKeys = map[string]string{
	"name":          "scheduler_name",
	"history":       "history_capacity",
	"log-level":     "log_level",
	"log-format":    "log_format",
	"log-buffer":    "log_buffer_size",
	"tick-interval": "tick_interval",
	"ticks":         "ticks",
	"game-objects":  "game_objects",
	"metrics-addr":  "metrics_addr",
	"trace-stdout":  "trace_stdout",
}

func newRootCommand() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	var configPath string

	root := &cobra.Command{
		Use:          "jobsched",
		Short:        "Run the game-object engine on a categorized job scheduler",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfiguration(v, configPath, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg, cmd.OutOrStdout())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "path to a YAML configuration file")
	registerFlags(flags)
	for flag, key := range flagKeys {
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}

	root.AddCommand(newConfigCommand(v, &configPath))
	return root
}

func registerFlags(flags *pflag.FlagSet) {
	flags.String("name", "", "scheduler name used in logs and metrics")
	flags.StringToInt("threads", nil, "workers per category, e.g. logger=1,game_object=4")
	flags.Int("history", 0, "retained job execution records")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-format", "", "log format: console or json")
	flags.Int("log-buffer", 0, "async logger buffer size in messages")
	flags.Duration("tick-interval", 0, "engine frame period")
	flags.Int("ticks", 0, "frames to run, 0 runs until interrupted")
	flags.Int("game-objects", 0, "number of game objects in the demo scene")
	flags.String("metrics-addr", "", "Prometheus listen address, empty disables the endpoint")
	flags.Bool("trace-stdout", false, "print job spans to stderr")
}

func newConfigCommand(v *viper.Viper, configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfiguration(v, *configPath, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			defer enc.Close()
			return enc.Encode(cfg)
		},
	}
}

// loadConfiguration layers flags and environment variables over the file (or
// default) configuration and validates the result.
func loadConfiguration(v *viper.Viper, path string, flags *pflag.FlagSet) (*config.Configuration, error) {
	if path == "" {
		path = os.Getenv(envPrefix + "_CONFIG")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if v.IsSet("scheduler_name") {
		cfg.SchedulerName = v.GetString("scheduler_name")
	}
	if v.IsSet("history_capacity") {
		cfg.HistoryCapacity = v.GetInt("history_capacity")
	}
	if v.IsSet("log_level") {
		cfg.LogLevel = v.GetString("log_level")
	}
	if v.IsSet("log_format") {
		cfg.LogFormat = v.GetString("log_format")
	}
	if v.IsSet("log_buffer_size") {
		cfg.LogBufferSize = v.GetInt("log_buffer_size")
	}
	if v.IsSet("tick_interval") {
		cfg.TickInterval = v.GetDuration("tick_interval")
	}
	if v.IsSet("ticks") {
		cfg.Ticks = v.GetInt("ticks")
	}
	if v.IsSet("game_objects") {
		cfg.GameObjects = v.GetInt("game_objects")
	}
	if v.IsSet("metrics_addr") {
		cfg.MetricsAddr = v.GetString("metrics_addr")
	}
	if v.IsSet("trace_stdout") {
		cfg.TraceStdout = v.GetBool("trace_stdout")
	}
	if flags.Changed("threads") {
		threads, err := flags.GetStringToInt("threads")
		if err != nil {
			return nil, fmt.Errorf("config: threads: %w", err)
		}
		cfg.Threads = threads
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
