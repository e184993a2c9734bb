// Package main provides the execoach binary entry point.
// execoach is a weekly execution coach: it drafts a plan for the coming week
// from the user's objective and recent history, reviews the end-of-week
// reality check, and revises a plan mid-week.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	// Register LLM providers via init()
	_ "github.com/c360studio/execoach/llm/providers"

	"github.com/c360studio/execoach/config"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "execoach"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// cli carries the state shared by all subcommands.
type cli struct {
	configPath string
	logLevel   string
	logFormat  string
	jsonOutput bool

	out    io.Writer
	errOut io.Writer
	cfg    *config.Config
	logger *slog.Logger
}

func rootCmd(out, errOut io.Writer) *cobra.Command {
	c := &cli{out: out, errOut: errOut}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Weekly execution coach",
		Long: `execoach plans a week of training toward a long-running objective,
reviews what actually happened, and adjusts the plan when reality diverges.

Typical loop:
  execoach plan generate      draft next week's plan
  execoach plan complete      mark a day done
  execoach check submit       report the week's reality check
  execoach plan adjust        revise the remaining days mid-week`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return c.init(cmd)
		},
	}
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	cmd.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "Config file path (YAML or TOML)")
	cmd.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&c.logFormat, "log-format", "", "Log format (text, json)")
	cmd.PersistentFlags().BoolVar(&c.jsonOutput, "json", false, "Print results as JSON")

	cmd.AddCommand(
		c.serveCmd(),
		c.profileCmd(),
		c.planCmd(),
		c.checkCmd(),
		c.historyCmd(),
		c.callsCmd(),
		c.statusCmd(),
		c.resetCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(c.out, "%s version %s (build: %s)\n", appName, Version, BuildTime)
			},
		},
	)

	return cmd
}

// init loads configuration and configures logging. Flags override the
// log section of the config.
func (c *cli) init(cmd *cobra.Command) error {
	bootstrap := newLogger(c.errOut, c.logLevel, c.logFormat)
	cfg, err := config.NewLoader(bootstrap).Load(c.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = c.logLevel
	}
	if cmd.Flags().Changed("log-format") {
		cfg.Log.Format = c.logFormat
	}

	c.cfg = cfg
	c.logger = newLogger(c.errOut, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(c.logger)
	return nil
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
