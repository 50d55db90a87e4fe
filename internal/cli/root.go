package cli

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/staterouter"
	"github.com/dmitrymomot/staterouter/core/logger"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	States     string
	Format     string // "text" | "json"
	Verbose    bool
	HTML5      bool
	HashPrefix string
	Timeout    time.Duration
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command of the staterouter CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "staterouter",
		Short: "Inspect and exercise state definitions",
		Long: `Load a YAML file of state definitions into a state router and
inspect the tree, match URLs, build hrefs or run transitions against it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.States, "states", "s", "states.yaml", "state definitions file")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log router activity to stderr")
	cmd.PersistentFlags().BoolVar(&opts.HTML5, "html5", false, "build hrefs without the hash prefix")
	cmd.PersistentFlags().StringVar(&opts.HashPrefix, "hash-prefix", "", "text following # in hash mode hrefs")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 5*time.Second, "how long to wait for a transition")

	cmd.AddCommand(NewTreeCommand(opts))
	cmd.AddCommand(NewMatchCommand(opts))
	cmd.AddCommand(NewHrefCommand(opts))
	cmd.AddCommand(NewGoCommand(opts))

	return cmd
}

// logger writes debug output to stderr in verbose mode and discards it otherwise.
func (o *RootOptions) logger(cmd *cobra.Command) *slog.Logger {
	if !o.Verbose {
		return logger.Nop()
	}
	return logger.New(logger.WithOutput(cmd.ErrOrStderr()), logger.WithLevel(slog.LevelDebug))
}

// newRouter builds a router from the environment, the global flags and the
// states file. initial seeds the location when not empty.
func (o *RootOptions) newRouter(cmd *cobra.Command, initial string) (*staterouter.Router, error) {
	cfg, err := staterouter.LoadConfig()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load config", err)
	}
	flags := cmd.Flags()
	if flags.Changed("html5") {
		cfg.HTML5Mode = o.HTML5
	}
	if flags.Changed("hash-prefix") {
		cfg.HashPrefix = o.HashPrefix
	}
	if initial != "" {
		cfg.InitialURL = initial
	}

	r, err := staterouter.New(staterouter.WithConfig(cfg), staterouter.WithLogger(o.logger(cmd)))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "create router", err)
	}

	cfgs, err := LoadStatesFile(o.States)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load states", err)
	}
	for _, c := range cfgs {
		if _, err := r.Register(c); err != nil {
			return nil, WrapExitError(ExitCommandError, fmt.Sprintf("register %q", c.Name), err)
		}
	}
	if pending := r.Pending(); len(pending) > 0 {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("states without a parent: %v", pending))
	}
	return r, nil
}
