package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/staterouter/core/state"
)

// HrefOptions holds flags for the href command.
type HrefOptions struct {
	Absolute bool
	Lossy    bool
}

// HrefResult is a built link.
type HrefResult struct {
	State string `json:"state"`
	Href  string `json:"href"`
}

// NewHrefCommand creates the href command.
func NewHrefCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HrefOptions{}

	cmd := &cobra.Command{
		Use:   "href <state> [key=value...]",
		Short: "Build the link of a state",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseValues(args[1:])
			if err != nil {
				return err
			}
			r, err := rootOpts.newRouter(cmd, "")
			if err != nil {
				return err
			}
			href, ok := r.Href(args[0], values, state.WithAbsolute(opts.Absolute), state.WithLossy(opts.Lossy))
			if !ok {
				return NewExitError(ExitFailure, fmt.Sprintf("cannot build a link to %s with %v", args[0], values))
			}
			res := HrefResult{State: args[0], Href: href}
			return rootOpts.printer(cmd.OutOrStdout()).print(res, func(w io.Writer) {
				fmt.Fprintln(w, res.Href)
			})
		},
	}

	cmd.Flags().BoolVar(&opts.Absolute, "absolute", false, "include scheme and host")
	cmd.Flags().BoolVar(&opts.Lossy, "lossy", true, "link states without a URL to their nearest ancestor with one")

	return cmd
}
