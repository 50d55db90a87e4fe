package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/staterouter"
	"github.com/dmitrymomot/staterouter/core/params"
)

// MatchResult is the state a URL activates.
type MatchResult struct {
	State  string        `json:"state"`
	URL    string        `json:"url"`
	Params params.Values `json:"params"`
}

// NewMatchCommand creates the match command.
func NewMatchCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "match <url>",
		Short: "Show the state a URL activates",
		Long: `Start the router at the given URL and report the state it settles in,
following URL redirects and state redirects on the way.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := rootOpts.newRouter(cmd, args[0])
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), rootOpts.Timeout)
			defer cancel()

			if err := r.Start(ctx); err != nil {
				return WrapExitError(ExitCommandError, "start router", err)
			}
			defer r.Close()
			if err := settle(ctx, r); err != nil {
				return WrapExitError(ExitFailure, fmt.Sprintf("match %s", args[0]), err)
			}

			cur := r.Current()
			if cur.IsRoot() {
				return NewExitError(ExitFailure, fmt.Sprintf("no state matches %s", args[0]))
			}
			res := MatchResult{State: cur.Name, URL: r.Location().URL(), Params: r.Params()}
			return rootOpts.printer(cmd.OutOrStdout()).print(res, func(w io.Writer) {
				fmt.Fprintf(w, "state: %s\n", res.State)
				fmt.Fprintf(w, "url: %s\n", res.URL)
				if len(res.Params) > 0 {
					fmt.Fprintln(w, "params:")
					writeValues(w, "  ", res.Params)
				}
			})
		},
	}
}

// settle waits for the pending transition, if any, to finish.
func settle(ctx context.Context, r *staterouter.Router) error {
	for {
		t := r.Transition()
		if t == nil {
			return nil
		}
		_, err := t.Future().AwaitContext(ctx)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil && r.Transition() == nil {
			return err
		}
	}
}
