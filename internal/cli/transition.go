package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/staterouter/core/event"
	"github.com/dmitrymomot/staterouter/core/params"
	"github.com/dmitrymomot/staterouter/core/state"
)

// GoOptions holds flags for the go command.
type GoOptions struct {
	From    string
	Reload  bool
	Inherit bool
}

// ViewInfo is the template a view resolved to.
type ViewInfo struct {
	Name     string `json:"name"`
	Template string `json:"template"`
}

// GoResult reports a finished transition.
type GoResult struct {
	Events []string      `json:"events"`
	State  string        `json:"state"`
	URL    string        `json:"url"`
	Params params.Values `json:"params"`
	Views  []ViewInfo    `json:"views,omitempty"`
}

// NewGoCommand creates the go command.
func NewGoCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GoOptions{}

	cmd := &cobra.Command{
		Use:   "go <state> [key=value...]",
		Short: "Run a transition and report the events it published",
		Long: `Start the router at --from, transition to the given state and print
the state change events, the resulting URL and params and the templates of
the active views.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseValues(args[1:])
			if err != nil {
				return err
			}
			return runGo(cmd, rootOpts, opts, args[0], values)
		},
	}

	cmd.Flags().StringVar(&opts.From, "from", "/", "URL to start from")
	cmd.Flags().BoolVar(&opts.Reload, "reload", false, "re-enter the target even when nothing changed")
	cmd.Flags().BoolVar(&opts.Inherit, "inherit", true, "keep current params the target shares")

	return cmd
}

func runGo(cmd *cobra.Command, rootOpts *RootOptions, opts *GoOptions, to string, values params.Values) error {
	r, err := rootOpts.newRouter(cmd, opts.From)
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
		return WrapExitError(ExitFailure, fmt.Sprintf("start at %s", opts.From), err)
	}

	log := &eventLog{logger: rootOpts.logger(cmd)}
	unsubscribe, err := log.subscribe(r.Bus())
	if err != nil {
		return err
	}
	defer unsubscribe()

	_, err = r.Go(ctx, to, values, state.WithReload(opts.Reload), state.WithInherit(opts.Inherit)).AwaitContext(ctx)
	if err != nil {
		log.write(cmd.OutOrStdout())
		return WrapExitError(ExitFailure, fmt.Sprintf("go %s", to), err)
	}

	cur := r.Current()
	res := GoResult{
		Events: log.list(),
		State:  cur.Name,
		URL:    r.Location().URL(),
		Params: r.Params(),
		Views:  activeViews(cur),
	}
	return rootOpts.printer(cmd.OutOrStdout()).print(res, func(w io.Writer) {
		log.write(w)
		fmt.Fprintf(w, "state: %s\n", res.State)
		fmt.Fprintf(w, "url: %s\n", res.URL)
		if len(res.Params) > 0 {
			fmt.Fprintln(w, "params:")
			writeValues(w, "  ", res.Params)
		}
		if len(res.Views) > 0 {
			fmt.Fprintln(w, "views:")
			for _, v := range res.Views {
				fmt.Fprintf(w, "  %s: %s\n", v.Name, v.Template)
			}
		}
	})
}

// activeViews lists the views with a template along the path of s.
func activeViews(s *state.State) []ViewInfo {
	var views []ViewInfo
	for _, st := range s.Path {
		locals := st.Locals()
		if locals == nil {
			continue
		}
		for _, name := range locals.Views() {
			v, _ := locals.View(name)
			tpl, _ := v[state.TemplateKey].(string)
			if tpl == "" {
				continue
			}
			views = append(views, ViewInfo{Name: name, Template: tpl})
		}
	}
	return views
}

type eventLog struct {
	mu     sync.Mutex
	events []string
	logger *slog.Logger
}

func (l *eventLog) add(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, fmt.Sprintf(format, args...))
}

func (l *eventLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

func (l *eventLog) write(w io.Writer) {
	for _, e := range l.list() {
		fmt.Fprintf(w, "event: %s\n", e)
	}
}

func (l *eventLog) subscribe(bus *event.Bus) (func(), error) {
	return bus.Subscribe(
		observe(l, func(_ context.Context, e *state.StateChangeStart) error {
			l.add("start %s -> %s", stateName(e.From), stateName(e.To))
			return nil
		}),
		observe(l, func(_ context.Context, e *state.StateChangeCancel) error {
			l.add("cancel %s", stateName(e.To))
			return nil
		}),
		observe(l, func(_ context.Context, e *state.StateNotFound) error {
			l.add("not found %s", e.To)
			return nil
		}),
		observe(l, func(_ context.Context, e *state.StateChangeError) error {
			l.add("error %s: %v", stateName(e.To), e.Err)
			return nil
		}),
		observe(l, func(_ context.Context, e *state.StateChangeSuccess) error {
			l.add("success %s -> %s", stateName(e.From), stateName(e.To))
			return nil
		}),
	)
}

func observe[T any](l *eventLog, fn event.HandlerFunc[T]) event.Handler {
	return event.NewHandlerFunc(event.ApplyDecorators(fn, event.WithLogging[T](l.logger)))
}

func stateName(s *state.State) string {
	if s == nil || s.IsRoot() {
		return "(root)"
	}
	return s.Name
}
